package givenergy

import (
	"context"

	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// API is the vendor cloud surface the rest of the application depends on.
// Client implements it against the real GivEnergy cloud and MockAPI
// implements it for tests.
type API interface {
	// ResolveDeviceIdentity discovers the account's inverter and optional
	// EV charger.
	ResolveDeviceIdentity(ctx context.Context) (types.DeviceIdentity, error)

	// FetchSnapshot fetches the latest normalized telemetry.
	FetchSnapshot(ctx context.Context, identity types.DeviceIdentity) (types.TelemetrySnapshot, error)

	// ResolveEVStatus fetches the charger's current state. It never fails,
	// a charger that cannot be reached reports as unavailable.
	ResolveEVStatus(ctx context.Context, chargerID string) types.EVChargerState

	// GetPresetSettings reads the device's settings for a preset mode.
	GetPresetSettings(ctx context.Context, inverterSerial string, presetID types.PresetID) (types.PresetSettings, error)

	// WritePresetSettings pushes settings for a preset mode to the device.
	WritePresetSettings(ctx context.Context, inverterSerial string, presetID types.PresetID, settings types.PresetSettings) error
}

var _ API = (*Client)(nil)
