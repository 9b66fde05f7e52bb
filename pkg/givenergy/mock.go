package givenergy

import (
	"context"

	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// MockAPI implements API for tests. Set the fields for canned responses or
// the func overrides for per-call behavior.
type MockAPI struct {
	Identity    types.DeviceIdentity
	IdentityErr error
	Snapshot    types.TelemetrySnapshot
	SnapshotErr error
	EVState     types.EVChargerState
	Presets     map[types.PresetID]types.PresetSettings
	PresetErr   error

	ResolveDeviceIdentityFunc func(ctx context.Context) (types.DeviceIdentity, error)
	FetchSnapshotFunc         func(ctx context.Context, identity types.DeviceIdentity) (types.TelemetrySnapshot, error)
	GetPresetSettingsFunc     func(ctx context.Context, inverterSerial string, presetID types.PresetID) (types.PresetSettings, error)
	WritePresetSettingsFunc   func(ctx context.Context, inverterSerial string, presetID types.PresetID, settings types.PresetSettings) error

	// Written records every WritePresetSettings call.
	Written []types.PresetSettings
}

var _ API = (*MockAPI)(nil)

func (m *MockAPI) ResolveDeviceIdentity(ctx context.Context) (types.DeviceIdentity, error) {
	if m.ResolveDeviceIdentityFunc != nil {
		return m.ResolveDeviceIdentityFunc(ctx)
	}
	return m.Identity, m.IdentityErr
}

func (m *MockAPI) FetchSnapshot(ctx context.Context, identity types.DeviceIdentity) (types.TelemetrySnapshot, error) {
	if m.FetchSnapshotFunc != nil {
		return m.FetchSnapshotFunc(ctx, identity)
	}
	return m.Snapshot, m.SnapshotErr
}

func (m *MockAPI) ResolveEVStatus(ctx context.Context, chargerID string) types.EVChargerState {
	return m.EVState
}

func (m *MockAPI) GetPresetSettings(ctx context.Context, inverterSerial string, presetID types.PresetID) (types.PresetSettings, error) {
	if m.GetPresetSettingsFunc != nil {
		return m.GetPresetSettingsFunc(ctx, inverterSerial, presetID)
	}
	if m.PresetErr != nil {
		return types.PresetSettings{}, m.PresetErr
	}
	return m.Presets[presetID], nil
}

func (m *MockAPI) WritePresetSettings(ctx context.Context, inverterSerial string, presetID types.PresetID, settings types.PresetSettings) error {
	if m.WritePresetSettingsFunc != nil {
		return m.WritePresetSettingsFunc(ctx, inverterSerial, presetID, settings)
	}
	if m.PresetErr != nil {
		return m.PresetErr
	}
	if m.Presets == nil {
		m.Presets = make(map[types.PresetID]types.PresetSettings)
	}
	m.Presets[presetID] = settings
	m.Written = append(m.Written, settings)
	return nil
}
