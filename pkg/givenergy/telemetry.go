package givenergy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// systemData is the inverter's latest system data point. Grid power is
// positive when exporting and battery power is negative when charging.
type systemData struct {
	Time  string `json:"time"`
	Solar struct {
		Power float64 `json:"power"`
	} `json:"solar"`
	Grid struct {
		Power float64 `json:"power"`
	} `json:"grid"`
	Battery struct {
		Percent float64 `json:"percent"`
		Power   float64 `json:"power"`
	} `json:"battery"`
	Consumption float64 `json:"consumption"`
}

// meterData is the inverter's cumulative daily meter readings.
type meterData struct {
	Today struct {
		Consumption float64 `json:"consumption"`
		Solar       float64 `json:"solar"`
		Grid        struct {
			Import float64 `json:"import"`
			Export float64 `json:"export"`
		} `json:"grid"`
		Battery struct {
			Charge    float64 `json:"charge"`
			Discharge float64 `json:"discharge"`
		} `json:"battery"`
	} `json:"today"`
}

// FetchSnapshot fetches the latest telemetry for the given identity. The
// system data point is mandatory, daily meter totals and EV charger state
// are best effort and missing pieces degrade rather than fail the whole
// snapshot.
func (c *Client) FetchSnapshot(ctx context.Context, identity types.DeviceIdentity) (types.TelemetrySnapshot, error) {
	var wg sync.WaitGroup
	var system systemData
	var systemErr error
	var meter meterData
	var meterErr error
	var ev types.EVChargerState

	wg.Add(3)
	go func() {
		defer wg.Done()
		systemErr = c.getJSON(ctx, "inverter/"+identity.InverterSerial+"/system-data/latest", &system)
	}()
	go func() {
		defer wg.Done()
		meterErr = c.getJSON(ctx, "inverter/"+identity.InverterSerial+"/meter-data/latest", &meter)
	}()
	go func() {
		defer wg.Done()
		ev = c.ResolveEVStatus(ctx, identity.EVChargerID)
	}()
	wg.Wait()

	if systemErr != nil {
		return types.TelemetrySnapshot{}, fmt.Errorf("failed to fetch system data: %w", systemErr)
	}
	if meterErr != nil {
		log.Ctx(ctx).DebugContext(ctx, "failed to fetch meter data", slog.Any("error", meterErr))
	}

	return assembleSnapshot(identity, system, meter, meterErr == nil, ev), nil
}

func assembleSnapshot(identity types.DeviceIdentity, system systemData, meter meterData, haveMeter bool, ev types.EVChargerState) types.TelemetrySnapshot {
	// inverters report tiny negative solar readings at night
	solarW := system.Solar.Power
	if solarW < 0 {
		solarW = 0
	}

	inferredW := types.InferredBatteryPower(system.Consumption, solarW, system.Grid.Power)
	effectiveW := types.EffectiveBatteryPower(system.Battery.Power, inferredW)

	battery := types.BatteryState{
		Percent:        system.Battery.Percent,
		PowerW:         effectiveW,
		ReportedPowerW: system.Battery.Power,
		InferredPowerW: inferredW,
		Flow:           types.ClassifyBatteryFlow(effectiveW),
		Power:          types.FormatPower(math.Abs(effectiveW)),
	}
	if identity.BatteryCapacityKWh != nil {
		capacity := *identity.BatteryCapacityKWh
		energy := capacity * system.Battery.Percent / 100
		battery.CapacityKWh = &capacity
		battery.EnergyKWh = &energy
	}

	snap := types.TelemetrySnapshot{
		Timestamp:       parseSnapshotTime(system.Time),
		HomeConsumption: types.FormatPower(system.Consumption),
		SolarGeneration: types.FormatPower(solarW),
		Battery:         battery,
		Grid: types.GridState{
			PowerWatts: math.Abs(system.Grid.Power),
			Power:      types.FormatPower(math.Abs(system.Grid.Power)),
			Flow:       types.ClassifyGridFlow(system.Grid.Power),
		},
		EVCharger: ev,
	}
	if haveMeter {
		snap.DailyTotals = &types.EnergyTotals{
			ConsumptionKWh:      meter.Today.Consumption,
			SolarKWh:            meter.Today.Solar,
			GridImportKWh:       meter.Today.Grid.Import,
			GridExportKWh:       meter.Today.Grid.Export,
			BatteryChargeKWh:    meter.Today.Battery.Charge,
			BatteryDischargeKWh: meter.Today.Battery.Discharge,
		}
	}
	return snap
}

// parseSnapshotTime parses the vendor's data point timestamp, falling back
// to now so ordering guards still work when the field is missing.
func parseSnapshotTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now()
}
