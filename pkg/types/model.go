package types

import "time"

// DeviceIdentity identifies the physical devices behind an account. It is
// produced once per API key and is immutable afterward; every per-device
// call is keyed by the inverter serial.
type DeviceIdentity struct {
	InverterSerial     string   `json:"inverterSerial"`
	EVChargerID        string   `json:"evChargerID,omitempty"`
	BatteryCapacityKWh *float64 `json:"batteryCapacityKWh,omitempty"`
}

// TelemetrySnapshot is one coherent view of the installation. It is
// produced fresh on every poll and replaced wholesale by the next one; all
// instantaneous fields come from the same fetch cycle.
type TelemetrySnapshot struct {
	Timestamp       time.Time      `json:"timestamp"`
	HomeConsumption Power          `json:"homeConsumption"`
	SolarGeneration Power          `json:"solarGeneration"`
	Battery         BatteryState   `json:"battery"`
	Grid            GridState      `json:"grid"`
	EVCharger       EVChargerState `json:"evCharger"`
	DailyTotals     *EnergyTotals  `json:"dailyTotals,omitempty"`
}

// BatteryState is the battery portion of a snapshot. The three power
// fields preserve the inference decision for auditing: ReportedPowerW is
// what the device claimed, InferredPowerW what the energy balance implies,
// and PowerW the effective value the rest of the system trusts.
type BatteryState struct {
	Percent        float64     `json:"percent"`
	PowerW         float64     `json:"powerW"` // effective, negative = charging
	ReportedPowerW float64     `json:"reportedPowerW"`
	InferredPowerW float64     `json:"inferredPowerW"`
	Flow           BatteryFlow `json:"flow"`
	Power          Power       `json:"power"` // display magnitude of PowerW
	EnergyKWh      *float64    `json:"energyKWh,omitempty"`
	CapacityKWh    *float64    `json:"capacityKWh,omitempty"`
}

// GridState is the grid portion of a snapshot. PowerWatts is a magnitude;
// direction lives only in Flow.
type GridState struct {
	PowerWatts float64  `json:"powerWatts"`
	Power      Power    `json:"power"`
	Flow       GridFlow `json:"flow"`
}

// EVChargerState is the charger portion of a snapshot. PowerW is nil when
// live power could not be determined, which is distinct from 0 W.
type EVChargerState struct {
	Status        EVChargerStatus `json:"status"`
	PowerW        *float64        `json:"powerW,omitempty"`
	Power         *Power          `json:"power,omitempty"`
	DailyTotalKWh *float64        `json:"dailyTotalKWh,omitempty"`
	SessionKWh    *float64        `json:"sessionKWh,omitempty"`
}

// EnergyTotals holds the cumulative daily figures from the meter-data
// endpoint. They are optional on a snapshot; a failed totals fetch omits
// them without failing the poll.
type EnergyTotals struct {
	ConsumptionKWh      float64 `json:"consumptionKWh"`
	SolarKWh            float64 `json:"solarKWh"`
	GridImportKWh       float64 `json:"gridImportKWh"`
	GridExportKWh       float64 `json:"gridExportKWh"`
	BatteryChargeKWh    float64 `json:"batteryChargeKWh"`
	BatteryDischargeKWh float64 `json:"batteryDischargeKWh"`
}
