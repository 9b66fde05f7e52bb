package types

import "math"

const (
	// KWThresholdWatts is the magnitude at which a power quantity is
	// reported in kW instead of W.
	KWThresholdWatts = 1000.0

	// GridIdleDeadbandWatts is the band around zero within which grid flow
	// is classified as idle rather than importing/exporting.
	GridIdleDeadbandWatts = 50.0

	// BatteryIdleThresholdWatts is the magnitude below which the device's
	// reported battery power counts as a claim of idle.
	BatteryIdleThresholdWatts = 20.0

	// BatteryInferenceMinWatts is the minimum inferred magnitude required
	// before an inferred battery flow overrides a claimed-idle reading.
	BatteryInferenceMinWatts = 20.0
)

// Power is a display-ready power quantity. For flow-oriented quantities the
// value is a magnitude; direction is carried in a separate enum, never as a
// negative display value.
type Power struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"` // "W" or "kW"
}

// FormatPower scales watts for display: magnitudes of 1 kW and above are
// reported in kW rounded to 2 decimal places, anything smaller in whole
// watts. The decision is made independently per quantity.
func FormatPower(watts float64) Power {
	if math.Abs(watts) >= KWThresholdWatts {
		return Power{
			Value: math.Round(watts/1000*100) / 100,
			Unit:  "kW",
		}
	}
	return Power{
		Value: math.Round(watts),
		Unit:  "W",
	}
}

// Watts converts the display quantity back to watts.
func (p Power) Watts() float64 {
	if p.Unit == "kW" {
		return p.Value * 1000
	}
	return p.Value
}

// GridFlow is the direction of grid power flow.
type GridFlow string

const (
	GridFlowImporting GridFlow = "importing"
	GridFlowExporting GridFlow = "exporting"
	GridFlowIdle      GridFlow = "idle"
)

// ClassifyGridFlow maps a signed grid reading (positive = export, negative
// = import) onto a direction, treating anything within the idle deadband,
// inclusive, as neither.
func ClassifyGridFlow(watts float64) GridFlow {
	switch {
	case watts > GridIdleDeadbandWatts:
		return GridFlowExporting
	case watts < -GridIdleDeadbandWatts:
		return GridFlowImporting
	default:
		return GridFlowIdle
	}
}

// BatteryFlow is the direction of battery power flow.
type BatteryFlow string

const (
	BatteryFlowCharging    BatteryFlow = "charging"
	BatteryFlowDischarging BatteryFlow = "discharging"
	BatteryFlowIdle        BatteryFlow = "idle"
)

// ClassifyBatteryFlow maps a signed battery reading (negative = charging,
// positive = discharging) onto a direction.
func ClassifyBatteryFlow(watts float64) BatteryFlow {
	switch {
	case watts <= -BatteryIdleThresholdWatts:
		return BatteryFlowCharging
	case watts >= BatteryIdleThresholdWatts:
		return BatteryFlowDischarging
	default:
		return BatteryFlowIdle
	}
}

// InferredBatteryPower derives battery flow from the energy-balance
// identity: whatever the home consumes beyond solar and grid import has to
// come out of the battery. gridW is positive when exporting.
func InferredBatteryPower(consumptionW, solarW, gridW float64) float64 {
	return consumptionW - solarW + gridW
}

// EffectiveBatteryPower decides which battery value to trust. The device
// under-reports near-zero battery activity far more often than it misreads
// the other three channels, so when it claims idle but the energy balance
// implies a significant flow, the derived number wins. In every other case
// the reported value stands.
func EffectiveBatteryPower(reportedW, inferredW float64) float64 {
	if math.Abs(reportedW) < BatteryIdleThresholdWatts && math.Abs(inferredW) >= BatteryInferenceMinWatts {
		return inferredW
	}
	return reportedW
}
