package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapEVChargerStatus(t *testing.T) {
	tests := []struct {
		raw  string
		kind EVStatusKind
		out  string
	}{
		{"Available", EVStatusDisconnected, "disconnected"},
		{"available", EVStatusDisconnected, "disconnected"},
		{"Preparing", EVStatusConnected, "connected"},
		{"Plugged In", EVStatusConnected, "connected"},
		{"Charging", EVStatusCharging, "charging"},
		{"SuspendedEV", EVStatusPaused, "paused (vehicle)"},
		{"SuspendedEVSE", EVStatusPaused, "paused (charger)"},
		{"Finishing", EVStatusFinishing, "finishing"},
		{"Reserved", EVStatusReserved, "reserved"},
		{"Faulted", EVStatusFaulted, "faulted"},
		{"Unavailable", EVStatusUnavailable, "unavailable"},
		{"SomeNewVendorStatus", EVStatusUnrecognized, "SomeNewVendorStatus"},
		{"", EVStatusUnrecognized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := MapEVChargerStatus(tt.raw)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.out, got.String())
		})
	}
}

func TestUnavailableEVCharger(t *testing.T) {
	got := UnavailableEVCharger()
	assert.Equal(t, EVStatusUnavailable, got.Status.Kind)
	assert.Nil(t, got.PowerW)
	assert.Nil(t, got.Power)
}
