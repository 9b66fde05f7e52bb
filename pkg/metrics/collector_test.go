package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

func gather(t *testing.T, c *Collector) map[string]float64 {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			out[fam.GetName()] = m.GetGauge().GetValue()
		}
	}
	return out
}

// seededMonitor returns a monitor that has completed one poll against api.
func seededMonitor(t *testing.T, api givenergy.API) *monitor.Monitor {
	t.Helper()
	m := monitor.New(api, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	require.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, time.Second, 10*time.Millisecond)
	return m
}

func TestCollector(t *testing.T) {
	t.Run("NoSnapshotYet", func(t *testing.T) {
		m := monitor.New(&givenergy.MockAPI{}, time.Minute)
		got := gather(t, NewCollector(m))
		assert.Equal(t, float64(0), got["helioscontrol_snapshot_available"])
		assert.NotContains(t, got, "helioscontrol_home_consumption_watts")
	})

	t.Run("SnapshotExported", func(t *testing.T) {
		capacity := 9.5
		evPower := 7200.0
		api := &givenergy.MockAPI{
			Identity: types.DeviceIdentity{InverterSerial: "INV1"},
			Snapshot: types.TelemetrySnapshot{
				Timestamp:       time.Now(),
				HomeConsumption: types.FormatPower(950),
				SolarGeneration: types.FormatPower(3200),
				Battery: types.BatteryState{
					Percent:     80,
					PowerW:      -1200,
					Flow:        types.BatteryFlowCharging,
					CapacityKWh: &capacity,
				},
				Grid: types.GridState{
					PowerWatts: 1500,
					Flow:       types.GridFlowImporting,
				},
				EVCharger: types.EVChargerState{
					Status: types.EVChargerStatus{Kind: types.EVStatusCharging},
					PowerW: &evPower,
				},
			},
		}

		got := gather(t, NewCollector(seededMonitor(t, api)))
		assert.Equal(t, float64(1), got["helioscontrol_snapshot_available"])
		assert.Equal(t, float64(950), got["helioscontrol_home_consumption_watts"])
		assert.Equal(t, float64(3200), got["helioscontrol_solar_generation_watts"])
		assert.Equal(t, float64(-1500), got["helioscontrol_grid_power_watts"])
		assert.Equal(t, float64(-1200), got["helioscontrol_battery_power_watts"])
		assert.Equal(t, float64(80), got["helioscontrol_battery_soc_percent"])
		assert.Equal(t, 9.5, got["helioscontrol_battery_capacity_kwh"])
		assert.Equal(t, float64(7200), got["helioscontrol_ev_charger_power_watts"])
		assert.GreaterOrEqual(t, got["helioscontrol_snapshot_age_seconds"], float64(0))
	})
}
