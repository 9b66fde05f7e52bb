package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// Collector implements prometheus.Collector over the monitor's latest
// telemetry snapshot. It never triggers a vendor request, scrapes only see
// what polling already fetched.
type Collector struct {
	monitor *monitor.Monitor

	homeConsumption *prometheus.Desc
	solarGeneration *prometheus.Desc
	gridPower       *prometheus.Desc
	batteryPower    *prometheus.Desc
	batterySOC      *prometheus.Desc
	batteryCapacity *prometheus.Desc
	evChargerPower  *prometheus.Desc
	snapshotAge     *prometheus.Desc
	snapshotPresent *prometheus.Desc
}

// NewCollector creates a collector reading from the given monitor.
func NewCollector(m *monitor.Monitor) *Collector {
	return &Collector{
		monitor: m,
		homeConsumption: prometheus.NewDesc(
			"helioscontrol_home_consumption_watts",
			"Current home consumption in watts",
			nil, nil,
		),
		solarGeneration: prometheus.NewDesc(
			"helioscontrol_solar_generation_watts",
			"Current solar generation in watts",
			nil, nil,
		),
		gridPower: prometheus.NewDesc(
			"helioscontrol_grid_power_watts",
			"Current grid power in watts (positive=exporting, negative=importing, 0 inside the idle deadband)",
			nil, nil,
		),
		batteryPower: prometheus.NewDesc(
			"helioscontrol_battery_power_watts",
			"Effective battery power in watts (positive=discharging, negative=charging)",
			nil, nil,
		),
		batterySOC: prometheus.NewDesc(
			"helioscontrol_battery_soc_percent",
			"Battery state of charge in percent",
			nil, nil,
		),
		batteryCapacity: prometheus.NewDesc(
			"helioscontrol_battery_capacity_kwh",
			"Battery usable capacity in kilowatt-hours",
			nil, nil,
		),
		evChargerPower: prometheus.NewDesc(
			"helioscontrol_ev_charger_power_watts",
			"Current EV charger power in watts",
			[]string{"status"}, nil,
		),
		snapshotAge: prometheus.NewDesc(
			"helioscontrol_snapshot_age_seconds",
			"Age of the latest telemetry snapshot in seconds",
			nil, nil,
		),
		snapshotPresent: prometheus.NewDesc(
			"helioscontrol_snapshot_available",
			"Whether a telemetry snapshot is available (1=yes, 0=no)",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.homeConsumption
	ch <- c.solarGeneration
	ch <- c.gridPower
	ch <- c.batteryPower
	ch <- c.batterySOC
	ch <- c.batteryCapacity
	ch <- c.evChargerPower
	ch <- c.snapshotAge
	ch <- c.snapshotPresent
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap, ok := c.monitor.Latest()
	if !ok {
		ch <- prometheus.MustNewConstMetric(c.snapshotPresent, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.snapshotPresent, prometheus.GaugeValue, 1)
	ch <- prometheus.MustNewConstMetric(c.snapshotAge, prometheus.GaugeValue, time.Since(snap.Timestamp).Seconds())

	ch <- prometheus.MustNewConstMetric(c.homeConsumption, prometheus.GaugeValue, snap.HomeConsumption.Watts())
	ch <- prometheus.MustNewConstMetric(c.solarGeneration, prometheus.GaugeValue, snap.SolarGeneration.Watts())
	ch <- prometheus.MustNewConstMetric(c.gridPower, prometheus.GaugeValue, signedGridWatts(snap.Grid))
	ch <- prometheus.MustNewConstMetric(c.batteryPower, prometheus.GaugeValue, snap.Battery.PowerW)
	ch <- prometheus.MustNewConstMetric(c.batterySOC, prometheus.GaugeValue, snap.Battery.Percent)
	if snap.Battery.CapacityKWh != nil {
		ch <- prometheus.MustNewConstMetric(c.batteryCapacity, prometheus.GaugeValue, *snap.Battery.CapacityKWh)
	}
	if snap.EVCharger.PowerW != nil {
		ch <- prometheus.MustNewConstMetric(c.evChargerPower, prometheus.GaugeValue,
			*snap.EVCharger.PowerW, string(snap.EVCharger.Status.Kind))
	}
}

func signedGridWatts(grid types.GridState) float64 {
	switch grid.Flow {
	case types.GridFlowImporting:
		return -grid.PowerWatts
	case types.GridFlowExporting:
		return grid.PowerWatts
	default:
		return 0
	}
}

var _ prometheus.Collector = (*Collector)(nil)
