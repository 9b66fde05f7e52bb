package givenergy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

type communicationDevice struct {
	SerialNumber string `json:"serial_number"`
	Inverter     *struct {
		Serial string `json:"serial"`
		Info   struct {
			Battery struct {
				NominalCapacityAh float64 `json:"nominal_capacity"`
				NominalVoltage    float64 `json:"nominal_voltage"`
			} `json:"battery"`
		} `json:"info"`
	} `json:"inverter"`
}

type evChargerRecord struct {
	UUID   string `json:"uuid"`
	Alias  string `json:"alias"`
	Status string `json:"status"`
}

// ResolveDeviceIdentity discovers the account's inverter and EV charger.
// The inverter is mandatory, the EV charger is optional. Both traversals
// run concurrently since they hit independent endpoints.
func (c *Client) ResolveDeviceIdentity(ctx context.Context) (types.DeviceIdentity, error) {
	var wg sync.WaitGroup
	var devices []communicationDevice
	var devicesErr error
	var evChargerID string

	wg.Add(2)
	go func() {
		defer wg.Done()
		devices, devicesErr = c.listCommunicationDevices(ctx)
	}()
	go func() {
		defer wg.Done()
		evChargerID = c.findEVCharger(ctx)
	}()
	wg.Wait()

	if devicesErr != nil {
		return types.DeviceIdentity{}, fmt.Errorf("failed to list communication devices: %w", devicesErr)
	}

	var identity types.DeviceIdentity
	serials := make([]string, 0, len(devices))
	for _, d := range devices {
		serials = append(serials, d.SerialNumber)
		if identity.InverterSerial != "" || d.Inverter == nil || d.Inverter.Serial == "" {
			continue
		}
		identity.InverterSerial = d.Inverter.Serial

		// capacity is only reported when both the Ah and voltage ratings
		// are present, a partial pair is meaningless
		ah := d.Inverter.Info.Battery.NominalCapacityAh
		v := d.Inverter.Info.Battery.NominalVoltage
		if ah > 0 && v > 0 {
			kwh := ah * v / 1000
			identity.BatteryCapacityKWh = &kwh
		}
	}
	if identity.InverterSerial == "" {
		return types.DeviceIdentity{}, &DeviceDiscoveryError{
			DevicesChecked: len(devices),
			Serials:        serials,
		}
	}

	identity.EVChargerID = evChargerID
	log.Ctx(ctx).InfoContext(ctx, "resolved device identity",
		slog.String("inverterSerial", identity.InverterSerial),
		slog.String("evChargerID", identity.EVChargerID))
	return identity, nil
}

func (c *Client) listCommunicationDevices(ctx context.Context) ([]communicationDevice, error) {
	pager, err := c.newPager("communication-device")
	if err != nil {
		return nil, err
	}

	var all []communicationDevice
	for {
		var page []communicationDevice
		more, err := pager.NextPage(ctx, &page)
		if err != nil {
			return nil, err
		}
		if !more {
			return all, nil
		}
		all = append(all, page...)
	}
}

// findEVCharger returns the first EV charger's UUID or "" if the account
// has none. Any failure here is soft since most accounts don't have one.
func (c *Client) findEVCharger(ctx context.Context) string {
	pager, err := c.newPager("ev-charger")
	if err != nil {
		return ""
	}

	for {
		var page []evChargerRecord
		more, err := pager.NextPage(ctx, &page)
		if errors.Is(err, ErrNotFound) {
			// accounts without EV charger support 404 here
			return ""
		} else if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to list ev chargers", slog.Any("error", err))
			return ""
		}
		if !more {
			return ""
		}
		if len(page) > 0 {
			return page[0].UUID
		}
	}
}
