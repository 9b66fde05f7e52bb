package givenergy

import (
	"context"
	"errors"
	"log/slog"
	"math"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

type evChargerStatusResult struct {
	Status        string `json:"status"`
	ChargeSession *struct {
		PowerW       float64 `json:"power"`
		KWhDelivered float64 `json:"kwh_delivered"`
	} `json:"charge_session"`
	TodayKWh *float64 `json:"today_kwh"`
}

// ResolveEVStatus fetches the charger's current state. It never returns an
// error: the charger is an optional accessory and its richer meter-data
// endpoint isn't supported on every model, so we fall back from the detail
// endpoint to the basic record and finally to unavailable.
func (c *Client) ResolveEVStatus(ctx context.Context, chargerID string) types.EVChargerState {
	if chargerID == "" {
		return types.UnavailableEVCharger()
	}

	var detail evChargerStatusResult
	err := c.getJSON(ctx, "ev-charger/"+chargerID+"/status", &detail)
	if err == nil {
		return evStateFromDetail(detail)
	}
	if !errors.Is(err, ErrNotFound) {
		log.Ctx(ctx).DebugContext(ctx, "ev charger detail fetch failed", slog.Any("error", err))
	}

	var basic evChargerRecord
	if err := c.getJSON(ctx, "ev-charger/"+chargerID, &basic); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "ev charger status fetch failed", slog.Any("error", err))
		return types.UnavailableEVCharger()
	}
	return types.EVChargerState{Status: types.MapEVChargerStatus(basic.Status)}
}

func evStateFromDetail(detail evChargerStatusResult) types.EVChargerState {
	state := types.EVChargerState{
		Status:        types.MapEVChargerStatus(detail.Status),
		DailyTotalKWh: detail.TodayKWh,
	}
	// A missing session while the vendor says "Charging" has been seen in
	// the wild. Leave power unset in that case: "we don't know" must stay
	// distinct from "0 W".
	if detail.ChargeSession != nil {
		power := math.Abs(detail.ChargeSession.PowerW)
		formatted := types.FormatPower(power)
		session := detail.ChargeSession.KWhDelivered
		state.PowerW = &power
		state.Power = &formatted
		state.SessionKWh = &session
	}
	return state
}
