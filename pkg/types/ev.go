package types

import "strings"

// EVStatusKind is the closed semantic set for charger statuses.
type EVStatusKind string

const (
	EVStatusDisconnected EVStatusKind = "disconnected"
	EVStatusConnected    EVStatusKind = "connected" // plugged in, not charging
	EVStatusCharging     EVStatusKind = "charging"
	EVStatusPaused       EVStatusKind = "paused"
	EVStatusFinishing    EVStatusKind = "finishing"
	EVStatusReserved     EVStatusKind = "reserved"
	EVStatusFaulted      EVStatusKind = "faulted"
	EVStatusUnavailable  EVStatusKind = "unavailable"
	EVStatusUnrecognized EVStatusKind = "unrecognized"
)

// EVChargerStatus is the semantic charger status. Raw carries the suspend
// reason for paused statuses and the verbatim vendor string for
// unrecognized ones, so new vendor states stay visible instead of being
// silently bucketed.
type EVChargerStatus struct {
	Kind EVStatusKind `json:"kind"`
	Raw  string       `json:"raw,omitempty"`
}

func (s EVChargerStatus) String() string {
	if s.Kind == EVStatusUnrecognized {
		return s.Raw
	}
	if s.Raw != "" {
		return string(s.Kind) + " (" + s.Raw + ")"
	}
	return string(s.Kind)
}

// vendor strings that all mean "plugged in but not doing anything"
var evIdleStatuses = map[string]struct{}{
	"preparing":               {},
	"standby":                 {},
	"connected":               {},
	"pluggedin":               {},
	"plugged-in":              {},
	"plugged in":              {},
	"pluggedinnotcharging":    {},
	"plugged-in-not-charging": {},
	"evconnected":             {},
	"ev-connected":            {},
	"idle":                    {},
}

// MapEVChargerStatus maps a vendor status string onto the semantic set.
// The function is total: anything it does not recognize passes through
// verbatim as an unrecognized status.
func MapEVChargerStatus(raw string) EVChargerStatus {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "available":
		return EVChargerStatus{Kind: EVStatusDisconnected}
	case "charging":
		return EVChargerStatus{Kind: EVStatusCharging}
	case "suspendedev", "suspended_ev", "suspended ev":
		return EVChargerStatus{Kind: EVStatusPaused, Raw: "vehicle"}
	case "suspendedevse", "suspended_evse", "suspended evse":
		return EVChargerStatus{Kind: EVStatusPaused, Raw: "charger"}
	case "finishing":
		return EVChargerStatus{Kind: EVStatusFinishing}
	case "reserved":
		return EVChargerStatus{Kind: EVStatusReserved}
	case "faulted":
		return EVChargerStatus{Kind: EVStatusFaulted}
	case "unavailable":
		return EVChargerStatus{Kind: EVStatusUnavailable}
	default:
		if _, ok := evIdleStatuses[s]; ok {
			return EVChargerStatus{Kind: EVStatusConnected}
		}
		return EVChargerStatus{Kind: EVStatusUnrecognized, Raw: raw}
	}
}

// UnavailableEVCharger is the fixed state used when no charger exists or
// nothing about it could be fetched this cycle.
func UnavailableEVCharger() EVChargerState {
	return EVChargerState{Status: EVChargerStatus{Kind: EVStatusUnavailable}}
}
