package types

import (
	"encoding/json"
	"regexp"
	"sort"
	"time"
)

// PresetID identifies one of the device's named operating modes.
type PresetID string

const (
	PresetTimedCharge    PresetID = "timed-charge"
	PresetTimedExport    PresetID = "timed-export"
	PresetTimedDischarge PresetID = "timed-discharge"
)

// PresetIDs lists every known operating mode.
func PresetIDs() []PresetID {
	return []PresetID{PresetTimedCharge, PresetTimedExport, PresetTimedDischarge}
}

// ValidPresetID reports whether id names a known operating mode.
func ValidPresetID(id PresetID) bool {
	switch id {
	case PresetTimedCharge, PresetTimedExport, PresetTimedDischarge:
		return true
	}
	return false
}

var slotTimeRE = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ValidSlotTime reports whether t is a zero-padded "HH:MM" time.
func ValidSlotTime(t string) bool {
	return slotTimeRE.MatchString(t)
}

// Slot is a single time-boxed window within a preset. Times are zero-padded
// "HH:MM", so lexicographic order is chronological order.
type Slot struct {
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	PercentLimit float64 `json:"percentLimit"`
}

// PresetSettings is the configuration of one operating mode, either as
// authored locally or as reported by the device.
type PresetSettings struct {
	Enabled bool   `json:"enabled"`
	Slots   []Slot `json:"slots"`
}

// Normalized returns a canonical copy with slots sorted by start time.
// Sorting makes equality insensitive to the order the device or the user
// happened to list the slots in.
func (p PresetSettings) Normalized() PresetSettings {
	out := PresetSettings{Enabled: p.Enabled}
	if len(p.Slots) > 0 {
		out.Slots = make([]Slot, len(p.Slots))
		copy(out.Slots, p.Slots)
		sort.SliceStable(out.Slots, func(i, j int) bool {
			return out.Slots[i].StartTime < out.Slots[j].StartTime
		})
	}
	return out
}

// Equal reports whether two settings are semantically equal: their
// normalized JSON representations are identical. It is a pure comparison
// with no I/O so it can be tested in isolation.
func (p PresetSettings) Equal(other PresetSettings) bool {
	a, err := json.Marshal(p.Normalized())
	if err != nil {
		return false
	}
	b, err := json.Marshal(other.Normalized())
	if err != nil {
		return false
	}
	return string(a) == string(b)
}

// NamedPreset is a user-authored preset stored by the dashboard. The
// reconciliation engine reads and compares presets; it never mutates them.
type NamedPreset struct {
	ID        string         `json:"id"`
	PresetID  PresetID       `json:"presetId"`
	Name      string         `json:"name"`
	Settings  PresetSettings `json:"settings"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// FindActivePreset returns the first stored preset for the given mode whose
// settings semantically match what the device currently reports, or nil
// when the device is running a configuration no saved preset represents.
// The nil result is a valid, displayable state, not an error. The relation
// is recomputed on every call and never stored.
func FindActivePreset(local []NamedPreset, device PresetSettings, presetID PresetID) *NamedPreset {
	for i := range local {
		if local[i].PresetID != presetID {
			continue
		}
		if local[i].Settings.Equal(device) {
			return &local[i]
		}
	}
	return nil
}
