package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidSlotTime(t *testing.T) {
	assert.True(t, ValidSlotTime("00:00"))
	assert.True(t, ValidSlotTime("23:59"))
	assert.True(t, ValidSlotTime("09:30"))
	assert.False(t, ValidSlotTime("24:00"))
	assert.False(t, ValidSlotTime("12:60"))
	assert.False(t, ValidSlotTime("9:30"))
	assert.False(t, ValidSlotTime(""))
	assert.False(t, ValidSlotTime("12:30:00"))
}

func TestValidPresetID(t *testing.T) {
	for _, id := range PresetIDs() {
		assert.True(t, ValidPresetID(id))
	}
	assert.False(t, ValidPresetID("timed-import"))
	assert.False(t, ValidPresetID(""))
}

func TestPresetSettingsEqual(t *testing.T) {
	slotA := Slot{StartTime: "01:00", EndTime: "05:00", PercentLimit: 100}
	slotB := Slot{StartTime: "13:00", EndTime: "16:00", PercentLimit: 80}

	t.Run("slot order does not matter", func(t *testing.T) {
		local := PresetSettings{Enabled: true, Slots: []Slot{slotA, slotB}}
		device := PresetSettings{Enabled: true, Slots: []Slot{slotB, slotA}}
		assert.True(t, local.Equal(device))
	})

	t.Run("enabled must match", func(t *testing.T) {
		local := PresetSettings{Enabled: true, Slots: []Slot{slotA}}
		device := PresetSettings{Enabled: false, Slots: []Slot{slotA}}
		assert.False(t, local.Equal(device))
	})

	t.Run("differing slots differ", func(t *testing.T) {
		local := PresetSettings{Enabled: true, Slots: []Slot{slotA}}
		device := PresetSettings{Enabled: true, Slots: []Slot{slotB}}
		assert.False(t, local.Equal(device))
	})

	t.Run("empty and nil slots are equal", func(t *testing.T) {
		local := PresetSettings{Enabled: true, Slots: []Slot{}}
		device := PresetSettings{Enabled: true}
		assert.True(t, local.Equal(device))
	})
}

func TestFindActivePreset(t *testing.T) {
	slotA := Slot{StartTime: "01:00", EndTime: "05:00", PercentLimit: 100}
	slotB := Slot{StartTime: "13:00", EndTime: "16:00", PercentLimit: 80}
	presets := []NamedPreset{
		{
			ID:       "p1",
			PresetID: PresetTimedCharge,
			Name:     "overnight",
			Settings: PresetSettings{Enabled: true, Slots: []Slot{slotA, slotB}},
		},
		{
			ID:       "p2",
			PresetID: PresetTimedCharge,
			Name:     "afternoon",
			Settings: PresetSettings{Enabled: true, Slots: []Slot{slotB}},
		},
		{
			ID:       "p3",
			PresetID: PresetTimedExport,
			Name:     "export",
			Settings: PresetSettings{Enabled: true, Slots: []Slot{slotA}},
		},
	}

	t.Run("matches regardless of slot order", func(t *testing.T) {
		device := PresetSettings{Enabled: true, Slots: []Slot{slotB, slotA}}
		got := FindActivePreset(presets, device, PresetTimedCharge)
		require.NotNil(t, got)
		assert.Equal(t, "p1", got.ID)
	})

	t.Run("only considers presets for the given mode", func(t *testing.T) {
		device := PresetSettings{Enabled: true, Slots: []Slot{slotA}}
		got := FindActivePreset(presets, device, PresetTimedExport)
		require.NotNil(t, got)
		assert.Equal(t, "p3", got.ID)
	})

	t.Run("nil when nothing matches", func(t *testing.T) {
		device := PresetSettings{Enabled: false}
		assert.Nil(t, FindActivePreset(presets, device, PresetTimedCharge))
	})
}
