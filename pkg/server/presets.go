package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/storage"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// PresetsRes is the response type for listing presets. Active marks the
// stored preset (per mode) whose settings currently match the device.
type PresetsRes struct {
	Presets []types.NamedPreset                       `json:"presets"`
	Active  map[types.PresetID]string                 `json:"active"`
	Device  map[types.PresetID]*types.PresetSettings `json:"device"`
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	presets, err := s.storage.ListPresets(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to list presets", slog.Any("error", err))
		writeJSONError(w, "failed to list presets", http.StatusInternalServerError)
		return
	}

	res := PresetsRes{
		Presets: presets,
		Active:  map[types.PresetID]string{},
		Device:  map[types.PresetID]*types.PresetSettings{},
	}

	// Compare against the device's current settings so the UI can show
	// which preset (if any) is in effect. This is best effort, a vendor
	// outage still lets the user manage their saved presets.
	api, identity, err := s.vendor(ctx)
	if err == nil {
		for _, presetID := range types.PresetIDs() {
			device, err := api.GetPresetSettings(ctx, identity.InverterSerial, presetID)
			if err != nil {
				log.Ctx(ctx).WarnContext(ctx, "failed to read device preset",
					slog.String("presetID", string(presetID)), slog.Any("error", err))
				continue
			}
			deviceCopy := device
			res.Device[presetID] = &deviceCopy
			if active := types.FindActivePreset(presets, device, presetID); active != nil {
				res.Active[presetID] = active.ID
			}
		}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, res)
}

func (s *Server) handleCreatePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req struct {
		ID       string               `json:"id"`
		PresetID types.PresetID       `json:"presetId"`
		Name     string               `json:"name"`
		Settings types.PresetSettings `json:"settings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Name == "" {
		writeJSONError(w, "name is required", http.StatusBadRequest)
		return
	}
	if !types.ValidPresetID(req.PresetID) {
		writeJSONError(w, "unknown preset mode", http.StatusBadRequest)
		return
	}
	for _, slot := range req.Settings.Slots {
		if !types.ValidSlotTime(slot.StartTime) || !types.ValidSlotTime(slot.EndTime) {
			writeJSONError(w, "slot times must be HH:MM", http.StatusBadRequest)
			return
		}
		if slot.PercentLimit < 0 || slot.PercentLimit > 100 {
			writeJSONError(w, "slot percent limit must be between 0 and 100", http.StatusBadRequest)
			return
		}
	}

	now := time.Now().UTC()
	preset := types.NamedPreset{
		ID:        req.ID,
		PresetID:  req.PresetID,
		Name:      req.Name,
		Settings:  req.Settings,
		UpdatedAt: now,
	}
	if preset.ID == "" {
		preset.ID = newPresetID()
		preset.CreatedAt = now
	} else {
		existing, err := s.storage.GetPreset(ctx, preset.ID)
		if errors.Is(err, storage.ErrPresetNotFound) {
			writeJSONError(w, "preset not found", http.StatusNotFound)
			return
		} else if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to get preset", slog.Any("error", err))
			writeJSONError(w, "failed to get preset", http.StatusInternalServerError)
			return
		}
		preset.CreatedAt = existing.CreatedAt
	}

	if err := s.storage.UpsertPreset(ctx, preset); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save preset", slog.Any("error", err))
		writeJSONError(w, "failed to save preset", http.StatusInternalServerError)
		return
	}
	writeJSON(w, preset)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	err := s.storage.DeletePreset(ctx, id)
	if errors.Is(err, storage.ErrPresetNotFound) {
		writeJSONError(w, "preset not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to delete preset", slog.Any("error", err))
		writeJSONError(w, "failed to delete preset", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// ActivateRes is the response type for activating a preset. Adopted is
// whether the device's settings matched after the write.
type ActivateRes struct {
	Adopted        bool                 `json:"adopted"`
	DeviceSettings types.PresetSettings `json:"deviceSettings"`
}

// handleActivatePreset writes the preset's settings to the device and then
// reads them back. Writes are one-way, so the read-back is the only
// confirmation that the device adopted what we sent.
func (s *Server) handleActivatePreset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	preset, err := s.storage.GetPreset(ctx, id)
	if errors.Is(err, storage.ErrPresetNotFound) {
		writeJSONError(w, "preset not found", http.StatusNotFound)
		return
	} else if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get preset", slog.Any("error", err))
		writeJSONError(w, "failed to get preset", http.StatusInternalServerError)
		return
	}

	api, identity, err := s.vendor(ctx)
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	if err := api.WritePresetSettings(ctx, identity.InverterSerial, preset.PresetID, preset.Settings); err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	device, err := api.GetPresetSettings(ctx, identity.InverterSerial, preset.PresetID)
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}

	adopted := preset.Settings.Equal(device)
	if !adopted {
		log.Ctx(ctx).WarnContext(ctx, "device did not adopt preset settings",
			slog.String("presetID", string(preset.PresetID)), slog.String("id", preset.ID))
	}
	writeJSON(w, ActivateRes{Adopted: adopted, DeviceSettings: device})
}

func newPresetID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
