package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

type settingsWithVersion struct {
	types.Settings
	version int
}

// getSettingsWithMigration loads settings, applying pending migrations and
// decrypting stored credentials.
func (s *Server) getSettingsWithMigration(ctx context.Context) (settingsWithVersion, types.Credentials, error) {
	settings, version, err := s.storage.GetSettings(ctx)
	if err != nil {
		return settingsWithVersion{}, types.Credentials{}, err
	}
	sv := settingsWithVersion{
		Settings: settings,
		version:  version,
	}

	// Check for migration
	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			sv.Settings = newSettings
			sv.version = types.CurrentSettingsVersion
			if err := s.storage.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
				// Return migrated settings even if save failed, so current request works with new defaults
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
			}
		}
	}

	creds := sv.Settings.Credentials
	if len(sv.Settings.EncryptedCredentials) > 0 {
		creds, err = s.decryptCredentials(ctx, sv.Settings.EncryptedCredentials)
		if err != nil {
			return settingsWithVersion{}, types.Credentials{}, err
		}
	}

	return sv, creds, nil
}

// SettingsRes is the response type for GetSettings. Credentials are
// never echoed back, only whether one is set.
type SettingsRes struct {
	PollIntervalSeconds int  `json:"pollIntervalSeconds"`
	Pause               bool `json:"pause"`
	HasAPIKey           bool `json:"hasApiKey"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, creds, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	resp := SettingsRes{
		PollIntervalSeconds: settings.PollIntervalSeconds,
		Pause:               settings.Pause,
		HasAPIKey:           creds.GivEnergy != nil && creds.GivEnergy.APIKey != "",
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, resp)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		PollIntervalSeconds int     `json:"pollIntervalSeconds"`
		Pause               bool    `json:"pause"`
		APIKey              *string `json:"apiKey,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.PollIntervalSeconds < 5 {
		writeJSONError(w, "poll interval must be at least 5 seconds", http.StatusBadRequest)
		return
	}

	existing, creds, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	newSettings := existing.Settings
	newSettings.PollIntervalSeconds = req.PollIntervalSeconds
	newSettings.Pause = req.Pause

	keyChanged := false
	if req.APIKey != nil {
		keyChanged = creds.GivEnergy == nil || creds.GivEnergy.APIKey != *req.APIKey
		creds.GivEnergy = &types.GivEnergyCredentials{APIKey: *req.APIKey}
	}

	if s.encryptionKey != "" {
		encrypted, err := s.encryptCredentials(ctx, creds)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to encrypt credentials", slog.Any("error", err))
			writeJSONError(w, "failed to encrypt credentials", http.StatusInternalServerError)
			return
		}
		newSettings.EncryptedCredentials = encrypted
		newSettings.Credentials = types.Credentials{}
	} else {
		newSettings.Credentials = creds
		newSettings.EncryptedCredentials = nil
	}

	if err := s.storage.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	// apply to the running monitor
	if keyChanged {
		if creds.GivEnergy.APIKey == "" {
			s.monitor.SetAPI(nil)
		} else {
			s.monitor.SetAPI(s.provider.Client(creds.GivEnergy.APIKey))
		}
	}
	s.monitor.SetInterval(time.Duration(newSettings.PollIntervalSeconds) * time.Second)
	s.monitor.SetPaused(newSettings.Pause)

	log.Ctx(ctx).InfoContext(ctx, "settings updated", slog.Bool("keyChanged", keyChanged))
	w.WriteHeader(http.StatusOK)
}
