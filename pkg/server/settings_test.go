package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

func TestHandleGetSettings(t *testing.T) {
	t.Run("DefaultsMigrated", func(t *testing.T) {
		srv, db := testServer(nil)
		req := httptest.NewRequest("GET", "/api/settings", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var res SettingsRes
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 10, res.PollIntervalSeconds)
		assert.False(t, res.HasAPIKey)

		// the migrated settings were persisted
		saved, version, err := db.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		assert.Equal(t, 10, saved.PollIntervalSeconds)
	})

	t.Run("KeyNeverEchoed", func(t *testing.T) {
		srv, db := testServer(nil)
		require.NoError(t, db.SetSettings(context.Background(), types.Settings{
			PollIntervalSeconds: 10,
			Credentials: types.Credentials{
				GivEnergy: &types.GivEnergyCredentials{APIKey: "secret-key"},
			},
		}, types.CurrentSettingsVersion))

		req := httptest.NewRequest("GET", "/api/settings", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "secret-key")
		var res SettingsRes
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.True(t, res.HasAPIKey)
	})
}

func TestHandleUpdateSettings(t *testing.T) {
	t.Run("RejectsShortInterval", func(t *testing.T) {
		srv, _ := testServer(nil)
		req := httptest.NewRequest("POST", "/api/settings",
			strings.NewReader(`{"pollIntervalSeconds": 2}`))
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("NewKeySwapsMonitor", func(t *testing.T) {
		srv, db := testServer(nil)
		srv.provider = givenergy.NewProvider("https://example.invalid")

		req := httptest.NewRequest("POST", "/api/settings",
			strings.NewReader(`{"pollIntervalSeconds": 15, "apiKey": "new-key"}`))
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		// the monitor now has a client
		assert.NotNil(t, srv.monitor.API())

		saved, _, err := db.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 15, saved.PollIntervalSeconds)
		assert.Equal(t, "new-key", saved.APIKey())
	})

	t.Run("OmittedKeyKeepsExisting", func(t *testing.T) {
		srv, db := testServer(nil)
		srv.provider = givenergy.NewProvider("https://example.invalid")
		require.NoError(t, db.SetSettings(context.Background(), types.Settings{
			PollIntervalSeconds: 10,
			Credentials: types.Credentials{
				GivEnergy: &types.GivEnergyCredentials{APIKey: "existing"},
			},
		}, types.CurrentSettingsVersion))

		req := httptest.NewRequest("POST", "/api/settings",
			strings.NewReader(`{"pollIntervalSeconds": 30, "pause": true}`))
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		saved, _, err := db.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "existing", saved.APIKey())
		assert.True(t, saved.Pause)
	})

	t.Run("EncryptedAtRestWithKey", func(t *testing.T) {
		srv, db := testServer(nil)
		srv.provider = givenergy.NewProvider("https://example.invalid")
		srv.encryptionKey = "0123456789abcdef0123456789abcdef"

		req := httptest.NewRequest("POST", "/api/settings",
			strings.NewReader(`{"pollIntervalSeconds": 10, "apiKey": "super-secret"}`))
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		saved, _, err := db.GetSettings(context.Background())
		require.NoError(t, err)
		assert.Nil(t, saved.Credentials.GivEnergy)
		require.NotEmpty(t, saved.EncryptedCredentials)
		assert.NotContains(t, string(saved.EncryptedCredentials), "super-secret")

		// the server can round-trip them
		creds, err := srv.decryptCredentials(context.Background(), saved.EncryptedCredentials)
		require.NoError(t, err)
		require.NotNil(t, creds.GivEnergy)
		assert.Equal(t, "super-secret", creds.GivEnergy.APIKey)
	})
}
