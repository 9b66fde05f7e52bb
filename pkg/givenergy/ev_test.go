package givenergy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscontrol/helioscontrol/pkg/types"
)

func TestResolveEVStatus(t *testing.T) {
	t.Run("NoChargerNoCall", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Errorf("unexpected request to %s", r.URL.Path)
		}))
		defer ts.Close()

		c := NewClient(ts.URL, "key")
		state := c.ResolveEVStatus(context.Background(), "")
		assert.Equal(t, types.EVStatusUnavailable, state.Status.Kind)
	})

	t.Run("DetailEndpoint", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/ev-charger/uuid-1/status", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"status": "Charging",
					"charge_session": map[string]interface{}{
						"power":         7200,
						"kwh_delivered": 12.3,
					},
					"today_kwh": 18.4,
				},
			})
		}))
		defer ts.Close()

		c := NewClient(ts.URL, "key")
		state := c.ResolveEVStatus(context.Background(), "uuid-1")
		assert.Equal(t, types.EVStatusCharging, state.Status.Kind)
		require.NotNil(t, state.PowerW)
		assert.Equal(t, float64(7200), *state.PowerW)
		require.NotNil(t, state.Power)
		assert.Equal(t, 7.2, state.Power.Value)
		require.NotNil(t, state.SessionKWh)
		assert.Equal(t, 12.3, *state.SessionKWh)
		require.NotNil(t, state.DailyTotalKWh)
		assert.Equal(t, 18.4, *state.DailyTotalKWh)
	})

	t.Run("NullSessionWhileCharging", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"status":         "Charging",
					"charge_session": nil,
				},
			})
		}))
		defer ts.Close()

		c := NewClient(ts.URL, "key")
		state := c.ResolveEVStatus(context.Background(), "uuid-1")
		assert.Equal(t, types.EVStatusCharging, state.Status.Kind)
		// power is unknown, not zero
		assert.Nil(t, state.PowerW)
		assert.Nil(t, state.Power)
	})

	t.Run("DetailMissingFallsBackToBasic", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/ev-charger/uuid-1/status":
				http.Error(w, "not found", http.StatusNotFound)
			case "/ev-charger/uuid-1":
				json.NewEncoder(w).Encode(map[string]interface{}{
					"data": map[string]interface{}{
						"uuid":   "uuid-1",
						"status": "Charging",
					},
				})
			default:
				http.Error(w, "not found", 404)
			}
		}))
		defer ts.Close()

		c := NewClient(ts.URL, "key")
		state := c.ResolveEVStatus(context.Background(), "uuid-1")
		assert.Equal(t, types.EVStatusCharging, state.Status.Kind)
		assert.Nil(t, state.PowerW)
	})

	t.Run("BothEndpointsFailUnavailable", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer ts.Close()

		c := NewClient(ts.URL, "key")
		state := c.ResolveEVStatus(context.Background(), "uuid-1")
		assert.Equal(t, types.EVStatusUnavailable, state.Status.Kind)
	})
}
