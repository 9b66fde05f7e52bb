package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/storage/storagemock"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

func testServer(api givenergy.API) (*Server, *storagemock.MockDatabase) {
	db := storagemock.New()
	srv := &Server{
		monitor:    monitor.New(api, time.Minute),
		storage:    db,
		listenAddr: ":8080",
	}
	return srv, db
}

// pollMonitorOnce runs the monitor until one poll has completed.
func pollMonitorOnce(t *testing.T, m *monitor.Monitor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)
	require.Eventually(t, func() bool {
		_, ok := m.Latest()
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestHandleGetIdentity(t *testing.T) {
	t.Run("Resolved", func(t *testing.T) {
		capacity := 9.5
		srv, _ := testServer(&givenergy.MockAPI{
			Identity: types.DeviceIdentity{
				InverterSerial:     "INV1",
				EVChargerID:        "uuid-1",
				BatteryCapacityKWh: &capacity,
			},
		})
		req := httptest.NewRequest("GET", "/api/identity", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var identity types.DeviceIdentity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
		assert.Equal(t, "INV1", identity.InverterSerial)
		assert.Equal(t, "uuid-1", identity.EVChargerID)
	})

	t.Run("NoCredential", func(t *testing.T) {
		srv, _ := testServer(nil)
		req := httptest.NewRequest("GET", "/api/identity", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		srv, _ := testServer(&givenergy.MockAPI{
			IdentityErr: givenergy.ErrUnauthorized,
		})
		req := httptest.NewRequest("GET", "/api/identity", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("NoInverterShowsDiagnostics", func(t *testing.T) {
		srv, _ := testServer(&givenergy.MockAPI{
			IdentityErr: &givenergy.DeviceDiscoveryError{
				DevicesChecked: 2,
				Serials:        []string{"CD1", "CD2"},
			},
		})
		req := httptest.NewRequest("GET", "/api/identity", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)

		require.Equal(t, http.StatusNotFound, w.Code)
		var body struct {
			Error          string   `json:"error"`
			DevicesChecked int      `json:"devicesChecked"`
			Serials        []string `json:"serials"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.DevicesChecked)
		assert.Equal(t, []string{"CD1", "CD2"}, body.Serials)
	})
}

func TestHandleGetSnapshot(t *testing.T) {
	t.Run("NoSnapshotYet", func(t *testing.T) {
		srv, _ := testServer(&givenergy.MockAPI{})
		req := httptest.NewRequest("GET", "/api/snapshot", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("LatestReturned", func(t *testing.T) {
		api := &givenergy.MockAPI{
			Identity: types.DeviceIdentity{InverterSerial: "INV1"},
			Snapshot: types.TelemetrySnapshot{
				Timestamp:       time.Now(),
				HomeConsumption: types.FormatPower(950),
				Grid: types.GridState{
					PowerWatts: 1500,
					Flow:       types.GridFlowExporting,
				},
			},
		}
		srv, _ := testServer(api)
		pollMonitorOnce(t, srv.monitor)

		req := httptest.NewRequest("GET", "/api/snapshot", nil)
		w := httptest.NewRecorder()
		srv.setupHandler().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var snap types.TelemetrySnapshot
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
		assert.Equal(t, float64(950), snap.HomeConsumption.Watts())
		assert.Equal(t, types.GridFlowExporting, snap.Grid.Flow)
	})
}
