package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/types"
)

// handleGetIdentity returns the resolved device identity.
func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, err := s.monitor.Identity(ctx)
	if err != nil {
		s.writeVendorError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, identity)
}

// handleGetSnapshot returns the latest telemetry snapshot.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.monitor.Latest()
	if !ok {
		if err := s.monitor.Err(); err != nil {
			s.writeVendorError(w, r, err)
			return
		}
		writeJSONError(w, "no telemetry available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, snap)
}

// vendor returns the current vendor client and the resolved identity for
// handlers that talk to the cloud directly.
func (s *Server) vendor(ctx context.Context) (givenergy.API, types.DeviceIdentity, error) {
	api := s.monitor.API()
	if api == nil {
		return nil, types.DeviceIdentity{}, monitor.ErrNoCredential
	}
	identity, err := s.monitor.Identity(ctx)
	if err != nil {
		return nil, types.DeviceIdentity{}, err
	}
	return api, identity, nil
}

// writeVendorError maps errors from the vendor cloud onto API responses.
// Discovery failures include enough diagnostic detail for a support ticket.
func (s *Server) writeVendorError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var discErr *givenergy.DeviceDiscoveryError
	switch {
	case errors.Is(err, monitor.ErrNoCredential):
		writeJSONError(w, "no api credential configured", http.StatusBadRequest)
	case errors.Is(err, givenergy.ErrUnauthorized):
		writeJSONError(w, "vendor rejected the api credential", http.StatusUnauthorized)
	case errors.As(err, &discErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		if err := json.NewEncoder(w).Encode(struct {
			Error          string   `json:"error"`
			DevicesChecked int      `json:"devicesChecked"`
			Serials        []string `json:"serials"`
		}{
			Error:          discErr.Error(),
			DevicesChecked: discErr.DevicesChecked,
			Serials:        discErr.Serials,
		}); err != nil {
			slog.Warn("failed to write error response", slog.Any("error", err))
			panic(http.ErrAbortHandler)
		}
	default:
		log.Ctx(ctx).ErrorContext(ctx, "vendor request failed", slog.Any("error", err))
		writeJSONError(w, "vendor request failed", http.StatusBadGateway)
	}
}
