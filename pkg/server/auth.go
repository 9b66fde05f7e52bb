package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/helioscontrol/helioscontrol/pkg/log"
)

// authMiddleware validates the bearer token on API requests when an OIDC
// audience is configured. Without one the dashboard is assumed to be
// fronted by something else (or running on a trusted LAN) and every
// request is allowed through.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ctx = log.With(ctx, log.Ctx(ctx).With(slog.String("reqPath", r.URL.Path)))
		r = r.WithContext(ctx)

		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}

		authz := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || token == "" {
			writeJSONError(w, "missing authentication", http.StatusUnauthorized)
			return
		}
		if _, err := s.verifier(ctx, token); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to verify id token", slog.Any("error", err))
			writeJSONError(w, "invalid authentication", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
