package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/levenlabs/go-lflag"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/storage"
)

// tokenVerifier is a function that validates an OIDC ID token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server handles the HTTP API for the HeliosControl dashboard. It
// orchestrates interactions between the vendor cloud, the monitor, and
// storage.
type Server struct {
	provider       *givenergy.Provider
	monitor        *monitor.Monitor
	storage        storage.Database
	metricsHandler http.Handler

	listenAddr    string
	verifier      tokenVerifier
	encryptionKey string
	serverName    string
	httpServer    *http.Server
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(p *givenergy.Provider, m *monitor.Monitor, db storage.Database, metricsHandler http.Handler) *Server {
	srv := &Server{
		provider:       p,
		monitor:        m,
		storage:        db,
		metricsHandler: metricsHandler,
		serverName:     "helioscontrol",
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcAudience := lflag.String("oidc-audience", "", "audience/client ID to validate for id tokens, empty disables auth")
	encryptionKey := lflag.String("credentials-encryption-key", "", "32-character key for encrypting credentials at rest, empty stores them in the clear")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		if *oidcAudience != "" {
			provider, err := oidc.NewProvider(context.Background(), "https://accounts.google.com")
			if err != nil {
				log.Ctx(context.Background()).Error("failed to initialize Google OIDC provider", slog.Any("error", err))
				os.Exit(1)
			}
			srv.verifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
		}
		if *encryptionKey != "" && len(*encryptionKey) != 32 {
			log.Ctx(context.Background()).Error("credentials-encryption-key must be 32 characters")
			os.Exit(1)
		}
		srv.encryptionKey = *encryptionKey
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/identity", s.handleGetIdentity)
	apiMux.HandleFunc("GET /api/snapshot", s.handleGetSnapshot)
	apiMux.HandleFunc("GET /api/presets", s.handleListPresets)
	apiMux.HandleFunc("POST /api/presets", s.handleCreatePreset)
	apiMux.HandleFunc("DELETE /api/presets/{id}", s.handleDeletePreset)
	apiMux.HandleFunc("POST /api/presets/{id}/activate", s.handleActivatePreset)
	apiMux.HandleFunc("GET /api/settings", s.handleGetSettings)
	apiMux.HandleFunc("POST /api/settings", s.handleUpdateSettings)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return s.revisionMiddleware(gziphandler.GzipHandler(mux))
}

// Run starts polling and the HTTP server and blocks until the context is
// canceled or the server fails. Stored settings are loaded first so the
// monitor starts with the persisted credentials.
func (s *Server) Run(ctx context.Context) error {
	settings, creds, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if creds.GivEnergy != nil && creds.GivEnergy.APIKey != "" {
		s.monitor.SetAPI(s.provider.Client(creds.GivEnergy.APIKey))
	}
	if settings.PollIntervalSeconds > 0 {
		s.monitor.SetInterval(time.Duration(settings.PollIntervalSeconds) * time.Second)
	}
	s.monitor.SetPaused(settings.Pause)
	go s.monitor.Run(ctx)

	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
