package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helioscontrol/helioscontrol/pkg/givenergy"
	"github.com/helioscontrol/helioscontrol/pkg/log"
	"github.com/helioscontrol/helioscontrol/pkg/metrics"
	"github.com/helioscontrol/helioscontrol/pkg/monitor"
	"github.com/helioscontrol/helioscontrol/pkg/server"
	"github.com/helioscontrol/helioscontrol/pkg/storage"
)

func main() {
	// load .env for local development, missing file is fine
	_ = godotenv.Load()

	// init packages
	provider := givenergy.Configured()
	db := storage.Configured()
	mon := monitor.Configured()

	registry := prometheus.NewRegistry()
	registry.MustRegister(metrics.NewCollector(mon))
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	// init server
	srv := server.Configured(provider, mon, db, metricsHandler)

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Info("starting helioscontrol", slog.String("version", versioninfo.Short()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := db.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
		}
	}()

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", "error", err)
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
