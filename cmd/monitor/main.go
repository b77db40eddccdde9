package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-hazard-monitor/internal/adapter/httpadapter"
	"github.com/couchcryptid/weather-hazard-monitor/internal/adapter/openmeteo"
	"github.com/couchcryptid/weather-hazard-monitor/internal/config"
	"github.com/couchcryptid/weather-hazard-monitor/internal/domain"
	"github.com/couchcryptid/weather-hazard-monitor/internal/monitor"
	"github.com/couchcryptid/weather-hazard-monitor/internal/observability"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

func main() {
	_ = godotenv.Load() // optional .env for local runs

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	client := openmeteo.NewClient(cfg.OpenMeteoBaseURL, cfg.FetchTimeout, metrics, logger)
	notifier := &logNotifier{logger: logger}

	mon := monitor.New(client, cfg.Coordinates(), notifier, logger, metrics, clockwork.NewRealClock(), cfg.PollInterval)
	srv := httpadapter.NewServer(cfg.HTTPAddr, mon, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("monitor starting",
		"latitude", cfg.Latitude,
		"longitude", cfg.Longitude,
		"poll_interval", cfg.PollInterval,
		"auto_refresh", cfg.AutoRefresh,
	)

	mon.Start(ctx)
	if cfg.AutoRefresh {
		mon.SetAutoRefresh(true)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	mon.SetAutoRefresh(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// logNotifier is the default strong-alert side channel: it records the event
// in the log. Hosts embedding the monitor swap in a device-specific hook
// (vibration pattern, notification daemon).
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) NotifyStrongAlert(_ context.Context, alerts []domain.Alert) {
	for _, a := range alerts {
		if a.Severity == domain.SeverityHigh {
			n.logger.Warn("strong alert", "kind", a.Kind, "message", a.Message)
		}
	}
}
