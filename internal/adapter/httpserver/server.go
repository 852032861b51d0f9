package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/eventsub-gate/internal/adapter/metrics"
	"github.com/pscheid92/eventsub-gate/internal/platform/config"
)

type challengeCompleter interface {
	Complete(ctx context.Context, headers http.Header, body []byte) (string, error)
}

type eventGate interface {
	Notification(ctx context.Context, headers http.Header, body []byte) error
	Revocation(ctx context.Context, headers http.Header, body []byte) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	handshake challengeCompleter
	gate      eventGate

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler

	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the routes. reg may be nil, which disables /metrics and
// request metrics.
func NewServer(cfg *config.Config, handshake challengeCompleter, gate eventGate, healthChecks []HealthCheck, reg *prometheus.Registry) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		handshake:    handshake,
		gate:         gate,
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}
	if reg != nil {
		srv.httpMetrics = metrics.NewHTTPMetrics(reg)
		srv.metricsHandler = metrics.Handler(reg)
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
