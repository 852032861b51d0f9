package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/eventsub-gate/internal/adapter/httpserver"
	"github.com/pscheid92/eventsub-gate/internal/adapter/metrics"
	"github.com/pscheid92/eventsub-gate/internal/adapter/postgres"
	"github.com/pscheid92/eventsub-gate/internal/adapter/redis"
	"github.com/pscheid92/eventsub-gate/internal/app"
	"github.com/pscheid92/eventsub-gate/internal/crypto"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/platform/config"
	"github.com/pscheid92/eventsub-gate/internal/platform/logging"
	"github.com/pscheid92/eventsub-gate/internal/platform/version"
	goredis "github.com/redis/go-redis/v9"
)

const (
	startupTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not initialised yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, reg prometheus.Registerer) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	tracer := postgres.NewMetricsTracer(metrics.NewDBMetrics(reg))
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, tracer)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when REDIS_URL is unset; message deduplication is
// then disabled.
func setupRedis(cfg *config.Config, reg prometheus.Registerer) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, EventSub message deduplication disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	redisMetrics := metrics.NewRedisHook(reg)
	client.AddHook(redisMetrics)
	client.AddHook(redis.NewCircuitBreakerHook(redisMetrics))
	return client
}

func healthChecks(pool *pgxpool.Pool, redisClient *goredis.Client) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{{Name: "postgres", Check: pool.Ping}}
	if redisClient != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

func runGracefulShutdown(srv *httpserver.Server, sweeper *app.PendingSweeper) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		sweeper.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", append([]any{"env", cfg.AppEnv, "port", cfg.Port}, version.Get().LogAttrs()...)...)

	reg := metrics.NewRegistry()

	pool := setupDB(cfg, reg)
	defer pool.Close()

	redisClient := setupRedis(cfg, reg)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	codec, err := crypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		slog.Error("Failed to create secret codec", "error", err)
		os.Exit(1)
	}

	webhooks := postgres.NewWebhookRepo(pool)
	recorder := metrics.NewEventSubMetrics(reg)

	// Pass nil explicitly to avoid a typed-nil interface. A message stays
	// fresh for MaxMessageAge on either side of its timestamp.
	var dedup domain.MessageDeduplicator
	if redisClient != nil {
		dedup = redis.NewMessageDedup(redisClient, 2*cfg.MaxMessageAge)
	}

	handshake := app.NewHandshake(webhooks, codec, domain.EventTypeStreamOnline, recorder)
	gate := app.NewGate(webhooks, codec, dedup, app.LogEventHandler{}, clock, cfg.MaxMessageAge, domain.EventTypeStreamOnline, recorder)

	sweeper := app.NewPendingSweeper(webhooks, cfg.PendingChallengeTimeout, clock, recorder)
	go sweeper.Start(context.Background())

	srv := httpserver.NewServer(cfg, handshake, gate, healthChecks(pool, redisClient), reg)

	done := runGracefulShutdown(srv, sweeper)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
