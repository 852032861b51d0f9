// Command subscribe registers the stream.online webhook for one broadcaster.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/eventsub-gate/internal/adapter/postgres"
	"github.com/pscheid92/eventsub-gate/internal/adapter/twitch"
	"github.com/pscheid92/eventsub-gate/internal/app"
	"github.com/pscheid92/eventsub-gate/internal/crypto"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/platform/config"
	"github.com/pscheid92/eventsub-gate/internal/platform/logging"
)

const commandTimeout = 60 * time.Second

func main() {
	var (
		userID        = flag.String("user", "", "Owning user UUID")
		broadcasterID = flag.String("broadcaster", "", "Twitch broadcaster user ID")
		verbose       = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	owner, err := uuid.Parse(*userID)
	if err != nil {
		log.Fatalf("Valid --user UUID required: %v", err)
	}
	if *broadcasterID == "" {
		log.Fatal("--broadcaster required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.RegistrationEnabled() {
		log.Fatal("WEBHOOK_CALLBACK_URL required to register subscriptions")
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	if err := run(ctx, cfg, owner, *broadcasterID); err != nil {
		slog.Error("Subscription failed", "broadcaster_id", *broadcasterID, "error", err)
		cancel()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, owner uuid.UUID, broadcasterID string) error {
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, nil)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		return err
	}

	codec, err := crypto.NewCodec(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	helixClient, err := twitch.NewHelixClient(ctx, cfg.TwitchClientID, cfg.TwitchAppSecret)
	if err != nil {
		return err
	}

	webhooks := postgres.NewWebhookRepo(pool)
	registrar := twitch.NewRegistrar(helixClient, webhooks, codec, cfg.WebhookCallbackURL)
	enrollment := app.NewEnrollment(postgres.NewStreamerRepo(pool), webhooks, registrar, domain.EventTypeStreamOnline)

	wh, err := enrollment.Enroll(ctx, owner, broadcasterID)
	if err != nil {
		return err
	}

	slog.Info("Webhook registered", "webhook_id", wh.ID, "status", wh.Status, "broadcaster_id", broadcasterID)
	return nil
}
