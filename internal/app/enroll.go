package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/eventsub-gate/internal/domain"
)

// Registrar creates the provider-side subscription for a not_active webhook
// and moves it to pending.
type Registrar interface {
	Register(ctx context.Context, webhook *domain.WebhookSubscription, broadcasterID string) (*domain.WebhookSubscription, error)
}

// Enrollment links a broadcaster to a user and registers its webhook.
type Enrollment struct {
	streamers domain.StreamerRepository
	webhooks  domain.WebhookRepository
	registrar Registrar
	eventType string
}

func NewEnrollment(streamers domain.StreamerRepository, webhooks domain.WebhookRepository, registrar Registrar, eventType string) *Enrollment {
	return &Enrollment{
		streamers: streamers,
		webhooks:  webhooks,
		registrar: registrar,
		eventType: eventType,
	}
}

// Enroll is idempotent for webhooks that already left not_active: it returns
// them unchanged instead of registering a second subscription.
func (e *Enrollment) Enroll(ctx context.Context, userID uuid.UUID, broadcasterID string) (*domain.WebhookSubscription, error) {
	streamer, err := e.streamers.Upsert(ctx, userID, broadcasterID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert streamer: %w", err)
	}

	wh, err := e.webhooks.Create(ctx, streamer.ID, e.eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}

	if wh.Status != domain.WebhookStatusNotActive {
		slog.InfoContext(ctx, "Webhook already registered", "webhook_id", wh.ID, "status", wh.Status)
		return wh, nil
	}

	registered, err := e.registrar.Register(ctx, wh, streamer.TwitchBroadcasterID)
	if err != nil {
		return nil, fmt.Errorf("failed to register webhook %d: %w", wh.ID, err)
	}
	return registered, nil
}
