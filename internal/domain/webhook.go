package domain

import (
	"context"
	"time"
)

// EventTypeStreamOnline is the only event type the gate registers and verifies.
const EventTypeStreamOnline = "stream.online"

type WebhookStatus string

const (
	WebhookStatusNotActive WebhookStatus = "not_active"
	WebhookStatusPending   WebhookStatus = "pending"
	WebhookStatusActive    WebhookStatus = "active"
	WebhookStatusFailed    WebhookStatus = "failed"
	WebhookStatusRevoked   WebhookStatus = "revoked"
)

var webhookTransitions = map[WebhookStatus][]WebhookStatus{
	WebhookStatusNotActive: {WebhookStatusPending, WebhookStatusRevoked},
	WebhookStatusPending:   {WebhookStatusActive, WebhookStatusFailed, WebhookStatusRevoked},
	WebhookStatusActive:    {WebhookStatusRevoked},
	WebhookStatusFailed:    {WebhookStatusRevoked},
}

func (s WebhookStatus) Valid() bool {
	switch s {
	case WebhookStatusNotActive, WebhookStatusPending, WebhookStatusActive, WebhookStatusFailed, WebhookStatusRevoked:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is reachable from s in one step.
// Revoked is terminal.
func (s WebhookStatus) CanTransitionTo(next WebhookStatus) bool {
	for _, allowed := range webhookTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}


// WebhookSubscription is one streamer's registration for one event type.
// Secret only ever holds codec ciphertext.
type WebhookSubscription struct {
	ID             int64
	StreamerID     int64
	Type           string
	Status         WebhookStatus
	Secret         *string
	SubscriptionID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSecret reports whether an encrypted secret is stored.
func (w *WebhookSubscription) HasSecret() bool {
	return w.Secret != nil && *w.Secret != ""
}

type WebhookRepository interface {
	// Create inserts a not_active webhook or returns the existing row for
	// (streamerID, eventType).
	Create(ctx context.Context, streamerID int64, eventType string) (*WebhookSubscription, error)
	GetByID(ctx context.Context, webhookID int64) (*WebhookSubscription, error)

	// FindPendingWebhook returns ErrWebhookNotFound unless exactly the pending,
	// secret-bearing row for this subscription, type and broadcaster exists.
	FindPendingWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*WebhookSubscription, error)

	// FindWebhook is FindPendingWebhook generalised to any set of statuses.
	FindWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string, statuses ...WebhookStatus) (*WebhookSubscription, error)

	// UpdateWebhookStatus moves one row, keyed by internal id, from one status
	// to another and returns the affected row count. Zero means another
	// writer got there first.
	UpdateWebhookStatus(ctx context.Context, webhookID int64, from, to WebhookStatus) (int64, error)

	// MarkPending records the provider acknowledgement of a registration.
	MarkPending(ctx context.Context, webhookID int64, subscriptionID, encryptedSecret string) (int64, error)

	// ListStalePending returns pending rows last updated before cutoff.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]WebhookSubscription, error)
}
