package domain

import (
	"context"
	"encoding/json"
	"time"
)

// EventSubSubscription is the subscription object Twitch embeds in every
// webhook payload.
type EventSubSubscription struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Type      string            `json:"type"`
	Version   string            `json:"version"`
	Condition map[string]string `json:"condition"`
	CreatedAt time.Time         `json:"created_at"`
}

// BroadcasterUserID returns the broadcaster condition, or "" if absent.
func (s EventSubSubscription) BroadcasterUserID() string {
	return s.Condition["broadcaster_user_id"]
}

// Notification is a verified notification message for an active webhook.
type Notification struct {
	MessageID    string
	Timestamp    time.Time
	WebhookID    int64
	Subscription EventSubSubscription
	Event        json.RawMessage
}

// Revocation is a verified revocation message. Subscription.Status carries
// the provider's reason, e.g. "authorization_revoked".
type Revocation struct {
	MessageID    string
	Timestamp    time.Time
	WebhookID    int64
	Subscription EventSubSubscription
}

// EventHandler receives messages after they pass verification.
type EventHandler interface {
	HandleNotification(ctx context.Context, n Notification) error
	HandleRevocation(ctx context.Context, r Revocation) error
}

// MessageDeduplicator remembers delivered message ids for the provider's
// redelivery window.
type MessageDeduplicator interface {
	// Seen reports whether messageID was already seen, marking it seen when
	// it was not.
	Seen(ctx context.Context, messageID string) (bool, error)
	// Forget unmarks messageID so a redelivery is processed again.
	Forget(ctx context.Context, messageID string) error
}
