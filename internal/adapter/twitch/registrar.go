package twitch

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Its-donkey/kappopher/helix"
	"github.com/pscheid92/eventsub-gate/internal/crypto"
	"github.com/pscheid92/eventsub-gate/internal/domain"
)

const (
	transportMethodWebhook = "webhook"
	subscriptionVersion    = "1"

	// Twitch accepts 10 to 100 ASCII characters; 20 bytes hex-encode to 40.
	secretBytes = 20
)

var (
	ErrNoSubscriptionReturned = errors.New("no subscription returned from Twitch API")
	ErrSubscriptionExists     = errors.New("EventSub subscription already exists on Twitch")
)

// SubscriptionClient is the part of *helix.Client the registrar calls.
type SubscriptionClient interface {
	CreateEventSubSubscription(ctx context.Context, params *helix.CreateEventSubSubscriptionParams) (*helix.EventSubSubscription, error)
	DeleteEventSubSubscription(ctx context.Context, id string) error
}

// PendingMarker stores the subscription ID and encrypted secret on a webhook.
type PendingMarker interface {
	MarkPending(ctx context.Context, webhookID int64, subscriptionID, encryptedSecret string) (int64, error)
}

// Registrar creates webhook-transport EventSub subscriptions and moves the
// matching local record from not_active to pending. It makes one Helix call
// per Register; failed registrations are rerun by the operator.
type Registrar struct {
	client      SubscriptionClient
	webhooks    PendingMarker
	secrets     crypto.Service
	callbackURL string
}

func NewRegistrar(client SubscriptionClient, webhooks PendingMarker, secrets crypto.Service, callbackURL string) *Registrar {
	return &Registrar{
		client:      client,
		webhooks:    webhooks,
		secrets:     secrets,
		callbackURL: callbackURL,
	}
}

func (r *Registrar) Register(ctx context.Context, webhook *domain.WebhookSubscription, broadcasterID string) (*domain.WebhookSubscription, error) {
	if webhook.Status != domain.WebhookStatusNotActive {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, webhook.Status, domain.WebhookStatusPending)
	}

	secret, err := newSecret()
	if err != nil {
		return nil, err
	}
	encrypted, err := r.secrets.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt webhook secret: %w", err)
	}

	params := helix.CreateEventSubSubscriptionParams{
		Type:      webhook.Type,
		Version:   subscriptionVersion,
		Condition: map[string]string{"broadcaster_user_id": broadcasterID},
		Transport: helix.CreateEventSubTransport{
			Method:   transportMethodWebhook,
			Callback: r.callbackURL,
			Secret:   secret,
		},
	}

	sub, err := r.client.CreateEventSubSubscription(ctx, &params)
	if err != nil {
		return nil, classifyCreateError(err)
	}
	if sub == nil {
		return nil, ErrNoSubscriptionReturned
	}

	affected, err := r.webhooks.MarkPending(ctx, webhook.ID, sub.ID, encrypted)
	if err == nil && affected == 0 {
		err = fmt.Errorf("webhook %d is no longer not_active", webhook.ID)
	}
	if err != nil {
		r.compensate(ctx, sub.ID)
		return nil, fmt.Errorf("failed to mark webhook pending: %w", err)
	}

	slog.InfoContext(ctx, "EventSub subscription created", "webhook_id", webhook.ID, "subscription_id", sub.ID, "broadcaster_id", broadcasterID)

	pending := *webhook
	pending.Status = domain.WebhookStatusPending
	pending.SubscriptionID = &sub.ID
	pending.Secret = &encrypted
	return &pending, nil
}

// compensate removes a provider subscription that has no local record.
func (r *Registrar) compensate(ctx context.Context, subscriptionID string) {
	if err := r.client.DeleteEventSubSubscription(ctx, subscriptionID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete orphaned EventSub subscription", "subscription_id", subscriptionID, "error", err)
	}
}

func newSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate webhook secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func classifyCreateError(err error) error {
	var apiErr *helix.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %w", ErrSubscriptionExists, err)
	}
	return fmt.Errorf("failed to create EventSub subscription: %w", err)
}
