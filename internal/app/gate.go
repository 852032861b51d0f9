package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
	apperrors "github.com/pscheid92/eventsub-gate/internal/platform/errors"
)

// Revocation reason Twitch reports when the challenge was never answered
// correctly.
const reasonVerificationFailed = "webhook_callback_verification_failed"

// Gate verifies notification and revocation messages before they reach an
// EventHandler.
type Gate struct {
	webhooks  domain.WebhookRepository
	verifier  verifier
	dedup     domain.MessageDeduplicator
	handler   domain.EventHandler
	clock     clockwork.Clock
	maxAge    time.Duration
	eventType string
	recorder  Recorder
}

// NewGate creates the verification gate. dedup may be nil, in which case
// redeliveries are dispatched again.
func NewGate(
	webhooks domain.WebhookRepository,
	secrets SecretDecrypter,
	dedup domain.MessageDeduplicator,
	handler domain.EventHandler,
	clock clockwork.Clock,
	maxAge time.Duration,
	eventType string,
	recorder Recorder,
) *Gate {
	return &Gate{
		webhooks:  webhooks,
		verifier:  verifier{secrets: secrets},
		dedup:     dedup,
		handler:   handler,
		clock:     clock,
		maxAge:    maxAge,
		eventType: eventType,
		recorder:  recorderOrNoop(recorder),
	}
}

// verifiedMessage is a message that passed signature and freshness checks
// and was not seen before.
type verifiedMessage struct {
	headers   eventsub.Headers
	timestamp time.Time
	payload   eventsub.Payload
	webhook   *domain.WebhookSubscription
	duplicate bool
}

// Notification verifies a notification for an active webhook and dispatches it.
func (g *Gate) Notification(ctx context.Context, headers http.Header, body []byte) error {
	msg, err := g.admit(ctx, eventsub.MessageTypeNotification, headers, body, domain.WebhookStatusActive)
	if err != nil || msg.duplicate {
		return err
	}

	n := domain.Notification{
		MessageID:    msg.headers.MessageID,
		Timestamp:    msg.timestamp,
		WebhookID:    msg.webhook.ID,
		Subscription: msg.payload.Subscription,
		Event:        msg.payload.Event,
	}
	if err := g.handler.HandleNotification(ctx, n); err != nil {
		g.forget(ctx, msg.headers.MessageID)
		return apperrors.InternalError("failed to handle notification", err).WithContext("webhook_id", msg.webhook.ID)
	}
	return nil
}

// Revocation verifies a revocation, moves the webhook to revoked (or failed
// when the challenge never succeeded) and dispatches it.
func (g *Gate) Revocation(ctx context.Context, headers http.Header, body []byte) error {
	msg, err := g.admit(ctx, eventsub.MessageTypeRevocation, headers, body,
		domain.WebhookStatusNotActive, domain.WebhookStatusPending, domain.WebhookStatusActive, domain.WebhookStatusFailed)
	if err != nil || msg.duplicate {
		return err
	}

	wh := msg.webhook
	reason := msg.payload.Subscription.Status
	target := domain.WebhookStatusRevoked
	if wh.Status == domain.WebhookStatusPending && reason == reasonVerificationFailed {
		target = domain.WebhookStatusFailed
	}

	if !wh.Status.CanTransitionTo(target) {
		slog.InfoContext(ctx, "Ignoring revocation for webhook in terminal status",
			"webhook_id", wh.ID, "status", wh.Status, "reason", reason)
	} else {
		affected, err := g.webhooks.UpdateWebhookStatus(ctx, wh.ID, wh.Status, target)
		if err != nil {
			g.forget(ctx, msg.headers.MessageID)
			return apperrors.InternalError("failed to update webhook status", err).WithContext("webhook_id", wh.ID)
		}
		if affected > 0 {
			g.recorder.RecordTransition(wh.Status, target)
		}
		slog.InfoContext(ctx, "Webhook revoked",
			"webhook_id", wh.ID, "from", wh.Status, "to", target, "reason", reason, "applied", affected > 0)
	}

	r := domain.Revocation{
		MessageID:    msg.headers.MessageID,
		Timestamp:    msg.timestamp,
		WebhookID:    wh.ID,
		Subscription: msg.payload.Subscription,
	}
	if err := g.handler.HandleRevocation(ctx, r); err != nil {
		g.forget(ctx, msg.headers.MessageID)
		return apperrors.InternalError("failed to handle revocation", err).WithContext("webhook_id", wh.ID)
	}
	return nil
}

func (g *Gate) admit(ctx context.Context, mt eventsub.MessageType, headers http.Header, body []byte, statuses ...domain.WebhookStatus) (*verifiedMessage, error) {
	hdr, err := eventsub.ParseHeaders(headers)
	if err != nil {
		return nil, g.fail(mt, err, nil)
	}

	payload, err := eventsub.ParsePayload(body)
	if err != nil {
		return nil, g.fail(mt, err, nil)
	}

	subID := payload.Subscription.ID
	wh, err := g.webhooks.FindWebhook(ctx, subID, g.eventType, payload.Subscription.BroadcasterUserID(), statuses...)
	if errors.Is(err, domain.ErrWebhookNotFound) {
		return nil, g.fail(mt, ErrSubscriptionNotFound, func(e *apperrors.Error) { e.WithContext("subscription_id", subID) })
	}
	if err != nil {
		return nil, g.fail(mt, fmt.Errorf("failed to find webhook: %w", err), nil)
	}

	annotate := func(e *apperrors.Error) {
		e.WithContext("subscription_id", subID).WithContext("webhook_id", wh.ID)
	}

	if err := g.verifier.verify(ctx, wh, hdr, body); err != nil {
		return nil, g.fail(mt, err, annotate)
	}

	// The timestamp is only trusted once the signature covering it is.
	ts, err := hdr.Time()
	if err != nil {
		return nil, g.fail(mt, err, annotate)
	}
	if age := g.clock.Since(ts); age > g.maxAge || age < -g.maxAge {
		return nil, g.fail(mt, fmt.Errorf("%w: age %s", ErrStaleMessage, age), annotate)
	}

	msg := &verifiedMessage{headers: hdr, timestamp: ts, payload: payload, webhook: wh}

	if g.dedup != nil {
		seen, err := g.dedup.Seen(ctx, hdr.MessageID)
		if err != nil {
			slog.WarnContext(ctx, "Message dedup unavailable, processing anyway", "webhook_id", wh.ID, "error", err)
		}
		if seen {
			slog.InfoContext(ctx, "Dropping redelivered message", "webhook_id", wh.ID, "retry", hdr.Retry)
			g.recorder.RecordVerification(mt, OutcomeDuplicate)
			msg.duplicate = true
			return msg, nil
		}
	}

	g.recorder.RecordVerification(mt, OutcomeVerified)
	return msg, nil
}

func (g *Gate) forget(ctx context.Context, messageID string) {
	if g.dedup == nil {
		return
	}
	if err := g.dedup.Forget(ctx, messageID); err != nil {
		slog.WarnContext(ctx, "Failed to release message id for redelivery", "error", err)
	}
}

func (g *Gate) fail(mt eventsub.MessageType, err error, annotate func(*apperrors.Error)) error {
	structured, outcome := classifyError(err)
	if annotate != nil {
		annotate(structured)
	}
	g.recorder.RecordVerification(mt, outcome)
	return structured
}
