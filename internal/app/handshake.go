package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
	apperrors "github.com/pscheid92/eventsub-gate/internal/platform/errors"
)

// Handshake completes the webhook_callback_verification exchange for one
// event type.
type Handshake struct {
	webhooks  domain.WebhookRepository
	verifier  verifier
	eventType string
	recorder  Recorder
}

// NewHandshake creates the challenge orchestrator. secrets may only be nil in
// a misconfigured process, in which case every challenge fails with a
// configuration error.
func NewHandshake(webhooks domain.WebhookRepository, secrets SecretDecrypter, eventType string, recorder Recorder) *Handshake {
	return &Handshake{
		webhooks:  webhooks,
		verifier:  verifier{secrets: secrets},
		eventType: eventType,
		recorder:  recorderOrNoop(recorder),
	}
}

// Complete verifies a challenge and activates the matching pending webhook.
// It returns the challenge to echo back. The pending -> active update is
// committed before Complete returns. Returned errors are *apperrors.Error.
func (h *Handshake) Complete(ctx context.Context, headers http.Header, body []byte) (string, error) {
	hdr, err := eventsub.ParseHeaders(headers)
	if err != nil {
		return "", h.fail(err, nil)
	}

	challenge, err := eventsub.ParseChallenge(body)
	if err != nil {
		return "", h.fail(err, nil)
	}

	wh, err := h.webhooks.FindPendingWebhook(ctx, challenge.SubscriptionID, h.eventType, challenge.BroadcasterID)
	if errors.Is(err, domain.ErrWebhookNotFound) {
		return "", h.fail(ErrSubscriptionNotFound, func(e *apperrors.Error) {
			e.WithContext("subscription_id", challenge.SubscriptionID)
		})
	}
	if err != nil {
		return "", h.fail(fmt.Errorf("failed to find pending webhook: %w", err), nil)
	}

	withWebhook := func(e *apperrors.Error) {
		e.WithContext("subscription_id", challenge.SubscriptionID).WithContext("webhook_id", wh.ID)
	}

	if err := h.verifier.verify(ctx, wh, hdr, body); err != nil {
		return "", h.fail(err, withWebhook)
	}

	affected, err := h.webhooks.UpdateWebhookStatus(ctx, wh.ID, domain.WebhookStatusPending, domain.WebhookStatusActive)
	if err != nil {
		return "", h.fail(fmt.Errorf("failed to activate webhook: %w", err), withWebhook)
	}

	if affected == 0 {
		// Only a concurrent challenge that won the update may be acknowledged;
		// the sweeper or a revocation may have moved the row elsewhere.
		current, err := h.webhooks.GetByID(ctx, wh.ID)
		if err != nil {
			return "", h.fail(fmt.Errorf("failed to reload webhook: %w", err), withWebhook)
		}
		if current.Status != domain.WebhookStatusActive {
			slog.WarnContext(ctx, "Webhook left pending before activation, rejecting challenge",
				"webhook_id", wh.ID, "subscription_id", challenge.SubscriptionID, "status", current.Status)
			return "", h.fail(ErrSubscriptionNotFound, func(e *apperrors.Error) {
				withWebhook(e)
				e.WithContext("status", string(current.Status))
			})
		}
		slog.InfoContext(ctx, "Webhook already active, acknowledging challenge",
			"webhook_id", wh.ID, "subscription_id", challenge.SubscriptionID)
	} else {
		h.recorder.RecordTransition(domain.WebhookStatusPending, domain.WebhookStatusActive)
		slog.InfoContext(ctx, "Webhook activated",
			"webhook_id", wh.ID, "subscription_id", challenge.SubscriptionID,
			"subscription_version", hdr.SubscriptionVersion, "retry", hdr.Retry)
	}

	h.recorder.RecordVerification(eventsub.MessageTypeVerification, OutcomeVerified)
	return challenge.Challenge, nil
}

func (h *Handshake) fail(err error, annotate func(*apperrors.Error)) error {
	structured, outcome := classifyError(err)
	if annotate != nil {
		annotate(structured)
	}
	h.recorder.RecordVerification(eventsub.MessageTypeVerification, outcome)
	return structured
}
