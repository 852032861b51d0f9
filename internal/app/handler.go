package app

import (
	"context"
	"log/slog"

	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
)

// LogEventHandler is the default EventHandler. It only records what arrived.
type LogEventHandler struct{}

func (LogEventHandler) HandleNotification(ctx context.Context, n domain.Notification) error {
	attrs := []any{"webhook_id", n.WebhookID, "subscription_type", n.Subscription.Type}

	if n.Subscription.Type == domain.EventTypeStreamOnline {
		event, err := eventsub.ParseStreamOnline(n.Event)
		if err != nil {
			slog.WarnContext(ctx, "Unparseable stream.online event", append(attrs, "error", err)...)
			return nil
		}
		attrs = append(attrs, "broadcaster_user_id", event.BroadcasterUserID, "stream_type", event.Type, "started_at", event.StartedAt)
	}

	slog.InfoContext(ctx, "EventSub notification received", attrs...)
	return nil
}

func (LogEventHandler) HandleRevocation(ctx context.Context, r domain.Revocation) error {
	slog.InfoContext(ctx, "EventSub subscription revoked",
		"webhook_id", r.WebhookID, "subscription_type", r.Subscription.Type, "reason", r.Subscription.Status)
	return nil
}
