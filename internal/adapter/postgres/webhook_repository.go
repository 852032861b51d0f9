package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pscheid92/eventsub-gate/internal/domain"
)

// webhookColumns must match the Scan order in scanWebhook.
const webhookColumns = `w.id, w.streamer_id, w.type, w.status, w.secret, w.subscription_id, w.created_at, w.updated_at`

const (
	createWebhookSQL = `INSERT INTO webhooks AS w (streamer_id, type) VALUES ($1, $2)
ON CONFLICT (streamer_id, type) DO UPDATE SET type = EXCLUDED.type
RETURNING ` + webhookColumns

	getWebhookByIDSQL = `SELECT ` + webhookColumns + ` FROM webhooks w WHERE w.id = $1`

	findWebhookSQL = `SELECT ` + webhookColumns + `
FROM webhooks w
JOIN streamers s ON s.id = w.streamer_id
WHERE w.subscription_id = $1
  AND w.type = $2
  AND s.twitch_broadcaster_id = $3
  AND w.status = ANY($4)
  AND w.secret IS NOT NULL
LIMIT 1`

	updateWebhookStatusSQL = `UPDATE webhooks SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`

	markWebhookPendingSQL = `UPDATE webhooks
SET status = 'pending', subscription_id = $2, secret = $3, updated_at = now()
WHERE id = $1 AND status = 'not_active'`

	listStalePendingSQL = `SELECT ` + webhookColumns + ` FROM webhooks w
WHERE w.status = 'pending' AND w.updated_at < $1
ORDER BY w.id`
)

type WebhookRepo struct {
	db DB
}

func NewWebhookRepo(db DB) *WebhookRepo {
	return &WebhookRepo{db: db}
}

func scanWebhook(row pgx.Row) (*domain.WebhookSubscription, error) {
	var (
		wh             domain.WebhookSubscription
		status         string
		secret         pgtype.Text
		subscriptionID pgtype.Text
	)
	if err := row.Scan(&wh.ID, &wh.StreamerID, &wh.Type, &status, &secret, &subscriptionID, &wh.CreatedAt, &wh.UpdatedAt); err != nil {
		return nil, err
	}

	wh.Status = domain.WebhookStatus(status)
	if secret.Valid {
		wh.Secret = &secret.String
	}
	if subscriptionID.Valid {
		wh.SubscriptionID = &subscriptionID.String
	}
	return &wh, nil
}

func (r *WebhookRepo) Create(ctx context.Context, streamerID int64, eventType string) (*domain.WebhookSubscription, error) {
	wh, err := scanWebhook(r.db.QueryRow(ctx, createWebhookSQL, streamerID, eventType))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	return wh, nil
}

func (r *WebhookRepo) GetByID(ctx context.Context, webhookID int64) (*domain.WebhookSubscription, error) {
	wh, err := scanWebhook(r.db.QueryRow(ctx, getWebhookByIDSQL, webhookID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook by ID: %w", err)
	}
	return wh, nil
}

func (r *WebhookRepo) FindPendingWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*domain.WebhookSubscription, error) {
	return r.FindWebhook(ctx, subscriptionID, eventType, broadcasterID, domain.WebhookStatusPending)
}

func (r *WebhookRepo) FindWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string, statuses ...domain.WebhookStatus) (*domain.WebhookSubscription, error) {
	if len(statuses) == 0 {
		return nil, domain.ErrWebhookNotFound
	}

	wh, err := scanWebhook(r.db.QueryRow(ctx, findWebhookSQL, subscriptionID, eventType, broadcasterID, statusStrings(statuses)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrWebhookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find webhook: %w", err)
	}
	return wh, nil
}

// UpdateWebhookStatus rejects transitions the status table does not allow
// without touching the database.
func (r *WebhookRepo) UpdateWebhookStatus(ctx context.Context, webhookID int64, from, to domain.WebhookStatus) (int64, error) {
	if !from.CanTransitionTo(to) {
		return 0, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	tag, err := r.db.Exec(ctx, updateWebhookStatusSQL, webhookID, string(from), string(to))
	if err != nil {
		return 0, fmt.Errorf("failed to update webhook status: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *WebhookRepo) MarkPending(ctx context.Context, webhookID int64, subscriptionID, encryptedSecret string) (int64, error) {
	tag, err := r.db.Exec(ctx, markWebhookPendingSQL, webhookID, subscriptionID, encryptedSecret)
	if err != nil {
		return 0, fmt.Errorf("failed to mark webhook pending: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *WebhookRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.WebhookSubscription, error) {
	rows, err := r.db.Query(ctx, listStalePendingSQL, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending webhooks: %w", err)
	}
	defer rows.Close()

	var webhooks []domain.WebhookSubscription
	for rows.Next() {
		wh, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, *wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate webhooks: %w", err)
	}
	return webhooks, nil
}

func statusStrings(statuses []domain.WebhookStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
