package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pscheid92/eventsub-gate/internal/domain"
)

const (
	// The no-op update makes RETURNING yield the existing row on conflict.
	upsertStreamerSQL = `INSERT INTO streamers (user_id, twitch_broadcaster_id) VALUES ($1, $2)
ON CONFLICT (user_id, twitch_broadcaster_id) DO UPDATE SET twitch_broadcaster_id = EXCLUDED.twitch_broadcaster_id
RETURNING id, user_id, twitch_broadcaster_id, created_at`
)

type StreamerRepo struct {
	db DB
}

func NewStreamerRepo(db DB) *StreamerRepo {
	return &StreamerRepo{db: db}
}

func scanStreamer(row pgx.Row) (*domain.Streamer, error) {
	var s domain.Streamer
	if err := row.Scan(&s.ID, &s.UserID, &s.TwitchBroadcasterID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StreamerRepo) Upsert(ctx context.Context, userID uuid.UUID, twitchBroadcasterID string) (*domain.Streamer, error) {
	s, err := scanStreamer(r.db.QueryRow(ctx, upsertStreamerSQL, userID, twitchBroadcasterID))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert streamer: %w", err)
	}
	return s, nil
}
