package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Streamer is a Twitch broadcaster identity linked to exactly one local user.
// (UserID, TwitchBroadcasterID) is unique.
type Streamer struct {
	ID                  int64
	UserID              uuid.UUID
	TwitchBroadcasterID string
	CreatedAt           time.Time
}

type StreamerRepository interface {
	Upsert(ctx context.Context, userID uuid.UUID, twitchBroadcasterID string) (*Streamer, error)
}
