package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultMessageTTL covers the window in which the provider retries a
// delivery, plus the accepted clock skew.
const DefaultMessageTTL = 10 * time.Minute

const messageKeyPrefix = "eventsub:msg:"

// MessageDedup remembers EventSub message IDs so redeliveries are handled once.
type MessageDedup struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewMessageDedup(rdb *goredis.Client, ttl time.Duration) *MessageDedup {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	return &MessageDedup{rdb: rdb, ttl: ttl}
}

// Seen reports whether messageID was already recorded, recording it if not.
func (d *MessageDedup) Seen(ctx context.Context, messageID string) (bool, error) {
	args := goredis.SetArgs{TTL: d.ttl, Mode: "NX"}
	_, err := d.rdb.SetArgs(ctx, messageKey(messageID), "1", args).Result()
	if errors.Is(err, goredis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to record message id: %w", err)
	}
	return false, nil
}

// Forget drops messageID so a redelivery is processed again.
func (d *MessageDedup) Forget(ctx context.Context, messageID string) error {
	if err := d.rdb.Del(ctx, messageKey(messageID)).Err(); err != nil {
		return fmt.Errorf("failed to forget message id: %w", err)
	}
	return nil
}

func messageKey(messageID string) string {
	return messageKeyPrefix + messageID
}
