package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var streamerRowColumns = []string{"id", "user_id", "twitch_broadcaster_id", "created_at"}

func TestStreamerRepo_Upsert(t *testing.T) {
	mock := newMockPool(t)
	userID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(upsertStreamerSQL)).
		WithArgs(userID, "12826").
		WillReturnRows(pgxmock.NewRows(streamerRowColumns).AddRow(int64(7), userID, "12826", now))

	s, err := NewStreamerRepo(mock).Upsert(context.Background(), userID, "12826")

	require.NoError(t, err)
	assert.Equal(t, int64(7), s.ID)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, "12826", s.TwitchBroadcasterID)
}

func TestStreamerRepo_Upsert_Error(t *testing.T) {
	mock := newMockPool(t)
	userID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(upsertStreamerSQL)).
		WithArgs(userID, "12826").
		WillReturnError(errors.New("connection reset"))

	_, err := NewStreamerRepo(mock).Upsert(context.Background(), userID, "12826")

	assert.ErrorContains(t, err, "failed to upsert streamer")
}
