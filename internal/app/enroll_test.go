package app

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollment_Enroll_RegistersNewWebhook(t *testing.T) {
	userID := uuid.New()
	streamers := &mockStreamerRepo{
		upsertFn: func(_ context.Context, gotUser uuid.UUID, broadcasterID string) (*domain.Streamer, error) {
			assert.Equal(t, userID, gotUser)
			return &domain.Streamer{ID: 7, UserID: gotUser, TwitchBroadcasterID: broadcasterID}, nil
		},
	}
	webhooks := &mockWebhookRepo{
		createFn: func(_ context.Context, streamerID int64, eventType string) (*domain.WebhookSubscription, error) {
			assert.Equal(t, int64(7), streamerID)
			assert.Equal(t, domain.EventTypeStreamOnline, eventType)
			return &domain.WebhookSubscription{ID: 42, StreamerID: streamerID, Type: eventType, Status: domain.WebhookStatusNotActive}, nil
		},
	}
	registrar := &mockRegistrar{
		registerFn: func(_ context.Context, wh *domain.WebhookSubscription, broadcasterID string) (*domain.WebhookSubscription, error) {
			assert.Equal(t, "12826", broadcasterID)
			out := *wh
			out.Status = domain.WebhookStatusPending
			return &out, nil
		},
	}

	e := NewEnrollment(streamers, webhooks, registrar, domain.EventTypeStreamOnline)
	wh, err := e.Enroll(context.Background(), userID, "12826")

	require.NoError(t, err)
	assert.Equal(t, domain.WebhookStatusPending, wh.Status)
	assert.Equal(t, 1, registrar.calls)
}

func TestEnrollment_Enroll_SkipsRegisteredWebhook(t *testing.T) {
	for _, status := range []domain.WebhookStatus{domain.WebhookStatusPending, domain.WebhookStatusActive, domain.WebhookStatusRevoked} {
		t.Run(string(status), func(t *testing.T) {
			streamers := &mockStreamerRepo{
				upsertFn: func(context.Context, uuid.UUID, string) (*domain.Streamer, error) {
					return &domain.Streamer{ID: 7, TwitchBroadcasterID: "12826"}, nil
				},
			}
			webhooks := &mockWebhookRepo{
				createFn: func(context.Context, int64, string) (*domain.WebhookSubscription, error) {
					return &domain.WebhookSubscription{ID: 42, Status: status}, nil
				},
			}
			registrar := &mockRegistrar{}

			wh, err := NewEnrollment(streamers, webhooks, registrar, domain.EventTypeStreamOnline).Enroll(context.Background(), uuid.New(), "12826")

			require.NoError(t, err)
			assert.Equal(t, status, wh.Status)
			assert.Zero(t, registrar.calls)
		})
	}
}

func TestEnrollment_Enroll_Errors(t *testing.T) {
	okStreamers := &mockStreamerRepo{
		upsertFn: func(context.Context, uuid.UUID, string) (*domain.Streamer, error) {
			return &domain.Streamer{ID: 7, TwitchBroadcasterID: "12826"}, nil
		},
	}
	okWebhooks := &mockWebhookRepo{
		createFn: func(context.Context, int64, string) (*domain.WebhookSubscription, error) {
			return &domain.WebhookSubscription{ID: 42, Status: domain.WebhookStatusNotActive}, nil
		},
	}

	t.Run("upsert", func(t *testing.T) {
		streamers := &mockStreamerRepo{
			upsertFn: func(context.Context, uuid.UUID, string) (*domain.Streamer, error) {
				return nil, errors.New("unique violation")
			},
		}
		_, err := NewEnrollment(streamers, okWebhooks, &mockRegistrar{}, domain.EventTypeStreamOnline).Enroll(context.Background(), uuid.New(), "12826")
		assert.ErrorContains(t, err, "failed to upsert streamer")
	})

	t.Run("create", func(t *testing.T) {
		webhooks := &mockWebhookRepo{
			createFn: func(context.Context, int64, string) (*domain.WebhookSubscription, error) {
				return nil, errors.New("connection reset")
			},
		}
		_, err := NewEnrollment(okStreamers, webhooks, &mockRegistrar{}, domain.EventTypeStreamOnline).Enroll(context.Background(), uuid.New(), "12826")
		assert.ErrorContains(t, err, "failed to create webhook")
	})

	t.Run("register", func(t *testing.T) {
		sentinel := errors.New("helix: 409 conflict")
		registrar := &mockRegistrar{
			registerFn: func(context.Context, *domain.WebhookSubscription, string) (*domain.WebhookSubscription, error) {
				return nil, sentinel
			},
		}
		_, err := NewEnrollment(okStreamers, okWebhooks, registrar, domain.EventTypeStreamOnline).Enroll(context.Background(), uuid.New(), "12826")
		assert.ErrorIs(t, err, sentinel)
	})
}
