package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
)

// --- Mock implementations ---

type mockWebhookRepo struct {
	createFn             func(ctx context.Context, streamerID int64, eventType string) (*domain.WebhookSubscription, error)
	getByIDFn            func(ctx context.Context, webhookID int64) (*domain.WebhookSubscription, error)
	findPendingFn        func(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*domain.WebhookSubscription, error)
	findFn               func(ctx context.Context, subscriptionID, eventType, broadcasterID string, statuses ...domain.WebhookStatus) (*domain.WebhookSubscription, error)
	updateStatusFn       func(ctx context.Context, webhookID int64, from, to domain.WebhookStatus) (int64, error)
	markPendingFn        func(ctx context.Context, webhookID int64, subscriptionID, encryptedSecret string) (int64, error)
	listStalePendingFn   func(ctx context.Context, cutoff time.Time) ([]domain.WebhookSubscription, error)
	findPendingCallCount int
	updateCalls          []statusUpdate
}

type statusUpdate struct {
	WebhookID int64
	From, To  domain.WebhookStatus
}

func (m *mockWebhookRepo) Create(ctx context.Context, streamerID int64, eventType string) (*domain.WebhookSubscription, error) {
	if m.createFn != nil {
		return m.createFn(ctx, streamerID, eventType)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockWebhookRepo) GetByID(ctx context.Context, webhookID int64) (*domain.WebhookSubscription, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, webhookID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockWebhookRepo) FindPendingWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*domain.WebhookSubscription, error) {
	m.findPendingCallCount++
	if m.findPendingFn != nil {
		return m.findPendingFn(ctx, subscriptionID, eventType, broadcasterID)
	}
	return nil, domain.ErrWebhookNotFound
}

func (m *mockWebhookRepo) FindWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string, statuses ...domain.WebhookStatus) (*domain.WebhookSubscription, error) {
	if m.findFn != nil {
		return m.findFn(ctx, subscriptionID, eventType, broadcasterID, statuses...)
	}
	return nil, domain.ErrWebhookNotFound
}

func (m *mockWebhookRepo) UpdateWebhookStatus(ctx context.Context, webhookID int64, from, to domain.WebhookStatus) (int64, error) {
	m.updateCalls = append(m.updateCalls, statusUpdate{WebhookID: webhookID, From: from, To: to})
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, webhookID, from, to)
	}
	return 1, nil
}

func (m *mockWebhookRepo) MarkPending(ctx context.Context, webhookID int64, subscriptionID, encryptedSecret string) (int64, error) {
	if m.markPendingFn != nil {
		return m.markPendingFn(ctx, webhookID, subscriptionID, encryptedSecret)
	}
	return 1, nil
}

func (m *mockWebhookRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]domain.WebhookSubscription, error) {
	if m.listStalePendingFn != nil {
		return m.listStalePendingFn(ctx, cutoff)
	}
	return nil, nil
}

type mockStreamerRepo struct {
	upsertFn func(ctx context.Context, userID uuid.UUID, broadcasterID string) (*domain.Streamer, error)
}

func (m *mockStreamerRepo) Upsert(ctx context.Context, userID uuid.UUID, broadcasterID string) (*domain.Streamer, error) {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, userID, broadcasterID)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockDecrypter struct {
	decryptFn func(ciphertext string) (string, error)
	calls     int
}

func (m *mockDecrypter) Decrypt(ciphertext string) (string, error) {
	m.calls++
	if m.decryptFn != nil {
		return m.decryptFn(ciphertext)
	}
	return ciphertext, nil
}

type mockDedup struct {
	mu       sync.Mutex
	seen     map[string]bool
	seenErr  error
	forgotten []string
}

func newMockDedup() *mockDedup {
	return &mockDedup{seen: make(map[string]bool)}
}

func (m *mockDedup) Seen(_ context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenErr != nil {
		return false, m.seenErr
	}
	if m.seen[messageID] {
		return true, nil
	}
	m.seen[messageID] = true
	return false, nil
}

func (m *mockDedup) Forget(_ context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, messageID)
	m.forgotten = append(m.forgotten, messageID)
	return nil
}

type mockEventHandler struct {
	notificationFn func(ctx context.Context, n domain.Notification) error
	revocationFn   func(ctx context.Context, r domain.Revocation) error
	notifications  []domain.Notification
	revocations    []domain.Revocation
}

func (m *mockEventHandler) HandleNotification(ctx context.Context, n domain.Notification) error {
	m.notifications = append(m.notifications, n)
	if m.notificationFn != nil {
		return m.notificationFn(ctx, n)
	}
	return nil
}

func (m *mockEventHandler) HandleRevocation(ctx context.Context, r domain.Revocation) error {
	m.revocations = append(m.revocations, r)
	if m.revocationFn != nil {
		return m.revocationFn(ctx, r)
	}
	return nil
}

type mockRegistrar struct {
	registerFn func(ctx context.Context, webhook *domain.WebhookSubscription, broadcasterID string) (*domain.WebhookSubscription, error)
	calls      int
}

func (m *mockRegistrar) Register(ctx context.Context, webhook *domain.WebhookSubscription, broadcasterID string) (*domain.WebhookSubscription, error) {
	m.calls++
	if m.registerFn != nil {
		return m.registerFn(ctx, webhook, broadcasterID)
	}
	return nil, fmt.Errorf("not implemented")
}

type recordedVerification struct {
	MessageType eventsub.MessageType
	Outcome     string
}

type mockRecorder struct {
	mu            sync.Mutex
	verifications []recordedVerification
	transitions   []statusUpdate
}

func (m *mockRecorder) RecordVerification(messageType eventsub.MessageType, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, recordedVerification{messageType, outcome})
}

func (m *mockRecorder) RecordTransition(from, to domain.WebhookStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, statusUpdate{From: from, To: to})
}

func (m *mockRecorder) getTransitions() []statusUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusUpdate(nil), m.transitions...)
}
