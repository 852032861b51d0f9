package httpserver

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/platform/config"
)

type mockHandshake struct {
	completeFn func(ctx context.Context, headers http.Header, body []byte) (string, error)
	calls      int
}

func (m *mockHandshake) Complete(ctx context.Context, headers http.Header, body []byte) (string, error) {
	m.calls++
	if m.completeFn != nil {
		return m.completeFn(ctx, headers, body)
	}
	return "", nil
}

type mockGate struct {
	notificationFn func(ctx context.Context, headers http.Header, body []byte) error
	revocationFn   func(ctx context.Context, headers http.Header, body []byte) error
}

func (m *mockGate) Notification(ctx context.Context, headers http.Header, body []byte) error {
	if m.notificationFn != nil {
		return m.notificationFn(ctx, headers, body)
	}
	return nil
}

func (m *mockGate) Revocation(ctx context.Context, headers http.Header, body []byte) error {
	if m.revocationFn != nil {
		return m.revocationFn(ctx, headers, body)
	}
	return nil
}

// mockWebhookRepo counts store calls so tests can assert none happened.
type mockWebhookRepo struct {
	findPendingFn func(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*domain.WebhookSubscription, error)
	updateFn      func(ctx context.Context, webhookID int64, from, to domain.WebhookStatus) (int64, error)
	getByIDFn     func(ctx context.Context, webhookID int64) (*domain.WebhookSubscription, error)

	findCalls   int
	updateCalls int
}

func (m *mockWebhookRepo) Create(context.Context, int64, string) (*domain.WebhookSubscription, error) {
	panic("unexpected call to Create")
}

func (m *mockWebhookRepo) GetByID(ctx context.Context, webhookID int64) (*domain.WebhookSubscription, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, webhookID)
	}
	panic("unexpected call to GetByID")
}

func (m *mockWebhookRepo) FindPendingWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string) (*domain.WebhookSubscription, error) {
	m.findCalls++
	if m.findPendingFn != nil {
		return m.findPendingFn(ctx, subscriptionID, eventType, broadcasterID)
	}
	return nil, domain.ErrWebhookNotFound
}

func (m *mockWebhookRepo) FindWebhook(ctx context.Context, subscriptionID, eventType, broadcasterID string, _ ...domain.WebhookStatus) (*domain.WebhookSubscription, error) {
	return m.FindPendingWebhook(ctx, subscriptionID, eventType, broadcasterID)
}

func (m *mockWebhookRepo) UpdateWebhookStatus(ctx context.Context, webhookID int64, from, to domain.WebhookStatus) (int64, error) {
	m.updateCalls++
	if m.updateFn != nil {
		return m.updateFn(ctx, webhookID, from, to)
	}
	return 1, nil
}

func (m *mockWebhookRepo) MarkPending(context.Context, int64, string, string) (int64, error) {
	panic("unexpected call to MarkPending")
}

func (m *mockWebhookRepo) ListStalePending(context.Context, time.Time) ([]domain.WebhookSubscription, error) {
	panic("unexpected call to ListStalePending")
}

type testServerOptions struct {
	handshake    challengeCompleter
	gate         eventGate
	healthChecks []HealthCheck
	registry     *prometheus.Registry
}

type testServerOption func(*testServerOptions)

func withHandshake(h challengeCompleter) testServerOption {
	return func(o *testServerOptions) { o.handshake = h }
}

func withGate(g eventGate) testServerOption {
	return func(o *testServerOptions) { o.gate = g }
}

func withHealthChecks(checks ...HealthCheck) testServerOption {
	return func(o *testServerOptions) { o.healthChecks = checks }
}

func withRegistry(reg *prometheus.Registry) testServerOption {
	return func(o *testServerOptions) { o.registry = reg }
}

func newTestServer(t *testing.T, opts ...testServerOption) *Server {
	t.Helper()

	o := testServerOptions{handshake: &mockHandshake{}, gate: &mockGate{}}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &config.Config{AppEnv: "test", Port: "0"}
	return NewServer(cfg, o.handshake, o.gate, o.healthChecks, o.registry)
}
