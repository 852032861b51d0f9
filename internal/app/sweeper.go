package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/platform/correlation"
)

const defaultSweepInterval = time.Minute

// PendingSweeper fails webhooks whose challenge never arrived within timeout.
type PendingSweeper struct {
	webhooks domain.WebhookRepository
	timeout  time.Duration
	interval time.Duration
	clock    clockwork.Clock
	recorder Recorder
	stopCh   chan struct{}
}

func NewPendingSweeper(webhooks domain.WebhookRepository, timeout time.Duration, clock clockwork.Clock, recorder Recorder) *PendingSweeper {
	interval := defaultSweepInterval
	if timeout < interval {
		interval = timeout
	}
	return &PendingSweeper{
		webhooks: webhooks,
		timeout:  timeout,
		interval: interval,
		clock:    clock,
		recorder: recorderOrNoop(recorder),
		stopCh:   make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
func (s *PendingSweeper) Start(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			sweepCtx := correlation.WithID(ctx, correlation.NewID())
			if _, err := s.Sweep(sweepCtx); err != nil {
				slog.ErrorContext(sweepCtx, "Pending webhook sweep failed", "error", err)
			}
		case <-s.stopCh:
			slog.Info("Pending webhook sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("Pending webhook sweeper context cancelled")
			return
		}
	}
}

// Stop gracefully stops the sweep loop.
func (s *PendingSweeper) Stop() {
	close(s.stopCh)
}

// Sweep moves every stale pending webhook to failed and returns how many
// rows it changed.
func (s *PendingSweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-s.timeout)

	stale, err := s.webhooks.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale pending webhooks: %w", err)
	}

	failed := 0
	for _, wh := range stale {
		affected, err := s.webhooks.UpdateWebhookStatus(ctx, wh.ID, domain.WebhookStatusPending, domain.WebhookStatusFailed)
		if err != nil {
			slog.WarnContext(ctx, "Failed to expire pending webhook", "webhook_id", wh.ID, "error", err)
			continue
		}
		if affected == 0 {
			continue
		}
		failed++
		s.recorder.RecordTransition(domain.WebhookStatusPending, domain.WebhookStatusFailed)
		slog.InfoContext(ctx, "Pending webhook expired without challenge", "webhook_id", wh.ID, "pending_since", wh.UpdatedAt)
	}

	return failed, nil
}
