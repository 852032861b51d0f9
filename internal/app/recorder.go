package app

import (
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
)

// Recorder receives verification and lifecycle counts. Implemented by the
// metrics adapter.
type Recorder interface {
	RecordVerification(messageType eventsub.MessageType, outcome string)
	RecordTransition(from, to domain.WebhookStatus)
}

type noopRecorder struct{}

func (noopRecorder) RecordVerification(eventsub.MessageType, string) {}
func (noopRecorder) RecordTransition(domain.WebhookStatus, domain.WebhookStatus) {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
