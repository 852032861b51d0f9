package eventsub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pscheid92/eventsub-gate/internal/domain"
)

var (
	ErrMalformedChallengeBody = errors.New("malformed challenge body")
	ErrMalformedPayload       = errors.New("malformed eventsub payload")
)

// Challenge is the verification request body.
type Challenge struct {
	Challenge      string
	SubscriptionID string
	BroadcasterID  string
	Subscription   domain.EventSubSubscription
}

type challengeBody struct {
	Challenge    *string                      `json:"challenge"`
	Subscription *domain.EventSubSubscription `json:"subscription"`
}

// ParseChallenge decodes a webhook_callback_verification body. The challenge,
// subscription id and broadcaster condition must all be non-empty strings.
func ParseChallenge(body []byte) (Challenge, error) {
	var raw challengeBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return Challenge{}, fmt.Errorf("%w: %v", ErrMalformedChallengeBody, err)
	}

	switch {
	case raw.Challenge == nil || *raw.Challenge == "":
		return Challenge{}, fmt.Errorf("%w: challenge is required", ErrMalformedChallengeBody)
	case raw.Subscription == nil || strings.TrimSpace(raw.Subscription.ID) == "":
		return Challenge{}, fmt.Errorf("%w: subscription.id is required", ErrMalformedChallengeBody)
	case strings.TrimSpace(raw.Subscription.BroadcasterUserID()) == "":
		return Challenge{}, fmt.Errorf("%w: subscription.condition.broadcaster_user_id is required", ErrMalformedChallengeBody)
	}

	return Challenge{
		Challenge:      *raw.Challenge,
		SubscriptionID: raw.Subscription.ID,
		BroadcasterID:  raw.Subscription.BroadcasterUserID(),
		Subscription:   *raw.Subscription,
	}, nil
}

// Payload is the notification or revocation body. Event is absent on
// revocations.
type Payload struct {
	Subscription domain.EventSubSubscription `json:"subscription"`
	Event        json.RawMessage             `json:"event,omitempty"`
}

func ParsePayload(body []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Subscription.ID == "" || p.Subscription.BroadcasterUserID() == "" {
		return Payload{}, fmt.Errorf("%w: subscription id and broadcaster condition are required", ErrMalformedPayload)
	}
	return p, nil
}

// StreamOnlineEvent is the stream.online v1 event body.
type StreamOnlineEvent struct {
	ID                   string `json:"id"`
	BroadcasterUserID    string `json:"broadcaster_user_id"`
	BroadcasterUserLogin string `json:"broadcaster_user_login"`
	BroadcasterUserName  string `json:"broadcaster_user_name"`
	Type                 string `json:"type"`
	StartedAt            string `json:"started_at"`
}

func ParseStreamOnline(event json.RawMessage) (StreamOnlineEvent, error) {
	var e StreamOnlineEvent
	if err := json.Unmarshal(event, &e); err != nil {
		return StreamOnlineEvent{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return e, nil
}
