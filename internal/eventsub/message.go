package eventsub

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Its-donkey/kappopher/helix"
)

// Header names as Twitch sends them; http.Header lookups are case-insensitive.
var (
	HeaderMessageID           = helix.EventSubHeaderMessageID
	HeaderMessageTimestamp    = helix.EventSubHeaderMessageTimestamp
	HeaderMessageSignature    = helix.EventSubHeaderMessageSignature
	HeaderMessageType         = helix.EventSubHeaderMessageType
	HeaderSubscriptionType    = helix.EventSubHeaderSubscriptionType
	HeaderSubscriptionVersion = helix.EventSubHeaderSubscriptionVersion
	HeaderMessageRetry        = "Twitch-Eventsub-Message-Retry"
)

type MessageType string

const (
	MessageTypeNotification MessageType = "notification"
	MessageTypeVerification MessageType = "webhook_callback_verification"
	MessageTypeRevocation   MessageType = "revocation"
)

var (
	ErrUnrecognizedMessageType = errors.New("unrecognized eventsub message type")
	ErrMissingHeaders          = errors.New("missing eventsub headers")
	ErrInvalidTimestamp        = errors.New("invalid eventsub message timestamp")
)

// Classify maps the message type header value to a handling path.
func Classify(header string) (MessageType, error) {
	switch t := MessageType(strings.TrimSpace(header)); t {
	case MessageTypeNotification, MessageTypeVerification, MessageTypeRevocation:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedMessageType, header)
	}
}

// Headers are the verification headers of one message, trimmed. Retry and
// the subscription headers are informational and may be empty.
type Headers struct {
	MessageID           string
	Timestamp           string
	Signature           string
	Retry               string
	SubscriptionType    string
	SubscriptionVersion string
}

// ParseHeaders requires non-empty message id, timestamp and signature.
// The error names only the missing header names.
func ParseHeaders(h http.Header) (Headers, error) {
	parsed := Headers{
		MessageID: strings.TrimSpace(h.Get(HeaderMessageID)),
		Timestamp: strings.TrimSpace(h.Get(HeaderMessageTimestamp)),
		Signature: strings.TrimSpace(h.Get(HeaderMessageSignature)),
		Retry:     strings.TrimSpace(h.Get(HeaderMessageRetry)),

		SubscriptionType:    strings.TrimSpace(h.Get(HeaderSubscriptionType)),
		SubscriptionVersion: strings.TrimSpace(h.Get(HeaderSubscriptionVersion)),
	}

	var missing []string
	if parsed.MessageID == "" {
		missing = append(missing, HeaderMessageID)
	}
	if parsed.Timestamp == "" {
		missing = append(missing, HeaderMessageTimestamp)
	}
	if parsed.Signature == "" {
		missing = append(missing, HeaderMessageSignature)
	}
	if len(missing) > 0 {
		return Headers{}, fmt.Errorf("%w: %s", ErrMissingHeaders, strings.Join(missing, ", "))
	}

	return parsed, nil
}

// Time parses the RFC3339 timestamp header. Twitch sends nanosecond precision.
func (h Headers) Time() (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, h.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	return ts, nil
}

// Envelope pairs the headers with the raw body and a decrypted secret.
func (h Headers) Envelope(body, secret []byte) Envelope {
	return Envelope{
		MessageID: h.MessageID,
		Timestamp: h.Timestamp,
		Body:      body,
		Signature: h.Signature,
		Secret:    secret,
	}
}
