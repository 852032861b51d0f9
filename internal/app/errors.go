package app

import (
	"errors"

	"github.com/pscheid92/eventsub-gate/internal/crypto"
	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
	apperrors "github.com/pscheid92/eventsub-gate/internal/platform/errors"
)

var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrSecretDecryptionFailed = errors.New("secret decryption failed")
	ErrSignatureMismatch      = errors.New("signature mismatch")
	ErrStaleMessage           = errors.New("eventsub message outside the accepted age window")
	ErrMissingEncryptionKey   = errors.New("secret codec not configured")
)

// Verification outcomes as recorded by a Recorder.
const (
	OutcomeVerified          = "verified"
	OutcomeDuplicate         = "duplicate"
	OutcomeInvalidRequest    = "invalid_request"
	OutcomeNotFound          = "not_found"
	OutcomeDecryptFailed     = "decrypt_failed"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeStale             = "stale"
	OutcomeError             = "error"
)

// classifyError maps a failure to the structured error returned to the HTTP
// layer and the outcome label it is counted under. Decryption and signature
// failures share one external message.
func classifyError(err error) (*apperrors.Error, string) {
	switch {
	case errors.Is(err, ErrMissingEncryptionKey):
		return apperrors.ConfigurationError("server misconfigured", err), OutcomeError
	case errors.Is(err, eventsub.ErrMissingHeaders),
		errors.Is(err, eventsub.ErrMalformedChallengeBody),
		errors.Is(err, eventsub.ErrMalformedPayload),
		errors.Is(err, eventsub.ErrInvalidTimestamp):
		return apperrors.ValidationError("invalid request", err), OutcomeInvalidRequest
	case errors.Is(err, ErrSubscriptionNotFound), errors.Is(err, domain.ErrWebhookNotFound):
		return apperrors.NotFoundError("subscription not found", err), OutcomeNotFound
	case errors.Is(err, ErrSecretDecryptionFailed),
		errors.Is(err, crypto.ErrAuthenticationFailed),
		errors.Is(err, crypto.ErrInvalidCiphertext):
		return apperrors.AuthenticationError("verification failed", err), OutcomeDecryptFailed
	case errors.Is(err, ErrSignatureMismatch):
		return apperrors.AuthenticationError("verification failed", err), OutcomeSignatureMismatch
	case errors.Is(err, ErrStaleMessage):
		return apperrors.AuthenticationError("verification failed", err), OutcomeStale
	default:
		return apperrors.InternalError("internal server error", err), OutcomeError
	}
}
