package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/eventsub-gate/internal/domain"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
)

// SecretDecrypter opens a stored webhook secret. crypto.Codec implements it.
type SecretDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

type verifier struct {
	secrets SecretDecrypter
}

// verify decrypts the webhook secret and checks the message signature against
// the raw body. The plaintext secret does not outlive this call.
func (v verifier) verify(ctx context.Context, wh *domain.WebhookSubscription, hdr eventsub.Headers, body []byte) error {
	if v.secrets == nil {
		return ErrMissingEncryptionKey
	}
	if !wh.HasSecret() {
		return ErrSubscriptionNotFound
	}

	secret, err := v.secrets.Decrypt(*wh.Secret)
	if err != nil {
		slog.WarnContext(ctx, "Failed to decrypt webhook secret", "webhook_id", wh.ID, "error", err)
		return fmt.Errorf("%w: %w", ErrSecretDecryptionFailed, err)
	}

	if !eventsub.Verify(hdr.Envelope(body, []byte(secret))) {
		return ErrSignatureMismatch
	}
	return nil
}
