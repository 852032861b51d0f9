// Package crypto provides the secret codec for EventSub signing secrets at rest.
//
// Secrets are sealed with AES-256-GCM under a key derived from the process-wide
// password and stored as base64(nonce || ciphertext || tag).
package crypto
