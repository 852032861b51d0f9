package eventsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

const signaturePrefix = "sha256="

// Envelope is everything needed to verify one inbound message. It lives
// for a single verification call and must never be logged.
type Envelope struct {
	MessageID string
	Timestamp string
	Body      []byte
	Signature string
	Secret    []byte
}

// Sign returns "sha256=" followed by the lowercase hex HMAC-SHA256 of
// messageID || timestamp || body keyed with secret.
func Sign(messageID, timestamp string, body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(messageID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether env.Signature matches the expected signature.
// Malformed or empty signatures are simply unequal.
func Verify(env Envelope) bool {
	expected := Sign(env.MessageID, env.Timestamp, env.Body, env.Secret)
	if len(expected) != len(env.Signature) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(env.Signature)) == 1
}
