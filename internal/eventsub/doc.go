// Package eventsub implements the Twitch EventSub webhook wire protocol:
// HMAC message signatures, message type classification and the typed
// parsing of verification headers and payloads.
//
// Everything here is pure. Lookups, secret decryption and state changes
// live in internal/app.
package eventsub
