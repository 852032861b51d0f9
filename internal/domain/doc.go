// Package domain defines the core domain types and interfaces.
//
// This package contains concept-oriented files (errors.go, streamer.go, webhook.go, eventsub.go)
// with shared types and cross-cutting interfaces. No implementation code beyond the
// webhook status transition table - just contracts.
// Prevents circular imports by keeping interfaces on the consumer side.
package domain
