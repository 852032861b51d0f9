// Package app provides the application service layer.
//
// Orchestrates use cases: the challenge handshake, the notification and revocation gate,
// enrolment of new streamers and the pending-challenge sweep.
// Sits between HTTP handlers and domain repositories. Depends on domain interfaces, not concrete implementations.
package app
