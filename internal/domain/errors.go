package domain

import "errors"

var (
	ErrWebhookNotFound   = errors.New("webhook not found")
	ErrInvalidTransition = errors.New("invalid webhook status transition")
)
