package httpserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/eventsub-gate/internal/eventsub"
	apperrors "github.com/pscheid92/eventsub-gate/internal/platform/errors"
)

// handleEventSub routes one inbound EventSub message by its message type. The
// body is read once and passed on unmodified; the HMAC is computed over it.
func (s *Server) handleEventSub(c echo.Context) error {
	req := c.Request()

	body, err := io.ReadAll(req.Body)
	if err != nil {
		return apperrors.ValidationError("failed to read request body", err)
	}

	messageType, err := eventsub.Classify(req.Header.Get(eventsub.HeaderMessageType))
	if err != nil {
		return apperrors.ValidationError("unrecognized message type", err)
	}

	ctx := req.Context()
	switch messageType {
	case eventsub.MessageTypeVerification:
		challenge, err := s.handshake.Complete(ctx, req.Header, body)
		if err != nil {
			return err
		}
		if err := c.Blob(http.StatusOK, echo.MIMETextPlain, []byte(challenge)); err != nil {
			return fmt.Errorf("failed to write challenge response: %w", err)
		}
		return nil
	case eventsub.MessageTypeNotification:
		if err := s.gate.Notification(ctx, req.Header, body); err != nil {
			return err
		}
	case eventsub.MessageTypeRevocation:
		if err := s.gate.Revocation(ctx, req.Header, body); err != nil {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}
