package logsender

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

// Sender writes notifications to the structured log. Used in development
// and wherever no delivery channel is configured.
type Sender struct {
	logger *zap.Logger
}

// NewSender creates a log-only notification sender
func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

// Name implements port.NotificationSender
func (s *Sender) Name() string {
	return "log"
}

// Send implements port.NotificationSender
func (s *Sender) Send(ctx context.Context, msg *port.NotificationMessage) error {
	s.logger.Info("Notification",
		zap.Int64("notification_id", msg.NotificationID),
		zap.String("event_type", msg.EventType),
		zap.Int64("travel_request_id", msg.TravelRequestID),
		zap.String("recipient", msg.Recipient.Email),
		zap.String("recipient_role", msg.Recipient.Role),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body))
	return nil
}

// Verify interface compliance
var _ port.NotificationSender = (*Sender)(nil)
