package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

// Config holds broker settings
type Config struct {
	URL   string
	Queue string
}

// channel is the part of *amqp.Channel the sender uses
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel plus a closer for the underlying connection
type dialFunc func(url string) (channel, func() error, error)

// Sender publishes notifications as persistent JSON messages to a durable queue
// for a downstream mail relay to deliver.
type Sender struct {
	cfg    Config
	dial   dialFunc
	logger *zap.Logger

	mu        sync.Mutex
	ch        channel
	closeConn func() error
}

// NewSender creates a broker-backed notification sender. The connection is opened on first send.
func NewSender(cfg Config, logger *zap.Logger) *Sender {
	if cfg.Queue == "" {
		cfg.Queue = "travel.notifications"
	}
	return &Sender{
		cfg:    cfg,
		dial:   dialBroker,
		logger: logger,
	}
}

func dialBroker(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open failed: %w", err)
	}
	return ch, conn.Close, nil
}

// Name implements port.NotificationSender
func (s *Sender) Name() string {
	return "amqp"
}

// Send implements port.NotificationSender
func (s *Sender) Send(ctx context.Context, msg *port.NotificationMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification failed: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ch, err := s.channelLocked()
	if err != nil {
		s.logger.Error("rabbitmq: connect failed", zap.Error(err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    fmt.Sprintf("notification-%d", msg.NotificationID),
		Type:         msg.EventType,
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx, "", s.cfg.Queue, false, false, pub); err != nil {
		s.logger.Error("rabbitmq: publish failed",
			zap.String("queue", s.cfg.Queue),
			zap.Int64("notification_id", msg.NotificationID),
			zap.Error(err))
		// Drop the channel so the next send reconnects
		s.resetLocked()
		return fmt.Errorf("publish failed: %w", err)
	}

	s.logger.Debug("rabbitmq: notification published",
		zap.String("queue", s.cfg.Queue),
		zap.Int64("notification_id", msg.NotificationID))
	return nil
}

func (s *Sender) channelLocked() (channel, error) {
	if s.ch != nil {
		return s.ch, nil
	}

	ch, closeConn, err := s.dial(s.cfg.URL)
	if err != nil {
		return nil, err
	}

	if _, err := ch.QueueDeclare(s.cfg.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		if closeConn != nil {
			_ = closeConn()
		}
		return nil, fmt.Errorf("queue declare failed: %w", err)
	}

	s.ch = ch
	s.closeConn = closeConn
	return ch, nil
}

func (s *Sender) resetLocked() {
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.closeConn != nil {
		_ = s.closeConn()
	}
	s.ch = nil
	s.closeConn = nil
}

// Close releases the broker connection
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}

// Verify interface compliance
var _ port.NotificationSender = (*Sender)(nil)
