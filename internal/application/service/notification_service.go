package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// NotificationService turns committed lifecycle events into per-recipient deliveries.
// Delivery outcomes are recorded but never affect the transition that caused them.
type NotificationService interface {
	// Register subscribes the service to every lifecycle event
	Register(d dispatcher.Dispatcher)

	HandleEvent(ctx context.Context, evt *event.Event) error

	List(ctx context.Context, actor *role.Actor, status string, limit int) ([]*entity.Notification, error)

	// Retry re-sends one FAILED notification
	Retry(ctx context.Context, actor *role.Actor, id int64) (*entity.Notification, error)

	// RetryFailed re-sends FAILED notifications below maxAttempts and returns how many were delivered
	RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

type notificationServiceImpl struct {
	userRepo         port.UserRepository
	notificationRepo port.NotificationRepository
	sender           port.NotificationSender
	logger           Logger
	sendTimeout      time.Duration
	storeTimeout     time.Duration
	now              func() time.Time
}

// NotificationOption configures the notification service
type NotificationOption func(*notificationServiceImpl)

// WithSendTimeout bounds each send call
func WithSendTimeout(d time.Duration) NotificationOption {
	return func(s *notificationServiceImpl) {
		s.sendTimeout = d
	}
}

// WithNotificationStoreTimeout bounds each write of a notification row
func WithNotificationStoreTimeout(d time.Duration) NotificationOption {
	return func(s *notificationServiceImpl) {
		s.storeTimeout = d
	}
}

// WithNotificationClock overrides the timestamp source
func WithNotificationClock(now func() time.Time) NotificationOption {
	return func(s *notificationServiceImpl) {
		s.now = now
	}
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	userRepo port.UserRepository,
	notificationRepo port.NotificationRepository,
	sender port.NotificationSender,
	logger Logger,
	opts ...NotificationOption,
) NotificationService {
	s := &notificationServiceImpl{
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		sender:           sender,
		logger:           orNop(logger),
		sendTimeout:      5 * time.Second,
		storeTimeout:     10 * time.Second,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{
		event.TypeRequestSubmitted,
		event.TypeRequestApproved,
		event.TypeRequestRejected,
		event.TypeBookingCompleted,
	} {
		d.Subscribe(t, "notification."+t.String(), s.HandleEvent)
	}
}

func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	if evt == nil || evt.Request == nil {
		return fmt.Errorf("event carries no request snapshot")
	}

	candidates, err := s.candidates(ctx, evt)
	if err != nil {
		return fmt.Errorf("load recipients for %s: %w", evt.Type, err)
	}

	recipients := ResolveRecipients(evt.Type, evt.Request, candidates)
	if len(recipients) == 0 {
		s.logger.Info("No recipients for event",
			"event_type", evt.Type,
			"travel_request_id", evt.TravelRequestID,
		)
		return nil
	}

	subject, body := composeMessage(evt)
	now := s.now().UTC()

	// Every recipient gets a row before any send. Recipient work is detached from
	// the handler deadline; each send carries its own budget.
	detached := context.WithoutCancel(ctx)

	var errs []error
	queued := make([]*entity.Notification, 0, len(recipients))
	for _, r := range recipients {
		n := &entity.Notification{
			TravelRequestID: evt.TravelRequestID,
			EventType:       evt.Type.String(),
			RecipientEmail:  r.Email,
			RecipientRole:   r.Role,
			Subject:         subject,
			Body:            body,
			Status:          entity.NotificationStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.record(detached, n); err != nil {
			errs = append(errs, fmt.Errorf("record notification for %s: %w", r.Email, err))
			continue
		}
		queued = append(queued, n)
	}

	for _, n := range queued {
		if err := s.deliver(detached, n); err != nil {
			errs = append(errs, err)
		}
	}

	s.logger.Info("Event notifications processed",
		"event_type", evt.Type,
		"travel_request_id", evt.TravelRequestID,
		"recipients", len(recipients),
		"failures", len(errs),
	)
	return errors.Join(errs...)
}

func (s *notificationServiceImpl) List(ctx context.Context, actor *role.Actor, status string, limit int) ([]*entity.Notification, error) {
	if err := role.Authorize(actor, role.OpListNotifications).Err(); err != nil {
		return nil, err
	}
	switch status {
	case entity.NotificationStatusPending, entity.NotificationStatusSent, entity.NotificationStatusFailed:
	case "":
		status = entity.NotificationStatusFailed
	default:
		return nil, apperr.InvalidInput("unknown notification status %q", status)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.notificationRepo.ListByStatus(ctx, status, limit)
}

func (s *notificationServiceImpl) Retry(ctx context.Context, actor *role.Actor, id int64) (*entity.Notification, error) {
	if err := role.Authorize(actor, role.OpRetryNotification).Err(); err != nil {
		return nil, err
	}

	n, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if n == nil {
		return nil, apperr.NotFound("notification %d not found", id)
	}
	if n.Status != entity.NotificationStatusFailed {
		return nil, apperr.Conflict("notification %d is %s, only FAILED can be retried", id, n.Status)
	}

	if err := s.deliver(ctx, n); err != nil {
		return nil, err
	}
	return s.notificationRepo.GetByID(ctx, id)
}

func (s *notificationServiceImpl) RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error) {
	pending, err := s.notificationRepo.ListRetryable(ctx, maxAttempts, limit)
	if err != nil {
		return 0, fmt.Errorf("list retryable notifications: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := s.deliver(ctx, n); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

func (s *notificationServiceImpl) record(ctx context.Context, n *entity.Notification) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return s.notificationRepo.Create(ctx, n)
}

// storeContext bounds one row write. The caller's cancellation still applies.
func (s *notificationServiceImpl) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout > 0 {
		return context.WithTimeout(ctx, s.storeTimeout)
	}
	return context.WithCancel(ctx)
}

// deliver sends one notification under its own send budget and records the outcome.
// The outcome is written even when ctx has expired during the send.
func (s *notificationServiceImpl) deliver(ctx context.Context, n *entity.Notification) error {
	sendCtx := ctx
	if s.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.sendTimeout)
		defer cancel()
	}

	sendErr := s.sender.Send(sendCtx, &port.NotificationMessage{
		NotificationID:  n.ID,
		EventType:       n.EventType,
		TravelRequestID: n.TravelRequestID,
		Recipient:       port.Recipient{Email: n.RecipientEmail, Role: n.RecipientRole},
		Subject:         n.Subject,
		Body:            n.Body,
	})

	if sendErr != nil {
		s.logger.Error("Notification delivery failed",
			"notification_id", n.ID,
			"recipient", n.RecipientEmail,
			"sender", s.sender.Name(),
			"error", sendErr,
		)
		markCtx, cancel := s.storeContext(context.WithoutCancel(ctx))
		defer cancel()
		if err := s.notificationRepo.MarkFailed(markCtx, n.ID, sendErr.Error()); err != nil {
			s.logger.Error("Failed to record notification failure", "notification_id", n.ID, "error", err)
		}
		return apperr.DependencyUnavailable(sendErr, "notification %d to %s via %s", n.ID, n.RecipientEmail, s.sender.Name())
	}

	markCtx, cancel := s.storeContext(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.notificationRepo.MarkSent(markCtx, n.ID); err != nil {
		s.logger.Error("Failed to record notification delivery", "notification_id", n.ID, "error", err)
		return fmt.Errorf("mark notification %d sent: %w", n.ID, err)
	}
	return nil
}

// candidates loads the superset of users the recipient rules choose from
func (s *notificationServiceImpl) candidates(ctx context.Context, evt *event.Event) ([]*entity.User, error) {
	req := evt.Request
	switch evt.Type {
	case event.TypeRequestSubmitted:
		return s.userRepo.ListByRole(ctx, role.PM)

	case event.TypeRequestApproved:
		if req.AssignedOperationsTeam == "" {
			return nil, nil
		}
		return s.userRepo.ListByRole(ctx, role.Role(req.AssignedOperationsTeam))

	case event.TypeRequestRejected:
		return s.usersByID(ctx, req.RequesterID, req.TravelerID)

	case event.TypeBookingCompleted:
		ids := []int64{req.RequesterID}
		if req.PMDecidedBy != nil {
			ids = append(ids, *req.PMDecidedBy)
		}
		return s.usersByID(ctx, ids...)

	default:
		return nil, nil
	}
}

func (s *notificationServiceImpl) usersByID(ctx context.Context, ids ...int64) ([]*entity.User, error) {
	var users []*entity.User
	for _, id := range ids {
		if id == 0 {
			continue
		}
		u, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = append(users, u)
		}
	}
	return users, nil
}
