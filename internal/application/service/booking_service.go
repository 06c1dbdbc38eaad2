package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// BookingInput carries the caller-supplied fields of a new booking
type BookingInput struct {
	TravelRequestID int64
	Type            string
	Provider        string
	Cost            decimal.Decimal
	Reference       string
	Status          string
}

// BookingService attaches bookings to approved requests
type BookingService interface {
	Create(ctx context.Context, actor *role.Actor, in BookingInput) (*entity.Booking, error)

	// ListByRequest returns a request's bookings and their cost summary
	ListByRequest(ctx context.Context, actor *role.Actor, requestID int64) ([]*entity.Booking, entity.CostSummary, error)
}

type bookingServiceImpl struct {
	requestRepo port.TravelRequestRepository
	bookingRepo port.BookingRepository
	txManager   port.TransactionManager
	logger      Logger
	timeout     time.Duration
	now         func() time.Time
}

// BookingOption configures the booking service
type BookingOption func(*bookingServiceImpl)

// WithBookingStoreTimeout bounds the booking transaction
func WithBookingStoreTimeout(d time.Duration) BookingOption {
	return func(s *bookingServiceImpl) {
		s.timeout = d
	}
}

// NewBookingService creates a new BookingService
func NewBookingService(
	requestRepo port.TravelRequestRepository,
	bookingRepo port.BookingRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...BookingOption,
) BookingService {
	s := &bookingServiceImpl{
		requestRepo: requestRepo,
		bookingRepo: bookingRepo,
		txManager:   txManager,
		logger:      orNop(logger),
		timeout:     10 * time.Second,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingServiceImpl) Create(ctx context.Context, actor *role.Actor, in BookingInput) (*entity.Booking, error) {
	if err := role.Authorize(actor, role.OpCreateBooking).Err(); err != nil {
		return nil, err
	}

	booking := &entity.Booking{
		TravelRequestID: in.TravelRequestID,
		Type:            strings.ToLower(strings.TrimSpace(in.Type)),
		Provider:        strings.TrimSpace(in.Provider),
		Cost:            in.Cost,
		Reference:       strings.TrimSpace(in.Reference),
		Status:          in.Status,
		CreatedBy:       actor.ID,
		CreatedAt:       s.now().UTC(),
	}
	if booking.Status == "" {
		booking.Status = entity.BookingStatusConfirmed
	}
	if err := booking.Validate(); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.requestRepo.GetByID(txCtx, in.TravelRequestID)
		if err != nil {
			return fmt.Errorf("get travel request: %w", err)
		}
		if req == nil {
			return apperr.NotFound("travel request %d not found", in.TravelRequestID)
		}
		if err := req.CheckAssignedTeam(actor); err != nil {
			return err
		}
		if req.Status != entity.StatusPMApproved {
			return apperr.Conflict("bookings can only be attached to pm_approved requests, request %d is %s", req.ID, req.Status)
		}
		return s.bookingRepo.Create(txCtx, booking)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.DependencyUnavailable(err, "store timed out attaching booking to request %d", in.TravelRequestID)
		}
		return nil, err
	}

	s.logger.Info("Booking attached",
		"booking_id", booking.ID,
		"travel_request_id", booking.TravelRequestID,
		"type", booking.Type,
		"cost", booking.Cost.String(),
	)
	return booking, nil
}

func (s *bookingServiceImpl) ListByRequest(ctx context.Context, actor *role.Actor, requestID int64) ([]*entity.Booking, entity.CostSummary, error) {
	if err := role.Authorize(actor, role.OpListBookings).Err(); err != nil {
		return nil, entity.CostSummary{}, err
	}

	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, entity.CostSummary{}, fmt.Errorf("get travel request: %w", err)
	}
	if req == nil {
		return nil, entity.CostSummary{}, apperr.NotFound("travel request %d not found", requestID)
	}
	if !canView(actor, req) {
		return nil, entity.CostSummary{}, apperr.Forbidden("travel request %d is outside your view", requestID)
	}

	bookings, err := s.bookingRepo.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, entity.CostSummary{}, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, entity.SummarizeCosts(bookings), nil
}
