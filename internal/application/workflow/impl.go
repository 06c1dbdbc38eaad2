package workflow

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
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/role"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

// engineImpl is the concrete implementation of LifecycleEngine
type engineImpl struct {
	requestRepo port.TravelRequestRepository
	bookingRepo port.BookingRepository
	txManager   port.TransactionManager
	resolver    EntityResolver

	emitter      Emitter
	logger       Logger
	now          func() time.Time
	storeTimeout time.Duration
}

// EngineOption configures the lifecycle engine
type EngineOption func(*engineImpl)

// WithEmitter sets the sink for post-commit events
func WithEmitter(em Emitter) EngineOption {
	return func(e *engineImpl) {
		e.emitter = em
	}
}

// WithLogger sets a logger for the engine
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithStoreTimeout bounds each transaction against the store
func WithStoreTimeout(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.storeTimeout = d
	}
}

// NewEngine creates a new lifecycle engine
func NewEngine(
	requestRepo port.TravelRequestRepository,
	bookingRepo port.BookingRepository,
	txManager port.TransactionManager,
	resolver EntityResolver,
	opts ...EngineOption,
) LifecycleEngine {
	e := &engineImpl{
		requestRepo:  requestRepo,
		bookingRepo:  bookingRepo,
		txManager:    txManager,
		resolver:     resolver,
		now:          time.Now,
		storeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *engineImpl) Create(ctx context.Context, actor *role.Actor, in CreateInput) (*entity.TravelRequest, error) {
	if err := role.Authorize(actor, role.OpCreateRequest).Err(); err != nil {
		return nil, err
	}

	now := e.now().UTC()
	req := &entity.TravelRequest{
		RequesterID:   actor.ID,
		Origin:        strings.TrimSpace(in.Origin),
		Destination:   strings.TrimSpace(in.Destination),
		Destinations:  in.Destinations,
		DepartureDate: in.DepartureDate,
		ReturnDate:    in.ReturnDate,
		Purpose:       in.Purpose,
		CustomPurpose: strings.TrimSpace(in.CustomPurpose),
		Status:        entity.StatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	travelerID, err := e.resolver.ResolveTraveler(ctx, actor.ID, in.Traveler)
	if err != nil {
		return nil, err
	}
	req.TravelerID = travelerID

	projectID, err := e.resolver.ResolveProject(ctx, in.Project)
	if err != nil {
		return nil, err
	}
	req.ProjectID = projectID

	err = e.withStore(ctx, func(txCtx context.Context) error {
		return e.requestRepo.Create(txCtx, req)
	})
	if err != nil {
		return nil, e.storeError("create travel request", err)
	}

	e.logInfo("Travel request created",
		"travel_request_id", req.ID,
		"requester_id", req.RequesterID,
		"traveler_id", req.TravelerID,
	)
	e.emit(ctx, event.NewEvent(event.TypeRequestSubmitted, actor.ID, req, nil))

	return req, nil
}

func (e *engineImpl) Approve(ctx context.Context, actor *role.Actor, id int64, team string) (*entity.TravelRequest, error) {
	if err := role.Authorize(actor, role.OpApproveRequest).Err(); err != nil {
		return nil, err
	}

	team = strings.TrimSpace(team)
	if team == "" {
		return nil, apperr.InvalidInput("assignedOperationsTeam is required")
	}
	if !role.Role(team).IsOperationsTeam() {
		return nil, apperr.InvalidInput("assignedOperationsTeam %q is not an operations team", team)
	}

	updated, err := e.transition(ctx, id, domainwf.TriggerApprove, nil, func(req *entity.TravelRequest, now time.Time) {
		req.PMDecidedBy = int64Ptr(actor.ID)
		req.PMDecidedAt = &now
		req.AssignedOperationsTeam = team
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.NewEvent(event.TypeRequestApproved, actor.ID, updated, map[string]interface{}{
		"assigned_operations_team": team,
	}))
	return updated, nil
}

func (e *engineImpl) Reject(ctx context.Context, actor *role.Actor, id int64, reason string) (*entity.TravelRequest, error) {
	if err := role.Authorize(actor, role.OpRejectRequest).Err(); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.InvalidInput("rejection reason is required")
	}

	updated, err := e.transition(ctx, id, domainwf.TriggerReject, nil, func(req *entity.TravelRequest, now time.Time) {
		req.PMDecidedBy = int64Ptr(actor.ID)
		req.PMDecidedAt = &now
		req.PMRejectionReason = reason
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.NewEvent(event.TypeRequestRejected, actor.ID, updated, map[string]interface{}{
		"reason": reason,
	}))
	return updated, nil
}

func (e *engineImpl) Complete(ctx context.Context, actor *role.Actor, id int64, totalCost *decimal.Decimal) (*CompletionResult, error) {
	if err := role.Authorize(actor, role.OpCompleteRequest).Err(); err != nil {
		return nil, err
	}
	if totalCost != nil && totalCost.IsNegative() {
		return nil, apperr.InvalidInput("totalCost must not be negative")
	}

	var costs entity.CostSummary
	teamCheck := func(ctx context.Context, req *entity.TravelRequest) error {
		if err := req.CheckAssignedTeam(actor); err != nil {
			return err
		}
		bookings, err := e.bookingRepo.ListByRequestID(ctx, req.ID)
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}
		costs = entity.SummarizeCosts(bookings)
		return nil
	}

	updated, err := e.transition(ctx, id, domainwf.TriggerComplete, teamCheck, func(req *entity.TravelRequest, now time.Time) {
		actual := costs.Total
		if totalCost != nil {
			actual = *totalCost
		}
		req.OperationsCompletedBy = int64Ptr(actor.ID)
		req.OperationsCompletedAt = &now
		req.ActualTotalCost = &actual
	})
	if err != nil {
		return nil, err
	}

	e.emit(ctx, event.NewEvent(event.TypeBookingCompleted, actor.ID, updated, map[string]interface{}{
		"booking_count": costs.BookingCount,
		"booking_total": costs.Total.StringFixed(2),
	}))
	return &CompletionResult{Request: updated, Costs: costs}, nil
}

// transition performs one atomic read-verify-write of a request status.
// precheck runs against the stored row before the status check.
func (e *engineImpl) transition(
	ctx context.Context,
	id int64,
	trigger domainwf.Trigger,
	precheck func(ctx context.Context, req *entity.TravelRequest) error,
	stamp func(req *entity.TravelRequest, now time.Time),
) (*entity.TravelRequest, error) {
	var updated *entity.TravelRequest

	err := e.withStore(ctx, func(txCtx context.Context) error {
		current, err := e.requestRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("failed to load travel request: %w", err)
		}
		if current == nil {
			return apperr.NotFound("travel request %d not found", id)
		}

		if precheck != nil {
			if err := precheck(txCtx, current); err != nil {
				return err
			}
		}

		from := domainwf.State(current.Status)
		if !from.IsValid() {
			return fmt.Errorf("travel request %d has unknown status %q", id, current.Status)
		}
		to, err := domainwf.TravelRequest.Next(from, trigger)
		if err != nil {
			return apperr.Conflict("cannot %s travel request %d in status %s", trigger, id, from)
		}

		next := current.Clone()
		now := e.now().UTC()
		next.Status = to.String()
		next.UpdatedAt = now
		stamp(next, now)

		applied, err := e.requestRepo.UpdateTransition(txCtx, next, current.Status)
		if err != nil {
			return fmt.Errorf("failed to update travel request: %w", err)
		}
		if !applied {
			return apperr.Conflict("travel request %d changed status concurrently", id)
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, e.storeError(trigger.String()+" travel request", err)
	}

	e.logInfo("Travel request transitioned",
		"travel_request_id", id,
		"trigger", trigger.String(),
		"status", updated.Status,
	)
	return updated, nil
}

// withStore runs fn in a transaction bounded by the store timeout
func (e *engineImpl) withStore(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.storeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.storeTimeout)
		defer cancel()
	}
	return e.txManager.WithTransaction(ctx, fn)
}

// storeError passes classified errors through and marks timeouts as an unavailable store
func (e *engineImpl) storeError(op string, err error) error {
	if apperr.Code(err) != "INTERNAL" {
		return err
	}
	e.logError("Store operation failed", "operation", op, "error", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.DependencyUnavailable(err, "store timed out during %s", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (e *engineImpl) emit(ctx context.Context, evt *event.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.DispatchAsync(ctx, evt)
}

func (e *engineImpl) logInfo(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Info(msg, keysAndValues...)
	}
}

func (e *engineImpl) logError(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, keysAndValues...)
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}
