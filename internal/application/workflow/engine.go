package workflow

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// LifecycleEngine owns every status change of a travel request
type LifecycleEngine interface {
	// Create validates and stores a new request in status submitted
	Create(ctx context.Context, actor *role.Actor, in CreateInput) (*entity.TravelRequest, error)

	// Approve moves a submitted request to pm_approved and assigns a region team
	Approve(ctx context.Context, actor *role.Actor, id int64, team string) (*entity.TravelRequest, error)

	// Reject moves a submitted request to pm_rejected with a mandatory reason
	Reject(ctx context.Context, actor *role.Actor, id int64, reason string) (*entity.TravelRequest, error)

	// Complete closes an approved request on behalf of its assigned team.
	// A nil totalCost defaults to the sum of the attached bookings.
	Complete(ctx context.Context, actor *role.Actor, id int64, totalCost *decimal.Decimal) (*CompletionResult, error)
}

// EntityRef points at a traveler or project either locally or in the directory
type EntityRef struct {
	ID         *int64
	ExternalID string
}

// IsZero reports whether neither reference is set
func (r EntityRef) IsZero() bool {
	return r.ID == nil && r.ExternalID == ""
}

// CreateInput carries the caller-supplied fields of a new request
type CreateInput struct {
	Origin        string
	Destination   string
	Destinations  []string
	DepartureDate time.Time
	ReturnDate    time.Time
	Purpose       string
	CustomPurpose string
	Traveler      EntityRef
	Project       EntityRef
}

// CompletionResult is the completed request plus its booking cost summary
type CompletionResult struct {
	Request *entity.TravelRequest `json:"request"`
	Costs   entity.CostSummary    `json:"costs"`
}

// EntityResolver maps traveler and project references onto local ids,
// reconciling from the directory when needed
type EntityResolver interface {
	ResolveTraveler(ctx context.Context, requesterID int64, ref EntityRef) (int64, error)
	ResolveProject(ctx context.Context, ref EntityRef) (*int64, error)
}

// Emitter receives lifecycle events after their transition has committed
type Emitter interface {
	DispatchAsync(ctx context.Context, evt *event.Event)
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}
