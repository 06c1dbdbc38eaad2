package port

import (
	"context"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
)

// TravelRequestRepository defines persistence operations for TravelRequest.
// Getters return nil, nil when the row does not exist.
type TravelRequestRepository interface {
	Create(ctx context.Context, req *entity.TravelRequest) error
	GetByID(ctx context.Context, id int64) (*entity.TravelRequest, error)
	List(ctx context.Context, f filter.Filter) ([]*entity.TravelRequest, error)

	// UpdateTransition writes the transition fields only if the stored status still equals
	// expectedStatus. It returns false when another writer got there first.
	UpdateTransition(ctx context.Context, req *entity.TravelRequest, expectedStatus string) (bool, error)

	// Delete removes the request and, through the foreign key, its bookings
	Delete(ctx context.Context, id int64) (bool, error)
}

// BookingRepository defines persistence operations for Booking
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id int64) (*entity.Booking, error)
	ListByRequestID(ctx context.Context, requestID int64) ([]*entity.Booking, error)
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*entity.User, error)
	List(ctx context.Context) ([]*entity.User, error)
	ListByRole(ctx context.Context, r role.Role) ([]*entity.User, error)

	// UpsertByEmail inserts the user or refreshes the row sharing its email, returning the stored row
	UpsertByEmail(ctx context.Context, user *entity.User) (*entity.User, error)

	UpdateRole(ctx context.Context, id int64, r role.Role) error
	SetActiveRole(ctx context.Context, id int64, r role.Role) error
}

// ProjectRepository defines persistence operations for Project
type ProjectRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Project, error)
	GetByExternalID(ctx context.Context, externalID string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)

	// UpsertByExternalID inserts the project or refreshes the row sharing its external id
	UpsertByExternalID(ctx context.Context, project *entity.Project) (*entity.Project, error)
}

// NotificationRepository defines persistence operations for delivery records
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Notification, error)

	// ListRetryable returns FAILED rows with fewer than maxAttempts attempts, oldest first
	ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*entity.Notification, error)

	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
