package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

// BookingRepository implements port.BookingRepository
type BookingRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBookingRepository creates a new booking repository
func NewBookingRepository(db *sql.DB, logger *zap.Logger) port.BookingRepository {
	return &BookingRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a booking
func (r *BookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (
			travel_request_id, type, provider, cost, reference, status, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := orNow(booking.CreatedAt)
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		booking.TravelRequestID,
		booking.Type,
		booking.Provider,
		booking.Cost,
		nullString(booking.Reference),
		booking.Status,
		booking.CreatedBy,
		createdAt,
	)
	if err != nil {
		r.logger.Error("Failed to create booking",
			zap.Int64("travel_request_id", booking.TravelRequestID),
			zap.Error(err))
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = createdAt
	return nil
}

// GetByID retrieves a booking by ID
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*entity.Booking, error) {
	query := `
		SELECT id, travel_request_id, type, provider, cost, reference, status, created_by, created_at
		FROM bookings
		WHERE id = ?
	`

	booking, err := scanBooking(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get booking", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// ListByRequestID returns bookings of a travel request in creation order
func (r *BookingRepository) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.Booking, error) {
	query := `
		SELECT id, travel_request_id, type, provider, cost, reference, status, created_by, created_at
		FROM bookings
		WHERE travel_request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list bookings", zap.Int64("travel_request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	var reference sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.TravelRequestID,
		&booking.Type,
		&booking.Provider,
		&booking.Cost,
		&reference,
		&booking.Status,
		&booking.CreatedBy,
		&booking.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.Reference = reference.String
	booking.CreatedAt = booking.CreatedAt.UTC()
	return &booking, nil
}

// getExecutor returns appropriate executor based on context
func (r *BookingRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.BookingRepository = (*BookingRepository)(nil)
