package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/filter"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

const travelRequestColumns = `
	id, requester_id, traveler_id, origin, destination, destinations,
	departure_date, return_date, purpose, custom_purpose, project_id, status,
	pm_decided_by, pm_decided_at, pm_rejection_reason, assigned_operations_team,
	operations_completed_by, operations_completed_at, actual_total_cost,
	created_at, updated_at`

// TravelRequestRepository implements port.TravelRequestRepository
type TravelRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTravelRequestRepository creates a new travel request repository
func NewTravelRequestRepository(db *sql.DB, logger *zap.Logger) port.TravelRequestRepository {
	return &TravelRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new travel request
func (r *TravelRequestRepository) Create(ctx context.Context, req *entity.TravelRequest) error {
	destinations, err := encodeDestinations(req.Destinations)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO travel_requests (
			requester_id, traveler_id, origin, destination, destinations,
			departure_date, return_date, purpose, custom_purpose, project_id, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := orNow(req.CreatedAt)
	updatedAt := orNow(req.UpdatedAt)

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.RequesterID,
		req.TravelerID,
		req.Origin,
		req.Destination,
		destinations,
		req.DepartureDate.Format(entity.DateLayout),
		req.ReturnDate.Format(entity.DateLayout),
		req.Purpose,
		nullString(req.CustomPurpose),
		nullInt64(req.ProjectID),
		req.Status,
		createdAt,
		updatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create travel request", zap.Error(err))
		return fmt.Errorf("failed to create travel request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	req.CreatedAt = createdAt
	req.UpdatedAt = updatedAt
	return nil
}

// GetByID retrieves a travel request by ID
func (r *TravelRequestRepository) GetByID(ctx context.Context, id int64) (*entity.TravelRequest, error) {
	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests WHERE id = ?`

	req, err := scanTravelRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get travel request", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get travel request: %w", err)
	}
	return req, nil
}

// List returns requests matching f, newest first
func (r *TravelRequestRepository) List(ctx context.Context, f filter.Filter) ([]*entity.TravelRequest, error) {
	where, args := buildWhere(f)

	query := `SELECT ` + travelRequestColumns + ` FROM travel_requests` + where +
		` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list travel requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list travel requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.TravelRequest
	for rows.Next() {
		req, err := scanTravelRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan travel request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// buildWhere translates the filter predicate into SQL
func buildWhere(f filter.Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.RequesterID != nil {
		clauses = append(clauses, "requester_id = ?")
		args = append(args, *f.RequesterID)
	}
	if len(f.Statuses) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.Statuses)), ",")
		clauses = append(clauses, "status IN ("+placeholders+")")
		for _, s := range f.Statuses {
			args = append(args, s)
		}
	}
	if f.AssignedTeam != "" {
		clauses = append(clauses, "assigned_operations_team = ?")
		args = append(args, f.AssignedTeam)
	}
	if f.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *f.ProjectID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// UpdateTransition writes the lifecycle fields guarded by the expected status
func (r *TravelRequestRepository) UpdateTransition(ctx context.Context, req *entity.TravelRequest, expectedStatus string) (bool, error) {
	query := `
		UPDATE travel_requests SET
			status = ?,
			pm_decided_by = ?,
			pm_decided_at = ?,
			pm_rejection_reason = ?,
			assigned_operations_team = ?,
			operations_completed_by = ?,
			operations_completed_at = ?,
			actual_total_cost = ?,
			updated_at = ?
		WHERE id = ? AND status = ?
	`

	var cost decimal.NullDecimal
	if req.ActualTotalCost != nil {
		cost = decimal.NewNullDecimal(*req.ActualTotalCost)
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.Status,
		nullInt64(req.PMDecidedBy),
		nullTime(req.PMDecidedAt),
		nullString(req.PMRejectionReason),
		nullString(req.AssignedOperationsTeam),
		nullInt64(req.OperationsCompletedBy),
		nullTime(req.OperationsCompletedAt),
		cost,
		orNow(req.UpdatedAt),
		req.ID,
		expectedStatus,
	)
	if err != nil {
		r.logger.Error("Failed to update travel request",
			zap.Int64("id", req.ID),
			zap.String("status", req.Status),
			zap.Error(err))
		return false, fmt.Errorf("failed to update travel request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected == 1, nil
}

// Delete removes a travel request; bookings go with it via ON DELETE CASCADE
func (r *TravelRequestRepository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM travel_requests WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete travel request", zap.Int64("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete travel request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func scanTravelRequest(row rowScanner) (*entity.TravelRequest, error) {
	var req entity.TravelRequest
	var (
		destinations  sql.NullString
		departure     string
		returnDate    string
		customPurpose sql.NullString
		projectID     sql.NullInt64
		pmDecidedBy   sql.NullInt64
		pmDecidedAt   sql.NullTime
		reason        sql.NullString
		team          sql.NullString
		completedBy   sql.NullInt64
		completedAt   sql.NullTime
		actualCost    decimal.NullDecimal
	)

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.TravelerID,
		&req.Origin,
		&req.Destination,
		&destinations,
		&departure,
		&returnDate,
		&req.Purpose,
		&customPurpose,
		&projectID,
		&req.Status,
		&pmDecidedBy,
		&pmDecidedAt,
		&reason,
		&team,
		&completedBy,
		&completedAt,
		&actualCost,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if req.DepartureDate, err = time.Parse(entity.DateLayout, departure); err != nil {
		return nil, fmt.Errorf("invalid departure_date %q: %w", departure, err)
	}
	if req.ReturnDate, err = time.Parse(entity.DateLayout, returnDate); err != nil {
		return nil, fmt.Errorf("invalid return_date %q: %w", returnDate, err)
	}
	if destinations.Valid && destinations.String != "" {
		if err := json.Unmarshal([]byte(destinations.String), &req.Destinations); err != nil {
			return nil, fmt.Errorf("invalid destinations: %w", err)
		}
	}

	req.CustomPurpose = customPurpose.String
	req.ProjectID = int64FromNull(projectID)
	req.PMDecidedBy = int64FromNull(pmDecidedBy)
	req.PMDecidedAt = timeFromNull(pmDecidedAt)
	req.PMRejectionReason = reason.String
	req.AssignedOperationsTeam = team.String
	req.OperationsCompletedBy = int64FromNull(completedBy)
	req.OperationsCompletedAt = timeFromNull(completedAt)
	if actualCost.Valid {
		cost := actualCost.Decimal
		req.ActualTotalCost = &cost
	}
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()

	return &req, nil
}

func encodeDestinations(legs []string) (sql.NullString, error) {
	if len(legs) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(legs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode destinations: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// getExecutor returns appropriate executor based on context
func (r *TravelRequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.TravelRequestRepository = (*TravelRequestRepository)(nil)
