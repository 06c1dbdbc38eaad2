package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/apperr"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/role"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

const userColumns = `id, email, first_name, last_name, role, active_role, external_id, created_at, updated_at`

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByEmail retrieves a user by normalized email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, "email = ?", entity.NormalizeEmail(email))
}

// GetByExternalID retrieves a user by directory ID
func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*entity.User, error) {
	return r.getOne(ctx, "external_id = ?", externalID)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg interface{}) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.getExecutor(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("where", where), zap.Any("arg", arg), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// List returns every user ordered by ID
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
}

// ListByRole returns users whose stored role is r
func (r *UserRepository) ListByRole(ctx context.Context, rl role.Role) ([]*entity.User, error) {
	return r.list(ctx, `SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id ASC`, string(rl))
}

func (r *UserRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.User, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpsertByEmail inserts the user, or refreshes the names of the row sharing its
// email. The stored role and an already linked external id are kept on conflict.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user *entity.User) (*entity.User, error) {
	query := `
		INSERT INTO users (email, first_name, last_name, role, external_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			external_id = COALESCE(users.external_id, excluded.external_id),
			updated_at = excluded.updated_at
	`

	email := entity.NormalizeEmail(user.Email)
	now := orNow(user.UpdatedAt)

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		email,
		user.FirstName,
		user.LastName,
		string(user.Role),
		nullString(user.ExternalID),
		orNow(user.CreatedAt),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("external id %q already belongs to another user", user.ExternalID)
		}
		r.logger.Error("Failed to upsert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	stored, err := r.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("user %s missing after upsert", email)
	}
	if user.ExternalID != "" && stored.ExternalID != user.ExternalID {
		r.logger.Warn("Kept existing external id for user",
			zap.String("email", email),
			zap.String("stored_external_id", stored.ExternalID),
			zap.String("incoming_external_id", user.ExternalID))
	}
	return stored, nil
}

// UpdateRole changes the stored role
func (r *UserRepository) UpdateRole(ctx context.Context, id int64, rl role.Role) error {
	return r.updateColumn(ctx, id, "role", sql.NullString{String: string(rl), Valid: true})
}

// SetActiveRole sets the admin view override; an empty role clears it
func (r *UserRepository) SetActiveRole(ctx context.Context, id int64, rl role.Role) error {
	return r.updateColumn(ctx, id, "active_role", nullString(string(rl)))
}

func (r *UserRepository) updateColumn(ctx context.Context, id int64, column string, value sql.NullString) error {
	query := `UPDATE users SET ` + column + ` = ?, updated_at = ? WHERE id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update user",
			zap.Int64("id", id),
			zap.String("column", column),
			zap.Error(err))
		return fmt.Errorf("failed to update user %s: %w", column, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return apperr.NotFound("user %d not found", id)
	}
	return nil
}

func scanUser(row rowScanner) (*entity.User, error) {
	var user entity.User
	var (
		userRole   string
		activeRole sql.NullString
		externalID sql.NullString
	)

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&userRole,
		&activeRole,
		&externalID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = role.Role(userRole)
	user.ActiveRole = role.Role(activeRole.String)
	user.ExternalID = externalID.String
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

// getExecutor returns appropriate executor based on context
func (r *UserRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.UserRepository = (*UserRepository)(nil)
