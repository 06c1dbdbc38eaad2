package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
)

const notificationColumns = `
	id, travel_request_id, event_type, recipient_email, recipient_role, subject, body,
	status, attempts, error_message, sent_at, created_at, updated_at`

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a delivery record
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			travel_request_id, event_type, recipient_email, recipient_role, subject, body,
			status, attempts, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	status := n.Status
	if status == "" {
		status = entity.NotificationStatusPending
	}
	createdAt := orNow(n.CreatedAt)
	updatedAt := orNow(n.UpdatedAt)

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		n.TravelRequestID,
		n.EventType,
		n.RecipientEmail,
		n.RecipientRole,
		n.Subject,
		n.Body,
		status,
		n.Attempts,
		nullString(n.ErrorMessage),
		createdAt,
		updatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("travel_request_id", n.TravelRequestID),
			zap.String("recipient", n.RecipientEmail),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	n.ID = id
	n.Status = status
	n.CreatedAt = createdAt
	n.UpdatedAt = updatedAt
	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	n, err := scanNotification(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByStatus returns notifications in the given status, newest first
func (r *NotificationRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	return r.list(ctx, query, status, limit)
}

// ListRetryable returns FAILED notifications below maxAttempts, oldest first
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts, limit int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE status = ? AND attempts < ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?`
	return r.list(ctx, query, entity.NotificationStatusFailed, maxAttempts, limit)
}

func (r *NotificationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Notification, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkSent records a successful delivery attempt
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, error_message = NULL, sent_at = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.NotificationStatusSent, now, now, id)
	if err != nil {
		r.logger.Error("Failed to mark notification as sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification as sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entity.NotificationStatusFailed, errMsg, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to mark notification as failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark notification as failed: %w", err)
	}
	return nil
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var n entity.Notification
	var errMsg sql.NullString
	var sentAt sql.NullTime

	err := row.Scan(
		&n.ID,
		&n.TravelRequestID,
		&n.EventType,
		&n.RecipientEmail,
		&n.RecipientRole,
		&n.Subject,
		&n.Body,
		&n.Status,
		&n.Attempts,
		&errMsg,
		&sentAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.ErrorMessage = errMsg.String
	n.SentAt = timeFromNull(sentAt)
	n.CreatedAt = n.CreatedAt.UTC()
	n.UpdatedAt = n.UpdatedAt.UTC()
	return &n, nil
}

// getExecutor returns appropriate executor based on context
func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
