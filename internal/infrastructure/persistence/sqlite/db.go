// Package sqlite carries a SQL transaction through context so repositories
// called inside a lifecycle transition share one unit of work.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/port"
)

type txKey struct{}

// DB implements port.TransactionManager over a SQLite handle
type DB struct {
	sqlDB  *sql.DB
	logger *zap.Logger

	busyRetries int
	busyBackoff time.Duration
}

// Option configures the transaction manager
type Option func(*DB)

// WithBusyRetry re-runs a whole transaction up to retries more times when
// SQLite reports the database busy or locked past its busy timeout.
func WithBusyRetry(retries int, backoff time.Duration) Option {
	return func(db *DB) {
		db.busyRetries = retries
		db.busyBackoff = backoff
	}
}

// NewDB creates a transaction manager. By default a busy store is retried twice.
func NewDB(sqlDB *sql.DB, logger *zap.Logger, opts ...Option) *DB {
	db := &DB{
		sqlDB:       sqlDB,
		logger:      logger,
		busyRetries: 2,
		busyBackoff: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// WithTransaction implements port.TransactionManager.
// Nested calls join the transaction already carried by ctx and are never retried on their own.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	for attempt := 0; ; attempt++ {
		err := db.runOnce(ctx, fn)
		if err == nil || !IsBusy(err) || attempt >= db.busyRetries {
			return err
		}

		wait := db.busyBackoff * time.Duration(attempt+1)
		db.logger.Warn("Store busy, retrying transaction",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("store busy: %w", ctx.Err())
		case <-time.After(wait):
		}
	}
}

func (db *DB) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Error("Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			db.logger.Error("Transaction panicked, rolled back", zap.Any("panic", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.Error("Failed to rollback transaction", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		db.logger.Error("Failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InTransaction reports whether ctx carries an open transaction
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// IsBusy reports whether err is SQLite refusing the write lock
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// Executor covers both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ExecutorFrom returns the transaction carried by ctx, or db when there is none
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

var _ port.TransactionManager = (*DB)(nil)
