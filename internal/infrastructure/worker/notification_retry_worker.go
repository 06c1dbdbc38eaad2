package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// NotificationRetrier re-sends failed notifications
type NotificationRetrier interface {
	RetryFailed(ctx context.Context, maxAttempts, limit int) (int, error)
}

// NotificationRetryWorkerConfig holds configuration for the retry worker
type NotificationRetryWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// DefaultNotificationRetryWorkerConfig returns default configuration
func DefaultNotificationRetryWorkerConfig() NotificationRetryWorkerConfig {
	return NotificationRetryWorkerConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
		MaxAttempts:  3,
	}
}

// NotificationRetryWorker periodically re-sends FAILED notifications below the attempt cap
type NotificationRetryWorker struct {
	config  NotificationRetryWorkerConfig
	retrier NotificationRetrier
	logger  *zap.Logger

	mu           sync.RWMutex
	cancel       context.CancelFunc
	done         chan struct{}
	isRunning    bool
	deliveredSum int
	lastError    error
}

// NewNotificationRetryWorker creates a new retry worker
func NewNotificationRetryWorker(config NotificationRetryWorkerConfig, retrier NotificationRetrier, logger *zap.Logger) *NotificationRetryWorker {
	defaults := DefaultNotificationRetryWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	return &NotificationRetryWorker{
		config:  config,
		retrier: retrier,
		logger:  logger,
	}
}

// Start begins the polling loop
func (w *NotificationRetryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("notification retry worker already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("NotificationRetryWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Int("max_attempts", w.config.MaxAttempts))

	go w.pollLoop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight batch to finish
func (w *NotificationRetryWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("NotificationRetryWorker stopped", zap.Int("delivered", w.Delivered()))
	return nil
}

// Name returns the worker name for identification
func (w *NotificationRetryWorker) Name() string {
	return "NotificationRetryWorker"
}

// Delivered returns how many notifications the worker has re-sent successfully
func (w *NotificationRetryWorker) Delivered() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.deliveredSum
}

func (w *NotificationRetryWorker) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Retry loop context cancelled")
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *NotificationRetryWorker) processBatch(ctx context.Context) {
	delivered, err := w.retrier.RetryFailed(ctx, w.config.MaxAttempts, w.config.BatchSize)

	w.mu.Lock()
	w.deliveredSum += delivered
	w.lastError = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("Notification retry batch had failures",
			zap.Int("delivered", delivered),
			zap.Error(err))
		return
	}
	if delivered > 0 {
		w.logger.Info("Notification retry batch delivered", zap.Int("delivered", delivered))
	}
}
