package container

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/infrastructure/export"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/directory"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/logsender"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/rabbitmq"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/repository"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
	httpapi "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/internal/interfaces/http/auth"
	"github.com/garyjia/travel-approval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// SenderBundle holds the configured notification channel and its teardown.
type SenderBundle struct {
	Sender port.NotificationSender
	// Close releases channel resources; nil when there are none
	Close func() error
}

// ProvideDatabase opens the database and runs any pending migrations.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger, sqlite.WithBusyRetry(cfg.BusyRetries, 50*time.Millisecond)),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		TravelRequest: repository.NewTravelRequestRepository(db.DB, logger),
		Booking:       repository.NewBookingRepository(db.DB, logger),
		User:          repository.NewUserRepository(db.DB, logger),
		Project:       repository.NewProjectRepository(db.DB, logger),
		Notification:  repository.NewNotificationRepository(db.DB, logger),
	}, nil
}

// ProvideSender creates the notification channel named by cfg.Provider.
func ProvideSender(cfg *Config, logger *zap.Logger) (*SenderBundle, error) {
	switch cfg.Notification.Provider {
	case ProviderLog, "":
		return &SenderBundle{Sender: logsender.NewSender(logger)}, nil
	case ProviderLark:
		client := lark.NewSDKClient(cfg.Lark, logger)
		return &SenderBundle{Sender: lark.NewSender(client, logger)}, nil
	case ProviderAMQP:
		sender := rabbitmq.NewSender(cfg.AMQP, logger)
		return &SenderBundle{Sender: sender, Close: sender.Close}, nil
	default:
		return nil, fmt.Errorf("unknown notification provider %q", cfg.Notification.Provider)
	}
}

// ProvideRedis creates the cache client, or nil when no address is configured.
func ProvideRedis(ctx context.Context, cfg *RedisConfig, logger *zap.Logger) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		// The cache is optional; lookups fall through to the directory on every miss.
		logger.Warn("Redis unreachable, directory cache will miss", zap.String("addr", cfg.Addr), zap.Error(err))
	}
	return rdb
}

// ProvideDirectory creates the external directory client, cached through redis
// when rdb is non-nil. It returns nil when no directory is configured.
func ProvideDirectory(cfg *Config, rdb *redis.Client, logger *zap.Logger) port.Directory {
	if cfg.Directory.BaseURL == "" {
		logger.Info("No directory configured, external references will be rejected")
		return nil
	}
	client := directory.NewClient(cfg.Directory, logger)
	return directory.NewCachedDirectory(client, rdb, cfg.Redis.CacheTTL, logger)
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Sender     port.NotificationSender
	Directory  port.Directory
	Exporter   port.RequestExporter
	Dispatcher dispatcher.Dispatcher
	Lifecycle  LifecycleConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification service to lifecycle events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Sender == nil {
		return nil, fmt.Errorf("notification sender is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	notifications := service.NewNotificationService(
		deps.Repos.User,
		deps.Repos.Notification,
		deps.Sender,
		serviceLogger,
		service.WithSendTimeout(deps.Lifecycle.NotificationTimeout),
		service.WithNotificationStoreTimeout(deps.Lifecycle.StoreTimeout),
	)
	notifications.Register(deps.Dispatcher)

	return &ServiceBundle{
		TravelRequest: service.NewTravelRequestService(deps.Repos.TravelRequest, deps.Exporter, serviceLogger),
		Booking: service.NewBookingService(
			deps.Repos.TravelRequest,
			deps.Repos.Booking,
			deps.TxManager,
			serviceLogger,
			service.WithBookingStoreTimeout(deps.Lifecycle.StoreTimeout),
		),
		User:         service.NewUserService(deps.Repos.User, serviceLogger),
		Project:      service.NewProjectService(deps.Repos.Project),
		Identity:     service.NewIdentityService(deps.Repos.User, deps.Repos.Project, deps.Directory, serviceLogger),
		Notification: notifications,
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg LifecycleConfig, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	opts := []dispatcher.Option{dispatcher.WithLogger(&zapLoggerAdapter{logger: logger})}
	if cfg.StoreTimeout > 0 {
		// Bounds recipient lookup. Sends carry their own per-recipient budget.
		opts = append(opts, dispatcher.WithHandlerTimeout(cfg.StoreTimeout))
	}
	return dispatcher.NewDispatcher(opts...), nil
}

// WorkflowDeps holds dependencies required for creating the lifecycle engine.
type WorkflowDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Resolver   workflow.EntityResolver
	Dispatcher dispatcher.Dispatcher
	Lifecycle  LifecycleConfig
	Logger     *zap.Logger
}

// ProvideLifecycleEngine creates the lifecycle engine emitting into the dispatcher.
func ProvideLifecycleEngine(deps *WorkflowDeps) (workflow.LifecycleEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("entity resolver is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	opts := []workflow.EngineOption{
		workflow.WithEmitter(deps.Dispatcher),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
	}
	if deps.Lifecycle.StoreTimeout > 0 {
		opts = append(opts, workflow.WithStoreTimeout(deps.Lifecycle.StoreTimeout))
	}

	return workflow.NewEngine(
		deps.Repos.TravelRequest,
		deps.Repos.Booking,
		deps.TxManager,
		deps.Resolver,
		opts...,
	), nil
}

// ProvideExporter creates the request list exporter.
func ProvideExporter(logger *zap.Logger) *export.XLSXExporter {
	return export.NewXLSXExporter(logger)
}

// ProvideWorkers creates the worker group. The retry worker joins it only
// when retries are enabled.
func ProvideWorkers(cfg *NotificationConfig, retrier worker.NotificationRetrier, logger *zap.Logger) (*worker.Group, error) {
	if cfg == nil {
		return nil, fmt.Errorf("notification config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	group := worker.NewGroup(logger)
	if cfg.RetryEnabled {
		if retrier == nil {
			return nil, fmt.Errorf("notification retrier is required")
		}
		group.Add(worker.NewNotificationRetryWorker(worker.NotificationRetryWorkerConfig{
			PollInterval: cfg.RetryInterval,
			BatchSize:    cfg.RetryBatchSize,
			MaxAttempts:  cfg.MaxAttempts,
		}, retrier, logger))
	}
	return group, nil
}

// HTTPDeps holds dependencies required for creating the HTTP server.
type HTTPDeps struct {
	Config   httpapi.ServerConfig
	Auth     auth.Config
	Engine   workflow.LifecycleEngine
	Services *ServiceBundle
	Exporter httpapi.ExportFormat
	DB       httpapi.Pinger
	Logger   *zap.Logger
}

// ProvideHTTPServer creates the HTTP server over the application services.
func ProvideHTTPServer(deps *HTTPDeps) (*httpapi.Server, error) {
	if deps == nil {
		return nil, fmt.Errorf("http dependencies are required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("lifecycle engine is required")
	}

	return httpapi.NewServer(deps.Config, httpapi.Dependencies{
		Engine:        deps.Engine,
		Requests:      deps.Services.TravelRequest,
		Bookings:      deps.Services.Booking,
		Users:         deps.Services.User,
		Projects:      deps.Services.Project,
		Notifications: deps.Services.Notification,
		ExportFormat:  deps.Exporter,
		Tokens:        auth.NewTokens(deps.Auth),
		DB:            deps.DB,
	}, &zapLoggerAdapter{logger: deps.Logger}), nil
}
