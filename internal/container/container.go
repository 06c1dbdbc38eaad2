package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/application/service"
	"github.com/garyjia/travel-approval/internal/application/workflow"
	"github.com/garyjia/travel-approval/internal/infrastructure/export"
	"github.com/garyjia/travel-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/travel-approval/internal/infrastructure/worker"
	httpapi "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/pkg/database"
)

// Container owns every long-lived component of the service.
// Start builds them stage by stage; each stage that acquires a resource
// pushes a closer, and Close (or a failed Start) releases them last-in first-out.
type Container struct {
	config *Config
	logger *zap.Logger

	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	sender    *SenderBundle
	redis     *redis.Client
	directory port.Directory
	exporter  *export.XLSXExporter

	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle
	engine     workflow.LifecycleEngine
	server     *httpapi.Server
	workers    *worker.Group

	mu      sync.Mutex
	state   lifecycleState
	cancel  context.CancelFunc
	closers []closer
}

type lifecycleState int

const (
	stateNew lifecycleState = iota
	stateReady
	stateClosed
)

type closer struct {
	name string
	fn   func() error
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// RepositoryBundle groups the store adapters
type RepositoryBundle struct {
	TravelRequest port.TravelRequestRepository
	Booking       port.BookingRepository
	User          port.UserRepository
	Project       port.ProjectRepository
	Notification  port.NotificationRepository
}

// ServiceBundle groups the application services
type ServiceBundle struct {
	TravelRequest service.TravelRequestService
	Booking       service.BookingService
	User          service.UserService
	Project       service.ProjectService
	Identity      service.IdentityService
	Notification  service.NotificationService
}

// HealthStatus is the per-component health report
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates cfg. Nothing is opened until Start.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{config: cfg, logger: logger}, nil
}

// Start opens the store, connects external channels, wires the services and
// the lifecycle engine, builds the HTTP server and starts background workers.
// The server is not listening; callers run Server().Start.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case stateReady:
		return fmt.Errorf("container already started")
	case stateClosed:
		return fmt.Errorf("container has been closed")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	stages := []stage{
		{"database", c.initDatabase},
		{"external clients", c.initExternalClients},
		{"services", c.initServices},
		{"lifecycle engine", c.initEngineAndServer},
		{"workers", c.initWorkers},
	}
	for _, s := range stages {
		if err := s.run(runCtx); err != nil {
			c.logger.Error("Container stage failed", zap.String("stage", s.name), zap.Error(err))
			if closeErr := c.release(); closeErr != nil {
				c.logger.Warn("Partial start not fully released", zap.Error(closeErr))
			}
			c.state = stateClosed
			return fmt.Errorf("failed to initialize %s: %w", s.name, err)
		}
		c.logger.Debug("Container stage ready", zap.String("stage", s.name))
	}

	c.state = stateReady
	c.logger.Info("Container started",
		zap.String("notification_provider", c.sender.Sender.Name()),
		zap.Bool("directory", c.directory != nil),
		zap.Bool("cache", c.redis != nil),
		zap.Int("workers", c.workers.Len()))
	return nil
}

// Close stops workers, drains the dispatcher and releases connections
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateClosed {
		return fmt.Errorf("container already closed")
	}
	c.state = stateClosed

	c.logger.Info("Closing container")
	if err := c.release(); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed")
	return nil
}

func (c *Container) onClose(name string, fn func() error) {
	c.closers = append(c.closers, closer{name: name, fn: fn})
}

// release runs the registered closers newest first and forgets them
func (c *Container) release() error {
	if c.cancel != nil {
		c.cancel()
	}

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		cl := c.closers[i]
		if err := cl.fn(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cl.name, err))
			continue
		}
		c.logger.Debug("Component closed", zap.String("component", cl.name))
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Ready reports whether Start completed and Close has not been called
func (c *Container) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateReady
}

// Health probes each component. The cache is optional and never fails the overall status.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Overall: true, Components: make(map[string]ComponentHealth)}
	report := func(name string, h ComponentHealth, critical bool) {
		status.Components[name] = h
		if critical && !h.Healthy {
			status.Overall = false
		}
	}

	if c.db == nil {
		report("database", ComponentHealth{Message: "not initialized"}, true)
	} else if err := c.db.PingContext(ctx); err != nil {
		report("database", ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}, true)
	} else {
		report("database", ComponentHealth{Healthy: true}, true)
	}

	if c.redis != nil {
		h := ComponentHealth{Healthy: true}
		if err := c.redis.Ping(ctx).Err(); err != nil {
			h = ComponentHealth{Message: err.Error()}
		}
		report("cache", h, false)
	}

	if c.workers != nil {
		h := ComponentHealth{
			Healthy: c.workers.Len() == 0 || c.workers.Running(),
			Message: fmt.Sprintf("worker count: %d", c.workers.Len()),
		}
		if failed := c.workers.Failed(); len(failed) > 0 {
			h = ComponentHealth{Message: "failed to start: " + strings.Join(failed, ", ")}
		}
		report("workers", h, true)
	}

	if c.dispatcher == nil {
		report("dispatcher", ComponentHealth{Message: "not initialized"}, true)
	} else {
		report("dispatcher", ComponentHealth{
			Healthy: true,
			Message: fmt.Sprintf("pending deliveries: %d", c.dispatcher.Pending()),
		}, true)
	}

	return status
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr
	c.onClose("database", c.db.Close)

	c.repositories, err = ProvideRepositories(c.db, c.logger)
	return err
}

func (c *Container) initExternalClients(ctx context.Context) error {
	sender, err := ProvideSender(c.config, c.logger)
	if err != nil {
		return err
	}
	c.sender = sender
	if sender.Close != nil {
		c.onClose("notification channel", sender.Close)
	}

	c.redis = ProvideRedis(ctx, &c.config.Redis, c.logger)
	if c.redis != nil {
		c.onClose("cache", c.redis.Close)
	}
	c.directory = ProvideDirectory(c.config, c.redis, c.logger)
	c.exporter = ProvideExporter(c.logger)
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	disp, err := ProvideDispatcher(c.config.Lifecycle, c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp
	// Registered after the channel so pending notifications drain before it closes.
	c.onClose("dispatcher", func() error {
		if err := disp.Close(); err != nil && !errors.Is(err, dispatcher.ErrClosed) {
			return err
		}
		return nil
	})

	c.services, err = ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Sender:     c.sender.Sender,
		Directory:  c.directory,
		Exporter:   c.exporter,
		Dispatcher: c.dispatcher,
		Lifecycle:  c.config.Lifecycle,
		Logger:     c.logger,
	})
	return err
}

func (c *Container) initEngineAndServer(ctx context.Context) error {
	engine, err := ProvideLifecycleEngine(&WorkflowDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Resolver:   c.services.Identity,
		Dispatcher: c.dispatcher,
		Lifecycle:  c.config.Lifecycle,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.engine = engine

	c.server, err = ProvideHTTPServer(&HTTPDeps{
		Config:   c.config.Server,
		Auth:     c.config.Auth,
		Engine:   c.engine,
		Services: c.services,
		Exporter: c.exporter,
		DB:       c.db,
		Logger:   c.logger,
	})
	return err
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&c.config.Notification, c.services.Notification, c.logger)
	if err != nil {
		return err
	}
	c.workers = workers
	if err := workers.Run(ctx); err != nil {
		return err
	}
	c.onClose("workers", workers.Shutdown)
	return nil
}

func (c *Container) Repositories() *RepositoryBundle   { return c.repositories }
func (c *Container) Services() *ServiceBundle          { return c.services }
func (c *Container) Engine() workflow.LifecycleEngine  { return c.engine }
func (c *Container) Dispatcher() dispatcher.Dispatcher { return c.dispatcher }
func (c *Container) Server() *httpapi.Server           { return c.server }
func (c *Container) Workers() *worker.Group            { return c.workers }
func (c *Container) Logger() *zap.Logger               { return c.logger }
func (c *Container) Config() *Config                   { return c.config }
