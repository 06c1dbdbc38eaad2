// Package container provides dependency injection and lifecycle management
// for the travel approval service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/travel-approval/internal/infrastructure/external/directory"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/rabbitmq"
	httpapi "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/internal/interfaces/http/auth"
)

// Notification providers
const (
	ProviderLog  = "log"
	ProviderLark = "lark"
	ProviderAMQP = "amqp"
)

// Config holds all configuration for the Container.
type Config struct {
	Database     DatabaseConfig
	Server       httpapi.ServerConfig
	Auth         auth.Config
	Lifecycle    LifecycleConfig
	Notification NotificationConfig
	Lark         lark.Config
	AMQP         rabbitmq.Config
	Directory    directory.Config
	Redis        RedisConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long one statement waits on the write lock.
	// BusyRetries re-runs a whole transaction that still found the store busy.
	BusyTimeout time.Duration
	BusyRetries int

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// LifecycleConfig bounds the lifecycle engine's external calls.
type LifecycleConfig struct {
	StoreTimeout        time.Duration
	NotificationTimeout time.Duration
}

// NotificationConfig selects the delivery channel and retry policy.
type NotificationConfig struct {
	// Provider is one of log, lark or amqp
	Provider string

	RetryEnabled   bool
	RetryInterval  time.Duration
	RetryBatchSize int
	MaxAttempts    int
}

// RedisConfig holds the directory cache settings. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/travel.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
			BusyRetries:     2,
		},
		Server: httpapi.DefaultServerConfig(),
		Auth: auth.Config{
			Issuer: "travel-approval",
			TTL:    12 * time.Hour,
		},
		Lifecycle: LifecycleConfig{
			StoreTimeout:        10 * time.Second,
			NotificationTimeout: 5 * time.Second,
		},
		Notification: NotificationConfig{
			Provider:       ProviderLog,
			RetryInterval:  time.Minute,
			RetryBatchSize: 50,
			MaxAttempts:    3,
		},
		AMQP: rabbitmq.Config{
			Queue: "travel.notifications",
		},
		Directory: directory.Config{
			Timeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			CacheTTL: 10 * time.Minute,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Notification.Provider {
	case ProviderLog:
	case ProviderLark:
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required for the lark provider")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required for the lark provider")
		}
	case ProviderAMQP:
		if c.AMQP.URL == "" {
			return fmt.Errorf("amqp.url is required for the amqp provider")
		}
	default:
		return fmt.Errorf("unknown notification.provider %q", c.Notification.Provider)
	}

	if c.Notification.RetryEnabled && c.Notification.MaxAttempts <= 0 {
		return fmt.Errorf("notification.max_attempts must be positive when retry is enabled")
	}

	return nil
}
