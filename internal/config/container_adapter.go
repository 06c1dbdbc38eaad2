package config

import (
	"github.com/garyjia/travel-approval/internal/container"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/directory"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/lark"
	"github.com/garyjia/travel-approval/internal/infrastructure/external/rabbitmq"
	httpapi "github.com/garyjia/travel-approval/internal/interfaces/http"
	"github.com/garyjia/travel-approval/internal/interfaces/http/auth"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			BusyRetries:     c.Database.BusyRetries,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Server: httpapi.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
		Auth: auth.Config{
			Secret: c.Auth.JWTSecret,
			Issuer: c.Auth.Issuer,
			TTL:    c.Auth.TokenTTL,
		},
		Lifecycle: container.LifecycleConfig{
			StoreTimeout:        c.Lifecycle.StoreTimeout,
			NotificationTimeout: c.Lifecycle.NotificationTimeout,
		},
		Notification: container.NotificationConfig{
			Provider:       c.Notification.Provider,
			RetryEnabled:   c.Notification.RetryEnabled,
			RetryInterval:  c.Notification.RetryInterval,
			RetryBatchSize: c.Notification.RetryBatchSize,
			MaxAttempts:    c.Notification.MaxAttempts,
		},
		Lark: lark.Config{
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
			BaseURL:   c.Lark.BaseURL,
			Timeout:   c.Lark.Timeout,
		},
		AMQP: rabbitmq.Config{
			URL:   c.AMQP.URL,
			Queue: c.AMQP.Queue,
		},
		Directory: directory.Config{
			BaseURL: c.Directory.BaseURL,
			Token:   c.Directory.APIToken,
			Timeout: c.Directory.Timeout,
		},
		Redis: container.RedisConfig{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
			CacheTTL: c.Redis.CacheTTL,
		},
	}
}
