package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Lifecycle    LifecycleConfig    `mapstructure:"lifecycle"`
	Notification NotificationConfig `mapstructure:"notification"`
	Lark         LarkConfig         `mapstructure:"lark"`
	AMQP         AMQPConfig         `mapstructure:"amqp"`
	Directory    DirectoryConfig    `mapstructure:"directory"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	BusyRetries     int           `mapstructure:"busy_retries"`
	MigrationsDir   string        `mapstructure:"migrations_dir"` // empty uses the embedded migrations
}

// AuthConfig holds session token configuration
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LifecycleConfig bounds store and notification calls made by transitions
type LifecycleConfig struct {
	StoreTimeout        time.Duration `mapstructure:"store_timeout"`
	NotificationTimeout time.Duration `mapstructure:"notification_timeout"`
}

// NotificationConfig selects the delivery channel and the retry policy
type NotificationConfig struct {
	Provider       string        `mapstructure:"provider"`
	RetryEnabled   bool          `mapstructure:"retry_enabled"`
	RetryInterval  time.Duration `mapstructure:"retry_interval"`
	RetryBatchSize int           `mapstructure:"retry_batch_size"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	AppID     string        `mapstructure:"app_id"`
	AppSecret string        `mapstructure:"app_secret"`
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// AMQPConfig holds message broker configuration
type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// DirectoryConfig holds the external user/project directory configuration
type DirectoryConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	APIToken string        `mapstructure:"api_token"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// RedisConfig holds the directory cache configuration. An empty addr disables caching.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
	Service    string `mapstructure:"service"`
}

// Load loads configuration from file and environment variables. Variables
// from envFiles (default ".env") are exported first when the files exist;
// they never override the real environment.
func Load(configPath string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := gotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/travel.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.busy_retries", 2)
	v.SetDefault("database.migrations_dir", "")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "travel-approval")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	// Lifecycle defaults
	v.SetDefault("lifecycle.store_timeout", 10*time.Second)
	v.SetDefault("lifecycle.notification_timeout", 5*time.Second)

	// Notification defaults
	v.SetDefault("notification.provider", "log")
	v.SetDefault("notification.retry_enabled", false)
	v.SetDefault("notification.retry_interval", time.Minute)
	v.SetDefault("notification.retry_batch_size", 50)
	v.SetDefault("notification.max_attempts", 3)

	// Lark defaults
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.base_url", "")
	v.SetDefault("lark.timeout", 10*time.Second)

	// AMQP defaults
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.queue", "travel.notifications")

	// Directory defaults
	v.SetDefault("directory.base_url", "")
	v.SetDefault("directory.api_token", "")
	v.SetDefault("directory.timeout", 5*time.Second)

	// Redis defaults
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.service", "travel-approval")
}

// bindEnvVars binds the conventional names of secrets and endpoints
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("lark.app_id", "LARK_APP_ID")
	v.BindEnv("lark.app_secret", "LARK_APP_SECRET")
	v.BindEnv("amqp.url", "AMQP_URL")
	v.BindEnv("directory.base_url", "DIRECTORY_BASE_URL")
	v.BindEnv("directory.api_token", "DIRECTORY_API_TOKEN")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("notification.provider", "NOTIFICATION_PROVIDER")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	switch c.Notification.Provider {
	case "log":
	case "lark":
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required for the lark provider")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required for the lark provider")
		}
	case "amqp":
		if c.AMQP.URL == "" {
			return fmt.Errorf("amqp.url is required for the amqp provider")
		}
	default:
		return fmt.Errorf("unknown notification.provider %q (want log, lark or amqp)", c.Notification.Provider)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	return nil
}
