// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Workflow     WorkflowConfig
	EventBus     EventBusConfig
	Timer        TimerConfig
	Notification NotificationConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	// Name is the application name, used in logs.
	Name string

	// Env is the deployment environment: "development", "staging", "production".
	Env string

	// LogLevel is the minimum log level: "debug", "info", "warn", "error".
	LogLevel string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL settings for the workflow archive.
type DatabaseConfig struct {
	// URL is the connection string. Empty disables the archive entirely.
	URL string

	// MaxConns is the connection pool ceiling.
	MaxConns int

	// QueryTimeout bounds individual queries.
	QueryTimeout time.Duration
}

// RedisConfig holds Redis settings for the cross-process event bus.
type RedisConfig struct {
	// URL is the connection URL. Empty falls back to the in-memory bus.
	URL string

	// ChannelName is the pub/sub channel carrying workflow events.
	ChannelName string
}

// WorkflowConfig holds per-family workflow settings.
type WorkflowConfig struct {
	// RegistrationTimeout is the advisory timeout string for registration
	// workflows. The engine passes it through without parsing; an
	// unparseable value means no timeout.
	RegistrationTimeout string

	// PostAssessmentTimeout is the advisory timeout string for
	// post-assessment workflows.
	PostAssessmentTimeout string
}

// EventBusConfig holds event bus settings.
type EventBusConfig struct {
	// AsyncMode runs handlers on a worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize is the number of concurrent handler workers.
	WorkerPoolSize int
}

// TimerConfig holds timer service settings.
type TimerConfig struct {
	// Resolution is how often deadlines are checked.
	Resolution time.Duration
}

// NotificationConfig holds notification delivery settings.
type NotificationConfig struct {
	// MaxAttempts is the per-recipient delivery attempt budget.
	MaxAttempts int

	// RetryDelay is the initial backoff delay between attempts.
	RetryDelay time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "onboarding-engine"),
			Env:             getEnv("APP_ENV", "development"),
			LogLevel:        getEnv("LOG_LEVEL", "info"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			MaxConns:     getEnvInt("DATABASE_MAX_CONNS", 10),
			QueryTimeout: getEnvDuration("DATABASE_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			ChannelName: getEnv("REDIS_EVENT_CHANNEL", "onboarding:events"),
		},
		Workflow: WorkflowConfig{
			RegistrationTimeout:   getEnv("REGISTRATION_TIMEOUT", "7 days"),
			PostAssessmentTimeout: getEnv("POST_ASSESSMENT_TIMEOUT", "14 days"),
		},
		EventBus: EventBusConfig{
			AsyncMode:      getEnvBool("EVENT_BUS_ASYNC", true),
			WorkerPoolSize: getEnvInt("EVENT_BUS_WORKERS", 8),
		},
		Timer: TimerConfig{
			Resolution: getEnvDuration("TIMER_RESOLUTION", time.Second),
		},
		Notification: NotificationConfig{
			MaxAttempts: getEnvInt("NOTIFICATION_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvDuration("NOTIFICATION_RETRY_DELAY", 500*time.Millisecond),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Env {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("config: invalid APP_ENV %q", c.App.Env)
	}
	if c.EventBus.WorkerPoolSize <= 0 {
		return fmt.Errorf("config: EVENT_BUS_WORKERS must be positive")
	}
	if c.Timer.Resolution <= 0 {
		return fmt.Errorf("config: TIMER_RESOLUTION must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
