package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"
)

// Application environments.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	S3        S3Config
	Artifacts ArtifactsConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	Scheduler SchedulerConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env string
}

// IsProduction reports whether strict production behaviour applies.
func (c AppConfig) IsProduction() bool {
	return c.Env == EnvProduction
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	MaxConnections  int
	MinConnections  int
	MaxConnLifetime int // seconds
	AutoMigrate     bool
}

// DefaultServiceName tags log entries when LOG_SERVICE_NAME is unset.
const DefaultServiceName = "surplus-market"

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level   string
	Format  string // "json" or "console"
	Service string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret string
}

// S3Config holds AWS S3 configuration for pickup artifacts.
type S3Config struct {
	Enabled bool
	Bucket  string
	Region  string
	Prefix  string // Path prefix within bucket (e.g., "pickup-codes/")
	BaseURL string // Public URL prefix for stored objects
}

// ArtifactsConfig holds local storage for pickup artifacts.
type ArtifactsConfig struct {
	Dir     string
	BaseURL string
}

// RedisConfig holds the notification dedup store.
type RedisConfig struct {
	Enabled bool
	URL     string
}

// PaymentConfig holds Mercado Pago settings.
type PaymentConfig struct {
	AccessToken     string
	WebhookSecret   string
	BaseURL         string
	NotificationURL string
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	RetryAttempts   int
}

// SigningSecret returns the webhook secret, falling back to the access token.
func (c PaymentConfig) SigningSecret() string {
	if c.WebhookSecret != "" {
		return c.WebhookSecret
	}
	return c.AccessToken
}

// SchedulerConfig holds the reconciliation job scheduler settings.
type SchedulerConfig struct {
	Enabled  bool
	Timezone string
}

// Location returns the scheduler time zone.
func (c SchedulerConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", EnvDevelopment),
		},
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "surplus"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MinConnections:  getEnvAsInt("DB_MIN_CONNECTIONS", 5),
			MaxConnLifetime: getEnvAsInt("DB_MAX_CONN_LIFETIME", 300),
			AutoMigrate:     getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  getEnv("LOG_FORMAT", "json"),
			Service: getEnv("LOG_SERVICE_NAME", DefaultServiceName),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		S3: S3Config{
			Enabled: getEnvAsBool("S3_ENABLED", false),
			Bucket:  getEnv("S3_BUCKET", ""),
			Region:  getEnv("S3_REGION", "sa-east-1"),
			Prefix:  getEnv("S3_PREFIX", "pickup-codes/"),
			BaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Artifacts: ArtifactsConfig{
			Dir:     getEnv("ARTIFACTS_DIR", "./data/pickup-codes"),
			BaseURL: getEnv("ARTIFACTS_BASE_URL", "/static/pickup-codes"),
		},
		Redis: RedisConfig{
			Enabled: getEnvAsBool("REDIS_ENABLED", false),
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Payment: PaymentConfig{
			AccessToken:     getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
			WebhookSecret:   getEnv("MERCADOPAGO_WEBHOOK_SECRET", ""),
			BaseURL:         getEnv("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"),
			NotificationURL: getEnv("MERCADOPAGO_NOTIFICATION_URL", ""),
			Timeout:         getEnvAsDuration("MERCADOPAGO_TIMEOUT", 5*time.Second),
			MaxRetries:      getEnvAsInt("MERCADOPAGO_MAX_RETRIES", 3),
			RetryDelay:      getEnvAsDuration("WEBHOOK_RETRY_DELAY", time.Minute),
			RetryAttempts:   getEnvAsInt("WEBHOOK_RETRY_ATTEMPTS", 3),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getEnvAsBool("SCHEDULER_ENABLED", true),
			Timezone: getEnv("SCHEDULER_TIMEZONE", "America/Sao_Paulo"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.App.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("invalid app environment: %s (must be development, test, or production)", c.App.Env)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required when redis is enabled")
	}

	if c.Payment.Timeout <= 0 {
		return fmt.Errorf("payment gateway timeout must be positive")
	}

	if c.Payment.MaxRetries < 0 {
		return fmt.Errorf("payment gateway max retries cannot be negative")
	}

	if c.App.IsProduction() && c.Payment.SigningSecret() == "" {
		return fmt.Errorf("webhook secret or access token is required in production")
	}

	if _, err := c.Scheduler.Location(); err != nil {
		return fmt.Errorf("invalid scheduler timezone: %s", c.Scheduler.Timezone)
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration or returns a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
