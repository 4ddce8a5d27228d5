package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server      ServerConfig
	DB          DBConfig
	Log         LogConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Maintenance MaintenanceConfig
	Scheduler   SchedulerConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        int    `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name        string `envconfig:"DB_NAME" default:"loyalty_db"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"5"`
	MaxRetries  int    `envconfig:"DB_MAX_RETRIES" default:"5"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

// DSN returns the PostgreSQL connection string used by pgxpool.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("%s&pool_max_conns=%d&pool_min_conns=%d", c.MigrationURL(), c.MaxConns, c.MinConns)
}

// MigrationURL returns the connection string without pgxpool-only parameters.
func (c DBConfig) MigrationURL() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, sslMode)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AuthConfig holds session token configuration.
// WARNING: Default secret is for local development only.
type AuthConfig struct {
	JWTSecret string        `envconfig:"AUTH_JWT_SECRET" default:"dev-secret-change-me"` // CHANGE IN PRODUCTION
	Issuer    string        `envconfig:"AUTH_ISSUER" default:"loyalty-pos"`
	TokenTTL  time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"12h"`
}

// RateLimitConfig bounds requests per session (or IP) per window.
type RateLimitConfig struct {
	Enabled bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Max     int           `envconfig:"RATE_LIMIT_MAX" default:"60"`
	Window  time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
}

// MaintenanceConfig holds the maintenance gate switch.
type MaintenanceConfig struct {
	Enabled bool `envconfig:"MAINTENANCE_ENABLED" default:"false"`
}

// SchedulerConfig holds the coupon expiry sweep configuration.
// ExpirySpec is a six-field cron expression (seconds first).
type SchedulerConfig struct {
	Enabled    bool   `envconfig:"SCHEDULER_ENABLED" default:"true"`
	ExpirySpec string `envconfig:"SCHEDULER_EXPIRY_SPEC" default:"0 */10 * * * *"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
