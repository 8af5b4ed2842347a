package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig
	Unlock  UnlockConfig
	DB      DBConfig
	Stripe  StripeConfig
	Catalog CatalogConfig
	Pricing PricingConfig
	Token   TokenConfig
	Admin   AdminConfig
	Log     LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// UnlockConfig selects the unlock persistence backend. The file backend
// keeps JSON indexes under DataDir; the postgres backend needs the DB
// section configured. Audit records are written under DataDir either way.
type UnlockConfig struct {
	Backend string `envconfig:"UNLOCK_BACKEND" default:"file"` // file | postgres
	DataDir string `envconfig:"DATA_DIR" default:"data"`
}

// DBConfig holds database-related configuration, used only when the
// postgres unlock backend is selected.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"unlock_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// StripeConfig holds the payment-provider credentials.
type StripeConfig struct {
	SecretKey string `envconfig:"STRIPE_SECRET_KEY"`
}

// CatalogConfig holds the print-fulfillment catalog API settings.
type CatalogConfig struct {
	BaseURL string `envconfig:"CATALOG_API_URL" default:"https://api.printful.com"`
	APIKey  string `envconfig:"CATALOG_API_KEY"`
	Timeout int    `envconfig:"CATALOG_TIMEOUT" default:"10"` // seconds
}

// PricingConfig holds price-validation settings.
type PricingConfig struct {
	CacheTTL int `envconfig:"PRICE_CACHE_TTL" default:"300"` // seconds
}

// TokenConfig holds unlock-token signing settings.
// WARNING: Default secret is for local development only.
type TokenConfig struct {
	Secret   string `envconfig:"UNLOCK_TOKEN_SECRET" default:"dev-secret-change-me"` // CHANGE IN PRODUCTION
	TTLHours int    `envconfig:"UNLOCK_TOKEN_TTL_HOURS" default:"720"`
}

// AdminConfig guards the promo-code CRUD endpoints. An empty key disables
// the admin API entirely.
type AdminConfig struct {
	APIKey string `envconfig:"ADMIN_API_KEY"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
