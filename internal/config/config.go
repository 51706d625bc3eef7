package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server      ServerConfig
	App         AppConfig
	Cache       CacheConfig
	Database    DatabaseConfig
	WatchlistDB WatchlistDBConfig
	Scraper     ScraperConfig
	Update      UpdateConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"markettrack-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"`
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// DatabaseConfig holds the main store settings.
type DatabaseConfig struct {
	Type string `envconfig:"DB_TYPE" default:"sqlite"` // sqlite or postgres
	Path string `envconfig:"DB_PATH" default:"./data/markettrack.db"`
	// PostgreSQL settings
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"markettrack"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASS" default:""`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
}

// WatchlistDBConfig holds the optional MySQL watchlist database
// settings. Left unset, the watch list lives in the main store.
type WatchlistDBConfig struct {
	Host     string `envconfig:"WATCHLIST_DB_HOST" default:""`
	Port     int    `envconfig:"WATCHLIST_DB_PORT" default:"3306"`
	Name     string `envconfig:"WATCHLIST_DB_NAME" default:"markettrack"`
	User     string `envconfig:"WATCHLIST_DB_USER" default:"root"`
	Password string `envconfig:"WATCHLIST_DB_PASS" default:""`
}

// ScraperConfig holds settings for the upstream snapshot service.
type ScraperConfig struct {
	BaseURL           string        `envconfig:"SCRAPER_URL" default:"http://localhost:9000"`
	RequestsPerMinute int           `envconfig:"SCRAPER_RPM" default:"30"`
	Timeout           time.Duration `envconfig:"SCRAPER_TIMEOUT" default:"45s"`
}

// UpdateConfig holds settings for the periodic update loops.
type UpdateConfig struct {
	// Interval between full update passes; zero disables the scheduler.
	Interval time.Duration `envconfig:"UPDATE_INTERVAL" default:"0"`
	// RunTimeout bounds one full pass over products and markets.
	RunTimeout time.Duration `envconfig:"UPDATE_RUN_TIMEOUT" default:"1h"`
	// RevenueMaxAge drops stale product observations from market
	// revenue; zero means no cutoff.
	RevenueMaxAge time.Duration `envconfig:"REVENUE_MAX_AGE" default:"0"`
	// ChartCacheTTL is how long rendered chart series stay cached.
	ChartCacheTTL time.Duration `envconfig:"CHART_CACHE_TTL" default:"10m"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// Enabled reports whether a separate watchlist database is configured.
func (w *WatchlistDBConfig) Enabled() bool {
	return w.Host != ""
}

// DSN returns the MySQL data source name.
func (w *WatchlistDBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		w.User, w.Password, w.Host, w.Port, w.Name)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
