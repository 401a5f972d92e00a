package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Realtime drivers.
const (
	RealtimeMongo = "mongo"
	RealtimeRedis = "redis"
	RealtimeLocal = "local"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Realtime  RealtimeConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	Reporting ReportingConfig
	AI        AIConfig
	Views     ViewsConfig
	Pricing   PricingConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string `env:"APP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI     string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DBName  string        `env:"MONGODB_DB_NAME" envDefault:"pondwatch"`
	Timeout time.Duration `env:"MONGODB_TIMEOUT" envDefault:"10s"`
}

// RealtimeConfig selects the change-feed transport.
type RealtimeConfig struct {
	Driver        string `env:"REALTIME_DRIVER" envDefault:"mongo"`
	RedisURL      string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
type WhatsAppConfig struct {
	AccessToken   string `env:"WHATSAPP_TOKEN"`
	PhoneNumberID string `env:"WHATSAPP_PHONE_NUMBER_ID"`
	VerifyToken   string `env:"META_VERIFY_TOKEN"`
	BaseURL       string `env:"WHATSAPP_BASE_URL" envDefault:"https://graph.facebook.com"`
	APIVersion    string `env:"WHATSAPP_API_VERSION" envDefault:"v20.0"`
}

// Enabled reports whether outbound WhatsApp messaging is configured.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string `env:"GOOGLE_SHEETS_CREDENTIALS_PATH"`
	SpreadsheetID   string `env:"GOOGLE_SHEET_DATABASE_ID"`
}

// Enabled reports whether the daily report export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string `env:"REPORT_CRON_SCHEDULE" envDefault:"0 20 * * *"`
	Timezone     string `env:"TIMEZONE" envDefault:"Africa/Conakry"`
}

// Location loads the configured timezone.
func (c ReportingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AIConfig holds settings for LLM providers.
type AIConfig struct {
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	Model        string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-haiku-20240307"`
}

// ViewsConfig holds the polling fallback period of each view and the idle
// unmount timeout.
type ViewsConfig struct {
	PollDashboard    time.Duration `env:"POLL_DASHBOARD" envDefault:"30s"`
	PollFeeding      time.Duration `env:"POLL_FEEDING" envDefault:"15s"`
	PollHealth       time.Duration `env:"POLL_HEALTH" envDefault:"30s"`
	PollWaterQuality time.Duration `env:"POLL_WATER" envDefault:"20s"`
	PollAdmin        time.Duration `env:"POLL_ADMIN" envDefault:"30s"`
	IdleTimeout      time.Duration `env:"VIEW_IDLE_TIMEOUT" envDefault:"10m"`
}

// PricingConfig holds market prices used for revenue and margin estimates.
type PricingConfig struct {
	FishPerKg float64 `env:"FISH_PRICE_PER_KG" envDefault:"25000"`
	FeedPerKg float64 `env:"FEED_PRICE_PER_KG" envDefault:"10000"`
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from the
		// environment directly.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Server.LogLevel] {
		return fmt.Errorf("invalid LOG_LEVEL: %s", c.Server.LogLevel)
	}

	if c.MongoDB.URI == "" {
		return errors.New("MONGODB_URI must be provided")
	}
	if c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must be provided")
	}

	switch c.Realtime.Driver {
	case RealtimeMongo, RealtimeLocal:
	case RealtimeRedis:
		if c.Realtime.RedisURL == "" {
			return errors.New("REDIS_URL must be provided when REALTIME_DRIVER=redis")
		}
	default:
		return fmt.Errorf("invalid REALTIME_DRIVER: %s", c.Realtime.Driver)
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.VerifyToken == "" {
			return errors.New("META_VERIFY_TOKEN must be provided with WHATSAPP_TOKEN")
		}
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be set together")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := c.Reporting.Location(); err != nil {
		return err
	}

	for name, d := range map[string]time.Duration{
		"POLL_DASHBOARD": c.Views.PollDashboard,
		"POLL_FEEDING":   c.Views.PollFeeding,
		"POLL_HEALTH":    c.Views.PollHealth,
		"POLL_WATER":     c.Views.PollWaterQuality,
		"POLL_ADMIN":     c.Views.PollAdmin,
	} {
		if d < time.Second {
			return fmt.Errorf("%s must be at least 1s", name)
		}
	}

	if c.Pricing.FishPerKg <= 0 || c.Pricing.FeedPerKg < 0 {
		return errors.New("FISH_PRICE_PER_KG must be positive and FEED_PRICE_PER_KG not negative")
	}

	return nil
}
