package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers understood by StoreConfig.Driver.
const (
	DriverMemory   = "memory"
	DriverSupabase = "supabase"
	DriverPostgres = "postgres"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Store     StoreConfig
	Supabase  SupabaseConfig
	Database  DatabaseConfig
	Reporting ReportingConfig
	WhatsApp  WhatsAppConfig
	Sheets    SheetsConfig
	MongoDB   MongoDBConfig
	AI        AIConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// LogConfig selects the zap level.
type LogConfig struct {
	Level string
}

// StoreConfig selects the backing store and bounds every read.
type StoreConfig struct {
	Driver       string
	FetchTimeout time.Duration
}

// SupabaseConfig points at the hosted project's REST endpoint.
type SupabaseConfig struct {
	URL     string
	Key     string
	Timeout time.Duration
}

// DatabaseConfig is used when talking to PostgreSQL directly.
type DatabaseConfig struct {
	URL            string
	MaxConns       int32
	MigrateOnStart bool
}

// ReportingConfig holds aggregation and scheduler settings.
type ReportingConfig struct {
	CronSchedule  string
	Timezone      string
	PricingPolicy string
	Recipient     string
}

// WhatsAppConfig contains credentials and options for the Meta WhatsApp Cloud API.
// An empty AccessToken disables chat ingress and digest delivery.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	VerifyToken   string
	BaseURL       string
	APIVersion    string
}

// Enabled reports whether WhatsApp credentials are present.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SheetsConfig contains configuration required to export digests to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether a spreadsheet export is configured.
func (c SheetsConfig) Enabled() bool {
	return c.CredentialsPath != "" && c.SpreadsheetID != ""
}

// MongoDBConfig holds settings for the digest archive.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether a digest archive is configured.
func (c MongoDBConfig) Enabled() bool {
	return c.URI != ""
}

// AIConfig enables translating free-text chat messages into commands.
type AIConfig struct {
	AnthropicKey string
	BaseURL      string
	Model        string
}

// Enabled reports whether an Anthropic API key is present.
func (c AIConfig) Enabled() bool {
	return c.AnthropicKey != ""
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
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	fetchTimeout, err := getenvDuration("FETCH_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	supabaseTimeout, err := getenvDuration("SUPABASE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	maxConns, err := getenvInt("DATABASE_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Store: StoreConfig{
			Driver:       strings.ToLower(getenvWithDefault("STORE_DRIVER", DriverSupabase)),
			FetchTimeout: fetchTimeout,
		},
		Supabase: SupabaseConfig{
			URL:     os.Getenv("SUPABASE_URL"),
			Key:     os.Getenv("SUPABASE_KEY"),
			Timeout: supabaseTimeout,
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MaxConns:       int32(maxConns),
			MigrateOnStart: getenvBool("MIGRATE_ON_START", false),
		},
		Reporting: ReportingConfig{
			CronSchedule:  getenvWithDefault("REPORT_CRON_SCHEDULE", "0 21 * * *"),
			Timezone:      getenvWithDefault("TIMEZONE", "UTC"),
			PricingPolicy: getenvWithDefault("PRICING_POLICY", "current"),
			Recipient:     os.Getenv("REPORT_RECIPIENT"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:   os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:       getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:    getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "bakery"),
		},
		AI: AIConfig{
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			BaseURL:      getenvWithDefault("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			Model:        getenvWithDefault("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		},
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

	switch c.Store.Driver {
	case DriverMemory:
	case DriverSupabase:
		if c.Supabase.URL == "" {
			return errors.New("SUPABASE_URL must be provided")
		}
		if c.Supabase.Key == "" {
			return errors.New("SUPABASE_KEY must be provided")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL must be provided")
		}
		if c.Database.MaxConns <= 0 {
			return errors.New("DATABASE_MAX_CONNS must be positive")
		}
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of memory, supabase, postgres", c.Store.Driver)
	}

	if c.Store.FetchTimeout <= 0 {
		return errors.New("FETCH_TIMEOUT must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	switch strings.ToLower(c.Reporting.PricingPolicy) {
	case "current", "snapshot":
	default:
		return fmt.Errorf("PRICING_POLICY %q is not one of current, snapshot", c.Reporting.PricingPolicy)
	}

	if c.WhatsApp.Enabled() && c.WhatsApp.VerifyToken == "" {
		return errors.New("META_VERIFY_TOKEN must be provided when WHATSAPP_TOKEN is set")
	}

	if c.Sheets.SpreadsheetID != "" && c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided with GOOGLE_SHEET_DATABASE_ID")
	}

	return nil
}

// Location resolves the reporting timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Reporting.Timezone == "" {
		return nil, errors.New("TIMEZONE must be provided")
	}
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}
	return loc, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}
