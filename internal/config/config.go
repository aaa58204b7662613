// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Update modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config holds all application configuration.
type Config struct {
	Telegram  TelegramConfig
	Wizard    WizardConfig
	Ledger    LedgerConfig
	Splitwise SplitwiseConfig
	BigQuery  BigQueryConfig
	Queue     QueueConfig
	Log       LogConfig
}

// TelegramConfig controls the chat front-end.
type TelegramConfig struct {
	Token          string
	UpdateMode     string
	WebhookBaseURL string
	WebhookSecret  string
	Port           string
	RestrictAccess bool
	AllowedUsers   []int64
}

// WizardConfig controls how drafts are shown and kept.
type WizardConfig struct {
	Currency        string
	Timezone        string
	DateLayout      string
	AccountPageSize int
	SessionTTL      time.Duration
	SessionDBPath   string
}

// LedgerConfig locates the spreadsheet and its credentials.
type LedgerConfig struct {
	SpreadsheetID   string
	CredentialsJSON string
	// CredentialsFile is a local path or a gs://bucket/object URI.
	CredentialsFile string
}

// SplitwiseConfig enables shared expenses when fully set.
type SplitwiseConfig struct {
	APIKey   string
	FriendID int64
	GroupID  int64
	Currency string
}

// BigQueryConfig enables the commit mirror when Project is set.
type BigQueryConfig struct {
	Project string
	Dataset string
	Table   string
}

// QueueConfig sizes the event dispatcher.
type QueueConfig struct {
	Workers    int
	Size       int
	JobHistory int
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var errs []error

	allowed, err := getEnvInt64List("RESTRICT_USER_IDS")
	errs = append(errs, err)
	friendID, err := getEnvInt64("SPLITWISE_FRIEND_ID", 0)
	errs = append(errs, err)
	groupID, err := getEnvInt64("SPLITWISE_GROUP_ID", 0)
	errs = append(errs, err)
	ttl, err := getEnvDuration("SESSION_TTL", 0)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Telegram: TelegramConfig{
			Token:          getEnv("TELEGRAM_TOKEN", ""),
			UpdateMode:     strings.ToLower(getEnv("UPDATE_MODE", ModePolling)),
			WebhookBaseURL: strings.TrimRight(getEnv("WEBHOOK_BASE_URL", ""), "/"),
			WebhookSecret:  getEnv("WEBHOOK_SECRET", ""),
			Port:           getEnv("PORT", "8443"),
			RestrictAccess: getEnvBool("RESTRICT_ACCESS", false),
			AllowedUsers:   allowed,
		},
		Wizard: WizardConfig{
			Currency:        getEnv("CURRENCY", "₱"),
			Timezone:        getEnv("TIMEZONE", "Asia/Manila"),
			DateLayout:      getEnv("DATE_LAYOUT", "01/02/2006"),
			AccountPageSize: getEnvInt("ACCOUNT_PAGE_SIZE", 10),
			SessionTTL:      ttl,
			SessionDBPath:   getEnv("SESSION_DB_PATH", ""),
		},
		Ledger: LedgerConfig{
			SpreadsheetID:   getEnv("LEDGER_SPREADSHEET_ID", ""),
			CredentialsJSON: getEnv("LEDGER_CREDENTIALS_JSON", ""),
			CredentialsFile: getEnv("LEDGER_CREDENTIALS_FILE", ""),
		},
		Splitwise: SplitwiseConfig{
			APIKey:   getEnv("SPLITWISE_API_KEY", ""),
			FriendID: friendID,
			GroupID:  groupID,
			Currency: strings.ToUpper(getEnv("SPLITWISE_CURRENCY", "PHP")),
		},
		BigQuery: BigQueryConfig{
			Project: getEnv("BIGQUERY_PROJECT", ""),
			Dataset: getEnv("BIGQUERY_DATASET", "finance"),
			Table:   getEnv("BIGQUERY_TABLE", "ledger_commits"),
		},
		Queue: QueueConfig{
			Workers:    getEnvInt("WORKERS", 4),
			Size:       getEnvInt("QUEUE_SIZE", 100),
			JobHistory: getEnvInt("JOB_HISTORY", 1000),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("TELEGRAM_TOKEN cannot be empty")
	}
	switch c.Telegram.UpdateMode {
	case ModePolling:
	case ModeWebhook:
		if c.Telegram.WebhookBaseURL == "" {
			return fmt.Errorf("WEBHOOK_BASE_URL is required in webhook mode")
		}
		if u, err := url.Parse(c.Telegram.WebhookBaseURL); err != nil || u.Scheme != "https" || u.Host == "" {
			return fmt.Errorf("WEBHOOK_BASE_URL must be an absolute https URL")
		}
		if c.Telegram.WebhookSecret == "" || strings.Contains(c.Telegram.WebhookSecret, "/") {
			return fmt.Errorf("WEBHOOK_SECRET must be a non-empty path segment in webhook mode")
		}
		if c.Telegram.Port == "" {
			return fmt.Errorf("PORT cannot be empty in webhook mode")
		}
	default:
		return fmt.Errorf("UPDATE_MODE must be %q or %q, got %q", ModePolling, ModeWebhook, c.Telegram.UpdateMode)
	}
	if c.Telegram.RestrictAccess && len(c.Telegram.AllowedUsers) == 0 {
		return fmt.Errorf("RESTRICT_USER_IDS must list at least one user when RESTRICT_ACCESS is on")
	}
	if c.Ledger.SpreadsheetID == "" {
		return fmt.Errorf("LEDGER_SPREADSHEET_ID cannot be empty")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if c.Wizard.DateLayout == "" {
		return fmt.Errorf("DATE_LAYOUT cannot be empty")
	}
	if c.Wizard.AccountPageSize <= 0 {
		return fmt.Errorf("ACCOUNT_PAGE_SIZE must be > 0")
	}
	if c.Wizard.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	if c.Queue.Workers <= 0 {
		return fmt.Errorf("WORKERS must be > 0")
	}
	if c.Queue.Size <= 0 {
		return fmt.Errorf("QUEUE_SIZE must be > 0")
	}
	return nil
}

// Location returns the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Wizard.Timezone)
}

// SharingEnabled reports whether Splitwise is fully configured.
func (c *Config) SharingEnabled() bool {
	return c.Splitwise.APIKey != "" && c.Splitwise.FriendID != 0 && c.Splitwise.GroupID != 0
}

// MirrorEnabled reports whether commits are copied to BigQuery.
func (c *Config) MirrorEnabled() bool {
	return c.BigQuery.Project != ""
}

// WebhookPath is the HTTP path Telegram posts updates to.
func (c *Config) WebhookPath() string {
	return "/" + c.Telegram.WebhookSecret + "/"
}

// WebhookURL is the full URL registered with Telegram.
func (c *Config) WebhookURL() string {
	return c.Telegram.WebhookBaseURL + c.WebhookPath()
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvInt64 parses an id. Unlike counts, a malformed id is an error.
func getEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, value)
	}
	return n, nil
}

// getEnvInt64List parses a comma-separated list of ids.
func getEnvInt64List(key string) ([]int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", key, part)
		}
		out = append(out, n)
	}
	return out, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
