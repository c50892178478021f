package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback button presses.
	UpdateCallback = "callback"
	// UpdateMessage identifies plain text and contact messages.
	UpdateMessage = "message"
	// UpdateCommand identifies slash commands.
	UpdateCommand = "command"
)

// RateLimitClassConfig configures one traffic class of the sliding-window
// limiter. Zero cooldown means a user is denied only until the window
// slides back below the threshold.
type RateLimitClassConfig struct {
	MaxRequests     int `yaml:"max_requests"`
	WindowSeconds   int `yaml:"window_seconds"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// RateLimitConfig holds per-class limits plus the idle-entry sweep interval.
// Messages, callbacks and commands are limited independently per user.
type RateLimitConfig struct {
	Messages               RateLimitClassConfig `yaml:"messages"`
	Callbacks              RateLimitClassConfig `yaml:"callbacks"`
	Commands               RateLimitClassConfig `yaml:"commands"`
	CleanupIntervalSeconds int                  `yaml:"cleanup_interval_seconds" envconfig:"RATE_LIMIT_CLEANUP_INTERVAL_SECONDS"`
}

// SurveyConfig tunes the dialog layer.
type SurveyConfig struct {
	LocalesDir    string `yaml:"locales_dir" envconfig:"SURVEY_LOCALES_DIR"`
	DefaultLocale string `yaml:"default_locale" envconfig:"SURVEY_DEFAULT_LOCALE"`
	// SessionTTLSeconds expires idle sessions; 0 disables expiry.
	SessionTTLSeconds     int `yaml:"session_ttl_seconds" envconfig:"SURVEY_SESSION_TTL_SECONDS"`
	ExpiryIntervalSeconds int `yaml:"expiry_interval_seconds" envconfig:"SURVEY_EXPIRY_INTERVAL_SECONDS"`
}

// SheetsConfig locates the spreadsheet sink.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	CredentialsFile string `yaml:"credentials_file" envconfig:"SHEETS_CREDENTIALS_FILE"`
	TimeoutSeconds  int    `yaml:"timeout_seconds" envconfig:"SHEETS_TIMEOUT_SECONDS"`
}

// LeadsConfig identifies the notification bot and the workgroup chat.
// An empty token falls back to the main bot token.
type LeadsConfig struct {
	Token          string `yaml:"token" envconfig:"LEADS_BOT_TOKEN"`
	ChatID         int64  `yaml:"chat_id" envconfig:"LEADS_CHAT_ID"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"LEADS_TIMEOUT_SECONDS"`
	Retries        int    `yaml:"retries" envconfig:"LEADS_RETRIES"`
}

// DatabaseConfig wraps connection settings plus an enable switch for the
// optional lead archive.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Config aggregates all application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Survey    SurveyConfig    `yaml:"survey"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Leads     LeadsConfig     `yaml:"leads"`
	Database  DatabaseConfig  `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	applyLimitDefaults(&cfg.RateLimit.Messages, 20, 60, 300)
	applyLimitDefaults(&cfg.RateLimit.Callbacks, 30, 60, 120)
	applyLimitDefaults(&cfg.RateLimit.Commands, 5, 60, 300)
	if cfg.RateLimit.CleanupIntervalSeconds <= 0 {
		cfg.RateLimit.CleanupIntervalSeconds = 300
	}

	if cfg.Survey.LocalesDir == "" {
		cfg.Survey.LocalesDir = "locales"
	}
	if cfg.Survey.DefaultLocale == "" {
		cfg.Survey.DefaultLocale = "ru"
	}
	if cfg.Survey.SessionTTLSeconds < 0 {
		return fmt.Errorf("survey.session_ttl_seconds must be >= 0")
	}
	if cfg.Survey.ExpiryIntervalSeconds <= 0 {
		cfg.Survey.ExpiryIntervalSeconds = 600
	}

	if strings.TrimSpace(cfg.Sheets.SpreadsheetID) == "" {
		return fmt.Errorf("sheets.spreadsheet_id is required")
	}
	if cfg.Leads.Token == "" {
		cfg.Leads.Token = cfg.Telegram.Token
	}
	if cfg.Leads.ChatID == 0 {
		return fmt.Errorf("leads.chat_id is required")
	}
	if cfg.Sheets.CredentialsFile == "" {
		cfg.Sheets.CredentialsFile = "service-account.json"
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database.host, database.name and database.user are required when database.enabled")
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
	}

	return nil
}

func applyLimitDefaults(c *RateLimitClassConfig, maxRequests, windowSec, cooldownSec int) {
	if c.MaxRequests <= 0 {
		c.MaxRequests = maxRequests
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = windowSec
	}
	if c.CooldownSeconds < 0 {
		c.CooldownSeconds = cooldownSec
	}
}
