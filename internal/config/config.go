package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the tracker process needs, parsed from
// PILLTICK_-prefixed environment variables. A .env file in the working
// directory is loaded first when present.
type Config struct {
	DatabaseURI string `envconfig:"DATABASE_URI" required:"true"`

	CheckInterval       time.Duration `envconfig:"CHECK_INTERVAL" default:"1m"`
	HorizonDays         int           `envconfig:"HORIZON_DAYS" default:"30"`
	AdherenceWindowDays int           `envconfig:"ADHERENCE_WINDOW_DAYS" default:"30"`
	ExpiryHour          int           `envconfig:"EXPIRY_HOUR" default:"9"`
	ExpiryLookaheadDays int           `envconfig:"EXPIRY_LOOKAHEAD_DAYS" default:"7"`

	SinkTimeout   time.Duration `envconfig:"SINK_TIMEOUT" default:"10s"`
	DesktopNotify bool          `envconfig:"DESKTOP_NOTIFY" default:"true"`

	TelegramToken string `envconfig:"TELEGRAM_TOKEN" default:""`

	SMTPHost     string `envconfig:"SMTP_HOST" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	EmailFrom    string `envconfig:"EMAIL_FROM" default:""`
	EmailTo      string `envconfig:"EMAIL_TO" default:""`

	MirrorWebhookURL string `envconfig:"MIRROR_WEBHOOK_URL" default:""`

	AIAPIKey  string `envconfig:"AI_API_KEY" default:""`
	AIBaseURL string `envconfig:"AI_BASE_URL" default:"https://openrouter.ai/api/v1"`
	AIModel   string `envconfig:"AI_MODEL" default:"openai/gpt-4o-mini"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("PILLTICK", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// TelegramEnabled reports whether the bot and Telegram sink should start.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// EmailEnabled reports whether the email sink has a complete SMTP setup.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFrom != "" && c.EmailTo != ""
}

// MirrorEnabled reports whether a webhook mirror target is configured.
func (c *Config) MirrorEnabled() bool {
	return c.MirrorWebhookURL != ""
}

// AssistantEnabled reports whether notification text should go through the
// language model first.
func (c *Config) AssistantEnabled() bool {
	return c.AIAPIKey != ""
}
