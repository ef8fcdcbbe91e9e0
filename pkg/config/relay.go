package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RelayConfig holds the environment-sourced configuration for bulletd's
// webhook intake, acknowledgement, and escalation components, loaded the
// same getEnv/godotenv way database.Config is loaded at startup.
type RelayConfig struct {
	HTTPPort string
	// BaseURL is the externally reachable origin (no trailing slash)
	// used to build ack/detail links in outgoing notifications.
	BaseURL string
	// EscalationCheckInterval is the sweep period for the escalation
	// scheduler.
	EscalationCheckInterval time.Duration

	Slack SlackConfig
	Feishu FeishuConfig
	Email  EmailConfig
	SMS    SMSConfig
}

// SlackConfig configures the single workspace-wide Slack bot.
type SlackConfig struct {
	Token   string
	Channel string
}

// FeishuConfig holds the shared HMAC signing secret applied to every
// Feishu webhook send, independent of which contact's webhook URL is
// the destination. Empty disables signing.
type FeishuConfig struct {
	Secret string
}

// EmailConfig configures the outbound SMTP relay.
type EmailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// SMSConfig configures the Twilio REST credentials used for SMS
// delivery.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// LoadRelayConfigFromEnv reads RelayConfig from environment variables,
// mirroring database.LoadConfigFromEnv's getEnvOrDefault pattern.
func LoadRelayConfigFromEnv() (RelayConfig, error) {
	interval, err := time.ParseDuration(getEnvOrDefault("ESCALATION_CHECK_INTERVAL", "5s"))
	if err != nil {
		return RelayConfig{}, fmt.Errorf("invalid ESCALATION_CHECK_INTERVAL: %w", err)
	}

	cfg := RelayConfig{
		HTTPPort:                getEnvOrDefault("HTTP_PORT", "8080"),
		BaseURL:                 strings.TrimSuffix(getEnvOrDefault("BASE_URL", "http://localhost:8080"), "/"),
		EscalationCheckInterval: interval,
		Slack: SlackConfig{
			Token:   os.Getenv("SLACK_BOT_TOKEN"),
			Channel: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Feishu: FeishuConfig{
			Secret: os.Getenv("FEISHU_SIGNING_SECRET"),
		},
		Email: EmailConfig{
			Host:     getEnvOrDefault("SMTP_HOST", "localhost"),
			Port:     getEnvOrDefault("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "alerts@localhost"),
		},
		SMS: SMSConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		},
	}

	if _, err := strconv.Atoi(cfg.HTTPPort); err != nil {
		return RelayConfig{}, fmt.Errorf("invalid HTTP_PORT: %w", err)
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
