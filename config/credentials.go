package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const baseCredPath = "stocknews/creds.toml"

// Environment variables that override creds.toml
const (
	EnvTelegramAppID    = "STOCKNEWS_TELEGRAM_APP_ID"
	EnvTelegramAppHash  = "STOCKNEWS_TELEGRAM_APP_HASH"
	EnvTelegramBotToken = "STOCKNEWS_TELEGRAM_BOT_TOKEN"
	EnvTelegramChat     = "STOCKNEWS_TELEGRAM_CHAT"
	EnvWebhookURL       = "STOCKNEWS_WEBHOOK_URL"
)

// Credentials holds all notification credentials
type Credentials struct {
	Telegram TelegramCredentials `toml:"telegram"`
	Webhook  WebhookCredentials  `toml:"webhook"`
}

// TelegramCredentials holds a bot login and the chat it reports to
type TelegramCredentials struct {
	AppID    int    `toml:"api_id"`
	AppHash  string `toml:"api_hash"`
	BotToken string `toml:"bot_token"`
	Chat     string `toml:"chat"` // Username or t.me link of the target chat
}

// IsValid checks if telegram credentials are fully populated
func (tc TelegramCredentials) IsValid() bool {
	return tc.AppID != 0 && tc.AppHash != "" && tc.BotToken != "" && tc.Chat != ""
}

// WebhookCredentials holds an incoming-webhook URL (Slack compatible)
type WebhookCredentials struct {
	URL string `toml:"url"`
}

func (wc WebhookCredentials) IsValid() bool {
	return wc.URL != ""
}

// ReadCredentials reads credentials from the specified path
func ReadCredentials(path string) (Credentials, error) {
	var creds Credentials

	data, err := os.ReadFile(path)
	if err != nil {
		return creds, err
	}

	if _, err := toml.Decode(string(data), &creds); err != nil {
		return creds, fmt.Errorf("failed to decode credentials at %s: %w", path, err)
	}

	return creds, nil
}

// LoadCredentials reads creds.toml if present, loads .env files if
// present and applies environment overrides on top
func LoadCredentials(path string, envFiles ...string) (Credentials, error) {
	creds, err := ReadCredentials(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return creds, err
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return creds, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	if v := os.Getenv(EnvTelegramAppID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return creds, fmt.Errorf("invalid %s: %w", EnvTelegramAppID, err)
		}
		creds.Telegram.AppID = id
	}
	if v := os.Getenv(EnvTelegramAppHash); v != "" {
		creds.Telegram.AppHash = v
	}
	if v := os.Getenv(EnvTelegramBotToken); v != "" {
		creds.Telegram.BotToken = v
	}
	if v := os.Getenv(EnvTelegramChat); v != "" {
		creds.Telegram.Chat = v
	}
	if v := os.Getenv(EnvWebhookURL); v != "" {
		creds.Webhook.URL = v
	}

	return creds, nil
}

// DefaultCredentialsPath returns the default path for credentials file
func DefaultCredentialsPath() string {
	var xdgHome = os.Getenv("XDG_CONFIG_HOME")
	if xdgHome != "" {
		return filepath.Join(xdgHome, baseCredPath)
	}

	var home = os.Getenv("HOME")
	if home != "" {
		return filepath.Join(home, ".config", baseCredPath)
	}

	panic("unable to determine credentials file path")
}
