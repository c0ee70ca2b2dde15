package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	envTelegramAPIID   = "TELEGRAM_API_ID"
	envTelegramAPIHash = "TELEGRAM_API_HASH"
	envTelegramPhone   = "TELEGRAM_PHONE"
	envNotifyBotToken  = "TELEGRAM_BOT_TOKEN"
	envNotifyChatID    = "TELEGRAM_NOTIFY_CHAT_ID"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Scraper  ScraperConfig  `json:"scraper"`
	Notify   NotifyConfig   `json:"notify,omitempty"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// TelegramConfig holds the user-session API credentials.
//
// API ID and hash come from https://my.telegram.org. SessionDir is the
// on-disk session store; relative paths resolve under sessions/.
type TelegramConfig struct {
	APIID      string `json:"api_id"`
	APIHash    string `json:"api_hash"`
	Phone      string `json:"phone"`
	SessionDir string `json:"session_dir"`
}

// ScraperConfig holds channel scraping defaults.
type ScraperConfig struct {
	Targets             []string `json:"targets,omitempty"`
	MessageLimit        int      `json:"message_limit,omitempty"`
	ReplyTimeoutSeconds int      `json:"reply_timeout_seconds,omitempty"`
	QueueSize           int      `json:"queue_size,omitempty"`
}

// NotifyConfig configures the optional scrape-digest bot notifier.
type NotifyConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token,omitempty"`
	ChatID   int64  `json:"chat_id,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment
// overrides for secrets.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides injects env-driven credentials on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if apiID := strings.TrimSpace(os.Getenv(envTelegramAPIID)); apiID != "" {
		cfg.Telegram.APIID = apiID
	}
	if apiHash := strings.TrimSpace(os.Getenv(envTelegramAPIHash)); apiHash != "" {
		cfg.Telegram.APIHash = apiHash
	}
	if phone := strings.TrimSpace(os.Getenv(envTelegramPhone)); phone != "" {
		cfg.Telegram.Phone = phone
	}
	if token := strings.TrimSpace(os.Getenv(envNotifyBotToken)); token != "" {
		cfg.Notify.BotToken = token
	}
	if chatID := strings.TrimSpace(os.Getenv(envNotifyChatID)); chatID != "" {
		var parsed int64
		if _, err := fmt.Sscanf(chatID, "%d", &parsed); err == nil {
			cfg.Notify.ChatID = parsed
		}
	}
}

// ParseTargets splits comma-separated channel titles into a trimmed slice.
func ParseTargets(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is INSIGHTWIRE_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("INSIGHTWIRE_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("INSIGHTWIRE_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
