package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "telegram": {"api_id": "12345", "api_hash": "abcdef", "phone": "+15550000", "session_dir": "main"},
	  "scraper": {"targets": ["chan1", "chan2"], "message_limit": 50, "reply_timeout_seconds": 30},
	  "notify": {"enabled": true, "chat_id": 777},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("INSIGHTWIRE_CONFIG", path)
	unsetCredentialEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.APIID != "12345" {
		t.Fatalf("telegram.api_id = %q, want %q", cfg.Telegram.APIID, "12345")
	}
	if cfg.Telegram.SessionDir != "main" {
		t.Fatalf("telegram.session_dir = %q, want %q", cfg.Telegram.SessionDir, "main")
	}
	if len(cfg.Scraper.Targets) != 2 {
		t.Fatalf("scraper.targets = %v, want 2 entries", cfg.Scraper.Targets)
	}
	if cfg.Scraper.MessageLimit != 50 {
		t.Fatalf("scraper.message_limit = %d, want 50", cfg.Scraper.MessageLimit)
	}
	if !cfg.Notify.Enabled || cfg.Notify.ChatID != 777 {
		t.Fatalf("notify = %+v, want enabled with chat 777", cfg.Notify)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"telegram": {"api_id": "1", "api_hash": "x", "session_dir": "main"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("INSIGHTWIRE_CONFIG", path)
	t.Setenv("TELEGRAM_API_ID", "99999")
	t.Setenv("TELEGRAM_API_HASH", "secret")
	t.Setenv("TELEGRAM_PHONE", "+15551234")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	t.Setenv("TELEGRAM_NOTIFY_CHAT_ID", "-100200")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Telegram.APIID != "99999" {
		t.Fatalf("telegram.api_id = %q, want env override", cfg.Telegram.APIID)
	}
	if cfg.Telegram.APIHash != "secret" {
		t.Fatalf("telegram.api_hash = %q, want env override", cfg.Telegram.APIHash)
	}
	if cfg.Telegram.Phone != "+15551234" {
		t.Fatalf("telegram.phone = %q, want env override", cfg.Telegram.Phone)
	}
	if cfg.Notify.BotToken != "bot-token" {
		t.Fatalf("notify.bot_token = %q, want env override", cfg.Notify.BotToken)
	}
	if cfg.Notify.ChatID != -100200 {
		t.Fatalf("notify.chat_id = %d, want -100200", cfg.Notify.ChatID)
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("INSIGHTWIRE_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestParseTargets(t *testing.T) {
	got := ParseTargets(" chan1, ,chan2 ,")
	if len(got) != 2 || got[0] != "chan1" || got[1] != "chan2" {
		t.Fatalf("ParseTargets = %v, want [chan1 chan2]", got)
	}

	if got := ParseTargets(""); len(got) != 0 {
		t.Fatalf("ParseTargets(\"\") = %v, want empty", got)
	}
}

func unsetCredentialEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{envTelegramAPIID, envTelegramAPIHash, envTelegramPhone, envNotifyBotToken, envNotifyChatID} {
		t.Setenv(key, "")
	}
}
