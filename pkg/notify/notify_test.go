package notify

import (
	"strings"
	"testing"

	"insightwire/pkg/config"
	"insightwire/pkg/telegram"
)

func TestNewNotifierRequiresToken(t *testing.T) {
	if _, err := NewNotifier(config.NotifyConfig{ChatID: 1}, nil); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestNewNotifierRequiresChatID(t *testing.T) {
	if _, err := NewNotifier(config.NotifyConfig{BotToken: "token"}, nil); err == nil {
		t.Fatal("expected error for missing chat id")
	}
}

func TestDigestEmpty(t *testing.T) {
	got := Digest(nil)
	if !strings.Contains(got, "no messages") {
		t.Fatalf("digest = %q", got)
	}
}

func TestDigestCountsPerChannel(t *testing.T) {
	rows := []telegram.Message{
		{Channel: "chan1"},
		{Channel: "chan1"},
		{Channel: "chan2"},
	}

	got := Digest(rows)
	if !strings.Contains(got, "3 messages from 2 channels") {
		t.Fatalf("digest header = %q", got)
	}
	if !strings.Contains(got, "chan1: 2") || !strings.Contains(got, "chan2: 1") {
		t.Fatalf("digest body = %q", got)
	}
}
