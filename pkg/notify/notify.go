package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"insightwire/pkg/config"
	"insightwire/pkg/telegram"
)

const digestPreviewLimit = 10

// Notifier pushes scrape digests to a Telegram chat through the Bot API.
type Notifier struct {
	cfg config.NotifyConfig
	log *slog.Logger
}

// NewNotifier validates notifier configuration and constructs an instance.
func NewNotifier(cfg config.NotifyConfig, log *slog.Logger) (*Notifier, error) {
	if strings.TrimSpace(cfg.BotToken) == "" {
		return nil, errors.New("notify.bot_token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("notify.chat_id is required")
	}

	if log == nil {
		log = slog.Default()
	}

	return &Notifier{
		cfg: cfg,
		log: log.With("component", "notify"),
	}, nil
}

// SendDigest posts a short summary of the scraped rows to the configured chat.
func (n *Notifier) SendDigest(ctx context.Context, rows []telegram.Message) error {
	bot, err := telego.NewBot(strings.TrimSpace(n.cfg.BotToken))
	if err != nil {
		return fmt.Errorf("initialize telegram bot: %w", err)
	}

	text := Digest(rows)
	if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(n.cfg.ChatID), text)); err != nil {
		return fmt.Errorf("send digest message: %w", err)
	}

	n.log.Info("Digest sent", "chat_id", n.cfg.ChatID, "rows", len(rows))
	return nil
}

// Digest formats a bounded per-channel summary of scraped rows.
func Digest(rows []telegram.Message) string {
	if len(rows) == 0 {
		return "Scrape finished: no messages collected."
	}

	perChannel := make(map[string]int)
	order := make([]string, 0)
	for _, row := range rows {
		if _, seen := perChannel[row.Channel]; !seen {
			order = append(order, row.Channel)
		}
		perChannel[row.Channel]++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Scrape finished: %d messages from %d channels.\n", len(rows), len(order))
	for i, channel := range order {
		if i == digestPreviewLimit {
			fmt.Fprintf(&b, "… and %d more channels\n", len(order)-digestPreviewLimit)
			break
		}
		fmt.Fprintf(&b, "- %s: %d\n", channel, perChannel[channel])
	}

	return strings.TrimRight(b.String(), "\n")
}
