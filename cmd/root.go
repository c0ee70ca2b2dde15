package cmd

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"insightwire/pkg/config"
	"insightwire/pkg/session"
)

var rootCmd = &cobra.Command{
	Use:   "insightwire",
	Short: "Telegram channel scraping toolkit",
	Long:  "InsightWire connects to a Telegram user session and scrapes channel messages for analysis.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		// Optional .env so credentials never live in config.json.
		_ = godotenv.Load()
	})
}

// newSessionManager builds the process-wide session façade from config.
func newSessionManager(cfg *config.Config, log *slog.Logger) *session.Manager {
	return session.NewManager(session.Options{
		Logger:       log,
		ReplyTimeout: time.Duration(cfg.Scraper.ReplyTimeoutSeconds) * time.Second,
		QueueSize:    cfg.Scraper.QueueSize,
	})
}
