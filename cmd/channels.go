package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"insightwire/pkg/config"
	"insightwire/pkg/logger"
)

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List broadcast channels visible to the session",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager := newSessionManager(cfg, appLogger)
		manager.Start()
		defer func() {
			if err := manager.Stop(); err != nil {
				slog.Error("Failed to stop session manager", "error", err)
			}
		}()

		if _, err := manager.Connect(ctx, cfg.Telegram.SessionDir, cfg.Telegram.APIID, cfg.Telegram.APIHash, cfg.Telegram.Phone); err != nil {
			fmt.Printf("failed to connect: %v\n", err)
			return
		}

		channels, err := manager.Channels(ctx)
		if err != nil {
			fmt.Printf("failed to list channels: %v\n", err)
			return
		}

		if len(channels) == 0 {
			fmt.Println("No broadcast channels found.")
			return
		}

		for _, channel := range channels {
			fmt.Printf("%d\t%s\n", channel.ID, channel.Title)
		}
	},
}

func init() {
	rootCmd.AddCommand(channelsCmd)
}
