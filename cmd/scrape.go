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
	"insightwire/pkg/notify"
	"insightwire/pkg/render"
	"insightwire/pkg/telegram"
)

var (
	scrapeChannels string
	scrapeLimit    int
	scrapeCSVPath  string
	scrapeNotify   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Fetch recent messages from target channels",
	Long:  "Fetches the most recent messages from the selected channels and prints them as a table or writes them to CSV.",
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
		log := slog.Default().With("component", "cmd.scrape")

		targets := cfg.Scraper.Targets
		if scrapeChannels != "" {
			targets = config.ParseTargets(scrapeChannels)
		}
		if len(targets) == 0 {
			fmt.Println("no target channels: set scraper.targets in config.json or pass --channels")
			return
		}

		limit := scrapeLimit
		if limit <= 0 {
			limit = cfg.Scraper.MessageLimit
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		manager := newSessionManager(cfg, appLogger)
		manager.Start()
		defer func() {
			if err := manager.Stop(); err != nil {
				log.Error("Failed to stop session manager", "error", err)
			}
		}()

		if _, err := manager.Connect(ctx, cfg.Telegram.SessionDir, cfg.Telegram.APIID, cfg.Telegram.APIHash, cfg.Telegram.Phone); err != nil {
			fmt.Printf("failed to connect: %v\n", err)
			return
		}

		rows, err := manager.ChannelData(ctx, targets, limit)
		if err != nil {
			fmt.Printf("failed to scrape channels: %v\n", err)
			return
		}

		log.Info("Scrape finished", "channels", len(targets), "rows", len(rows))

		if scrapeCSVPath != "" {
			if err := writeCSV(scrapeCSVPath, rows); err != nil {
				fmt.Printf("failed to write csv: %v\n", err)
				return
			}
			fmt.Printf("Wrote %d rows to %s\n", len(rows), scrapeCSVPath)
		} else {
			fmt.Println(render.Table(rows))
		}

		if scrapeNotify || cfg.Notify.Enabled {
			notifier, err := notify.NewNotifier(cfg.Notify, appLogger)
			if err != nil {
				log.Error("Notifier configuration invalid", "error", err)
				return
			}
			if err := notifier.SendDigest(ctx, rows); err != nil {
				log.Error("Failed to send digest", "error", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().StringVarP(&scrapeChannels, "channels", "c", "", "comma-separated channel titles to scrape")
	scrapeCmd.Flags().IntVarP(&scrapeLimit, "limit", "l", 0, "maximum messages per channel")
	scrapeCmd.Flags().StringVar(&scrapeCSVPath, "csv", "", "write rows to a CSV file instead of printing a table")
	scrapeCmd.Flags().BoolVar(&scrapeNotify, "notify", false, "send a scrape digest to the configured Telegram chat")
}

func writeCSV(path string, rows []telegram.Message) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	return render.CSV(file, rows)
}
