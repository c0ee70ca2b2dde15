package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"insightwire/pkg/config"
	"insightwire/pkg/logger"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize the configured Telegram session",
	Long:  "Connects with the configured API credentials, requests a verification code if needed, and completes sign-in.",
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

		authorized, err := manager.IsAuthorized(ctx)
		if err != nil {
			fmt.Printf("failed to check authorization: %v\n", err)
			return
		}
		if authorized {
			fmt.Println("Session is already authorized.")
			return
		}

		if _, err := manager.SendCode(ctx, cfg.Telegram.Phone); err != nil {
			fmt.Printf("failed to request verification code: %v\n", err)
			return
		}

		code, err := promptCode()
		if err != nil {
			fmt.Printf("failed to read verification code: %v\n", err)
			return
		}
		if code == "" {
			fmt.Println("no verification code entered")
			return
		}

		if _, err := manager.SignIn(ctx, cfg.Telegram.Phone, code); err != nil {
			fmt.Printf("sign-in failed: %v\n", err)
			return
		}

		fmt.Println("Successfully signed in.")
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func promptCode() (string, error) {
	fmt.Print("Enter the verification code sent to your Telegram: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
