package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	clientcmd "github.com/aboly3304/sos-bot/internal/cmd/client"
	serverrun "github.com/aboly3304/sos-bot/internal/cmd/server"
	cfgpkg "github.com/aboly3304/sos-bot/internal/config"
	logpkg "github.com/aboly3304/sos-bot/pkg/log"
)

var version = "dev"

func main() {
	// .env is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	// Respect SOS_LOG_LEVEL for CLI output too
	level := os.Getenv("SOS_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "sos-bot",
		Short: "SOS session coordination service",
		Long:  "sos-bot runs the emergency-assistance session service: a Telegram gateway, an HTTP API, and a durable fact log for crash recovery.",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("sos-bot", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the SOS server (HTTP API and optional Telegram gateway)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")
			telegram, _ := cmd.Flags().GetBool("telegram")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)

			// Flags win over file and env.
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}
			if fsyncIntervalMs > 0 {
				cfg.FsyncIntervalMs = fsyncIntervalMs
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}
			if cmd.Flags().Changed("telegram") {
				cfg.Telegram.Enabled = telegram
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{DataDir: dataDir, Config: cfg}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Config file (JSON or YAML)")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("log-level", os.Getenv("SOS_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("SOS_LOG_FORMAT"), "Log format: text|json (default text)")
	serverStartCmd.Flags().Bool("telegram", false, "Enable the Telegram gateway (requires SOS_BOT_TOKEN)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewSOSCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("SOS_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
