package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/traced/internal/cmd/client"
	serverrun "github.com/rzbill/traced/internal/cmd/server"
	cfgpkg "github.com/rzbill/traced/internal/config"
	pebblestore "github.com/rzbill/traced/internal/storage/pebble"
	logpkg "github.com/rzbill/traced/pkg/log"
)

func main() {
	// Respect TRACED_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("TRACED_LOG_LEVEL")
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
		Use:   "traced",
		Short: "traced runtime CLI",
		Long:  "traced is a single-binary trace recorder. This CLI manages the server and basic operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start traced server (HTTP API)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			configPath, _ := cmd.Flags().GetString("config")
			traceFile, _ := cmd.Flags().GetString("trace-file")
			maxFileSize, _ := cmd.Flags().GetUint64("max-file-size")
			filter, _ := cmd.Flags().GetString("filter")
			disabled, _ := cmd.Flags().GetBool("disabled")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode, err := pebblestore.ParseFsyncMode(fsyncMode)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			// Precedence: defaults, then config file, then env, then flags.
			cfg := cfgpkg.Default()
			if configPath != "" {
				cfg, err = cfgpkg.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
			}
			cfgpkg.FromEnv(&cfg)
			if traceFile != "" {
				cfg.Trace.FilePath = traceFile
			}
			if maxFileSize > 0 {
				cfg.Trace.MaxFileSizeBytes = maxFileSize
			}
			if filter != "" {
				cfg.Trace.Filter = filter
			}
			if disabled {
				cfg.Trace.Enabled = false
			}
			if logLevel != "" {
				_ = os.Setenv("TRACED_LOG_LEVEL", logLevel)
			}
			if logFormat != "" {
				_ = os.Setenv("TRACED_LOG_FORMAT", logFormat)
			}
			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", "", "Config file path (JSON or YAML)")
	serverStartCmd.Flags().String("trace-file", "", "Trace file path (overrides config)")
	serverStartCmd.Flags().Uint64("max-file-size", 0, "Trace file byte budget (overrides config)")
	serverStartCmd.Flags().String("filter", "", "CEL admission filter expression (overrides config)")
	serverStartCmd.Flags().Bool("disabled", false, "Start with trace recording disabled")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	serverStartCmd.Flags().String("log-level", os.Getenv("TRACED_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("TRACED_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// trace commands (client side, over HTTP)
	rootCmd.AddCommand(clientcmd.NewTraceCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("TRACED_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
