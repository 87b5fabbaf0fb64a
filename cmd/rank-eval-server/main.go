// Package main provides the rank-eval server binary.
// The server exposes HTTP endpoints for evaluation runs and run history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankeval/rank-eval/internal/bus"
	"github.com/rankeval/rank-eval/internal/config"
	"github.com/rankeval/rank-eval/internal/dcg"
	"github.com/rankeval/rank-eval/internal/evaluation"
	"github.com/rankeval/rank-eval/internal/history"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
	"github.com/rankeval/rank-eval/internal/pkg/security"
	"github.com/rankeval/rank-eval/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rank-eval-server",
		Short: "rank-eval server - HTTP NDCG evaluation service",
		Long: `rank-eval-server exposes ranking-quality evaluation over HTTP.

The server exposes:
  - POST /v1/evaluate for inline evaluation requests
  - GET  /v1/history for past runs
  - /healthz, /readyz, /v1/version for operations

Examples:
  rank-eval-server                     # Start with defaults
  rank-eval-server --port 9090         # Custom HTTP port
  rank-eval-server -c config.yaml      # Custom configuration`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().Int("port", 8080, "HTTP server port")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rank-eval-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override from flags
	if cmd.Flags().Changed("port") {
		appCfg.Port = port
	}
	if cmd.Flags().Changed("host") {
		appCfg.Host = host
	}

	logLevel := appCfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, appCfg.Log.Format)

	log.Info("Starting rank-eval server",
		"version", version,
		"addr", appCfg.Address(),
	)

	// Initialize event bus
	innerBus, err := bus.NewBus(appCfg.Bus)
	if err != nil {
		return fmt.Errorf("failed to create event bus: %w", err)
	}
	defer func() { _ = innerBus.Close() }()
	log.Info("Initialized event bus", "type", appCfg.Bus.Type)

	// Wrap bus with the JSONL event log if enabled
	eventBus := innerBus
	if appCfg.Bus.EventLogEnabled {
		eventLogger, err := bus.NewEventLogger(appCfg.Bus.EventLogPath, true)
		if err != nil {
			return fmt.Errorf("failed to create event logger: %w", err)
		}
		eventBus = bus.NewLoggedBus(innerBus, eventLogger)
		log.Info("Event logging enabled", "path", appCfg.Bus.EventLogPath)
	}

	// Initialize history store
	var store history.Store = history.NoopStore{}
	if appCfg.History.RedisURL != "" {
		redisStore, err := history.NewRedisStore(appCfg.History.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis history: %w", err)
		}
		store = redisStore
		log.Info("Connected to Redis history store",
			"url", security.MaskURLCredentials(appCfg.History.RedisURL))
	}
	defer func() { _ = store.Close() }()

	// Build the evaluation pipeline
	calc := dcg.NewCalculator(dcg.NewTables(appCfg.Eval.LabelGain))
	eval, err := evaluation.NewEvaluator(calc, evaluation.Config{
		Cutoffs:     appCfg.Eval.Cutoffs,
		Workers:     appCfg.Eval.Workers,
		SkipInvalid: appCfg.Eval.SkipInvalid,
	})
	if err != nil {
		return err
	}
	svc := evaluation.NewService(eval, eventBus, store, log)

	srv := server.New(server.Config{
		Addr:        appCfg.Address(),
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		RateLimit:   appCfg.Security.RateLimit,
		CORSOrigins: appCfg.Security.CORSOrigins,
	}, log, evaluation.NewHandler(svc))

	srv.Start()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	log.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP shutdown error", "error", err)
	}

	log.Info("Server stopped")
	return nil
}
