// Package main provides the rank-eval CLI for scoring ranking quality
// of learning-to-rank model output against labeled datasets.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/rankeval/rank-eval/internal/config"
	"github.com/rankeval/rank-eval/internal/dataset"
	"github.com/rankeval/rank-eval/internal/dcg"
	"github.com/rankeval/rank-eval/internal/evaluation"
	"github.com/rankeval/rank-eval/internal/history"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
	"github.com/rankeval/rank-eval/internal/pkg/security"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rank-eval",
		Short: "rank-eval - NDCG ranking-quality evaluation for learning-to-rank output",
		Long: `rank-eval scores the ranking quality of a model's output against a
labeled dataset using weighted DCG and NDCG.

A dataset is an svmlight-style label file plus a .query file with
per-query row counts. Optional .theta1 and .theta2 files adjust the
gains of labels 1 and 2.

Run 'rank-eval evaluate <dataset>' to score a dataset.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		evaluateCmd(),
		historyCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <dataset-prefix>",
		Short: "Evaluate model scores against a labeled dataset",
		Long: `Evaluate reads <dataset-prefix> (labels), <dataset-prefix>.query
(per-query row counts), optional <dataset-prefix>.theta1/.theta2, and a
score file with one model score per row, then reports mean NDCG at the
configured cutoffs.`,
		Args: cobra.ExactArgs(1),
		RunE: runEvaluate,
	}

	cmd.Flags().StringP("scores", "s", "", "score file path (one score per row, required)")
	cmd.Flags().IntSlice("cutoffs", nil, "rank cutoffs to report (default 1,2,3,4,5)")
	cmd.Flags().Float64Slice("label-gain", nil, "per-label gain table (default 2^i - 1)")
	cmd.Flags().Int("workers", 0, "concurrent query evaluations (default from config)")
	cmd.Flags().Bool("skip-invalid", false, "skip queries failing validation instead of aborting")
	cmd.Flags().Bool("json", false, "print the full report as JSON")
	cmd.Flags().Bool("per-query", false, "print per-query NDCG rows")

	return cmd
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	prefix := args[0]
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	scorePath, _ := cmd.Flags().GetString("scores")
	cutoffs, _ := cmd.Flags().GetIntSlice("cutoffs")
	labelGain, _ := cmd.Flags().GetFloat64Slice("label-gain")
	workers, _ := cmd.Flags().GetInt("workers")
	skipInvalid, _ := cmd.Flags().GetBool("skip-invalid")
	asJSON, _ := cmd.Flags().GetBool("json")
	perQuery, _ := cmd.Flags().GetBool("per-query")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	// Flags override config.
	if len(cutoffs) == 0 {
		cutoffs = cfg.Eval.Cutoffs
	}
	if len(labelGain) == 0 {
		labelGain = cfg.Eval.LabelGain
	}
	if workers == 0 {
		workers = cfg.Eval.Workers
	}
	if !skipInvalid {
		skipInvalid = cfg.Eval.SkipInvalid
	}

	if scorePath == "" {
		return fmt.Errorf("--scores is required")
	}

	log.Info("Loading dataset", "prefix", prefix, "scores", scorePath)
	d, err := dataset.Load(prefix, scorePath)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	log.Info("Loaded dataset", "queries", d.NumQueries(), "rows", d.NumRows())

	calc := dcg.NewCalculator(dcg.NewTables(labelGain))
	eval, err := evaluation.NewEvaluator(calc, evaluation.Config{
		Cutoffs:     cutoffs,
		Workers:     workers,
		SkipInvalid: skipInvalid,
	})
	if err != nil {
		return err
	}

	store, err := newHistoryStore(cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	svc := evaluation.NewService(eval, nil, store, log)
	report, err := svc.Run(cmd.Context(), prefix, d)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(report, eval.Cutoffs(), perQuery)
	return nil
}

func printReport(report *evaluation.Report, cutoffs []int, perQuery bool) {
	if perQuery {
		for _, r := range report.Results {
			fmt.Printf("query %d (%d rows):", r.QueryIndex, r.RowCount)
			for _, k := range cutoffs {
				fmt.Printf("  NDCG@%d=%.6f", k, r.NDCG[k])
			}
			fmt.Println()
		}
		fmt.Println()
	}

	fmt.Printf("dataset: %s\n", report.Dataset)
	fmt.Printf("queries: %d", report.Summary.QueryCount)
	if report.Summary.SkippedQueries > 0 {
		fmt.Printf(" (%d skipped)", report.Summary.SkippedQueries)
	}
	fmt.Println()
	for _, k := range cutoffs {
		fmt.Printf("mean NDCG@%-5d %.6f\n", k, report.Summary.MeanNDCG[k])
	}
}

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past evaluation runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			sinceStr, _ := cmd.Flags().GetString("since")

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			since := time.Time{}
			if sinceStr != "" {
				since, err = time.Parse(time.RFC3339, sinceStr)
				if err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
			}

			store, err := newHistoryStore(cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.LoadRuns(cmd.Context(), since)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}

			for _, run := range runs {
				fmt.Printf("%s  %s  dataset=%s queries=%d", run.Timestamp.Format(time.RFC3339), run.ID, run.Dataset, run.QueryCount)
				ks := make([]int, 0, len(run.MeanNDCG))
				for k := range run.MeanNDCG {
					ks = append(ks, k)
				}
				sort.Ints(ks)
				for _, k := range ks {
					fmt.Printf(" NDCG@%d=%.6f", k, run.MeanNDCG[k])
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().String("since", "", "only runs after this RFC3339 timestamp")
	return cmd
}

// newHistoryStore picks the Redis store when configured, the no-op store
// otherwise.
func newHistoryStore(cfg *config.Config, log *logger.Logger) (history.Store, error) {
	if cfg.History.RedisURL == "" {
		return history.NoopStore{}, nil
	}
	store, err := history.NewRedisStore(cfg.History.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis history: %w", err)
	}
	log.Info("Connected to Redis history store",
		"url", security.MaskURLCredentials(cfg.History.RedisURL))
	return store, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rank-eval %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
