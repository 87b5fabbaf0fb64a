package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/rankeval/rank-eval/internal/bus"
	"github.com/rankeval/rank-eval/internal/dataset"
	"github.com/rankeval/rank-eval/internal/history"
	"github.com/rankeval/rank-eval/internal/pkg/logger"
	"github.com/rankeval/rank-eval/internal/pkg/security"
)

const eventSource = "evaluation-service"

// Service runs evaluations and fans results out to the event bus and the
// run history store. Both collaborators are optional.
type Service struct {
	evaluator *Evaluator
	bus       bus.Bus
	store     history.Store
	log       *logger.Logger
}

// NewService creates an evaluation service.
func NewService(e *Evaluator, eventBus bus.Bus, store history.Store, log *logger.Logger) *Service {
	if store == nil {
		store = history.NoopStore{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &Service{
		evaluator: e,
		bus:       eventBus,
		store:     store,
		log:       log,
	}
}

// Evaluator returns the underlying evaluator.
func (s *Service) Evaluator() *Evaluator {
	return s.evaluator
}

// History returns the run history store.
func (s *Service) History() history.Store {
	return s.store
}

// Run evaluates the dataset, publishes run lifecycle events, and records
// the outcome in history. The returned report carries a unique run ID.
func (s *Service) Run(ctx context.Context, datasetName string, d *dataset.Dataset) (*Report, error) {
	runID := newRunID()
	log := s.log.WithRun(runID).WithDataset(security.SanitizeForLog(datasetName))

	log.Info("evaluation run started",
		"queries", d.NumQueries(),
		"rows", d.NumRows(),
		"cutoffs", s.evaluator.Cutoffs())
	s.publish(ctx, bus.TopicRunStarted, map[string]any{
		"run_id":  runID,
		"dataset": datasetName,
		"queries": d.NumQueries(),
	})

	started := time.Now()
	results, summary, err := s.evaluator.EvaluateDataset(ctx, d)
	if err != nil {
		log.WithError(err).Error("evaluation run failed")
		s.publish(ctx, bus.TopicRunFailed, map[string]any{
			"run_id":  runID,
			"dataset": datasetName,
			"error":   err.Error(),
		})
		return nil, err
	}

	if summary.SkippedQueries > 0 {
		log.Warn("queries skipped on validation errors", "skipped", summary.SkippedQueries)
		s.publish(ctx, bus.TopicQuerySkipped, map[string]any{
			"run_id":  runID,
			"dataset": datasetName,
			"skipped": summary.SkippedQueries,
		})
	}

	report := &Report{
		RunID:   runID,
		Dataset: datasetName,
		Results: results,
		Summary: summary,
	}

	log.Info("evaluation run completed",
		"queries", summary.QueryCount,
		"skipped", summary.SkippedQueries,
		"duration_ms", time.Since(started).Milliseconds())
	s.publish(ctx, bus.TopicRunCompleted, report)

	run := history.Run{
		ID:             runID,
		Timestamp:      time.Now(),
		Dataset:        datasetName,
		DatasetHash:    d.Fingerprint,
		QueryCount:     summary.QueryCount,
		SkippedQueries: summary.SkippedQueries,
		MeanNDCG:       summary.MeanNDCG,
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		// History is advisory. The report is still valid.
		log.WithError(err).Warn("failed to save run to history")
	} else {
		s.publish(ctx, bus.TopicHistorySaved, run)
	}

	return report, nil
}

func (s *Service) publish(ctx context.Context, topic string, payload any) {
	if s.bus == nil {
		return
	}
	event := bus.NewEvent(topic, eventSource, payload)
	if err := s.bus.Publish(ctx, topic, event); err != nil {
		s.log.WithError(err).Warn("failed to publish event", "topic", topic)
	}
}

func newRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}
