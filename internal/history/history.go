// Package history persists evaluation-run results so ranking quality can
// be tracked across model iterations.
package history

import (
	"context"
	"time"
)

// Run is one completed evaluation run.
type Run struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// Timestamp is when the run completed.
	Timestamp time.Time `json:"timestamp"`

	// Dataset names the evaluated split.
	Dataset string `json:"dataset"`

	// DatasetHash is a short content hash of the label file, when known.
	DatasetHash string `json:"dataset_hash,omitempty"`

	// QueryCount is the number of queries scored.
	QueryCount int `json:"query_count"`

	// SkippedQueries is the number of queries skipped on validation errors.
	SkippedQueries int `json:"skipped_queries,omitempty"`

	// MeanNDCG holds the mean NDCG per cutoff.
	MeanNDCG map[int]float64 `json:"mean_ndcg"`
}

// Store persists evaluation runs.
type Store interface {
	// SaveRun records a completed run.
	SaveRun(ctx context.Context, run Run) error

	// LoadRuns returns runs completed after 'since', oldest first.
	LoadRuns(ctx context.Context, since time.Time) ([]Run, error)

	// Close releases store resources.
	Close() error
}

// NoopStore discards runs. Used when no history backend is configured.
type NoopStore struct{}

// SaveRun discards the run.
func (NoopStore) SaveRun(context.Context, Run) error { return nil }

// LoadRuns returns no runs.
func (NoopStore) LoadRuns(context.Context, time.Time) ([]Run, error) { return nil, nil }

// Close is a no-op.
func (NoopStore) Close() error { return nil }
