package evaluation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rankeval/rank-eval/internal/dataset"
	"github.com/rankeval/rank-eval/internal/dcg"
	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Config holds evaluator settings.
type Config struct {
	// Cutoffs are the rank positions at which DCG/NDCG is reported.
	// Empty selects the default {1,2,3,4,5}.
	Cutoffs []int

	// Workers bounds the number of queries evaluated concurrently.
	// Zero or negative means 4.
	Workers int

	// SkipInvalid skips queries that fail validation instead of aborting
	// the run.
	SkipInvalid bool
}

// Evaluator computes per-query DCG, ideal DCG, and their NDCG ratio.
// The calculator's tables are read-only, so queries are scored in
// parallel without locking.
type Evaluator struct {
	calc        *dcg.Calculator
	cutoffs     []int
	workers     int
	skipInvalid bool
}

// NewEvaluator creates an evaluator. Cutoffs are validated and sorted
// ascending, which the single-pass accumulation in the calculator requires.
func NewEvaluator(calc *dcg.Calculator, cfg Config) (*Evaluator, error) {
	cutoffs, err := dcg.DefaultEvalAt(cfg.Cutoffs)
	if err != nil {
		return nil, err
	}
	sorted := make([]int, len(cutoffs))
	copy(sorted, cutoffs)
	sort.Ints(sorted)

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	return &Evaluator{
		calc:        calc,
		cutoffs:     sorted,
		workers:     workers,
		skipInvalid: cfg.SkipInvalid,
	}, nil
}

// Cutoffs returns the sorted evaluation cutoffs.
func (e *Evaluator) Cutoffs() []int {
	out := make([]int, len(e.cutoffs))
	copy(out, e.cutoffs)
	return out
}

// EvaluateQuery scores the rows of query qi in the dataset.
func (e *Evaluator) EvaluateQuery(d *dataset.Dataset, qi int) (*QueryResult, error) {
	start, end := d.Query(qi)

	labels := d.Labels[start:end]
	scores := d.Scores[start:end]
	theta1 := d.Theta1[start:end]
	theta2 := d.Theta2[start:end]

	if end-start > dcg.MaxPosition {
		return nil, errors.QueryTooLargeError(
			fmt.Sprintf("query %d has %d rows, exceeds upper limit of %d", qi, end-start, dcg.MaxPosition))
	}
	if err := e.calc.Tables().CheckLabels(labels); err != nil {
		return nil, err
	}

	ideal := make([]float64, len(e.cutoffs))
	actual := make([]float64, len(e.cutoffs))
	if err := e.calc.MaxDCG(e.cutoffs, labels, theta1, theta2, ideal); err != nil {
		return nil, err
	}
	if err := e.calc.DCG(e.cutoffs, labels, scores, theta1, theta2, actual); err != nil {
		return nil, err
	}

	res := &QueryResult{
		QueryIndex: qi,
		RowCount:   end - start,
		DCG:        make(map[int]float64, len(e.cutoffs)),
		MaxDCG:     make(map[int]float64, len(e.cutoffs)),
		NDCG:       make(map[int]float64, len(e.cutoffs)),
	}
	for i, k := range e.cutoffs {
		res.DCG[k] = actual[i]
		res.MaxDCG[k] = ideal[i]
		if ideal[i] > 0 {
			res.NDCG[k] = actual[i] / ideal[i]
		} else {
			res.NDCG[k] = 0
		}
	}
	return res, nil
}

// EvaluateDataset scores every query in the dataset, in parallel.
// In strict mode the first validation failure aborts the run; with
// SkipInvalid the offending queries are counted and skipped.
func (e *Evaluator) EvaluateDataset(ctx context.Context, d *dataset.Dataset) ([]*QueryResult, *Summary, error) {
	if d.Scores == nil {
		return nil, nil, errors.InvalidRequestError("dataset has no model scores to rank by")
	}
	if err := d.Validate(); err != nil {
		return nil, nil, err
	}

	// Strict mode validates the whole run up front so the error points at
	// the input rather than a worker.
	if !e.skipInvalid {
		if err := dcg.CheckQuerySizes(d.Boundaries); err != nil {
			return nil, nil, err
		}
		if err := e.calc.Tables().CheckLabels(d.Labels); err != nil {
			return nil, nil, err
		}
	}

	numQueries := d.NumQueries()
	results := make([]*QueryResult, numQueries)

	var mu sync.Mutex
	skipped := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for qi := 0; qi < numQueries; qi++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := e.EvaluateQuery(d, qi)
			if err != nil {
				if e.skipInvalid && errors.IsValidation(err) {
					mu.Lock()
					skipped++
					mu.Unlock()
					return nil
				}
				return err
			}
			results[qi] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Compact out skipped queries.
	kept := results[:0]
	for _, r := range results {
		if r != nil {
			kept = append(kept, r)
		}
	}
	results = kept

	summary := Summarize(results)
	summary.SkippedQueries = skipped
	return results, summary, nil
}

// Summarize averages per-query results into a run summary.
func Summarize(results []*QueryResult) *Summary {
	summary := &Summary{
		QueryCount: len(results),
		MeanDCG:    make(map[int]float64),
		MeanNDCG:   make(map[int]float64),
	}
	if len(results) == 0 {
		return summary
	}

	for _, r := range results {
		for k, v := range r.DCG {
			summary.MeanDCG[k] += v
		}
		for k, v := range r.NDCG {
			summary.MeanNDCG[k] += v
		}
	}

	n := float64(len(results))
	for k := range summary.MeanDCG {
		summary.MeanDCG[k] /= n
	}
	for k := range summary.MeanNDCG {
		summary.MeanNDCG[k] /= n
	}

	return summary
}
