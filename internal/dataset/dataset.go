// Package dataset loads ranking datasets from disk.
//
// A dataset is a family of files sharing a prefix, following the usual
// learning-to-rank layout: "<prefix>" holds one svmlight-style row per
// line (only the leading relevance label is read here), "<prefix>.query"
// holds the per-query row counts, and optional "<prefix>.theta1" /
// "<prefix>.theta2" files hold one auxiliary weight per row. Model scores
// come from a separate file with one float per line.
package dataset

import (
	"fmt"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
	"github.com/rankeval/rank-eval/internal/pkg/hash"
)

// Dataset holds the per-row columns and query boundaries for one split.
type Dataset struct {
	// Labels are per-row relevance grades, integral values stored as floats.
	Labels []float64

	// Scores are per-row model scores inducing the candidate ranking.
	Scores []float64

	// Theta1 and Theta2 are per-row auxiliary weights for the weighted
	// gain path. Both default to 1.0 when no theta files exist.
	Theta1 []float64
	Theta2 []float64

	// Boundaries is the ascending sequence of row offsets, one longer
	// than the number of queries; query i spans rows
	// [Boundaries[i], Boundaries[i+1]).
	Boundaries []int

	// Fingerprint is a short content hash of the label file, identifying
	// the dataset version a run scored. Empty for inline datasets.
	Fingerprint string
}

// NumQueries returns the number of queries in the dataset.
func (d *Dataset) NumQueries() int {
	if len(d.Boundaries) == 0 {
		return 0
	}
	return len(d.Boundaries) - 1
}

// Query returns the half-open row range of query i.
func (d *Dataset) Query(i int) (start, end int) {
	return d.Boundaries[i], d.Boundaries[i+1]
}

// NumRows returns the total number of rows.
func (d *Dataset) NumRows() int {
	return len(d.Labels)
}

// Load reads a dataset from the files under prefix plus a score file.
// An empty scorePath leaves Scores nil (ideal DCG can still be computed).
func Load(prefix, scorePath string) (*Dataset, error) {
	labels, err := readLabels(prefix)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading labels from %s", prefix), err)
	}

	counts, err := readInts(prefix + ".query")
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading query file %s.query", prefix), err)
	}

	d := &Dataset{
		Labels:     labels,
		Boundaries: countsToBoundaries(counts),
	}

	d.Theta1, err = readFloatsOrDefault(prefix+".theta1", len(labels))
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s.theta1", prefix), err)
	}
	d.Theta2, err = readFloatsOrDefault(prefix+".theta2", len(labels))
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("reading %s.theta2", prefix), err)
	}

	if scorePath != "" {
		d.Scores, err = readFloats(scorePath)
		if err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("reading scores from %s", scorePath), err)
		}
	}

	d.Fingerprint, err = hash.FileFingerprint(prefix, 16)
	if err != nil {
		return nil, errors.DatasetError(fmt.Sprintf("fingerprinting %s", prefix), err)
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the cross-column consistency of the dataset.
func (d *Dataset) Validate() error {
	n := len(d.Labels)

	if len(d.Boundaries) < 2 {
		return errors.ValidationError("dataset has no queries")
	}
	if d.Boundaries[0] != 0 {
		return errors.ValidationError(
			fmt.Sprintf("query boundaries must start at 0, got %d", d.Boundaries[0]))
	}
	for i := 1; i < len(d.Boundaries); i++ {
		if d.Boundaries[i] < d.Boundaries[i-1] {
			return errors.ValidationError(
				fmt.Sprintf("query boundaries must be ascending, got %d after %d",
					d.Boundaries[i], d.Boundaries[i-1]))
		}
	}
	if last := d.Boundaries[len(d.Boundaries)-1]; last != n {
		return errors.ValidationError(
			fmt.Sprintf("query boundaries cover %d rows, dataset has %d", last, n))
	}

	if d.Scores != nil && len(d.Scores) != n {
		return errors.ValidationError(
			fmt.Sprintf("score file has %d rows, dataset has %d", len(d.Scores), n))
	}
	if len(d.Theta1) != n {
		return errors.ValidationError(
			fmt.Sprintf("theta1 file has %d rows, dataset has %d", len(d.Theta1), n))
	}
	if len(d.Theta2) != n {
		return errors.ValidationError(
			fmt.Sprintf("theta2 file has %d rows, dataset has %d", len(d.Theta2), n))
	}

	return nil
}

// countsToBoundaries converts per-query row counts to cumulative offsets.
func countsToBoundaries(counts []int) []int {
	boundaries := make([]int, len(counts)+1)
	for i, c := range counts {
		boundaries[i+1] = boundaries[i] + c
	}
	return boundaries
}
