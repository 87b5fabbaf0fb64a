// Package dcg computes Discounted Cumulative Gain scores for
// learning-to-rank evaluation, including a weighted gain variant where
// low-grade labels contribute gain scaled by per-row auxiliary weights.
package dcg

import (
	"fmt"
	"math"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

const (
	// MaxPosition is the upper bound on rows per query. The discount
	// table is precomputed up to this position, so larger queries cannot
	// be scored.
	MaxPosition = 10000

	// defaultMaxLabel caps the default gain schedule: 2^i - 1 overflows
	// int32 at i=31.
	defaultMaxLabel = 31
)

// Tables holds the label-gain and position-discount lookup tables.
// A Tables value is immutable after construction and safe for concurrent
// reads across evaluation calls.
type Tables struct {
	labelGain []float64
	discount  []float64
}

// NewTables builds the lookup tables. labelGain is copied verbatim with no
// validation of monotonicity or sign; an empty slice selects the default
// power-of-two schedule. The discount table is discount[i] = 1/log2(2+i)
// for positions 0..MaxPosition-1.
func NewTables(labelGain []float64) *Tables {
	if len(labelGain) == 0 {
		labelGain = DefaultLabelGain(nil)
	}

	t := &Tables{
		labelGain: make([]float64, len(labelGain)),
		discount:  make([]float64, MaxPosition),
	}
	copy(t.labelGain, labelGain)

	for i := 0; i < MaxPosition; i++ {
		t.discount[i] = 1.0 / math.Log2(2.0+float64(i))
	}

	return t
}

// NumGains returns the number of label-gain entries. Labels must stay
// strictly below this value.
func (t *Tables) NumGains() int {
	return len(t.labelGain)
}

// Discount returns the discount factor for a zero-based rank position.
func (t *Tables) Discount(position int) float64 {
	return t.discount[position]
}

// LabelGain returns a copy of the label-gain table.
func (t *Tables) LabelGain() []float64 {
	out := make([]float64, len(t.labelGain))
	copy(out, t.labelGain)
	return out
}

// DefaultLabelGain fills the default gain schedule when labelGain is empty:
// gain[0] = 0 and gain[i] = 2^i - 1 for i = 1..30. A non-empty input is
// returned unchanged.
func DefaultLabelGain(labelGain []float64) []float64 {
	if len(labelGain) > 0 {
		return labelGain
	}

	out := make([]float64, 0, defaultMaxLabel)
	out = append(out, 0.0)
	for i := 1; i < defaultMaxLabel; i++ {
		out = append(out, float64(int64(1)<<uint(i)-1))
	}
	return out
}

// DefaultEvalAt fills or validates the evaluation cutoffs. An empty input
// yields {1,2,3,4,5}; otherwise every cutoff must be positive.
func DefaultEvalAt(cutoffs []int) ([]int, error) {
	if len(cutoffs) == 0 {
		return []int{1, 2, 3, 4, 5}, nil
	}

	for i, k := range cutoffs {
		if k <= 0 {
			return nil, errors.ValidationError(
				fmt.Sprintf("eval cutoff must be positive, got %d at position %d", k, i))
		}
	}
	return cutoffs, nil
}
