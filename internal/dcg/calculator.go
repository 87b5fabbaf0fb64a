package dcg

import (
	"fmt"
	"sort"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// Calculator scores rankings against a fixed set of lookup tables.
// It is stateless beyond the shared read-only tables, so a single
// Calculator may be used concurrently across queries.
type Calculator struct {
	tables *Tables
}

// NewCalculator creates a calculator bound to the given tables.
func NewCalculator(t *Tables) *Calculator {
	return &Calculator{tables: t}
}

// Tables returns the lookup tables the calculator was built with.
func (c *Calculator) Tables() *Tables {
	return c.tables
}

// MaxDCGAtK computes the ideal DCG at a single cutoff: the best DCG any
// arrangement of the rows could achieve. Gains are computed per row,
// sorted descending, and accumulated with position discounts. k is
// clamped to the number of rows. The result is invariant under
// permutation of the input order.
func (c *Calculator) MaxDCGAtK(k int, labels, theta1, theta2 []float64) float64 {
	n := len(labels)
	gains := make([]float64, n)
	for j := 0; j < n; j++ {
		gains[j] = Gain(int(labels[j]), theta1[j], theta2[j])
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(gains)))

	if k > n {
		k = n
	}

	ret := 0.0
	for j := 0; j < k; j++ {
		ret += c.tables.discount[j] * gains[j]
	}
	return ret
}

// MaxDCG computes the ideal DCG at every cutoff in ks in a single pass
// (ascending-cutoff cumulative DCG): gains are sorted once and a cursor
// advances through them, recording the running sum at each cutoff.
// ks must be ascending and out must hold at least len(ks) values; both
// preconditions are checked because the cumulative accumulation silently
// produces wrong results otherwise.
func (c *Calculator) MaxDCG(ks []int, labels, theta1, theta2 []float64, out []float64) error {
	if err := checkCutoffs(ks, out); err != nil {
		return err
	}

	n := len(labels)
	gains := make([]float64, n)
	for j := 0; j < n; j++ {
		gains[j] = Gain(int(labels[j]), theta1[j], theta2[j])
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(gains)))

	cur := 0.0
	left := 0
	for i, k := range ks {
		if k > n {
			k = n
		}
		for j := left; j < k; j++ {
			cur += c.tables.discount[j] * gains[j]
		}
		out[i] = cur
		left = k
	}
	return nil
}

// DCG computes the DCG achieved by the ranking induced by scores, at every
// cutoff in ks. Rows are ordered by score descending with a stable sort,
// so equal-score rows keep their original relative order and tie handling
// stays deterministic. The same ascending-cutoff accumulation as MaxDCG is
// applied, with gains taken in score-sorted order.
func (c *Calculator) DCG(ks []int, labels, scores, theta1, theta2 []float64, out []float64) error {
	if err := checkCutoffs(ks, out); err != nil {
		return err
	}

	n := len(labels)
	sortedIdx := make([]int, n)
	for i := 0; i < n; i++ {
		sortedIdx[i] = i
	}
	sort.SliceStable(sortedIdx, func(a, b int) bool {
		return scores[sortedIdx[a]] > scores[sortedIdx[b]]
	})

	cur := 0.0
	left := 0
	for i, k := range ks {
		if k > n {
			k = n
		}
		for j := left; j < k; j++ {
			idx := sortedIdx[j]
			cur += Gain(int(labels[idx]), theta1[idx], theta2[idx]) * c.tables.discount[j]
		}
		out[i] = cur
		left = k
	}
	return nil
}

// checkCutoffs verifies the single-pass preconditions.
func checkCutoffs(ks []int, out []float64) error {
	if len(out) < len(ks) {
		return errors.ValidationError(
			fmt.Sprintf("output buffer holds %d values, need %d", len(out), len(ks)))
	}
	for i := 1; i < len(ks); i++ {
		if ks[i] < ks[i-1] {
			return errors.ValidationError(
				fmt.Sprintf("cutoffs must be ascending, got %d after %d", ks[i], ks[i-1]))
		}
	}
	return nil
}
