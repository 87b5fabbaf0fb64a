package dcg

import (
	"fmt"
	"math"

	"github.com/rankeval/rank-eval/internal/pkg/errors"
)

// labelEpsilon tolerates floating-point noise when checking that a label
// is integral.
const labelEpsilon = 1e-15

// CheckQuerySizes verifies that no query spans more rows than the discount
// table covers. queryBoundaries is the ascending sequence of row offsets,
// one longer than the number of queries. Nil or single-entry boundaries
// are a no-op.
func CheckQuerySizes(queryBoundaries []int) error {
	if len(queryBoundaries) < 2 {
		return nil
	}

	for i := 0; i+1 < len(queryBoundaries); i++ {
		numRows := queryBoundaries[i+1] - queryBoundaries[i]
		if numRows > MaxPosition {
			return errors.QueryTooLargeError(
				fmt.Sprintf("query %d has %d rows, exceeds upper limit of %d", i, numRows, MaxPosition)).
				WithDetail("query", fmt.Sprintf("%d", i)).
				WithDetail("rows", fmt.Sprintf("%d", numRows))
		}
	}
	return nil
}

// CheckLabels verifies every label against the calculator's numeric
// assumptions: integral within epsilon, non-negative, and strictly below
// the gain table length. The three conditions are checked independently
// so the error always names the exact violation.
func (t *Tables) CheckLabels(labels []float64) error {
	for i, label := range labels {
		if delta := math.Abs(label - math.Trunc(label)); delta > labelEpsilon {
			return errors.InvalidLabelError(
				fmt.Sprintf("label must be an integer for ranking, got %f at row %d", label, i))
		}

		if label < 0 {
			return errors.InvalidLabelError(
				fmt.Sprintf("label must be non-negative for ranking, got %f at row %d", label, i))
		}

		if int(label) >= len(t.labelGain) {
			return errors.InvalidLabelError(
				fmt.Sprintf("label %d at row %d is not less than the number of gain mappings (%d)",
					int(label), i, len(t.labelGain)))
		}
	}
	return nil
}
