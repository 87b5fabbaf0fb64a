package dcg

// Gain maps a relevance label and its per-row auxiliary weights to a gain
// value. Labels 0-2 take the weighted path; labels >= 3 fall back to the
// classic 2^label - 1 schedule.
//
// The function is pure and never fails: a zero theta propagates as Inf/NaN
// per floating-point semantics. Callers must keep thetas positive and
// labels below 31 (see CheckLabels for the table-range check).
func Gain(label int, theta1, theta2 float64) float64 {
	switch {
	case label == 0:
		return 0.0
	case label == 1:
		return 1.0 / theta1
	case label == 2:
		return 2.0/(theta1*theta2) + 1.0/theta1
	default:
		return float64(int64(1)<<uint(label) - 1)
	}
}
