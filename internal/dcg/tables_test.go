package dcg

import (
	"math"
	"testing"
)

func TestNewTablesCopiesInput(t *testing.T) {
	gains := []float64{0, 1, 3, 7}
	tables := NewTables(gains)

	gains[2] = 99 // mutation after construction must not leak in
	if got := tables.LabelGain()[2]; got != 3 {
		t.Errorf("gain[2] = %f, want 3 (tables must copy input)", got)
	}
	if tables.NumGains() != 4 {
		t.Errorf("NumGains() = %d, want 4", tables.NumGains())
	}
}

func TestNewTablesDefaultSchedule(t *testing.T) {
	tables := NewTables(nil)

	if tables.NumGains() != 31 {
		t.Fatalf("NumGains() = %d, want 31", tables.NumGains())
	}

	gains := tables.LabelGain()
	if gains[0] != 0 {
		t.Errorf("gain[0] = %f, want 0", gains[0])
	}
	for i := 1; i < 31; i++ {
		want := float64(int64(1)<<uint(i) - 1)
		if gains[i] != want {
			t.Errorf("gain[%d] = %f, want %f", i, gains[i], want)
		}
	}
}

func TestDiscountTable(t *testing.T) {
	tables := NewTables(nil)

	// discount[i] = 1 / log2(2 + i)
	for _, i := range []int{0, 1, 2, 100, MaxPosition - 1} {
		want := 1.0 / math.Log2(2.0+float64(i))
		if got := tables.Discount(i); !approxEqual(got, want, 1e-12) {
			t.Errorf("Discount(%d) = %f, want %f", i, got, want)
		}
	}

	if tables.Discount(0) != 1.0 {
		t.Errorf("Discount(0) = %f, want 1.0", tables.Discount(0))
	}
}

func TestDiscountStrictlyDecreasing(t *testing.T) {
	tables := NewTables(nil)

	for i := 0; i+1 < MaxPosition; i++ {
		if tables.Discount(i) <= tables.Discount(i+1) {
			t.Fatalf("discount not strictly decreasing at %d: %f <= %f",
				i, tables.Discount(i), tables.Discount(i+1))
		}
	}
}

func TestDefaultLabelGain(t *testing.T) {
	got := DefaultLabelGain(nil)
	if len(got) != 31 {
		t.Fatalf("len = %d, want 31", len(got))
	}
	if got[0] != 0 || got[1] != 1 || got[5] != 31 || got[30] != float64(int64(1)<<30-1) {
		t.Errorf("unexpected default schedule: %v", got[:6])
	}

	// Non-empty input passes through unchanged.
	custom := []float64{0, 2, 4}
	if out := DefaultLabelGain(custom); len(out) != 3 || out[1] != 2 {
		t.Errorf("non-empty input should be returned unchanged, got %v", out)
	}
}

func TestDefaultEvalAt(t *testing.T) {
	got, err := DefaultEvalAt(nil)
	if err != nil {
		t.Fatalf("DefaultEvalAt(nil) error: %v", err)
	}
	want := []int{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	// Valid cutoffs pass through.
	if _, err := DefaultEvalAt([]int{1, 10, 100}); err != nil {
		t.Errorf("valid cutoffs rejected: %v", err)
	}

	// Non-positive cutoffs are a configuration error.
	if _, err := DefaultEvalAt([]int{1, 0, 3}); err == nil {
		t.Error("expected error for cutoff 0")
	}
	if _, err := DefaultEvalAt([]int{-5}); err == nil {
		t.Error("expected error for negative cutoff")
	}
}
