package dcg

import (
	"math/rand"
	"testing"
)

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0
	}
	return out
}

func TestMaxDCGAtKConcrete(t *testing.T) {
	// labels [0,1,2,3] with unit weights give gains [0,1,3,7];
	// ideal order is 7,3,1,0.
	tables := NewTables(nil)
	calc := NewCalculator(tables)

	labels := []float64{0, 1, 2, 3}
	th := ones(4)

	want := 7*tables.Discount(0) + 3*tables.Discount(1) + 1*tables.Discount(2) + 0*tables.Discount(3)
	got := calc.MaxDCGAtK(4, labels, th, th)
	if !approxEqual(got, want, 1e-12) {
		t.Errorf("MaxDCGAtK(4) = %f, want %f", got, want)
	}
}

func TestMaxDCGAtKOrderInvariant(t *testing.T) {
	tables := NewTables(nil)
	calc := NewCalculator(tables)

	labels := []float64{3, 0, 2, 1, 2, 0}
	th1 := []float64{0.3, 0.9, 0.5, 0.7, 0.2, 0.4}
	th2 := []float64{0.8, 0.1, 0.6, 0.3, 0.9, 0.5}

	want := calc.MaxDCGAtK(4, labels, th1, th2)

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		perm := rng.Perm(len(labels))
		pl := make([]float64, len(labels))
		p1 := make([]float64, len(labels))
		p2 := make([]float64, len(labels))
		for i, p := range perm {
			pl[i] = labels[p]
			p1[i] = th1[p]
			p2[i] = th2[p]
		}
		got := calc.MaxDCGAtK(4, pl, p1, p2)
		if !approxEqual(got, want, 1e-9) {
			t.Fatalf("permutation changed ideal DCG: %f != %f", got, want)
		}
	}
}

func TestMaxDCGAtKClampsCutoff(t *testing.T) {
	calc := NewCalculator(NewTables(nil))

	labels := []float64{2, 0, 1}
	th := ones(3)

	atN := calc.MaxDCGAtK(3, labels, th, th)
	beyondN := calc.MaxDCGAtK(8, labels, th, th)
	if atN != beyondN {
		t.Errorf("k beyond n should clamp: got %f, want %f", beyondN, atN)
	}
}

func TestMaxDCGAtKEmpty(t *testing.T) {
	calc := NewCalculator(NewTables(nil))
	if got := calc.MaxDCGAtK(5, nil, nil, nil); got != 0 {
		t.Errorf("empty labels should yield 0, got %f", got)
	}
}

func TestMaxDCGMatchesPerCutoff(t *testing.T) {
	tables := NewTables(nil)
	calc := NewCalculator(tables)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 10; trial++ {
		n := 1 + rng.Intn(40)
		labels := make([]float64, n)
		th1 := make([]float64, n)
		th2 := make([]float64, n)
		for i := 0; i < n; i++ {
			labels[i] = float64(rng.Intn(5))
			th1[i] = 0.1 + rng.Float64()
			th2[i] = 0.1 + rng.Float64()
		}

		ks := []int{1, 3, 5, 10, 50}
		out := make([]float64, len(ks))
		if err := calc.MaxDCG(ks, labels, th1, th2, out); err != nil {
			t.Fatalf("MaxDCG error: %v", err)
		}

		for i, k := range ks {
			want := calc.MaxDCGAtK(k, labels, th1, th2)
			if !approxEqual(out[i], want, 1e-9) {
				t.Errorf("trial %d: MaxDCG at k=%d is %f, MaxDCGAtK gives %f",
					trial, k, out[i], want)
			}
		}
	}
}

func TestDCGConcrete(t *testing.T) {
	// scores [5,1,9,2] order rows as [2,0,3,1], so the gains land as
	// 3,0,7,1 at successive positions.
	tables := NewTables(nil)
	calc := NewCalculator(tables)

	labels := []float64{0, 1, 2, 3}
	scores := []float64{5, 1, 9, 2}
	th := ones(4)

	out := make([]float64, 1)
	if err := calc.DCG([]int{4}, labels, scores, th, th, out); err != nil {
		t.Fatalf("DCG error: %v", err)
	}

	want := 3*tables.Discount(0) + 0*tables.Discount(1) + 7*tables.Discount(2) + 1*tables.Discount(3)
	if !approxEqual(out[0], want, 1e-12) {
		t.Errorf("DCG = %f, want %f", out[0], want)
	}
}

func TestDCGStableTieHandling(t *testing.T) {
	// Equal scores keep original row order, so swapping tied rows with
	// different labels changes the result deterministically.
	tables := NewTables(nil)
	calc := NewCalculator(tables)

	labels := []float64{3, 1}
	scores := []float64{1, 1}
	th := ones(2)

	out := make([]float64, 1)
	if err := calc.DCG([]int{2}, labels, scores, th, th, out); err != nil {
		t.Fatalf("DCG error: %v", err)
	}

	want := 7*tables.Discount(0) + 1*tables.Discount(1)
	if !approxEqual(out[0], want, 1e-12) {
		t.Errorf("tied rows reordered: got %f, want %f", out[0], want)
	}
}

func TestMaxDCGUpperBoundsDCG(t *testing.T) {
	calc := NewCalculator(NewTables(nil))

	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(30)
		labels := make([]float64, n)
		scores := make([]float64, n)
		th1 := make([]float64, n)
		th2 := make([]float64, n)
		for i := 0; i < n; i++ {
			labels[i] = float64(rng.Intn(4))
			scores[i] = rng.NormFloat64()
			th1[i] = 0.2 + rng.Float64()
			th2[i] = 0.2 + rng.Float64()
		}

		ks := []int{1, 2, 5, 10}
		actual := make([]float64, len(ks))
		ideal := make([]float64, len(ks))
		if err := calc.DCG(ks, labels, scores, th1, th2, actual); err != nil {
			t.Fatalf("DCG error: %v", err)
		}
		if err := calc.MaxDCG(ks, labels, th1, th2, ideal); err != nil {
			t.Fatalf("MaxDCG error: %v", err)
		}

		for i := range ks {
			if actual[i] > ideal[i]+1e-9 {
				t.Errorf("trial %d: DCG %f exceeds ideal %f at k=%d",
					trial, actual[i], ideal[i], ks[i])
			}
		}
	}
}

func TestCutoffPreconditions(t *testing.T) {
	calc := NewCalculator(NewTables(nil))
	labels := []float64{1, 2}
	th := ones(2)

	// Descending cutoffs are rejected rather than silently mis-summed.
	out := make([]float64, 2)
	if err := calc.MaxDCG([]int{5, 1}, labels, th, th, out); err == nil {
		t.Error("expected error for descending cutoffs in MaxDCG")
	}
	if err := calc.DCG([]int{5, 1}, labels, labels, th, th, out); err == nil {
		t.Error("expected error for descending cutoffs in DCG")
	}

	// Short output buffer.
	if err := calc.MaxDCG([]int{1, 2}, labels, th, th, make([]float64, 1)); err == nil {
		t.Error("expected error for short output buffer")
	}

	// Equal neighboring cutoffs are still ascending.
	if err := calc.MaxDCG([]int{2, 2}, labels, th, th, out); err != nil {
		t.Errorf("equal cutoffs should be accepted: %v", err)
	}
	if out[0] != out[1] {
		t.Errorf("repeated cutoff should repeat the sum: %f != %f", out[0], out[1])
	}
}

func TestDCGEmptyLabels(t *testing.T) {
	calc := NewCalculator(NewTables(nil))

	out := []float64{99, 99}
	if err := calc.DCG([]int{1, 5}, nil, nil, nil, nil, out); err != nil {
		t.Fatalf("DCG error: %v", err)
	}
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("empty labels should yield 0 at every cutoff, got %v", out)
	}
}
