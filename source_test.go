package krox

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/gonum/floats"
)

func TestClosedFormSources(t *testing.T) {
	for _, tc := range []struct {
		name string
		src  Source
		t    float64
		exp  float64
	}{
		{"constant", Constant(3.5), 100, 3.5},
		{"func", Func(func(t float64) float64 { return 2 * t }), 1.5, 3},
		{"thrust curve", Polynomial{4000, 0, -100}, 2, 3600},
		{"empty polynomial", Polynomial{}, 2, 0},
		{"exponential", ExponentialDecay{Amplitude: 32 / 3., Decay: 0.25}, 4, 32 / 3. * math.Exp(-1)},
	} {
		v, err := tc.src.Value(tc.t)
		if err != nil {
			t.Fatalf("%s: %s", tc.name, err)
		}
		if !floats.EqualWithinAbs(v, tc.exp, 1e-12) {
			t.Fatalf("%s: got %g expected %g", tc.name, v, tc.exp)
		}
	}
	e := ExponentialDecay{Amplitude: 2, Decay: 0.5}
	if !floats.EqualWithinAbs(e.Integral(2), 4*(1-math.Exp(-1)), 1e-12) {
		t.Fatal("invalid exponential integral")
	}
	if (ExponentialDecay{Amplitude: 2}).Integral(3) != 6 {
		t.Fatal("invalid integral without decay")
	}
}

func TestTable(t *testing.T) {
	samples := []Sample{{0, 0}, {1, 10}, {3, 30}}
	tbl, err := NewTable(samples, false)
	if err != nil {
		t.Fatal(err)
	}
	samples[1].Value = -1 // the table keeps its own copy
	for _, tc := range []struct{ t, exp float64 }{{0, 0}, {0.5, 5}, {1, 10}, {2, 20}, {3, 30}} {
		v, err := tbl.Value(tc.t)
		if err != nil {
			t.Fatal(err)
		}
		if !floats.EqualWithinAbs(v, tc.exp, 1e-12) {
			t.Fatalf("table(%g)=%g expected %g", tc.t, v, tc.exp)
		}
	}
	var rng *OutOfRangeError
	if _, err := tbl.Value(3.1); !errors.As(err, &rng) || rng.Max != 3 || rng.Value != 3.1 {
		t.Fatalf("expected an OutOfRangeError, got %v", err)
	}
	if _, err := tbl.Value(-0.1); !errors.As(err, &rng) {
		t.Fatalf("expected an OutOfRangeError, got %v", err)
	}

	clamped, err := NewTable(tbl.Samples(), true)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := clamped.Value(-5); v != 0 {
		t.Fatalf("clamped before range: %g", v)
	}
	if v, _ := clamped.Value(50); v != 30 {
		t.Fatalf("clamped after range: %g", v)
	}
	if min, max := clamped.Domain(); min != 0 || max != 3 {
		t.Fatalf("invalid domain [%g, %g]", min, max)
	}
}

func TestTableConfiguration(t *testing.T) {
	var cfgErr *ConfigurationError
	for _, samples := range [][]Sample{
		nil,
		{{0, 1}, {0, 2}},
		{{0, 1}, {2, 2}, {1, 3}},
		{{0, math.NaN()}},
	} {
		if _, err := NewTable(samples, false); !errors.As(err, &cfgErr) {
			t.Fatalf("%v: expected a ConfigurationError, got %v", samples, err)
		}
	}
	if _, err := NewTable([]Sample{{0, 1}, {1, 2}, {1, 3}}, false); err == nil || !strings.Contains(err.Error(), "strictly increasing") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTableConcurrentReads(t *testing.T) {
	samples := make([]Sample, 100)
	for i := range samples {
		samples[i] = Sample{float64(i), float64(i * i)}
	}
	tbl, err := NewTable(samples, false)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 99; i++ {
				v, err := tbl.Value(float64(i) + 0.5)
				if err != nil {
					errs <- err
					return
				}
				if exp := float64(i*i+(i+1)*(i+1)) / 2; v != exp {
					errs <- errors.New("invalid interpolation")
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}
