package krox

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestViolationKind(t *testing.T) {
	for exp, err := range map[string]error{
		"negative_mass":     &NegativeMassError{},
		"ullage":            fmt.Errorf("wrapped: %w", &UllageConstraintError{}),
		"geometry_overflow": &GeometryOverflowError{},
		"out_of_range":      &OutOfRangeError{},
		"other":             errors.New("boom"),
	} {
		if kind := violationKind(err); kind != exp {
			t.Fatalf("%v: kind %s expected %s", err, kind, exp)
		}
	}
}

func TestViolationCounter(t *testing.T) {
	counter := constraintViolationsTotal.WithLabelValues("negative_mass")
	before := testutil.ToFloat64(counter)
	cfg := testMassFlowConfig()
	cfg.LiquidOut = Constant(3)
	tk := mustMassFlowTank(t, cfg)
	for i := 0; i < 3; i++ {
		if err := tk.Validate(); err == nil {
			t.Fatal("expected the tank to deplete")
		}
	}
	// The grid is built once, so the violation is counted once.
	if after := testutil.ToFloat64(counter); after-before != 1 {
		t.Fatalf("counted %g violations", after-before)
	}
}
