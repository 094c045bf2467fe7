package krox

import (
	"fmt"
	"math"
	"sort"
)

// Source is a function of time, e.g. a mass flow rate in kg/s, a thrust in N or
// an ullage volume in m^3. Implementations must be safe for concurrent use.
type Source interface {
	Value(t float64) (float64, error)
}

// Constant is a Source which always returns the same value.
type Constant float64

// Value implements the Source interface.
func (c Constant) Value(t float64) (float64, error) {
	return float64(c), nil
}

func (c Constant) String() string {
	return fmt.Sprintf("constant %g", float64(c))
}

// Func is a Source defined by a closed form function of time.
type Func func(t float64) float64

// Value implements the Source interface.
func (f Func) Value(t float64) (float64, error) {
	return f(t), nil
}

// ExponentialDecay returns Amplitude·exp(-Decay·t).
type ExponentialDecay struct {
	Amplitude float64
	Decay     float64 // 1/s
}

// Value implements the Source interface.
func (e ExponentialDecay) Value(t float64) (float64, error) {
	return e.Amplitude * math.Exp(-e.Decay*t), nil
}

// Integral returns the exact integral of the decay over [0, t].
func (e ExponentialDecay) Integral(t float64) float64 {
	if e.Decay == 0 {
		return e.Amplitude * t
	}
	return e.Amplitude / e.Decay * (1 - math.Exp(-e.Decay*t))
}

// Polynomial returns c[0] + c[1]·t + c[2]·t² + ...
type Polynomial []float64

// Value implements the Source interface.
func (p Polynomial) Value(t float64) (float64, error) {
	var v float64
	for i := len(p) - 1; i >= 0; i-- {
		v = v*t + p[i]
	}
	return v, nil
}

// Sample is one (time, value) pair of a tabulated source.
type Sample struct {
	Time  float64
	Value float64
}

// Table is a tabulated Source, linearly interpolated between samples.
type Table struct {
	samples []Sample
	clamp   bool
}

// NewTable returns a new Table. Sample times must be strictly increasing. When
// clamp is set, queries outside the sampled range return the nearest endpoint
// value instead of an OutOfRangeError.
func NewTable(samples []Sample, clamp bool) (*Table, error) {
	if len(samples) == 0 {
		return nil, configErr("table", 0, "at least one sample is required")
	}
	for i, s := range samples {
		if math.IsNaN(s.Time) || math.IsNaN(s.Value) || math.IsInf(s.Time, 0) || math.IsInf(s.Value, 0) {
			return nil, configErr(fmt.Sprintf("table[%d]", i), s, "must be finite")
		}
		if i > 0 && s.Time <= samples[i-1].Time {
			return nil, configErr(fmt.Sprintf("table[%d].time", i), s.Time, "times must be strictly increasing")
		}
	}
	cpy := make([]Sample, len(samples))
	copy(cpy, samples)
	return &Table{samples: cpy, clamp: clamp}, nil
}

// Domain returns the first and last sample times.
func (tbl *Table) Domain() (min, max float64) {
	return tbl.samples[0].Time, tbl.samples[len(tbl.samples)-1].Time
}

// Samples returns a copy of the samples.
func (tbl *Table) Samples() []Sample {
	cpy := make([]Sample, len(tbl.samples))
	copy(cpy, tbl.samples)
	return cpy
}

// Value implements the Source interface.
func (tbl *Table) Value(t float64) (float64, error) {
	min, max := tbl.Domain()
	n := len(tbl.samples)
	switch {
	case math.IsNaN(t):
		return 0, &OutOfRangeError{Quantity: "table time", Value: t, Min: min, Max: max}
	case t < min:
		if !tbl.clamp {
			return 0, &OutOfRangeError{Quantity: "table time", Value: t, Min: min, Max: max}
		}
		return tbl.samples[0].Value, nil
	case t > max:
		if !tbl.clamp {
			return 0, &OutOfRangeError{Quantity: "table time", Value: t, Min: min, Max: max}
		}
		return tbl.samples[n-1].Value, nil
	}
	// First sample at or after t.
	i := sort.Search(n, func(i int) bool { return tbl.samples[i].Time >= t })
	if tbl.samples[i].Time == t || i == 0 {
		return tbl.samples[i].Value, nil
	}
	a, b := tbl.samples[i-1], tbl.samples[i]
	return lerp(t, a.Time, b.Time, a.Value, b.Value), nil
}

// zero is used for unset flow rates.
var zero = Constant(0)

func orZero(s Source) Source {
	if s == nil {
		return zero
	}
	return s
}
