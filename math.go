package krox

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// Inertia stores the principal moments of inertia in kg·m^2: I11 and I22 about
// the axes perpendicular to the motor axis and I33 about the motor axis.
type Inertia struct {
	I11, I22, I33 float64
}

// Add returns the sum of both inertias, which must share the same reference point.
func (i Inertia) Add(o Inertia) Inertia {
	return Inertia{i.I11 + o.I11, i.I22 + o.I22, i.I33 + o.I33}
}

// Scale returns the inertia scaled by k, e.g. a density.
func (i Inertia) Scale(k float64) Inertia {
	return Inertia{k * i.I11, k * i.I22, k * i.I33}
}

// Tensor returns the inertia as a diagonal 3x3 tensor.
func (i Inertia) Tensor() *mat64.SymDense {
	return mat64.NewSymDense(3, []float64{
		i.I11, 0, 0,
		0, i.I22, 0,
		0, 0, i.I33})
}

// Shift returns the inertia about a point located at distance d along the
// motor axis from the center of mass of a body of mass m (parallel axis theorem).
func (i Inertia) Shift(m, d float64) Inertia {
	return inertiaFromTensor(parallelAxis(i.Tensor(), m, []float64{0, 0, d}))
}

func (i Inertia) String() string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g) kg·m^2", i.I11, i.I22, i.I33)
}

// parallelAxis returns I + m(|d|² E - d dᵀ).
func parallelAxis(I *mat64.SymDense, m float64, d []float64) *mat64.SymDense {
	dv := mat64.NewVector(3, d)
	d2 := mat64.Dot(dv, dv)
	out := mat64.NewSymDense(3, nil)
	for r := 0; r < 3; r++ {
		for c := r; c < 3; c++ {
			v := I.At(r, c) - m*d[r]*d[c]
			if r == c {
				v += m * d2
			}
			out.SetSym(r, c, v)
		}
	}
	return out
}

func inertiaFromTensor(t *mat64.SymDense) Inertia {
	return Inertia{t.At(0, 0), t.At(1, 1), t.At(2, 2)}
}

// lerp linearly interpolates between (x0, y0) and (x1, y1).
func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// clamp returns v within [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
