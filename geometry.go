package krox

import (
	"fmt"
	"math"
)

// Three point Gauss-Legendre rule on [-1, 1], exact for polynomials up to degree five.
var (
	glNodes   = [3]float64{-0.7745966692414834, 0, 0.7745966692414834}
	glWeights = [3]float64{5 / 9., 8 / 9., 5 / 9.}
)

// CylindricalTank is the geometry of a cylindrical tank, optionally closed by
// two hemispherical caps. Heights are measured from the bottom of the tank,
// i.e. the bottom of the lower cap if any. Fill heights range over [0, Height()],
// which includes both caps, not over [0, Length].
type CylindricalTank struct {
	Radius        float64 // m
	Length        float64 // m, length of the cylindrical section only
	SphericalCaps bool
}

// NewCylindricalTank returns a new tank geometry.
func NewCylindricalTank(radius, length float64, sphericalCaps bool) (CylindricalTank, error) {
	g := CylindricalTank{Radius: radius, Length: length, SphericalCaps: sphericalCaps}
	return g, g.validate()
}

func (g CylindricalTank) validate() error {
	if err := positive("radius", g.Radius); err != nil {
		return err
	}
	return positive("length", g.Length)
}

// Height returns the inner height of the tank.
func (g CylindricalTank) Height() float64 {
	if g.SphericalCaps {
		return g.Length + 2*g.Radius
	}
	return g.Length
}

// TotalVolume returns the inner volume of the tank. Both caps make one sphere.
func (g CylindricalTank) TotalVolume() float64 {
	v := math.Pi * g.Radius * g.Radius * g.Length
	if g.SphericalCaps {
		v += 4 / 3. * math.Pi * math.Pow(g.Radius, 3)
	}
	return v
}

// Volume returns the volume filled up to height h. Heights outside the tank
// are clamped.
func (g CylindricalTank) Volume(h float64) float64 {
	h = math.Max(0, math.Min(h, g.Height()))
	r := g.Radius
	r2 := r * r
	if !g.SphericalCaps {
		return math.Pi * r2 * h
	}
	hemi := 2 / 3. * math.Pi * r2 * r
	switch {
	case h <= r:
		return math.Pi * h * h * (3*r - h) / 3
	case h <= r+g.Length:
		return hemi + math.Pi*r2*(h-r)
	default:
		u := h - r - g.Length
		return hemi + math.Pi*r2*g.Length + math.Pi*(r2*u-u*u*u/3)
	}
}

// sectionRadius2 returns the squared radius of the cross section at height z.
func (g CylindricalTank) sectionRadius2(z float64) float64 {
	r := g.Radius
	if g.SphericalCaps {
		var d float64
		if z < r {
			d = r - z
		} else if z > r+g.Length {
			d = z - r - g.Length
		}
		return math.Max(0, r*r-d*d)
	}
	return r * r
}

// area returns the cross section area at height z.
func (g CylindricalTank) area(z float64) float64 {
	return math.Pi * g.sectionRadius2(z)
}

// FillHeight returns the height at which the tank holds volume v. This is the
// inverse of Volume.
func (g CylindricalTank) FillHeight(v float64) (float64, error) {
	total := g.TotalVolume()
	H := g.Height()
	switch {
	case v < -volumeTolerance*total:
		return 0, &GeometryOverflowError{Volume: v, Capacity: total}
	case v > total*(1+volumeTolerance):
		return H, &GeometryOverflowError{Volume: v, Capacity: total}
	case v <= 0:
		return 0, nil
	case v >= total:
		return H, nil
	}
	if !g.SphericalCaps {
		return v / (math.Pi * g.Radius * g.Radius), nil
	}
	// Newton iterations kept within a bisection bracket; dV/dh is the section area.
	lo, hi := 0., H
	h := H * v / total
	for i := 0; i < 200; i++ {
		f := g.Volume(h) - v
		if f == 0 {
			return h, nil
		}
		if f > 0 {
			hi = h
		} else {
			lo = h
		}
		next := (lo + hi) / 2
		if a := g.area(h); a > 0 {
			if n := h - f/a; n > lo && n < hi {
				next = n
			}
		}
		if math.Abs(next-h) <= 1e-15*H || hi-lo <= 1e-15*H {
			return next, nil
		}
		h = next
	}
	return h, nil
}

// breakpoints returns the heights where the section profile changes.
func (g CylindricalTank) breakpoints() []float64 {
	if g.SphericalCaps {
		return []float64{0, g.Radius, g.Radius + g.Length, g.Height()}
	}
	return []float64{0, g.Length}
}

// slab holds the geometric moments of the region between two fill heights.
type slab struct {
	volume     float64 // ∫ A dz
	moment     float64 // ∫ z A dz
	axial      float64 // ∫ π ρ⁴/2 dz
	transverse float64 // ∫ (π ρ⁴/4 + z² A) dz, about the tank bottom
}

// moments integrates the region [h0, h1] segment by segment.
func (g CylindricalTank) moments(h0, h1 float64) (s slab) {
	H := g.Height()
	h0 = math.Max(0, math.Min(h0, H))
	h1 = math.Max(0, math.Min(h1, H))
	if h1 <= h0 {
		return
	}
	bp := g.breakpoints()
	for i := 0; i+1 < len(bp); i++ {
		a, b := math.Max(bp[i], h0), math.Min(bp[i+1], h1)
		if b <= a {
			continue
		}
		half, mid := (b-a)/2, (a+b)/2
		for k, x := range glNodes {
			z := mid + half*x
			w := glWeights[k] * half
			rho2 := g.sectionRadius2(z)
			A := math.Pi * rho2
			s.volume += w * A
			s.moment += w * z * A
			s.axial += w * math.Pi * rho2 * rho2 / 2
			s.transverse += w * (math.Pi*rho2*rho2/4 + z*z*A)
		}
	}
	return
}

// Centroid returns the height of the centroid of the region between h0 and h1.
func (g CylindricalTank) Centroid(h0, h1 float64) float64 {
	s := g.moments(h0, h1)
	if s.volume <= 0 {
		return math.Max(0, math.Min(h0, g.Height()))
	}
	return s.moment / s.volume
}

// Inertia returns the inertia per unit density of the region between h0 and
// h1 about its own centroid. Multiply by the fluid density to get kg·m^2.
func (g CylindricalTank) Inertia(h0, h1 float64) Inertia {
	s := g.moments(h0, h1)
	if s.volume <= 0 {
		return Inertia{}
	}
	c := s.moment / s.volume
	It := s.transverse - s.volume*c*c
	return Inertia{I11: It, I22: It, I33: s.axial}
}

func (g CylindricalTank) String() string {
	caps := "flat ends"
	if g.SphericalCaps {
		caps = "spherical caps"
	}
	return fmt.Sprintf("cylinder r=%.4gm L=%.4gm (%s) V=%.5gm^3", g.Radius, g.Length, caps, g.TotalVolume())
}
