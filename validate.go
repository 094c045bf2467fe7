package krox

import (
	"math"

	"github.com/gonum/floats"
)

const (
	// volumeTolerance is the relative tolerance on the ullage constraint.
	volumeTolerance = 1e-9
	// massTolerance is the relative tolerance below which a negative mass is round-off.
	massTolerance = 1e-9
)

func positive(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return configErr(param, v, "must be positive and finite")
	}
	return nil
}

func nonNegative(param string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return configErr(param, v, "must be non-negative and finite")
	}
	return nil
}

// checkMass returns the mass, zeroing round-off below zero, or a NegativeMassError.
// The scale is the largest mass the phase can reach over the burn.
func checkMass(tank, phase string, t, mass, scale float64) (float64, error) {
	if mass >= 0 {
		return mass, nil
	}
	if floats.EqualWithinAbs(mass, 0, massTolerance*math.Max(scale, 1)) {
		return 0, nil
	}
	return mass, &NegativeMassError{Tank: tank, Phase: phase, Time: t, Mass: mass}
}

// checkUllage verifies that the liquid and gas volumes fit in the tank volume.
func checkUllage(tank string, t, liquid, gas, total, tol float64) error {
	if liquid+gas > total*(1+tol) {
		return &UllageConstraintError{Tank: tank, Time: t, LiquidVolume: liquid, GasVolume: gas, TotalVolume: total}
	}
	return nil
}

// checkBounds verifies that a center of mass lies within the mounted tank.
func checkBounds(tank string, com, lo, hi float64) error {
	if lo > hi {
		lo, hi = hi, lo
	}
	eps := 1e-9 * math.Max(hi-lo, 1)
	if com < lo-eps || com > hi+eps {
		return &OutOfRangeError{Quantity: tank + " center of mass", Value: com, Min: lo, Max: hi}
	}
	return nil
}

// span is a closed interval along the motor axis.
type span struct {
	name   string
	lo, hi float64
}

// checkOverlap reports the first pair of intervals which overlap by more than
// a touching contact.
func checkOverlap(spans []span) error {
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			a, b := spans[i], spans[j]
			overlap := math.Min(a.hi, b.hi) - math.Max(a.lo, b.lo)
			if overlap > 1e-9 {
				return configErr("tank position", b.name, "overlaps "+a.name)
			}
		}
	}
	return nil
}
