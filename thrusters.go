package krox

import "github.com/gonum/floats"

// impulsePoints is the number of samples used to integrate the thrust curve.
const impulsePoints = 1001

// Thrust returns the thrust at time t. The motor coasts outside [0, burn time].
func (m *LiquidMotor) Thrust(t float64) (float64, error) {
	if t < 0 || t > m.cfg.BurnTime {
		return 0, nil
	}
	return m.cfg.Thrust.Value(t)
}

// TotalImpulse returns the integral of the thrust over the burn in N·s.
func (m *LiquidMotor) TotalImpulse() (float64, error) {
	times := make([]float64, impulsePoints)
	floats.Span(times, 0, m.cfg.BurnTime)
	thrust := make([]float64, impulsePoints)
	for i, t := range times {
		var err error
		if thrust[i], err = m.Thrust(t); err != nil {
			return 0, err
		}
	}
	return cumTrapz(times, thrust, 0)[impulsePoints-1], nil
}

// AverageThrust returns the total impulse divided by the burn time.
func (m *LiquidMotor) AverageThrust() (float64, error) {
	impulse, err := m.TotalImpulse()
	return impulse / m.cfg.BurnTime, err
}

// ExhaustVelocity returns thrust over propellant mass flow rate at time t, or
// zero when no propellant is expelled.
func (m *LiquidMotor) ExhaustVelocity(t float64) (float64, error) {
	thrust, err := m.Thrust(t)
	if err != nil {
		return 0, err
	}
	mdot, err := m.MassFlowRate(t)
	if err != nil || mdot <= 0 {
		return 0, err
	}
	return thrust / mdot, nil
}
