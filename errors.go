package krox

import "fmt"

// ConfigurationError is returned when a static parameter is invalid. It is
// detected at construction and no computation proceeds.
type ConfigurationError struct {
	Param  string
	Value  interface{}
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("krox: invalid %s=%v: %s", e.Param, e.Value, e.Reason)
}

func configErr(param string, value interface{}, reason string) error {
	return &ConfigurationError{Param: param, Value: value, Reason: reason}
}

// GeometryOverflowError is returned when a volume cannot be placed in a tank.
type GeometryOverflowError struct {
	Volume   float64 // m^3
	Capacity float64 // m^3
}

func (e *GeometryOverflowError) Error() string {
	if e.Volume < 0 {
		return fmt.Sprintf("krox: negative fill volume %g m^3", e.Volume)
	}
	return fmt.Sprintf("krox: fill volume %g m^3 exceeds tank capacity %g m^3", e.Volume, e.Capacity)
}

// OutOfRangeError is returned when a query falls outside a defined domain and
// no clamp or hold policy was configured.
type OutOfRangeError struct {
	Quantity string
	Value    float64
	Min, Max float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("krox: %s=%g outside [%g, %g]", e.Quantity, e.Value, e.Min, e.Max)
}

// NegativeMassError is returned when integrating the flow rates drains a phase
// below zero before the end of the flux time.
type NegativeMassError struct {
	Tank  string
	Phase string // "liquid" or "gas"
	Time  float64
	Mass  float64
}

func (e *NegativeMassError) Error() string {
	return fmt.Sprintf("krox: %s %s mass %g kg < 0 at t=%gs (depleted before flux time)", e.Tank, e.Phase, e.Mass, e.Time)
}

// UllageConstraintError is returned when the liquid and gas volumes do not fit
// the tank volume.
type UllageConstraintError struct {
	Tank         string
	Time         float64
	LiquidVolume float64
	GasVolume    float64
	TotalVolume  float64
}

func (e *UllageConstraintError) Error() string {
	return fmt.Sprintf("krox: %s at t=%gs liquid %g m^3 + gas %g m^3 != tank volume %g m^3", e.Tank, e.Time, e.LiquidVolume, e.GasVolume, e.TotalVolume)
}
