package krox

import "fmt"

// Fluid stores the properties of a propellant or pressurant phase.
type Fluid struct {
	Name    string
	Density float64 // kg/m^3
}

// NewFluid returns a new Fluid after checking its density.
func NewFluid(name string, density float64) (Fluid, error) {
	f := Fluid{Name: name, Density: density}
	return f, f.validate()
}

func (f Fluid) validate() error {
	return positive(f.Name+".density", f.Density)
}

// defined returns whether a density was provided for this fluid.
func (f Fluid) defined() bool {
	return f.Density > 0
}

func (f Fluid) String() string {
	return fmt.Sprintf("%s (ρ=%.4g kg/m^3)", f.Name, f.Density)
}
