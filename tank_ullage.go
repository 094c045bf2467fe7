package krox

import (
	"time"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
)

// UllageTankConfig configures an UllageBasedTank. The gas density may be left
// at zero, in which case the gas mass is zero.
type UllageTankConfig struct {
	Name          string
	Geometry      CylindricalTank
	Liquid, Gas   Fluid
	Ullage        Source  // gas volume in m^3
	FluxTime      float64 // s
	Discretize    int     // grid points, defaults to DefaultDiscretize
	Extrapolation Extrapolation
	Logger        kitlog.Logger
}

// UllageBasedTank is a tank whose gas volume is known over time. The liquid
// volume is the complement of the ullage and the liquid is incompressible.
type UllageBasedTank struct {
	*tank
	ullage Source
}

// NewUllageBasedTank returns a new ullage based tank.
func NewUllageBasedTank(cfg UllageTankConfig) (*UllageBasedTank, error) {
	base, err := newTank(cfg.Name, cfg.Geometry, cfg.Liquid, cfg.Gas, cfg.FluxTime, cfg.Discretize, cfg.Extrapolation, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.Gas.Density != 0 {
		if err := cfg.Gas.validate(); err != nil {
			return nil, err
		}
	}
	if cfg.Ullage == nil {
		return nil, configErr(cfg.Name+".ullage", nil, "an ullage source is required")
	}
	tk := &UllageBasedTank{tank: base, ullage: cfg.Ullage}
	base.build = tk.buildGrid
	return tk, nil
}

// contents returns the phase masses and the liquid volume for a given ullage.
func (tk *UllageBasedTank) contents(t, ullage float64) (mL, mG, vL float64, err error) {
	total := tk.geometry.TotalVolume()
	vL = total - ullage
	if ullage < -volumeTolerance*total || vL < -volumeTolerance*total {
		return 0, 0, vL, &UllageConstraintError{Tank: tk.name, Time: t, LiquidVolume: vL, GasVolume: ullage, TotalVolume: total}
	}
	ullage = clamp(ullage, 0, total)
	vL = total - ullage
	mL = tk.liquid.Density * vL
	if tk.gas.defined() {
		mG = tk.gas.Density * ullage
	}
	return
}

func (tk *UllageBasedTank) buildGrid() (*tankGrid, error) {
	start := time.Now()
	n := gridSize(tk.discretize)
	grid := &tankGrid{times: make([]float64, n), liquidMass: make([]float64, n), gasMass: make([]float64, n), liquidVolume: make([]float64, n)}
	floats.Span(grid.times, 0, tk.fluxTime)
	for i, t := range grid.times {
		u, err := tk.ullage.Value(t)
		if err == nil {
			grid.liquidMass[i], grid.gasMass[i], grid.liquidVolume[i], err = tk.contents(t, u)
		}
		if err != nil {
			tk.logger.Log("level", "critical", "subsys", "tank", "tank", tk.name, "err", err)
			observeViolation(err)
			return nil, err
		}
	}
	observeGrid("ullage", time.Since(start))
	tk.logGrid("ullage", grid)
	return grid, nil
}

// NetMassFlowRate implements the Tank interface. The rate is the slope of the
// sampled mass over the grid interval containing t.
func (tk *UllageBasedTank) NetMassFlowRate(t float64) (float64, error) {
	if tk.Phase(t) != PhaseActive {
		return 0, nil
	}
	grid, err := tk.sampled()
	if err != nil {
		return 0, err
	}
	i := grid.bracket(t)
	dm := grid.liquidMass[i+1] + grid.gasMass[i+1] - grid.liquidMass[i] - grid.gasMass[i]
	return dm / (grid.times[i+1] - grid.times[i]), nil
}
