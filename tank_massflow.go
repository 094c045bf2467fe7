package krox

import (
	"fmt"
	"math"
	"time"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
)

// Quadrature selects how the flow rates are integrated over the grid.
type Quadrature uint8

const (
	// Trapezoidal is the cumulative trapezoidal rule on the grid.
	Trapezoidal Quadrature = iota
	// RungeKutta4 integrates the mass balance with a fixed step RK4 on the grid.
	RungeKutta4
)

func (q Quadrature) String() string {
	switch q {
	case Trapezoidal:
		return "trapezoidal"
	case RungeKutta4:
		return "rk4"
	}
	panic("cannot stringify unknown quadrature")
}

// MassFlowRateTankConfig configures a MassFlowRateBasedTank. Unset flow rates are zero.
type MassFlowRateTankConfig struct {
	Name              string
	Geometry          CylindricalTank
	Liquid, Gas       Fluid
	InitialLiquidMass float64 // kg
	InitialGasMass    float64 // kg
	LiquidIn          Source  // kg/s
	LiquidOut         Source  // kg/s
	GasIn             Source  // kg/s
	GasOut            Source  // kg/s
	FluxTime          float64 // s
	Discretize        int     // grid points, defaults to DefaultDiscretize
	Quadrature        Quadrature
	Extrapolation     Extrapolation
	UllageTolerance   float64 // relative, defaults to DefaultUllageTolerance
	Logger            kitlog.Logger
}

// MassFlowRateBasedTank is a tank whose liquid and gas masses are obtained by
// integrating their inflow and outflow rates.
type MassFlowRateBasedTank struct {
	*tank
	cfg MassFlowRateTankConfig
}

// NewMassFlowRateBasedTank returns a new mass flow rate based tank. The mass
// balance is integrated lazily on the first query.
func NewMassFlowRateBasedTank(cfg MassFlowRateTankConfig) (*MassFlowRateBasedTank, error) {
	base, err := newTank(cfg.Name, cfg.Geometry, cfg.Liquid, cfg.Gas, cfg.FluxTime, cfg.Discretize, cfg.Extrapolation, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if err := cfg.Gas.validate(); err != nil {
		return nil, err
	}
	if err := nonNegative(cfg.Name+".initial_liquid_mass", cfg.InitialLiquidMass); err != nil {
		return nil, err
	}
	if err := nonNegative(cfg.Name+".initial_gas_mass", cfg.InitialGasMass); err != nil {
		return nil, err
	}
	if cfg.UllageTolerance == 0 {
		cfg.UllageTolerance = DefaultUllageTolerance
	} else if err := nonNegative(cfg.Name+".ullage_tolerance", cfg.UllageTolerance); err != nil {
		return nil, err
	}
	if cfg.Quadrature > RungeKutta4 {
		return nil, configErr(cfg.Name+".quadrature", uint8(cfg.Quadrature), "unknown quadrature")
	}
	total := cfg.Geometry.TotalVolume()
	vL, vG := cfg.InitialLiquidMass/cfg.Liquid.Density, cfg.InitialGasMass/cfg.Gas.Density
	if vL+vG > total*(1+cfg.UllageTolerance) {
		return nil, configErr(cfg.Name+".initial_mass", fmt.Sprintf("%gm^3", vL+vG), fmt.Sprintf("exceeds tank capacity %gm^3", total))
	}
	cfg.LiquidIn, cfg.LiquidOut = orZero(cfg.LiquidIn), orZero(cfg.LiquidOut)
	cfg.GasIn, cfg.GasOut = orZero(cfg.GasIn), orZero(cfg.GasOut)
	cfg.Discretize = base.discretize
	cfg.Logger = base.logger
	tk := &MassFlowRateBasedTank{tank: base, cfg: cfg}
	base.build = tk.buildGrid
	return tk, nil
}

// netRates returns the net liquid and gas mass flow rates at t.
func (tk *MassFlowRateBasedTank) netRates(t float64) (liquid, gas float64, err error) {
	var in, out float64
	if in, err = tk.cfg.LiquidIn.Value(t); err != nil {
		return
	}
	if out, err = tk.cfg.LiquidOut.Value(t); err != nil {
		return
	}
	liquid = in - out
	if in, err = tk.cfg.GasIn.Value(t); err != nil {
		return
	}
	if out, err = tk.cfg.GasOut.Value(t); err != nil {
		return
	}
	gas = in - out
	return
}

// NetMassFlowRate implements the Tank interface.
func (tk *MassFlowRateBasedTank) NetMassFlowRate(t float64) (float64, error) {
	if tk.Phase(t) != PhaseActive {
		return 0, nil
	}
	l, g, err := tk.netRates(t)
	return l + g, err
}

// LiquidNetMassFlowRate returns the net liquid mass flow rate at t, zero outside the flux time.
func (tk *MassFlowRateBasedTank) LiquidNetMassFlowRate(t float64) (float64, error) {
	if tk.Phase(t) != PhaseActive {
		return 0, nil
	}
	l, _, err := tk.netRates(t)
	return l, err
}

// Ullage returns the gas volume over the flux time as a tabulated source, as
// required to describe the same tank with NewUllageBasedTank.
func (tk *MassFlowRateBasedTank) Ullage() (*Table, error) {
	grid, err := tk.sampled()
	if err != nil {
		return nil, err
	}
	total := tk.geometry.TotalVolume()
	samples := make([]Sample, len(grid.times))
	for i, t := range grid.times {
		samples[i] = Sample{Time: t, Value: math.Max(0, total-grid.liquidVolume[i])}
	}
	return NewTable(samples, false)
}

func (tk *MassFlowRateBasedTank) buildGrid() (*tankGrid, error) {
	start := time.Now()
	mode := "massflow-" + tk.cfg.Quadrature.String()
	n := gridSize(tk.discretize)
	times := make([]float64, n)
	floats.Span(times, 0, tk.fluxTime)

	var mL, mG []float64
	var err error
	switch tk.cfg.Quadrature {
	case RungeKutta4:
		mL, mG, err = tk.integrateRK4(times)
	default:
		mL, mG, err = tk.integrateTrapezoidal(times)
	}
	if err != nil {
		observeViolation(err)
		return nil, err
	}

	grid := &tankGrid{times: times, liquidMass: mL, gasMass: mG, liquidVolume: make([]float64, n)}
	total := tk.geometry.TotalVolume()
	scaleL := math.Max(tk.cfg.InitialLiquidMass, floats.Max(mL))
	scaleG := math.Max(tk.cfg.InitialGasMass, floats.Max(mG))
	for i, t := range times {
		if mL[i], err = checkMass(tk.name, "liquid", t, mL[i], scaleL); err != nil {
			break
		}
		if mG[i], err = checkMass(tk.name, "gas", t, mG[i], scaleG); err != nil {
			break
		}
		vL, vG := mL[i]/tk.liquid.Density, mG[i]/tk.gas.Density
		if err = checkUllage(tk.name, t, vL, vG, total, tk.cfg.UllageTolerance); err != nil {
			break
		}
		grid.liquidVolume[i] = vL
	}
	if err != nil {
		tk.logger.Log("level", "critical", "subsys", "tank", "tank", tk.name, "err", err)
		observeViolation(err)
		return nil, err
	}
	observeGrid(mode, time.Since(start))
	tk.logGrid(mode, grid)
	return grid, nil
}

// integrateTrapezoidal samples the net rates on the grid and accumulates them.
func (tk *MassFlowRateBasedTank) integrateTrapezoidal(times []float64) (mL, mG []float64, err error) {
	netL := make([]float64, len(times))
	netG := make([]float64, len(times))
	for i, t := range times {
		if netL[i], netG[i], err = tk.netRates(t); err != nil {
			return nil, nil, err
		}
	}
	return cumTrapz(times, netL, tk.cfg.InitialLiquidMass), cumTrapz(times, netG, tk.cfg.InitialGasMass), nil
}

// cumTrapz returns y0 + ∫ y dx from x[0] to each x[i].
func cumTrapz(x, y []float64, y0 float64) []float64 {
	inc := make([]float64, len(x))
	for i := 1; i < len(x); i++ {
		inc[i] = (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	out := make([]float64, len(x))
	floats.CumSum(out, inc)
	floats.AddConst(y0, out)
	return out
}

func (tk *MassFlowRateBasedTank) integrateRK4(times []float64) (mL, mG []float64, err error) {
	n := len(times)
	b := &massBalance{tank: tk, n: n, state: []float64{tk.cfg.InitialLiquidMass, tk.cfg.InitialGasMass}}
	b.liquid = append(make([]float64, 0, n), b.state[0])
	b.gas = append(make([]float64, 0, n), b.state[1])
	ode.NewRK4(0, times[1]-times[0], b).Solve() // Blocking.
	if b.err != nil {
		return nil, nil, b.err
	}
	if len(b.liquid) != n {
		return nil, nil, fmt.Errorf("krox: %s rk4 produced %d of %d grid points", tk.name, len(b.liquid), n)
	}
	return b.liquid, b.gas, nil
}

// massBalance is an ode.Integrable of the liquid and gas masses of a tank.
type massBalance struct {
	tank        *MassFlowRateBasedTank
	n           int
	state       []float64
	liquid, gas []float64
	err         error
}

// GetState implements the ode.Integrable interface.
func (b *massBalance) GetState() []float64 {
	return []float64{b.state[0], b.state[1]}
}

// SetState implements the ode.Integrable interface.
func (b *massBalance) SetState(t float64, s []float64) {
	b.state = []float64{s[0], s[1]}
	b.liquid = append(b.liquid, s[0])
	b.gas = append(b.gas, s[1])
}

// Stop implements the ode.Integrable interface.
func (b *massBalance) Stop(t float64) bool {
	return b.err != nil || len(b.liquid) >= b.n
}

// Func implements the ode.Integrable interface.
func (b *massBalance) Func(t float64, f []float64) []float64 {
	// Accumulated steps may overshoot the flux time by a rounding error.
	l, g, err := b.tank.netRates(clamp(t, 0, b.tank.fluxTime))
	if err != nil && b.err == nil {
		b.err = err
	}
	return []float64{l, g}
}
