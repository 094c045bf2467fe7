package krox

import (
	"fmt"
	"math"
	"sync"

	kitlog "github.com/go-kit/kit/log"
)

const (
	// DefaultDiscretize is the default number of grid points over the flux time.
	DefaultDiscretize = 100
	// DefaultUllageTolerance is the default relative tolerance on tank overfill.
	DefaultUllageTolerance = 1e-6
)

// Phase classifies a query time with respect to the validity window of a tank.
type Phase uint8

const (
	// PhaseUninitialized is before the start of the flux time.
	PhaseUninitialized Phase = iota + 1
	// PhaseActive is within [0, flux time].
	PhaseActive
	// PhaseExpired is after the flux time.
	PhaseExpired
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseActive:
		return "active"
	case PhaseExpired:
		return "expired"
	}
	panic("cannot stringify unknown tank phase")
}

// Extrapolation defines how a tank answers queries outside its flux time.
type Extrapolation uint8

const (
	// ExtrapolateFail returns an OutOfRangeError.
	ExtrapolateFail Extrapolation = iota
	// ExtrapolateHold returns the state at the nearest end of the flux time.
	ExtrapolateHold
)

// Tank is a propellant tank whose contents are known at any time of the burn.
type Tank interface {
	Name() string
	Geometry() CylindricalTank
	FluxTime() float64
	Phase(t float64) Phase
	// State returns the contents of the tank at time t. Positions are heights
	// from the tank bottom, inertia is about the contents' center of mass.
	State(t float64) (TankState, error)
	// NetMassFlowRate returns d(liquid+gas mass)/dt in kg/s, zero outside the flux time.
	NetMassFlowRate(t float64) (float64, error)
}

// TankState is the content of a tank at a given time.
type TankState struct {
	Time         float64 // s
	LiquidMass   float64 // kg
	GasMass      float64 // kg
	LiquidVolume float64 // m^3
	GasVolume    float64 // m^3, the ullage: tank volume minus liquid volume, not GasMass/ρ
	LiquidHeight float64 // m from the tank bottom
	CenterOfMass float64 // m from the tank bottom
	Inertia      Inertia // about CenterOfMass
}

// Mass returns the total mass of the tank contents.
func (s TankState) Mass() float64 {
	return s.LiquidMass + s.GasMass
}

func (s TankState) String() string {
	return fmt.Sprintf("t=%.3fs liquid=%.4fkg (%.6gm^3) gas=%.4fkg (%.6gm^3) h=%.4fm cm=%.4fm I=%s",
		s.Time, s.LiquidMass, s.LiquidVolume, s.GasMass, s.GasVolume, s.LiquidHeight, s.CenterOfMass, s.Inertia)
}

// tankGrid stores the contents of a tank sampled over its flux time.
type tankGrid struct {
	times        []float64
	liquidMass   []float64
	gasMass      []float64
	liquidVolume []float64
}

// bracket returns the index i such that t lies in [times[i], times[i+1]]. The
// grid is uniform so this is O(1).
func (g *tankGrid) bracket(t float64) int {
	n := len(g.times)
	dt := g.times[n-1] / float64(n-1)
	i := int(t / dt)
	if i > n-2 {
		i = n - 2
	}
	if i < 0 {
		i = 0
	}
	return i
}

func (g *tankGrid) at(t float64) (mL, mG, vL float64) {
	i := g.bracket(t)
	t0, t1 := g.times[i], g.times[i+1]
	mL = lerp(t, t0, t1, g.liquidMass[i], g.liquidMass[i+1])
	mG = lerp(t, t0, t1, g.gasMass[i], g.gasMass[i+1])
	vL = lerp(t, t0, t1, g.liquidVolume[i], g.liquidVolume[i+1])
	return
}

func gridSize(discretize int) int {
	if discretize < 2 {
		return 2
	}
	return discretize
}

// tank holds what is common to both tank kinds, including the memoized grid.
type tank struct {
	name          string
	geometry      CylindricalTank
	liquid, gas   Fluid
	fluxTime      float64
	discretize    int
	extrapolation Extrapolation
	logger        kitlog.Logger

	once    sync.Once
	grid    *tankGrid
	gridErr error
	build   func() (*tankGrid, error)
}

func newTank(name string, g CylindricalTank, liquid, gas Fluid, fluxTime float64, discretize int, ext Extrapolation, logger kitlog.Logger) (*tank, error) {
	if err := g.validate(); err != nil {
		return nil, err
	}
	if err := liquid.validate(); err != nil {
		return nil, err
	}
	if err := positive(name+".flux_time", fluxTime); err != nil {
		return nil, err
	}
	if discretize == 0 {
		discretize = DefaultDiscretize
	} else if discretize < 1 {
		return nil, configErr(name+".discretize", discretize, "must be at least 1")
	}
	if logger == nil {
		logger = kitlog.NewNopLogger()
	}
	return &tank{name: name, geometry: g, liquid: liquid, gas: gas, fluxTime: fluxTime,
		discretize: discretize, extrapolation: ext, logger: logger}, nil
}

// Name returns the name of the tank.
func (tk *tank) Name() string { return tk.name }

// Geometry returns the geometry of the tank.
func (tk *tank) Geometry() CylindricalTank { return tk.geometry }

// FluxTime returns the end of the validity window of the tank.
func (tk *tank) FluxTime() float64 { return tk.fluxTime }

// Liquid returns the liquid phase fluid.
func (tk *tank) Liquid() Fluid { return tk.liquid }

// Gas returns the gas phase fluid.
func (tk *tank) Gas() Fluid { return tk.gas }

// Phase implements the Tank interface.
func (tk *tank) Phase(t float64) Phase {
	switch {
	case t < 0:
		return PhaseUninitialized
	case t > tk.fluxTime:
		return PhaseExpired
	}
	return PhaseActive
}

// queryTime maps t into the flux time according to the extrapolation policy.
func (tk *tank) queryTime(t float64) (float64, error) {
	if math.IsNaN(t) {
		return t, &OutOfRangeError{Quantity: tk.name + " time", Value: t, Min: 0, Max: tk.fluxTime}
	}
	if tk.Phase(t) == PhaseActive {
		return t, nil
	}
	if tk.extrapolation == ExtrapolateHold {
		return clamp(t, 0, tk.fluxTime), nil
	}
	return t, &OutOfRangeError{Quantity: tk.name + " time", Value: t, Min: 0, Max: tk.fluxTime}
}

// sampled returns the memoized grid, building it on first use.
func (tk *tank) sampled() (*tankGrid, error) {
	tk.once.Do(func() {
		tk.grid, tk.gridErr = tk.build()
	})
	return tk.grid, tk.gridErr
}

// Validate builds the grid and reports any constraint violated over the flux time.
func (tk *tank) Validate() error {
	_, err := tk.sampled()
	return err
}

// Times returns the grid times.
func (tk *tank) Times() ([]float64, error) {
	grid, err := tk.sampled()
	if err != nil {
		return nil, err
	}
	cpy := make([]float64, len(grid.times))
	copy(cpy, grid.times)
	return cpy, nil
}

// State implements the Tank interface.
func (tk *tank) State(t float64) (TankState, error) {
	qt, err := tk.queryTime(t)
	if err != nil {
		return TankState{}, err
	}
	grid, err := tk.sampled()
	if err != nil {
		return TankState{}, err
	}
	mL, mG, vL := grid.at(qt)
	st, err := tk.stateFrom(qt, mL, mG, vL)
	st.Time = t
	return st, err
}

// stateFrom derives volumes, center of mass and inertia from the phase masses.
// The liquid settles at the bottom and the gas fills the remaining volume.
func (tk *tank) stateFrom(t, mL, mG, vL float64) (TankState, error) {
	g := tk.geometry
	total := g.TotalVolume()
	H := g.Height()
	vL = clamp(vL, 0, total)
	st := TankState{Time: t, LiquidMass: mL, GasMass: mG, LiquidVolume: vL, GasVolume: total - vL}
	h, err := g.FillHeight(vL)
	if err != nil {
		return st, err
	}
	st.LiquidHeight = h

	cL, cG := g.Centroid(0, h), g.Centroid(h, H)
	var iL, iG Inertia
	if vL > 0 {
		iL = g.Inertia(0, h).Scale(mL / vL)
	}
	if st.GasVolume > 0 {
		iG = g.Inertia(h, H).Scale(mG / st.GasVolume)
	}
	m := mL + mG
	if m <= 0 {
		st.CenterOfMass = H / 2
		return st, nil
	}
	st.CenterOfMass = (mL*cL + mG*cG) / m
	st.Inertia = iL.Shift(mL, cL-st.CenterOfMass).Add(iG.Shift(mG, cG-st.CenterOfMass))
	return st, checkBounds(tk.name, st.CenterOfMass, 0, H)
}

func (tk *tank) logGrid(mode string, grid *tankGrid) {
	n := len(grid.times)
	tk.logger.Log("level", "info", "subsys", "tank", "tank", tk.name, "mode", mode, "points", n,
		"flux(s)", tk.fluxTime, "liquid0(kg)", grid.liquidMass[0], "liquidf(kg)", grid.liquidMass[n-1],
		"gas0(kg)", grid.gasMass[0], "gasf(kg)", grid.gasMass[n-1])
}
