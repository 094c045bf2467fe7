package krox

import (
	"fmt"
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// Orientation defines the direction of the motor axis.
type Orientation int8

const (
	// NozzleToCombustionChamber has positions increasing from the nozzle towards the combustion chamber.
	NozzleToCombustionChamber Orientation = 1
	// CombustionChamberToNozzle has positions increasing towards the nozzle.
	CombustionChamberToNozzle Orientation = -1
)

func (o Orientation) String() string {
	switch o {
	case NozzleToCombustionChamber:
		return "nozzle_to_combustion_chamber"
	case CombustionChamberToNozzle:
		return "combustion_chamber_to_nozzle"
	}
	panic("cannot stringify unknown orientation")
}

// MountedTank is a tank placed on the motor axis. Position is the location of
// the tank bottom, i.e. its end closest to the nozzle.
type MountedTank struct {
	Tank     Tank
	Position float64 // m
}

// MotorConfig configures a LiquidMotor. Positions are relative to the motor
// coordinate system origin, usually the nozzle outlet. The dry mass and its
// center include the tank structures; the dry inertia is about the center of
// dry mass.
type MotorConfig struct {
	Name                    string
	Thrust                  Source  // N
	BurnTime                float64 // s
	DryMass                 float64 // kg
	DryInertia              Inertia // kg·m^2
	CenterOfDryMassPosition float64 // m
	NozzlePosition          float64 // m
	NozzleRadius            float64 // m
	Orientation             Orientation
	Tanks                   []MountedTank
	Logger                  kitlog.Logger
}

// LiquidMotor aggregates the dry structure of a liquid motor with its tanks.
type LiquidMotor struct {
	cfg MotorConfig
}

// MotorState is the motor characterization at a given time.
type MotorState struct {
	Time           float64 // s
	Thrust         float64 // N
	Mass           float64 // kg
	PropellantMass float64 // kg
	CenterOfMass   float64 // m
	Inertia        Inertia // about CenterOfMass
	MassFlowRate   float64 // kg/s, positive when propellant is expelled
}

// NewLiquidMotor returns a new liquid motor. Tanks may not overlap.
func NewLiquidMotor(cfg MotorConfig) (*LiquidMotor, error) {
	if cfg.Name == "" {
		cfg.Name = "motor"
	}
	if cfg.Thrust == nil {
		return nil, configErr("thrust_source", nil, "a thrust source is required")
	}
	for param, v := range map[string]float64{"dry_mass": cfg.DryMass, "burn_time": cfg.BurnTime} {
		if err := positive(param, v); err != nil {
			return nil, err
		}
	}
	for param, v := range map[string]float64{"nozzle_radius": cfg.NozzleRadius, "dry_inertia.I11": cfg.DryInertia.I11,
		"dry_inertia.I22": cfg.DryInertia.I22, "dry_inertia.I33": cfg.DryInertia.I33} {
		if err := nonNegative(param, v); err != nil {
			return nil, err
		}
	}
	switch cfg.Orientation {
	case 0:
		cfg.Orientation = NozzleToCombustionChamber
	case NozzleToCombustionChamber, CombustionChamberToNozzle:
	default:
		return nil, configErr("coordinate_system_orientation", int8(cfg.Orientation), "unknown orientation")
	}
	spans := make([]span, len(cfg.Tanks))
	for i, mt := range cfg.Tanks {
		if mt.Tank == nil {
			return nil, configErr(fmt.Sprintf("tanks[%d]", i), nil, "tank is nil")
		}
		if math.IsNaN(mt.Position) || math.IsInf(mt.Position, 0) {
			return nil, configErr(mt.Tank.Name()+".position", mt.Position, "must be finite")
		}
		top := mt.Position + float64(cfg.Orientation)*mt.Tank.Geometry().Height()
		spans[i] = span{name: mt.Tank.Name(), lo: math.Min(mt.Position, top), hi: math.Max(mt.Position, top)}
	}
	if err := checkOverlap(spans); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = kitlog.NewNopLogger()
	}
	cfg.Tanks = append([]MountedTank(nil), cfg.Tanks...)
	return &LiquidMotor{cfg: cfg}, nil
}

// Config returns a copy of the motor configuration.
func (m *LiquidMotor) Config() MotorConfig {
	cfg := m.cfg
	cfg.Tanks = append([]MountedTank(nil), m.cfg.Tanks...)
	return cfg
}

// BurnTime returns the burn duration.
func (m *LiquidMotor) BurnTime() float64 {
	return m.cfg.BurnTime
}

// mounted is a tank state expressed in the motor frame.
type mounted struct {
	mass     float64
	position float64
	inertia  Inertia
}

// tanks returns the state of each tank in the motor frame. Each tank is queried
// within its own flux time so that its mass holds its last value afterwards.
func (m *LiquidMotor) tanks(t float64) ([]mounted, error) {
	out := make([]mounted, len(m.cfg.Tanks))
	o := float64(m.cfg.Orientation)
	for i, mt := range m.cfg.Tanks {
		st, err := mt.Tank.State(clamp(t, 0, mt.Tank.FluxTime()))
		if err != nil {
			return nil, err
		}
		pos := mt.Position + o*st.CenterOfMass
		if err := checkBounds(mt.Tank.Name(), pos, mt.Position, mt.Position+o*mt.Tank.Geometry().Height()); err != nil {
			return nil, err
		}
		out[i] = mounted{mass: st.Mass(), position: pos, inertia: st.Inertia}
	}
	return out, nil
}

// State returns thrust, mass, center of mass and inertia at time t.
func (m *LiquidMotor) State(t float64) (MotorState, error) {
	tanks, err := m.tanks(t)
	if err != nil {
		return MotorState{}, err
	}
	st := MotorState{Time: t, Mass: m.cfg.DryMass}
	moment := m.cfg.DryMass * m.cfg.CenterOfDryMassPosition
	for _, tk := range tanks {
		st.PropellantMass += tk.mass
		moment += tk.mass * tk.position
	}
	st.Mass += st.PropellantMass
	st.CenterOfMass = moment / st.Mass
	st.Inertia = m.cfg.DryInertia.Shift(m.cfg.DryMass, m.cfg.CenterOfDryMassPosition-st.CenterOfMass)
	for _, tk := range tanks {
		st.Inertia = st.Inertia.Add(tk.inertia.Shift(tk.mass, tk.position-st.CenterOfMass))
	}
	if st.Thrust, err = m.Thrust(t); err != nil {
		return st, err
	}
	st.MassFlowRate, err = m.MassFlowRate(t)
	return st, err
}

// TotalMass returns the dry mass plus the propellant mass at time t.
func (m *LiquidMotor) TotalMass(t float64) (float64, error) {
	st, err := m.State(t)
	return st.Mass, err
}

// CenterOfMass returns the position of the motor center of mass at time t.
func (m *LiquidMotor) CenterOfMass(t float64) (float64, error) {
	st, err := m.State(t)
	return st.CenterOfMass, err
}

// Inertia returns the motor inertia about its center of mass at time t.
func (m *LiquidMotor) Inertia(t float64) (Inertia, error) {
	st, err := m.State(t)
	return st.Inertia, err
}

// PropellantMass returns the mass of all tank contents at time t.
func (m *LiquidMotor) PropellantMass(t float64) (float64, error) {
	tanks, err := m.tanks(t)
	if err != nil {
		return 0, err
	}
	var mass float64
	for _, tk := range tanks {
		mass += tk.mass
	}
	return mass, nil
}

// PropellantCenterOfMass returns the position of the center of mass of the
// tank contents at time t. It is NaN once every tank is empty.
func (m *LiquidMotor) PropellantCenterOfMass(t float64) (float64, error) {
	tanks, err := m.tanks(t)
	if err != nil {
		return 0, err
	}
	var mass, moment float64
	for _, tk := range tanks {
		mass += tk.mass
		moment += tk.mass * tk.position
	}
	if mass == 0 {
		return math.NaN(), nil
	}
	return moment / mass, nil
}

// MassFlowRate returns the propellant mass leaving the tanks per second at time t.
func (m *LiquidMotor) MassFlowRate(t float64) (float64, error) {
	var rate float64
	for _, mt := range m.cfg.Tanks {
		r, err := mt.Tank.NetMassFlowRate(t)
		if err != nil {
			return 0, err
		}
		rate -= r
	}
	return rate, nil
}

// LogInfo logs a summary of the motor.
func (m *LiquidMotor) LogInfo() error {
	impulse, err := m.TotalImpulse()
	if err != nil {
		return err
	}
	mass0, err := m.PropellantMass(0)
	if err != nil {
		return err
	}
	massf, err := m.PropellantMass(m.cfg.BurnTime)
	if err != nil {
		return err
	}
	l := kitlog.With(m.cfg.Logger, "level", "info", "subsys", "motor", "motor", m.cfg.Name)
	l.Log("dry(kg)", m.cfg.DryMass, "cdm(m)", m.cfg.CenterOfDryMassPosition, "nozzle(m)", m.cfg.NozzlePosition,
		"nozzle_radius(m)", m.cfg.NozzleRadius, "orientation", m.cfg.Orientation, "tanks", len(m.cfg.Tanks))
	l.Log("burn(s)", m.cfg.BurnTime, "impulse(Ns)", impulse, "avg_thrust(N)", impulse/m.cfg.BurnTime,
		"propellant0(kg)", mass0, "propellantf(kg)", massf)
	for _, mt := range m.cfg.Tanks {
		l.Log("tank", mt.Tank.Name(), "position(m)", mt.Position, "geometry", mt.Tank.Geometry(), "flux(s)", mt.Tank.FluxTime())
	}
	return nil
}
