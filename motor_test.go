package krox

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/floats"
)

// testTankPair returns an oxidizer and a fuel tank draining over five seconds.
func testTankPair(t *testing.T) (ox, fuel *MassFlowRateBasedTank) {
	geometry := CylindricalTank{Radius: 0.1, Length: 1.0, SphericalCaps: true}
	ox = mustMassFlowTank(t, MassFlowRateTankConfig{
		Name:              "oxidizer tank",
		Geometry:          geometry,
		Liquid:            Fluid{Name: "LOX", Density: 1220},
		Gas:               Fluid{Name: "pressurant", Density: 1.9277},
		InitialLiquidMass: 32,
		InitialGasMass:    0.01,
		LiquidOut:         ExponentialDecay{Amplitude: 32 / 3., Decay: 0.25},
		GasOut:            ExponentialDecay{Amplitude: 0.01 / 3, Decay: 0.25},
		FluxTime:          5,
	})
	fuel = mustMassFlowTank(t, MassFlowRateTankConfig{
		Name:              "fuel tank",
		Geometry:          geometry,
		Liquid:            Fluid{Name: "ethanol", Density: 789},
		Gas:               Fluid{Name: "pressurant", Density: 1.59},
		InitialLiquidMass: 21,
		InitialGasMass:    0.01,
		LiquidOut:         ExponentialDecay{Amplitude: 21 / 3., Decay: 0.25},
		GasOut:            ExponentialDecay{Amplitude: 0.01 / 3, Decay: 0.25},
		FluxTime:          5,
	})
	return
}

func testMotorConfig() MotorConfig {
	return MotorConfig{
		Name:                    "test motor",
		Thrust:                  Polynomial{4000, 0, -100},
		BurnTime:                5,
		DryMass:                 2,
		DryInertia:              Inertia{0.125, 0.125, 0.002},
		CenterOfDryMassPosition: 1.75,
		NozzlePosition:          0,
		NozzleRadius:            0.069,
	}
}

func mustMotor(t *testing.T, cfg MotorConfig) *LiquidMotor {
	m, err := NewLiquidMotor(cfg)
	if err != nil {
		t.Fatalf("could not create motor: %s", err)
	}
	return m
}

func TestMotorWithoutTanks(t *testing.T) {
	m := mustMotor(t, testMotorConfig())
	for _, ti := range []float64{-1, 0, 2.5, 5, 10} {
		st, err := m.State(ti)
		if err != nil {
			t.Fatal(err)
		}
		if st.Mass != 2 || st.PropellantMass != 0 || st.CenterOfMass != 1.75 || st.MassFlowRate != 0 {
			t.Fatalf("t=%g: %+v", ti, st)
		}
		if st.Inertia != (Inertia{0.125, 0.125, 0.002}) {
			t.Fatalf("t=%g: inertia %s", ti, st.Inertia)
		}
	}
	if com, _ := m.PropellantCenterOfMass(1); !math.IsNaN(com) {
		t.Fatalf("propellant center of mass %g without propellant", com)
	}
}

func TestMotorThrust(t *testing.T) {
	m := mustMotor(t, testMotorConfig())
	for ti, exp := range map[float64]float64{-0.1: 0, 0: 4000, 2: 3600, 5: 1500, 5.01: 0, 100: 0} {
		if v, err := m.Thrust(ti); err != nil || !floats.EqualWithinAbs(v, exp, 1e-9) {
			t.Fatalf("thrust(%g)=%g expected %g (%v)", ti, v, exp, err)
		}
	}
	impulse, err := m.TotalImpulse()
	if err != nil {
		t.Fatal(err)
	}
	if exp := 4000*5 - 100*125/3.; !floats.EqualWithinAbs(impulse, exp, 0.01) {
		t.Fatalf("total impulse %g expected %g", impulse, exp)
	}
	avg, _ := m.AverageThrust()
	if !floats.EqualWithinAbs(avg, impulse/5, 1e-12) {
		t.Fatalf("average thrust %g", avg)
	}
}

func TestMotorAggregation(t *testing.T) {
	ox, fuel := testTankPair(t)
	cfg := testMotorConfig()
	cfg.Tanks = []MountedTank{{Tank: ox, Position: 1.0}, {Tank: fuel, Position: 2.5}}
	m := mustMotor(t, cfg)

	st0, err := m.State(0)
	if err != nil {
		t.Fatal(err)
	}
	if exp := 2 + 32.01 + 21.01; !floats.EqualWithinAbs(st0.Mass, exp, 1e-9) {
		t.Fatalf("initial mass %g expected %g", st0.Mass, exp)
	}
	if st0.CenterOfMass < 1.0 || st0.CenterOfMass > 3.7 {
		t.Fatalf("center of mass %g outside the tanks", st0.CenterOfMass)
	}
	expRate := 32/3. + 21/3. + 0.02/3
	if !floats.EqualWithinAbs(st0.MassFlowRate, expRate, 1e-9) {
		t.Fatalf("mass flow rate %g expected %g", st0.MassFlowRate, expRate)
	}

	// Mass decreases over the burn and holds afterwards.
	prev := math.Inf(1)
	for _, ti := range floats.Span(make([]float64, 21), 0, 5) {
		mass, err := m.TotalMass(ti)
		if err != nil {
			t.Fatal(err)
		}
		if mass > prev {
			t.Fatalf("t=%g: mass increased", ti)
		}
		prev = mass
	}
	after, err := m.State(8)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualWithinAbs(after.Mass, prev, 1e-12) || after.Thrust != 0 || after.MassFlowRate != 0 {
		t.Fatalf("state after burn %+v", after)
	}
	before, err := m.State(-1)
	if err != nil {
		t.Fatal(err)
	}
	if before.Mass != st0.Mass {
		t.Fatalf("mass before ignition %g expected %g", before.Mass, st0.Mass)
	}

	// Parallel axis theorem against the tank states.
	ti := 2.2
	st, err := m.State(ti)
	if err != nil {
		t.Fatal(err)
	}
	so, _ := ox.State(ti)
	sf, _ := fuel.State(ti)
	po, pf := 1.0+so.CenterOfMass, 2.5+sf.CenterOfMass
	com := (2*1.75 + so.Mass()*po + sf.Mass()*pf) / (2 + so.Mass() + sf.Mass())
	if !floats.EqualWithinAbs(st.CenterOfMass, com, 1e-12) {
		t.Fatalf("center of mass %g expected %g", st.CenterOfMass, com)
	}
	d := func(p float64) float64 { return (p - com) * (p - com) }
	I11 := 0.125 + 2*d(1.75) + so.Inertia.I11 + so.Mass()*d(po) + sf.Inertia.I11 + sf.Mass()*d(pf)
	I33 := 0.002 + so.Inertia.I33 + sf.Inertia.I33
	if !floats.EqualWithinRel(st.Inertia.I11, I11, 1e-12) || !floats.EqualWithinRel(st.Inertia.I22, I11, 1e-12) {
		t.Fatalf("I11=%g expected %g", st.Inertia.I11, I11)
	}
	if !floats.EqualWithinRel(st.Inertia.I33, I33, 1e-12) {
		t.Fatalf("I33=%g expected %g", st.Inertia.I33, I33)
	}

	pcom, err := m.PropellantCenterOfMass(ti)
	if err != nil {
		t.Fatal(err)
	}
	if exp := (so.Mass()*po + sf.Mass()*pf) / (so.Mass() + sf.Mass()); !floats.EqualWithinAbs(pcom, exp, 1e-12) {
		t.Fatalf("propellant center of mass %g expected %g", pcom, exp)
	}
	ve, err := m.ExhaustVelocity(ti)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualWithinRel(ve, st.Thrust/st.MassFlowRate, 1e-12) {
		t.Fatalf("exhaust velocity %g", ve)
	}
}

func TestMotorOrientation(t *testing.T) {
	ox, _ := testTankPair(t)
	cfg := testMotorConfig()
	cfg.Orientation = CombustionChamberToNozzle
	cfg.Tanks = []MountedTank{{Tank: ox, Position: 3.0}}
	m := mustMotor(t, cfg)
	so, err := ox.State(1)
	if err != nil {
		t.Fatal(err)
	}
	pcom, err := m.PropellantCenterOfMass(1)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.EqualWithinAbs(pcom, 3.0-so.CenterOfMass, 1e-12) {
		t.Fatalf("propellant center of mass %g expected %g", pcom, 3.0-so.CenterOfMass)
	}
	if pcom > 3.0 || pcom < 1.8 {
		t.Fatalf("propellant center of mass %g outside the tank", pcom)
	}
	if s := m.Config().Orientation.String(); s != "combustion_chamber_to_nozzle" {
		t.Fatalf("orientation %s", s)
	}
}

func TestMotorConfiguration(t *testing.T) {
	ox, fuel := testTankPair(t)
	var cfgErr *ConfigurationError
	for name, mutate := range map[string]func(*MotorConfig){
		"overlap":     func(c *MotorConfig) { c.Tanks = []MountedTank{{ox, 1.0}, {fuel, 2.0}} },
		"nil tank":    func(c *MotorConfig) { c.Tanks = []MountedTank{{nil, 1.0}} },
		"thrust":      func(c *MotorConfig) { c.Thrust = nil },
		"dry mass":    func(c *MotorConfig) { c.DryMass = 0 },
		"burn time":   func(c *MotorConfig) { c.BurnTime = -1 },
		"inertia":     func(c *MotorConfig) { c.DryInertia.I33 = -1 },
		"orientation": func(c *MotorConfig) { c.Orientation = 3 },
		"position":    func(c *MotorConfig) { c.Tanks = []MountedTank{{ox, math.Inf(1)}} },
	} {
		cfg := testMotorConfig()
		mutate(&cfg)
		if _, err := NewLiquidMotor(cfg); !errors.As(err, &cfgErr) {
			t.Fatalf("%s: expected a ConfigurationError, got %v", name, err)
		}
	}
	// Touching tanks are valid.
	cfg := testMotorConfig()
	cfg.Tanks = []MountedTank{{ox, 1.0}, {fuel, 2.2}}
	if _, err := NewLiquidMotor(cfg); err != nil {
		t.Fatalf("touching tanks: %s", err)
	}
	// Overlap also applies with a reversed axis.
	cfg.Orientation = CombustionChamberToNozzle
	cfg.Tanks = []MountedTank{{ox, 3.0}, {fuel, 2.5}}
	if _, err := NewLiquidMotor(cfg); !errors.As(err, &cfgErr) {
		t.Fatalf("expected a ConfigurationError, got %v", err)
	}
}

func TestMotorTankFailure(t *testing.T) {
	cfg := testMassFlowConfig()
	cfg.LiquidOut = Constant(5)
	cfg.FluxTime = 5
	cfg.Geometry = CylindricalTank{Radius: 0.1, Length: 1.0, SphericalCaps: true}
	mcfg := testMotorConfig()
	mcfg.Tanks = []MountedTank{{mustMassFlowTank(t, cfg), 1.0}}
	var neg *NegativeMassError
	if _, err := mustMotor(t, mcfg).State(1); !errors.As(err, &neg) {
		t.Fatalf("expected a NegativeMassError, got %v", err)
	}
}

func TestMotorLogInfo(t *testing.T) {
	ox, fuel := testTankPair(t)
	var buf bytes.Buffer
	cfg := testMotorConfig()
	cfg.Tanks = []MountedTank{{Tank: ox, Position: 1.0}, {Tank: fuel, Position: 2.5}}
	cfg.Logger = kitlog.NewLogfmtLogger(&buf)
	if err := mustMotor(t, cfg).LogInfo(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, exp := range []string{"subsys=motor", `motor="test motor"`, `tank="oxidizer tank"`, "orientation=nozzle_to_combustion_chamber"} {
		if !strings.Contains(out, exp) {
			t.Fatalf("log output does not contain %s:\n%s", exp, out)
		}
	}
}
