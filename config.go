package krox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ConfigEnv is the environment variable holding the directory of conf.toml.
const ConfigEnv = "KROX_CONFIG"

// Definition is what a configuration file describes.
type Definition struct {
	Fluids map[string]Fluid
	Tanks  map[string]Tank // every tank, mounted or not
	Motor  *LiquidMotor    // nil when there is no [motor] section
}

// LoadConfigFromEnv loads conf.toml from the directory in KROX_CONFIG.
func LoadConfigFromEnv() (*Definition, error) {
	confPath := os.Getenv(ConfigEnv)
	if confPath == "" {
		return nil, fmt.Errorf("environment variable `%s` is missing or empty", ConfigEnv)
	}
	return LoadConfig(filepath.Join(confPath, "conf.toml"))
}

// LoadConfig reads a motor definition. Names of fluids and tanks are case
// insensitive. Relative time series paths are relative to the config file.
func LoadConfig(path string) (*Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l := &configLoader{
		v:     v,
		dir:   filepath.Dir(path),
		def:   &Definition{Fluids: make(map[string]Fluid), Tanks: make(map[string]Tank)},
		stack: make(map[string]bool),
	}
	if err := l.load(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.logger("config", path).Log("level", "info", "subsys", "config", "fluids", len(l.def.Fluids), "tanks", len(l.def.Tanks), "motor", l.def.Motor != nil)
	return l.def, nil
}

type configLoader struct {
	v     *viper.Viper
	dir   string
	def   *Definition
	stack map[string]bool // tanks being built, to detect ullage_from cycles
}

func (l *configLoader) logger(kind, name string) kitlog.Logger {
	if !l.v.GetBool("general.verbose") {
		return kitlog.NewNopLogger()
	}
	return NewLogger(kind, name)
}

func (l *configLoader) load() error {
	for name := range l.v.GetStringMap("fluids") {
		f, err := NewFluid(name, l.v.GetFloat64("fluids."+name+".density"))
		if err != nil {
			return err
		}
		l.def.Fluids[name] = f
	}
	for _, name := range sortedKeys(l.v.GetStringMap("tanks")) {
		if _, err := l.tank(name); err != nil {
			return err
		}
	}
	if l.v.IsSet("motor") {
		m, err := l.motor()
		if err != nil {
			return fmt.Errorf("motor: %w", err)
		}
		l.def.Motor = m
	}
	return nil
}

func (l *configLoader) fluid(name string) (Fluid, error) {
	f, ok := l.def.Fluids[strings.ToLower(name)]
	if !ok {
		return Fluid{}, configErr("fluid", name, "not defined in [fluids]")
	}
	return f, nil
}

func (l *configLoader) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.dir, p)
}

// tank builds the named tank once.
func (l *configLoader) tank(name string) (Tank, error) {
	name = strings.ToLower(name)
	if tk, ok := l.def.Tanks[name]; ok {
		return tk, nil
	}
	key := "tanks." + name
	if !l.v.IsSet(key) {
		return nil, configErr("tank", name, "not defined in [tanks]")
	}
	if l.stack[name] {
		return nil, configErr("tank", name, "circular ullage_from reference")
	}
	l.stack[name] = true
	defer delete(l.stack, name)

	geometry := CylindricalTank{
		Radius:        l.v.GetFloat64(key + ".radius"),
		Length:        l.v.GetFloat64(key + ".length"),
		SphericalCaps: l.v.GetBool(key + ".spherical_caps"),
	}
	liquid, err := l.fluid(l.v.GetString(key + ".liquid"))
	if err != nil {
		return nil, fmt.Errorf("tank %s: %w", name, err)
	}
	var gas Fluid
	if g := l.v.GetString(key + ".gas"); g != "" {
		if gas, err = l.fluid(g); err != nil {
			return nil, fmt.Errorf("tank %s: %w", name, err)
		}
	}
	discretize := l.v.GetInt("general.discretize")
	if l.v.IsSet(key + ".discretize") {
		discretize = l.v.GetInt(key + ".discretize")
	}
	var ext Extrapolation
	switch e := strings.ToLower(l.v.GetString(key + ".extrapolation")); e {
	case "", "fail":
	case "hold":
		ext = ExtrapolateHold
	default:
		return nil, configErr(name+".extrapolation", e, "expected fail or hold")
	}

	var tk Tank
	switch mode := strings.ToLower(l.v.GetString(key + ".mode")); mode {
	case "", "massflow", "mass_flow_rate":
		tk, err = l.massFlowTank(name, key, geometry, liquid, gas, discretize, ext)
	case "ullage":
		tk, err = l.ullageTank(name, key, geometry, liquid, gas, discretize, ext)
	default:
		err = configErr(name+".mode", mode, "expected massflow or ullage")
	}
	if err != nil {
		return nil, fmt.Errorf("tank %s: %w", name, err)
	}
	l.def.Tanks[name] = tk
	return tk, nil
}

func (l *configLoader) massFlowTank(name, key string, g CylindricalTank, liquid, gas Fluid, discretize int, ext Extrapolation) (Tank, error) {
	cfg := MassFlowRateTankConfig{
		Name: name, Geometry: g, Liquid: liquid, Gas: gas,
		InitialLiquidMass: l.v.GetFloat64(key + ".initial_liquid_mass"),
		InitialGasMass:    l.v.GetFloat64(key + ".initial_gas_mass"),
		FluxTime:          l.v.GetFloat64(key + ".flux_time"),
		Discretize:        discretize,
		Extrapolation:     ext,
		UllageTolerance:   l.v.GetFloat64(key + ".ullage_tolerance"),
		Logger:            l.logger("tank", name),
	}
	switch q := strings.ToLower(l.v.GetString(key + ".quadrature")); q {
	case "", "trapezoidal":
	case "rk4":
		cfg.Quadrature = RungeKutta4
	default:
		return nil, configErr(name+".quadrature", q, "expected trapezoidal or rk4")
	}
	var err error
	for _, flow := range []struct {
		suffix string
		dst    *Source
	}{
		{"liquid_mass_flow_rate_in", &cfg.LiquidIn},
		{"liquid_mass_flow_rate_out", &cfg.LiquidOut},
		{"gas_mass_flow_rate_in", &cfg.GasIn},
		{"gas_mass_flow_rate_out", &cfg.GasOut},
	} {
		if *flow.dst, err = l.source(key + "." + flow.suffix); err != nil {
			return nil, err
		}
	}
	return NewMassFlowRateBasedTank(cfg)
}

func (l *configLoader) ullageTank(name, key string, g CylindricalTank, liquid, gas Fluid, discretize int, ext Extrapolation) (Tank, error) {
	cfg := UllageTankConfig{
		Name: name, Geometry: g, Liquid: liquid, Gas: gas,
		FluxTime:      l.v.GetFloat64(key + ".flux_time"),
		Discretize:    discretize,
		Extrapolation: ext,
		Logger:        l.logger("tank", name),
	}
	var err error
	if from := l.v.GetString(key + ".ullage_from"); from != "" {
		src, err := l.tank(from)
		if err != nil {
			return nil, err
		}
		mf, ok := src.(*MassFlowRateBasedTank)
		if !ok {
			return nil, configErr(name+".ullage_from", from, "must be a mass flow rate based tank")
		}
		if cfg.Ullage, err = mf.Ullage(); err != nil {
			return nil, err
		}
	} else if cfg.Ullage, err = l.source(key + ".ullage"); err != nil {
		return nil, err
	}
	return NewUllageBasedTank(cfg)
}

// source reads a number (constant), a string (CSV time series path) or an
// inline table with a kind of constant, exponential, polynomial or table.
func (l *configLoader) source(key string) (Source, error) {
	switch val := l.v.Get(key).(type) {
	case nil:
		return nil, nil
	case string:
		return LoadTimeSeries(l.path(val), false)
	case map[string]interface{}:
		return l.sourceTable(key, val)
	default:
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return nil, configErr(key, val, "expected a number, a path or a table")
		}
		return Constant(f), nil
	}
}

func (l *configLoader) sourceTable(key string, val map[string]interface{}) (Source, error) {
	switch kind := strings.ToLower(cast.ToString(val["kind"])); kind {
	case "constant":
		f, err := cast.ToFloat64E(val["value"])
		if err != nil {
			return nil, configErr(key+".value", val["value"], err.Error())
		}
		return Constant(f), nil
	case "exponential":
		amp, err := cast.ToFloat64E(val["amplitude"])
		if err != nil {
			return nil, configErr(key+".amplitude", val["amplitude"], err.Error())
		}
		decay, err := cast.ToFloat64E(val["decay"])
		if err != nil {
			return nil, configErr(key+".decay", val["decay"], err.Error())
		}
		return ExponentialDecay{Amplitude: amp, Decay: decay}, nil
	case "polynomial":
		coefs, err := toFloats(val["coefficients"])
		if err != nil || len(coefs) == 0 {
			return nil, configErr(key+".coefficients", val["coefficients"], "expected a list of numbers")
		}
		return Polynomial(coefs), nil
	case "table":
		clamp := cast.ToBool(val["clamp"])
		if p, ok := val["path"].(string); ok {
			return LoadTimeSeries(l.path(p), clamp)
		}
		rows, err := cast.ToSliceE(val["samples"])
		if err != nil {
			return nil, configErr(key+".samples", val["samples"], err.Error())
		}
		samples := make([]Sample, len(rows))
		for i, row := range rows {
			pair, err := toFloats(row)
			if err != nil || len(pair) != 2 {
				return nil, configErr(fmt.Sprintf("%s.samples[%d]", key, i), row, "expected [time, value]")
			}
			samples[i] = Sample{Time: pair[0], Value: pair[1]}
		}
		return NewTable(samples, clamp)
	default:
		return nil, configErr(key+".kind", kind, "expected constant, exponential, polynomial or table")
	}
}

func (l *configLoader) motor() (*LiquidMotor, error) {
	name := l.v.GetString("motor.name")
	if name == "" {
		name = "motor"
	}
	thrust, err := l.source("motor.thrust_source")
	if err != nil {
		return nil, err
	}
	cfg := MotorConfig{
		Name:                    name,
		Thrust:                  thrust,
		BurnTime:                l.v.GetFloat64("motor.burn_time"),
		DryMass:                 l.v.GetFloat64("motor.dry_mass"),
		CenterOfDryMassPosition: l.v.GetFloat64("motor.center_of_dry_mass_position"),
		NozzlePosition:          l.v.GetFloat64("motor.nozzle_position"),
		NozzleRadius:            l.v.GetFloat64("motor.nozzle_radius"),
		Logger:                  l.logger("motor", name),
	}
	if l.v.IsSet("motor.dry_inertia") {
		in, err := toFloats(l.v.Get("motor.dry_inertia"))
		if err != nil || len(in) != 3 {
			return nil, configErr("dry_inertia", l.v.Get("motor.dry_inertia"), "expected [I11, I22, I33]")
		}
		cfg.DryInertia = Inertia{in[0], in[1], in[2]}
	}
	switch o := strings.ToLower(l.v.GetString("motor.coordinate_system_orientation")); o {
	case "", NozzleToCombustionChamber.String():
		cfg.Orientation = NozzleToCombustionChamber
	case CombustionChamberToNozzle.String():
		cfg.Orientation = CombustionChamberToNozzle
	default:
		return nil, configErr("coordinate_system_orientation", o, "unknown orientation")
	}
	for _, tname := range sortedKeys(l.v.GetStringMap("tanks")) {
		key := "tanks." + tname + ".position"
		if !l.v.IsSet(key) {
			continue // defined but not mounted
		}
		cfg.Tanks = append(cfg.Tanks, MountedTank{Tank: l.def.Tanks[tname], Position: l.v.GetFloat64(key)})
	}
	return NewLiquidMotor(cfg)
}

func toFloats(v interface{}) ([]float64, error) {
	items, err := cast.ToSliceE(v)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = cast.ToFloat64E(item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
