package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	krox "github.com/wantonWina/KROX"
)

// This code reads a motor definition, checks every tank over its flux time and
// exports the motor states over the burn.

var (
	confPath    string
	points      int
	workers     int
	outPath     string
	metricsPath string
	verbose     bool
)

func init() {
	// Read flags
	flag.StringVar(&confPath, "config", "", "motor definition TOML file (defaults to $KROX_CONFIG/conf.toml)")
	flag.IntVar(&points, "points", 501, "number of exported states over the burn")
	flag.IntVar(&workers, "workers", 0, "number of sampling workers (all CPUs if 0)")
	flag.StringVar(&outPath, "out", "", "CSV output file (stdout if unset)")
	flag.StringVar(&metricsPath, "metrics", "", "write the prometheus metrics to this file on exit")
	flag.BoolVar(&verbose, "verbose", false, "log the motor summary")
}

func main() {
	flag.Parse()
	var def *krox.Definition
	var err error
	if confPath == "" {
		def, err = krox.LoadConfigFromEnv()
	} else {
		def, err = krox.LoadConfig(confPath)
	}
	if err != nil {
		log.Fatal(err)
	}
	if def.Motor == nil {
		log.Fatal("no [motor] section in the configuration")
	}
	logger := krox.NewLogger("cmd", "krox")

	names := make([]string, 0, len(def.Tanks))
	for name := range def.Tanks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		tk, ok := def.Tanks[name].(interface{ Validate() error })
		if !ok {
			continue
		}
		if err := tk.Validate(); err != nil {
			logger.Log("level", "critical", "subsys", "tank", "tank", name, "err", err)
			os.Exit(1)
		}
	}
	if verbose {
		if err := def.Motor.LogInfo(); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	start := time.Now()
	states, err := krox.SampleMotor(ctx, def.Motor, krox.TimeGrid(0, def.Motor.BurnTime(), points), workers)
	if err != nil {
		log.Fatal(err)
	}
	logger.Log("level", "info", "subsys", "sampler", "states", len(states), "duration", time.Since(start))

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		w = f
	}
	if err := krox.WriteStates(w, def.Motor.Config().Name, states); err != nil {
		log.Fatal(err)
	}
	if metricsPath != "" {
		if err := writeMetrics(metricsPath); err != nil {
			log.Fatal(err)
		}
	}
}

// writeMetrics dumps the default registry in the text exposition format.
func writeMetrics(path string) error {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
