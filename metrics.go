package krox

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	gridBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krox_tank_grid_builds_total",
			Help: "Total number of tank grids built.",
		},
		[]string{"mode"},
	)

	gridBuildSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "krox_tank_grid_build_seconds",
			Help:    "Time spent building a tank grid in seconds.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
		[]string{"mode"},
	)

	constraintViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "krox_constraint_violations_total",
			Help: "Total number of physical constraint violations detected while building tank grids.",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(gridBuildsTotal)
	prometheus.MustRegister(gridBuildSeconds)
	prometheus.MustRegister(constraintViolationsTotal)
}

func observeGrid(mode string, d time.Duration) {
	gridBuildsTotal.WithLabelValues(mode).Inc()
	gridBuildSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

// violationKind returns the metric label of a constraint error.
func violationKind(err error) string {
	var (
		neg      *NegativeMassError
		ullage   *UllageConstraintError
		overflow *GeometryOverflowError
		rng      *OutOfRangeError
	)
	switch {
	case errors.As(err, &neg):
		return "negative_mass"
	case errors.As(err, &ullage):
		return "ullage"
	case errors.As(err, &overflow):
		return "geometry_overflow"
	case errors.As(err, &rng):
		return "out_of_range"
	}
	return "other"
}

func observeViolation(err error) {
	constraintViolationsTotal.WithLabelValues(violationKind(err)).Inc()
}
