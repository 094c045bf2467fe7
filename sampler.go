package krox

import (
	"context"
	"runtime"
	"sync"

	"github.com/gonum/floats"
)

// sampleJob is a unit of work for the sampling workers.
type sampleJob struct {
	idx int
	t   float64
}

// sampleResult is the output of a single motor evaluation.
type sampleResult struct {
	idx   int
	state MotorState
	err   error
}

// TimeGrid returns n evenly spaced times over [start, end].
func TimeGrid(start, end float64, n int) []float64 {
	if n < 2 {
		return []float64{start}
	}
	times := make([]float64, n)
	floats.Span(times, start, end)
	return times
}

// SampleMotor evaluates the motor at each of the provided times using a pool of
// workers (all CPUs when workers <= 0). The results are in the order of the
// times. The first error encountered, or the context error, is returned and
// no partial result is provided.
func SampleMotor(ctx context.Context, m *LiquidMotor, times []float64, workers int) ([]MotorState, error) {
	if len(times) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(times) {
		workers = len(times)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan sampleJob, workers*2)
	results := make(chan sampleResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				st, err := m.State(job.t)
				select {
				case results <- sampleResult{idx: job.idx, state: st, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, t := range times {
			select {
			case jobs <- sampleJob{idx: i, t: t}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	states := make([]MotorState, len(times))
	received := 0
	var firstErr error
	for res := range results {
		if res.err != nil && firstErr == nil {
			firstErr = res.err
			cancel()
		}
		states[res.idx] = res.state
		received++
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if received != len(times) {
		return nil, ctx.Err()
	}
	return states, nil
}
