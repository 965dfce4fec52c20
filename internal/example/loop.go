// Package example drives a tracker the way an instrumented program would:
// one outer run_loop event wrapping a number of inner loop events.
package example

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"time"

	"github.com/psantana5/evprof/pkg/logging"
	"github.com/psantana5/evprof/pkg/profiler"
)

// Event names recorded by Runner
const (
	RunLoopEvent = "run_loop"
	LoopEvent    = "loop"
)

// Runner runs the example loop. Zero-valued optional fields get defaults.
type Runner struct {
	Tracker    *profiler.Tracker
	Iterations int

	// MaxDelay bounds the per-iteration delay, which is drawn from
	// [0, MaxDelay) and truncated to whole seconds when MaxDelay >= 1s
	MaxDelay time.Duration

	// Out receives one progress line per iteration; nil discards them
	Out    io.Writer
	Logger *logging.Logger

	// Rand returns values uniform in [0, 1); defaults to math/rand/v2
	Rand func() float64

	// Sleep defaults to SleepContext
	Sleep func(context.Context, time.Duration) error
}

// Run executes the loop. If ctx is cancelled mid-iteration, the current loop
// event and run_loop are still stopped before ctx.Err() is returned.
func (r *Runner) Run(ctx context.Context) error {
	randf := r.Rand
	if randf == nil {
		randf = rand.Float64
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}
	logger := r.Logger.WithField("component", "example")

	runTok := r.Tracker.Start(RunLoopEvent)
	defer func() {
		if ev, err := r.Tracker.Stop(runTok); err == nil {
			logger.Info("Run loop finished", map[string]interface{}{
				"iterations":  r.Iterations,
				"duration_us": ev.Duration,
			})
		}
	}()

	for i := 0; i < r.Iterations; i++ {
		delay := r.delay(randf())

		loopTok := r.Tracker.Start(LoopEvent)
		err := sleep(ctx, delay)
		r.Tracker.Stop(loopTok)
		if err != nil {
			logger.Warn("Run loop interrupted", map[string]interface{}{
				"iteration": i + 1,
				"error":     err.Error(),
			})
			return err
		}

		fmt.Fprintf(out, "Iteration #%d\n", i+1)
	}
	return nil
}

func (r *Runner) delay(f float64) time.Duration {
	if r.MaxDelay <= 0 {
		return 0
	}
	d := time.Duration(f * float64(r.MaxDelay))
	if r.MaxDelay >= time.Second {
		d = d.Truncate(time.Second)
	}
	return d
}

// SleepContext waits for d or until ctx is done
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
