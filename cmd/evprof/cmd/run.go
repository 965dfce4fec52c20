package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/psantana5/evprof/internal/example"
	"github.com/psantana5/evprof/internal/report"
	"github.com/psantana5/evprof/pkg/metrics"
)

type runOptions struct {
	events  bool
	metrics bool
	host    bool
}

func newRunCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the instrumented example loop and print event statistics",
		Long: `Runs an outer run_loop event wrapping --iterations inner loop events, each
sleeping a random delay below --max-delay, then prints per-name statistics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.run(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := cmd.Flags()
	flags.Int("iterations", 10, "number of loop iterations")
	flags.Duration("max-delay", 3*time.Second, "upper bound of the per-iteration delay")
	flags.StringP("output", "o", "table", "output format: table, json or yaml")
	flags.BoolVar(&opts.events, "events", false, "include every finished event")
	flags.BoolVar(&opts.metrics, "metrics", false, "append the Prometheus text exposition")
	flags.BoolVar(&opts.host, "host", false, "include host CPU and memory details")
	a.bind(flags, "run.iterations", "iterations")
	a.bind(flags, "run.max_delay", "max-delay")
	a.bind(flags, "run.output", "output")

	return cmd
}

func (a *app) run(ctx context.Context, out, errOut io.Writer, opts runOptions) error {
	inst, err := a.newInstrumented()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.shutdownTracing(shutdownCtx, inst.provider)
	}()

	// progress lines would corrupt structured output
	progress := out
	if a.cfg.Run.Output != "table" {
		progress = errOut
	}

	runner := &example.Runner{
		Tracker:    inst.tracker,
		Iterations: a.cfg.Run.Iterations,
		MaxDelay:   a.cfg.Run.MaxDelay,
		Out:        progress,
		Logger:     a.logger,
	}
	if err := runner.Run(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("example loop failed: %w", err)
		}
		a.logger.Warn("Interrupted, reporting partial results")
	}

	rep := report.New(inst.tracker, opts.events)
	if opts.host {
		host, err := report.CollectHost()
		if err != nil {
			a.logger.Warn("Failed to collect host information", map[string]interface{}{"error": err.Error()})
		}
		rep.WithHost(host)
	}
	if err := rep.Write(out, a.cfg.Run.Output); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if opts.metrics {
		fmt.Fprintln(out)
		if err := metrics.WriteText(out, inst.registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}
