package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/psantana5/evprof/internal/example"
	"github.com/psantana5/evprof/pkg/api"
	"github.com/psantana5/evprof/pkg/ratelimit"
	"github.com/psantana5/evprof/pkg/shutdown"
	"github.com/psantana5/evprof/pkg/tracing"
)

const (
	// pause between two runs of the example loop
	roundPause = time.Second

	limiterCleanupInterval = time.Minute
	limiterMaxAge          = 10 * time.Minute
	shutdownTimeout        = 30 * time.Second
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the example loop continuously and serve statistics over HTTP",
		Long: `Runs the instrumented example loop round after round and exposes the tracker
on an HTTP API (/stats, /events, /health, /metrics) until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.String("addr", ":9100", "listen address")
	flags.Float64("rate-limit", 20, "requests per second allowed per client, 0 disables")
	flags.Int("burst", 40, "request burst allowed per client")
	flags.Int("iterations", 10, "loop iterations per round")
	flags.Duration("max-delay", 3*time.Second, "upper bound of the per-iteration delay")
	a.bind(flags, "serve.addr", "addr")
	a.bind(flags, "serve.rate_limit", "rate-limit")
	a.bind(flags, "serve.burst", "burst")
	a.bind(flags, "run.iterations", "iterations")
	a.bind(flags, "run.max_delay", "max-delay")

	return cmd
}

// newRouter assembles the HTTP API with tracing and per-client rate limiting
func (a *app) newRouter(inst *instrumented, limiter *ratelimit.Limiter) *mux.Router {
	handler := api.NewHandler(inst.tracker, a.logger)
	handler.SetMetricsGatherer(inst.registry)

	router := mux.NewRouter()
	router.Use(tracing.HTTPMiddleware(inst.provider))
	router.Use(limiter.Middleware(ratelimit.IPKeyFunc))
	handler.RegisterRoutes(router)
	return router
}

func (a *app) serve(ctx context.Context) error {
	inst, err := a.newInstrumented()
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(a.cfg.Serve.RateLimit, a.cfg.Serve.Burst)
	srv := &http.Server{
		Handler:      a.newRouter(inst, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", a.cfg.Serve.Addr)
	if err != nil {
		a.shutdownTracing(context.Background(), inst.provider)
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Serve.Addr, err)
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	driverDone := make(chan struct{})
	go func() {
		defer close(driverDone)
		a.drive(serveCtx, inst)
	}()
	go a.cleanupLimiters(serveCtx, limiter)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	a.logger.Info("Serving event statistics", map[string]interface{}{
		"addr":      ln.Addr().String(),
		"endpoints": "/stats /stats/{name} /events /events/{name} /health /metrics",
	})

	// Shutdown runs in reverse: HTTP server, example loop, tracer provider
	mgr := shutdown.New(shutdownTimeout, a.logger)
	mgr.Register("tracing", inst.provider.Shutdown)
	mgr.Register("example loop", func(ctx context.Context) error {
		cancel()
		select {
		case <-driverDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	mgr.Register("http server", shutdown.StopHTTPServer(srv))

	errs := mgr.WaitWithContext(serveCtx)
	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	default:
	}
	return errors.Join(errs...)
}

// drive runs the example loop round after round until ctx is done
func (a *app) drive(ctx context.Context, inst *instrumented) {
	for round := 1; ; round++ {
		runner := &example.Runner{
			Tracker:    inst.tracker,
			Iterations: a.cfg.Run.Iterations,
			MaxDelay:   a.cfg.Run.MaxDelay,
			Logger:     a.logger.WithField("round", round),
		}
		if err := runner.Run(ctx); err != nil {
			return
		}
		if err := example.SleepContext(ctx, roundPause); err != nil {
			return
		}
	}
}

func (a *app) cleanupLimiters(ctx context.Context, limiter *ratelimit.Limiter) {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.CleanupOldLimiters(limiterMaxAge); n > 0 {
				a.logger.Debug("Removed idle rate limiters", map[string]interface{}{"count": n})
			}
		}
	}
}
