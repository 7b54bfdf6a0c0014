package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/llxisdsh/waitgen"
	"github.com/llxisdsh/waitgen/promstats"
)

type stressConfig struct {
	Gates       int
	Waiters     int
	Signals     int
	Interval    time.Duration
	Timeout     time.Duration
	MetricsAddr string
}

func (c stressConfig) validate() error {
	switch {
	case c.Gates <= 0:
		return errors.New("--gates must be positive")
	case c.Waiters < 0:
		return errors.New("--waiters must not be negative")
	case c.Signals <= 0:
		return errors.New("--signals must be positive")
	case c.Interval < 0:
		return errors.New("--interval must not be negative")
	case c.Timeout <= 0:
		return errors.New("--timeout must be positive")
	}
	return nil
}

type stressReport struct {
	Gates   int
	Waiters int
	Reached int64
	Elapsed time.Duration
	Before  waitgen.PoolStats
	After   waitgen.PoolStats
}

// NewStressCmd creates the stress subcommand.
func NewStressCmd(log *logrus.Logger) *cobra.Command {
	cfg := stressConfig{}

	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Park waiters on gates and signal them to a target generation",
		Long: `Create --gates ChangeCounter gates, park --waiters goroutines on each and
signal every gate --signals times. Each waiter returns once it has seen the
final generation; the producer disposes its gate when done.

Pool statistics are logged before and after the run. With --metrics-addr
they are also served at /metrics while the run lasts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			report, err := runStress(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"gates":           report.Gates,
				"waiters":         report.Waiters,
				"reached":         report.Reached,
				"elapsed":         report.Elapsed,
				"allocated":       report.After.Allocated - report.Before.Allocated,
				"recycled":        report.After.Recycled - report.Before.Recycled,
				"discarded":       report.After.Discarded - report.Before.Discarded,
				"idle":            report.After.Idle,
				"total_allocated": report.After.Allocated,
			}).Info("stress run complete")
			return nil
		},
	}

	cmd.Flags().IntVarP(&cfg.Gates, "gates", "g", 8, "Number of gates")
	cmd.Flags().IntVarP(&cfg.Waiters, "waiters", "w", 64, "Waiters parked on each gate")
	cmd.Flags().IntVarP(&cfg.Signals, "signals", "s", 1000, "Signals sent to each gate")
	cmd.Flags().DurationVar(&cfg.Interval, "interval", 0, "Pause between two signals on a gate")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", time.Minute, "Abort the run after this long")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	return cmd
}

func runStress(ctx context.Context, cfg stressConfig, log logrus.FieldLogger) (stressReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, log)
		if err != nil {
			return stressReport{}, err
		}
		defer stop()
	}

	report := stressReport{
		Gates:   cfg.Gates,
		Waiters: cfg.Gates * cfg.Waiters,
		Before:  waitgen.Stats(),
	}
	target := uint64(cfg.Signals)
	start := time.Now()

	var reached atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	for range cfg.Gates {
		gate := &waitgen.ChangeCounter{}
		glog := log.WithField("gate", uuid.NewString())

		for range cfg.Waiters {
			eg.Go(func() error {
				gen, ok := gate.WaitAtLeast(ctx, target)
				if gen >= target {
					reached.Add(1)
					return nil
				}
				if !ok && ctx.Err() != nil {
					return fmt.Errorf("waiter stopped at generation %d of %d: %w", gen, target, ctx.Err())
				}
				return nil
			})
		}

		eg.Go(func() error {
			// Releases any waiter still parked on the last epoch.
			defer gate.Dispose()
			for range cfg.Signals {
				if cfg.Interval > 0 {
					select {
					case <-ctx.Done():
						return fmt.Errorf("producer stopped at generation %d: %w", gate.Generation(), ctx.Err())
					case <-time.After(cfg.Interval):
					}
				}
				gate.Signal()
			}
			glog.WithField("generation", gate.Generation()).Debug("producer done")
			return nil
		})
	}

	err := eg.Wait()
	report.Reached = reached.Load()
	report.Elapsed = time.Since(start)
	report.After = waitgen.Stats()
	if err != nil {
		return report, fmt.Errorf("stress run: %w", err)
	}
	return report, nil
}

// serveMetrics starts a /metrics endpoint and returns a function that shuts
// it down.
func serveMetrics(addr string, log logrus.FieldLogger) (func(), error) {
	registry := prometheus.NewRegistry()
	if _, err := promstats.Register(registry, ""); err != nil {
		return nil, fmt.Errorf("registering pool metrics: %w", err)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warn("metrics server stopped")
		}
	}()
	log.WithField("addr", ln.Addr().String()).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
