package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/jkaberg/tesla-lametric/internal/config"
	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run schedules runner on cfg.Schedule, serves metrics when configured and
// blocks until ctx is cancelled. Individual run failures are logged; they
// never stop the scheduler.
func Run(
	ctx context.Context,
	cfg *config.Config,
	runner *Runner,
	m *metrics.Metrics,
	logger *logrus.Logger,
) error {
	trigger := func() {
		res, err := runner.Run(ctx)
		if err != nil {
			logger.WithError(err).WithField("result", res.String()).Warn("Run failed")
		}
	}

	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Cron(cfg.Schedule).Do(trigger); err != nil {
		return fmt.Errorf("failed to schedule runs: %w", err)
	}

	grp, ctx := errgroup.WithContext(ctx)

	// Scheduler ------------------------------------------------------------
	grp.Go(func() error {
		scheduler.StartAsync()
		_, next := scheduler.NextRun()
		logger.WithFields(logrus.Fields{
			"schedule": cfg.Schedule,
			"next_run": next.Format(time.RFC3339),
		}).Info("Scheduler started")

		<-ctx.Done()
		scheduler.Stop()
		runner.Wait()
		return nil
	})

	if cfg.RunOnStart {
		grp.Go(func() error {
			trigger()
			return nil
		})
	}

	// Metrics --------------------------------------------------------------
	if cfg.HasMetrics() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		grp.Go(func() error {
			logger.WithField("addr", cfg.MetricsAddr).Info("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		grp.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), config.MetricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
