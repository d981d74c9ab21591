package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/display"
	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/jkaberg/tesla-lametric/internal/transmission"
	"github.com/jkaberg/tesla-lametric/internal/vehicle"
	"github.com/jkaberg/tesla-lametric/internal/wake"
	"github.com/sirupsen/logrus"
)

// Result describes how a single run ended.
type Result int

const (
	ResultPublished Result = iota
	ResultGaveUp
	ResultSkipped
	ResultFailed
)

func (r Result) String() string {
	switch r {
	case ResultPublished:
		return "published"
	case ResultGaveUp:
		return "gave_up"
	case ResultSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Waker drives the vehicle online.
type Waker interface {
	Wake(ctx context.Context) (wake.Outcome, error)
}

// ChargeFetcher reads the charge telemetry of an online vehicle.
type ChargeFetcher interface {
	ChargeState(ctx context.Context) (*vehicle.ChargeTelemetry, error)
}

// DisplayPublisher pushes frames without the caller waiting on the result.
type DisplayPublisher interface {
	PublishAsync(ctx context.Context, payload display.Payload) <-chan struct{}
}

// Runner sequences wake, fetch, format and publish once per trigger.
// Runs never overlap: a trigger arriving while a run is in flight is skipped.
type Runner struct {
	waker     Waker
	fetcher   ChargeFetcher
	formatter *display.Formatter
	publisher DisplayPublisher
	mirror    transmission.Transmitter
	metrics   *metrics.Metrics
	logger    *logrus.Logger

	mu      sync.Mutex
	pending sync.WaitGroup
}

// NewRunner wires the run pipeline. mirror may be nil.
func NewRunner(
	waker Waker,
	fetcher ChargeFetcher,
	formatter *display.Formatter,
	publisher DisplayPublisher,
	mirror transmission.Transmitter,
	m *metrics.Metrics,
	logger *logrus.Logger,
) *Runner {
	return &Runner{
		waker:     waker,
		fetcher:   fetcher,
		formatter: formatter,
		publisher: publisher,
		mirror:    mirror,
		metrics:   m,
		logger:    logger,
	}
}

// Run performs one wake → fetch → format → publish cycle. Giving up on the
// wake loop is not an error. Wake and fetch failures abort the run before
// anything is published.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.mu.TryLock() {
		r.logger.Info("Previous run still in progress; skipping trigger")
		return r.finish(ResultSkipped), nil
	}
	defer r.mu.Unlock()

	start := time.Now()

	outcome, err := r.waker.Wake(ctx)
	if err != nil {
		return r.finish(ResultFailed), fmt.Errorf("wake vehicle: %w", err)
	}
	if outcome == wake.GaveUp {
		r.logger.WithField("elapsed", time.Since(start).Round(time.Second)).Info("Vehicle stayed asleep; nothing to publish")
		return r.finish(ResultGaveUp), nil
	}

	telemetry, err := r.fetcher.ChargeState(ctx)
	if err != nil {
		return r.finish(ResultFailed), fmt.Errorf("fetch charge state: %w", err)
	}
	r.metrics.BatteryLevel.Set(telemetry.BatteryLevel)

	payload := r.formatter.Format(*telemetry)
	charging := r.formatter.Policy.IsCharging(*telemetry)

	done := r.publisher.PublishAsync(ctx, payload)
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		<-done
	}()

	if r.mirror != nil {
		if err := r.mirror.Transmit(telemetry, charging); err != nil {
			r.logger.WithError(err).Warn("MQTT mirror failed")
		}
	}

	r.logger.WithFields(logrus.Fields{
		"battery_level": telemetry.BatteryLevel,
		"charging":      charging,
		"frames":        len(payload.Frames),
		"elapsed":       time.Since(start).Round(time.Millisecond),
	}).Info("Display update sent")
	return r.finish(ResultPublished), nil
}

// Wait blocks until every publish started by Run has finished.
func (r *Runner) Wait() {
	r.pending.Wait()
}

func (r *Runner) finish(res Result) Result {
	r.metrics.Runs.WithLabelValues(res.String()).Inc()
	return res
}
