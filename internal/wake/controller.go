package wake

import (
	"context"
	"fmt"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/jkaberg/tesla-lametric/internal/vehicle"
	"github.com/sirupsen/logrus"
)

// Outcome is the terminal result of a wake loop.
type Outcome int

const (
	// Online means the vehicle reported "online" within the attempt budget.
	Online Outcome = iota
	// GaveUp means every attempt saw a non-online state. It is not an error:
	// the next scheduled run simply tries again.
	GaveUp
)

func (o Outcome) String() string {
	if o == Online {
		return "online"
	}
	return "gave_up"
}

// Waker issues a single wake request and returns the reported state.
type Waker interface {
	WakeUp(ctx context.Context) (vehicle.State, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Controller drives a sleeping vehicle to the online state with a bounded
// number of attempts and a fixed delay between them.
type Controller struct {
	waker       Waker
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

// NewController creates a controller. maxAttempts below 1 is raised to 1.
func NewController(waker Waker, maxAttempts int, backoff time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Controller {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Controller{
		waker:       waker,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		sleep:       sleepContext,
		metrics:     m,
		logger:      logger,
	}
}

// SetSleep replaces the backoff sleep, mainly for tests.
func (c *Controller) SetSleep(fn SleepFunc) { c.sleep = fn }

// Wake sends wake requests until the vehicle reports online or the attempt
// budget is spent. At most maxAttempts requests are made and no delay
// follows a successful attempt. Request failures abort the loop and are
// returned as errors; cancellation of ctx during a backoff returns ctx.Err().
func (c *Controller) Wake(ctx context.Context) (Outcome, error) {
	sm := newStateMachine(c.logger)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := sm.fire(ctx, EventRequest); err != nil {
			return GaveUp, fmt.Errorf("wake state machine: %w", err)
		}

		c.metrics.WakeAttempts.Inc()
		state, err := c.waker.WakeUp(ctx)
		if err != nil {
			c.metrics.WakeOutcomes.WithLabelValues("error").Inc()
			return GaveUp, fmt.Errorf("wake attempt %d/%d: %w", attempt, c.maxAttempts, err)
		}
		if err := sm.observe(ctx, state); err != nil {
			return GaveUp, fmt.Errorf("wake state machine: %w", err)
		}

		entry := c.logger.WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": c.maxAttempts,
			"state":        sm.Current(),
		})

		if sm.online() {
			entry.Debug("Vehicle is online")
			c.metrics.WakeOutcomes.WithLabelValues(Online.String()).Inc()
			return Online, nil
		}

		if attempt == c.maxAttempts {
			break
		}

		entry.WithField("backoff", c.backoff).Info("Vehicle not online yet; retrying")
		if err := c.sleep(ctx, c.backoff); err != nil {
			c.metrics.WakeOutcomes.WithLabelValues("error").Inc()
			return GaveUp, err
		}
	}

	c.logger.WithField("attempts", c.maxAttempts).Info("Vehicle did not come online; giving up until next run")
	c.metrics.WakeOutcomes.WithLabelValues(GaveUp.String()).Inc()
	return GaveUp, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
