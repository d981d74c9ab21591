package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/config"
	"github.com/jkaberg/tesla-lametric/internal/wake"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppRun_RunOnStartAndShutdown(t *testing.T) {
	w := &fakeWaker{outcome: wake.Online}
	f := &fakeFetcher{telemetry: chargingTelemetry}
	p := &fakePublisher{}
	r, m := newTestRunner(w, f, p, nil)

	cfg := config.GetDefaultConfig()
	cfg.Schedule = "0 0 1 1 *"
	cfg.RunOnStart = true
	cfg.MetricsAddr = "127.0.0.1:0"

	logger, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- Run(ctx, cfg, r, m, logger) }()

	require.Eventually(t, func() bool { return p.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAppRun_InvalidSchedule(t *testing.T) {
	r, m := newTestRunner(&fakeWaker{}, &fakeFetcher{}, &fakePublisher{}, nil)
	cfg := config.GetDefaultConfig()
	cfg.Schedule = "every now and then"
	cfg.RunOnStart = false

	logger, _ := test.NewNullLogger()
	err := Run(context.Background(), cfg, r, m, logger)
	assert.Error(t, err)
}
