package display

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/jkaberg/tesla-lametric/internal/netutil"
	"github.com/sirupsen/logrus"
)

// ErrPublish wraps every failed display push.
var ErrPublish = errors.New("display publish failed")

// ErrEmptyPayload is returned for a payload without frames.
var ErrEmptyPayload = errors.New("payload has no frames")

// Publisher pushes payloads to a LaMetric indicator app.
type Publisher struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

// NewPublisher creates a publisher for the app appID below baseURL.
func NewPublisher(baseURL, accessToken, appID string, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Publisher {
	return &Publisher{
		endpoint:    fmt.Sprintf("%s/com.lametric.%s", strings.TrimRight(baseURL, "/"), appID),
		accessToken: accessToken,
		httpClient:  netutil.NewHTTPClient(timeout, logger),
		metrics:     m,
		logger:      logger,
	}
}

// Publish sends p with a single POST. A 2xx answer only proves the API
// accepted the request, not that the device redrew. There is no retry.
func (p *Publisher) Publish(ctx context.Context, payload Payload) error {
	if len(payload.Frames) == 0 {
		return fmt.Errorf("%w: %w", ErrPublish, ErrEmptyPayload)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", ErrPublish, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrPublish, err)
	}
	req.Header.Set("X-Access-Token", p.accessToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", netutil.UserAgent)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	p.metrics.APILatency.WithLabelValues("lametric_push").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPublish, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: LaMetric API returned status %d: %s", ErrPublish, resp.StatusCode, resp.Status)
	}

	p.logger.WithFields(logrus.Fields{
		"frames":      len(payload.Frames),
		"status_code": resp.StatusCode,
	}).Debug("Published display frames")
	return nil
}

// PublishAsync is fire-and-forget: the push runs on its own goroutine and
// the caller never waits for it to be correct. Failures are logged and
// counted, never returned. The returned channel is closed once the attempt
// has finished, for callers that want to wait before shutting down.
func (p *Publisher) PublishAsync(ctx context.Context, payload Payload) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Publish(ctx, payload); err != nil {
			p.metrics.PublishTotal.WithLabelValues("failed").Inc()
			p.logger.WithError(err).Warn("Display push failed; not retrying")
			return
		}
		p.metrics.PublishTotal.WithLabelValues("success").Inc()
	}()
	return done
}
