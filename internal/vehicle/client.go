package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/jkaberg/tesla-lametric/internal/netutil"
	"github.com/sirupsen/logrus"
)

// maxErrorBody bounds how much of a failed response is kept in an APIError.
const maxErrorBody = 256

// ErrMalformedResponse is returned when the API answers 2xx but the body
// does not contain the expected "response" object.
var ErrMalformedResponse = errors.New("malformed vehicle API response")

// APIError reports a non-2xx answer from the owner API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vehicle API %s returned status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Client talks to the Tesla owner API for a single vehicle.
type Client struct {
	baseURL    string
	token      string
	vehicleID  string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewClient creates a new owner API client.
func NewClient(baseURL, token, vehicleID string, timeout time.Duration, m *metrics.Metrics, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		vehicleID:  vehicleID,
		httpClient: netutil.NewHTTPClient(timeout, logger),
		metrics:    m,
		logger:     logger,
	}
}

// WakeUp asks the vehicle to come online and returns the state it reports.
// A single request is made; retrying is up to the caller.
func (c *Client) WakeUp(ctx context.Context) (State, error) {
	body, err := c.do(ctx, http.MethodPost, "wake_up", "wake_up")
	if err != nil {
		return StateUnknown, err
	}

	var resp wakeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return StateUnknown, fmt.Errorf("failed to decode wake_up response: %w", err)
	}
	if resp.Response == nil {
		return StateUnknown, fmt.Errorf("wake_up: %w", ErrMalformedResponse)
	}

	state := ParseState(resp.Response.State)
	c.logger.WithFields(logrus.Fields{
		"raw_state": resp.Response.State,
		"state":     state.String(),
	}).Debug("Wake request answered")
	return state, nil
}

// ChargeState fetches the current charge telemetry. The vehicle must be
// online; an asleep vehicle makes the API answer with an error status.
func (c *Client) ChargeState(ctx context.Context) (*ChargeTelemetry, error) {
	body, err := c.do(ctx, http.MethodGet, "data_request/charge_state", "charge_state")
	if err != nil {
		return nil, err
	}

	var resp chargeStateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode charge_state response: %w", err)
	}
	if resp.Response == nil {
		return nil, fmt.Errorf("charge_state: %w", ErrMalformedResponse)
	}

	c.logger.WithFields(logrus.Fields{
		"battery_level": resp.Response.BatteryLevel,
		"battery_range": resp.Response.BatteryRange,
		"charge_rate":   resp.Response.ChargeRate,
	}).Debug("Fetched charge state")
	return resp.Response, nil
}

// do performs an authenticated request against /vehicles/{id}/{path} and
// returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path, call string) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/vehicles/%s/%s", c.baseURL, url.PathEscape(c.vehicleID), path)

	req, err := http.NewRequestWithContext(ctx, method, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", call, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", netutil.UserAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.APILatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", call, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response body: %w", call, err)
	}

	c.logger.WithFields(logrus.Fields{
		"call":          call,
		"status_code":   resp.StatusCode,
		"response_size": len(body),
	}).Debug("Received vehicle API response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &APIError{Endpoint: call, StatusCode: resp.StatusCode, Body: snippet}
	}
	return body, nil
}
