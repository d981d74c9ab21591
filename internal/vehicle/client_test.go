package vehicle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	logger, _ := test.NewNullLogger()
	m := metrics.New()
	return NewClient(srv.URL+"/", "secret", "42", 2*time.Second, m, logger), m
}

func TestParseState(t *testing.T) {
	assert.Equal(t, StateOnline, ParseState("online"))
	assert.Equal(t, StateOnline, ParseState(" Online "))
	assert.Equal(t, StateAsleep, ParseState("asleep"))
	assert.Equal(t, StateAsleep, ParseState("offline"))
	assert.Equal(t, StateWaking, ParseState("waking"))
	assert.Equal(t, StateUnknown, ParseState(""))
	assert.Equal(t, StateUnknown, ParseState("driving"))
	assert.Equal(t, "unknown", State(99).String())
}

func TestWakeUp(t *testing.T) {
	c, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/vehicles/42/wake_up", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"response":{"id":42,"state":"asleep"}}`)
	})

	state, err := c.WakeUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateAsleep, state)
	assert.Equal(t, 1, testutil.CollectAndCount(m.APILatency))
}

func TestWakeUp_Online(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":{"state":"online"}}`)
	})

	state, err := c.WakeUp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateOnline, state)
}

func TestWakeUp_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"error":"invalid bearer token"}`)
		})
		_, err := c.WakeUp(context.Background())
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.Equal(t, "wake_up", apiErr.Endpoint)
		assert.Contains(t, apiErr.Body, "invalid bearer token")
	})

	t.Run("malformed json", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"response":`)
		})
		_, err := c.WakeUp(context.Background())
		require.Error(t, err)
	})

	t.Run("missing response", func(t *testing.T) {
		c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		})
		_, err := c.WakeUp(context.Background())
		assert.ErrorIs(t, err, ErrMalformedResponse)
	})
}

func TestChargeState(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/vehicles/42/data_request/charge_state", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"response":{
			"battery_level":60,
			"battery_range":180.2,
			"charge_rate":22.0,
			"charge_miles_added_ideal":5.3,
			"time_to_full_charge":1.4,
			"charging_state":"Charging"}}`)
	})

	tel, err := c.ChargeState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ChargeTelemetry{
		BatteryLevel:          60,
		BatteryRange:          180.2,
		ChargeRate:            22,
		ChargeMilesAddedIdeal: 5.3,
		TimeToFullCharge:      1.4,
	}, *tel)
}

func TestChargeState_Errors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
		_, _ = io.WriteString(w, `{"response":null,"error":"vehicle unavailable"}`)
	})
	_, err := c.ChargeState(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusRequestTimeout, apiErr.StatusCode)

	c, _ = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"response":null}`)
	})
	_, err = c.ChargeState(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestChargeState_Transport(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logger, _ := test.NewNullLogger()
	c := NewClient(url, "secret", "42", time.Second, metrics.New(), logger)
	_, err := c.ChargeState(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "charge_state request failed")
}
