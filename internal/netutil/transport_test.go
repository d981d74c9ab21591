package netutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPrivateHost(t *testing.T) {
	cases := map[string]bool{
		"localhost":                 true,
		"127.0.0.1":                 true,
		"::1":                       true,
		"10.1.2.3":                  true,
		"192.168.1.10":              true,
		"8.8.8.8":                   false,
		"owner-api.teslamotors.com": false,
		"developer.lametric.com":    false,
	}
	for host, want := range cases {
		assert.Equal(t, want, isPrivateHost(host), host)
	}
}

func TestNewHTTPClient_DialsAndLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client := NewHTTPClient(2*time.Second, logger)
	assert.Equal(t, 2*time.Second, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))

	require.NotEmpty(t, hook.AllEntries())
	assert.Equal(t, "Dialing API host", hook.AllEntries()[0].Message)
	assert.Equal(t, true, hook.AllEntries()[0].Data["private"])
}
