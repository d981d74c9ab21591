package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Formatter policies accepted by the Policy field.
const (
	PolicyFixed    = "fixed"
	PolicyExtended = "extended"
)

// Config holds all configuration options for the tesla-lametric application.
// It is populated once at startup and treated as read-only afterwards.
type Config struct {
	// Tesla owner API
	TeslaBaseURL   string `json:"tesla_base_url"`   // API root, e.g. https://owner-api.teslamotors.com/api/1
	TeslaToken     string `json:"tesla_token"`      // Bearer token
	TeslaVehicleID string `json:"tesla_vehicle_id"` // Vehicle identifier used in request paths

	// LaMetric developer API
	LaMetricBaseURL     string `json:"lametric_base_url"`     // Widget update root
	LaMetricAccessToken string `json:"lametric_access_token"` // X-Access-Token header value
	LaMetricAppID       string `json:"lametric_app_id"`       // Indicator app identifier

	// Display layout
	Policy       string `json:"policy"`        // "fixed" or "extended"
	VehicleLabel string `json:"vehicle_label"` // Text of the first frame

	// Scheduling
	Schedule   string `json:"schedule"`     // Standard 5-field cron expression
	RunOnStart bool   `json:"run_on_start"` // Trigger one run immediately at startup

	// MQTT mirror (optional)
	MQTTUrl         string `json:"mqtt_url"`
	DiscoveryPrefix string `json:"discovery_prefix"`
	DeviceID        string `json:"device_id"`

	// Application
	MetricsAddr string `json:"metrics_addr"` // host:port for /metrics, empty disables
	Verbose     bool   `json:"verbose"`
	APITimeout  int    `json:"api_timeout"` // HTTP request timeout in seconds
}

// GetDefaultConfig returns a configuration with sensible defaults
func GetDefaultConfig() *Config {
	return &Config{
		TeslaBaseURL:    "https://owner-api.teslamotors.com/api/1",
		LaMetricBaseURL: "https://developer.lametric.com/api/v1/dev/widget/update",
		Policy:          PolicyExtended,
		VehicleLabel:    "Tesla",
		Schedule:        "*/15 * * * *",
		RunOnStart:      true,
		DiscoveryPrefix: "homeassistant",
		DeviceID:        "tesla",
		APITimeout:      10,
	}
}

// Validate checks that every required value is present and well-formed.
func (c *Config) Validate() error {
	var missing []string
	if c.TeslaToken == "" {
		missing = append(missing, "tesla token")
	}
	if c.TeslaVehicleID == "" {
		missing = append(missing, "tesla vehicle id")
	}
	if c.LaMetricAccessToken == "" {
		missing = append(missing, "lametric access token")
	}
	if c.LaMetricAppID == "" {
		missing = append(missing, "lametric app id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.TeslaBaseURL == "" || c.LaMetricBaseURL == "" {
		return fmt.Errorf("API base URLs must not be empty")
	}

	switch c.Policy {
	case PolicyFixed, PolicyExtended:
	default:
		return fmt.Errorf("unknown display policy %q (supported: %s, %s)", c.Policy, PolicyFixed, PolicyExtended)
	}

	if _, err := cron.ParseStandard(c.Schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", c.Schedule, err)
	}

	// MQTT validation - support both WebSocket and standard MQTT protocols
	if c.MQTTUrl != "" {
		if !strings.HasPrefix(c.MQTTUrl, "ws://") &&
			!strings.HasPrefix(c.MQTTUrl, "wss://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtt://") &&
			!strings.HasPrefix(c.MQTTUrl, "mqtts://") {
			return fmt.Errorf("MQTT URL must use supported protocol (ws://, wss://, mqtt://, or mqtts://)")
		}
		if c.DeviceID == "" {
			return fmt.Errorf("device ID is required when MQTT is enabled")
		}
	}

	if c.APITimeout <= 0 {
		c.APITimeout = 10
	}

	return nil
}

// HasMQTT returns true if MQTT is configured
func (c *Config) HasMQTT() bool {
	return c.MQTTUrl != ""
}

// HasMetrics returns true if the metrics endpoint should be served
func (c *Config) HasMetrics() bool {
	return c.MetricsAddr != ""
}

// GetAPITimeout returns the API timeout as a duration
func (c *Config) GetAPITimeout() time.Duration {
	return time.Duration(c.APITimeout) * time.Second
}
