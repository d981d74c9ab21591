package config

import "time"

// Central place for all application-wide timing constants and other defaults.

const (
	// Wake loop
	MaxWakeAttempts = 6                // wake_up requests per run, at most
	WakeBackoff     = 30 * time.Second // fixed delay between wake attempts

	// Operation time-outs
	MQTTTimeout = 5 * time.Second // MQTT publish / subscribe

	// Shutdown grace for the metrics listener
	MetricsShutdownTimeout = 5 * time.Second
)
