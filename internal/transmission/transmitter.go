package transmission

import "github.com/jkaberg/tesla-lametric/internal/vehicle"

// Transmitter mirrors fetched charge telemetry to a secondary sink.
type Transmitter interface {
	Transmit(data *vehicle.ChargeTelemetry, charging bool) error
	IsConnected() bool
}
