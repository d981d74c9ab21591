package transmission

import (
	"encoding/json"
	"fmt"

	"github.com/jkaberg/tesla-lametric/internal/mqtt"
	"github.com/jkaberg/tesla-lametric/internal/vehicle"
	"github.com/sirupsen/logrus"
)

// Publisher is the part of the MQTT client the transmitter needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
	IsConnected() bool
}

// MQTTTransmitter publishes charge telemetry to Home Assistant via MQTT
// discovery. Discovery configs are sent once per process.
type MQTTTransmitter struct {
	client           Publisher
	deviceID         string
	discoveryPrefix  string
	logger           *logrus.Logger
	publishedSensors map[string]bool
}

// HADiscoveryConfig represents Home Assistant MQTT discovery configuration
type HADiscoveryConfig struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	Device            HADevice `json:"device"`
	AvailabilityTopic string   `json:"availability_topic"`
	Icon              string   `json:"icon,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	PayloadOn         string   `json:"payload_on,omitempty"`
	PayloadOff        string   `json:"payload_off,omitempty"`
}

// HADevice represents the device information for Home Assistant
type HADevice struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model"`
	Manufacturer string   `json:"manufacturer"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// SensorConfig defines one Home Assistant entity
type SensorConfig struct {
	Name        string
	EntityID    string // key in the state payload
	EntityType  string // "sensor" / "binary_sensor"
	DeviceClass string
	Unit        string
	Icon        string
	StateClass  string
}

// telemetrySensors is the fixed list of entities derived from ChargeTelemetry.
var telemetrySensors = []SensorConfig{
	{Name: "Battery Level", EntityID: "battery_level", EntityType: "sensor", DeviceClass: "battery", Unit: "%", StateClass: "measurement"},
	{Name: "Battery Range", EntityID: "battery_range", EntityType: "sensor", DeviceClass: "distance", Unit: "mi", StateClass: "measurement"},
	{Name: "Charge Rate", EntityID: "charge_rate", EntityType: "sensor", DeviceClass: "speed", Unit: "mph", StateClass: "measurement"},
	{Name: "Miles Added", EntityID: "charge_miles_added_ideal", EntityType: "sensor", DeviceClass: "distance", Unit: "mi", StateClass: "total_increasing"},
	{Name: "Time To Full Charge", EntityID: "time_to_full_charge", EntityType: "sensor", DeviceClass: "duration", Unit: "h", Icon: "mdi:timer-outline"},
	{Name: "Charging", EntityID: "charging", EntityType: "binary_sensor", DeviceClass: "battery_charging"},
}

// NewMQTTTransmitter creates a new MQTT transmitter
func NewMQTTTransmitter(client Publisher, deviceID, discoveryPrefix string, logger *logrus.Logger) *MQTTTransmitter {
	return &MQTTTransmitter{
		client:           client,
		deviceID:         deviceID,
		discoveryPrefix:  discoveryPrefix,
		logger:           logger,
		publishedSensors: make(map[string]bool),
	}
}

// Transmit publishes discovery (first time only), state and availability.
func (t *MQTTTransmitter) Transmit(data *vehicle.ChargeTelemetry, charging bool) error {
	if data == nil {
		return nil
	}
	if !t.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	t.publishDiscoveryConfigs()

	payload, err := buildStatePayload(data, charging)
	if err != nil {
		return fmt.Errorf("failed to build state payload: %w", err)
	}

	topic := mqtt.BaseTopic(t.deviceID) + "/state"
	if err := t.client.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("failed to publish charge state: %w", err)
	}

	if err := t.client.Publish(mqtt.BaseTopic(t.deviceID)+"/availability", []byte("online"), true); err != nil {
		return fmt.Errorf("failed to publish availability: %w", err)
	}

	t.logger.WithFields(logrus.Fields{
		"topic":   topic,
		"payload": string(payload),
	}).Debug("Published charge state")
	return nil
}

// IsConnected checks if the MQTT client is connected
func (t *MQTTTransmitter) IsConnected() bool {
	return t.client.IsConnected()
}

func (t *MQTTTransmitter) publishDiscoveryConfigs() {
	device := HADevice{
		Identifiers:  []string{fmt.Sprintf("tesla_lametric_%s", t.deviceID)},
		Name:         "Tesla",
		Model:        "Charge state",
		Manufacturer: "Tesla",
		SWVersion:    "1.0.0",
	}
	baseTopic := mqtt.BaseTopic(t.deviceID)

	for _, sensor := range telemetrySensors {
		if err := t.publishDiscoveryForSensor(sensor, device, baseTopic); err != nil {
			t.logger.WithError(err).WithField("sensor", sensor.Name).Warn("Failed to publish discovery config")
		}
	}
}

func (t *MQTTTransmitter) publishDiscoveryForSensor(sensor SensorConfig, device HADevice, baseTopic string) error {
	uniqueID := fmt.Sprintf("%s_%s", t.deviceID, sensor.EntityID)
	if t.publishedSensors[uniqueID] {
		return nil
	}

	cfg := HADiscoveryConfig{
		Name:              sensor.Name,
		UniqueID:          uniqueID,
		StateTopic:        baseTopic + "/state",
		ValueTemplate:     fmt.Sprintf("{{ value_json.%s }}", sensor.EntityID),
		DeviceClass:       sensor.DeviceClass,
		UnitOfMeasurement: sensor.Unit,
		Icon:              sensor.Icon,
		StateClass:        sensor.StateClass,
		AvailabilityTopic: baseTopic + "/availability",
		Device:            device,
	}
	if sensor.EntityType == "binary_sensor" {
		cfg.PayloadOn = "True"
		cfg.PayloadOff = "False"
	}

	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal discovery config: %w", err)
	}

	topic := fmt.Sprintf("%s/%s/tesla_lametric_%s/%s/config",
		t.discoveryPrefix, sensor.EntityType, t.deviceID, sensor.EntityID)
	if err := t.client.Publish(topic, payload, true); err != nil {
		return fmt.Errorf("failed to publish discovery config to %s: %w", topic, err)
	}

	t.logger.WithFields(logrus.Fields{
		"entity_id": sensor.EntityID,
		"topic":     topic,
	}).Info("Published sensor discovery config")

	t.publishedSensors[uniqueID] = true
	return nil
}

// buildStatePayload renders the JSON object read by every value_template.
func buildStatePayload(data *vehicle.ChargeTelemetry, charging bool) ([]byte, error) {
	state := struct {
		*vehicle.ChargeTelemetry
		Charging bool `json:"charging"`
	}{data, charging}
	return json.Marshal(state)
}
