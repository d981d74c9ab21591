package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jkaberg/tesla-lametric/internal/config"
	"github.com/sirupsen/logrus"
)

// TopicRoot prefixes every state and availability topic.
const TopicRoot = "tesla_lametric"

// Client wraps the paho client with the topic layout used by the mirror.
type Client struct {
	client   mqtt.Client
	deviceID string
	logger   *logrus.Logger
}

// NewClient connects to the broker at mqttURL. Supported schemes are
// ws, wss, mqtt and mqtts; credentials may be embedded in the URL.
func NewClient(mqttURL, deviceID string, logger *logrus.Logger) (*Client, error) {
	opts, err := clientOptions(mqttURL, deviceID, logger)
	if err != nil {
		return nil, err
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(config.MQTTTimeout) {
		return nil, fmt.Errorf("connect to MQTT broker timed out after %s", config.MQTTTimeout)
	} else if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.WithFields(logrus.Fields{
		"broker":    cleanURL(mqttURL),
		"client_id": opts.ClientID,
	}).Info("MQTT client connected")

	return &Client{
		client:   client,
		deviceID: deviceID,
		logger:   logger,
	}, nil
}

// clientOptions translates the URL into paho options without connecting.
func clientOptions(mqttURL, deviceID string, logger *logrus.Logger) (*mqtt.ClientOptions, error) {
	parsedURL, err := url.Parse(mqttURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT URL: %w", err)
	}

	opts := mqtt.NewClientOptions()

	var brokerURL string
	switch parsedURL.Scheme {
	case "ws", "wss":
		brokerURL = mqttURL
	case "mqtt":
		brokerURL = strings.Replace(mqttURL, "mqtt://", "tcp://", 1)
	case "mqtts":
		brokerURL = strings.Replace(mqttURL, "mqtts://", "ssl://", 1)
	default:
		return nil, fmt.Errorf("unsupported protocol scheme: %s (supported: ws, wss, mqtt, mqtts)", parsedURL.Scheme)
	}
	if parsedURL.Scheme == "wss" || parsedURL.Scheme == "mqtts" {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("tesla-lametric-%s", deviceID))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(config.MQTTTimeout)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetWill(availabilityTopic(deviceID), "offline", 1, true)

	if parsedURL.User != nil {
		password, _ := parsedURL.User.Password()
		opts.SetUsername(parsedURL.User.Username())
		opts.SetPassword(password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.WithError(err).Warn("MQTT connection lost")
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		logger.Debug("MQTT reconnecting...")
	})

	return opts, nil
}

// Publish publishes a message with QoS 1, waiting at most config.MQTTTimeout.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	token := c.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(config.MQTTTimeout) {
		return fmt.Errorf("publish to topic %s timed out after %s", topic, config.MQTTTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	c.logger.WithFields(logrus.Fields{
		"topic":    topic,
		"size":     len(payload),
		"retained": retained,
	}).Debug("Published MQTT message")
	return nil
}

// IsConnected returns true if the client is connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Disconnect marks the device offline and disconnects.
func (c *Client) Disconnect(quiesce uint) {
	if c.client.IsConnected() {
		if err := c.Publish(availabilityTopic(c.deviceID), []byte("offline"), true); err != nil {
			c.logger.WithError(err).Debug("Failed to publish offline availability")
		}
	}
	c.client.Disconnect(quiesce)
	c.logger.Debug("MQTT client disconnected")
}

// BaseTopic returns the root topic for a device.
func BaseTopic(deviceID string) string {
	return fmt.Sprintf("%s/%s", TopicRoot, deviceID)
}

func availabilityTopic(deviceID string) string {
	return BaseTopic(deviceID) + "/availability"
}

// cleanURL removes credentials from URL for logging
func cleanURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if parsed.User != nil {
		parsed.User = url.UserPassword("***", "***")
	}
	return parsed.String()
}
