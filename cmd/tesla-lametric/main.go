package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jkaberg/tesla-lametric/internal/app"
	"github.com/jkaberg/tesla-lametric/internal/config"
	"github.com/jkaberg/tesla-lametric/internal/display"
	"github.com/jkaberg/tesla-lametric/internal/metrics"
	"github.com/jkaberg/tesla-lametric/internal/mqtt"
	"github.com/jkaberg/tesla-lametric/internal/transmission"
	"github.com/jkaberg/tesla-lametric/internal/vehicle"
	"github.com/jkaberg/tesla-lametric/internal/wake"
	"github.com/sirupsen/logrus"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg, runOnce := parseFlags()

	logger := setupLogger(cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}
	policy, err := display.ParsePolicy(cfg.Policy)
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	logger.WithFields(logrus.Fields{
		"version":      version,
		"vehicle_id":   cfg.TeslaVehicleID,
		"app_id":       cfg.LaMetricAppID,
		"policy":       policy,
		"schedule":     cfg.Schedule,
		"max_attempts": config.MaxWakeAttempts,
		"backoff":      config.WakeBackoff,
	}).Info("Starting tesla-lametric")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Core clients ---------------------------------------------------------------
	m := metrics.New()
	vehicleClient := vehicle.NewClient(cfg.TeslaBaseURL, cfg.TeslaToken, cfg.TeslaVehicleID, cfg.GetAPITimeout(), m, logger)
	waker := wake.NewController(vehicleClient, config.MaxWakeAttempts, config.WakeBackoff, m, logger)
	publisher := display.NewPublisher(cfg.LaMetricBaseURL, cfg.LaMetricAccessToken, cfg.LaMetricAppID, cfg.GetAPITimeout(), m, logger)
	formatter := display.NewFormatter(policy, cfg.VehicleLabel)

	// Optional MQTT mirror ---------------------------------------------------------
	var mirror transmission.Transmitter
	if cfg.HasMQTT() {
		mqttClient, err := mqtt.NewClient(cfg.MQTTUrl, cfg.DeviceID, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create MQTT client")
		}
		defer mqttClient.Disconnect(250)
		mirror = transmission.NewMQTTTransmitter(mqttClient, cfg.DeviceID, cfg.DiscoveryPrefix, logger)
		logger.Info("MQTT transmitter ready")
	}

	runner := app.NewRunner(waker, vehicleClient, formatter, publisher, mirror, m, logger)

	if runOnce {
		res, err := runner.Run(ctx)
		runner.Wait()
		if err != nil {
			logger.WithError(err).Fatal("Run failed")
		}
		logger.WithField("result", res.String()).Info("Single run finished")
		return
	}

	// Run application ------------------------------------------------------------
	if err := app.Run(ctx, cfg, runner, m, logger); err != nil {
		logger.WithError(err).Error("Application stopped with error")
	}
	logger.Info("tesla-lametric stopped")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func parseFlags() (*config.Config, bool) {
	cfg := config.GetDefaultConfig()

	showVersion := flag.Bool("version", false, "Show version and exit")
	runOnce := flag.Bool("once", false, "Perform a single run and exit")

	flag.StringVar(&cfg.TeslaBaseURL, "tesla-url", getEnv("TESLA_API_URL", cfg.TeslaBaseURL), "Tesla owner API base URL")
	flag.StringVar(&cfg.TeslaToken, "tesla-token", getEnv("TESLA_TOKEN", cfg.TeslaToken), "Tesla API bearer token")
	flag.StringVar(&cfg.TeslaVehicleID, "vehicle-id", getEnv("TESLA_VEHICLE_ID", cfg.TeslaVehicleID), "Tesla vehicle identifier")
	flag.StringVar(&cfg.LaMetricBaseURL, "lametric-url", getEnv("LAMETRIC_API_URL", cfg.LaMetricBaseURL), "LaMetric widget update base URL")
	flag.StringVar(&cfg.LaMetricAccessToken, "lametric-token", getEnv("LAMETRIC_ACCESS_TOKEN", cfg.LaMetricAccessToken), "LaMetric app access token")
	flag.StringVar(&cfg.LaMetricAppID, "lametric-app-id", getEnv("LAMETRIC_APP_ID", cfg.LaMetricAppID), "LaMetric indicator app ID")
	flag.StringVar(&cfg.Policy, "policy", getEnv("DISPLAY_POLICY", cfg.Policy), "Frame layout: fixed or extended")
	flag.StringVar(&cfg.VehicleLabel, "label", getEnv("VEHICLE_LABEL", cfg.VehicleLabel), "Text of the first frame")
	flag.StringVar(&cfg.Schedule, "schedule", getEnv("SCHEDULE", cfg.Schedule), "Cron expression for runs")
	flag.BoolVar(&cfg.RunOnStart, "run-on-start", getEnv("RUN_ON_START", fmt.Sprint(cfg.RunOnStart)) == "true", "Run once immediately at startup")
	flag.StringVar(&cfg.MQTTUrl, "mqtt-url", getEnv("MQTT_URL", cfg.MQTTUrl), "MQTT URL for the Home Assistant mirror")
	flag.StringVar(&cfg.DiscoveryPrefix, "discovery-prefix", getEnv("DISCOVERY_PREFIX", cfg.DiscoveryPrefix), "HA discovery prefix")
	flag.StringVar(&cfg.DeviceID, "device-id", getEnv("DEVICE_ID", cfg.DeviceID), "Device identifier for MQTT topics")
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", getEnv("METRICS_ADDR", cfg.MetricsAddr), "Address for /metrics (empty disables)")
	flag.BoolVar(&cfg.Verbose, "verbose", getEnv("VERBOSE", "false") == "true", "Verbose logging")
	flag.IntVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout, "HTTP request timeout in seconds")

	flag.Parse()

	if *showVersion {
		fmt.Printf("tesla-lametric %s\n", version)
		os.Exit(0)
	}

	return cfg, *runOnce
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
