// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/reading"
	"github.com/relabs-tech/seismic_analyze/internal/sink"
)

// Config holds all application configuration values.
type Config struct {
	// Integration
	IntegrationPolicy string  // "trapezoid-position" or "velocity-integrated"
	SensorScaleFactor float64 // milli-g per raw count
	Gravity           float64 // m/s² per g
	DriftEpsilon      float64 // metres bled per step by trapezoid-position

	// Output
	OutputSeparator string // "space" or "comma"
	SQLitePath      string // empty disables run persistence

	// MQTT
	MQTTEnabled         bool
	MQTTBroker          string
	MQTTClientIDAnalyze string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string

	// Topics
	TopicDisplacement string
	TopicSummary      string

	// Web Server
	WebServerPort int
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: write lock for initialization, read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used for keys a file does not set.
func Default() *Config {
	return &Config{
		IntegrationPolicy: integrate.PolicyTrapezoidPosition,
		SensorScaleFactor: reading.DefaultScaleFactor,
		Gravity:           integrate.DefaultGravity,
		DriftEpsilon:      integrate.DefaultDriftEpsilon,

		OutputSeparator: sink.SeparatorSpace,

		MQTTBroker:          "tcp://localhost:1883",
		MQTTClientIDAnalyze: "seismic-analyze",
		MQTTClientIDConsole: "seismic-console-subscriber",
		MQTTClientIDWeb:     "seismic-web-subscriber",

		TopicDisplacement: "seismic/displacement",
		TopicSummary:      "seismic/summary",

		WebServerPort: 8080,
	}
}

// Load reads the configuration file and returns a Config struct.
// Keys missing from the file keep their Default values.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads KEY=VALUE lines from r on top of Default.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Integration
	case "INTEGRATION_POLICY":
		c.IntegrationPolicy = value
	case "SENSOR_SCALE_FACTOR":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_SCALE_FACTOR %q: %w", value, err)
		}
		c.SensorScaleFactor = f
	case "GRAVITY":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid GRAVITY %q: %w", value, err)
		}
		c.Gravity = f
	case "DRIFT_EPSILON":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid DRIFT_EPSILON %q: %w", value, err)
		}
		c.DriftEpsilon = f

	// Output
	case "OUTPUT_SEPARATOR":
		c.OutputSeparator = value
	case "SQLITE_PATH":
		c.SQLitePath = value

	// MQTT
	case "MQTT_ENABLED":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MQTT_ENABLED %q: %w", value, err)
		}
		c.MQTTEnabled = enabled
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_ANALYZE":
		c.MQTTClientIDAnalyze = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_DISPLACEMENT":
		c.TopicDisplacement = value
	case "TOPIC_SUMMARY":
		c.TopicSummary = value

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *Config) Validate() error {
	if _, err := integrate.PolicyByName(c.IntegrationPolicy, c.DriftEpsilon); err != nil {
		return fmt.Errorf("INTEGRATION_POLICY: %w", err)
	}
	if _, err := sink.SeparatorByName(c.OutputSeparator); err != nil {
		return fmt.Errorf("OUTPUT_SEPARATOR: %w", err)
	}
	if !(c.SensorScaleFactor > 0) {
		return fmt.Errorf("SENSOR_SCALE_FACTOR must be > 0, got %g", c.SensorScaleFactor)
	}
	if !(c.Gravity > 0) {
		return fmt.Errorf("GRAVITY must be > 0, got %g", c.Gravity)
	}
	if !(c.DriftEpsilon >= 0) {
		return fmt.Errorf("DRIFT_EPSILON must be >= 0, got %g", c.DriftEpsilon)
	}
	if c.MQTTBroker == "" && c.MQTTEnabled {
		return fmt.Errorf("MQTT_BROKER is required when MQTT_ENABLED is set")
	}
	if c.TopicDisplacement == "" {
		return fmt.Errorf("TOPIC_DISPLACEMENT is required")
	}
	if c.WebServerPort < 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", c.WebServerPort)
	}
	return nil
}

// Policy returns the configured integration policy.
func (c *Config) Policy() (integrate.Policy, error) {
	return integrate.PolicyByName(c.IntegrationPolicy, c.DriftEpsilon)
}

// Formatter returns the configured output formatter.
func (c *Config) Formatter() (sink.Formatter, error) {
	sep, err := sink.SeparatorByName(c.OutputSeparator)
	if err != nil {
		return sink.Formatter{}, err
	}
	return sink.Formatter{Separator: sep}, nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// An empty path installs Default.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		if configPath == "" {
			globalConfig = Default()
			return
		}
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
