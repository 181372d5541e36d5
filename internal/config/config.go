// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Sample sources selectable with SOURCE.
const (
	SourceMock    = "mock"
	SourceMPU9250 = "mpu9250"
	SourceSerial  = "serial"
	SourceMQTT    = "mqtt"
)

// Config holds all application configuration values.
type Config struct {
	// Sample source: mock, mpu9250, serial or mqtt
	Source string

	// Export
	ExportDir    string
	ExportPrefix string

	// Estimators
	EWMAAlpha          float64
	FusionBeta         float64
	SampleStepSeconds  float64
	GyroLegacyTimestep bool // replay the old Δns/1e-9 timestep

	// Mock source
	MockIntervalMs  int
	MockGyroEnabled bool

	// IMU Hardware
	IMUSPIDevice      string
	IMUCSPin          string
	IMUSampleInterval int // milliseconds

	// Serial link
	SerialPort     string
	SerialBaudRate int

	// MQTT
	MQTTBroker     string
	MQTTClientID   string
	MQTTPublish    bool
	TopicSamples   string
	TopicEstimates string
	TopicSession   string

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds

	LogLevel string
}

var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Default returns the configuration used when a key is not set.
func Default() *Config {
	return &Config{
		Source:                SourceMock,
		ExportDir:             "Documents",
		ExportPrefix:          "shoulder_measurement",
		EWMAAlpha:             0.1,
		FusionBeta:            0.98,
		SampleStepSeconds:     0.05,
		MockIntervalMs:        50,
		MockGyroEnabled:       true,
		IMUSPIDevice:          "/dev/spidev0.0",
		IMUCSPin:              "GPIO8",
		IMUSampleInterval:     20,
		SerialPort:            "/dev/serial0",
		SerialBaudRate:        115200,
		MQTTBroker:            "tcp://localhost:1883",
		MQTTClientID:          "shoulder-measurement",
		TopicSamples:          "shoulder/samples",
		TopicEstimates:        "shoulder/estimates",
		TopicSession:          "shoulder/session",
		WebServerPort:         8080,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 200,
		LogLevel:              "info",
	}
}

// Load reads a configuration file on top of Default. Files ending in .yaml
// or .yml are parsed as YAML maps of the same keys; anything else uses the
// KEY=VALUE format.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = cfg.loadYAML(file)
	default:
		err = cfg.loadKeyValue(file)
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadKeyValue(file *os.File) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := c.setValue(key, value); err != nil {
			return fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// loadYAML accepts keys in either case, e.g. ewma_alpha or EWMA_ALPHA.
func (c *Config) loadYAML(file *os.File) error {
	values := map[string]interface{}{}
	if err := yaml.NewDecoder(file).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error reading config file: %w", err)
	}
	for key, v := range values {
		if err := c.setValue(strings.ToUpper(key), fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	return nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	case "SOURCE":
		c.Source = strings.ToLower(value)

	// Export
	case "EXPORT_DIR":
		c.ExportDir = value
	case "EXPORT_PREFIX":
		c.ExportPrefix = value

	// Estimators
	case "EWMA_ALPHA":
		c.EWMAAlpha, err = parseFloat(key, value)
	case "FUSION_BETA":
		c.FusionBeta, err = parseFloat(key, value)
	case "SAMPLE_STEP_SECONDS":
		c.SampleStepSeconds, err = parseFloat(key, value)
	case "GYRO_LEGACY_TIMESTEP":
		c.GyroLegacyTimestep, err = parseBool(key, value)

	// Mock source
	case "MOCK_INTERVAL_MS":
		c.MockIntervalMs, err = parseInt(key, value)
	case "MOCK_GYRO_ENABLED":
		c.MockGyroEnabled, err = parseBool(key, value)

	// IMU Hardware
	case "IMU_SPI_DEVICE":
		c.IMUSPIDevice = value
	case "IMU_CS_PIN":
		c.IMUCSPin = value
	case "IMU_SAMPLE_INTERVAL":
		c.IMUSampleInterval, err = parseInt(key, value)

	// Serial link
	case "SERIAL_PORT":
		c.SerialPort = value
	case "SERIAL_BAUD_RATE":
		c.SerialBaudRate, err = parseInt(key, value)

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_PUBLISH":
		c.MQTTPublish, err = parseBool(key, value)
	case "TOPIC_SAMPLES":
		c.TopicSamples = value
	case "TOPIC_ESTIMATES":
		c.TopicEstimates = value
	case "TOPIC_SESSION":
		c.TopicSession = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value)

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, perr)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		c.DisplayUpdateInterval, err = parseInt(key, value)

	case "LOG_LEVEL":
		c.LogLevel = strings.ToLower(value)

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

func parseInt(key, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseFloat(key, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

func parseBool(key, value string) (bool, error) {
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// validate checks ranges and the fields the selected source needs.
func (c *Config) validate() error {
	if c.EWMAAlpha <= 0 || c.EWMAAlpha > 1 {
		return fmt.Errorf("EWMA_ALPHA must be in (0, 1], got %g", c.EWMAAlpha)
	}
	if c.FusionBeta <= 0 || c.FusionBeta > 1 {
		return fmt.Errorf("FUSION_BETA must be in (0, 1], got %g", c.FusionBeta)
	}
	if c.SampleStepSeconds <= 0 {
		return fmt.Errorf("SAMPLE_STEP_SECONDS must be positive, got %g", c.SampleStepSeconds)
	}
	if c.ExportDir == "" {
		return fmt.Errorf("EXPORT_DIR is required")
	}
	if c.WebServerPort <= 0 || c.WebServerPort > 65535 {
		return fmt.Errorf("WEB_SERVER_PORT must be 1-65535, got %d", c.WebServerPort)
	}
	// the upstream ssd1306 driver only talks to 0x3C
	if c.DisplayI2CAddr != 0x3C {
		return fmt.Errorf("DISPLAY_I2C_ADDR must be 0x3C, got 0x%02X", c.DisplayI2CAddr)
	}
	if c.DisplayUpdateInterval <= 0 {
		return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive, got %d", c.DisplayUpdateInterval)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	switch c.Source {
	case SourceMock:
		if c.MockIntervalMs <= 0 {
			return fmt.Errorf("MOCK_INTERVAL_MS must be positive, got %d", c.MockIntervalMs)
		}
	case SourceMPU9250:
		if c.IMUSPIDevice == "" {
			return fmt.Errorf("IMU_SPI_DEVICE is required")
		}
		if c.IMUSampleInterval <= 0 {
			return fmt.Errorf("IMU_SAMPLE_INTERVAL must be positive, got %d", c.IMUSampleInterval)
		}
	case SourceSerial:
		if c.SerialPort == "" {
			return fmt.Errorf("SERIAL_PORT is required")
		}
		if c.SerialBaudRate <= 0 {
			return fmt.Errorf("SERIAL_BAUD_RATE must be positive, got %d", c.SerialBaudRate)
		}
	case SourceMQTT:
		if c.TopicSamples == "" {
			return fmt.Errorf("TOPIC_SAMPLES is required")
		}
	default:
		return fmt.Errorf("SOURCE must be one of mock, mpu9250, serial, mqtt; got %q", c.Source)
	}

	if (c.Source == SourceMQTT || c.MQTTPublish) && c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
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
