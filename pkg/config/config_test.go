package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "bandd-config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	t.Run("Valid Config", func(t *testing.T) {
		configContent := `
logger:
  address: "192.168.1.20"
  port: 13063

switch:
  address: "192.168.1.140"
  port: 9007
  radio_number: "2"

hardware:
  force_simulation: true

mqtt:
  enabled: true
  host: "broker.local"
  port: 8883
  use_tls: true
  topic: "station/band"

web:
  port: 8080
  bind_address: "127.0.0.1"

logging:
  level: "debug"
  file: "/tmp/bandd.log"
  console: true
`
		configPath := filepath.Join(tempDir, "valid.yaml")
		if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Logger.Address != "192.168.1.20" {
			t.Errorf("Expected logger address 192.168.1.20, got %s", config.Logger.Address)
		}
		if config.Logger.Port != 13063 {
			t.Errorf("Expected logger port 13063, got %d", config.Logger.Port)
		}
		if config.Switch.RadioNumber != "2" {
			t.Errorf("Expected radio number 2, got %s", config.Switch.RadioNumber)
		}
		if !config.Hardware.ForceSimulation {
			t.Error("Expected force_simulation true")
		}
		if !config.MQTT.Enabled || config.MQTT.Host != "broker.local" || config.MQTT.Port != 8883 {
			t.Errorf("Unexpected MQTT config: %+v", config.MQTT)
		}
		if config.Web.Port != 8080 {
			t.Errorf("Expected web port 8080, got %d", config.Web.Port)
		}
		if config.Logging.Level != "debug" {
			t.Errorf("Expected log level debug, got %s", config.Logging.Level)
		}
	})

	t.Run("Config With Defaults", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "minimal.yaml")
		if err := os.WriteFile(configPath, []byte("switch:\n  address: \"10.1.1.5\"\n"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if config.Logger.Address != "127.0.0.1" {
			t.Errorf("Expected default logger address, got %s", config.Logger.Address)
		}
		if config.Logger.Port != 12060 {
			t.Errorf("Expected default logger port 12060, got %d", config.Logger.Port)
		}
		if config.Switch.Address != "10.1.1.5" {
			t.Errorf("Expected configured switch address, got %s", config.Switch.Address)
		}
		if config.Switch.Port != 9007 {
			t.Errorf("Expected default switch port 9007, got %d", config.Switch.Port)
		}
		if config.Switch.RadioNumber != "1" {
			t.Errorf("Expected default radio number 1, got %s", config.Switch.RadioNumber)
		}
		if config.Web.Port != 8073 {
			t.Errorf("Expected default web port 8073, got %d", config.Web.Port)
		}
		if config.MQTT.Enabled {
			t.Error("Expected MQTT disabled by default")
		}
		if config.Logging.Level != "info" {
			t.Errorf("Expected default log level info, got %s", config.Logging.Level)
		}
	})

	t.Run("Missing File Uses Defaults", func(t *testing.T) {
		config, err := LoadConfig(filepath.Join(tempDir, "does-not-exist.yaml"))
		if err != nil {
			t.Fatalf("Expected defaults for a missing file, got: %v", err)
		}
		if config.Logger.Port != 12060 || config.Switch.Port != 9007 {
			t.Error("Expected default configuration")
		}
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		configPath := filepath.Join(tempDir, "broken.yaml")
		if err := os.WriteFile(configPath, []byte("logger: [not a map"), 0644); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("Expected an error for invalid YAML")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.applyDefaults()
		return c
	}

	t.Run("Defaults Are Valid", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected default config to validate, got: %v", err)
		}
	})

	t.Run("Bad Logger Port", func(t *testing.T) {
		c := valid()
		c.Logger.Port = 70000
		if err := c.Validate(); err == nil {
			t.Error("Expected out-of-range logger port to fail validation")
		}
	})

	t.Run("Bad Switch Port", func(t *testing.T) {
		c := valid()
		c.Switch.Port = -1
		if err := c.Validate(); err == nil {
			t.Error("Expected negative switch port to fail validation")
		}
	})

	t.Run("Missing Radio Number", func(t *testing.T) {
		c := valid()
		c.Switch.RadioNumber = ""
		if err := c.Validate(); err == nil {
			t.Error("Expected missing radio number to fail validation")
		}
	})

	t.Run("MQTT Enabled Without Host", func(t *testing.T) {
		c := valid()
		c.MQTT.Enabled = true
		if err := c.Validate(); err == nil {
			t.Error("Expected enabled MQTT without a host to fail validation")
		}
	})
}

func TestSaveRoundTrip(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "bandd-config-save")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	path := filepath.Join(tempDir, "config.yaml")

	c := &Config{}
	c.applyDefaults()
	c.Switch.Address = "172.16.0.9"
	c.Switch.RadioNumber = "2"
	c.Hardware.ForceSimulation = true

	if err := c.Save(path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	reloaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to reload config: %v", err)
	}

	if reloaded.Switch.Address != "172.16.0.9" {
		t.Errorf("Expected saved switch address to survive, got %s", reloaded.Switch.Address)
	}
	if reloaded.Switch.RadioNumber != "2" {
		t.Errorf("Expected saved radio number to survive, got %s", reloaded.Switch.RadioNumber)
	}
	if !reloaded.Hardware.ForceSimulation {
		t.Error("Expected saved simulation flag to survive")
	}
}
