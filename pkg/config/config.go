// Package config loads, validates, and persists the bandd
// configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the bandd configuration.
type Config struct {
	Logger struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
	} `yaml:"logger"`

	Switch struct {
		Address     string `yaml:"address"`
		Port        int    `yaml:"port"`
		RadioNumber string `yaml:"radio_number"`
	} `yaml:"switch"`

	Hardware struct {
		ForceSimulation bool `yaml:"force_simulation"`
	} `yaml:"hardware"`

	MQTT struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		UseTLS   bool   `yaml:"use_tls"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Topic    string `yaml:"topic"`
	} `yaml:"mqtt"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		Console    bool   `yaml:"console"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file and applies
// defaults. A missing file is not an error; the defaults describe a
// stock N1MM+ and Antenna Genius installation.
func LoadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Logger.Address == "" {
		c.Logger.Address = "127.0.0.1"
	}
	if c.Logger.Port == 0 {
		c.Logger.Port = 12060
	}
	if c.Switch.Address == "" {
		c.Switch.Address = "192.168.100.140"
	}
	if c.Switch.Port == 0 {
		c.Switch.Port = 9007
	}
	if c.Switch.RadioNumber == "" {
		c.Switch.RadioNumber = "1"
	}
	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "bandd/band"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8073
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "0.0.0.0"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 28
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Logger.Port < 1 || c.Logger.Port > 65535 {
		return fmt.Errorf("logger UDP port %d out of range", c.Logger.Port)
	}
	if c.Switch.Port < 1 || c.Switch.Port > 65535 {
		return fmt.Errorf("switch TCP port %d out of range", c.Switch.Port)
	}
	if c.Switch.RadioNumber == "" {
		return fmt.Errorf("switch radio number is required")
	}
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}
	if c.MQTT.Enabled && c.MQTT.Host == "" {
		return fmt.Errorf("mqtt host is required when mqtt is enabled")
	}
	return nil
}

// Save writes the configuration back to path. The UI edits the
// operator-facing settings and expects them to survive a restart.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
