// Package config loads the optional mutop configuration file. Everything in
// it has a built-in default and can also be set from the command line; flags
// given explicitly win over file values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete monitor configuration.
type Config struct {
	Broker  BrokerConfig  `yaml:"broker"`
	Monitor MonitorConfig `yaml:"monitor"`
}

// BrokerConfig contains MQTT broker settings.
type BrokerConfig struct {
	Port             int `yaml:"port"`
	KeepAliveSeconds int `yaml:"keepalive_seconds"`
	QoS              int `yaml:"qos"`
}

// MonitorConfig contains sampling and topic settings.
type MonitorConfig struct {
	Domain        string `yaml:"domain"`
	SampleSeconds int    `yaml:"sample_seconds"`
}

// Load loads configuration from a YAML file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no broker or device would accept.
func (c *Config) Validate() error {
	if c.Broker.Port < 0 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker port %d out of range", c.Broker.Port)
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		return fmt.Errorf("qos %d out of range (want 0-2)", c.Broker.QoS)
	}
	if c.Broker.KeepAliveSeconds < 0 {
		return fmt.Errorf("keepalive %d must not be negative", c.Broker.KeepAliveSeconds)
	}
	if c.Monitor.SampleSeconds < 0 {
		return fmt.Errorf("sample interval %d must not be negative", c.Monitor.SampleSeconds)
	}
	return nil
}
