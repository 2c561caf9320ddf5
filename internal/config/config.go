// Package config loads the monitor's YAML configuration and environment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// MonitorConfig is the contents of monitor.yaml.
type MonitorConfig struct {
	Version int `yaml:"version"`
	Service struct {
		ID   string `yaml:"id"`
		Name string `yaml:"name"`
	} `yaml:"service"`
	Network struct {
		APIPort int `yaml:"api_port"`
	} `yaml:"network"`
	Monitor struct {
		PollIntervalMS  int    `yaml:"poll_interval_ms"`
		SettleIntervalS int    `yaml:"settle_interval_s"`
		ConfigPath      string `yaml:"config_path"`
		ScenePath       string `yaml:"scene_path"`
	} `yaml:"monitor"`
	Assets struct {
		BaseDir string `yaml:"base_dir"`
		Role    string `yaml:"role"`
	} `yaml:"assets"`
	Journal struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"journal"`
}

// APIPort returns the configured API port, defaulting to 8080 if not set.
func (c *MonitorConfig) APIPort() int {
	if c.Network.APIPort == 0 {
		return 8080
	}
	return c.Network.APIPort
}

// PollInterval returns the reconcile tick interval, defaulting to 500ms.
func (c *MonitorConfig) PollInterval() time.Duration {
	if c.Monitor.PollIntervalMS <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Monitor.PollIntervalMS) * time.Millisecond
}

// SettleInterval returns the scene-file debounce window, defaulting to 5s.
func (c *MonitorConfig) SettleInterval() time.Duration {
	if c.Monitor.SettleIntervalS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.Monitor.SettleIntervalS) * time.Second
}

// ServiceID returns the service identifier, defaulting to "avatarlink".
func (c *MonitorConfig) ServiceID() string {
	if c.Service.ID == "" {
		return "avatarlink"
	}
	return c.Service.ID
}

// LoadMonitorConfig reads and validates monitor.yaml.
func LoadMonitorConfig(path string) (*MonitorConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg MonitorConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	if cfg.Version != 1 {
		return nil, fmt.Errorf("unsupported monitor.yaml version: %d", cfg.Version)
	}

	if cfg.Monitor.ConfigPath == "" {
		return nil, fmt.Errorf("monitor.config_path is required")
	}
	if cfg.Monitor.ScenePath == "" {
		return nil, fmt.Errorf("monitor.scene_path is required")
	}

	return &cfg, nil
}

// LoadEnv loads a .env file if one exists. A missing file is not an error;
// deployments usually provide the environment directly.
func LoadEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
