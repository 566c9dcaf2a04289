/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	config.go: YAML configuration with defaults and validation.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Serial  SerialConfig  `yaml:"serial"`
	Replay  ReplayConfig  `yaml:"replay"`
	Tracker TrackerConfig `yaml:"tracker"`
	Datalog DatalogConfig `yaml:"datalog"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type MetricsConfig struct {
	// Listen is the optional address of the Prometheus metrics endpoint,
	// e.g. ":9090". Empty disables the endpoint.
	Listen string `yaml:"listen"`
}

type SerialConfig struct {
	Port      string `yaml:"port"`
	BaudRates []int  `yaml:"baud_rates"`
}

type ReplayConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type TrackerConfig struct {
	AckTimeout      Duration `yaml:"ack_timeout"`
	SweepInterval   Duration `yaml:"sweep_interval"`
	ResolvedBacklog int      `yaml:"resolved_backlog"`
}

// Duration wraps time.Duration so config files can say "3s" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

type DatalogConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			Port:      "/dev/ttyUSB0",
			BaudRates: []int{115200, 38400, 9600},
		},
		Tracker: TrackerConfig{
			AckTimeout:      Duration(3 * time.Second),
			SweepInterval:   Duration(1 * time.Second),
			ResolvedBacklog: 200,
		},
	}
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if !cfg.Replay.Enable && cfg.Serial.Port == "" {
		return Config{}, fmt.Errorf("serial.port is required unless replay is enabled")
	}
	if cfg.Replay.Enable && cfg.Replay.Path == "" {
		return Config{}, fmt.Errorf("replay.path is required when replay is enabled")
	}
	if len(cfg.Serial.BaudRates) == 0 {
		cfg.Serial.BaudRates = Default().Serial.BaudRates
	}
	if cfg.Tracker.AckTimeout <= 0 {
		cfg.Tracker.AckTimeout = Default().Tracker.AckTimeout
	}
	if cfg.Tracker.SweepInterval <= 0 {
		cfg.Tracker.SweepInterval = Default().Tracker.SweepInterval
	}
	if cfg.Tracker.ResolvedBacklog <= 0 {
		cfg.Tracker.ResolvedBacklog = Default().Tracker.ResolvedBacklog
	}
	if cfg.Datalog.Enable && cfg.Datalog.Path == "" {
		return Config{}, fmt.Errorf("datalog.path is required when datalog is enabled")
	}
	return cfg, nil
}
