// Package config provides configuration loading and access for the
// simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Noise     NoiseConfig     `yaml:"noise"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Agent     AgentConfig     `yaml:"agent"`
	Lidar     LidarConfig     `yaml:"lidar"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the occupancy grid dimensions in cells.
type WorldConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// NoiseConfig holds map generation parameters. Threshold is the
// fraction of the noise range below which a cell is occupied.
type NoiseConfig struct {
	Scale      float64 `yaml:"scale"`
	Octaves    int     `yaml:"octaves"`
	Lacunarity float64 `yaml:"lacunarity"`
	Gain       float64 `yaml:"gain"`
	Threshold  float64 `yaml:"threshold"`
}

// PhysicsConfig holds simulation stepping parameters.
type PhysicsConfig struct {
	DT float64 `yaml:"dt"`
}

// AgentConfig holds agent spawn parameters.
type AgentConfig struct {
	Count int     `yaml:"count"`
	Scale float64 `yaml:"scale"`
}

// LidarConfig holds sensor parameters.
type LidarConfig struct {
	Rays int `yaml:"rays"`
}

// TelemetryConfig holds stats reporting parameters.
type TelemetryConfig struct {
	StatsWindowSec float64 `yaml:"stats_window_sec"`
	PerfWindow     int     `yaml:"perf_window"`
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	// StatsWindowTicks is the stats window converted to whole ticks,
	// at least 1.
	StatsWindowTicks int64
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded
// defaults if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct so the file only overwrites
		// the fields it names.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	return cfg, nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	ticks := int64(1)
	if c.Physics.DT > 0 {
		ticks = int64(c.Telemetry.StatsWindowSec / c.Physics.DT)
		if ticks < 1 {
			ticks = 1
		}
	}
	c.Derived.StatsWindowTicks = ticks
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
