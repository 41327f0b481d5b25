package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/sdesim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModel   = "gbm"
	DefaultScheme  = "milstein"
	DefaultX0      = 100.0
	DefaultHorizon = 1.0
	DefaultSteps   = 250
	DefaultPaths   = 1000
	DefaultMu      = 0.05
	DefaultSigma   = 0.2

	DefaultLogLevel = "warn"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Model         string             `yaml:"model"`
	Scheme        string             `yaml:"scheme"`
	X0            float64            `yaml:"x0"`
	T0            float64            `yaml:"t0"`
	Horizon       float64            `yaml:"horizon"`
	Steps         int                `yaml:"steps"`
	Paths         int                `yaml:"paths"`
	Seed          uint64             `yaml:"seed"`
	Workers       int                `yaml:"workers"`
	ValidateState bool               `yaml:"validate"`
	Params        map[string]float64 `yaml:"params"`
	LogLevel      string             `yaml:"log_level"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:         DefaultModel,
		Scheme:        DefaultScheme,
		X0:            DefaultX0,
		Horizon:       DefaultHorizon,
		Steps:         DefaultSteps,
		Paths:         DefaultPaths,
		Workers:       1,
		ValidateState: true,
		Params: map[string]float64{
			"mu":    DefaultMu,
			"sigma": DefaultSigma,
		},
		LogLevel: DefaultLogLevel,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Decode(func(v any) error { return yaml.Unmarshal(data, v) })
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode fills a DefaultConfig through decode, which is yaml.Unmarshal or a
// yaml.Node's Decode. An explicit params block replaces the default
// parameters instead of merging into them; a missing or empty one keeps the
// defaults for the default model and is empty otherwise. Params is never nil.
func Decode(decode func(v any) error) (*Config, error) {
	cfg := DefaultConfig()
	defaults := cfg.Params
	cfg.Params = nil
	if err := decode(cfg); err != nil {
		return nil, err
	}
	if len(cfg.Params) == 0 {
		if cfg.Model == DefaultModel {
			cfg.Params = defaults
		} else {
			cfg.Params = map[string]float64{}
		}
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidConfig)
	}
	if c.Scheme == "" {
		return fmt.Errorf("%w: scheme is required", ErrInvalidConfig)
	}
	if !(c.Horizon > c.T0) {
		return fmt.Errorf("%w: horizon %g must be after t0 %g", ErrInvalidConfig, c.Horizon, c.T0)
	}
	if c.Steps < 1 {
		return fmt.Errorf("%w: steps must be positive, got %d", ErrInvalidConfig, c.Steps)
	}
	if c.Paths < 1 {
		return fmt.Errorf("%w: paths must be positive, got %d", ErrInvalidConfig, c.Paths)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	return nil
}

// Times returns the uniform grid from T0 to Horizon with Steps increments.
func (c *Config) Times() []float64 {
	return dynamo.UniformGrid(c.T0, c.Horizon, c.Steps)
}

// Clone returns a deep copy so presets are never mutated by callers.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		out.Params[k] = v
	}
	return &out
}
