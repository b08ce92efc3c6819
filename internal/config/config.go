package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultTolerance = 1e-8
	DefaultMaxIter   = 100
	DefaultFDStep    = 1e-6
	DefaultFDScheme  = "forward"
)

type Config struct {
	Problem string             `yaml:"problem"`
	Solver  SolverConfig       `yaml:"solver"`
	FD      FDConfig           `yaml:"fd"`
	Design  map[string]float64 `yaml:"design"`
	DataDir string             `yaml:"data_dir"`
}

type SolverConfig struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	Relative      bool    `yaml:"relative"`
}

type FDConfig struct {
	Scheme   string  `yaml:"scheme"`
	Step     float64 `yaml:"step"`
	Relative bool    `yaml:"relative"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem: "sellar",
		Solver: SolverConfig{
			Tolerance:     DefaultTolerance,
			MaxIterations: DefaultMaxIter,
		},
		FD: FDConfig{
			Scheme: DefaultFDScheme,
			Step:   DefaultFDStep,
		},
		Design:  make(map[string]float64),
		DataDir: ".mdokit",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("config: solver tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("config: solver max_iterations must be positive, got %d", c.Solver.MaxIterations)
	}
	if c.FD.Step <= 0 {
		return fmt.Errorf("config: fd step must be positive, got %g", c.FD.Step)
	}
	switch c.FD.Scheme {
	case "", "forward", "central":
	default:
		return fmt.Errorf("config: unknown fd scheme %q", c.FD.Scheme)
	}
	return nil
}
