package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/layoutopt/internal/layout"
	"github.com/san-kum/layoutopt/internal/optim"
)

const (
	DefaultMaxSteps = 500
	DefaultStarts   = 1
	DefaultDataDir  = "runs"
	DefaultAddr     = ":8080"
	DefaultInterval = 50 // ms between autosteps
)

type Config struct {
	Optim    optim.Options `yaml:"optim" toml:"optim"`
	MaxSteps int           `yaml:"max_steps" toml:"max_steps"`
	Parallel bool          `yaml:"parallel" toml:"parallel"`
	Workers  int           `yaml:"workers" toml:"workers"`
	Seed     int64         `yaml:"seed" toml:"seed"`

	// Starts is the number of independent starts tried by run.
	Starts  int          `yaml:"starts" toml:"starts"`
	DataDir string       `yaml:"data_dir" toml:"data_dir"`
	Server  ServerConfig `yaml:"server" toml:"server"`
	Live    LiveConfig   `yaml:"live" toml:"live"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
	// MaxSessions bounds the number of live states held in memory.
	MaxSessions int `yaml:"max_sessions" toml:"max_sessions"`
}

type LiveConfig struct {
	IntervalMS int    `yaml:"interval_ms" toml:"interval_ms"`
	Theme      string `yaml:"theme" toml:"theme"`
}

func DefaultConfig() *Config {
	return &Config{
		Optim:    optim.DefaultOptions(),
		MaxSteps: DefaultMaxSteps,
		Workers:  runtime.NumCPU(),
		Starts:   DefaultStarts,
		DataDir:  DefaultDataDir,
		Server:   ServerConfig{Addr: DefaultAddr, MaxSessions: 256},
		Live:     LiveConfig{IntervalMS: DefaultInterval, Theme: "default"},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML or TOML file over the defaults. The format follows the
// file extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if isTOML(path) {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if err := c.LayoutOptions().Validate(); err != nil {
		return err
	}
	if c.Starts < 1 {
		return fmt.Errorf("starts must be at least 1, got %d", c.Starts)
	}
	return nil
}

// LayoutOptions converts c into options for layout.New.
func (c *Config) LayoutOptions() layout.Options {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return layout.Options{
		Optim:    c.Optim,
		MaxSteps: c.MaxSteps,
		Parallel: c.Parallel,
		Workers:  workers,
	}
}
