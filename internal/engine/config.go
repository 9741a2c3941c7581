// Package engine runs the discovery cascade: an ordered list of strategies
// tried until one produces enough candidates, with a synthetic fallback when
// every strategy comes up empty.
package engine

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// DefaultMinResults is the acceptance threshold applied to strategies without
// an explicit one. A strategy returning fewer candidates is treated as failed
// and the cascade advances.
const DefaultMinResults = 3

// Config is the cascade configuration.
type Config struct {
	Defaults   DefaultsConfig   `yaml:"defaults"`
	Strategies []StrategyConfig `yaml:"strategies"`
}

// DefaultsConfig holds global cascade defaults.
type DefaultsConfig struct {
	MinResults int `yaml:"min_results"`
}

// StrategyConfig configures one cascade position.
type StrategyConfig struct {
	Name       string `yaml:"name"`
	MinResults int    `yaml:"min_results"`
}

// DefaultConfig returns the built-in cascade order. The terminal llm_only
// strategy accepts a single candidate: there is nothing left to advance to.
func DefaultConfig() *Config {
	return &Config{
		Defaults: DefaultsConfig{MinResults: DefaultMinResults},
		Strategies: []StrategyConfig{
			{Name: "keyed_search"},
			{Name: "grounded_llm"},
			{Name: "scrape_llm"},
			{Name: "llm_only", MinResults: 1},
		},
	}
}

// LoadConfig reads cascade configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: read config %s", path)
	}

	// The YAML has a top-level "cascade" key.
	var wrapper struct {
		Cascade Config `yaml:"cascade"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "engine: parse config")
	}

	cfg := &wrapper.Cascade
	if cfg.Defaults.MinResults <= 0 {
		cfg.Defaults.MinResults = DefaultMinResults
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = DefaultConfig().Strategies
	}
	return cfg, nil
}

// MinResultsFor returns the acceptance threshold for a strategy name.
func (c *Config) MinResultsFor(name string) int {
	for _, s := range c.Strategies {
		if s.Name == name && s.MinResults > 0 {
			return s.MinResults
		}
	}
	if c.Defaults.MinResults > 0 {
		return c.Defaults.MinResults
	}
	return DefaultMinResults
}
