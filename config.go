package ssvm

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"
)

// Config carries the feature flags and limits a VM is created with.
type Config struct {
	// ReferenceTypes admits modules using reference-type element kinds.
	ReferenceTypes bool `koanf:"reference-types"`
	// BulkMemory requests bulk memory operations. This runtime does not
	// implement them: Validate rejects a config with BulkMemory set.
	BulkMemory bool `koanf:"bulk-memory"`
	// MaxCallDepth bounds nested call depth; exceeding it traps.
	MaxCallDepth int `koanf:"max-call-depth"`
	// TraceInstructions logs every dispatched instruction at Debug level.
	TraceInstructions bool `koanf:"trace-instructions"`
}

const defaultMaxCallDepth = 512

func NewConfig() *Config {
	return &Config{MaxCallDepth: defaultMaxCallDepth}
}

func (c *Config) WithReferenceTypes(enabled bool) *Config {
	ret := *c
	ret.ReferenceTypes = enabled
	return &ret
}

func (c *Config) WithBulkMemory(enabled bool) *Config {
	ret := *c
	ret.BulkMemory = enabled
	return &ret
}

func (c *Config) WithMaxCallDepth(depth int) *Config {
	ret := *c
	ret.MaxCallDepth = depth
	return &ret
}

func (c *Config) WithInstructionTrace(enabled bool) *Config {
	ret := *c
	ret.TraceInstructions = enabled
	return &ret
}

func (c *Config) Validate() error {
	var err error
	if c.MaxCallDepth <= 0 {
		err = multierr.Append(err, fmt.Errorf("max-call-depth must be positive, got %d", c.MaxCallDepth))
	}
	if c.BulkMemory {
		err = multierr.Append(err, fmt.Errorf("bulk-memory is declared but not implemented by this runtime"))
	}
	return err
}

// envPrefix namespaces the environment variables read by LoadConfig, e.g.
// SSVM_MAX_CALL_DEPTH overrides max-call-depth.
const envPrefix = "SSVM_"

// LoadConfig reads a YAML config file, then applies SSVM_-prefixed
// environment overrides. path may be empty to load from the environment
// alone.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load config env: %w", err)
	}

	cfg := NewConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
