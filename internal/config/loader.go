package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied by [Load] for fields left unset.
const (
	DefaultListenAddr     = ":8080"
	DefaultDirective      = "You are a helpful assistant."
	DefaultModel          = "gpt-4o-mini"
	DefaultTimeoutSeconds = 30
)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied. It is a convenience wrapper around
// [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed
// from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Session.Directive == "" {
		cfg.Session.Directive = DefaultDirective
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = DefaultModel
	}
	if cfg.Completion.TimeoutSeconds == 0 {
		cfg.Completion.TimeoutSeconds = DefaultTimeoutSeconds
	}
}

// Validate checks that cfg contains a coherent set of values. It returns
// a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Session.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("session.max_turns %d must not be negative", cfg.Session.MaxTurns))
	}
	if cfg.Session.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("session.max_sessions %d must not be negative", cfg.Session.MaxSessions))
	}

	if cfg.Completion.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("completion.max_tokens %d must not be negative", cfg.Completion.MaxTokens))
	}
	if cfg.Completion.Temperature < 0 || cfg.Completion.Temperature > 2 {
		errs = append(errs, fmt.Errorf("completion.temperature %.2f is out of range [0, 2]", cfg.Completion.Temperature))
	}
	if cfg.Completion.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("completion.timeout_seconds %d must not be negative", cfg.Completion.TimeoutSeconds))
	}

	return errors.Join(errs...)
}
