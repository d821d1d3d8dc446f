// Package config provides the configuration schema and loader for the
// relay. The YAML file carries tunables only; credentials always come
// from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
)

// Environment variables holding the two required secrets.
const (
	// EnvDiscordToken names the Discord bot token variable.
	EnvDiscordToken = "DISCORD_TOKEN"

	// EnvOpenAIKey names the completion API key variable.
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a slog.Level. Unset or unknown values map to Info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure, typically loaded from a
// YAML file with [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Bot        BotConfig        `yaml:"bot"`
	Session    SessionConfig    `yaml:"session"`
	Completion CompletionConfig `yaml:"completion"`
}

// ServerConfig holds logging and the operational HTTP listener settings.
type ServerConfig struct {
	// ListenAddr is the TCP address for the health and metrics endpoints
	// (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// BotConfig holds command routing settings.
type BotConfig struct {
	// CommandPrefix marks command messages (e.g., "!"). Empty means
	// commands are matched on the bare first word.
	CommandPrefix string `yaml:"command_prefix"`

	// AllowFreeform routes non-command text into the assistant pipeline
	// when true. Default false: unrecognised text is ignored.
	AllowFreeform bool `yaml:"allow_freeform"`
}

// SessionConfig holds conversation session settings.
type SessionConfig struct {
	// Directive is the system instruction seeded as turn zero of every
	// new session.
	Directive string `yaml:"directive"`

	// MaxTurns bounds the transcript length per session. Zero means the
	// built-in default of 20.
	MaxTurns int `yaml:"max_turns"`

	// MaxSessions bounds the number of concurrently retained sessions,
	// evicting the least recently used. Zero means unbounded.
	MaxSessions int `yaml:"max_sessions"`
}

// CompletionConfig holds upstream completion API settings.
type CompletionConfig struct {
	// Model is the completion model identifier (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// BaseURL overrides the API endpoint. Leave empty for the default.
	BaseURL string `yaml:"base_url"`

	// MaxTokens caps the response length. Zero leaves it to the API.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature. Zero means the API default.
	Temperature float64 `yaml:"temperature"`

	// TimeoutSeconds bounds each upstream request. Zero means the
	// built-in default of 30.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Secrets holds the credentials read from the environment. They never
// appear in the YAML schema so a committed config file cannot leak them.
type Secrets struct {
	DiscordToken string
	OpenAIKey    string
}

// LoadSecrets reads the required credentials from the environment. Both
// must be present and non-empty or the process must not start.
func LoadSecrets() (Secrets, error) {
	s := Secrets{
		DiscordToken: os.Getenv(EnvDiscordToken),
		OpenAIKey:    os.Getenv(EnvOpenAIKey),
	}
	if s.DiscordToken == "" {
		return Secrets{}, fmt.Errorf("config: %s is not set", EnvDiscordToken)
	}
	if s.OpenAIKey == "" {
		return Secrets{}, fmt.Errorf("config: %s is not set", EnvOpenAIKey)
	}
	return s, nil
}
