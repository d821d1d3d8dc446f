package config

import (
	"strings"
	"testing"
)

const fullConfig = `
server:
  listen_addr: ":9090"
  log_level: debug
bot:
  command_prefix: "!"
  allow_freeform: true
session:
  directive: "You are a terse assistant."
  max_turns: 10
  max_sessions: 500
completion:
  model: gpt-4o
  base_url: "https://llm.internal.example/v1"
  max_tokens: 512
  temperature: 0.7
  timeout_seconds: 45
`

func TestLoadFromReader_FullConfig(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(fullConfig))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Bot.CommandPrefix != "!" || !cfg.Bot.AllowFreeform {
		t.Errorf("bot = %+v", cfg.Bot)
	}
	if cfg.Session.Directive != "You are a terse assistant." {
		t.Errorf("directive = %q", cfg.Session.Directive)
	}
	if cfg.Session.MaxTurns != 10 || cfg.Session.MaxSessions != 500 {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Completion.Model != "gpt-4o" || cfg.Completion.MaxTokens != 512 {
		t.Errorf("completion = %+v", cfg.Completion)
	}
	if cfg.Completion.Temperature != 0.7 || cfg.Completion.TimeoutSeconds != 45 {
		t.Errorf("completion = %+v", cfg.Completion)
	}
}

func TestLoadFromReader_EmptyConfigGetsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != DefaultListenAddr {
		t.Errorf("listen_addr = %q, want default %q", cfg.Server.ListenAddr, DefaultListenAddr)
	}
	if cfg.Session.Directive != DefaultDirective {
		t.Errorf("directive = %q, want default", cfg.Session.Directive)
	}
	if cfg.Completion.Model != DefaultModel {
		t.Errorf("model = %q, want default %q", cfg.Completion.Model, DefaultModel)
	}
	if cfg.Completion.TimeoutSeconds != DefaultTimeoutSeconds {
		t.Errorf("timeout_seconds = %d, want default %d", cfg.Completion.TimeoutSeconds, DefaultTimeoutSeconds)
	}
	if cfg.Bot.AllowFreeform {
		t.Error("allow_freeform defaults to true, want false")
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("server:\n  listen_adr: \":8080\"\n"))
	if err == nil {
		t.Fatal("misspelled field accepted, want decode error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Server.LogLevel = "verbose" },
			wantErr: "log_level",
		},
		{
			name:    "negative max turns",
			mutate:  func(c *Config) { c.Session.MaxTurns = -1 },
			wantErr: "max_turns",
		},
		{
			name:    "negative max sessions",
			mutate:  func(c *Config) { c.Session.MaxSessions = -5 },
			wantErr: "max_sessions",
		},
		{
			name:    "temperature out of range",
			mutate:  func(c *Config) { c.Completion.Temperature = 3.5 },
			wantErr: "temperature",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Completion.TimeoutSeconds = -1 },
			wantErr: "timeout_seconds",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tc.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate returned nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Server.LogLevel = "loud"
	cfg.Session.MaxTurns = -1
	cfg.Completion.Temperature = 9

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Validate returned nil, want joined error")
	}
	for _, want := range []string{"log_level", "max_turns", "temperature"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q does not mention %q", err, want)
		}
	}
}

func TestLogLevel_Level(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want string
	}{
		{LogDebug, "DEBUG"},
		{LogInfo, "INFO"},
		{LogWarn, "WARN"},
		{LogError, "ERROR"},
		{"", "INFO"},
		{"bogus", "INFO"},
	}
	for _, tc := range tests {
		if got := tc.in.Level().String(); got != tc.want {
			t.Errorf("LogLevel(%q).Level() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLoadSecrets(t *testing.T) {
	t.Run("both present", func(t *testing.T) {
		t.Setenv(EnvDiscordToken, "tok")
		t.Setenv(EnvOpenAIKey, "key")

		s, err := LoadSecrets()
		if err != nil {
			t.Fatalf("LoadSecrets: %v", err)
		}
		if s.DiscordToken != "tok" || s.OpenAIKey != "key" {
			t.Errorf("secrets = %+v", s)
		}
	})

	t.Run("missing discord token", func(t *testing.T) {
		t.Setenv(EnvDiscordToken, "")
		t.Setenv(EnvOpenAIKey, "key")

		if _, err := LoadSecrets(); err == nil {
			t.Fatal("LoadSecrets returned nil, want error")
		}
	})

	t.Run("missing api key", func(t *testing.T) {
		t.Setenv(EnvDiscordToken, "tok")
		t.Setenv(EnvOpenAIKey, "")

		if _, err := LoadSecrets(); err == nil {
			t.Fatal("LoadSecrets returned nil, want error")
		}
	})
}
