package config

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalValidConfig = `
webhook:
  enabled: true
  request_method: "POST"
  webhookurl: "http://example.com/hook"
  delay: 1.5
  msgtypes: ["PluginMessage", "Download"]
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Webhook.Enabled {
		t.Error("Webhook.Enabled should default to false")
	}
	if cfg.Webhook.RequestMethod != "GET" {
		t.Errorf("Webhook.RequestMethod = %q, want %q", cfg.Webhook.RequestMethod, "GET")
	}
	if cfg.Webhook.Delay != 0 {
		t.Errorf("Webhook.Delay = %v, want 0", cfg.Webhook.Delay)
	}
	if len(cfg.Webhook.MsgTypes) != 0 {
		t.Errorf("Webhook.MsgTypes = %v, want empty", cfg.Webhook.MsgTypes)
	}
	if cfg.Store.RetentionDays != 30 {
		t.Errorf("Store.RetentionDays = %d, want 30", cfg.Store.RetentionDays)
	}
	if cfg.Store.PruneSchedule != "@daily" {
		t.Errorf("Store.PruneSchedule = %q, want %q", cfg.Store.PruneSchedule, "@daily")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfigFile(t, minimalValidConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Webhook.Enabled {
		t.Error("webhook should be enabled")
	}
	if cfg.Webhook.URL != "http://example.com/hook" {
		t.Errorf("URL = %q", cfg.Webhook.URL)
	}
	if cfg.Webhook.Delay != 1.5 {
		t.Errorf("Delay = %v, want 1.5", cfg.Webhook.Delay)
	}
	if len(cfg.Webhook.MsgTypes) != 2 || cfg.Webhook.MsgTypes[0] != "PluginMessage" {
		t.Errorf("MsgTypes = %v", cfg.Webhook.MsgTypes)
	}
	// untouched sections keep their defaults
	if cfg.Intake.Listen != "127.0.0.1:8787" {
		t.Errorf("Intake.Listen = %q", cfg.Intake.Listen)
	}
}

func TestLoad_MethodNormalized(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"post"`, "POST"},
		{`" Get "`, "GET"},
		{`""`, "GET"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			path := writeConfigFile(t, "webhook:\n  request_method: "+tt.in+"\n")
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Webhook.RequestMethod != tt.want {
				t.Errorf("RequestMethod = %q, want %q", cfg.Webhook.RequestMethod, tt.want)
			}
		})
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("NOTICEHOOK_TEST_URL", "https://hooks.example.com/abc?key=secret")

	yaml := `
webhook:
  enabled: true
  webhookurl: "${NOTICEHOOK_TEST_URL}"
`
	path := writeConfigFile(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Webhook.URL != "https://hooks.example.com/abc?key=secret" {
		t.Errorf("URL = %q", cfg.Webhook.URL)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "reading config")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "{{{{not: valid yaml at all")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "parsing config")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	yaml := `
webhook:
  request_method: "PUT"
`
	path := writeConfigFile(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "invalid config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"disabled without url", func(c *Config) { c.Webhook.Enabled = true }, ""},
		{"negative delay", func(c *Config) { c.Webhook.Delay = -1 }, "Delay"},
		{"delay over a day", func(c *Config) { c.Webhook.Delay = 1e12 }, "Delay"},
		{"delay of a day", func(c *Config) { c.Webhook.Delay = MaxDelay }, ""},
		{"bad method", func(c *Config) { c.Webhook.RequestMethod = "DELETE" }, "RequestMethod"},
		{"relative url", func(c *Config) { c.Webhook.URL = "/hook" }, "URL"},
		{"ftp url", func(c *Config) { c.Webhook.URL = "ftp://example.com/x" }, "URL"},
		{"unknown msgtype", func(c *Config) { c.Webhook.MsgTypes = []string{"PluginMessage", "Nope"} }, "Nope"},
		{"bad prune schedule", func(c *Config) { c.Store.PruneSchedule = "every tuesday" }, "PruneSchedule"},
		{"zero retention", func(c *Config) { c.Store.RetentionDays = 0 }, "RetentionDays"},
		{"empty store path", func(c *Config) { c.Store.Path = "" }, "Path"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "Level"},
		{"negative dedup window", func(c *Config) { c.Intake.DedupWindow = -5 }, "DedupWindow"},
		{"intake without listen", func(c *Config) { c.Intake.Listen = "" }, "listen"},
		{"intake disabled without listen", func(c *Config) {
			c.Intake.Enabled = false
			c.Intake.Listen = ""
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.set(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to mention %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWebhookConfig_DelayDuration(t *testing.T) {
	tests := []struct {
		delay float64
		want  time.Duration
	}{
		{0, 0},
		{-3, 0},
		{1.5, 1500 * time.Millisecond},
		{MaxDelay, MaxDelay * time.Second},
		{1e12, MaxDelay * time.Second},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		got := WebhookConfig{Delay: tt.delay}.DelayDuration()
		if got != tt.want {
			t.Errorf("DelayDuration(%v) = %v, want %v", tt.delay, got, tt.want)
		}
	}
}

func TestWebhookConfig_Active(t *testing.T) {
	tests := []struct {
		name string
		cfg  WebhookConfig
		want bool
	}{
		{"disabled", WebhookConfig{URL: "http://x"}, false},
		{"no url", WebhookConfig{Enabled: true}, false},
		{"ready", WebhookConfig{Enabled: true, URL: "http://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Active(); got != tt.want {
				t.Errorf("Active() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := (LogConfig{Level: tt.level}).SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
