package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v3"

	"github.com/Fullex26/noticehook/pkg/models"
)

const DefaultConfigPath = "/etc/noticehook/config.yaml"

type Config struct {
	Webhook WebhookConfig `yaml:"webhook"`
	Intake  IntakeConfig  `yaml:"intake"`
	Store   StoreConfig   `yaml:"store"`
	Log     LogConfig     `yaml:"log"`
}

// WebhookConfig is the forwarder's settings. It is treated as an immutable
// snapshot once loaded; reconfiguration replaces it wholesale.
// Delay is in seconds, at most MaxDelay. An empty MsgTypes list allows every
// type.
type WebhookConfig struct {
	Enabled       bool     `yaml:"enabled"`
	RequestMethod string   `yaml:"request_method" validate:"regexp=^(GET|POST)$"`
	URL           string   `yaml:"webhookurl" validate:"isHTTPURL"`
	Delay         float64  `yaml:"delay" validate:"min=0,max=86400"`
	MsgTypes      []string `yaml:"msgtypes" validate:"isNotificationType"`
}

// MaxDelay is the longest accepted delay in seconds (one day). Keep it in
// sync with the max on WebhookConfig.Delay.
const MaxDelay = 86400

// DelayDuration converts Delay to a duration, clamped to [0, MaxDelay].
func (w WebhookConfig) DelayDuration() time.Duration {
	if !(w.Delay > 0) {
		return 0
	}
	return time.Duration(min(w.Delay, MaxDelay) * float64(time.Second))
}

// Active reports whether a dispatch can happen at all
func (w WebhookConfig) Active() bool {
	return w.Enabled && w.URL != ""
}

// IntakeConfig controls the HTTP intake. DedupWindow is in seconds; an
// identical notice posted again within the window is acknowledged but not
// forwarded. Zero disables deduplication.
type IntakeConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Listen      string `yaml:"listen"`
	DedupWindow int    `yaml:"dedup_window" validate:"min=0"`
}

type StoreConfig struct {
	Path          string `yaml:"path" validate:"nonzero"`
	RetentionDays int    `yaml:"retention_days" validate:"min=1"`
	PruneSchedule string `yaml:"prune_schedule" validate:"isCron"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"regexp=^(debug|info|warn|error)$"`
}

// Load reads and parses the config file, expanding env vars
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sane defaults
func DefaultConfig() *Config {
	return &Config{
		Webhook: WebhookConfig{
			Enabled:       false,
			RequestMethod: "GET",
			Delay:         0,
			MsgTypes:      []string{},
		},
		Intake: IntakeConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8787",
		},
		Store: StoreConfig{
			Path:          "/var/lib/noticehook/deliveries.db",
			RetentionDays: 30,
			PruneSchedule: "@daily",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) normalize() {
	c.Webhook.RequestMethod = strings.ToUpper(strings.TrimSpace(c.Webhook.RequestMethod))
	if c.Webhook.RequestMethod == "" {
		c.Webhook.RequestMethod = "GET"
	}
	c.Webhook.URL = strings.TrimSpace(c.Webhook.URL)
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func init() {
	//nolint - the only error is on nil name
	validator.SetValidationFunc("isHTTPURL", isHTTPURL)
	//nolint - the only error is on nil name
	validator.SetValidationFunc("isNotificationType", isNotificationType)
	//nolint - the only error is on nil name
	validator.SetValidationFunc("isCron", isCron)
}

// Validate checks the config for errors
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return err
	}
	if c.Intake.Enabled && c.Intake.Listen == "" {
		return errors.New("intake listen address is required when intake is enabled")
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// isHTTPURL accepts an empty string; an unset URL just disables forwarding.
func isHTTPURL(v interface{}, param string) error {
	s, ok := v.(string)
	if !ok {
		return validator.ErrUnsupported
	}
	if s == "" {
		return nil
	}
	u, err := url.ParseRequestURI(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) url")
	}
	return nil
}

func isNotificationType(v interface{}, param string) error {
	names, ok := v.([]string)
	if !ok {
		return validator.ErrUnsupported
	}
	var bad []string
	for _, n := range names {
		if !models.NotificationType(n).Valid() {
			bad = append(bad, n)
		}
	}
	if len(bad) != 0 {
		return fmt.Errorf("unknown message types: %s", strings.Join(bad, ", "))
	}
	return nil
}

func isCron(v interface{}, param string) error {
	s, ok := v.(string)
	if !ok {
		return validator.ErrUnsupported
	}
	if _, err := cron.ParseStandard(s); err != nil {
		return err
	}
	return nil
}
