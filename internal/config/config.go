// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvAPIKey carries the model-service credential. Its absence is a fatal
// startup error, never a silent no-op.
const EnvAPIKey = "ANTHROPIC_API_KEY"

const (
	envPrefix = "ORGANIZE"

	defaultModel       = "claude-sonnet-4-20250514"
	defaultBaseURL     = "https://api.anthropic.com"
	defaultMaxSteps    = 12
	defaultMaxRetries  = 3
	defaultHTTPTimeout = 60 * time.Second
	defaultLogLevel    = "info"
	defaultLogFormat   = string(LogFormatText)
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Config is immutable for the duration of a run; components receive it at
// construction rather than reading the environment ad hoc.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxSteps    int
	MaxRetries  int
	HTTPTimeout time.Duration
	LogLevel    slog.Level
	LogFormat   LogFormat
}

// Load reads configuration from ORGANIZE_* environment variables, with the
// API key taken from ANTHROPIC_API_KEY.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", EnvAPIKey); err != nil {
		return Config{}, fmt.Errorf("bind %s: %w", EnvAPIKey, err)
	}

	v.SetDefault("model", defaultModel)
	v.SetDefault("base_url", defaultBaseURL)
	v.SetDefault("max_steps", defaultMaxSteps)
	v.SetDefault("max_retries", defaultMaxRetries)
	v.SetDefault("http_timeout", defaultHTTPTimeout.String())
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_format", defaultLogFormat)

	level, err := ParseLogLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, err
	}
	format, err := ParseLogFormat(v.GetString("log_format"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		APIKey:      strings.TrimSpace(v.GetString("api_key")),
		Model:       strings.TrimSpace(v.GetString("model")),
		BaseURL:     strings.TrimSpace(v.GetString("base_url")),
		MaxSteps:    v.GetInt("max_steps"),
		MaxRetries:  v.GetInt("max_retries"),
		HTTPTimeout: v.GetDuration("http_timeout"),
		LogLevel:    level,
		LogFormat:   format,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("validate config: %s is not set", EnvAPIKey)
	}
	if c.Model == "" {
		return errors.New("validate config: ORGANIZE_MODEL must not be empty")
	}
	if c.BaseURL == "" {
		return errors.New("validate config: ORGANIZE_BASE_URL must not be empty")
	}
	if c.MaxSteps <= 0 {
		return errors.New("validate config: ORGANIZE_MAX_STEPS must be > 0")
	}
	if c.MaxRetries < 1 {
		return errors.New("validate config: ORGANIZE_MAX_RETRIES must be >= 1")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("validate config: ORGANIZE_HTTP_TIMEOUT must be > 0")
	}
	return nil
}

func ParseLogLevel(input string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf(
			"parse ORGANIZE_LOG_LEVEL: unsupported value %q (allowed: debug, info, warn, error)",
			input,
		)
	}
}

func ParseLogFormat(input string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf(
			"parse ORGANIZE_LOG_FORMAT: unsupported value %q (allowed: %q, %q)",
			input,
			LogFormatText,
			LogFormatJSON,
		)
	}
}
