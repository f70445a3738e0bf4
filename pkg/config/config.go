package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/harunnryd/voxstream/pkg/elevenlabs"
	"github.com/harunnryd/voxstream/pkg/errorsx"
	"github.com/harunnryd/voxstream/pkg/resilience"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VOXSTREAM_VOICE_ID.
const EnvPrefix = "VOXSTREAM"

type Config struct {
	APIKey    string           `mapstructure:"api_key"`
	BaseURL   string           `mapstructure:"base_url"`
	LogLevel  string           `mapstructure:"log_level"`
	LogFormat string           `mapstructure:"log_format"`
	Voice     elevenlabs.Voice `mapstructure:"voice"`
	Session   SessionConfig    `mapstructure:"session"`
	Retry     RetryConfig      `mapstructure:"retry"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Privacy   PrivacyConfig    `mapstructure:"privacy"`
}

type SessionConfig struct {
	// Settings holds connection options, see sessionSchema.
	Settings         map[string]any               `mapstructure:"settings"`
	VoiceSettings    *elevenlabs.VoiceSettings    `mapstructure:"voice_settings"`
	GenerationConfig *elevenlabs.GenerationConfig `mapstructure:"generation_config"`
	MaxMessageBytes  int                          `mapstructure:"max_message_bytes"`
	ReadChunkSize    int                          `mapstructure:"read_chunk_size"`
}

type RetryConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
	BackoffMS  int `mapstructure:"backoff_ms"`
}

type MetricsConfig struct {
	OTel bool `mapstructure:"otel"`
	Log  bool `mapstructure:"log"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

// Load reads the YAML file at path, applies VOXSTREAM_* environment
// overrides and expands ${VAR} references. An empty path loads defaults and
// environment only.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", elevenlabs.DefaultBaseURL)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("voice.id", "")
	v.SetDefault("voice.name", "")
	v.SetDefault("session.max_message_bytes", elevenlabs.DefaultMaxMessageBytes)
	v.SetDefault("session.read_chunk_size", 8192)
	v.SetDefault("retry.max_retries", 2)
	v.SetDefault("retry.backoff_ms", 500)
	v.SetDefault("metrics.otel", false)
	v.SetDefault("metrics.log", false)
	v.SetDefault("privacy.redact_pii", true)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errorsx.Wrapf(errorsx.ReasonConfig, "read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errorsx.Wrapf(errorsx.ReasonConfig, "unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, errorsx.Wrapf(errorsx.ReasonConfig, "validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := RequireString(c.Voice.ID, "voice.id"); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "text":
	default:
		return fmt.Errorf("log_format must be json or text, got %q", c.LogFormat)
	}
	if c.Session.MaxMessageBytes < 0 {
		return fmt.Errorf("session.max_message_bytes must not be negative")
	}
	if c.Session.ReadChunkSize < 0 {
		return fmt.Errorf("session.read_chunk_size must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if _, err := c.SessionParams(); err != nil {
		return err
	}
	return nil
}

// SessionParams decodes session.settings into typed connection options.
func (c *Config) SessionParams() (elevenlabs.SessionParams, error) {
	var p elevenlabs.SessionParams
	if err := ValidateSettings(c.Session.Settings, sessionSchema); err != nil {
		return p, fmt.Errorf("session.settings: %w", err)
	}
	if err := DecodeSettings(c.Session.Settings, &p); err != nil {
		return p, fmt.Errorf("session.settings: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("session.settings: %w", err)
	}
	return p, nil
}

// RetryPolicy returns the connect retry policy. Only rate limit errors are
// retried.
func (c *Config) RetryPolicy() resilience.RetryPolicy {
	p := resilience.NewRetryPolicy(c.Retry.MaxRetries, time.Duration(c.Retry.BackoffMS)*time.Millisecond)
	p.Retryable = resilience.IsRateLimit
	return p
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Session.Settings = expandSettings(cfg.Session.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
