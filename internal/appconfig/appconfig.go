// Package appconfig loads the scoring configuration: which judge family to
// use, where it lives, which model grades, and how many repetitions to run.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the scoring configuration read when no path is given.
	DefaultConfigPath = "scoring_config.yaml"

	APILocal     = "local"
	APIAnthropic = "anthropic"

	defaultRepetitions    = 3
	defaultMaxTokens      = 4096
	defaultRequestTimeout = 600 * time.Second
	defaultAnthropicKey   = "ANTHROPIC_API_KEY"
	localAPIKey           = "not-needed"
)

var (
	ErrConfigNotFound = errors.New("scoring configuration file not found")
	ErrInvalidConfig  = errors.New("invalid scoring configuration")
)

// Config is the validated scoring configuration. Every recognised key is
// enumerated here; unknown keys in the file are ignored.
type Config struct {
	API            string  `mapstructure:"api"`
	Endpoint       string  `mapstructure:"endpoint"`
	Model          string  `mapstructure:"model"`
	Repetitions    int     `mapstructure:"repetitions"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout"`
	APIKeyEnv      string  `mapstructure:"api_key_env"`

	// APIKey is resolved once at load time and never looked up again.
	APIKey     string `mapstructure:"-"`
	ConfigPath string `mapstructure:"-"`
}

// RequestTimeout returns the timeout for a single judge call.
func (c Config) RequestTimeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and validates the scoring configuration at path.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("could not decode config file %q: %w", path, err)
	}
	cfg.ConfigPath = path

	if err := cfg.Normalize(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ResolveAPIKey()
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("repetitions", defaultRepetitions)
	v.SetDefault("max_tokens", defaultMaxTokens)
	v.SetDefault("temperature", 0.0)
	v.SetDefault("timeout", int(defaultRequestTimeout.Seconds()))
	v.SetDefault("api_key_env", defaultAnthropicKey)
}

// Normalize trims string fields and checks required keys. It is exported so
// command-line overrides can be re-validated after they are applied.
func (c *Config) Normalize() error {
	c.API = strings.ToLower(strings.TrimSpace(c.API))
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	c.Model = strings.TrimSpace(c.Model)
	c.APIKeyEnv = strings.TrimSpace(c.APIKeyEnv)
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = defaultAnthropicKey
	}

	switch c.API {
	case APILocal:
		if c.Endpoint == "" {
			return fmt.Errorf("%w: 'endpoint' is required when api is %q", ErrInvalidConfig, APILocal)
		}
	case APIAnthropic:
	case "":
		return fmt.Errorf("%w: missing required key 'api'", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unsupported scoring api %q (supported: %s, %s)", ErrInvalidConfig, c.API, APILocal, APIAnthropic)
	}

	if c.Model == "" {
		return fmt.Errorf("%w: missing required key 'model'", ErrInvalidConfig)
	}
	if c.Repetitions < 0 {
		return fmt.Errorf("%w: repetitions must not be negative, got %d", ErrInvalidConfig, c.Repetitions)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	return nil
}

// ResolveAPIKey reads the judge credential from the environment. Local
// endpoints do not authenticate.
func (c *Config) ResolveAPIKey() {
	if c.API == APILocal {
		c.APIKey = localAPIKey
		return
	}
	c.APIKey = os.Getenv(c.APIKeyEnv)
}
