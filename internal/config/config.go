// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (AWS_MCP_* overrides)
//  2. Config file (~/.awsgate/config.yaml or ./config.yaml)
//  3. Built-in defaults
//
// Validation is fail-fast with sentinel errors so callers can use
// errors.Is. The security policy file named here is loaded separately by
// the security package and is allowed to be missing or broken; the settings
// in this package are not.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidTimeout indicates the execution timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidMaxOutput indicates the output size limit is out of range.
	ErrInvalidMaxOutput = errors.New("invalid max output size")

	// ErrInvalidRateLimit indicates the rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidSecurityMode indicates an unknown security mode.
	ErrInvalidSecurityMode = errors.New("invalid security mode")
)

const (
	// DefaultTimeoutSeconds bounds command execution when the client does
	// not pass a timeout.
	DefaultTimeoutSeconds = 30

	// MaxTimeoutSeconds is the upper bound accepted from configuration or
	// per-request overrides.
	MaxTimeoutSeconds = 600

	// DefaultMaxOutputSize is the stdout bound in characters.
	DefaultMaxOutputSize = 10000

	// DefaultMaxCallsPerSecond gates AWS CLI invocation frequency.
	DefaultMaxCallsPerSecond = 10
)

// Config stores the gateway configuration.
type Config struct {
	// TimeoutSeconds is the default command execution timeout.
	TimeoutSeconds int `mapstructure:"timeout"`

	// MaxOutputSize is the maximum command output size in characters.
	MaxOutputSize int `mapstructure:"max_output"`

	// MaxCallsPerSecond limits AWS CLI invocations per second. 0 disables
	// the limiter.
	MaxCallsPerSecond int `mapstructure:"rate_limit"`

	// SecurityMode is "strict" (denials block) or "permissive" (denials
	// are logged and allowed).
	SecurityMode string `mapstructure:"security_mode"`

	// SecurityPolicyFile optionally points at a YAML policy file that
	// extends the built-in rule tables.
	SecurityPolicyFile string `mapstructure:"security_policy_file"`

	// AWSProfile and AWSRegion describe the environment the CLI runs in;
	// they are surfaced through the aws://config/* resources.
	AWSProfile string `mapstructure:"aws_profile"`
	AWSRegion  string `mapstructure:"aws_region"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Timeout returns the default execution timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlogLevel maps the configured level name to a slog level, defaulting to
// info on unknown names.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load loads configuration with priority: env > config file > defaults.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".awsgate"))
	}
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// No config file is the common case; defaults and env apply.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("timeout", DefaultTimeoutSeconds)
	viper.SetDefault("max_output", DefaultMaxOutputSize)
	viper.SetDefault("rate_limit", DefaultMaxCallsPerSecond)
	viper.SetDefault("security_mode", "strict")
	viper.SetDefault("security_policy_file", "")
	viper.SetDefault("aws_profile", "default")
	viper.SetDefault("aws_region", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds the environment overrides. The AWS_MCP_* names
// match the original server's environment surface; AWS_PROFILE and
// AWS_REGION are the standard AWS CLI variables.
func bindEnvVariables() {
	_ = viper.BindEnv("timeout", "AWS_MCP_TIMEOUT")
	_ = viper.BindEnv("max_output", "AWS_MCP_MAX_OUTPUT")
	_ = viper.BindEnv("rate_limit", "AWS_MCP_RATE_LIMIT")
	_ = viper.BindEnv("security_mode", "AWS_MCP_SECURITY_MODE")
	_ = viper.BindEnv("security_policy_file", "AWS_MCP_SECURITY_CONFIG")
	_ = viper.BindEnv("aws_profile", "AWS_PROFILE")
	_ = viper.BindEnv("aws_region", "AWS_REGION")
	_ = viper.BindEnv("log_level", "AWS_MCP_LOG_LEVEL")
}

// Validate checks all settings and returns the first violation.
func (c *Config) Validate() error {
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("%w: %d (must be 1-%d seconds)", ErrInvalidTimeout, c.TimeoutSeconds, MaxTimeoutSeconds)
	}
	if c.MaxOutputSize < 1 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidMaxOutput, c.MaxOutputSize)
	}
	if c.MaxCallsPerSecond < 0 {
		return fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidRateLimit, c.MaxCallsPerSecond)
	}
	if c.SecurityMode != "strict" && c.SecurityMode != "permissive" {
		return fmt.Errorf("%w: %q (must be strict or permissive)", ErrInvalidSecurityMode, c.SecurityMode)
	}
	return nil
}
