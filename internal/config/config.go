package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/mockwire/mockwire/internal/errors"
)

// Config holds all application configuration
type Config struct {
	// Request settings
	Method         string
	Headers        []string
	Data           string
	Base           string
	Timeout        time.Duration
	Verbose        bool
	IncludeHeaders bool

	// Interception settings
	RulesFile   string
	OpenAPIURL  string
	RecordDB    string
	Passthrough bool

	// Logging
	LogFile string
}

// contextKey is a custom type for context keys
type contextKey string

const configKey contextKey = "config"

// WithConfig adds config to context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) (*Config, bool) {
	cfg, ok := ctx.Value(configKey).(*Config)
	return cfg, ok
}

// NewConfig creates a Config with default values
func NewConfig() *Config {
	return &Config{
		Method: "GET",
	}
}

// LoadFromFlags creates a Config from command line flags, falling back
// to MOCKWIRE_* environment variables for the interception sources.
func LoadFromFlags(flags *pflag.FlagSet) (*Config, error) {
	config := NewConfig()

	var err error

	if config.Method, err = flags.GetString("request"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get request flag")
	}
	config.Method = strings.ToUpper(strings.TrimSpace(config.Method))
	if config.Method == "" {
		config.Method = "GET"
	}

	if config.Headers, err = flags.GetStringSlice("header"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get header flag")
	}

	if config.Data, err = flags.GetString("data"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get data flag")
	}

	if config.Base, err = flags.GetString("base"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get base flag")
	}

	if config.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get timeout flag")
	}

	if config.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get verbose flag")
	}

	if config.IncludeHeaders, err = flags.GetBool("include"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get include flag")
	}

	if config.RulesFile, err = flags.GetString("rules"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get rules flag")
	}

	if config.OpenAPIURL, err = flags.GetString("openapi"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get openapi flag")
	}

	if config.RecordDB, err = flags.GetString("record"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get record flag")
	}

	if config.Passthrough, err = flags.GetBool("passthrough"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get passthrough flag")
	}

	if config.LogFile, err = flags.GetString("log-file"); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to get log-file flag")
	}

	// Environment fallbacks for values not set via flags
	if config.Base == "" {
		config.Base = os.Getenv("MOCKWIRE_BASE")
	}
	if config.RulesFile == "" {
		config.RulesFile = os.Getenv("MOCKWIRE_RULES")
	}
	if config.OpenAPIURL == "" {
		config.OpenAPIURL = os.Getenv("MOCKWIRE_OPENAPI")
	}
	if config.RecordDB == "" {
		config.RecordDB = os.Getenv("MOCKWIRE_RECORD")
	}

	return config, nil
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	validMethods := []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

	methodValid := false
	for _, valid := range validMethods {
		if c.Method == valid {
			methodValid = true
			break
		}
	}
	if !methodValid {
		return errors.New(errors.ErrorTypeValidation, "invalid HTTP method").
			WithContext("method", c.Method).
			WithContext("valid_methods", validMethods)
	}

	if c.RulesFile == "" && c.OpenAPIURL == "" && !c.Passthrough {
		return errors.New(errors.ErrorTypeValidation, "no mock source configured").
			WithContext("suggestion", "provide --rules or --openapi, or use --passthrough to send for real")
	}

	if c.Timeout < 0 {
		return errors.New(errors.ErrorTypeValidation, "timeout must not be negative").
			WithContext("timeout", c.Timeout.String())
	}

	return nil
}
