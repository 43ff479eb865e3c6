package testutil

import (
	"github.com/mockwire/mockwire/internal/config"
)

// ConfigBuilder provides a fluent interface for building test configurations
// This eliminates repetitive config setup across test files
type ConfigBuilder struct {
	config *config.Config
}

// NewConfigBuilder creates a new config builder with sensible defaults
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		config: &config.Config{
			Method:      "GET",
			Headers:     []string{},
			Passthrough: true,
		},
	}
}

func (b *ConfigBuilder) WithMethod(method string) *ConfigBuilder {
	b.config.Method = method
	return b
}

func (b *ConfigBuilder) WithHeaders(headers ...string) *ConfigBuilder {
	b.config.Headers = headers
	return b
}

func (b *ConfigBuilder) WithData(data string) *ConfigBuilder {
	b.config.Data = data
	return b
}

func (b *ConfigBuilder) WithBase(base string) *ConfigBuilder {
	b.config.Base = base
	return b
}

func (b *ConfigBuilder) WithRules(path string) *ConfigBuilder {
	b.config.RulesFile = path
	b.config.Passthrough = false
	return b
}

func (b *ConfigBuilder) WithOpenAPI(url string) *ConfigBuilder {
	b.config.OpenAPIURL = url
	b.config.Passthrough = false
	return b
}

func (b *ConfigBuilder) WithRecord(path string) *ConfigBuilder {
	b.config.RecordDB = path
	return b
}

// Build returns the assembled config
func (b *ConfigBuilder) Build() *config.Config {
	return b.config
}
