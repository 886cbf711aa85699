package llm

import (
	"fmt"
	"os"
	"time"
)

// Provider names.
const (
	ProviderNone       = "none"
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderMock       = "mock"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Config selects and configures the LLM provider. Keys are bound from the
// application config under "llm".
type Config struct {
	// Provider is one of the Provider* names. Empty or "none" disables
	// narrative generation.
	Provider string `mapstructure:"provider"`
	// Model overrides the provider's default model.
	Model   string `mapstructure:"model"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`

	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	InitialWait time.Duration `mapstructure:"initial_wait"`
	MaxWait     time.Duration `mapstructure:"max_wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// DefaultConfig returns a disabled provider with default retry settings.
func DefaultConfig() Config {
	return Config{
		Provider: ProviderNone,
		Timeout:  30 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
	}
}

var defaultModels = map[string]string{
	ProviderAnthropic:  "claude-haiku",
	ProviderOpenAI:     "gpt-4o-mini",
	ProviderOpenRouter: "google/gemini-2.0-flash-exp",
	ProviderGemini:     "gemini-flash",
}

// envKeys are the vendor API key variables, in discovery order.
var envKeys = []struct {
	provider string
	env      string
}{
	{ProviderGemini, "GEMINI_API_KEY"},
	{ProviderOpenAI, "OPENAI_API_KEY"},
	{ProviderAnthropic, "ANTHROPIC_API_KEY"},
	{ProviderOpenRouter, "OPENROUTER_API_KEY"},
}

// Resolve fills in what the user left out: with no provider set, the first
// vendor API key found in the environment selects one; a selected provider
// without a key takes its vendor variable; the model falls back to the
// provider default.
func (c Config) Resolve(getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	if c.Provider == "" || c.Provider == ProviderNone {
		if c.APIKey != "" {
			return c
		}
		for _, k := range envKeys {
			if v := getenv(k.env); v != "" {
				c.Provider, c.APIKey = k.provider, v
				break
			}
		}
	}
	if c.APIKey == "" {
		for _, k := range envKeys {
			if k.provider == c.Provider {
				c.APIKey = getenv(k.env)
			}
		}
	}
	if c.Model == "" {
		c.Model = defaultModels[c.Provider]
	}
	if c.Provider == ProviderOpenRouter && c.BaseURL == "" {
		c.BaseURL = defaultOpenRouterBaseURL
	}
	return c
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != ProviderNone
}

// Validate checks that the selected provider can be constructed.
func (c Config) Validate() error {
	switch c.Provider {
	case "", ProviderNone, ProviderMock:
		return nil
	case ProviderAnthropic, ProviderOpenAI, ProviderOpenRouter, ProviderGemini:
		if c.APIKey == "" {
			return fmt.Errorf("llm.api_key is required for the %s provider", c.Provider)
		}
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
}
