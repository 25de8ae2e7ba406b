// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/kart-io/providentia/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions defines configuration for one LLM provider endpoint.
// The same struct is used for the embedding provider and the generation
// provider; each gets its own flag prefix.
type ProviderOptions struct {
	// Provider is the provider name (huggingface, gemini).
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL is the API base address.
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// APIKey is the API credential.
	APIKey string `json:"api-key" mapstructure:"api-key"`

	// Model is the model identifier.
	Model string `json:"model" mapstructure:"model"`

	// Timeout is the per-request deadline.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewEmbeddingOptions creates defaults for the embedding provider.
func NewEmbeddingOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "gemini",
		BaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		Model:    "text-embedding-004",
		Timeout:  30 * time.Second,
	}
}

// NewGenerationOptions creates defaults for the generation provider.
func NewGenerationOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider: "huggingface",
		BaseURL:  "https://api-inference.huggingface.co",
		Model:    "monis-codes/epfo-chatbot-mistral-7b-4bit",
		Timeout:  30 * time.Second,
	}
}

// ToConfigMap converts the options into a config map for the provider factory.
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url": o.BaseURL,
		"api_key":  o.APIKey,
		"model":    o.Model,
		"timeout":  o.Timeout,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.Provider, options.Join(prefixes...)+"provider", o.Provider, "LLM provider (huggingface, gemini).")
	fs.StringVar(&o.BaseURL, options.Join(prefixes...)+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.APIKey, options.Join(prefixes...)+"api-key", o.APIKey, "LLM API key.")
	fs.StringVar(&o.Model, options.Join(prefixes...)+"model", o.Model, "LLM model name.")
	fs.DurationVar(&o.Timeout, options.Join(prefixes...)+"timeout", o.Timeout, "LLM request timeout.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("base-url is required"))
	}
	if o.Model == "" {
		errs = append(errs, fmt.Errorf("model is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	return errs
}
