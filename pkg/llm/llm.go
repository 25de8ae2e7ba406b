// Package llm provides a unified abstraction over remote LLM endpoints:
// embedding providers used for retrieval and generation providers used for
// answering. Providers register themselves via init and are constructed by
// name from a config map.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// EmbeddingProvider turns text into dense vectors.
type EmbeddingProvider interface {
	// Embed generates embeddings for multiple texts using the document intent.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single search query using the
	// query intent, which may differ from the intent used at indexing time.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Name returns the provider name.
	Name() string
}

// GenerationProvider produces a completion for a fully assembled prompt.
type GenerationProvider interface {
	// Generate sends the prompt to the remote endpoint with the resolved
	// decoding parameters. A single attempt is made; callers own retry policy.
	Generate(ctx context.Context, prompt string, opts ...GenerateOption) (*GenerationResult, error)

	// Name returns the provider name.
	Name() string
}

// GenerationResult carries the raw completion and its cleaned form.
// CleanedText is what callers show and persist.
type GenerationResult struct {
	RawText     string `json:"raw_text"`
	CleanedText string `json:"cleaned_text"`
}

// Default decoding parameters.
const (
	DefaultMaxNewTokens = 512
	DefaultTemperature  = 0.7
	DefaultTopP         = 0.95
)

// EmptyResponsePlaceholder is returned as a successful low-content answer
// when the model generates no text.
const EmptyResponsePlaceholder = "I apologize, but I couldn't generate a response at this time."

// GenerateOptions holds per-call decoding parameters and overrides.
type GenerateOptions struct {
	// MaxNewTokens bounds the generated length.
	MaxNewTokens int

	// Temperature is the sampling randomness in [0, 1].
	Temperature float64

	// TopP is the nucleus-sampling mass.
	TopP float64

	// Model, when non-empty, overrides the configured model for this call.
	Model string

	// APIKey, when non-empty, overrides the configured credential for this call.
	APIKey string
}

// NewGenerateOptions resolves the process-wide defaults and applies per-call
// overrides.
func NewGenerateOptions(opts ...GenerateOption) *GenerateOptions {
	o := &GenerateOptions{
		MaxNewTokens: DefaultMaxNewTokens,
		Temperature:  DefaultTemperature,
		TopP:         DefaultTopP,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GenerateOption mutates GenerateOptions.
type GenerateOption func(*GenerateOptions)

// WithMaxNewTokens overrides the generated-length bound.
func WithMaxNewTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		if n > 0 {
			o.MaxNewTokens = n
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		if t >= 0 && t <= 1 {
			o.Temperature = t
		}
	}
}

// WithTopP overrides the nucleus-sampling mass.
func WithTopP(p float64) GenerateOption {
	return func(o *GenerateOptions) {
		if p > 0 && p <= 1 {
			o.TopP = p
		}
	}
}

// WithModel overrides the target model for one call. The provider builds an
// independent one-shot request; shared client state is not mutated.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) { o.Model = model }
}

// WithAPIKey overrides the credential for one call.
func WithAPIKey(key string) GenerateOption {
	return func(o *GenerateOptions) { o.APIKey = key }
}

// EmbeddingProviderFactory constructs an embedding provider from a config map.
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// GenerationProviderFactory constructs a generation provider from a config map.
type GenerationProviderFactory func(config map[string]any) (GenerationProvider, error)

var registry = &providerRegistry{
	embeddingProviders:  make(map[string]EmbeddingProviderFactory),
	generationProviders: make(map[string]GenerationProviderFactory),
}

type providerRegistry struct {
	mu                  sync.RWMutex
	embeddingProviders  map[string]EmbeddingProviderFactory
	generationProviders map[string]GenerationProviderFactory
}

// RegisterEmbeddingProvider registers an embedding provider factory.
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embeddingProviders[name] = factory
}

// RegisterGenerationProvider registers a generation provider factory.
func RegisterGenerationProvider(name string, factory GenerationProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.generationProviders[name] = factory
}

// NewEmbeddingProvider creates an embedding provider instance by name.
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embeddingProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}

// NewGenerationProvider creates a generation provider instance by name.
func NewGenerationProvider(name string, config map[string]any) (GenerationProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.generationProviders[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown generation provider: %s", name)
	}
	return factory(config)
}
