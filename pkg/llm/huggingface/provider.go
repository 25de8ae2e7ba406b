// Package huggingface implements the generation provider backed by the
// HuggingFace Inference API.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/providentia/pkg/llm"
	"github.com/kart-io/providentia/pkg/utils/httpclient"
)

// ProviderName is the registry identifier for this provider.
const ProviderName = "huggingface"

func init() {
	llm.RegisterGenerationProvider(ProviderName, NewProvider)
}

// stopSequences terminates generation early when the remote model supports it.
var stopSequences = []string{"</s>", "[/INST]", "Human:", "Assistant:", "<|endoftext|>"}

// Config holds HuggingFace provider configuration.
type Config struct {
	// BaseURL is the Inference API base address.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// APIKey is the HuggingFace API token.
	APIKey string `json:"api_key" mapstructure:"api_key"`

	// Model is the model repo ID. Full hub or inference URLs are accepted and
	// reduced to the repo ID.
	Model string `json:"model" mapstructure:"model"`

	// Timeout is the hard per-request deadline.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api-inference.huggingface.co",
		Timeout: 30 * time.Second,
	}
}

// Provider implements llm.GenerationProvider.
type Provider struct {
	config *Config
	client *httpclient.Client
}

// NewProvider creates a HuggingFace provider from a config map.
func NewProvider(configMap map[string]any) (llm.GenerationProvider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := configMap["model"].(string); ok && v != "" {
		cfg.Model = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("huggingface: model is required")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig creates a HuggingFace provider from structured config.
func NewProviderWithConfig(cfg *Config) *Provider {
	cfg.Model = normalizeModelID(cfg.Model)
	return &Provider{
		config: cfg,
		// Single attempt: the orchestrator owns retry and fallback policy.
		client: httpclient.NewClient(cfg.Timeout, 0),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// generateRequest is the Text Generation API request body.
type generateRequest struct {
	Inputs     string          `json:"inputs"`
	Parameters *generateParams `json:"parameters"`
}

type generateParams struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    float64  `json:"temperature"`
	TopP           float64  `json:"top_p"`
	ReturnFullText bool     `json:"return_full_text"`
	Stop           []string `json:"stop,omitempty"`
}

// generateObject covers both the single-object success shape and the error
// shape of the Inference API.
type generateObject struct {
	GeneratedText *string `json:"generated_text"`
	Error         *string `json:"error"`
}

// Generate sends the prompt to the Inference API and post-processes the
// completion. Per-call model/credential overrides build an independent
// one-shot request; shared client state is never mutated.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.GenerateOption) (*llm.GenerationResult, error) {
	o := llm.NewGenerateOptions(opts...)

	model := p.config.Model
	if o.Model != "" {
		model = normalizeModelID(o.Model)
	}
	apiKey := p.config.APIKey
	if o.APIKey != "" {
		apiKey = o.APIKey
	}

	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: &generateParams{
			MaxNewTokens:   o.MaxNewTokens,
			Temperature:    o.Temperature,
			TopP:           o.TopP,
			ReturnFullText: false,
			Stop:           stopSequences,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", llm.ErrUpstream, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/models/%s", p.config.BaseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", llm.ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := p.client.DoRequest(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", llm.ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrNetwork, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, model)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", llm.ErrNetwork, err)
	}

	generated, err := decodeGeneratedText(respBody)
	if err != nil {
		return nil, err
	}

	if generated == "" {
		// Empty content is a success outcome with low-quality content, not a
		// hard failure.
		return &llm.GenerationResult{
			RawText:     "",
			CleanedText: llm.EmptyResponsePlaceholder,
		}, nil
	}

	return &llm.GenerationResult{
		RawText:     generated,
		CleanedText: llm.Clean(generated),
	}, nil
}

// decodeGeneratedText handles the three known response shapes, in order:
// a sequence of result objects, a single result object, and a single error
// object.
func decodeGeneratedText(body []byte) (string, error) {
	var objects []generateObject
	if err := json.Unmarshal(body, &objects); err == nil {
		if len(objects) == 0 {
			return "", nil
		}
		if objects[0].GeneratedText != nil {
			return *objects[0].GeneratedText, nil
		}
		return "", nil
	}

	var object generateObject
	if err := json.Unmarshal(body, &object); err != nil {
		return "", fmt.Errorf("%w: malformed response payload: %v", llm.ErrUpstream, err)
	}

	if object.Error != nil {
		return "", upstreamError(*object.Error)
	}
	if object.GeneratedText != nil {
		return *object.GeneratedText, nil
	}
	return "", nil
}

// upstreamError maps error-object messages onto the failure taxonomy.
func upstreamError(message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "currently loading"):
		return fmt.Errorf("%w: %s", llm.ErrModelLoading, message)
	case strings.Contains(lower, "rate limited"):
		return fmt.Errorf("%w: %s", llm.ErrRateLimited, message)
	default:
		return fmt.Errorf("%w: %s", llm.ErrUpstream, message)
	}
}

// statusError maps non-2xx HTTP statuses onto the failure taxonomy.
func statusError(status int, model string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: check the configured API token", llm.ErrUnauthorized)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d", llm.ErrRateLimited, status)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: http %d", llm.ErrModelLoading, status)
	case http.StatusNotFound:
		return fmt.Errorf("%w: model %q", llm.ErrModelNotFound, model)
	default:
		return fmt.Errorf("%w: http %d", llm.ErrUpstream, status)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// normalizeModelID reduces full hub or inference URLs to the bare model repo
// ID accepted by the Inference API.
func normalizeModelID(model string) string {
	model = strings.TrimPrefix(model, "https://api-inference.huggingface.co/models/")
	model = strings.TrimPrefix(model, "https://huggingface.co/")
	return model
}
