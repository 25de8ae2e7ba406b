package huggingface_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/providentia/pkg/llm"
	"github.com/kart-io/providentia/pkg/llm/huggingface"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *huggingface.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return huggingface.NewProviderWithConfig(&huggingface.Config{
		BaseURL: server.URL,
		APIKey:  "hf_test_token",
		Model:   "monis-codes/epfo-chatbot-mistral-7b-4bit",
		Timeout: 5 * time.Second,
	})
}

func TestGenerateResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "array of results", body: `[{"generated_text": "EPF is a retirement savings scheme."}]`},
		{name: "single object", body: `{"generated_text": "EPF is a retirement savings scheme."}`},
	}

	var results []*llm.GenerationResult
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			result, err := p.Generate(context.Background(), "What is EPF?")
			require.NoError(t, err)
			assert.Equal(t, "EPF is a retirement savings scheme.", result.RawText)
			results = append(results, result)
		})
	}

	require.Len(t, results, 2)
	assert.Equal(t, results[0].CleanedText, results[1].CleanedText)
}

func TestGenerateRequestBody(t *testing.T) {
	var captured struct {
		Inputs     string `json:"inputs"`
		Parameters struct {
			MaxNewTokens   int      `json:"max_new_tokens"`
			Temperature    float64  `json:"temperature"`
			TopP           float64  `json:"top_p"`
			ReturnFullText bool     `json:"return_full_text"`
			Stop           []string `json:"stop"`
		} `json:"parameters"`
	}
	var authHeader, path string

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))
		w.Write([]byte(`[{"generated_text": "ok."}]`))
	})

	_, err := p.Generate(context.Background(), "What is EPF?")
	require.NoError(t, err)

	assert.Equal(t, "Bearer hf_test_token", authHeader)
	assert.Equal(t, "/models/monis-codes/epfo-chatbot-mistral-7b-4bit", path)
	assert.Equal(t, "What is EPF?", captured.Inputs)
	assert.Equal(t, llm.DefaultMaxNewTokens, captured.Parameters.MaxNewTokens)
	assert.InDelta(t, llm.DefaultTemperature, captured.Parameters.Temperature, 0.001)
	assert.InDelta(t, llm.DefaultTopP, captured.Parameters.TopP, 0.001)
	assert.False(t, captured.Parameters.ReturnFullText)
	assert.Contains(t, captured.Parameters.Stop, "</s>")
	assert.Contains(t, captured.Parameters.Stop, "<|endoftext|>")
}

func TestGeneratePerCallOverride(t *testing.T) {
	var authHeader, path string

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		path = r.URL.Path
		w.Write([]byte(`[{"generated_text": "ok."}]`))
	})

	_, err := p.Generate(context.Background(), "ping",
		llm.WithModel("other-org/other-model"),
		llm.WithAPIKey("hf_override"),
	)
	require.NoError(t, err)

	assert.Equal(t, "Bearer hf_override", authHeader)
	assert.Equal(t, "/models/other-org/other-model", path)

	// The next call must use the configured model and key again.
	_, err = p.Generate(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "Bearer hf_test_token", authHeader)
	assert.Equal(t, "/models/monis-codes/epfo-chatbot-mistral-7b-4bit", path)
}

func TestGenerateStatusErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: llm.ErrUnauthorized},
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: llm.ErrRateLimited},
		{name: "model loading", status: http.StatusServiceUnavailable, wantErr: llm.ErrModelLoading},
		{name: "model not found", status: http.StatusNotFound, wantErr: llm.ErrModelNotFound},
		{name: "other upstream", status: http.StatusBadGateway, wantErr: llm.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := p.Generate(context.Background(), "ping")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateErrorObject(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{
			name:    "model loading message",
			body:    `{"error": "Model monis-codes/epfo-chatbot-mistral-7b-4bit is currently loading"}`,
			wantErr: llm.ErrModelLoading,
		},
		{
			name:    "rate limited message",
			body:    `{"error": "You are rate limited, slow down"}`,
			wantErr: llm.ErrRateLimited,
		},
		{
			name:    "generic upstream message",
			body:    `{"error": "internal inference failure"}`,
			wantErr: llm.ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := p.Generate(context.Background(), "ping")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerateEmptyText(t *testing.T) {
	bodies := []string{`[]`, `[{"generated_text": ""}]`, `{"generated_text": "   "}`}

	for _, body := range bodies {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		result, err := p.Generate(context.Background(), "ping")
		require.NoError(t, err, "body %s", body)
		if body == `{"generated_text": "   "}` {
			// Whitespace cleans down to nothing but is still a raw completion.
			assert.Equal(t, "", result.CleanedText)
		} else {
			assert.Equal(t, llm.EmptyResponsePlaceholder, result.CleanedText)
		}
	}
}

func TestGenerateTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(`[{"generated_text": "too late."}]`))
	}))
	t.Cleanup(server.Close)

	p := huggingface.NewProviderWithConfig(&huggingface.Config{
		BaseURL: server.URL,
		Model:   "monis-codes/epfo-chatbot-mistral-7b-4bit",
		Timeout: 50 * time.Millisecond,
	})

	_, err := p.Generate(context.Background(), "ping")
	assert.ErrorIs(t, err, llm.ErrTimeout)
}

func TestGenerateMalformedPayload(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, err := p.Generate(context.Background(), "ping")
	assert.ErrorIs(t, err, llm.ErrUpstream)
}

func TestNewProviderNormalizesModelURL(t *testing.T) {
	p, err := huggingface.NewProvider(map[string]any{
		"model":   "https://huggingface.co/monis-codes/epfo-chatbot-mistral-7b-4bit",
		"api_key": "hf_test",
	})
	require.NoError(t, err)
	assert.Equal(t, "huggingface", p.Name())
}

func TestNewProviderRequiresModel(t *testing.T) {
	_, err := huggingface.NewProvider(map[string]any{"api_key": "hf_test"})
	assert.Error(t, err)
}
