package biz

import (
	"context"
	"errors"
	"fmt"

	"github.com/kart-io/logger"
	"github.com/kart-io/providentia/internal/chatbot/store"
	"github.com/kart-io/providentia/pkg/llm"
)

// ErrRetrieval marks failures anywhere in the embed-and-search path.
var ErrRetrieval = errors.New("retrieval failed")

// DefaultTopK is the number of passages requested per query.
const DefaultTopK = 8

// RetrieverConfig contains retrieval-specific configuration.
type RetrieverConfig struct {
	Collection string
	TopK       int
}

// Retriever turns a question into its most relevant knowledge-base passages.
type Retriever struct {
	embedder llm.EmbeddingProvider
	vectors  store.VectorStore
	cfg      *RetrieverConfig
}

// NewRetriever creates a new Retriever.
func NewRetriever(embedder llm.EmbeddingProvider, vectors store.VectorStore, cfg *RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
	}
}

// Retrieve embeds the question and searches the knowledge base. Passages come
// back in the engine's relevance order. An empty result is not an error; it
// means the caller should fall back to an ungrounded prompt.
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]*store.Passage, error) {
	embedding, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: embed question: %v", ErrRetrieval, err)
	}

	passages, err := r.vectors.Search(ctx, r.cfg.Collection, embedding, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	if len(passages) == 0 {
		logger.Warnw("no relevant context found", "question", truncateForLog(question))
	}
	return passages, nil
}

// truncateForLog keeps log lines readable for long questions.
func truncateForLog(s string) string {
	const max = 50
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
