// Package store provides persistence for chat interactions and similarity
// search against the pre-built knowledge base.
package store

import (
	"context"
	"errors"

	"github.com/kart-io/providentia/internal/model"
)

// ErrPersistence marks connectivity or constraint failures in the interaction
// store. The orchestrator swallows it; nothing downstream of a chat turn
// depends on persistence succeeding.
var ErrPersistence = errors.New("store: persistence failed")

// Factory defines the factory interface for creating stores.
type Factory interface {
	Interactions() InteractionStore
	Ping(ctx context.Context) error
	Close() error
}

// InteractionStore defines the interaction storage interface. Records are
// append-only; concurrent Creates must not corrupt one another.
type InteractionStore interface {
	// Create appends one interaction with a server-assigned UTC timestamp.
	Create(ctx context.Context, interaction *model.Interaction) error

	// List returns a page of the user's interactions, newest first, plus the
	// user's total count. No records is an empty page, not an error.
	List(ctx context.Context, userID string, limit, offset int) (*model.InteractionList, error)

	// Stats returns aggregate statistics, scoped to one user when userID is
	// non-empty and global otherwise.
	Stats(ctx context.Context, userID string) (*model.InteractionStats, error)
}

// Passage is a retrieved unit of indexed text with a relevance score and the
// engine's opaque metadata.
type Passage struct {
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// VectorStore defines similarity search over the indexed corpus.
type VectorStore interface {
	// Search returns the topK nearest passages with metadata, in the engine's
	// relevance order. Zero matches is an empty slice, not an error.
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*Passage, error)

	// Count returns the number of indexed entities in the collection.
	Count(ctx context.Context, collection string) (int64, error)
}
