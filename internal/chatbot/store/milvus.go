package store

import (
	"context"
	"fmt"

	"github.com/kart-io/providentia/pkg/component/milvus"
)

// passageOutputFields are the metadata fields fetched alongside each hit.
// "text" carries the passage body; the rest is provenance.
var passageOutputFields = []string{"text", "source", "page"}

type milvusVectorStore struct {
	client *milvus.Client
}

// NewMilvusVectorStore adapts a Milvus client to the VectorStore interface.
func NewMilvusVectorStore(client *milvus.Client) VectorStore {
	return &milvusVectorStore{client: client}
}

// Search runs a similarity search and maps hits to passages in relevance
// order. Hits without a text payload are dropped.
func (s *milvusVectorStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*Passage, error) {
	hits, err := s.client.Search(ctx, collection, embedding, topK, passageOutputFields)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	passages := make([]*Passage, 0, len(hits))
	for _, hit := range hits {
		text, _ := hit.Metadata["text"].(string)
		if text == "" {
			continue
		}
		passages = append(passages, &Passage{
			Text:     text,
			Score:    hit.Score,
			Metadata: hit.Metadata,
		})
	}
	return passages, nil
}

// Count returns the number of indexed entities in the collection.
func (s *milvusVectorStore) Count(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}
