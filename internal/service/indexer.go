package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/timmy/memflow/internal/domain"
	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/repository"
)

// Indexer mirrors extracted facts into the vector index so they can be
// recalled semantically. The index is a secondary view: the batch record
// store stays authoritative, and callers treat indexing errors as warnings.
type Indexer struct {
	embedding *EmbeddingService
	index     *repository.MemoryIndex
}

func NewIndexer(embedding *EmbeddingService, index *repository.MemoryIndex) *Indexer {
	return &Indexer{embedding: embedding, index: index}
}

// IndexFacts embeds all fact contents in one batch and upserts them.
func (i *Indexer) IndexFacts(ctx context.Context, memoryID, strategyID string, facts []domain.ExtractedFact) error {
	if len(facts) == 0 {
		return nil
	}

	texts := make([]string, 0, len(facts))
	for _, fact := range facts {
		texts = append(texts, fact.Content)
	}

	vectors, err := i.embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed facts: %w", err)
	}

	entries := make([]repository.IndexEntry, 0, len(facts))
	for idx, fact := range facts {
		entries = append(entries, repository.IndexEntry{
			ID:     uuid.New().String(),
			Vector: vectors[idx],
			Payload: repository.FactPayload{
				MemoryID:   memoryID,
				Namespace:  fact.Namespace,
				Category:   string(fact.Category),
				Confidence: fact.Confidence,
				Content:    fact.Content,
				StrategyID: strategyID,
			},
		})
	}

	if err := i.index.UpsertBatch(ctx, entries); err != nil {
		return fmt.Errorf("failed to upsert index entries: %w", err)
	}

	logger.CtxDebug(ctx, "Indexed %d facts for memory %s", len(entries), memoryID)
	return nil
}
