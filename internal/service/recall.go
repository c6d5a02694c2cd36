package service

import (
	"context"
	"fmt"

	"github.com/timmy/memflow/internal/logger"
	"github.com/timmy/memflow/internal/repository"
)

const defaultRecallLimit = 10

// RecallService answers semantic queries against indexed facts.
type RecallService struct {
	embedding *EmbeddingService
	index     *repository.MemoryIndex
}

func NewRecallService(embedding *EmbeddingService, index *repository.MemoryIndex) *RecallService {
	return &RecallService{embedding: embedding, index: index}
}

// RecallQuery describes one recall request. MemoryID, Namespace and Category
// are optional filters; empty strings mean unfiltered.
type RecallQuery struct {
	Query     string
	MemoryID  string
	Namespace string
	Category  string
	Limit     int
}

// Recall embeds the query text and searches the index.
func (s *RecallService) Recall(ctx context.Context, q RecallQuery) ([]repository.SearchResult, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query text is required")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	vector, err := s.embedding.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	filters := &repository.SearchFilters{}
	if q.MemoryID != "" {
		filters.MemoryID = &q.MemoryID
	}
	if q.Namespace != "" {
		filters.Namespace = &q.Namespace
	}
	if q.Category != "" {
		filters.Category = &q.Category
	}

	results, err := s.index.Search(ctx, vector, limit, filters)
	if err != nil {
		return nil, fmt.Errorf("recall search failed: %w", err)
	}

	logger.CtxDebug(ctx, "Recall returned %d results for query of length %d", len(results), len(q.Query))
	return results, nil
}
