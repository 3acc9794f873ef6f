package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/telemetry"
)

const (
	// DefaultSearchLimit is the number of items returned when none is given
	DefaultSearchLimit = 5
	// DefaultMinQuality is the retrieval quality floor when none is given
	DefaultMinQuality = 0.3
)

// SearchRepository is the store access the search engine needs.
type SearchRepository interface {
	ListSearchCandidates(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error)
	TopByQuality(ctx context.Context, limit int, minQuality float64) ([]*domain.KnowledgeItem, error)
}

// SearchService ranks active, embedded knowledge items by cosine similarity
// against a query vector. It is stateless and safe for concurrent use.
//
// The ranking loads the whole candidate set and scores every vector, an
// O(n) linear scan per query. Fine for a corpus in the low thousands; a
// vector index would be needed beyond that.
type SearchService struct {
	repo     SearchRepository
	embedder EmbeddingClient
}

// NewSearchService creates a new SearchService instance.
func NewSearchService(repo SearchRepository, embedder EmbeddingClient) *SearchService {
	return &SearchService{repo: repo, embedder: embedder}
}

// Search returns the limit most similar items above the quality floor,
// most similar first.
//
// Degraded modes, none of which are errors: with no query embedding or an
// empty candidate set, items are ordered by quality score descending; with
// a zero-norm query, the first limit candidates are returned in store
// order. Candidates with malformed or zero-norm vectors are skipped.
func (s *SearchService) Search(ctx context.Context, queryEmbedding []float32, limit int, minQuality float64) ([]*domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if minQuality < 0 {
		minQuality = DefaultMinQuality
	}

	candidates, err := s.repo.ListSearchCandidates(ctx, minQuality)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load search candidates: %w", err)
	}

	if len(candidates) == 0 || len(queryEmbedding) == 0 {
		items, err := s.repo.TopByQuality(ctx, limit, minQuality)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("failed to load quality fallback: %w", err)
		}
		return items, nil
	}

	queryNorm := vectorNorm(queryEmbedding)
	if queryNorm == 0 {
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		return candidates, nil
	}

	type scored struct {
		similarity float64
		item       *domain.KnowledgeItem
	}

	ranked := make([]scored, 0, len(candidates))
	for _, candidate := range candidates {
		similarity, ok := cosineSimilarity(queryEmbedding, queryNorm, candidate.Embedding)
		if !ok {
			// degenerate or mismatched stored vector; drop the candidate,
			// never the query
			continue
		}
		ranked = append(ranked, scored{similarity: similarity, item: candidate})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].similarity > ranked[j].similarity
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	items := make([]*domain.KnowledgeItem, len(ranked))
	for i, r := range ranked {
		items[i] = r.item
	}
	return items, nil
}

// SearchText embeds the query text and delegates to Search. This is the
// collaborator-facing entry point for the chat/audit response generators.
// Without an embedding client it degrades to the quality-ranked fallback.
func (s *SearchService) SearchText(ctx context.Context, query string, limit int, minQuality float64) ([]*domain.KnowledgeItem, error) {
	if s.embedder == nil {
		return s.Search(ctx, nil, limit, minQuality)
	}

	queryEmbedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.Search(ctx, queryEmbedding, limit, minQuality)
}

// cosineSimilarity computes dot(query, candidate) / (|query| * |candidate|).
// The query norm is precomputed by the caller. Returns false for vectors
// of mismatched length or zero norm.
func cosineSimilarity(query []float32, queryNorm float64, candidate []float32) (float64, bool) {
	if len(candidate) == 0 || len(candidate) != len(query) {
		return 0, false
	}

	var dot, candidateSq float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
		candidateSq += float64(candidate[i]) * float64(candidate[i])
	}

	candidateNorm := math.Sqrt(candidateSq)
	if candidateNorm == 0 {
		return 0, false
	}

	return dot / (queryNorm * candidateNorm), true
}

func vectorNorm(v []float32) float64 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	return math.Sqrt(sq)
}
