package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/mentorkb/internal/api"
	"github.com/cloo-solutions/mentorkb/internal/domain"
)

// StatsProvider exposes the store's scoring and enrichment state.
type StatsProvider interface {
	QualityStats(ctx context.Context) (*domain.QualityStats, error)
	EmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error)
}

type StatsHandler struct {
	svc StatsProvider
}

func NewStatsHandler(svc StatsProvider) *StatsHandler {
	return &StatsHandler{svc: svc}
}

type StatsResponse struct {
	Total         int64            `json:"total"`
	Active        int64            `json:"active"`
	Scored        int64            `json:"scored"`
	MeanScore     float64          `json:"mean_score"`
	ScoreBuckets  map[string]int64 `json:"score_buckets"`
	WithEmbedding int64            `json:"with_embedding"`
	WithCategory  int64            `json:"with_category"`
	WithSummary   int64            `json:"with_summary"`
	PendingEmbed  int64            `json:"pending_embedding"`
}

// Stats handles GET /v1/stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	quality, err := h.svc.QualityStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	embedding, err := h.svc.EmbeddingStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		Total:         quality.Total,
		Active:        quality.Active,
		Scored:        quality.Scored,
		MeanScore:     quality.MeanScore,
		ScoreBuckets:  quality.Buckets,
		WithEmbedding: embedding.WithEmbedding,
		WithCategory:  embedding.WithCategory,
		WithSummary:   embedding.WithSummary,
		PendingEmbed:  embedding.Remaining(),
	})
}
