package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/api"
	"github.com/cloo-solutions/mentorkb/internal/domain"
)

// SearchProvider is the retrieval capability behind the search endpoint.
type SearchProvider interface {
	SearchText(ctx context.Context, query string, limit int, minQuality float64) ([]*domain.KnowledgeItem, error)
}

type SearchHandler struct {
	svc SearchProvider
	// minQuality is the configured floor used when a request sets none;
	// negative means let the service apply its own default
	minQuality float64
}

func NewSearchHandler(svc SearchProvider, minQuality float64) *SearchHandler {
	return &SearchHandler{svc: svc, minQuality: minQuality}
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// MinQuality omitted means the service default floor
	MinQuality *float64 `json:"min_quality,omitempty"`
}

type SearchItemResponse struct {
	ID           string  `json:"id"`
	Source       string  `json:"source"`
	Category     string  `json:"category,omitempty"`
	Content      string  `json:"content"`
	Summary      string  `json:"summary,omitempty"`
	QualityScore float64 `json:"quality_score"`
	OriginalDate string  `json:"original_date,omitempty"`
}

type SearchResponse struct {
	Results []*SearchItemResponse `json:"results"`
}

// Search handles POST /v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		api.HandleError(w, domain.ErrMissingRequiredField)
		return
	}

	minQuality := h.minQuality
	if req.MinQuality != nil {
		minQuality = *req.MinQuality
	}

	items, err := h.svc.SearchText(r.Context(), req.Query, req.Limit, minQuality)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchItemResponse, len(items))
	for i, item := range items {
		results[i] = toSearchItemResponse(item)
	}
	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}

func toSearchItemResponse(item *domain.KnowledgeItem) *SearchItemResponse {
	resp := &SearchItemResponse{
		ID:           item.ID,
		Source:       string(item.Source),
		Category:     string(item.Category),
		Content:      item.Content,
		Summary:      item.ContentSummary,
		QualityScore: item.QualityScore,
	}
	if item.OriginalDate != nil {
		resp.OriginalDate = item.OriginalDate.UTC().Format(time.RFC3339)
	}
	return resp
}
