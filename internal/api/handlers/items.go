package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/mentorkb/internal/api"
	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/pagination"
	"github.com/cloo-solutions/mentorkb/internal/repository"
)

// ItemLister is the browse capability behind the items endpoint.
type ItemLister interface {
	ListPage(ctx context.Context, filter repository.ListPageFilter, cursor *pagination.Cursor, limit int) (*domain.ItemPage, error)
}

type ItemsHandler struct {
	svc ItemLister
}

func NewItemsHandler(svc ItemLister) *ItemsHandler {
	return &ItemsHandler{svc: svc}
}

type ItemListResponse struct {
	Items   []*SearchItemResponse `json:"items"`
	Cursor  string                `json:"cursor,omitempty"`
	HasMore bool                  `json:"has_more"`
}

// List handles GET /v1/items
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repository.ListPageFilter{
		Source:   domain.Source(q.Get("source")),
		Category: domain.Category(q.Get("category")),
	}
	if filter.Source != "" && !domain.IsValidSource(filter.Source) {
		api.HandleError(w, domain.ErrInvalidSource)
		return
	}
	if filter.Category != "" && !domain.IsValidCategory(filter.Category) {
		api.HandleError(w, domain.ErrInvalidCategory)
		return
	}

	cursor, err := pagination.DecodeCursor(q.Get("cursor"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	page, err := h.svc.ListPage(r.Context(), filter, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*SearchItemResponse, len(page.Items))
	for i, item := range page.Items {
		items[i] = toSearchItemResponse(item)
	}
	api.Success(w, http.StatusOK, ItemListResponse{
		Items:   items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	})
}
