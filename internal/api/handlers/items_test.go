package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/pagination"
	"github.com/cloo-solutions/mentorkb/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockItemLister is a mock implementation of ItemLister
type MockItemLister struct {
	mock.Mock
}

func (m *MockItemLister) ListPage(ctx context.Context, filter repository.ListPageFilter, cursor *pagination.Cursor, limit int) (*domain.ItemPage, error) {
	args := m.Called(ctx, filter, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ItemPage), args.Error(1)
}

func TestItemsHandler_List(t *testing.T) {
	item := &domain.KnowledgeItem{
		ID:           "item-1",
		Source:       domain.SourceMentorshipChannel,
		Content:      "long advice about pricing",
		Category:     domain.Category("pricing"),
		QualityScore: 0.8,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}

	svc := new(MockItemLister)
	svc.On("ListPage", mock.Anything, repository.ListPageFilter{}, (*pagination.Cursor)(nil), 0).
		Return(&domain.ItemPage{
			Items:      []*domain.KnowledgeItem{item},
			NextCursor: "next-token",
			HasMore:    true,
		}, nil)

	h := NewItemsHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data ItemListResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Items, 1)
	assert.Equal(t, "item-1", envelope.Data.Items[0].ID)
	assert.Equal(t, "pricing", envelope.Data.Items[0].Category)
	assert.Equal(t, "next-token", envelope.Data.Cursor)
	assert.True(t, envelope.Data.HasMore)
}

func TestItemsHandler_ListWithFilterAndCursor(t *testing.T) {
	cursorToken := pagination.EncodeCursor("item-9", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	svc := new(MockItemLister)
	svc.On("ListPage", mock.Anything,
		repository.ListPageFilter{Source: domain.SourceMentorshipChannel, Category: domain.Category("mindset")},
		mock.MatchedBy(func(c *pagination.Cursor) bool { return c != nil && c.LastID == "item-9" }),
		10).
		Return(&domain.ItemPage{Items: []*domain.KnowledgeItem{}}, nil)

	h := NewItemsHandler(svc)
	req := httptest.NewRequest(http.MethodGet,
		"/v1/items?source=mentorship_channel&category=mindset&limit=10&cursor="+cursorToken, nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestItemsHandler_ListInvalidCursor(t *testing.T) {
	h := NewItemsHandler(new(MockItemLister))
	req := httptest.NewRequest(http.MethodGet, "/v1/items?cursor=not-a-cursor", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemsHandler_ListUnknownSource(t *testing.T) {
	h := NewItemsHandler(new(MockItemLister))
	req := httptest.NewRequest(http.MethodGet, "/v1/items?source=telegram", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestItemsHandler_ListUnknownCategory(t *testing.T) {
	h := NewItemsHandler(new(MockItemLister))
	req := httptest.NewRequest(http.MethodGet, "/v1/items?category=astrology", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "invalid knowledge category")
}

func TestItemsHandler_ListServiceError(t *testing.T) {
	svc := new(MockItemLister)
	svc.On("ListPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	h := NewItemsHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
