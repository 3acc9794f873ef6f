package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStatsProvider is a mock implementation of StatsProvider
type MockStatsProvider struct {
	mock.Mock
}

func (m *MockStatsProvider) QualityStats(ctx context.Context) (*domain.QualityStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QualityStats), args.Error(1)
}

func (m *MockStatsProvider) EmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingStats), args.Error(1)
}

func TestStatsHandler_Stats(t *testing.T) {
	svc := new(MockStatsProvider)
	svc.On("QualityStats", mock.Anything).Return(&domain.QualityStats{
		Total:     100,
		Active:    80,
		Scored:    90,
		MeanScore: 0.62,
		Buckets:   map[string]int64{"0.6-0.8": 40},
	}, nil)
	svc.On("EmbeddingStats", mock.Anything).Return(&domain.EmbeddingStats{
		Total:         100,
		Active:        80,
		WithEmbedding: 70,
		WithCategory:  60,
		WithSummary:   50,
	}, nil)

	handler := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	got := envelope.Data
	assert.Equal(t, int64(100), got.Total)
	assert.Equal(t, int64(80), got.Active)
	assert.Equal(t, int64(90), got.Scored)
	assert.Equal(t, 0.62, got.MeanScore)
	assert.Equal(t, int64(40), got.ScoreBuckets["0.6-0.8"])
	assert.Equal(t, int64(70), got.WithEmbedding)
	assert.Equal(t, int64(10), got.PendingEmbed)
}

func TestStatsHandler_Error(t *testing.T) {
	svc := new(MockStatsProvider)
	svc.On("QualityStats", mock.Anything).Return(nil, errors.New("db down"))

	handler := NewStatsHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/v1/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
