package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newActiveItem(id, content string) *domain.KnowledgeItem {
	return domain.NewKnowledgeItem(id, domain.SourceMentorshipChannel, content, nil, time.Now().UTC())
}

func TestEnrichItem_FullEnrichment(t *testing.T) {
	item := newActiveItem("item-1", "how to price consulting work")

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, item.Content).Return([]float32{0.1, 0.2}, nil)

	llm := new(MockCompletionClient)
	llm.On("Complete", mock.Anything, categorizePrompt, item.Content, categorizeMaxTokens, float32(0)).
		Return(completionOf("pricing"), nil)
	llm.On("Complete", mock.Anything, summarizePrompt, item.Content, summarizeMaxTokens, float32(0)).
		Return(completionOf("  Advice on pricing consulting engagements.  "), nil)

	enricher := NewEnricher(embedder, llm, new(MockEnricherRepository))
	update, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{})

	require.NoError(t, err)
	assert.Equal(t, "item-1", update.ItemID)
	assert.Equal(t, []float32{0.1, 0.2}, update.Embedding)
	assert.Equal(t, domain.CategoryPricing, update.Category)
	assert.Equal(t, "Advice on pricing consulting engagements.", update.Summary)
}

func TestEnrichItem_OnlyEmbeddingsSkipsLLM(t *testing.T) {
	item := newActiveItem("item-1", "some content")

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)

	llm := new(MockCompletionClient) // no expectations; any call fails the test

	enricher := NewEnricher(embedder, llm, new(MockEnricherRepository))
	update, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{OnlyEmbeddings: true})

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, update.Embedding)
	assert.Empty(t, update.Category)
	assert.Empty(t, update.Summary)
	llm.AssertExpectations(t)
}

func TestEnrichItem_NeverOverwritesExistingFields(t *testing.T) {
	item := newActiveItem("item-1", "some content")
	item.Category = domain.CategoryCareer
	item.ContentSummary = "already summarized"

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)

	llm := new(MockCompletionClient) // must not be consulted at all

	enricher := NewEnricher(embedder, llm, new(MockEnricherRepository))
	update, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{})

	require.NoError(t, err)
	assert.Empty(t, update.Category)
	assert.Empty(t, update.Summary)
	llm.AssertExpectations(t)
}

func TestEnrichItem_InvalidCategoryFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{"unknown label", "philosophy"},
		{"empty answer", "   "},
		{"multi-word with invalid head", "the category is pricing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newActiveItem("item-1", "some content")

			embedder := new(MockEmbeddingClient)
			embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)

			llm := new(MockCompletionClient)
			llm.On("Complete", mock.Anything, categorizePrompt, mock.Anything, mock.Anything, mock.Anything).
				Return(completionOf(tt.answer), nil)
			llm.On("Complete", mock.Anything, summarizePrompt, mock.Anything, mock.Anything, mock.Anything).
				Return(completionOf("summary"), nil)

			enricher := NewEnricher(embedder, llm, new(MockEnricherRepository))
			update, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{})

			require.NoError(t, err)
			assert.Equal(t, domain.DefaultCategory, update.Category)
		})
	}
}

func TestEnrichItem_CategoryAnswerIsNormalized(t *testing.T) {
	item := newActiveItem("item-1", "some content")

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)

	llm := new(MockCompletionClient)
	llm.On("Complete", mock.Anything, categorizePrompt, mock.Anything, mock.Anything, mock.Anything).
		Return(completionOf("  MINDSET\n"), nil)
	llm.On("Complete", mock.Anything, summarizePrompt, mock.Anything, mock.Anything, mock.Anything).
		Return(completionOf("summary"), nil)

	enricher := NewEnricher(embedder, llm, new(MockEnricherRepository))
	update, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{})

	require.NoError(t, err)
	assert.Equal(t, domain.CategoryMindset, update.Category)
}

func TestEnrichItem_EmbeddingFailureAbortsItem(t *testing.T) {
	item := newActiveItem("item-1", "some content")

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))

	enricher := NewEnricher(embedder, new(MockCompletionClient), new(MockEnricherRepository))
	_, err := enricher.EnrichItem(context.Background(), item, EnrichOptions{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate embedding")
}

func TestEnrichBatch_SoftFailureSkipsUpdate(t *testing.T) {
	items := []*domain.KnowledgeItem{
		newActiveItem("item-1", "first"),
		newActiveItem("item-2", "second"),
	}

	repo := new(MockEnricherRepository)
	repo.On("ListForEnrichment", mock.Anything, 0.0).Return(items, nil)

	var updated []EnrichmentUpdate
	repo.On("UpdateEnrichmentBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			updated = append(updated, args.Get(1).([]EnrichmentUpdate)...)
		}).
		Return(nil)

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, "first").Return(nil, errors.New("timeout"))
	embedder.On("GenerateEmbedding", mock.Anything, "second").Return([]float32{0.3}, nil)

	enricher := NewEnricher(embedder, new(MockCompletionClient), repo)
	summary, err := enricher.EnrichBatch(context.Background(), EnrichOptions{OnlyEmbeddings: true, Delay: -1})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Errored)

	require.Len(t, updated, 1)
	assert.Equal(t, "item-2", updated[0].ItemID)
}

func TestEnrichBatch_KeepsEmbeddingWhenCategorizeFails(t *testing.T) {
	items := []*domain.KnowledgeItem{newActiveItem("item-1", "pricing advice")}

	repo := new(MockEnricherRepository)
	repo.On("ListForEnrichment", mock.Anything, 0.0).Return(items, nil)

	var updated []EnrichmentUpdate
	repo.On("UpdateEnrichmentBatch", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			updated = append(updated, args.Get(1).([]EnrichmentUpdate)...)
		}).
		Return(nil)

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, "pricing advice").Return([]float32{1, 0}, nil)

	llm := new(MockCompletionClient)
	llm.On("Complete", mock.Anything, categorizePrompt, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("completion endpoint down"))

	enricher := NewEnricher(embedder, llm, repo)
	summary, err := enricher.EnrichBatch(context.Background(), EnrichOptions{Delay: -1})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errored)
	assert.Equal(t, 0, summary.Processed)

	// the paid-for embedding is flushed anyway; category and summary stay empty
	require.Len(t, updated, 1)
	assert.Equal(t, "item-1", updated[0].ItemID)
	assert.Equal(t, []float32{1, 0}, updated[0].Embedding)
	assert.Empty(t, updated[0].Category)
	assert.Empty(t, updated[0].Summary)
}

func TestEnrichBatch_LimitCapsRun(t *testing.T) {
	items := []*domain.KnowledgeItem{
		newActiveItem("item-1", "first"),
		newActiveItem("item-2", "second"),
		newActiveItem("item-3", "third"),
	}

	repo := new(MockEnricherRepository)
	repo.On("ListForEnrichment", mock.Anything, 0.0).Return(items, nil)
	repo.On("UpdateEnrichmentBatch", mock.Anything, mock.Anything).Return(nil)

	embedder := new(MockEmbeddingClient)
	embedder.On("GenerateEmbedding", mock.Anything, "first").Return([]float32{0.1}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, "second").Return([]float32{0.2}, nil)

	enricher := NewEnricher(embedder, new(MockCompletionClient), repo)
	summary, err := enricher.EnrichBatch(context.Background(), EnrichOptions{OnlyEmbeddings: true, Limit: 2, Delay: -1})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Selected)
	assert.Equal(t, 2, summary.Processed)
	embedder.AssertNotCalled(t, "GenerateEmbedding", mock.Anything, "third")
}

func TestEnrichBatch_EmptySelection(t *testing.T) {
	repo := new(MockEnricherRepository)
	repo.On("ListForEnrichment", mock.Anything, 0.3).Return([]*domain.KnowledgeItem{}, nil)

	enricher := NewEnricher(new(MockEmbeddingClient), new(MockCompletionClient), repo)
	summary, err := enricher.EnrichBatch(context.Background(), EnrichOptions{MinQuality: 0.3, Delay: -1})

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Selected)
	repo.AssertNotCalled(t, "UpdateEnrichmentBatch", mock.Anything, mock.Anything)
}

func TestClearAllEmbeddings(t *testing.T) {
	repo := new(MockEnricherRepository)
	repo.On("ClearEmbeddings", mock.Anything).Return(int64(42), nil)

	enricher := NewEnricher(new(MockEmbeddingClient), new(MockCompletionClient), repo)
	cleared, err := enricher.ClearAllEmbeddings(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), cleared)
}

func TestEnricherStats(t *testing.T) {
	repo := new(MockEnricherRepository)
	repo.On("EmbeddingStats", mock.Anything).Return(&domain.EmbeddingStats{
		Total:         100,
		Active:        80,
		WithEmbedding: 60,
	}, nil)

	enricher := NewEnricher(new(MockEmbeddingClient), new(MockCompletionClient), repo)
	stats, err := enricher.Stats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(20), stats.Remaining())
}
