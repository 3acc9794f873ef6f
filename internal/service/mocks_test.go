package service

import (
	"context"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/openai"
	"github.com/stretchr/testify/mock"
)

// MockCompletionClient is a mock implementation of CompletionClient
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (*openai.Completion, error) {
	args := m.Called(ctx, system, user, maxTokens, temperature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.Completion), args.Error(1)
}

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockScorerRepository is a mock implementation of ScorerRepository
type MockScorerRepository struct {
	mock.Mock
}

func (m *MockScorerRepository) ListUnscored(ctx context.Context) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockScorerRepository) ListAll(ctx context.Context) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockScorerRepository) ListRandomSample(ctx context.Context, n int, onlyUnscored bool) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, n, onlyUnscored)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockScorerRepository) UpdateQualityBatch(ctx context.Context, updates []QualityUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockScorerRepository) ApplyThreshold(ctx context.Context, threshold float64) (int64, int64, error) {
	args := m.Called(ctx, threshold)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockScorerRepository) QualityStats(ctx context.Context) (*domain.QualityStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QualityStats), args.Error(1)
}

// MockEnricherRepository is a mock implementation of EnricherRepository
type MockEnricherRepository struct {
	mock.Mock
}

func (m *MockEnricherRepository) ListForEnrichment(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, minQuality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockEnricherRepository) UpdateEnrichmentBatch(ctx context.Context, updates []EnrichmentUpdate) error {
	args := m.Called(ctx, updates)
	return args.Error(0)
}

func (m *MockEnricherRepository) ClearEmbeddings(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockEnricherRepository) EmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.EmbeddingStats), args.Error(1)
}

// MockSearchRepository is a mock implementation of SearchRepository
type MockSearchRepository struct {
	mock.Mock
}

func (m *MockSearchRepository) ListSearchCandidates(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, minQuality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

func (m *MockSearchRepository) TopByQuality(ctx context.Context, limit int, minQuality float64) ([]*domain.KnowledgeItem, error) {
	args := m.Called(ctx, limit, minQuality)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeItem), args.Error(1)
}

// MockIngestRepository is a mock implementation of IngestRepository
type MockIngestRepository struct {
	mock.Mock
}

func (m *MockIngestRepository) ExistingHashes(ctx context.Context, source domain.Source) (map[string]struct{}, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]struct{}), args.Error(1)
}

func (m *MockIngestRepository) CreateBatch(ctx context.Context, items []*domain.KnowledgeItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

// MockUUIDGenerator returns a fixed sequence of IDs
type MockUUIDGenerator struct {
	callCount int
	uuids     []string
}

func NewMockUUIDGenerator(uuids ...string) *MockUUIDGenerator {
	return &MockUUIDGenerator{uuids: uuids}
}

func (m *MockUUIDGenerator) NewString() string {
	if m.callCount < len(m.uuids) {
		id := m.uuids[m.callCount]
		m.callCount++
		return id
	}
	return "default-uuid"
}
