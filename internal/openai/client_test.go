package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockEmbeddingAPI is a mock for the embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockCompletionAPI is a mock for the completion API
type MockCompletionAPI struct {
	mock.Mock
}

func (m *MockCompletionAPI) CreateCompletion(ctx context.Context, system, user string, maxTokens int, temperature float32) (*Completion, error) {
	args := m.Called(ctx, system, user, maxTokens, temperature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Completion), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	text := "A post about positioning yourself as a specialist."
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	embedding, err := client.GenerateEmbedding(context.Background(), "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	apiErr := errors.New("API rate limit exceeded")

	mockAPI.On("CreateEmbeddings", ctx, "text").Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(ctx, "text")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, apiErr)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := &Client{embeddings: mockAPI, dimensions: DefaultEmbeddingDimensions}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "text").Return([]float32{1, 2, 3}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "text")

	assert.Nil(t, embedding)
	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_Complete_Success(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{completions: mockAPI}

	ctx := context.Background()
	expected := &Completion{
		Text:             `{"score": 0.8, "reason": "specific advice with numbers"}`,
		PromptTokens:     320,
		CompletionTokens: 18,
		Model:            "gpt-4o-mini",
	}

	mockAPI.On("CreateCompletion", ctx, "system prompt", "post content", 50, float32(0.1)).Return(expected, nil)

	completion, err := client.Complete(ctx, "system prompt", "post content", 50, 0.1)

	assert.NoError(t, err)
	assert.Equal(t, expected, completion)
	mockAPI.AssertExpectations(t)
}

func TestClient_Complete_EmptyUserMessage(t *testing.T) {
	client := NewClient("")

	completion, err := client.Complete(context.Background(), "system", "", 50, 0)

	assert.Nil(t, completion)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_Complete_APIError(t *testing.T) {
	mockAPI := new(MockCompletionAPI)
	client := &Client{completions: mockAPI}

	ctx := context.Background()
	apiErr := errors.New("upstream timeout")

	mockAPI.On("CreateCompletion", ctx, "system", "user", 50, float32(0)).Return(nil, apiErr)

	completion, err := client.Complete(ctx, "system", "user", 50, 0)

	assert.Nil(t, completion)
	assert.ErrorIs(t, err, apiErr)
}
