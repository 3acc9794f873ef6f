package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProcessor is a mock implementation of Processor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) ProcessBatch(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockBatchEnricher is a mock implementation of BatchEnricher
type MockBatchEnricher struct {
	mock.Mock
}

func (m *MockBatchEnricher) EnrichBatch(ctx context.Context, opts service.EnrichOptions) (*service.BatchSummary, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.BatchSummary), args.Error(1)
}

func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("ProcessBatch", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// let a few ticks fire, then stop
	time.Sleep(150 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessBatch", mock.Anything)
}

func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("ProcessBatch", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}

func TestWorker_ProcessorErrorDoesNotStopPolling(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("ProcessBatch", mock.Anything).Return(errors.New("transient failure"))

	worker := NewWorker(mockProcessor, 30*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(120 * time.Millisecond)
	worker.Stop()
	wg.Wait()

	// polling survived multiple failing ticks
	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestEnrichmentProcessor_ProcessBatch(t *testing.T) {
	enricher := new(MockBatchEnricher)
	enricher.On("EnrichBatch", mock.Anything, service.EnrichOptions{MinQuality: 0.3, Limit: 10}).
		Return(&service.BatchSummary{Selected: 3, Processed: 3}, nil)

	processor := NewEnrichmentProcessor(enricher, 0.3, 10)
	require.NoError(t, processor.ProcessBatch(context.Background()))
	enricher.AssertExpectations(t)
}

func TestEnrichmentProcessor_DefaultTickLimit(t *testing.T) {
	enricher := new(MockBatchEnricher)
	enricher.On("EnrichBatch", mock.Anything, service.EnrichOptions{Limit: DefaultTickLimit}).
		Return(&service.BatchSummary{}, nil)

	processor := NewEnrichmentProcessor(enricher, 0, 0)
	require.NoError(t, processor.ProcessBatch(context.Background()))
	enricher.AssertExpectations(t)
}

func TestEnrichmentProcessor_Error(t *testing.T) {
	enricher := new(MockBatchEnricher)
	enricher.On("EnrichBatch", mock.Anything, mock.Anything).
		Return(nil, errors.New("db down"))

	processor := NewEnrichmentProcessor(enricher, 0.3, 10)
	err := processor.ProcessBatch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to enrich batch")
}
