package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/mentorkb/internal/service"
)

// DefaultTickLimit caps how many items one worker tick enriches, so a big
// ingestion backlog drains gradually instead of hogging the API quota.
const DefaultTickLimit = 20

// BatchEnricher is the enrichment capability the worker drives.
type BatchEnricher interface {
	EnrichBatch(ctx context.Context, opts service.EnrichOptions) (*service.BatchSummary, error)
}

// EnrichmentProcessor picks up items that are missing embeddings and
// enriches a bounded batch per tick.
type EnrichmentProcessor struct {
	enricher   BatchEnricher
	minQuality float64
	tickLimit  int
}

// NewEnrichmentProcessor creates a new EnrichmentProcessor instance
func NewEnrichmentProcessor(enricher BatchEnricher, minQuality float64, tickLimit int) *EnrichmentProcessor {
	if tickLimit <= 0 {
		tickLimit = DefaultTickLimit
	}
	return &EnrichmentProcessor{
		enricher:   enricher,
		minQuality: minQuality,
		tickLimit:  tickLimit,
	}
}

// ProcessBatch implements the Processor interface
func (p *EnrichmentProcessor) ProcessBatch(ctx context.Context) error {
	summary, err := p.enricher.EnrichBatch(ctx, service.EnrichOptions{
		MinQuality: p.minQuality,
		Limit:      p.tickLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to enrich batch: %w", err)
	}

	if summary.Selected > 0 {
		log.Printf("enrichment tick: %d processed, %d errored", summary.Processed, summary.Errored)
	}
	return nil
}
