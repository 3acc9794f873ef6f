package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/telemetry"
)

const categorizePrompt = `Determine the category of the post. Answer with ONE word from this list: ` +
	`career / personal_brand / pr / public_speaking / blog / mindset / pricing / ` +
	`networking / management / agency / antipattern / health / review`

const summarizePrompt = `Summarize the post in 1-2 sentences. No preamble.`

const (
	// embedContentLimit bounds how much of a post is embedded
	embedContentLimit = 8000
	// enrichContentLimit bounds the categorize/summarize inputs
	enrichContentLimit = 2000
	categorizeMaxTokens = 10
	summarizeMaxTokens  = 100
)

// EmbeddingClient is the embedding capability consumed by the enricher and
// the search service.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EnrichmentUpdate carries one item's enrichment results to the store.
// Category and Summary are only written when non-empty; neither field is
// ever overwritten once set.
type EnrichmentUpdate struct {
	ItemID    string
	Embedding []float32
	Category  domain.Category
	Summary   string
}

// EnricherRepository is the store access the enricher needs.
type EnricherRepository interface {
	ListForEnrichment(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error)
	UpdateEnrichmentBatch(ctx context.Context, updates []EnrichmentUpdate) error
	ClearEmbeddings(ctx context.Context) (int64, error)
	EmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error)
}

// Enricher generates embeddings for active items and optionally assigns a
// category and a short summary.
type Enricher struct {
	embedder EmbeddingClient
	llm      CompletionClient
	repo     EnricherRepository
}

// NewEnricher creates a new Enricher instance.
func NewEnricher(embedder EmbeddingClient, llm CompletionClient, repo EnricherRepository) *Enricher {
	return &Enricher{embedder: embedder, llm: llm, repo: repo}
}

// EnrichOptions controls an enrichment batch run.
type EnrichOptions struct {
	// OnlyEmbeddings skips the categorize and summarize steps
	OnlyEmbeddings bool
	// MinQuality restricts the run to items at or above this score
	MinQuality float64
	// FlushEvery commits partial progress after this many items
	FlushEvery int
	// Delay is the inter-call pause for API rate-limiting courtesy
	Delay time.Duration
	// Limit caps how many items one run processes (0 = no cap)
	Limit int
}

func (o *EnrichOptions) normalize() {
	if o.FlushEvery <= 0 {
		o.FlushEvery = DefaultFlushEvery
	}
	if o.Delay < 0 {
		o.Delay = 0
	} else if o.Delay == 0 {
		o.Delay = DefaultEmbedDelay
	}
}

// EnrichItem computes the enrichment update for one item: an embedding
// over the first part of the content, plus a category and summary when
// requested and not already set. A failed embedding is a hard error with
// nothing to persist. Failures after that are soft: the returned update
// still carries the embedding, and the error reports what was skipped,
// so an already-paid-for embedding is never thrown away.
func (e *Enricher) EnrichItem(ctx context.Context, item *domain.KnowledgeItem, opts EnrichOptions) (EnrichmentUpdate, error) {
	update := EnrichmentUpdate{ItemID: item.ID}

	embedding, err := e.embedder.GenerateEmbedding(ctx, truncateRunes(item.Content, embedContentLimit))
	if err != nil {
		return update, fmt.Errorf("failed to generate embedding: %w", err)
	}
	update.Embedding = embedding

	if opts.OnlyEmbeddings {
		return update, nil
	}

	if item.Category == "" {
		category, err := e.categorize(ctx, item.Content)
		if err != nil {
			return update, fmt.Errorf("failed to categorize: %w", err)
		}
		update.Category = category
	}

	if item.ContentSummary == "" {
		summary, err := e.summarize(ctx, item.Content)
		if err != nil {
			return update, fmt.Errorf("failed to summarize: %w", err)
		}
		update.Summary = summary
	}

	return update, nil
}

// categorize asks the model for a closed-set label. The first token of the
// lower-cased answer is taken; anything outside the valid set falls back
// to the default category rather than storing an invalid label.
func (e *Enricher) categorize(ctx context.Context, content string) (domain.Category, error) {
	completion, err := e.llm.Complete(ctx, categorizePrompt, truncateRunes(content, enrichContentLimit), categorizeMaxTokens, 0)
	if err != nil {
		return "", err
	}

	fields := strings.Fields(strings.ToLower(strings.TrimSpace(completion.Text)))
	if len(fields) == 0 {
		return domain.DefaultCategory, nil
	}

	candidate := domain.Category(fields[0])
	if !domain.IsValidCategory(candidate) {
		return domain.DefaultCategory, nil
	}
	return candidate, nil
}

func (e *Enricher) summarize(ctx context.Context, content string) (string, error) {
	completion, err := e.llm.Complete(ctx, summarizePrompt, truncateRunes(content, enrichContentLimit), summarizeMaxTokens, 0)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Text), nil
}

// EnrichBatch enriches active items without embeddings, sequentially.
// Per-item failures are logged, counted and skipped; only store failures
// abort the run.
func (e *Enricher) EnrichBatch(ctx context.Context, opts EnrichOptions) (*BatchSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "Enricher.EnrichBatch", telemetry.SpanAttributes{
		Operation: "enrich_batch",
	})
	defer span.End()

	opts.normalize()

	items, err := e.repo.ListForEnrichment(ctx, opts.MinQuality)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to select items for enrichment: %w", err)
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}

	summary := &BatchSummary{Selected: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	log.Printf("enriching %d items", len(items))

	var pending []EnrichmentUpdate
	for i, item := range items {
		update, enrichErr := e.EnrichItem(ctx, item, opts)
		if enrichErr != nil {
			log.Printf("error enriching item %s: %v", item.ID, enrichErr)
			summary.record(ItemResult{ItemID: item.ID, Err: enrichErr})
			// keep a computed embedding even when a later step failed, so
			// the item becomes searchable instead of being re-embedded on
			// every retry
			if len(update.Embedding) > 0 {
				pending = append(pending, update)
			}
		} else {
			summary.record(ItemResult{ItemID: item.ID})
			pending = append(pending, update)
		}

		if len(pending) >= opts.FlushEvery {
			if err := e.repo.UpdateEnrichmentBatch(ctx, pending); err != nil {
				span.SetError(err)
				return summary, fmt.Errorf("failed to flush enrichment batch: %w", err)
			}
			pending = pending[:0]
			pct := float64(i+1) / float64(len(items)) * 100
			log.Printf("  [%d/%d] %.0f%% (errors: %d)", i+1, len(items), pct, summary.Errored)
		}

		sleepCtx(ctx, opts.Delay)
		if ctx.Err() != nil {
			break
		}
	}

	if len(pending) > 0 {
		if err := e.repo.UpdateEnrichmentBatch(ctx, pending); err != nil {
			span.SetError(err)
			return summary, fmt.Errorf("failed to flush enrichment batch: %w", err)
		}
	}

	log.Printf("enriched %d/%d items (errors: %d)", summary.Processed, summary.Selected, summary.Errored)
	return summary, nil
}

// ClearAllEmbeddings wipes every stored embedding. Destructive; intended to
// precede a full re-embedding pass after an embedding model change.
func (e *Enricher) ClearAllEmbeddings(ctx context.Context) (int64, error) {
	cleared, err := e.repo.ClearEmbeddings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clear embeddings: %w", err)
	}
	log.Printf("cleared embeddings: %d items", cleared)
	return cleared, nil
}

// Stats returns the current enrichment state of active items.
func (e *Enricher) Stats(ctx context.Context) (*domain.EmbeddingStats, error) {
	return e.repo.EmbeddingStats(ctx)
}
