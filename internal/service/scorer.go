package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/openai"
	"github.com/cloo-solutions/mentorkb/internal/telemetry"
)

// scoringPrompt is the fixed rubric the quality model scores against.
const scoringPrompt = `You are an expert in content marketing and personal branding.
Rate the following mentorship channel post on a scale from 0.0 to 1.0.

Criteria:
- Specificity: numbers, examples, real cases? (+)
- Originality: the author's own take, not generic truisms? (+)
- Actionability: can the reader do something after reading? (+)
- Depth: analysis, antipatterns, non-obvious conclusions? (+)
- Junk: repost, congratulation, ad, context-free poll? (-)
- Filler: generic words without specifics, empty motivation? (-)

Scale:
  0.0-0.2 = junk (repost, congratulation, poll, ad, bare link)
  0.3-0.5 = mediocre (generic reasoning, little specificity, but on topic)
  0.6-0.8 = good (concrete advice, personal experience, cases)
  0.9-1.0 = excellent (unique insight, antipattern, case with numbers and conclusions)

Answer ONLY with JSON:
{"score": 0.7, "reason": "short reason in 5-10 words"}`

const (
	// scoreContentLimit bounds how much of a post is sent to the model
	scoreContentLimit = 2000
	scoreMaxTokens    = 50
	scoreTemperature  = 0.1
)

// scoreFallbackPattern extracts a bare decimal from an otherwise
// unparseable completion.
var scoreFallbackPattern = regexp.MustCompile(`0\.\d+|1\.0|0|1`)

// CompletionClient is the text-completion capability consumed by the
// scorer and the enricher.
type CompletionClient interface {
	Complete(ctx context.Context, system, user string, maxTokens int, temperature float32) (*openai.Completion, error)
}

// QualityUpdate carries one item's new quality score to the store.
type QualityUpdate struct {
	ItemID string
	Score  float64
}

// ScorerRepository is the store access the quality scorer needs.
type ScorerRepository interface {
	ListUnscored(ctx context.Context) ([]*domain.KnowledgeItem, error)
	ListAll(ctx context.Context) ([]*domain.KnowledgeItem, error)
	ListRandomSample(ctx context.Context, n int, onlyUnscored bool) ([]*domain.KnowledgeItem, error)
	UpdateQualityBatch(ctx context.Context, updates []QualityUpdate) error
	ApplyThreshold(ctx context.Context, threshold float64) (deactivated, reactivated int64, err error)
	QualityStats(ctx context.Context) (*domain.QualityStats, error)
}

// QualityScorer assigns LLM-based quality scores to knowledge items and
// derives their active state from a threshold.
type QualityScorer struct {
	llm  CompletionClient
	repo ScorerRepository
}

// NewQualityScorer creates a new QualityScorer instance.
func NewQualityScorer(llm CompletionClient, repo ScorerRepository) *QualityScorer {
	return &QualityScorer{llm: llm, repo: repo}
}

// ScoreContent scores a single post. All failures are soft: the returned
// error reports what went wrong, but the result is always usable and
// degrades to the sentinel score so callers can keep going.
func (s *QualityScorer) ScoreContent(ctx context.Context, content string) (domain.ScoreResult, error) {
	completion, err := s.llm.Complete(ctx, scoringPrompt, truncateRunes(content, scoreContentLimit), scoreMaxTokens, scoreTemperature)
	if err != nil {
		return domain.ScoreResult{
			Score:  domain.SentinelQualityScore,
			Reason: fmt.Sprintf("error: %v", err),
		}, err
	}

	return parseScoreResponse(completion.Text), nil
}

// parseScoreResponse parses the model's JSON answer, tolerating a fenced
// code block and falling back to a bare-number scan.
func parseScoreResponse(response string) domain.ScoreResult {
	cleaned := stripCodeFence(strings.TrimSpace(response))

	var parsed struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil {
		return domain.ScoreResult{
			Score:  domain.ClampQualityScore(parsed.Score),
			Reason: parsed.Reason,
		}
	}

	if match := scoreFallbackPattern.FindString(response); match != "" {
		if score, err := strconv.ParseFloat(match, 64); err == nil {
			return domain.ScoreResult{
				Score:  domain.ClampQualityScore(score),
				Reason: "json_parse_fallback",
			}
		}
	}

	return domain.ScoreResult{
		Score:  domain.SentinelQualityScore,
		Reason: "parse_error",
	}
}

// stripCodeFence removes one layer of ``` fencing, with or without a
// language tag.
func stripCodeFence(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}

	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	inner := parts[1]
	inner = strings.TrimPrefix(inner, "json")
	return strings.TrimSpace(inner)
}

// ScoreOptions controls a scoring batch run.
type ScoreOptions struct {
	// Force re-scores every item instead of only unscored ones
	Force bool
	// Sample limits the run to N randomly chosen items (dry testing)
	Sample int
	// FlushEvery commits partial progress after this many items
	FlushEvery int
	// Delay is the inter-call pause for API rate-limiting courtesy
	Delay time.Duration
}

func (o *ScoreOptions) normalize() {
	if o.FlushEvery <= 0 {
		o.FlushEvery = DefaultFlushEvery
	}
	if o.Delay < 0 {
		o.Delay = 0
	} else if o.Delay == 0 {
		o.Delay = DefaultScoreDelay
	}
}

// ScoreBatch scores the selected items sequentially. Per-item failures are
// logged, counted and skipped; only store failures abort the run.
func (s *QualityScorer) ScoreBatch(ctx context.Context, opts ScoreOptions) (*BatchSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "QualityScorer.ScoreBatch", telemetry.SpanAttributes{
		Operation: "score_batch",
	})
	defer span.End()

	opts.normalize()

	items, err := s.selectItems(ctx, opts)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to select items for scoring: %w", err)
	}

	summary := &BatchSummary{Selected: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	log.Printf("scoring %d items", len(items))

	var pending []QualityUpdate
	for i, item := range items {
		result, scoreErr := s.ScoreContent(ctx, item.Content)
		if scoreErr != nil {
			log.Printf("error scoring item %s: %v", item.ID, scoreErr)
			summary.record(ItemResult{ItemID: item.ID, Score: result.Score, Reason: result.Reason, Err: scoreErr})
		} else {
			summary.record(ItemResult{ItemID: item.ID, Score: result.Score, Reason: result.Reason})
			pending = append(pending, QualityUpdate{ItemID: item.ID, Score: result.Score})
		}

		if len(pending) >= opts.FlushEvery {
			if err := s.repo.UpdateQualityBatch(ctx, pending); err != nil {
				span.SetError(err)
				return summary, fmt.Errorf("failed to flush score batch: %w", err)
			}
			pending = pending[:0]
			log.Printf("  [%d/%d] last score: %.1f (%s)", i+1, len(items), result.Score, truncateRunes(result.Reason, 30))
		}

		sleepCtx(ctx, opts.Delay)
		if ctx.Err() != nil {
			break
		}
	}

	if len(pending) > 0 {
		if err := s.repo.UpdateQualityBatch(ctx, pending); err != nil {
			span.SetError(err)
			return summary, fmt.Errorf("failed to flush score batch: %w", err)
		}
	}

	log.Printf("scored %d/%d items (errors: %d)", summary.Processed, summary.Selected, summary.Errored)
	return summary, nil
}

func (s *QualityScorer) selectItems(ctx context.Context, opts ScoreOptions) ([]*domain.KnowledgeItem, error) {
	if opts.Sample > 0 {
		return s.repo.ListRandomSample(ctx, opts.Sample, !opts.Force)
	}
	if opts.Force {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListUnscored(ctx)
}

// ApplyThreshold deactivates scored items below the threshold and
// reactivates inactive items at or above it. The sentinel score guards
// deactivation only; reactivation ignores it so a failed re-score cannot
// leave an item stranded inactive. Idempotent.
func (s *QualityScorer) ApplyThreshold(ctx context.Context, threshold float64) (deactivated, reactivated int64, err error) {
	ctx, span := telemetry.StartSpan(ctx, "QualityScorer.ApplyThreshold", telemetry.SpanAttributes{
		Operation: "apply_threshold",
	})
	defer span.End()

	deactivated, reactivated, err = s.repo.ApplyThreshold(ctx, threshold)
	if err != nil {
		span.SetError(err)
		return 0, 0, fmt.Errorf("failed to apply quality threshold: %w", err)
	}

	log.Printf("threshold %.2f: deactivated %d, reactivated %d", threshold, deactivated, reactivated)
	return deactivated, reactivated, nil
}

// Stats returns the current quality distribution of the store.
func (s *QualityScorer) Stats(ctx context.Context) (*domain.QualityStats, error) {
	return s.repo.QualityStats(ctx)
}

// truncateRunes bounds a string by rune count, not bytes.
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
