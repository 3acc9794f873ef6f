package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/ingest"
	"github.com/cloo-solutions/mentorkb/internal/telemetry"
	"github.com/google/uuid"
)

// ingestFlushEvery batches item inserts during an ingestion run.
const ingestFlushEvery = 50

// IngestRepository is the store access the ingestion pipeline needs.
type IngestRepository interface {
	ExistingHashes(ctx context.Context, source domain.Source) (map[string]struct{}, error)
	CreateBatch(ctx context.Context, items []*domain.KnowledgeItem) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestSummary reports the outcome of one ingestion run.
type IngestSummary struct {
	Parsed     int
	Accepted   int
	Added      int
	Duplicates int
	Rejected   map[ingest.Reason]int
}

// IngestService filters raw posts and loads the survivors into the
// knowledge store, deduplicating on an exact content hash per source.
type IngestService struct {
	repo    IngestRepository
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewIngestService creates a new IngestService instance.
func NewIngestService(repo IngestRepository) *IngestService {
	return &IngestService{
		repo:    repo,
		uuidGen: &DefaultUUIDGenerator{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// NewIngestServiceWithDeps creates an IngestService with custom ID and
// clock sources (for testing).
func NewIngestServiceWithDeps(repo IngestRepository, uuidGen UUIDGenerator, now func() time.Time) *IngestService {
	return &IngestService{repo: repo, uuidGen: uuidGen, now: now}
}

// IngestPosts runs the content filter over raw posts and inserts accepted,
// not-yet-seen posts as unscored active items. Inserts are committed in
// batches so a crash mid-run keeps earlier progress; the run is idempotent
// thanks to the content-hash dedup.
func (s *IngestService) IngestPosts(ctx context.Context, source domain.Source, posts []ingest.RawPost) (*IngestSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestPosts", telemetry.SpanAttributes{
		Source:    string(source),
		Operation: "ingest",
	})
	defer span.End()

	if !domain.IsValidSource(source) {
		return nil, domain.ErrInvalidSource
	}

	filtered := ingest.Filter(posts)
	summary := &IngestSummary{
		Parsed:   len(posts),
		Accepted: len(filtered.Accepted),
		Rejected: filtered.Counts,
	}

	if len(filtered.Accepted) == 0 {
		return summary, nil
	}

	seen, err := s.repo.ExistingHashes(ctx, source)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load existing content hashes: %w", err)
	}

	var pending []*domain.KnowledgeItem
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := s.repo.CreateBatch(ctx, pending); err != nil {
			return fmt.Errorf("failed to insert item batch: %w", err)
		}
		summary.Added += len(pending)
		pending = pending[:0]
		return nil
	}

	for _, post := range filtered.Accepted {
		hash := ContentHash(post.Content)
		if _, dup := seen[hash]; dup {
			summary.Duplicates++
			continue
		}
		seen[hash] = struct{}{}

		item := domain.NewKnowledgeItem(s.uuidGen.NewString(), source, post.Content, post.Date, s.now())
		pending = append(pending, item)

		if len(pending) >= ingestFlushEvery {
			if err := flush(); err != nil {
				span.SetError(err)
				return summary, err
			}
			log.Printf("  ingested %d/%d", summary.Added, summary.Accepted)
		}
	}

	if err := flush(); err != nil {
		span.SetError(err)
		return summary, err
	}

	log.Printf("ingested %d new items from %s (duplicates: %d, rejected: %d)",
		summary.Added, source, summary.Duplicates, summary.Parsed-summary.Accepted)
	return summary, nil
}

// ContentHash returns the dedup key for a post's content. Exact hash only;
// near-duplicate detection is deliberately out of scope.
func ContentHash(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}
