package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloo-solutions/mentorkb/internal/domain"
	"github.com/cloo-solutions/mentorkb/internal/pagination"
	"github.com/cloo-solutions/mentorkb/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// dbtx is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so the
// same query methods serve pooled and transactional callers.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const itemColumns = `id, source, content, content_summary, embedding, category, quality_score, is_active, original_date, created_at, updated_at`

// DefaultPageSize is the browse page size when the caller passes none.
const DefaultPageSize = 20

// KnowledgeRepository persists knowledge items in Postgres. Batch update
// methods open their own transaction so a flush commits atomically.
type KnowledgeRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool, pool: pool}
}

// NewKnowledgeRepositoryWithTx scopes the repository to an existing
// transaction. Batch methods are not available in this mode.
func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

func (r *KnowledgeRepository) Create(ctx context.Context, item *domain.KnowledgeItem) error {
	return r.insert(ctx, r.db, item)
}

func (r *KnowledgeRepository) insert(ctx context.Context, db dbtx, item *domain.KnowledgeItem) error {
	_, err := db.Exec(ctx,
		`INSERT INTO knowledge_items (id, source, content, content_hash, content_summary, embedding, category, quality_score, is_active, original_date, created_at, updated_at)
		 VALUES ($1, $2, $3, md5($3), $4, $5, $6, $7, $8, $9, $10, $11)`,
		item.ID, item.Source, item.Content, item.ContentSummary, nullableVector(item.Embedding),
		item.Category, item.QualityScore, item.IsActive, item.OriginalDate, item.CreatedAt, item.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateContent
	}
	return err
}

// CreateBatch inserts the items in a single transaction. A duplicate in
// the batch fails the whole batch; dedup belongs to the caller.
func (r *KnowledgeRepository) CreateBatch(ctx context.Context, items []*domain.KnowledgeItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		for _, item := range items {
			if err := r.insert(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items WHERE id = $1`, id)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func (r *KnowledgeRepository) ListUnscored(ctx context.Context) ([]*domain.KnowledgeItem, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE quality_score = $1 ORDER BY created_at`,
		domain.SentinelQualityScore)
}

func (r *KnowledgeRepository) ListAll(ctx context.Context) ([]*domain.KnowledgeItem, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items ORDER BY created_at`)
}

func (r *KnowledgeRepository) ListRandomSample(ctx context.Context, n int, onlyUnscored bool) ([]*domain.KnowledgeItem, error) {
	if onlyUnscored {
		return r.list(ctx,
			`SELECT `+itemColumns+` FROM knowledge_items
			 WHERE quality_score = $1 ORDER BY random() LIMIT $2`,
			domain.SentinelQualityScore, n)
	}
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items ORDER BY random() LIMIT $1`, n)
}

func (r *KnowledgeRepository) ListForEnrichment(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE is_active AND embedding IS NULL AND quality_score >= $1
		 ORDER BY created_at`,
		minQuality)
}

func (r *KnowledgeRepository) ListSearchCandidates(ctx context.Context, minQuality float64) ([]*domain.KnowledgeItem, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE is_active AND embedding IS NOT NULL AND quality_score >= $1
		 ORDER BY created_at`,
		minQuality)
}

// ListPageFilter narrows a browse page to one source or category.
// Empty fields match everything.
type ListPageFilter struct {
	Source   domain.Source
	Category domain.Category
}

// ListPage returns one page of active items, newest first, resuming after
// the cursor. It fetches limit+1 rows to detect whether more pages exist.
func (r *KnowledgeRepository) ListPage(ctx context.Context, filter ListPageFilter, cursor *pagination.Cursor, limit int) (*domain.ItemPage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	where := []string{"is_active"}
	args := []any{}

	if filter.Source != "" {
		args = append(args, filter.Source)
		where = append(where, fmt.Sprintf("source = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		where = append(where, fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	args = append(args, limit+1)
	sql := fmt.Sprintf(
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE %s
		 ORDER BY created_at DESC, id DESC
		 LIMIT $%d`,
		strings.Join(where, " AND "), len(args))

	items, err := r.list(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &domain.ItemPage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *KnowledgeRepository) TopByQuality(ctx context.Context, limit int, minQuality float64) ([]*domain.KnowledgeItem, error) {
	return r.list(ctx,
		`SELECT `+itemColumns+` FROM knowledge_items
		 WHERE is_active AND quality_score >= $1
		 ORDER BY quality_score DESC, created_at DESC LIMIT $2`,
		minQuality, limit)
}

// UpdateQualityBatch writes the scores in a single transaction. Unknown
// item IDs are ignored rather than failing the flush.
func (r *KnowledgeRepository) UpdateQualityBatch(ctx context.Context, updates []service.QualityUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, u := range updates {
			_, err := tx.Exec(ctx,
				`UPDATE knowledge_items SET quality_score = $1, updated_at = $2 WHERE id = $3`,
				u.Score, now, u.ItemID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateEnrichmentBatch writes embeddings and fills category/summary only
// where they are still empty, in a single transaction. Every update must
// carry a non-empty vector; writing NULL here would silently pull the item
// back out of the search index.
func (r *KnowledgeRepository) UpdateEnrichmentBatch(ctx context.Context, updates []service.EnrichmentUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if len(u.Embedding) == 0 {
			return fmt.Errorf("item %s: %w", u.ItemID, domain.ErrEmptyEmbedding)
		}
	}
	return r.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		for _, u := range updates {
			_, err := tx.Exec(ctx,
				`UPDATE knowledge_items
				 SET embedding = $1,
				     category = COALESCE(NULLIF(category, ''), $2),
				     content_summary = COALESCE(NULLIF(content_summary, ''), $3),
				     updated_at = $4
				 WHERE id = $5`,
				nullableVector(u.Embedding), string(u.Category), u.Summary, now, u.ItemID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ApplyThreshold flips is_active on scored items around the threshold.
// Items still carrying the sentinel score are never deactivated, but an
// inactive item at or above the threshold is always reactivated, sentinel
// included, so a bad parse cannot strand it. Both updates run in one
// transaction so a partial apply can never be observed.
func (r *KnowledgeRepository) ApplyThreshold(ctx context.Context, threshold float64) (deactivated, reactivated int64, err error) {
	err = r.withTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()

		tag, err := tx.Exec(ctx,
			`UPDATE knowledge_items SET is_active = FALSE, updated_at = $1
			 WHERE is_active AND quality_score < $2 AND quality_score != $3`,
			now, threshold, domain.SentinelQualityScore)
		if err != nil {
			return err
		}
		deactivated = tag.RowsAffected()

		tag, err = tx.Exec(ctx,
			`UPDATE knowledge_items SET is_active = TRUE, updated_at = $1
			 WHERE NOT is_active AND quality_score >= $2`,
			now, threshold)
		if err != nil {
			return err
		}
		reactivated = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return deactivated, reactivated, nil
}

func (r *KnowledgeRepository) ClearEmbeddings(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items SET embedding = NULL, updated_at = $1 WHERE embedding IS NOT NULL`,
		time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *KnowledgeRepository) ExistingHashes(ctx context.Context, source domain.Source) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx,
		`SELECT content_hash FROM knowledge_items WHERE source = $1`, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			return nil, err
		}
		hashes[hash] = struct{}{}
	}
	return hashes, rows.Err()
}

func (r *KnowledgeRepository) QualityStats(ctx context.Context) (*domain.QualityStats, error) {
	stats := &domain.QualityStats{Buckets: make(map[string]int64)}

	var mean *float64
	var junk, mediocre, good, excellent int64
	err := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(*) FILTER (WHERE is_active),
		   COUNT(*) FILTER (WHERE quality_score != $1),
		   AVG(quality_score) FILTER (WHERE quality_score != $1),
		   COUNT(*) FILTER (WHERE quality_score != $1 AND quality_score < 0.3),
		   COUNT(*) FILTER (WHERE quality_score != $1 AND quality_score >= 0.3 AND quality_score < 0.6),
		   COUNT(*) FILTER (WHERE quality_score != $1 AND quality_score >= 0.6 AND quality_score < 0.9),
		   COUNT(*) FILTER (WHERE quality_score != $1 AND quality_score >= 0.9)
		 FROM knowledge_items`,
		domain.SentinelQualityScore,
	).Scan(&stats.Total, &stats.Active, &stats.Scored, &mean, &junk, &mediocre, &good, &excellent)
	if err != nil {
		return nil, err
	}

	if mean != nil {
		stats.MeanScore = *mean
	}
	stats.Buckets["0.0-0.2"] = junk
	stats.Buckets["0.3-0.5"] = mediocre
	stats.Buckets["0.6-0.8"] = good
	stats.Buckets["0.9-1.0"] = excellent
	return stats, nil
}

func (r *KnowledgeRepository) EmbeddingStats(ctx context.Context) (*domain.EmbeddingStats, error) {
	stats := &domain.EmbeddingStats{}
	err := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*),
		   COUNT(*) FILTER (WHERE is_active),
		   COUNT(*) FILTER (WHERE is_active AND embedding IS NOT NULL),
		   COUNT(*) FILTER (WHERE is_active AND category != ''),
		   COUNT(*) FILTER (WHERE is_active AND content_summary != '')
		 FROM knowledge_items`,
	).Scan(&stats.Total, &stats.Active, &stats.WithEmbedding, &stats.WithCategory, &stats.WithSummary)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *KnowledgeRepository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if r.pool == nil {
		return errors.New("repository is transaction-scoped; batch operations need a pool")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *KnowledgeRepository) list(ctx context.Context, sql string, args ...any) ([]*domain.KnowledgeItem, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanItemRows(rows)
}

func scanItemRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var items []*domain.KnowledgeItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (*domain.KnowledgeItem, error) {
	var item domain.KnowledgeItem
	var embedding *pgvector.Vector
	err := row.Scan(
		&item.ID, &item.Source, &item.Content, &item.ContentSummary, &embedding,
		&item.Category, &item.QualityScore, &item.IsActive, &item.OriginalDate,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if embedding != nil {
		item.Embedding = embedding.Slice()
	}
	return &item, nil
}

func nullableVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	vec := pgvector.NewVector(embedding)
	return &vec
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
