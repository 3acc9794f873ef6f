package domain

// QualityStats summarizes the scoring state of the knowledge store.
type QualityStats struct {
	Total     int64
	Active    int64
	Scored    int64 // quality_score != sentinel
	MeanScore float64
	// Buckets maps histogram labels ("0.0-0.2", ...) to item counts.
	Buckets map[string]int64
}

// EmbeddingStats summarizes the enrichment state of active items.
type EmbeddingStats struct {
	Total         int64
	Active        int64
	WithEmbedding int64
	WithCategory  int64
	WithSummary   int64
}

// Remaining returns how many active items still need an embedding.
func (s EmbeddingStats) Remaining() int64 {
	return s.Active - s.WithEmbedding
}
