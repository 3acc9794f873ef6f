package service

import (
	"context"
	"time"
)

// Batch drivers commit partial progress every flushEvery items and pause
// between external API calls; both match the operational defaults the
// knowledge pipeline was tuned with.
const (
	DefaultFlushEvery = 10
	DefaultScoreDelay = 150 * time.Millisecond
	DefaultEmbedDelay = 200 * time.Millisecond
)

// ItemResult records the outcome of processing one item in a batch.
// A non-nil Err marks a soft failure: the item was skipped or stored with
// the sentinel score, and the batch moved on.
type ItemResult struct {
	ItemID string
	Score  float64
	Reason string
	Err    error
}

// BatchSummary is the final report of a batch maintenance job. Per-item
// failures never abort a batch; they only show up here as counts.
type BatchSummary struct {
	Selected  int
	Processed int
	Errored   int
	Results   []ItemResult
}

func (s *BatchSummary) record(r ItemResult) {
	s.Results = append(s.Results, r)
	if r.Err != nil {
		s.Errored++
		return
	}
	s.Processed++
}

// sleepCtx pauses between external calls but returns early on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
