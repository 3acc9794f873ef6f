package domain

import (
	"fmt"
	"time"
)

// Source identifies the origin channel or process of a knowledge item
type Source string

const (
	SourceMainChannel       Source = "main_channel"
	SourceMentorshipChannel Source = "mentorship_channel"
	SourceQALog             Source = "qa_log"
	SourceManual            Source = "manual"
)

// Category is a closed-set content label assigned during enrichment
type Category string

const (
	CategoryCareer         Category = "career"
	CategoryPersonalBrand  Category = "personal_brand"
	CategoryPR             Category = "pr"
	CategoryPublicSpeaking Category = "public_speaking"
	CategoryBlog           Category = "blog"
	CategoryMindset        Category = "mindset"
	CategoryPricing        Category = "pricing"
	CategoryNetworking     Category = "networking"
	CategoryManagement     Category = "management"
	CategoryAgency         Category = "agency"
	CategoryAntipattern    Category = "antipattern"
	CategoryHealth         Category = "health"
	CategoryReview         Category = "review"
)

// DefaultCategory is substituted when the classifier returns a label
// outside the valid set.
const DefaultCategory = CategoryPersonalBrand

// SentinelQualityScore marks an item that has not been scored yet.
// It is a sentinel, not a real score: threshold passes never deactivate it.
const SentinelQualityScore = 0.5

// KnowledgeItem is the unit of retrievable content.
//
// Content is immutable once set. ContentSummary, Embedding and Category are
// written once by the enricher; QualityScore and IsActive are owned by the
// quality scorer. Items are never deleted, only deactivated.
type KnowledgeItem struct {
	ID             string
	Source         Source
	Content        string
	ContentSummary string
	Embedding      []float32 // nil means "not yet searchable"
	Category       Category  // empty means "not yet categorized"
	QualityScore   float64
	IsActive       bool
	OriginalDate   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ItemPage is one page of a keyset-paginated item listing.
type ItemPage struct {
	Items      []*KnowledgeItem
	NextCursor string
	HasMore    bool
}

// NewKnowledgeItem creates a KnowledgeItem in its post-ingestion state:
// unscored, active, without embedding.
func NewKnowledgeItem(id string, source Source, content string, originalDate *time.Time, now time.Time) *KnowledgeItem {
	return &KnowledgeItem{
		ID:           id,
		Source:       source,
		Content:      content,
		QualityScore: SentinelQualityScore,
		IsActive:     true,
		OriginalDate: originalDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Scored reports whether the item carries a real quality score.
func (k *KnowledgeItem) Scored() bool {
	return k.QualityScore != SentinelQualityScore
}

// Searchable reports whether the item is eligible for similarity ranking
// at the given quality floor.
func (k *KnowledgeItem) Searchable(minQuality float64) bool {
	return k.IsActive && len(k.Embedding) > 0 && k.QualityScore >= minQuality
}

// ValidateKnowledgeItem validates a KnowledgeItem instance
func ValidateKnowledgeItem(k *KnowledgeItem) error {
	if k == nil {
		return fmt.Errorf("knowledge item cannot be nil")
	}

	if k.ID == "" {
		return fmt.Errorf("knowledge item ID is required")
	}

	if k.Content == "" {
		return fmt.Errorf("knowledge item Content is required")
	}

	if !IsValidSource(k.Source) {
		return fmt.Errorf("knowledge item Source is invalid: %s", k.Source)
	}

	if k.QualityScore < 0.0 || k.QualityScore > 1.0 {
		return fmt.Errorf("knowledge item QualityScore out of range: %f", k.QualityScore)
	}

	if k.Category != "" && !IsValidCategory(k.Category) {
		return fmt.Errorf("knowledge item Category is invalid: %s", k.Category)
	}

	return nil
}

// IsValidSource checks if a Source is a member of the known set
func IsValidSource(s Source) bool {
	switch s {
	case SourceMainChannel, SourceMentorshipChannel, SourceQALog, SourceManual:
		return true
	}
	return false
}

// IsValidCategory checks if a Category is a member of the closed set
func IsValidCategory(c Category) bool {
	switch c {
	case CategoryCareer, CategoryPersonalBrand, CategoryPR, CategoryPublicSpeaking,
		CategoryBlog, CategoryMindset, CategoryPricing, CategoryNetworking,
		CategoryManagement, CategoryAgency, CategoryAntipattern, CategoryHealth,
		CategoryReview:
		return true
	}
	return false
}

// ClampQualityScore clamps a raw scorer output into the valid [0, 1] range.
func ClampQualityScore(score float64) float64 {
	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}
	return score
}

// ScoreResult is the outcome of scoring a single item's content.
type ScoreResult struct {
	Score  float64
	Reason string
}
