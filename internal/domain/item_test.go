package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryConstants(t *testing.T) {
	tests := []struct {
		name     string
		category Category
		expected string
	}{
		{"Career", CategoryCareer, "career"},
		{"PersonalBrand", CategoryPersonalBrand, "personal_brand"},
		{"PR", CategoryPR, "pr"},
		{"PublicSpeaking", CategoryPublicSpeaking, "public_speaking"},
		{"Blog", CategoryBlog, "blog"},
		{"Mindset", CategoryMindset, "mindset"},
		{"Pricing", CategoryPricing, "pricing"},
		{"Networking", CategoryNetworking, "networking"},
		{"Management", CategoryManagement, "management"},
		{"Agency", CategoryAgency, "agency"},
		{"Antipattern", CategoryAntipattern, "antipattern"},
		{"Health", CategoryHealth, "health"},
		{"Review", CategoryReview, "review"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.category))
			assert.True(t, IsValidCategory(tt.category))
		})
	}
}

func TestIsValidCategory_Invalid(t *testing.T) {
	assert.False(t, IsValidCategory("philosophy"))
	assert.False(t, IsValidCategory(""))
}

func TestIsValidSource(t *testing.T) {
	assert.True(t, IsValidSource(SourceMainChannel))
	assert.True(t, IsValidSource(SourceMentorshipChannel))
	assert.True(t, IsValidSource(SourceQALog))
	assert.True(t, IsValidSource(SourceManual))
	assert.False(t, IsValidSource("random_channel"))
}

func TestNewKnowledgeItem(t *testing.T) {
	now := time.Now().UTC()
	orig := now.Add(-48 * time.Hour)

	item := NewKnowledgeItem("item-1", SourceMainChannel, "some long enough content", &orig, now)

	require.NotNil(t, item)
	assert.Equal(t, "item-1", item.ID)
	assert.Equal(t, SourceMainChannel, item.Source)
	assert.Equal(t, SentinelQualityScore, item.QualityScore)
	assert.True(t, item.IsActive)
	assert.Nil(t, item.Embedding)
	assert.Empty(t, item.Category)
	assert.Empty(t, item.ContentSummary)
	assert.Equal(t, &orig, item.OriginalDate)
	assert.Equal(t, now, item.CreatedAt)
	assert.Equal(t, now, item.UpdatedAt)
	assert.False(t, item.Scored())
}

func TestValidateKnowledgeItem(t *testing.T) {
	now := time.Now().UTC()

	valid := NewKnowledgeItem("item-1", SourceMainChannel, "content", nil, now)
	require.NoError(t, ValidateKnowledgeItem(valid))

	tests := []struct {
		name   string
		mutate func(*KnowledgeItem)
	}{
		{"nil item", nil},
		{"missing ID", func(k *KnowledgeItem) { k.ID = "" }},
		{"missing content", func(k *KnowledgeItem) { k.Content = "" }},
		{"invalid source", func(k *KnowledgeItem) { k.Source = "unknown" }},
		{"score below range", func(k *KnowledgeItem) { k.QualityScore = -0.1 }},
		{"score above range", func(k *KnowledgeItem) { k.QualityScore = 1.1 }},
		{"invalid category", func(k *KnowledgeItem) { k.Category = "philosophy" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.mutate == nil {
				assert.Error(t, ValidateKnowledgeItem(nil))
				return
			}
			item := NewKnowledgeItem("item-1", SourceMainChannel, "content", nil, now)
			tt.mutate(item)
			assert.Error(t, ValidateKnowledgeItem(item))
		})
	}
}

func TestClampQualityScore(t *testing.T) {
	tests := []struct {
		name     string
		raw      float64
		expected float64
	}{
		{"above range", 1.5, 1.0},
		{"below range", -0.2, 0.0},
		{"in range", 0.7, 0.7},
		{"lower bound", 0.0, 0.0},
		{"upper bound", 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampQualityScore(tt.raw))
		})
	}
}

func TestSearchable(t *testing.T) {
	now := time.Now().UTC()

	item := NewKnowledgeItem("item-1", SourceMainChannel, "content", nil, now)
	item.QualityScore = 0.8
	assert.False(t, item.Searchable(0.3), "no embedding yet")

	item.Embedding = []float32{1, 0, 0}
	assert.True(t, item.Searchable(0.3))

	item.IsActive = false
	assert.False(t, item.Searchable(0.3), "inactive items are never searchable")

	item.IsActive = true
	assert.False(t, item.Searchable(0.9), "below quality floor")
}
