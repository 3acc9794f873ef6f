// Package ingest parses raw channel exports and applies rule-based
// pre-filtering before posts enter the knowledge store.
package ingest

import (
	"regexp"
	"sort"
	"time"
	"unicode"
)

// MinContentLength is the minimum number of characters for a useful post.
const MinContentLength = 200

// URLRatioThreshold rejects posts where links dominate the text.
const URLRatioThreshold = 0.6

// LetterRatioThreshold rejects posts that are mostly emoji/punctuation.
const LetterRatioThreshold = 0.3

// Reason tags why a post was rejected by the filter.
type Reason string

const (
	ReasonTooShort     Reason = "too_short"
	ReasonJunkPattern  Reason = "junk_pattern"
	ReasonMostlyLinks  Reason = "mostly_links"
	ReasonLowTextRatio Reason = "low_text_ratio"
)

// RawPost is a parsed, not-yet-filtered post from a channel export.
type RawPost struct {
	Content string
	Date    *time.Time
}

// Rejection pairs a rejected post with the rule that rejected it.
type Rejection struct {
	Post   RawPost
	Reason Reason
}

// FilterResult partitions an input batch into accepted and rejected posts.
type FilterResult struct {
	Accepted []RawPost
	Rejected []Rejection
	Counts   map[Reason]int
}

// Junk signatures: posts that match any of these carry no useful content.
// Both English and Russian export markers are covered since Telegram
// localizes a few of them.
var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://\S+$`),                 // bare link
	regexp.MustCompile(`^(Forwarded from|Переслано из)`), // repost marker
	regexp.MustCompile(`^(Anonymous poll|Quiz)`),         // poll/quiz
	regexp.MustCompile(`^Photo$|^Video$|^Sticker$`),      // media placeholder
	regexp.MustCompile(`^(Pinned message|Channel created)`),
	regexp.MustCompile(`^(joined|left) the (group|channel)`),
}

var urlPattern = regexp.MustCompile(`https?://\S+`)

// Inspect checks a single post's content against the junk rules.
// Rules apply in order, first match wins. Returns the matched reason and
// true when the content should be rejected. Inspect is a pure function of
// content alone.
func Inspect(content string) (Reason, bool) {
	runes := []rune(content)
	if len(runes) < MinContentLength {
		return ReasonTooShort, true
	}

	for _, pattern := range junkPatterns {
		if pattern.MatchString(content) {
			return ReasonJunkPattern, true
		}
	}

	urlChars := 0
	for _, u := range urlPattern.FindAllString(content, -1) {
		urlChars += len([]rune(u))
	}
	if float64(urlChars)/float64(len(runes)) > URLRatioThreshold {
		return ReasonMostlyLinks, true
	}

	letters := 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if float64(letters)/float64(len(runes)) < LetterRatioThreshold {
		return ReasonLowTextRatio, true
	}

	return "", false
}

// Filter partitions posts into accepted and rejected sets. Each post is
// evaluated independently; accepted posts pass through unchanged.
func Filter(posts []RawPost) FilterResult {
	result := FilterResult{
		Counts: make(map[Reason]int),
	}

	for _, post := range posts {
		reason, rejected := Inspect(post.Content)
		if rejected {
			result.Rejected = append(result.Rejected, Rejection{Post: post, Reason: reason})
			result.Counts[reason]++
			continue
		}
		result.Accepted = append(result.Accepted, post)
	}

	return result
}

// AcceptStats summarizes the accepted posts of a filter run; used by the
// ingest dry-run report.
type AcceptStats struct {
	Count     int
	MinLen    int
	MedianLen int
	MaxLen    int
	MeanLen   float64
	From      *time.Time
	To        *time.Time
}

// Stats computes length and date-range statistics over the accepted posts.
func (r FilterResult) Stats() AcceptStats {
	stats := AcceptStats{Count: len(r.Accepted)}
	if stats.Count == 0 {
		return stats
	}

	lengths := make([]int, 0, stats.Count)
	var total int
	for _, post := range r.Accepted {
		n := len([]rune(post.Content))
		lengths = append(lengths, n)
		total += n

		if post.Date == nil {
			continue
		}
		if stats.From == nil || post.Date.Before(*stats.From) {
			stats.From = post.Date
		}
		if stats.To == nil || post.Date.After(*stats.To) {
			stats.To = post.Date
		}
	}

	sort.Ints(lengths)
	stats.MinLen = lengths[0]
	stats.MaxLen = lengths[len(lengths)-1]
	stats.MedianLen = lengths[len(lengths)/2]
	stats.MeanLen = float64(total) / float64(stats.Count)
	return stats
}
