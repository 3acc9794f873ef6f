package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
)

// Format identifies a supported channel export format.
type Format string

const (
	FormatJSON Format = "json" // Telegram Desktop JSON export (result.json)
	FormatMD   Format = "md"   // plain-text/markdown export
)

// ParseFile reads an export file and returns its raw posts.
func ParseFile(path string, format Format) ([]RawPost, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read export file: %w", err)
	}

	switch format {
	case FormatJSON:
		return ParseJSONExport(data)
	case FormatMD:
		return ParseMDExport(string(data), ""), nil
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

// DetectFormat guesses the export format from a file extension.
func DetectFormat(path string) Format {
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		return FormatJSON
	}
	return FormatMD
}

// Telegram Desktop JSON export.

type jsonExport struct {
	Name     string        `json:"name"`
	Messages []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Type         string           `json:"type"`
	Date         string           `json:"date"`
	Text         json.RawMessage  `json:"text"`
	TextEntities []jsonTextEntity `json:"text_entities"`
}

type jsonTextEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const jsonExportDateLayout = "2006-01-02T15:04:05"

// ParseJSONExport parses a Telegram Desktop JSON channel export.
// Service messages (joins, pins, channel edits) are skipped; message text
// is flattened from text entities so links and formatting collapse into
// plain text.
func ParseJSONExport(data []byte) ([]RawPost, error) {
	var export jsonExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse JSON export: %w", err)
	}

	var posts []RawPost
	for _, msg := range export.Messages {
		if msg.Type != "message" {
			continue
		}

		text := flattenMessageText(msg)
		text = normalizeWhitespace(text)
		if text == "" {
			continue
		}

		var date *time.Time
		if msg.Date != "" {
			if parsed, err := time.Parse(jsonExportDateLayout, msg.Date); err == nil {
				date = &parsed
			}
		}

		posts = append(posts, RawPost{Content: text, Date: date})
	}

	return posts, nil
}

// flattenMessageText joins a message's text entities, falling back to the
// raw "text" field, which the export encodes either as a plain string or a
// mixed array of strings and entity objects.
func flattenMessageText(msg jsonMessage) string {
	if len(msg.TextEntities) > 0 {
		var b strings.Builder
		for _, entity := range msg.TextEntities {
			b.WriteString(entity.Text)
		}
		return b.String()
	}

	var plain string
	if err := json.Unmarshal(msg.Text, &plain); err == nil {
		return plain
	}

	var mixed []json.RawMessage
	if err := json.Unmarshal(msg.Text, &mixed); err != nil {
		return ""
	}

	var b strings.Builder
	for _, part := range mixed {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			b.WriteString(s)
			continue
		}
		var entity jsonTextEntity
		if err := json.Unmarshal(part, &entity); err == nil {
			b.WriteString(entity.Text)
		}
	}
	return b.String()
}

// Markdown/plain-text export.

var (
	mdDatePattern         = regexp.MustCompile(`(\d{1,2}\.\d{2}\.\d{4})`)
	mdPhotoPlaceholder    = regexp.MustCompile(`PhotoNot included.*?KB`)
	mdVideoPlaceholder    = regexp.MustCompile(`Video fileNot included.*?MB`)
	mdStickerPlaceholder  = regexp.MustCompile(`StickerNot included.*?KB`)
	mdPreviousMessages    = regexp.MustCompile(`\[Previous messages\]\(.*?\)`)
	mdPollBlock           = regexp.MustCompile(`(?s)Anonymous poll.*?votes`)
	mdReactions           = regexp.MustCompile(`[🔥❤👍🌚😁⭐🫡💯👋🌭🍓👾💩🗿]\d*`)
	mdBoldMarker          = regexp.MustCompile(`\*\*`)
	whitespaceRun         = regexp.MustCompile(`\s+`)
	mdChannelMarkerGuess  = regexp.MustCompile(`(?m)^(.+?), \[\d{1,2}\.\d{2}\.\d{4}`)
)

const mdExportDateLayout = "02.01.2006"

// ParseMDExport parses a plain-text channel export. Posts are separated by
// repetitions of the channel name header; when channelName is empty, it is
// auto-detected from the first header line.
func ParseMDExport(content, channelName string) []RawPost {
	if channelName == "" {
		channelName = detectChannelName(content)
	}

	var blocks []string
	if channelName != "" {
		blocks = strings.Split(content, channelName)
	} else {
		blocks = []string{content}
	}

	var posts []RawPost
	for _, block := range blocks {
		var date *time.Time
		if m := mdDatePattern.FindString(block); m != "" {
			if parsed, err := time.Parse(mdExportDateLayout, m); err == nil {
				date = &parsed
			}
		}

		clean := block
		clean = mdPhotoPlaceholder.ReplaceAllString(clean, "")
		clean = mdVideoPlaceholder.ReplaceAllString(clean, "")
		clean = mdStickerPlaceholder.ReplaceAllString(clean, "")
		clean = mdPreviousMessages.ReplaceAllString(clean, "")
		clean = mdPollBlock.ReplaceAllString(clean, "")
		clean = mdReactions.ReplaceAllString(clean, "")
		clean = mdBoldMarker.ReplaceAllString(clean, "")
		clean = normalizeWhitespace(clean)

		if clean != "" {
			posts = append(posts, RawPost{Content: clean, Date: date})
		}
	}

	return posts
}

// detectChannelName finds the post header repeated through the export
// ("Channel Name, [01.02.2023 10:00]") and returns the name part.
func detectChannelName(content string) string {
	matches := mdChannelMarkerGuess.FindAllStringSubmatch(content, -1)
	counts := make(map[string]int)
	best := ""
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		counts[name]++
		if counts[name] > counts[best] {
			best = name
		}
	}
	return best
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
