package extract

import (
	"context"
	"strings"

	"slack-summarizer/internal/summary"
)

// Extractor fetches a page and returns its readable text.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (summary.Content, error)
}

// Truncate bounds text to maxChars runes. maxChars <= 0 disables the bound.
func Truncate(text string, maxChars int) summary.Content {
	runes := []rune(text)
	content := summary.Content{Text: text, OriginalLength: len(runes)}
	if maxChars > 0 && len(runes) > maxChars {
		content.Text = string(runes[:maxChars])
		content.Truncated = true
	}
	return content
}

// normalize collapses whitespace inside lines and drops blank lines.
func normalize(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
