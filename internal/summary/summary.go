package summary

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// MaxKeywords caps the keyword list of a Result.
	MaxKeywords = 10

	// NoSummary replaces an absent or empty summary field.
	NoSummary = "No summary available."
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is one summarization job. It is immutable once built.
type Request struct {
	ID             uuid.UUID
	URL            string `validate:"required,startswith=http,url"`
	RawText        string
	CallbackTarget string
}

// NewRequest validates rawURL and builds a Request for it.
func NewRequest(rawURL, rawText, callbackTarget string) (Request, error) {
	req := Request{
		ID:             uuid.New(),
		URL:            strings.TrimSpace(rawURL),
		RawText:        rawText,
		CallbackTarget: callbackTarget,
	}
	if err := validate.Struct(&req); err != nil {
		return Request{}, Wrap(InvalidInput, "invalid url", err)
	}
	return req, nil
}

// Content is the readable text pulled from a page.
type Content struct {
	Text           string
	OriginalLength int
	Truncated      bool
}

// Length returns the number of characters (runes) in the text.
func (c Content) Length() int {
	return len([]rune(c.Text))
}

// Result is the structured model output delivered to callers.
type Result struct {
	Summary  string   `json:"summary"`
	Keywords []string `json:"keywords"`
}

// NewResult normalizes summary and keywords into a Result.
// An empty summary becomes NoSummary; keywords are trimmed, empties dropped
// and the list capped at MaxKeywords.
func NewResult(summaryText string, keywords []string) Result {
	summaryText = strings.TrimSpace(summaryText)
	if summaryText == "" {
		summaryText = NoSummary
	}
	out := make([]string, 0, min(len(keywords), MaxKeywords))
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		out = append(out, k)
		if len(out) == MaxKeywords {
			break
		}
	}
	return Result{Summary: summaryText, Keywords: out}
}

// KeywordList joins keywords for display.
func (r Result) KeywordList() string {
	return strings.Join(r.Keywords, ", ")
}

// Text renders the result the way it is written to plain-text artifacts.
func (r Result) Text() string {
	return "Summary:\n" + r.Summary + "\n\nKeywords:\n" + r.KeywordList()
}
