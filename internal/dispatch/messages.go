package dispatch

import (
	"fmt"

	"slack-summarizer/internal/summary"
)

const (
	MsgInvalidURL    = "Please provide a valid URL."
	MsgProcessing    = "Processing summary... Please wait."
	MsgNotScheduled  = "Sorry, your request could not be scheduled. Please try again in a moment."
	MsgMentionHint   = "You can use `/summarize <URL>` to summarize a webpage!"
	MsgUnknownFailed = "Sorry, something went wrong while summarizing this page."
)

// FormatResult renders a result as the chat message delivered to the user.
func FormatResult(res summary.Result) string {
	return fmt.Sprintf("*Summary:*\n%s\n\n*Keywords:*\n%s", res.Summary, res.KeywordList())
}

// FailureMessage maps a pipeline error to a message naming the failed stage.
// The underlying error text is never included.
func FailureMessage(err error) string {
	switch summary.KindOf(err) {
	case summary.InvalidInput:
		return MsgInvalidURL
	case summary.ExtractionFailed:
		return "Sorry, the content couldn't be extracted from that page."
	case summary.ContentTooShort:
		return "Sorry, the page doesn't have enough text to summarize."
	case summary.ModelCallFailed:
		return "Sorry, the summarization service is unavailable right now. Please try again later."
	case summary.ParseFailed:
		return "Sorry, the summarization service returned a response that couldn't be read."
	default:
		return MsgUnknownFailed
	}
}
