package summary

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind string

const (
	InvalidInput     Kind = "invalid_input"
	ExtractionFailed Kind = "extraction_failed"
	ContentTooShort  Kind = "content_too_short"
	ModelCallFailed  Kind = "model_call_failed"
	ParseFailed      Kind = "parse_failed"
	DeliveryFailed   Kind = "delivery_failed"
)

// Error is the typed failure returned by every stage.
// Raw holds the unparsed model reply for ParseFailed.
type Error struct {
	Kind   Kind
	Detail string
	Raw    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: ParseFailed}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Fail builds an Error without an underlying cause.
func Fail(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

// Wrap builds an Error around cause.
func Wrap(kind Kind, detail string, cause error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: cause}
}

// KindOf returns the Kind of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
