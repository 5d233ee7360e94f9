package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder chains context onto an error before it gets marked
type ErrorBuilder struct {
	err error
}

// NewError starts a builder from a fresh error message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// NewErrorf starts a builder from a formatted message
func NewErrorf(format string, args ...any) *ErrorBuilder {
	return &ErrorBuilder{err: errors.Newf(format, args...)}
}

// WithError wraps an existing error
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.New("unknown error")
	}
	return &ErrorBuilder{err: err}
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

func (b *ErrorBuilder) WithMessagef(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithMessagef(b.err, format, args...)
	return b
}

// WithHint attaches a user facing message. The last hint added is the one shown.
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured details that are safe to return to API clients
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	b.err = &detailsError{cause: b.err, details: details}
	return b
}

// Mark finalizes the builder, tagging the error with a sentinel so errors.Is matches it
func (b *ErrorBuilder) Mark(reference error) error {
	return errors.Mark(b.err, reference)
}

// Err returns the built error without a mark
func (b *ErrorBuilder) Err() error {
	return b.err
}

type detailsError struct {
	cause   error
	details map[string]any
}

func (e *detailsError) Error() string { return e.cause.Error() }
func (e *detailsError) Unwrap() error { return e.cause }
func (e *detailsError) Format(s fmt.State, verb rune) {
	errors.FormatError(e, s, verb)
}

// ReportableDetails merges every details map attached along the chain. Outer values win.
func ReportableDetails(err error) map[string]any {
	out := map[string]any{}
	for err != nil {
		if d, ok := err.(*detailsError); ok {
			for k, v := range d.details {
				if _, exists := out[k]; !exists {
					out[k] = v
				}
			}
		}
		err = errors.UnwrapOnce(err)
	}
	return out
}

// DisplayMessage returns the most recent hint, falling back to the error message
func DisplayMessage(err error) string {
	hints := errors.GetAllHints(err)
	if len(hints) > 0 {
		return hints[len(hints)-1]
	}
	return err.Error()
}
