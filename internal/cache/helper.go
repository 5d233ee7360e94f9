package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// UnmarshalCacheValue converts a cached value back to its type.
// Returns the typed value and true if successful, nil and false otherwise.
func UnmarshalCacheValue[T any](value interface{}) (*T, bool) {
	if value == nil {
		return nil, false
	}
	typed, ok := value.(*T)
	return typed, ok
}

// StartCacheSpan creates a span for a cache operation when a sentry transaction is running
func StartCacheSpan(ctx context.Context, operation string, key string) *sentry.Span {
	if sentry.TransactionFromContext(ctx) == nil {
		return nil
	}
	span := sentry.StartSpan(ctx, "cache."+operation)
	span.Description = key
	return span
}

// FinishSpan safely finishes a span, handling nil spans
func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}
