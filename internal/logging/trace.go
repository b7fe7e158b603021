package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const correlationKey contextKey = "correlation_id"

// NewCorrelationID returns a fresh id for tying log lines of one inbound
// request together.
func NewCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelation stores id on ctx, minting one when id is empty.
func WithCorrelation(ctx context.Context, id string) context.Context {
	if id == "" {
		id = NewCorrelationID()
	}
	return context.WithValue(ctx, correlationKey, id)
}

// Correlation returns the id stored by WithCorrelation, or "".
func Correlation(ctx context.Context) string {
	if v, ok := ctx.Value(correlationKey).(string); ok {
		return v
	}
	return ""
}
