package utils

import (
	"context"
	"time"
)

const (
	// DefaultTimeout bounds most database operations.
	DefaultTimeout = 10 * time.Second

	// LongTimeout bounds slow paths such as uploads and document deletes.
	LongTimeout = 30 * time.Second

	// ShortTimeout bounds quick lookups such as cache reads.
	ShortTimeout = 2 * time.Second
)

// WithTimeout creates a context with the default timeout.
func WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultTimeout)
}

// WithLongTimeout creates a context for operations that may take longer.
func WithLongTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, LongTimeout)
}

// WithShortTimeout creates a context for quick operations.
func WithShortTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, ShortTimeout)
}
