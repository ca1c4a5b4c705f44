package database

import (
	"context"
	"time"
)

// Timeouts for work that does not run under a request context
const (
	// ShortTimeout for pings and single-document maintenance
	ShortTimeout = 5 * time.Second

	// MediumTimeout for index creation and schema setup
	MediumTimeout = 10 * time.Second
)

// WithShortTimeout creates a background context with ShortTimeout
func WithShortTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), ShortTimeout)
}

// WithMediumTimeout creates a background context with MediumTimeout
func WithMediumTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), MediumTimeout)
}
