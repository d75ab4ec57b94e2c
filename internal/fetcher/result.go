package fetcher

import "quandlfetcher/internal/projection"

// Result represents the outcome of one batch invocation.
// It is sent through a channel from worker goroutines to the coordinator.
type Result struct {
	// Key identifies the invocation in the batch configuration
	Key string

	// Grid is the projected output: header followed by data rows
	Grid *projection.Grid

	// Error contains any error that ended the invocation.
	// If Error is not nil, Grid should be considered invalid.
	Error error
}
