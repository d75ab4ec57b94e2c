package quandl

import (
	"context"
	"fmt"

	"quandlfetcher/internal/projection"
)

// Query is a saved invocation: a variant and its raw JSON input, run by the
// batch coordinator.
type Query struct {
	key     string
	variant Variant
	input   []byte
	service *Service
}

// NewQuery creates a saved invocation. An empty key is derived from the
// variant and the input.
func NewQuery(key string, v Variant, input []byte, s *Service) *Query {
	if key == "" {
		key = fmt.Sprintf("quandl:%s:%s", v.Name, input)
	}
	return &Query{
		key:     key,
		variant: v,
		input:   input,
		service: s,
	}
}

// Run executes the invocation.
func (q *Query) Run(ctx context.Context) (*projection.Grid, error) {
	return q.service.Run(ctx, q.variant, q.input)
}

// Key returns the identifier the coordinator reports results under.
func (q *Query) Key() string {
	return q.key
}
