package fetcher

import (
	"context"
	"encoding/json"
	"net/url"
)

// Fetcher is the transport every page source talks to. Each call is an
// independent attempt sequence: transient failures are retried inside Get,
// and whatever error comes back is final for that page.
type Fetcher interface {
	// Get fetches path relative to the provider's base URL with the given
	// query parameters and returns the undecoded JSON document.
	// Errors are *FetchError values.
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}
