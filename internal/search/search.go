// Package search wraps the independent search backends behind one adapter
// interface. Adapter failures degrade to empty result lists after bounded
// retries; the cascade decides what an empty list means.
package search

import (
	"context"

	"github.com/archway-labs/scout-cli/internal/model"
)

// Provider is the uniform search adapter contract. Implementations apply
// their own timeout and retry policy; on unrecoverable failure they return
// an empty slice together with the classified error, so callers that ignore
// the error still see a usable (empty) result.
type Provider interface {
	// Name identifies the backend in logs and audit records.
	Name() string
	// Configured reports whether the backend's required credentials and
	// flags are present.
	Configured() bool
	// Search runs one query and returns up to maxResults hits.
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// Truncate bounds a result list to maxResults.
func Truncate(results []model.SearchResult, maxResults int) []model.SearchResult {
	if maxResults > 0 && len(results) > maxResults {
		return results[:maxResults]
	}
	return results
}
