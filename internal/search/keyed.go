package search

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/pkg/googlecse"
)

// keyedSearchTimeout bounds one Custom Search API call including retries.
const keyedSearchTimeout = 45 * time.Second

// KeyedProvider adapts the Google Custom Search JSON API. Preferred when
// configured: results are deterministic and attributable.
type KeyedProvider struct {
	client googlecse.Client
	retry  resilience.RetryConfig
}

// NewKeyedProvider creates the keyed adapter. client may be nil when the API
// key is absent; the adapter then reports itself unconfigured.
func NewKeyedProvider(client googlecse.Client) *KeyedProvider {
	return &KeyedProvider{
		client: client,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (p *KeyedProvider) Name() string     { return "google_cse" }
func (p *KeyedProvider) Configured() bool { return p.client != nil }

// Search runs the query with bounded timeout and backoff. Rate-limit
// responses (429/403) are retried on the long backoff path; exhaustion
// degrades to an empty list.
func (p *KeyedProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if !p.Configured() {
		return nil, eris.Wrap(resilience.ErrNotConfigured, "google_cse")
	}

	ctx, cancel := context.WithTimeout(ctx, keyedSearchTimeout)
	defer cancel()

	retry := p.retry
	retry.OnRetry = resilience.RetryLogger(p.Name(), "search")

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*googlecse.SearchResponse, error) {
		resp, err := p.client.Search(ctx, query, maxResults)
		if err != nil {
			var se *googlecse.StatusError
			if errors.As(err, &se) {
				return nil, resilience.ClassifyStatus(err, se.StatusCode)
			}
			return nil, resilience.NewTransportError(err, 0)
		}
		return resp, nil
	})
	if err != nil {
		zap.L().Warn("keyed search failed",
			zap.String("provider", p.Name()),
			zap.String("query", query),
			zap.Error(err),
		)
		return []model.SearchResult{}, err
	}

	results := make([]model.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Link == "" {
			continue
		}
		results = append(results, model.SearchResult{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return Truncate(results, maxResults), nil
}
