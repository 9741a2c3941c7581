package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/extract"
	"github.com/archway-labs/scout-cli/internal/fetch"
	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/query"
	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/internal/search"
	"github.com/archway-labs/scout-cli/pkg/anthropic"
)

// maxPagesPerSearch bounds how many result pages one search strategy fetches.
const maxPagesPerSearch = 8

// Strategy is one rung of the discovery cascade.
type Strategy interface {
	Name() string
	Configured() bool
	Discover(ctx context.Context, req model.DiscoveryRequest) ([]model.CandidateRecord, error)
}

// SearchStrategy runs a search provider, fetches the result pages, and
// extracts candidates from each. Backs both keyed_search and scrape_llm,
// which differ only in the provider underneath.
type SearchStrategy struct {
	name      string
	provider  search.Provider
	fetcher   *fetch.PoliteFetcher
	extractor *extract.Extractor
}

// NewSearchStrategy builds a search-then-extract cascade rung.
func NewSearchStrategy(name string, provider search.Provider, fetcher *fetch.PoliteFetcher, extractor *extract.Extractor) *SearchStrategy {
	return &SearchStrategy{
		name:      name,
		provider:  provider,
		fetcher:   fetcher,
		extractor: extractor,
	}
}

func (s *SearchStrategy) Name() string     { return s.name }
func (s *SearchStrategy) Configured() bool { return s.provider.Configured() }

// Discover searches, fetches what it can, and extracts candidates per page.
// When no page survives fetching, it falls back to snippet extraction so a
// blocked web still yields thin records instead of nothing.
func (s *SearchStrategy) Discover(ctx context.Context, req model.DiscoveryRequest) ([]model.CandidateRecord, error) {
	prefs := req.EffectivePreferences()

	q := query.Build(prefs, "")
	results, err := s.provider.Search(ctx, q, maxPagesPerSearch)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		// A broad query can miss when the preferences describe individuals
		// rather than topics. Retry restricted to public profile pages.
		zap.L().Info("broad query empty, retrying with profile filter",
			zap.String("strategy", s.name),
		)
		results, err = s.provider.Search(ctx, query.BuildProfileSearch(prefs, ""), maxPagesPerSearch)
		if err != nil {
			return nil, err
		}
	}
	if len(results) == 0 {
		return nil, eris.Wrap(resilience.ErrEmptyResult, s.name)
	}

	urls := make([]string, 0, len(results))
	for _, r := range results {
		urls = append(urls, r.URL)
	}

	pages, err := s.fetcher.FetchAll(ctx, urls)
	if err != nil {
		return nil, err
	}

	var records []model.CandidateRecord
	for _, page := range pages {
		records = append(records, s.extractor.ExtractFromPage(ctx, prefs, page.URL, page.Title, page.Text)...)
	}

	if len(records) == 0 {
		zap.L().Info("no result pages fetchable, extracting from snippets",
			zap.String("strategy", s.name),
		)
		snippetRecords, snippetErr := s.extractor.ExtractFromSnippets(ctx, prefs, results)
		if snippetErr != nil {
			return nil, snippetErr
		}
		records = snippetRecords
	}

	if len(records) == 0 {
		return nil, eris.Wrap(resilience.ErrEmptyResult, s.name)
	}
	return records, nil
}

// GroundedStrategy asks a web-grounded model directly and parses its JSON
// answer, attaching the retrieval citations as provenance.
type GroundedStrategy struct {
	searcher *search.GroundedSearcher
}

// NewGroundedStrategy builds the grounded cascade rung.
func NewGroundedStrategy(searcher *search.GroundedSearcher) *GroundedStrategy {
	return &GroundedStrategy{searcher: searcher}
}

func (s *GroundedStrategy) Name() string     { return s.searcher.Name() }
func (s *GroundedStrategy) Configured() bool { return s.searcher.Configured() }

func (s *GroundedStrategy) Discover(ctx context.Context, req model.DiscoveryRequest) ([]model.CandidateRecord, error) {
	result, err := s.searcher.SearchGrounded(ctx, extract.BuildDiscoveryPrompt(req))
	if err != nil {
		return nil, err
	}

	records, err := extract.ParseCandidates(result.Text, "")
	if err != nil {
		return nil, err
	}
	records = extract.AttachCitations(records, result.Citations)

	if len(records) == 0 {
		return nil, eris.Wrap(resilience.ErrEmptyResult, s.Name())
	}
	return records, nil
}

// LLMOnlyStrategy is the terminal rung: an ungrounded model call. Records
// come back without source URLs and are tagged high uncertainty; the cascade
// marks the whole run degraded when this rung wins.
type LLMOnlyStrategy struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// NewLLMOnlyStrategy builds the ungrounded terminal rung.
func NewLLMOnlyStrategy(client anthropic.Client, modelName string) *LLMOnlyStrategy {
	return &LLMOnlyStrategy{
		client: client,
		model:  modelName,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (s *LLMOnlyStrategy) Name() string     { return "llm_only" }
func (s *LLMOnlyStrategy) Configured() bool { return s.client != nil }

func (s *LLMOnlyStrategy) Discover(ctx context.Context, req model.DiscoveryRequest) ([]model.CandidateRecord, error) {
	if !s.Configured() {
		return nil, eris.Wrap(resilience.ErrNotConfigured, s.Name())
	}

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger(s.Name(), "create_message")

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 4096,
			System: "You suggest real, publicly known people matching a description. " +
				"Return a valid JSON array matching the requested schema, nothing else. " +
				"Only name people you are confident actually exist.",
			Messages: []anthropic.Message{{Role: "user", Content: extract.BuildDiscoveryPrompt(req)}},
		})
	})
	if err != nil {
		return nil, err
	}

	records, err := extract.ParseCandidates(resp.Text(), "")
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, eris.Wrap(resilience.ErrEmptyResult, s.Name())
	}

	// Ungrounded output is never better than high uncertainty.
	for i := range records {
		records[i].Uncertainty = model.UncertaintyHigh
	}
	return records, nil
}
