package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-labs/scout-cli/internal/extract"
	"github.com/archway-labs/scout-cli/internal/fetch"
	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/internal/search"
	"github.com/archway-labs/scout-cli/pkg/anthropic"
)

type mockSearchProvider struct {
	name       string
	configured bool
	results    []model.SearchResult
	err        error
}

func (m *mockSearchProvider) Name() string     { return m.name }
func (m *mockSearchProvider) Configured() bool { return m.configured }
func (m *mockSearchProvider) Search(_ context.Context, _ string, _ int) ([]model.SearchResult, error) {
	return m.results, m.err
}

// mockLLM answers every profile extraction with a one-person array derived
// from the prompt's page URL.
type mockLLM struct {
	responder func(prompt string) string
}

func (m *mockLLM) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	prompt := ""
	if len(req.Messages) > 0 {
		prompt = req.Messages[0].Content
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: m.responder(prompt)}},
	}, nil
}

func fastFetcher() *fetch.PoliteFetcher {
	return fetch.NewPoliteFetcher(
		fetch.NewFetcher(fetch.WithRetryConfig(resilience.RetryConfig{
			MaxAttempts:         1,
			InitialBackoff:      time.Millisecond,
			MaxBackoff:          time.Millisecond,
			Multiplier:          1,
			RateLimitMultiplier: 1,
		})),
		fetch.WithDelayBand(0, 0),
	)
}

func directoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/people/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/people/directory":
			fmt.Fprint(w, `<html><head><title>Faculty Directory</title></head><body>
				<a href="/people/jane-doe">Jane Doe</a>
				<a href="/people/john-smith">John Smith</a>
				<a href="/people/broken">Broken</a>
			</body></html>`)
		case "/people/broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			name := r.URL.Path[len("/people/"):]
			fmt.Fprintf(w, `<html><head><title>%s | State University</title></head><body>Profile of %s</body></html>`, name, name)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func crawlLLM() *mockLLM {
	return &mockLLM{responder: func(prompt string) string {
		switch {
		case strings.Contains(prompt, "person's name"):
			return `[true, true]`
		case strings.Contains(prompt, "jane-doe"):
			return `[{"name": "Jane Doe", "title": "Professor", "education": ["PhD MIT"], "match_score": 90, "uncertainty": "low", "source_urls": []}]`
		case strings.Contains(prompt, "john-smith"):
			return `[{"name": "John Smith", "title": "Lecturer", "match_score": 70, "uncertainty": "medium", "source_urls": []}]`
		default:
			return `[]`
		}
	}}
}

func TestCrawl_WithListURL(t *testing.T) {
	srv := directoryServer(t)
	extractor := extract.NewExtractor(crawlLLM(), "claude-haiku")
	c := NewCrawler(nil, nil, fastFetcher(), extractor)

	records, err := c.Crawl(context.Background(), model.InstitutionCrawlRequest{
		InstitutionName: "State University",
		ListURL:         srv.URL + "/people/directory",
	})

	require.NoError(t, err)
	require.Len(t, records, 2, "the broken profile is dropped, not fatal")
	assert.Equal(t, "Jane Doe", records[0].Name, "ranked by match score")
	assert.Equal(t, []string{"PhD MIT"}, records[0].Education)
	assert.Equal(t, "John Smith", records[1].Name)
}

func TestCrawl_DiscoverDirectoryViaSearch(t *testing.T) {
	srv := directoryServer(t)
	provider := &mockSearchProvider{
		name:       "google_cse",
		configured: true,
		results: []model.SearchResult{
			{Title: "Faculty Directory", URL: srv.URL + "/people/directory"},
		},
	}
	extractor := extract.NewExtractor(crawlLLM(), "claude-haiku")
	c := NewCrawler([]search.Provider{provider}, nil, fastFetcher(), extractor)

	records, err := c.Crawl(context.Background(), model.InstitutionCrawlRequest{
		InstitutionName: "State University",
		DepartmentHint:  "robotics",
	})

	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCrawl_NoInput(t *testing.T) {
	c := NewCrawler(nil, nil, fastFetcher(), extract.NewExtractor(nil, ""))
	_, err := c.Crawl(context.Background(), model.InstitutionCrawlRequest{})
	assert.Error(t, err)
}

func TestCrawl_NoDirectoryFound(t *testing.T) {
	provider := &mockSearchProvider{name: "google_cse", configured: true}
	c := NewCrawler([]search.Provider{provider}, nil, fastFetcher(), extract.NewExtractor(nil, ""))

	_, err := c.Crawl(context.Background(), model.InstitutionCrawlRequest{
		InstitutionName: "Unknown College",
	})
	assert.Error(t, err)
}

func TestParseDirectoryURL(t *testing.T) {
	assert.Equal(t, "https://u.edu/people",
		parseDirectoryURL(`The directory is {"url": "https://u.edu/people"}`))
	assert.Empty(t, parseDirectoryURL("no json here"))
	assert.Empty(t, parseDirectoryURL(`{"link": "https://u.edu"}`))
}
