package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/resilience"
)

// Result-page scraping is the last-resort backend: no key required, but the
// markup can change under us at any time. A circuit breaker keeps repeated
// markup or anti-bot failures from stalling the cascade.

const (
	scrapeTimeout   = 20 * time.Second
	scrapeUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"

	duckduckgoURL = "https://html.duckduckgo.com/html/"
	bingURL       = "https://www.bing.com/search"
)

// ScrapeProvider scrapes the HTML result pages of general-purpose search
// engines: DuckDuckGo first, Bing as in-adapter fallback.
type ScrapeProvider struct {
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	enabled bool

	ddgBaseURL  string // overridable for tests
	bingBaseURL string
}

// ScrapeOption configures the provider.
type ScrapeOption func(*ScrapeProvider)

// WithScrapeHTTPClient overrides the HTTP client.
func WithScrapeHTTPClient(hc *http.Client) ScrapeOption {
	return func(p *ScrapeProvider) { p.http = hc }
}

// WithScrapeBaseURLs overrides the engine endpoints (for testing).
func WithScrapeBaseURLs(ddg, bing string) ScrapeOption {
	return func(p *ScrapeProvider) {
		p.ddgBaseURL = ddg
		p.bingBaseURL = bing
	}
}

// NewScrapeProvider creates the scraping adapter.
func NewScrapeProvider(enabled bool, opts ...ScrapeOption) *ScrapeProvider {
	p := &ScrapeProvider{
		http: &http.Client{
			Timeout: scrapeTimeout,
		},
		breaker:     resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		retry:       resilience.DefaultRetryConfig(),
		enabled:     enabled,
		ddgBaseURL:  duckduckgoURL,
		bingBaseURL: bingURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *ScrapeProvider) Name() string     { return "web_scrape" }
func (p *ScrapeProvider) Configured() bool { return p.enabled }

// Search scrapes DuckDuckGo's HTML endpoint, falling back to Bing when the
// first engine returns nothing. Failures never propagate past the breaker as
// anything other than an error value plus an empty list.
func (p *ScrapeProvider) Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	if !p.enabled {
		return nil, eris.Wrap(resilience.ErrNotConfigured, "web_scrape")
	}

	results, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) ([]model.SearchResult, error) {
		results, ddgErr := p.searchDuckDuckGo(ctx, query, maxResults)
		if ddgErr == nil && len(results) > 0 {
			return results, nil
		}
		if ddgErr != nil {
			zap.L().Debug("duckduckgo scrape failed, trying bing",
				zap.String("query", query),
				zap.Error(ddgErr),
			)
		}

		results, bingErr := p.searchBing(ctx, query, maxResults)
		if bingErr != nil {
			if ddgErr != nil {
				return nil, eris.Wrap(bingErr, "web_scrape: both engines failed")
			}
			return nil, bingErr
		}
		return results, nil
	})
	if err != nil {
		return []model.SearchResult{}, err
	}
	return results, nil
}

func (p *ScrapeProvider) searchDuckDuckGo(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	doc, err := p.fetchDoc(ctx, p.ddgBaseURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var results []model.SearchResult
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := s.Find(".result__title a").First()
		href, _ := title.Attr("href")
		if href == "" {
			return true
		}
		results = append(results, model.SearchResult{
			Title:   strings.TrimSpace(title.Text()),
			URL:     unwrapDuckDuckGoURL(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})
		return maxResults <= 0 || len(results) < maxResults
	})

	return results, nil
}

func (p *ScrapeProvider) searchBing(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error) {
	doc, err := p.fetchDoc(ctx, p.bingBaseURL+"?q="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}

	var results []model.SearchResult
	doc.Find(".b_algo").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := s.Find("h2 a").First()
		href, _ := title.Attr("href")
		if href == "" {
			return true
		}
		results = append(results, model.SearchResult{
			Title:   strings.TrimSpace(title.Text()),
			URL:     href,
			Snippet: strings.TrimSpace(s.Find(".b_caption p").First().Text()),
		})
		return maxResults <= 0 || len(results) < maxResults
	})

	return results, nil
}

func (p *ScrapeProvider) fetchDoc(ctx context.Context, rawURL string) (*goquery.Document, error) {
	retry := p.retry
	retry.OnRetry = resilience.RetryLogger(p.Name(), "fetch")

	body, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "web_scrape: create request")
		}
		req.Header.Set("User-Agent", scrapeUserAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.8")

		resp, err := p.http.Do(req)
		if err != nil {
			return nil, resilience.NewTransportError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			return nil, resilience.ClassifyStatus(
				fmt.Errorf("web_scrape: status %d", resp.StatusCode),
				resp.StatusCode,
			)
		}
		return io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	})
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "web_scrape: parse result page")
	}
	return doc, nil
}

// unwrapDuckDuckGoURL extracts the destination from DuckDuckGo's redirect
// links (the uddg query parameter).
func unwrapDuckDuckGoURL(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
