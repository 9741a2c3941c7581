// Package fetch retrieves web pages and reduces them to the visible text and
// outbound links the extraction stage needs. Fetching is polite: requests to
// the same host are serialized with a randomized delay, and hosts known to
// block scrapers are skipped outright.
package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/resilience"
)

const (
	fetchTimeout = 15 * time.Second
	maxBodyBytes = 2 << 20

	// maxTextChars caps the visible text handed to extraction. Long pages
	// past this point are boilerplate, not profile content.
	maxTextChars = 12000

	fetchUserAgent = "Mozilla/5.0 (compatible; ScoutBot/1.0)"
)

// ErrSkippedHost marks a URL that was not fetched because its host is on the
// skip list. Callers treat it like an empty page, not a failure.
var ErrSkippedHost = eris.New("fetch: host on skip list")

// skipHosts are hosts that reliably refuse unauthenticated scrapers. Their
// URLs still carry signal as profile links, so they are skipped rather than
// burned through retries.
var skipHosts = []string{
	"linkedin.com",
	"facebook.com",
	"instagram.com",
	"twitter.com",
	"x.com",
	"youtube.com",
	"tiktok.com",
}

// Page is a fetched page reduced to what extraction needs.
type Page struct {
	URL        string
	Title      string
	Text       string
	StatusCode int

	doc *goquery.Document
}

// Fetcher retrieves pages over plain HTTP.
type Fetcher struct {
	client *http.Client
	retry  resilience.RetryConfig
}

// Option configures the fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.client = hc }
}

// WithRetryConfig overrides the retry policy.
func WithRetryConfig(rc resilience.RetryConfig) Option {
	return func(f *Fetcher) { f.retry = rc }
}

// NewFetcher creates a fetcher with sensible defaults.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: fetchTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// Fetch retrieves one URL and reduces it to visible text. Hosts on the skip
// list return ErrSkippedHost without a network call.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if SkippedHost(rawURL) {
		return nil, eris.Wrap(ErrSkippedHost, rawURL)
	}

	retry := f.retry
	retry.OnRetry = resilience.RetryLogger("fetch", "get")

	page, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*Page, error) {
		return f.fetchOnce(ctx, rawURL)
	})
	if err != nil {
		zap.L().Debug("page fetch failed",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return nil, err
	}
	return page, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransportError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, resilience.ClassifyStatus(
			eris.Errorf("fetch: status %d for %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resilience.NewTransportError(eris.Wrap(err, "fetch: read body"), 0)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse html")
	}

	return &Page{
		URL:        rawURL,
		Title:      strings.TrimSpace(doc.Find("title").First().Text()),
		Text:       visibleText(doc),
		StatusCode: resp.StatusCode,
		doc:        doc,
	}, nil
}

// SkippedHost reports whether the URL's host is on the skip list.
func SkippedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, skip := range skipHosts {
		if host == skip || strings.HasSuffix(host, "."+skip) {
			return true
		}
	}
	return false
}

// visibleText strips chrome elements and returns collapsed body text, capped
// at maxTextChars.
func visibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, header, aside, form").Remove()

	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range text {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}

	out := strings.TrimSpace(b.String())
	if len(out) > maxTextChars {
		cut := maxTextChars
		// Back off to a rune boundary so the cap never splits a character.
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = out[:cut]
	}
	return out
}
