// Package enrich adds advisory detail to candidate records from public
// scholarly metadata. Enrichment never blocks or fails a discovery run:
// lookup failures leave records exactly as they were.
package enrich

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
)

const (
	crossrefBaseURL = "https://api.crossref.org"
	crossrefTimeout = 15 * time.Second

	// worksPerCandidate bounds how many publications one record gains.
	worksPerCandidate = 3
)

// CrossrefClient looks up scholarly works by author.
type CrossrefClient struct {
	http    *http.Client
	baseURL string
	mailto  string
}

// Option configures the client.
type Option func(*CrossrefClient)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *CrossrefClient) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *CrossrefClient) { c.http = hc }
}

// NewCrossrefClient creates the client. mailto goes into the polite-pool
// query parameter Crossref asks API users to send.
func NewCrossrefClient(mailto string, opts ...Option) *CrossrefClient {
	c := &CrossrefClient{
		http:    &http.Client{Timeout: crossrefTimeout},
		baseURL: crossrefBaseURL,
		mailto:  mailto,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Work is one scholarly work.
type Work struct {
	Title string
	DOI   string
	Year  int
}

type worksResponse struct {
	Message struct {
		Items []struct {
			Title     []string `json:"title"`
			DOI       string   `json:"DOI"`
			Published struct {
				DateParts [][]int `json:"date-parts"`
			} `json:"published"`
		} `json:"items"`
	} `json:"message"`
}

// WorksByAuthor returns up to rows works matching the author name.
func (c *CrossrefClient) WorksByAuthor(ctx context.Context, author string, rows int) ([]Work, error) {
	if rows <= 0 {
		rows = worksPerCandidate
	}

	params := url.Values{}
	params.Set("query.author", author)
	params.Set("rows", strconv.Itoa(rows))
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "crossref: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "crossref: fetch works")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("crossref: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "crossref: read response")
	}

	var parsed worksResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "crossref: unmarshal response")
	}

	works := make([]Work, 0, len(parsed.Message.Items))
	for _, item := range parsed.Message.Items {
		w := Work{DOI: item.DOI}
		if len(item.Title) > 0 {
			w.Title = item.Title[0]
		}
		if dp := item.Published.DateParts; len(dp) > 0 && len(dp[0]) > 0 {
			w.Year = dp[0][0]
		}
		if w.Title != "" {
			works = append(works, w)
		}
	}
	return works, nil
}

// Publications appends publication lines to each record's Projects list.
// Advisory: per-record failures are logged and skipped.
func Publications(ctx context.Context, client *CrossrefClient, records []model.CandidateRecord) []model.CandidateRecord {
	if client == nil {
		return records
	}

	for i := range records {
		r := &records[i]
		if strings.TrimSpace(r.Name) == "" {
			continue
		}

		works, err := client.WorksByAuthor(ctx, r.Name, worksPerCandidate)
		if err != nil {
			zap.L().Debug("publication lookup failed",
				zap.String("name", r.Name),
				zap.Error(err),
			)
			continue
		}

		for _, w := range works {
			line := w.Title
			if w.Year > 0 {
				line += " (" + strconv.Itoa(w.Year) + ")"
			}
			if w.DOI != "" {
				line += " doi:" + w.DOI
			}
			if !containsString(r.Projects, line) {
				r.Projects = append(r.Projects, line)
			}
		}
	}
	return records
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
