package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/dedupe"
	"github.com/archway-labs/scout-cli/internal/extract"
	"github.com/archway-labs/scout-cli/internal/fetch"
	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/query"
	"github.com/archway-labs/scout-cli/internal/rank"
	"github.com/archway-labs/scout-cli/internal/search"
	"github.com/archway-labs/scout-cli/internal/validate"
)

// defaultCrawlLimit bounds profile pages fetched from one directory.
const defaultCrawlLimit = 25

// Crawler walks one institution's public directory: find the listing page,
// classify its profile links, fetch each profile politely, extract a detailed
// record per person.
type Crawler struct {
	searchers []search.Provider
	grounded  *search.GroundedSearcher
	fetcher   *fetch.PoliteFetcher
	extractor *extract.Extractor
}

// NewCrawler creates a directory crawler. grounded may be nil.
func NewCrawler(searchers []search.Provider, grounded *search.GroundedSearcher, fetcher *fetch.PoliteFetcher, extractor *extract.Extractor) *Crawler {
	return &Crawler{
		searchers: searchers,
		grounded:  grounded,
		fetcher:   fetcher,
		extractor: extractor,
	}
}

// Crawl runs the directory pipeline. Individual profile failures are dropped;
// the crawl errors only when no directory page can be found or fetched.
func (c *Crawler) Crawl(ctx context.Context, req model.InstitutionCrawlRequest) ([]model.CandidateRecord, error) {
	if strings.TrimSpace(req.InstitutionName) == "" && strings.TrimSpace(req.ListURL) == "" {
		return nil, eris.New("engine: crawl needs an institution name or list URL")
	}

	listURL := strings.TrimSpace(req.ListURL)
	if listURL == "" {
		found, err := c.findDirectoryURL(ctx, req.InstitutionName, req.DepartmentHint)
		if err != nil {
			return nil, err
		}
		listURL = found
	}

	listing, err := c.fetcher.Fetch(ctx, listURL)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: fetch directory %s", listURL)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultCrawlLimit
	}

	links := listing.ProfileLinks(limit)
	if len(links) == 0 {
		// The listing itself may name people inline (single-page faculty
		// lists with no profile pages).
		records := c.extractor.ExtractFromPage(ctx, model.DiscoveryPreferences{}, listing.URL, listing.Title, listing.Text)
		if len(records) == 0 {
			return nil, eris.Errorf("engine: no profile links or people on %s", listURL)
		}
		return c.finish(ctx, records, limit), nil
	}

	zap.L().Info("crawling directory profiles",
		zap.String("institution", req.InstitutionName),
		zap.String("list_url", listURL),
		zap.Int("profiles", len(links)),
	)

	pages, err := c.fetcher.FetchAll(ctx, links)
	if err != nil {
		return nil, err
	}

	var records []model.CandidateRecord
	for _, page := range pages {
		records = append(records, c.extractor.ExtractProfile(ctx, req.InstitutionName, page.URL, page.Title, page.Text)...)
	}
	if len(records) == 0 {
		return nil, eris.Errorf("engine: no profiles extractable from %s", listURL)
	}

	return c.finish(ctx, records, limit), nil
}

func (c *Crawler) finish(ctx context.Context, records []model.CandidateRecord, limit int) []model.CandidateRecord {
	records = c.extractor.CleanNames(ctx, records)
	records = dedupe.Merge(records)
	records = validate.Apply(records)
	return rank.Rank(records, limit)
}

// findDirectoryURL locates the public directory listing: keyed or scraped
// search first, grounded model as fallback.
func (c *Crawler) findDirectoryURL(ctx context.Context, institution, departmentHint string) (string, error) {
	q := query.BuildDirectorySearch(model.InstitutionCrawlRequest{
		InstitutionName: institution,
		DepartmentHint:  departmentHint,
	})

	for _, p := range c.searchers {
		if !p.Configured() {
			continue
		}
		results, err := p.Search(ctx, q, 5)
		if err != nil || len(results) == 0 {
			continue
		}
		for _, r := range results {
			if !fetch.SkippedHost(r.URL) {
				return r.URL, nil
			}
		}
	}

	if c.grounded != nil && c.grounded.Configured() {
		result, err := c.grounded.SearchGrounded(ctx, extract.BuildDirectoryDiscoveryPrompt(institution, departmentHint))
		if err == nil {
			if u := parseDirectoryURL(result.Text); u != "" {
				return u, nil
			}
		}
	}

	return "", eris.Errorf("engine: no directory page found for %s", institution)
}

// parseDirectoryURL pulls the url field out of a {"url": "..."} answer.
func parseDirectoryURL(text string) string {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out.URL)
}
