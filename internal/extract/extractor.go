package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/pkg/anthropic"
)

const (
	extractTimeout   = 90 * time.Second
	extractMaxTokens = 4096

	// evidenceSnippetLen is the slice of raw page text the heuristic
	// fallback records as evidence.
	evidenceSnippetLen = 300
)

var emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Extractor turns page text into candidate records via the LLM, falling back
// to regex heuristics when the model call or its JSON fails.
type Extractor struct {
	client anthropic.Client
	model  string
	retry  resilience.RetryConfig
}

// NewExtractor creates an extractor. client may be nil when the API key is
// absent; every extraction then takes the heuristic path.
func NewExtractor(client anthropic.Client, modelName string) *Extractor {
	return &Extractor{
		client: client,
		model:  modelName,
		retry:  resilience.DefaultRetryConfig(),
	}
}

// Configured reports whether the LLM path is available.
func (e *Extractor) Configured() bool { return e.client != nil }

// ExtractFromPage pulls candidates matching prefs out of one fetched page.
// Never returns an empty-handed error for a readable page: when the LLM is
// unavailable or returns garbage, the heuristic fallback produces a single
// low-confidence record instead.
func (e *Extractor) ExtractFromPage(ctx context.Context, prefs model.DiscoveryPreferences, pageURL, pageTitle, pageText string) []model.CandidateRecord {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}

	if e.Configured() {
		records, err := e.complete(ctx, BuildPagePrompt(prefs, pageURL, pageText), pageURL)
		if err == nil {
			return records
		}
		zap.L().Warn("llm extraction failed, using heuristic fallback",
			zap.String("url", pageURL),
			zap.Error(err),
		)
	}

	return heuristicRecords(pageURL, pageTitle, pageText)
}

// ExtractProfile pulls one person's detailed record from a profile page.
func (e *Extractor) ExtractProfile(ctx context.Context, institution, pageURL, pageTitle, pageText string) []model.CandidateRecord {
	if strings.TrimSpace(pageText) == "" {
		return nil
	}

	if e.Configured() {
		records, err := e.complete(ctx, BuildProfilePrompt(institution, pageURL, pageText), pageURL)
		if err == nil {
			return records
		}
		zap.L().Warn("llm profile extraction failed, using heuristic fallback",
			zap.String("url", pageURL),
			zap.Error(err),
		)
	}

	return heuristicRecords(pageURL, pageTitle, pageText)
}

// ExtractFromSnippets pulls candidates out of bare search results, without
// fetching the pages behind them.
func (e *Extractor) ExtractFromSnippets(ctx context.Context, prefs model.DiscoveryPreferences, results []model.SearchResult) ([]model.CandidateRecord, error) {
	if !e.Configured() {
		return nil, eris.Wrap(resilience.ErrNotConfigured, "extract")
	}
	if len(results) == 0 {
		return nil, nil
	}
	return e.complete(ctx, BuildSnippetPrompt(prefs, results), "")
}

func (e *Extractor) complete(ctx context.Context, prompt, sourceURL string) ([]model.CandidateRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	retry := e.retry
	retry.OnRetry = resilience.RetryLogger("extract", "create_message")

	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return e.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.model,
			MaxTokens: extractMaxTokens,
			System:    extractionSystemText,
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return nil, err
	}

	return ParseCandidates(resp.Text(), sourceURL)
}

// ParseCandidates parses a JSON candidate array out of model output, which
// may be wrapped in markdown fences or prose. When fallbackSource is set,
// records missing source URLs get it attached. Every record is normalized.
func ParseCandidates(text, fallbackSource string) ([]model.CandidateRecord, error) {
	cleaned := cleanJSONArray(text)
	if cleaned == "" {
		return nil, eris.New("extract: no JSON array in model output")
	}

	var records []model.CandidateRecord
	if err := json.Unmarshal([]byte(cleaned), &records); err != nil {
		return nil, eris.Wrap(err, "extract: parse candidate array")
	}

	out := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		if len(r.SourceURLs) == 0 && fallbackSource != "" {
			r.SourceURLs = []string{fallbackSource}
		}
		r.Normalize()
		out = append(out, r)
	}
	return out, nil
}

// AttachCitations backfills source URLs from grounded-search citations onto
// records that came back without any.
func AttachCitations(records []model.CandidateRecord, citations []string) []model.CandidateRecord {
	if len(citations) == 0 {
		return records
	}
	for i := range records {
		if len(records[i].SourceURLs) == 0 {
			records[i].SourceURLs = append([]string(nil), citations...)
			records[i].Normalize()
		}
	}
	return records
}

// heuristicRecords is the no-LLM path: one record per page, named from the
// page title, with any visible email and the leading text as evidence.
func heuristicRecords(pageURL, pageTitle, pageText string) []model.CandidateRecord {
	record := model.CandidateRecord{
		Name:        fallbackName(pageTitle),
		SourceURLs:  []string{pageURL},
		Uncertainty: model.UncertaintyHigh,
		MatchReason: "heuristic extraction from page text",
	}

	if email := emailRe.FindString(pageText); email != "" {
		record.ContactEmail = email
	}

	snippet := pageText
	if len(snippet) > evidenceSnippetLen {
		cut := evidenceSnippetLen
		// Back off to a rune boundary so the cap never splits a character.
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	record.Evidence = []string{strings.TrimSpace(snippet)}

	record.Normalize()
	return []model.CandidateRecord{record}
}

// fallbackName derives a person-ish name from a page title, trimming the site
// suffix conventions ("Jane Doe | Robotics Lab", "Jane Doe - Faculty").
func fallbackName(pageTitle string) string {
	title := strings.TrimSpace(pageTitle)
	for _, sep := range []string{" | ", " – ", " - ", " :: "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "Unknown"
	}
	return title
}

// cleanJSONArray extracts a JSON array from text that may contain markdown
// code fences or surrounding prose.
func cleanJSONArray(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return ""
	}
	return strings.TrimSpace(text[start : end+1])
}
