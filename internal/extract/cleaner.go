package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/pkg/anthropic"
)

// Advisory cleanup pass: extraction sometimes yields organizations, page
// headings, or fragments where a person's name belongs. A cheap batch LLM
// call filters those out. The pass is best-effort: any failure returns the
// input unchanged, it never makes results worse.

const cleanupTimeout = 45 * time.Second

// orgTokens mark names that are institutions rather than people.
var orgTokens = []string{
	"university", "institute", "department", "laboratory", "college",
	"school", "center", "centre", "faculty", "academy", "foundation",
	"association", "society", "group", "team", "committee", "office",
	"inc", "llc", "ltd", "corporation", "company",
}

// CleanNames drops records whose names are clearly not people, then asks the
// model to vet the remainder in one batch. Returns the post-heuristic set
// unchanged when the model call fails.
func (e *Extractor) CleanNames(ctx context.Context, records []model.CandidateRecord) []model.CandidateRecord {
	kept := make([]model.CandidateRecord, 0, len(records))
	for _, r := range records {
		if LooksLikePersonName(r.Name) {
			kept = append(kept, r)
		} else {
			zap.L().Debug("dropping non-person record",
				zap.String("name", r.Name),
			)
		}
	}

	if !e.Configured() || len(kept) == 0 {
		return kept
	}

	ctx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	names := make([]string, len(kept))
	for i, r := range kept {
		names[i] = r.Name
	}

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: 1024,
		System: "You classify strings as person names or not. " +
			"Return a valid JSON array of booleans, one per input, nothing else.",
		Messages: []anthropic.Message{{Role: "user", Content: buildCleanupPrompt(names)}},
	})
	if err != nil {
		zap.L().Debug("name cleanup call failed, keeping all records", zap.Error(err))
		return kept
	}

	verdicts, err := parseCleanupVerdicts(resp.Text(), len(kept))
	if err != nil {
		zap.L().Debug("name cleanup parse failed, keeping all records", zap.Error(err))
		return kept
	}

	out := make([]model.CandidateRecord, 0, len(kept))
	for i, r := range kept {
		if verdicts[i] {
			out = append(out, r)
		} else {
			zap.L().Debug("model vetoed record name", zap.String("name", r.Name))
		}
	}
	return out
}

// LooksLikePersonName is the heuristic prefilter: rejects names containing
// digits or organization tokens, and names outside a plausible length band.
func LooksLikePersonName(name string) bool {
	name = strings.TrimSpace(name)
	if len(name) < 2 || len(name) > 80 {
		return false
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return false
		}
	}
	lower := strings.ToLower(name)
	for _, tok := range orgTokens {
		for _, word := range strings.FieldsFunc(lower, func(r rune) bool {
			return !unicode.IsLetter(r)
		}) {
			if word == tok {
				return false
			}
		}
	}
	return true
}

func buildCleanupPrompt(names []string) string {
	var b strings.Builder
	b.WriteString("For each string below, answer true if it is a real person's name and false otherwise ")
	b.WriteString("(organizations, page headings, and fragments are false).\n\n")
	for i, n := range names {
		fmt.Fprintf(&b, "%d. %s\n", i+1, n)
	}
	fmt.Fprintf(&b, "\nReturn a JSON array of exactly %d booleans.", len(names))
	return b.String()
}

func parseCleanupVerdicts(text string, want int) ([]bool, error) {
	cleaned := cleanJSONArray(text)
	if cleaned == "" {
		return nil, errNoVerdicts
	}
	var verdicts []bool
	if err := json.Unmarshal([]byte(cleaned), &verdicts); err != nil {
		return nil, err
	}
	if len(verdicts) != want {
		return nil, eris.Errorf("extract: got %d verdicts, want %d", len(verdicts), want)
	}
	return verdicts, nil
}

var errNoVerdicts = eris.New("extract: no JSON array in cleanup output")
