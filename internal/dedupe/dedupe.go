// Package dedupe collapses duplicate candidate records produced by different
// strategies or pages into single merged records.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/archway-labs/scout-cli/internal/model"
)

// foldTransformer strips diacritics so "José García" and "Jose Garcia" group
// under one key.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Merge groups records by identity and merges each group into one record.
// First-seen order is preserved in the output, the merge is idempotent, and
// within a group the most complete record wins the contested scalar fields.
func Merge(records []model.CandidateRecord) []model.CandidateRecord {
	if len(records) <= 1 {
		return records
	}

	groups := make(map[string]int)
	var merged []model.CandidateRecord

	for _, r := range records {
		key := identityKey(r)
		idx, seen := groups[key]
		if !seen {
			groups[key] = len(merged)
			merged = append(merged, r)
			continue
		}
		merged[idx] = mergePair(merged[idx], r)
	}

	return merged
}

// identityKey mirrors the record's identity with diacritic folding on the
// name half, so the same person spelled with and without accents merges.
func identityKey(r model.CandidateRecord) string {
	if len(r.SourceURLs) > 0 && strings.TrimSpace(r.SourceURLs[0]) != "" {
		return strings.TrimSpace(r.SourceURLs[0])
	}
	return FoldName(r.Name) + "\x00" + strings.ToLower(strings.TrimSpace(r.ContactEmail))
}

// FoldName lowercases and strips diacritics for identity comparison.
func FoldName(name string) string {
	folded, _, err := transform.String(foldTransformer, strings.TrimSpace(name))
	if err != nil {
		folded = strings.TrimSpace(name)
	}
	return strings.ToLower(folded)
}

// mergePair merges b into a. The record with the higher completeness score
// provides the contested scalar fields; on a tie the first-seen record wins.
// List fields are unioned either way.
func mergePair(a, b model.CandidateRecord) model.CandidateRecord {
	winner, loser := a, b
	if b.CompletenessScore() > a.CompletenessScore() {
		winner, loser = b, a
	}

	winner.Title = firstNonEmpty(winner.Title, loser.Title)
	winner.Organization = firstNonEmpty(winner.Organization, loser.Organization)
	winner.Domain = firstNonEmpty(winner.Domain, loser.Domain)
	winner.ContactEmail = firstNonEmpty(winner.ContactEmail, loser.ContactEmail)
	winner.ProfileURL = firstNonEmpty(winner.ProfileURL, loser.ProfileURL)
	winner.MatchReason = firstNonEmpty(winner.MatchReason, loser.MatchReason)

	if loser.MatchScore > winner.MatchScore {
		winner.MatchScore = loser.MatchScore
	}
	winner.Uncertainty = lessUncertain(winner.Uncertainty, loser.Uncertainty)

	winner.Evidence = unionStrings(winner.Evidence, loser.Evidence)
	winner.SourceURLs = unionStrings(winner.SourceURLs, loser.SourceURLs)
	winner.Education = unionStrings(winner.Education, loser.Education)
	winner.Experience = unionStrings(winner.Experience, loser.Experience)
	winner.Skills = unionStrings(winner.Skills, loser.Skills)
	winner.Projects = unionStrings(winner.Projects, loser.Projects)

	if len(loser.Extra) > 0 {
		if winner.Extra == nil {
			winner.Extra = make(map[string]string, len(loser.Extra))
		}
		for k, v := range loser.Extra {
			if _, ok := winner.Extra[k]; !ok {
				winner.Extra[k] = v
			}
		}
	}

	winner.Normalize()
	return winner
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

// lessUncertain keeps the stronger confidence label of the two.
func lessUncertain(a, b model.Uncertainty) model.Uncertainty {
	rank := map[model.Uncertainty]int{
		model.UncertaintyLow:    0,
		model.UncertaintyMedium: 1,
		model.UncertaintyHigh:   2,
	}
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case !okA:
		return b
	case !okB:
		return a
	case rb < ra:
		return b
	default:
		return a
	}
}

// unionStrings appends elements of b not already in a, preserving order.
func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a))
	for _, s := range a {
		seen[strings.TrimSpace(s)] = struct{}{}
	}
	for _, s := range b {
		key := strings.TrimSpace(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		a = append(a, s)
	}
	return a
}
