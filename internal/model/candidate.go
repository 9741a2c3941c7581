// Package model defines the data types shared across the discovery engine.
package model

import "strings"

// Uncertainty tags a record's evidentiary support. It is a confidence label,
// not a probability.
type Uncertainty string

const (
	UncertaintyLow    Uncertainty = "low"
	UncertaintyMedium Uncertainty = "medium"
	UncertaintyHigh   Uncertainty = "high"
)

// DefaultMatchScore is assigned to records with missing or invalid scores so
// they are not buried below legitimately low-scoring records.
const DefaultMatchScore = 70

// MaxEvidence bounds the evidence snippets a record carries. Merging
// duplicate records unions their evidence lists, so the bound is enforced
// after the union, keeping the earliest-seen snippets.
const MaxEvidence = 3

// CandidateRecord is a structured, evidence-backed description of one
// discovered person. Records are created per invocation and discarded after
// the ranked list is returned.
type CandidateRecord struct {
	Name         string      `json:"name"`
	Title        string      `json:"title,omitempty"`
	Organization string      `json:"organization,omitempty"`
	Domain       string      `json:"field,omitempty"`
	ContactEmail string      `json:"contact_email,omitempty"`
	ProfileURL   string      `json:"profile_url,omitempty"`
	MatchScore   int         `json:"match_score"`
	MatchReason  string      `json:"match_reason,omitempty"`
	Evidence     []string    `json:"evidence,omitempty"`
	SourceURLs   []string    `json:"source_urls"`
	Uncertainty  Uncertainty `json:"uncertainty"`

	// Profile detail fields populated by directory crawls.
	Education  []string `json:"education,omitempty"`
	Experience []string `json:"experience,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Projects   []string `json:"projects,omitempty"`

	// Extra carries adapter-specific metadata (department, school, ...).
	Extra map[string]string `json:"extra,omitempty"`
}

// IdentityKey returns the dedup grouping key: the first source URL when
// present, otherwise name plus contact email.
func (r CandidateRecord) IdentityKey() string {
	if len(r.SourceURLs) > 0 && strings.TrimSpace(r.SourceURLs[0]) != "" {
		return strings.TrimSpace(r.SourceURLs[0])
	}
	return strings.ToLower(strings.TrimSpace(r.Name)) + "\x00" + strings.ToLower(strings.TrimSpace(r.ContactEmail))
}

// CompletenessScore counts populated fields. Used to pick a winner when
// merging duplicate records.
func (r CandidateRecord) CompletenessScore() int {
	score := 0
	for _, s := range []string{r.Title, r.Organization, r.Domain, r.ContactEmail, r.ProfileURL, r.MatchReason} {
		if strings.TrimSpace(s) != "" {
			score++
		}
	}
	for _, list := range [][]string{r.Evidence, r.Education, r.Experience, r.Skills, r.Projects} {
		if anyNonEmpty(list) {
			score++
		}
	}
	return score
}

// Normalize enforces record invariants: scores are clamped into [0,100]
// (zero means unscored and becomes the default mid-range value), evidence is
// capped at MaxEvidence snippets, and records without source URLs are tagged
// high-uncertainty.
func (r *CandidateRecord) Normalize() {
	switch {
	case r.MatchScore <= 0:
		r.MatchScore = DefaultMatchScore
	case r.MatchScore > 100:
		r.MatchScore = 100
	}

	if len(r.Evidence) > MaxEvidence {
		r.Evidence = r.Evidence[:MaxEvidence]
	}

	cleaned := r.SourceURLs[:0]
	for _, u := range r.SourceURLs {
		if strings.TrimSpace(u) != "" {
			cleaned = append(cleaned, u)
		}
	}
	r.SourceURLs = cleaned

	if len(r.SourceURLs) == 0 {
		r.Uncertainty = UncertaintyHigh
	}
	if r.Uncertainty == "" {
		r.Uncertainty = UncertaintyMedium
	}
}

func anyNonEmpty(list []string) bool {
	for _, s := range list {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
