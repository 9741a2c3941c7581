// Package validate checks candidate profile URLs for the fabrication
// patterns language models produce, and substitutes a deterministic search
// URL for the ones that fail.
package validate

import (
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
)

// genericSlugRe matches placeholder slugs models invent when they do not
// know the real handle: a generic word, optionally followed by digits.
var genericSlugRe = regexp.MustCompile(`^(?:test|user|profile|example|sample|fake|demo|person|name|admin|null|none|unknown|johndoe|janedoe)[-_]?\d*$`)

// IsValidProfileURL reports whether a profile URL is plausibly real. Non-URL
// strings and bare hosts fail. LinkedIn-style URLs additionally get their
// handle slug checked against placeholder patterns.
func IsValidProfileURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Hostname() == "" {
		return false
	}

	if isLinkedInHost(u.Hostname()) {
		return validLinkedInPath(u.Path)
	}

	// Other hosts only need a real path: a bare domain is not a profile.
	return strings.Trim(u.Path, "/") != ""
}

func isLinkedInHost(host string) bool {
	host = strings.ToLower(host)
	return host == "linkedin.com" || strings.HasSuffix(host, ".linkedin.com")
}

// validLinkedInPath checks /in/<slug> handles. Slugs shorter than three
// characters or matching placeholder patterns are treated as fabricated.
func validLinkedInPath(path string) bool {
	trimmed := strings.Trim(path, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 || parts[0] != "in" {
		return false
	}
	slug := strings.ToLower(parts[1])
	if len(slug) < 3 {
		return false
	}
	return !genericSlugRe.MatchString(slug)
}

// SearchURL is the deterministic substitute for an invalid or missing
// profile URL: a name search the reader can run themselves.
func SearchURL(name string) string {
	query := `"` + strings.TrimSpace(name) + `"`
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// Apply replaces invalid profile URLs across the records with search URLs.
// Records are modified in place and returned for chaining.
func Apply(records []model.CandidateRecord) []model.CandidateRecord {
	for i := range records {
		r := &records[i]
		if r.ProfileURL == "" {
			continue
		}
		if IsValidProfileURL(r.ProfileURL) {
			continue
		}
		zap.L().Debug("replacing implausible profile url",
			zap.String("name", r.Name),
			zap.String("url", r.ProfileURL),
		)
		r.ProfileURL = SearchURL(r.Name)
		if r.Uncertainty == model.UncertaintyLow {
			r.Uncertainty = model.UncertaintyMedium
		}
	}
	return records
}
