// Package query turns discovery preferences into provider query strings.
package query

import (
	"strings"

	"github.com/archway-labs/scout-cli/internal/model"
)

// profileSiteFilter restricts results to public profile pages when the
// caller is hunting individuals rather than directory pages.
const profileSiteFilter = `site:linkedin.com/in`

// Build is a pure function from preferences to a search query string. It is
// deterministic: the same preferences always produce the same query. The
// result is never empty; field and then purpose serve as fallbacks.
func Build(prefs model.DiscoveryPreferences, domainHint string) string {
	var terms []string

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			terms = append(terms, s)
		}
	}

	add(prefs.Field)
	add(prefs.Seniority)
	add(prefs.OrganizationType)
	add(prefs.Location)
	add(domainHint)

	for _, kw := range prefs.MustHave {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, quoteIfSpaced(kw))
	}
	for _, kw := range prefs.MustNot {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		terms = append(terms, "-"+quoteIfSpaced(kw))
	}

	if len(terms) == 0 {
		add(prefs.Purpose)
	}
	if len(terms) == 0 {
		terms = append(terms, "professional contact")
	}

	return strings.Join(terms, " ")
}

// BuildProfileSearch builds a query restricted to profile-like pages.
func BuildProfileSearch(prefs model.DiscoveryPreferences, domainHint string) string {
	return Build(prefs, domainHint) + " " + profileSiteFilter
}

// BuildDirectorySearch builds a query for locating an institution's faculty
// or people directory page.
func BuildDirectorySearch(req model.InstitutionCrawlRequest) string {
	parts := []string{req.InstitutionName, req.DepartmentHint, "faculty list"}
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

func quoteIfSpaced(s string) string {
	if strings.ContainsAny(s, " \t") {
		return `"` + s + `"`
	}
	return s
}
