package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Profile link classification for directory pages. A faculty or team listing
// links out to dozens of pages; only a fraction are individual profiles. The
// classifier is heuristic on purpose: false negatives cost one candidate,
// false positives cost a full fetch-extract round trip.

// profilePathHints mark URL paths that usually lead to a person's page.
var profilePathHints = []string{
	"/faculty",
	"/people",
	"/person",
	"/profile",
	"/profiles",
	"/researcher",
	"/staff-profile",
	"/bio",
	"/cv",
	"/~",
}

// excludedPathHints mark paths that match a profile hint but lead to
// administrative or navigational pages instead.
var excludedPathHints = []string{
	"staff-login",
	"office",
	"recruit",
	"apply",
	"give",
	"giving",
	"donate",
	"alumni",
	"news",
	"events",
	"support",
	"contact-us",
	"about-us",
}

// navLabels are anchor texts that mark navigation rather than a person.
var navLabels = map[string]struct{}{
	"home":       {},
	"about":      {},
	"contact":    {},
	"faculty":    {},
	"people":     {},
	"staff":      {},
	"directory":  {},
	"research":   {},
	"news":       {},
	"events":     {},
	"more":       {},
	"next":       {},
	"previous":   {},
	"back":       {},
	"apply":      {},
	"admissions": {},
}

// ProfileLinks returns the absolute URLs on the page that look like
// individual profile pages, deduplicated with fragments stripped, capped at
// limit (0 means no cap).
func (p *Page) ProfileLinks(limit int) []string {
	if p.doc == nil {
		return nil
	}

	base, err := url.Parse(p.URL)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string

	p.doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		label := strings.ToLower(strings.TrimSpace(s.Text()))

		resolved, ok := classifyProfileLink(base, href, label)
		if !ok {
			return true
		}
		if _, dup := seen[resolved]; dup {
			return true
		}
		seen[resolved] = struct{}{}
		links = append(links, resolved)
		return limit <= 0 || len(links) < limit
	})

	return links
}

// classifyProfileLink resolves href against base and reports whether it looks
// like an individual profile page.
func classifyProfileLink(base *url.URL, href, label string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	resolved.Fragment = ""

	if _, nav := navLabels[label]; nav {
		return "", false
	}

	path := strings.ToLower(resolved.Path)
	for _, bad := range excludedPathHints {
		if strings.Contains(path, bad) {
			return "", false
		}
	}

	matched := false
	for _, hint := range profilePathHints {
		if strings.Contains(path, hint) {
			matched = true
			break
		}
	}
	if !matched {
		return "", false
	}

	// A listing page links to itself and to section indexes; an individual
	// profile has a path segment past the section (or a ~user page).
	if resolved.String() == base.String() {
		return "", false
	}
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 && !strings.Contains(path, "/~") {
		return "", false
	}

	return resolved.String(), true
}
