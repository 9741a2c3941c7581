// Package extract turns unstructured page text and grounded model output into
// candidate records. Extraction is LLM-first with a regex heuristic fallback,
// so a page never fails outright once it has been fetched.
package extract

import (
	"fmt"
	"strings"

	"github.com/archway-labs/scout-cli/internal/model"
)

// candidateSchema is the JSON shape every extraction prompt asks for. Kept in
// one place so page, snippet, and grounded prompts stay in sync.
const candidateSchema = `[
  {
    "name": "<full name>",
    "title": "<role or position, or null>",
    "organization": "<employer or institution, or null>",
    "field": "<professional field, or null>",
    "contact_email": "<email if visible on the page, or null>",
    "profile_url": "<canonical profile URL, or null>",
    "match_score": <0-100 fit against the stated preferences>,
    "match_reason": "<one sentence on why this person fits>",
    "evidence": ["<verbatim supporting quote from the source>"],
    "source_urls": ["<URL the fact came from>"],
    "uncertainty": "<low|medium|high>"
  }
]`

const extractionSystemText = "You are a research assistant extracting real people from web pages. " +
	"Return a valid JSON array matching the requested schema, nothing else. " +
	"Only include people actually named in the source text. Never invent names, emails, or URLs. " +
	"Return [] when the page names no matching person."

// BuildPagePrompt asks for candidates matching prefs from one fetched page.
func BuildPagePrompt(prefs model.DiscoveryPreferences, pageURL, pageText string) string {
	var b strings.Builder
	b.WriteString("Extract every person on this page who matches the preferences below.\n\n")
	writePreferences(&b, prefs)
	b.WriteString("\nOutput JSON schema:\n")
	b.WriteString(candidateSchema)
	fmt.Fprintf(&b, "\n\nPage URL: %s\nPage content:\n%s\n", pageURL, pageText)
	return b.String()
}

// BuildProfilePrompt asks for one person's full profile from their page.
// Used by directory crawls, where each fetched page is a single profile.
func BuildProfilePrompt(institution, pageURL, pageText string) string {
	var b strings.Builder
	b.WriteString("This page is an individual profile from ")
	b.WriteString(institution)
	b.WriteString(". Extract the person it describes.\n\n")
	b.WriteString("In addition to the base fields, populate these when present:\n")
	b.WriteString(`  "education": ["<degree, institution, year>"]` + "\n")
	b.WriteString(`  "experience": ["<role, organization, period>"]` + "\n")
	b.WriteString(`  "skills": ["<skill or research area>"]` + "\n")
	b.WriteString(`  "projects": ["<project or publication>"]` + "\n")
	b.WriteString("\nOutput JSON schema:\n")
	b.WriteString(candidateSchema)
	fmt.Fprintf(&b, "\n\nPage URL: %s\nPage content:\n%s\n", pageURL, pageText)
	return b.String()
}

// BuildSnippetPrompt asks for candidates from search result snippets alone.
// Weaker evidence than full pages; the prompt says so to keep scores honest.
func BuildSnippetPrompt(prefs model.DiscoveryPreferences, results []model.SearchResult) string {
	var b strings.Builder
	b.WriteString("Extract people matching the preferences below from these search result snippets. ")
	b.WriteString("Snippets are thin evidence: mark uncertainty medium or high and do not infer facts the snippet does not state.\n\n")
	writePreferences(&b, prefs)
	b.WriteString("\nOutput JSON schema:\n")
	b.WriteString(candidateSchema)
	b.WriteString("\n\nSearch results:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String()
}

// BuildDiscoveryPrompt is the grounded search prompt: the model does its own
// retrieval, so the prompt carries the full request including sender context.
func BuildDiscoveryPrompt(req model.DiscoveryRequest) string {
	prefs := req.EffectivePreferences()

	var b strings.Builder
	fmt.Fprintf(&b, "Find %d real, currently active people who match the preferences below. ", prefs.TargetCount)
	b.WriteString("Use only information you can attribute to a source.\n\n")
	writePreferences(&b, prefs)

	if s := req.Sender; s != nil {
		b.WriteString("\nThe person searching (for match relevance, do not include them in results):\n")
		if s.Name != "" {
			fmt.Fprintf(&b, "  Name: %s\n", s.Name)
		}
		writeList(&b, "Education", s.Education)
		writeList(&b, "Experience", s.Experience)
		writeList(&b, "Skills", s.Skills)
	}

	b.WriteString("\nReturn a valid JSON array matching this schema, nothing else:\n")
	b.WriteString(candidateSchema)
	return b.String()
}

// BuildDirectoryDiscoveryPrompt asks a grounded model for the public directory
// listing URL of an institution's department.
func BuildDirectoryDiscoveryPrompt(institution, departmentHint string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Find the public faculty or team directory page of %s", institution)
	if departmentHint != "" {
		fmt.Fprintf(&b, " (%s)", departmentHint)
	}
	b.WriteString(". Return a JSON object, nothing else: {\"url\": \"<directory listing URL>\"}")
	return b.String()
}

func writePreferences(b *strings.Builder, prefs model.DiscoveryPreferences) {
	b.WriteString("Preferences:\n")
	if prefs.Purpose != "" {
		fmt.Fprintf(b, "  Purpose: %s\n", prefs.Purpose)
	}
	if prefs.Field != "" {
		fmt.Fprintf(b, "  Field: %s\n", prefs.Field)
	}
	if prefs.Seniority != "" {
		fmt.Fprintf(b, "  Seniority: %s\n", prefs.Seniority)
	}
	if prefs.OrganizationType != "" {
		fmt.Fprintf(b, "  Organization type: %s\n", prefs.OrganizationType)
	}
	if prefs.Location != "" {
		fmt.Fprintf(b, "  Location: %s\n", prefs.Location)
	}
	writeList(b, "Must have", prefs.MustHave)
	writeList(b, "Must not have", prefs.MustNot)
	if prefs.ContactabilityTradeoff != "" {
		fmt.Fprintf(b, "  Contactability tradeoff: %s\n", prefs.ContactabilityTradeoff)
	}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, strings.Join(items, "; "))
}
