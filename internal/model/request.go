package model

import "strings"

// DiscoveryPreferences describes the desired contact. Immutable input to the
// orchestrator.
type DiscoveryPreferences struct {
	Purpose                string   `json:"purpose"`
	Field                  string   `json:"field"`
	MustHave               []string `json:"must_have,omitempty"`
	MustNot                []string `json:"must_not,omitempty"`
	Seniority              string   `json:"seniority,omitempty"`
	OrganizationType       string   `json:"organization_type,omitempty"`
	Location               string   `json:"location,omitempty"`
	ContactabilityTradeoff string   `json:"contactability_tradeoff,omitempty"`
	TargetCount            int      `json:"target_count"`
}

// SenderContext carries optional profile facts about the requester, embedded
// into grounded search prompts to bias results toward good matches.
type SenderContext struct {
	Name       string   `json:"name,omitempty"`
	Education  []string `json:"education,omitempty"`
	Experience []string `json:"experience,omitempty"`
	Skills     []string `json:"skills,omitempty"`
}

// DiscoveryRequest is the engine-facing input for preference-driven discovery.
type DiscoveryRequest struct {
	Purpose     string                `json:"purpose"`
	Field       string                `json:"field"`
	Sender      *SenderContext        `json:"sender,omitempty"`
	Preferences *DiscoveryPreferences `json:"preferences,omitempty"`
	TargetCount int                   `json:"target_count"`
}

// EffectivePreferences merges top-level purpose/field/targetCount into the
// preferences object so downstream components see one shape.
func (r DiscoveryRequest) EffectivePreferences() DiscoveryPreferences {
	prefs := DiscoveryPreferences{}
	if r.Preferences != nil {
		prefs = *r.Preferences
	}
	if strings.TrimSpace(prefs.Purpose) == "" {
		prefs.Purpose = r.Purpose
	}
	if strings.TrimSpace(prefs.Field) == "" {
		prefs.Field = r.Field
	}
	if prefs.TargetCount <= 0 {
		prefs.TargetCount = r.TargetCount
	}
	if prefs.TargetCount <= 0 {
		prefs.TargetCount = 10
	}
	return prefs
}

// InstitutionCrawlRequest asks for candidates from one institution's public
// directory pages.
type InstitutionCrawlRequest struct {
	InstitutionName string `json:"institution_name" yaml:"institution_name"`
	DepartmentHint  string `json:"department_hint,omitempty" yaml:"department_hint"`
	ListURL         string `json:"list_url,omitempty" yaml:"list_url"`
	Limit           int    `json:"limit,omitempty" yaml:"limit"`
}
