package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/archway-labs/scout-cli/internal/model"
)

func TestIsValidProfileURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"real linkedin handle", "https://www.linkedin.com/in/jane-doe-87234", true},
		{"placeholder slug", "https://linkedin.com/in/test123", false},
		{"two-char slug", "https://linkedin.com/in/ab", false},
		{"single-char slug", "https://linkedin.com/in/a", false},
		{"generic user slug", "https://www.linkedin.com/in/user456", false},
		{"johndoe slug", "https://linkedin.com/in/johndoe", false},
		{"company path", "https://linkedin.com/company/acme", false},
		{"university profile", "https://u.edu/people/jane-doe", true},
		{"bare domain", "https://u.edu/", false},
		{"not a url", "jane doe's page", false},
		{"empty", "", false},
		{"ftp scheme", "ftp://u.edu/people/jdoe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidProfileURL(tt.url))
		})
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("Jane Doe")
	assert.Equal(t, "https://www.google.com/search?q=%22Jane+Doe%22", got)
}

func TestApply(t *testing.T) {
	records := []model.CandidateRecord{
		{Name: "Jane Doe", ProfileURL: "https://linkedin.com/in/jane-doe-87234", Uncertainty: model.UncertaintyLow},
		{Name: "John Smith", ProfileURL: "https://linkedin.com/in/test123", Uncertainty: model.UncertaintyLow},
		{Name: "No URL"},
	}

	out := Apply(records)

	assert.Equal(t, "https://linkedin.com/in/jane-doe-87234", out[0].ProfileURL)
	assert.Equal(t, model.UncertaintyLow, out[0].Uncertainty)

	assert.Equal(t, SearchURL("John Smith"), out[1].ProfileURL)
	assert.Equal(t, model.UncertaintyMedium, out[1].Uncertainty,
		"substituted URLs cost a confidence notch")

	assert.Empty(t, out[2].ProfileURL, "missing URLs stay missing")
}
