package extract

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-labs/scout-cli/internal/model"
)

func TestLooksLikePersonName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Jane Doe", true},
		{"José García-Márquez", true},
		{"A. Lee", true},
		{"State University", false},
		{"Department of Robotics", false},
		{"Robotics Lab Team", false},
		{"Page 3 of 10", false},
		{"X", false},
		{"Acme Inc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikePersonName(tt.name))
		})
	}
}

func TestCleanNames_HeuristicOnly(t *testing.T) {
	e := NewExtractor(nil, "")

	out := e.CleanNames(context.Background(), []model.CandidateRecord{
		{Name: "Jane Doe"},
		{Name: "State University"},
		{Name: "John Smith"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Jane Doe", out[0].Name)
	assert.Equal(t, "John Smith", out[1].Name)
}

func TestCleanNames_ModelVeto(t *testing.T) {
	mock := &mockAnthropicClient{responses: []string{`[true, false]`}}
	e := NewExtractor(mock, "claude-haiku")

	out := e.CleanNames(context.Background(), []model.CandidateRecord{
		{Name: "Jane Doe"},
		{Name: "Breaking News Today"},
	})

	require.Len(t, out, 1)
	assert.Equal(t, "Jane Doe", out[0].Name)
}

func TestCleanNames_ModelFailureKeepsAll(t *testing.T) {
	mock := &mockAnthropicClient{err: eris.New("boom")}
	e := NewExtractor(mock, "claude-haiku")

	records := []model.CandidateRecord{{Name: "Jane Doe"}, {Name: "John Smith"}}
	out := e.CleanNames(context.Background(), records)

	assert.Equal(t, records, out, "advisory pass never drops on failure")
}

func TestCleanNames_VerdictCountMismatchKeepsAll(t *testing.T) {
	mock := &mockAnthropicClient{responses: []string{`[true]`}}
	e := NewExtractor(mock, "claude-haiku")

	out := e.CleanNames(context.Background(), []model.CandidateRecord{
		{Name: "Jane Doe"}, {Name: "John Smith"},
	})

	assert.Len(t, out, 2)
}
