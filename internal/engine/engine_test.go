package engine

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-labs/scout-cli/internal/model"
)

type mockStrategy struct {
	name       string
	configured bool
	records    []model.CandidateRecord
	err        error
	calls      int
}

func (m *mockStrategy) Name() string     { return m.name }
func (m *mockStrategy) Configured() bool { return m.configured }
func (m *mockStrategy) Discover(_ context.Context, _ model.DiscoveryRequest) ([]model.CandidateRecord, error) {
	m.calls++
	return m.records, m.err
}

func someRecords(n int) []model.CandidateRecord {
	records := make([]model.CandidateRecord, n)
	names := []string{"Jane Doe", "John Smith", "A. Lee", "M. Chan", "R. Patel"}
	for i := range records {
		records[i] = model.CandidateRecord{
			Name:       names[i%len(names)],
			MatchScore: 80 - i,
			SourceURLs: []string{"https://u.edu/p/" + names[i%len(names)]},
		}
	}
	return records
}

func sourcelessRecords(n int) []model.CandidateRecord {
	records := someRecords(n)
	for i := range records {
		records[i].SourceURLs = nil
	}
	return records
}

func discoveryReq() model.DiscoveryRequest {
	return model.DiscoveryRequest{Field: "robotics", TargetCount: 10}
}

func TestDiscover_FirstStrategyAccepted(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, records: someRecords(3)}
	s2 := &mockStrategy{name: "grounded_llm", configured: true, records: someRecords(5)}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "keyed_search", result.StrategyUsed)
	assert.False(t, result.Degraded)
	assert.Len(t, result.Records, 3)
	assert.Equal(t, 0, s2.calls, "later strategies must not run after acceptance")
}

func TestDiscover_ThresholdAdvance(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, records: someRecords(2)}
	s2 := &mockStrategy{name: "grounded_llm", configured: true, records: someRecords(4)}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "grounded_llm", result.StrategyUsed, "two records are below the threshold of three")
	assert.Equal(t, 1, s1.calls)
	assert.Len(t, result.Records, 4)
	assert.False(t, result.Degraded)
}

func TestDiscover_LLMOnlyAcceptsOneAndDegrades(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, err: eris.New("quota")}
	s2 := &mockStrategy{name: "llm_only", configured: true, records: someRecords(1)}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "llm_only", result.StrategyUsed)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Records, 1)
}

func TestDiscover_SourcelessResultsAdvance(t *testing.T) {
	s1 := &mockStrategy{name: "grounded_llm", configured: true, records: sourcelessRecords(3)}
	s2 := &mockStrategy{name: "scrape_llm", configured: true, records: someRecords(3)}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "scrape_llm", result.StrategyUsed, "records without source URLs must not clear acceptance")
	assert.Equal(t, 1, s1.calls)
	assert.Equal(t, 1, s2.calls)
}

func TestDiscover_LLMOnlyAcceptsSourceless(t *testing.T) {
	s1 := &mockStrategy{name: "llm_only", configured: true, records: sourcelessRecords(1)}
	e := New([]Strategy{s1}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "llm_only", result.StrategyUsed)
	assert.True(t, result.Degraded)
	assert.Len(t, result.Records, 1)
}

func TestDiscover_ExhaustedReturnsSynthetic(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, records: someRecords(1)}
	s2 := &mockStrategy{name: "grounded_llm", configured: true, records: someRecords(2)}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	assert.Equal(t, "synthetic", result.StrategyUsed, "partial sets below threshold are never returned")
	assert.True(t, result.Degraded)
	require.Len(t, result.Records, 1)
	assert.Equal(t, "true", result.Records[0].Extra["synthetic"])
}

func TestDiscover_SyntheticFallback(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, err: eris.New("blocked")}
	s2 := &mockStrategy{name: "grounded_llm", configured: true, err: eris.New("down")}
	e := New([]Strategy{s1, s2}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err, "a fully failed cascade still returns a result")
	assert.Equal(t, "synthetic", result.StrategyUsed)
	assert.True(t, result.Degraded)
	require.Len(t, result.Records, 1)

	r := result.Records[0]
	assert.Equal(t, model.UncertaintyHigh, r.Uncertainty)
	assert.Contains(t, r.ProfileURL, "google.com/search")
	assert.Contains(t, r.ProfileURL, "robotics")
	assert.Equal(t, "true", r.Extra["synthetic"])
}

func TestDiscover_NoConfiguredStrategies(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: false}
	e := New([]Strategy{s1}, nil, nil)

	_, err := e.Discover(context.Background(), discoveryReq())

	assert.ErrorIs(t, err, ErrNoStrategies)
	assert.Equal(t, 0, s1.calls)
}

func TestDiscover_TruncatesToTargetCount(t *testing.T) {
	s1 := &mockStrategy{name: "keyed_search", configured: true, records: someRecords(5)}
	e := New([]Strategy{s1}, nil, nil)

	req := discoveryReq()
	req.TargetCount = 3
	result, err := e.Discover(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, result.Records, 3)
}

func TestDiscover_PostProcessMergesDuplicates(t *testing.T) {
	records := []model.CandidateRecord{
		{Name: "Jane Doe", SourceURLs: []string{"https://u.edu/jdoe"}, Title: "Professor", MatchScore: 80},
		{Name: "Jane Doe", SourceURLs: []string{"https://u.edu/jdoe"}, Education: []string{"PhD"}, MatchScore: 75},
		{Name: "John Smith", SourceURLs: []string{"https://x.org/js"}, MatchScore: 90},
		{Name: "A. Lee", SourceURLs: []string{"https://y.org/al"}, MatchScore: 85},
	}
	s1 := &mockStrategy{name: "keyed_search", configured: true, records: records}
	e := New([]Strategy{s1}, nil, nil)

	result, err := e.Discover(context.Background(), discoveryReq())

	require.NoError(t, err)
	require.Len(t, result.Records, 3)
	assert.Equal(t, "John Smith", result.Records[0].Name, "ranked by score")
	for _, r := range result.Records {
		if r.Name == "Jane Doe" {
			assert.Equal(t, "Professor", r.Title)
			assert.Equal(t, []string{"PhD"}, r.Education)
		}
	}
}
