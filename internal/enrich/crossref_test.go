package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-labs/scout-cli/internal/model"
)

const worksJSON = `{"message": {"items": [
	{"title": ["Learning Robot Grasping"], "DOI": "10.1000/abc123", "published": {"date-parts": [[2023, 5]]}},
	{"title": ["Untitled Followup"], "DOI": "10.1000/def456", "published": {"date-parts": []}},
	{"title": [], "DOI": "10.1000/no-title"}
]}}`

func TestWorksByAuthor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		assert.Equal(t, "Jane Doe", r.URL.Query().Get("query.author"))
		assert.Equal(t, "3", r.URL.Query().Get("rows"))
		assert.Equal(t, "ops@example.org", r.URL.Query().Get("mailto"))
		_, _ = w.Write([]byte(worksJSON))
	}))
	defer srv.Close()

	c := NewCrossrefClient("ops@example.org", WithBaseURL(srv.URL))
	works, err := c.WorksByAuthor(context.Background(), "Jane Doe", 3)

	require.NoError(t, err)
	require.Len(t, works, 2, "untitled items are dropped")
	assert.Equal(t, "Learning Robot Grasping", works[0].Title)
	assert.Equal(t, "10.1000/abc123", works[0].DOI)
	assert.Equal(t, 2023, works[0].Year)
	assert.Zero(t, works[1].Year)
}

func TestWorksByAuthor_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewCrossrefClient("", WithBaseURL(srv.URL))
	_, err := c.WorksByAuthor(context.Background(), "Jane Doe", 3)
	assert.Error(t, err)
}

func TestPublications(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query.author") == "Jane Doe" {
			_, _ = w.Write([]byte(worksJSON))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCrossrefClient("", WithBaseURL(srv.URL))
	records := []model.CandidateRecord{
		{Name: "Jane Doe"},
		{Name: "Failing Lookup"},
	}

	out := Publications(context.Background(), c, records)

	require.Len(t, out, 2)
	require.Len(t, out[0].Projects, 2)
	assert.Equal(t, "Learning Robot Grasping (2023) doi:10.1000/abc123", out[0].Projects[0])
	assert.Empty(t, out[1].Projects, "failed lookups leave the record untouched")
}

func TestPublications_NilClient(t *testing.T) {
	records := []model.CandidateRecord{{Name: "Jane Doe"}}
	assert.Equal(t, records, Publications(context.Background(), nil, records))
}
