package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directoryHTML = `<html><body>
<nav><a href="/">Home</a> <a href="/people">People</a> <a href="/about-us">About</a></nav>
<ul>
  <li><a href="/people/jane-doe">Jane Doe</a></li>
  <li><a href="/people/john-smith#bio">John Smith</a></li>
  <li><a href="/people/john-smith">John Smith (again)</a></li>
  <li><a href="https://other.edu/faculty/a-lee">A. Lee</a></li>
  <li><a href="/people/recruiting">Recruiting</a></li>
  <li><a href="/news/people-in-the-news">People in the news</a></li>
  <li><a href="/~mchan">M. Chan</a></li>
  <li><a href="mailto:dept@u.edu">Email us</a></li>
  <li><a href="/apply/people">Apply</a></li>
</ul>
</body></html>`

func fetchDirectory(t *testing.T) *Page {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(directoryHTML))
	}))
	t.Cleanup(srv.Close)

	f := NewFetcher(WithRetryConfig(fastRetry()))
	page, err := f.Fetch(context.Background(), srv.URL+"/people/directory")
	require.NoError(t, err)
	return page
}

func TestProfileLinks(t *testing.T) {
	page := fetchDirectory(t)
	links := page.ProfileLinks(0)

	var paths []string
	for _, l := range links {
		paths = append(paths, l)
	}

	require.Len(t, links, 4, "got %v", paths)
	assert.Contains(t, links[0], "/people/jane-doe")
	assert.Contains(t, links[1], "/people/john-smith")
	assert.NotContains(t, links[1], "#", "fragments must be stripped")
	assert.Equal(t, "https://other.edu/faculty/a-lee", links[2])
	assert.Contains(t, links[3], "/~mchan")
}

func TestProfileLinks_Limit(t *testing.T) {
	page := fetchDirectory(t)
	assert.Len(t, page.ProfileLinks(2), 2)
}

func TestProfileLinks_RejectsNavAndExcluded(t *testing.T) {
	page := fetchDirectory(t)
	for _, l := range page.ProfileLinks(0) {
		assert.NotContains(t, l, "recruit")
		assert.NotContains(t, l, "news")
		assert.NotContains(t, l, "apply")
		assert.NotContains(t, l, "mailto")
	}
}

func TestClassifyProfileLink_NavLabel(t *testing.T) {
	page := fetchDirectory(t)
	// The nav bar's "People" link points at a matching path but is labeled
	// as navigation.
	for _, l := range page.ProfileLinks(0) {
		assert.NotEqual(t, page.URL+"/people", l)
	}
}
