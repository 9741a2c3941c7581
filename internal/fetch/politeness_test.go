package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoliteFetcher_FetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>` + r.URL.Path + `</title></head><body>ok</body></html>`))
	}))
	defer srv.Close()

	p := NewPoliteFetcher(
		NewFetcher(WithRetryConfig(fastRetry())),
		WithDelayBand(0, 0),
	)

	pages, err := p.FetchAll(context.Background(), []string{
		srv.URL + "/a",
		srv.URL + "/missing",
		srv.URL + "/b",
		"https://facebook.com/someone",
	})

	require.NoError(t, err)
	require.Len(t, pages, 2, "failures and skipped hosts are dropped")
	assert.Equal(t, "/a", pages[0].Title)
	assert.Equal(t, "/b", pages[1].Title, "input order is preserved")
}

func TestPoliteFetcher_SerializesPerHost(t *testing.T) {
	var mu sync.Mutex
	var inFlight, maxInFlight int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	p := NewPoliteFetcher(
		NewFetcher(WithRetryConfig(fastRetry())),
		WithDelayBand(time.Millisecond, 2*time.Millisecond),
	)

	urls := []string{srv.URL + "/1", srv.URL + "/2", srv.URL + "/3", srv.URL + "/4"}
	_, err := p.FetchAll(context.Background(), urls)

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, maxInFlight, "same-host requests must not overlap")
}

func TestPoliteFetcher_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	p := NewPoliteFetcher(
		NewFetcher(WithRetryConfig(fastRetry())),
		WithDelayBand(time.Hour, 2*time.Hour),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// First request passes the limiter's initial burst, the second blocks in
	// the delay band until the context expires.
	_, err := p.FetchAll(ctx, []string{srv.URL + "/1", srv.URL + "/2"})
	assert.Error(t, err)
}
