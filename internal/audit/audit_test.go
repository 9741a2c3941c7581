package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archway-labs/scout-cli/internal/model"
)

type recordingSink struct {
	mu      sync.Mutex
	entries []RunEntry
	closed  bool
}

func (r *recordingSink) RecordRun(_ context.Context, entry RunEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func TestAsyncSink_DrainsOnClose(t *testing.T) {
	inner := &recordingSink{}
	s := NewAsync(inner)

	for i := 0; i < 10; i++ {
		require.NoError(t, s.RecordRun(context.Background(), RunEntry{ID: "run", Kind: "discover"}))
	}
	require.NoError(t, s.Close())

	assert.Len(t, inner.entries, 10)
	assert.True(t, inner.closed)
}

func TestAsyncSink_NeverBlocksWhenFull(t *testing.T) {
	inner := &recordingSink{}
	s := &AsyncSink{
		inner: inner,
		ch:    make(chan RunEntry), // unbuffered and nobody reading
		done:  make(chan struct{}),
	}

	doneCh := make(chan struct{})
	go func() {
		_ = s.RecordRun(context.Background(), RunEntry{ID: "dropped"})
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("RecordRun blocked on a saturated sink")
	}
}

func TestRecord(t *testing.T) {
	inner := &recordingSink{}

	Record(context.Background(), inner, "run-1", "discover",
		model.DiscoveryRequest{Field: "robotics"},
		&RecordedResult{
			Strategy: "keyed_search",
			Degraded: false,
			Records:  []model.CandidateRecord{{Name: "Jane Doe"}},
		},
		time.Now().Add(-time.Second),
	)

	require.Len(t, inner.entries, 1)
	e := inner.entries[0]
	assert.Equal(t, "run-1", e.ID)
	assert.Equal(t, "discover", e.Kind)
	assert.Equal(t, "keyed_search", e.Strategy)
	assert.Equal(t, 1, e.RecordCount)
	assert.GreaterOrEqual(t, e.DurationMS, int64(1000))
}

func TestRecord_NilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		Record(context.Background(), nil, "run", "discover", nil, nil, time.Now())
	})
}
