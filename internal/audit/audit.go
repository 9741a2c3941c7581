// Package audit persists a best-effort trail of discovery runs. The sink
// never blocks or fails a discovery: writes happen on a background goroutine
// and are dropped with a log line when the sink is saturated or broken.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/model"
)

// RunEntry is one audited discovery or crawl run.
type RunEntry struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"` // "discover" or "crawl"
	Request     any       `json:"request"`
	Strategy    string    `json:"strategy"`
	Degraded    bool      `json:"degraded"`
	RecordCount int       `json:"record_count"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sink persists run entries.
type Sink interface {
	RecordRun(ctx context.Context, entry RunEntry) error
	Close() error
}

// NopSink discards everything. Used when auditing is disabled.
type NopSink struct{}

func (NopSink) RecordRun(context.Context, RunEntry) error { return nil }
func (NopSink) Close() error                              { return nil }

const (
	asyncBufferSize = 64
	writeTimeout    = 5 * time.Second
)

// AsyncSink decouples audit writes from the request path. Entries queue on a
// buffered channel; when the buffer is full the entry is dropped.
type AsyncSink struct {
	inner Sink
	ch    chan RunEntry
	done  chan struct{}
}

// NewAsync wraps inner with a background writer.
func NewAsync(inner Sink) *AsyncSink {
	s := &AsyncSink{
		inner: inner,
		ch:    make(chan RunEntry, asyncBufferSize),
		done:  make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *AsyncSink) loop() {
	defer close(s.done)
	for entry := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := s.inner.RecordRun(ctx, entry); err != nil {
			zap.L().Warn("audit write failed",
				zap.String("run_id", entry.ID),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// RecordRun queues the entry. Never blocks: a full buffer drops the entry.
func (s *AsyncSink) RecordRun(_ context.Context, entry RunEntry) error {
	select {
	case s.ch <- entry:
	default:
		zap.L().Warn("audit buffer full, dropping entry", zap.String("run_id", entry.ID))
	}
	return nil
}

// Close drains pending entries and closes the inner sink.
func (s *AsyncSink) Close() error {
	close(s.ch)
	<-s.done
	return s.inner.Close()
}

// Record is the engine-facing helper: builds and queues an entry from a
// finished run.
func Record(ctx context.Context, sink Sink, id, kind string, request any, result *RecordedResult, started time.Time) {
	if sink == nil {
		return
	}
	entry := RunEntry{
		ID:         id,
		Kind:       kind,
		Request:    request,
		DurationMS: time.Since(started).Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if result != nil {
		entry.Strategy = result.Strategy
		entry.Degraded = result.Degraded
		entry.RecordCount = len(result.Records)
	}
	if err := sink.RecordRun(ctx, entry); err != nil {
		zap.L().Warn("audit record failed", zap.Error(err))
	}
}

// RecordedResult is the slice of a run the audit trail keeps.
type RecordedResult struct {
	Strategy string
	Degraded bool
	Records  []model.CandidateRecord
}
