package fetch

import (
	"context"
	"math/rand"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// Per-host delay band. Randomized so repeated visits do not form a
	// detectable cadence.
	minHostDelay = 1500 * time.Millisecond
	maxHostDelay = 3500 * time.Millisecond

	// defaultConcurrency bounds parallel fetches across distinct hosts.
	defaultConcurrency = 4
)

// PoliteFetcher wraps a Fetcher with per-host pacing: requests to the same
// host are serialized and spaced by a randomized delay, while distinct hosts
// proceed in parallel up to the concurrency bound.
type PoliteFetcher struct {
	fetcher     *Fetcher
	concurrency int
	minDelay    time.Duration
	maxDelay    time.Duration

	mu    sync.Mutex
	gates map[string]*hostGate
}

type hostGate struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

// PoliteOption configures a PoliteFetcher.
type PoliteOption func(*PoliteFetcher)

// WithConcurrency sets the parallel fetch bound.
func WithConcurrency(n int) PoliteOption {
	return func(p *PoliteFetcher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithDelayBand sets the per-host delay band (for testing).
func WithDelayBand(min, max time.Duration) PoliteOption {
	return func(p *PoliteFetcher) {
		p.minDelay = min
		p.maxDelay = max
	}
}

// NewPoliteFetcher wraps f with per-host pacing.
func NewPoliteFetcher(f *Fetcher, opts ...PoliteOption) *PoliteFetcher {
	p := &PoliteFetcher{
		fetcher:     f,
		concurrency: defaultConcurrency,
		minDelay:    minHostDelay,
		maxDelay:    maxHostDelay,
		gates:       make(map[string]*hostGate),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Fetch retrieves one URL after waiting its host's turn. The host gate is
// held for the duration of the request so same-host fetches never overlap.
func (p *PoliteFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	if SkippedHost(rawURL) {
		return nil, ErrSkippedHost
	}

	gate := p.gate(hostOf(rawURL))
	gate.mu.Lock()
	defer gate.mu.Unlock()

	if err := p.wait(ctx, gate); err != nil {
		return nil, err
	}
	return p.fetcher.Fetch(ctx, rawURL)
}

// FetchAll retrieves the URLs with bounded parallelism. Individual failures
// are logged and dropped; the returned pages preserve input order. The only
// error returned is context cancellation.
func (p *PoliteFetcher) FetchAll(ctx context.Context, urls []string) ([]*Page, error) {
	pages := make([]*Page, len(urls))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			page, err := p.Fetch(ctx, u)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				zap.L().Debug("skipping unfetchable page",
					zap.String("url", u),
					zap.Error(err),
				)
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*Page, 0, len(pages))
	for _, page := range pages {
		if page != nil {
			out = append(out, page)
		}
	}
	return out, nil
}

// wait blocks until the gate's host is clear to fetch again. Callers hold
// the gate mutex.
func (p *PoliteFetcher) wait(ctx context.Context, gate *hostGate) error {
	if err := gate.limiter.Wait(ctx); err != nil {
		return err
	}

	// Randomized spread on top of the base interval.
	if p.maxDelay > p.minDelay {
		jitter := time.Duration(rand.Int63n(int64(p.maxDelay - p.minDelay)))
		select {
		case <-time.After(jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (p *PoliteFetcher) gate(host string) *hostGate {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.gates[host]
	if !ok {
		// Burst 1 with the minimum interval as the refill rate: the first
		// request passes immediately, later ones pace out.
		g = &hostGate{limiter: rate.NewLimiter(rate.Every(p.minDelay), 1)}
		p.gates[host] = g
	}
	return g
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
