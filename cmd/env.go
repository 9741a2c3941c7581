package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/audit"
	"github.com/archway-labs/scout-cli/internal/engine"
	"github.com/archway-labs/scout-cli/internal/enrich"
	"github.com/archway-labs/scout-cli/internal/extract"
	"github.com/archway-labs/scout-cli/internal/fetch"
	"github.com/archway-labs/scout-cli/internal/search"
	anthropicpkg "github.com/archway-labs/scout-cli/pkg/anthropic"
	"github.com/archway-labs/scout-cli/pkg/googlecse"
	"github.com/archway-labs/scout-cli/pkg/perplexity"
)

// scoutEnv holds the initialized clients, the discovery engine, and the
// crawler shared by the discover/crawl/serve commands.
type scoutEnv struct {
	Engine   *engine.Engine
	Crawler  *engine.Crawler
	Audit    audit.Sink
	Crossref *enrich.CrossrefClient // may be nil
}

// Close releases resources held by the environment.
func (e *scoutEnv) Close() {
	if e.Audit != nil {
		_ = e.Audit.Close()
	}
}

// initScout validates the config for mode, builds the API clients, the
// strategy cascade, and the audit sink. Callers should defer env.Close().
func initScout(ctx context.Context, mode string) (*scoutEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	// API clients. A missing key leaves the client nil; the strategy built
	// on it reports itself unconfigured and the cascade skips it.
	var cseClient googlecse.Client
	if cfg.Search.GoogleKey != "" && cfg.Search.GoogleCX != "" {
		cseClient = googlecse.NewClient(cfg.Search.GoogleKey, cfg.Search.GoogleCX)
	} else {
		zap.L().Debug("SCOUT_SEARCH_GOOGLE_API_KEY not set, keyed search disabled")
	}

	var pplxClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		pplxClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	} else {
		zap.L().Debug("SCOUT_PERPLEXITY_KEY not set, grounded search disabled")
	}

	var anthClient anthropicpkg.Client
	if cfg.Anthropic.Key != "" {
		anthClient = anthropicpkg.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Warn("SCOUT_ANTHROPIC_KEY not set, extraction falls back to heuristics")
	}

	extractor := extract.NewExtractor(anthClient, cfg.Anthropic.Model)

	// Name cleanup runs on the cheaper model.
	var cleaner *extract.Extractor
	if anthClient != nil {
		cleaner = extract.NewExtractor(anthClient, cfg.Anthropic.CleanupModel)
	}

	fetcher := fetch.NewPoliteFetcher(
		fetch.NewFetcher(fetch.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		})),
		fetch.WithConcurrency(cfg.Fetch.Concurrency),
		fetch.WithDelayBand(
			time.Duration(cfg.Fetch.MinDelayMS)*time.Millisecond,
			time.Duration(cfg.Fetch.MaxDelayMS)*time.Millisecond,
		),
	)

	keyed := search.NewKeyedProvider(cseClient)
	grounded := search.NewGroundedSearcher(pplxClient, cfg.Perplexity.Model)
	scraper := search.NewScrapeProvider(cfg.Search.ScrapeEnable)

	// Cascade order and thresholds come from the optional config file.
	cascadeCfg := engine.DefaultConfig()
	if cfg.Cascade.ConfigPath != "" {
		loaded, err := engine.LoadConfig(cfg.Cascade.ConfigPath)
		if err != nil {
			zap.L().Warn("cascade config not loaded, using defaults", zap.Error(err))
		} else {
			cascadeCfg = loaded
		}
	}

	strategies := make([]engine.Strategy, 0, len(cascadeCfg.Strategies))
	for _, sc := range cascadeCfg.Strategies {
		switch sc.Name {
		case "keyed_search":
			strategies = append(strategies, engine.NewSearchStrategy("keyed_search", keyed, fetcher, extractor))
		case "grounded_llm":
			strategies = append(strategies, engine.NewGroundedStrategy(grounded))
		case "scrape_llm":
			strategies = append(strategies, engine.NewSearchStrategy("scrape_llm", scraper, fetcher, extractor))
		case "llm_only":
			strategies = append(strategies, engine.NewLLMOnlyStrategy(anthClient, cfg.Anthropic.Model))
		default:
			zap.L().Warn("unknown cascade strategy, skipping", zap.String("name", sc.Name))
		}
	}

	sink, err := initAudit(ctx)
	if err != nil {
		return nil, err
	}

	var crossref *enrich.CrossrefClient
	if cfg.Crossref.Enable {
		crossref = enrich.NewCrossrefClient(cfg.Crossref.Mailto)
	}

	return &scoutEnv{
		Engine:   engine.New(strategies, cascadeCfg, cleaner),
		Crawler:  engine.NewCrawler([]search.Provider{keyed, scraper}, grounded, fetcher, extractor),
		Audit:    sink,
		Crossref: crossref,
	}, nil
}

// initAudit builds the run audit sink for the configured driver. Writes go
// through an async wrapper so slow storage never stalls a run.
func initAudit(ctx context.Context) (audit.Sink, error) {
	switch cfg.Audit.Driver {
	case "off":
		return audit.NopSink{}, nil
	case "postgres":
		pg, err := audit.NewPostgres(ctx, cfg.Audit.DatabaseURL)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres audit sink")
		}
		return audit.NewAsync(pg), nil
	default:
		sq, err := audit.NewSQLite(ctx, cfg.Audit.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite audit sink")
		}
		return audit.NewAsync(sq), nil
	}
}
