package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/archway-labs/scout-cli/internal/dedupe"
	"github.com/archway-labs/scout-cli/internal/extract"
	"github.com/archway-labs/scout-cli/internal/model"
	"github.com/archway-labs/scout-cli/internal/rank"
	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/internal/validate"
)

// ErrNoStrategies is returned when every cascade strategy is unconfigured.
// The only failure mode Discover reports as an error.
var ErrNoStrategies = eris.New("engine: no discovery strategy is configured")

// Result is the outcome of one discovery run.
type Result struct {
	Records      []model.CandidateRecord `json:"records"`
	StrategyUsed string                  `json:"strategy_used"`
	Degraded     bool                    `json:"degraded"`
}

// Engine runs the discovery cascade over an ordered strategy list.
type Engine struct {
	strategies []Strategy
	cfg        *Config
	cleaner    *extract.Extractor
}

// New creates an engine. Strategy order is cascade order. cleaner may be nil
// to skip the advisory name-cleanup pass.
func New(strategies []Strategy, cfg *Config, cleaner *extract.Extractor) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{
		strategies: strategies,
		cfg:        cfg,
		cleaner:    cleaner,
	}
}

// Discover walks the cascade until a strategy clears its acceptance
// threshold: enough records, at least one of them source-backed. Strategies
// that fall short are advanced past, never partially returned. When every
// strategy is exhausted, a single synthetic guidance record is returned. The
// run errors only when no strategy is configured.
func (e *Engine) Discover(ctx context.Context, req model.DiscoveryRequest) (*Result, error) {
	prefs := req.EffectivePreferences()

	configured := 0

	for _, s := range e.strategies {
		if !s.Configured() {
			zap.L().Debug("skipping unconfigured strategy", zap.String("strategy", s.Name()))
			continue
		}
		configured++

		records, err := s.Discover(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logStrategyFailure(s.Name(), err)
			continue
		}

		records = e.postProcess(ctx, records, prefs.TargetCount)
		minResults := e.cfg.MinResultsFor(s.Name())

		if len(records) >= minResults && (sourceFree(s.Name()) || anySourced(records)) {
			zap.L().Info("strategy accepted",
				zap.String("strategy", s.Name()),
				zap.Int("records", len(records)),
			)
			return &Result{
				Records:      records,
				StrategyUsed: s.Name(),
				Degraded:     s.Name() == "llm_only",
			}, nil
		}

		zap.L().Info("strategy rejected, advancing",
			zap.String("strategy", s.Name()),
			zap.Int("records", len(records)),
			zap.Int("min_results", minResults),
		)
	}

	if configured == 0 {
		return nil, ErrNoStrategies
	}

	return &Result{
		Records:      []model.CandidateRecord{syntheticRecord(prefs)},
		StrategyUsed: "synthetic",
		Degraded:     true,
	}, nil
}

// sourceFree marks strategies whose output is accepted without source URLs.
// Only the last-resort model pass qualifies; everything above it must ground
// its records in fetched or cited pages.
func sourceFree(name string) bool {
	return name == "llm_only"
}

func anySourced(records []model.CandidateRecord) bool {
	for _, r := range records {
		if len(r.SourceURLs) > 0 {
			return true
		}
	}
	return false
}

// postProcess is the shared tail of every strategy: advisory name cleanup,
// merge, profile URL validation, rank, truncate.
func (e *Engine) postProcess(ctx context.Context, records []model.CandidateRecord, targetCount int) []model.CandidateRecord {
	if e.cleaner != nil {
		records = e.cleaner.CleanNames(ctx, records)
	}
	records = dedupe.Merge(records)
	records = validate.Apply(records)
	return rank.Rank(records, targetCount)
}

func logStrategyFailure(name string, err error) {
	switch {
	case resilience.IsEmptyResult(err):
		zap.L().Info("strategy returned no results", zap.String("strategy", name))
	case resilience.IsNotConfigured(err):
		zap.L().Debug("strategy not configured", zap.String("strategy", name))
	default:
		zap.L().Warn("strategy failed",
			zap.String("strategy", name),
			zap.Error(err),
		)
	}
}

// syntheticRecord is the never-empty guarantee: a single record telling the
// user what to search for themselves.
func syntheticRecord(prefs model.DiscoveryPreferences) model.CandidateRecord {
	label := prefs.Field
	if label == "" {
		label = prefs.Purpose
	}
	if label == "" {
		label = "professional contact"
	}

	r := model.CandidateRecord{
		Name:        "Manual search suggested",
		MatchReason: "no discovery strategy produced candidates for " + label + "; the profile link runs the search manually",
		ProfileURL:  validate.SearchURL(label),
		MatchScore:  1,
		Uncertainty: model.UncertaintyHigh,
		Extra:       map[string]string{"synthetic": "true"},
	}
	r.Normalize()
	return r
}
