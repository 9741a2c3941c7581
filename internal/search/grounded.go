package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/archway-labs/scout-cli/internal/resilience"
	"github.com/archway-labs/scout-cli/pkg/perplexity"
)

// groundedTimeout bounds one grounded completion including retries. Grounded
// calls do live retrieval, so they run much longer than plain searches.
const groundedTimeout = 2 * time.Minute

// GroundedResult is the output of one grounded search call: the synthesized
// answer plus the provenance URLs the model retrieved while generating it.
type GroundedResult struct {
	Text      string
	Citations []string
}

// GroundedSearcher runs web-grounded language-model completions. The default
// fallback backend: works without a search API key, returns attributable
// provenance through citations.
type GroundedSearcher struct {
	client perplexity.Client
	model  string
	retry  resilience.RetryConfig
}

// NewGroundedSearcher creates the grounded adapter. client may be nil when
// the API key is absent.
func NewGroundedSearcher(client perplexity.Client, model string) *GroundedSearcher {
	return &GroundedSearcher{
		client: client,
		model:  model,
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (g *GroundedSearcher) Name() string     { return "grounded_llm" }
func (g *GroundedSearcher) Configured() bool { return g.client != nil }

// SearchGrounded sends the prompt to the grounded model and returns its
// answer with citations. Empty completions are reported as empty results so
// the cascade can advance.
func (g *GroundedSearcher) SearchGrounded(ctx context.Context, prompt string) (*GroundedResult, error) {
	if !g.Configured() {
		return nil, eris.Wrap(resilience.ErrNotConfigured, "grounded_llm")
	}

	ctx, cancel := context.WithTimeout(ctx, groundedTimeout)
	defer cancel()

	retry := g.retry
	retry.OnRetry = resilience.RetryLogger(g.Name(), "chat_completion")

	temp := 0.2
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*perplexity.ChatCompletionResponse, error) {
		resp, err := g.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
			Model:       g.model,
			Messages:    []perplexity.Message{{Role: "user", Content: prompt}},
			Temperature: &temp,
		})
		if err != nil {
			var se *perplexity.StatusError
			if errors.As(err, &se) {
				return nil, resilience.ClassifyStatus(err, se.StatusCode)
			}
			return nil, resilience.NewTransportError(err, 0)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, eris.Wrap(resilience.ErrEmptyResult, "grounded_llm: empty completion")
	}

	return &GroundedResult{
		Text:      resp.Choices[0].Message.Content,
		Citations: resp.Citations,
	}, nil
}
