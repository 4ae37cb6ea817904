// Package synth feeds aggregated provider context into a language model
// under a strict no-fabrication contract and parses the fixed-shape JSON
// answer into an EnrichmentResult.
package synth

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/model"
	"github.com/leadflow/enrich-cli/pkg/anthropic"
)

const defaultMaxTokens = 1024

// Engine synthesizes enrichment results from provider context.
type Engine struct {
	client        anthropic.Client
	model         string
	contextBudget int
}

// NewEngine creates an Engine. budget <= 0 selects DefaultContextBudget.
func NewEngine(client anthropic.Client, modelID string, budget int) *Engine {
	if budget <= 0 {
		budget = DefaultContextBudget
	}
	return &Engine{client: client, model: modelID, contextBudget: budget}
}

// Synthesize runs one model call over the aggregated context.
//
// A transport/API failure returns (nil, err): the attempt is retryable and
// must not be billed. A response that cannot be parsed returns an all-empty
// low-confidence result with ParseFailed=true — the model did answer, the
// answer was just unusable.
func (e *Engine) Synthesize(ctx context.Context, req model.EnrichmentRequest, sections []Section) (*model.EnrichmentResult, bool, error) {
	prompt := buildPrompt(req, sections, e.contextBudget)

	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: defaultMaxTokens,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, false, eris.Wrap(err, "synth: model call failed")
	}

	zap.L().Debug("synth: model responded",
		zap.String("model", e.model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
	)

	result, perr := parseResult(resp.Text)
	if perr != nil {
		zap.L().Warn("synth: unparseable model response, returning empty result",
			zap.String("entity", req.EntityName),
			zap.Error(perr),
		)
		return emptyResult(), true, nil
	}
	return result, false, nil
}
