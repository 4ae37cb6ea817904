// Package provider implements the context providers the enrichment
// orchestrator fans out to: web search, site scrape, and registry lookup.
// Providers are best-effort; every failure degrades to an empty context at
// this boundary and never propagates.
package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/model"
	"github.com/leadflow/enrich-cli/pkg/jina"
	"github.com/leadflow/enrich-cli/pkg/perplexity"
)

// defaultMaxSnippets bounds how many search hits feed the prompt downstream.
const defaultMaxSnippets = 6

// ownershipTerms steer the search toward registry and ownership signals.
const ownershipTerms = "CNPJ sócio proprietário quadro societário contato instagram"

// WebSearch queries a generic web-search API for context snippets about the
// entity. When the search API fails it falls back to a single Perplexity
// completion; when both fail it returns an empty context.
type WebSearch struct {
	jina        jina.Client
	pplx        perplexity.Client // optional
	maxSnippets int
}

// NewWebSearch creates a WebSearch provider. pplx may be nil to disable the
// fallback path.
func NewWebSearch(jc jina.Client, pplx perplexity.Client) *WebSearch {
	return &WebSearch{jina: jc, pplx: pplx, maxSnippets: defaultMaxSnippets}
}

// Name identifies the provider in degradation reports.
func (w *WebSearch) Name() string { return "web_search" }

// Query builds the search query for a request.
func (w *WebSearch) Query(req model.EnrichmentRequest) string {
	return fmt.Sprintf("%q %s %s", req.EntityName, req.Location, ownershipTerms)
}

// Search returns concatenated snippet blocks, or "" when nothing usable was
// found. It never returns an error.
func (w *WebSearch) Search(ctx context.Context, req model.EnrichmentRequest) string {
	query := w.Query(req)

	resp, err := w.jina.Search(ctx, query)
	if err == nil && len(resp.Data) > 0 {
		return w.formatSnippets(resp.Data)
	}
	if err != nil {
		zap.L().Warn("provider: web search failed, trying fallback",
			zap.String("entity", req.EntityName),
			zap.Error(err),
		)
	}

	return w.fallback(ctx, req)
}

func (w *WebSearch) formatSnippets(results []jina.SearchResult) string {
	var b strings.Builder
	count := 0
	for _, r := range results {
		content := strings.TrimSpace(r.Content)
		if content == "" {
			content = strings.TrimSpace(r.Description)
		}
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Resultado: %s (%s) ---\n%s\n\n", r.Title, r.URL, content)
		count++
		if count >= w.maxSnippets {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// fallback asks Perplexity for publicly known facts about the entity and
// uses the answer as a single snippet.
func (w *WebSearch) fallback(ctx context.Context, req model.EnrichmentRequest) string {
	if w.pplx == nil {
		return ""
	}

	prompt := fmt.Sprintf(
		"Liste fatos públicos sobre a empresa %q em %s: CNPJ, proprietário ou sócios, telefone, redes sociais e site. Responda apenas com os fatos encontrados.",
		req.EntityName, req.Location,
	)
	resp, err := w.pplx.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages:  []perplexity.Message{{Role: "user", Content: prompt}},
		MaxTokens: 1024,
	})
	if err != nil {
		zap.L().Warn("provider: web search fallback failed",
			zap.String("entity", req.EntityName),
			zap.Error(err),
		)
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return ""
	}
	return "--- Resumo de busca ---\n" + content
}
