package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"github.com/leadflow/enrich-cli/internal/model"
	"github.com/leadflow/enrich-cli/pkg/jina"
	"github.com/leadflow/enrich-cli/pkg/perplexity"
)

type fakeSearcher struct {
	resp *jina.SearchResponse
	err  error
	last string
}

func (f *fakeSearcher) Read(context.Context, string) (*jina.ReadResponse, error) {
	panic("not used")
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*jina.SearchResponse, error) {
	f.last = query
	return f.resp, f.err
}

type fakeCompleter struct {
	resp *perplexity.ChatCompletionResponse
	err  error
	hits int
}

func (f *fakeCompleter) ChatCompletion(context.Context, perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.hits++
	return f.resp, f.err
}

var searchReq = model.EnrichmentRequest{EntityName: "Clínica Sorriso", Location: "São Paulo"}

func TestWebSearch_FormatsSnippets(t *testing.T) {
	t.Parallel()

	js := &fakeSearcher{resp: &jina.SearchResponse{Data: []jina.SearchResult{
		{Title: "Clínica Sorriso - cadastro", URL: "https://cnpj.biz/x", Content: "CNPJ 12.345.678/0001-95"},
		{Title: "Instagram", URL: "https://instagram.com/sorriso", Description: "perfil oficial"},
		{Title: "vazio", URL: "https://nada.com"},
	}}}
	ws := NewWebSearch(js, nil)

	got := ws.Search(context.Background(), searchReq)

	assert.Contains(t, js.last, `"Clínica Sorriso"`)
	assert.Contains(t, js.last, "São Paulo")
	assert.Contains(t, js.last, "quadro societário")
	assert.Contains(t, got, "CNPJ 12.345.678/0001-95")
	assert.Contains(t, got, "perfil oficial")
	assert.NotContains(t, got, "nada.com", "empty hits are dropped")
}

func TestWebSearch_CapsSnippetCount(t *testing.T) {
	t.Parallel()

	var hits []jina.SearchResult
	for i := 0; i < 20; i++ {
		hits = append(hits, jina.SearchResult{Title: "t", URL: "u", Content: "snippet body"})
	}
	ws := NewWebSearch(&fakeSearcher{resp: &jina.SearchResponse{Data: hits}}, nil)

	got := ws.Search(context.Background(), searchReq)

	assert.Equal(t, defaultMaxSnippets, strings.Count(got, "--- Resultado:"))
}

func TestWebSearch_FallsBackToPerplexity(t *testing.T) {
	t.Parallel()

	js := &fakeSearcher{err: eris.New("search down")}
	px := &fakeCompleter{resp: &perplexity.ChatCompletionResponse{Choices: []perplexity.Choice{
		{Message: perplexity.Message{Content: "A clínica pertence a Maria Souza."}},
	}}}
	ws := NewWebSearch(js, px)

	got := ws.Search(context.Background(), searchReq)

	assert.Equal(t, 1, px.hits)
	assert.Contains(t, got, "Maria Souza")
}

func TestWebSearch_AllProvidersDownDegrades(t *testing.T) {
	t.Parallel()

	js := &fakeSearcher{err: eris.New("search down")}
	px := &fakeCompleter{err: eris.New("also down")}
	ws := NewWebSearch(js, px)

	assert.Empty(t, ws.Search(context.Background(), searchReq))
}

func TestWebSearch_NoFallbackConfigured(t *testing.T) {
	t.Parallel()

	ws := NewWebSearch(&fakeSearcher{err: eris.New("down")}, nil)
	assert.Empty(t, ws.Search(context.Background(), searchReq))
}
