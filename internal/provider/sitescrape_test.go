package provider

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/enrich-cli/pkg/firecrawl"
	"github.com/leadflow/enrich-cli/pkg/jina"
)

// longBody pads content past the usable-content threshold.
func longBody(s string) string {
	return s + "\n" + strings.Repeat("conteúdo da página sobre a clínica. ", 10)
}

type fakeReader struct {
	mu    sync.Mutex
	pages map[string]string // url -> content; missing = error
	calls []string
}

func (f *fakeReader) Read(_ context.Context, url string) (*jina.ReadResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	content, ok := f.pages[url]
	if !ok {
		return nil, eris.Errorf("404 for %s", url)
	}
	return &jina.ReadResponse{Code: 200, Data: jina.ReadData{URL: url, Content: content}}, nil
}

func (f *fakeReader) Search(context.Context, string) (*jina.SearchResponse, error) {
	panic("not used")
}

type fakeScrapeAPI struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

func (f *fakeScrapeAPI) Scrape(_ context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.URL)
	f.mu.Unlock()
	content, ok := f.pages[req.URL]
	if !ok {
		return &firecrawl.ScrapeResponse{Success: false}, nil
	}
	return &firecrawl.ScrapeResponse{Success: true, Data: firecrawl.ScrapeData{URL: req.URL, Markdown: content}}, nil
}

func TestSiteScrape_JoinsRootAndSubPaths(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pages: map[string]string{
		"https://sorriso.com.br":         longBody("# Home"),
		"https://sorriso.com.br/equipe":  longBody("Dra. Maria Souza, diretora clínica"),
		"https://sorriso.com.br/contato": longBody("WhatsApp (11) 98888-7777"),
	}}
	s := NewSiteScrape(reader, nil, nil)

	got := s.Scrape(context.Background(), "https://sorriso.com.br")

	assert.Contains(t, got, "Maria Souza")
	assert.Contains(t, got, "WhatsApp")
	assert.Contains(t, got, "--- Página: https://sorriso.com.br ---")
	// Failed sub-paths are silently dropped.
	assert.NotContains(t, got, "/about")
	// All configured sub-paths were attempted.
	assert.Len(t, reader.calls, len(DefaultSubPaths)+1)
}

func TestSiteScrape_NormalizesScheme(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pages: map[string]string{
		"https://sorriso.com.br": longBody("home"),
	}}
	s := NewSiteScrape(reader, nil, []string{"/contato"})

	got := s.Scrape(context.Background(), "sorriso.com.br")

	assert.Contains(t, got, "https://sorriso.com.br")
}

func TestSiteScrape_FallsBackToFirecrawl(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pages: map[string]string{}} // everything blocked
	fc := &fakeScrapeAPI{pages: map[string]string{
		"https://sorriso.com.br": longBody("# Home via fallback"),
	}}
	s := NewSiteScrape(reader, fc, []string{"/contato"})

	got := s.Scrape(context.Background(), "https://sorriso.com.br")

	assert.Contains(t, got, "via fallback")
	require.NotEmpty(t, fc.calls)
}

func TestSiteScrape_AllPagesFailDegrades(t *testing.T) {
	t.Parallel()

	s := NewSiteScrape(&fakeReader{pages: map[string]string{}}, nil, nil)
	assert.Empty(t, s.Scrape(context.Background(), "https://sorriso.com.br"))
}

func TestSiteScrape_EmptyURL(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pages: map[string]string{}}
	s := NewSiteScrape(reader, nil, nil)

	assert.Empty(t, s.Scrape(context.Background(), "  "))
	assert.Empty(t, reader.calls, "no fetches without a site URL")
}

func TestUsableContent(t *testing.T) {
	t.Parallel()

	assert.False(t, usableContent(""))
	assert.False(t, usableContent("short"))
	assert.False(t, usableContent("Just a moment... Cloudflare "+strings.Repeat("x", 200)))
	assert.True(t, usableContent(longBody("real page")))
	// Long legitimate pages mentioning a signature word are kept.
	assert.True(t, usableContent(strings.Repeat("análise de segurança cloudflare e desempenho. ", 40)))
}
