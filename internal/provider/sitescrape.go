package provider

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/leadflow/enrich-cli/pkg/firecrawl"
	"github.com/leadflow/enrich-cli/pkg/jina"
)

// DefaultSubPaths are the likely "about/team/contact" pages fetched
// speculatively alongside the home page.
var DefaultSubPaths = []string{
	"/sobre",
	"/quem-somos",
	"/equipe",
	"/contato",
	"/about",
	"/team",
	"/contact",
}

// minUsableContent is the threshold below which a scraped page is treated
// as blocked or empty and handed to the fallback scraper.
const minUsableContent = 100

// challengeSignatures mark anti-bot interstitials masquerading as content.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// circuitBreaker tracks consecutive primary-scraper failures so a flaky
// upstream is skipped in favor of the fallback for a cooldown period.
type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	threshold   int
	window      time.Duration
	cooldown    time.Duration
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{threshold: threshold, window: window, cooldown: cooldown}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	if now.Sub(cb.lastFailure) > cb.window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now
	if cb.failures >= cb.threshold {
		cb.openUntil = now.Add(cb.cooldown)
		zap.L().Warn("provider: scrape circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
}

// SiteScrape deep-reads the entity's known website: the home page plus a
// fixed set of likely sub-paths, fetched concurrently. Individual page
// failures are silently dropped; the provider never returns an error.
type SiteScrape struct {
	jina      jina.Client
	firecrawl firecrawl.Client // optional fallback
	subPaths  []string
	breaker   *circuitBreaker
}

// NewSiteScrape creates a SiteScrape provider. fc may be nil to disable the
// fallback scraper. Empty subPaths selects DefaultSubPaths.
func NewSiteScrape(jc jina.Client, fc firecrawl.Client, subPaths []string) *SiteScrape {
	if len(subPaths) == 0 {
		subPaths = DefaultSubPaths
	}
	return &SiteScrape{
		jina:      jc,
		firecrawl: fc,
		subPaths:  subPaths,
		breaker:   newCircuitBreaker(3, 30*time.Second, 60*time.Second),
	}
}

// Name identifies the provider in degradation reports.
func (s *SiteScrape) Name() string { return "site_scrape" }

// Scrape fetches the site's pages and concatenates the non-empty results
// with separators. Returns "" when nothing was readable.
func (s *SiteScrape) Scrape(ctx context.Context, siteURL string) string {
	siteURL = normalizeSiteURL(siteURL)
	if siteURL == "" {
		return ""
	}

	urls := make([]string, 0, len(s.subPaths)+1)
	urls = append(urls, siteURL)
	for _, p := range s.subPaths {
		urls = append(urls, strings.TrimRight(siteURL, "/")+p)
	}

	contents := make([]string, len(urls))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, u := range urls {
		g.Go(func() error {
			contents[i] = s.fetchPage(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	var blocks []string
	for i, c := range contents {
		if c != "" {
			blocks = append(blocks, "--- Página: "+urls[i]+" ---\n"+c)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// fetchPage tries the primary reader and then the fallback scraper.
// Failures resolve to "".
func (s *SiteScrape) fetchPage(ctx context.Context, pageURL string) string {
	if !s.breaker.isOpen() {
		resp, err := s.jina.Read(ctx, pageURL)
		if err == nil && usableContent(resp.Data.Content) {
			s.breaker.recordSuccess()
			return strings.TrimSpace(resp.Data.Content)
		}
		s.breaker.recordFailure()
		zap.L().Debug("provider: primary scrape failed, trying fallback",
			zap.String("url", pageURL),
			zap.Error(err),
		)
	}

	if s.firecrawl == nil {
		return ""
	}
	resp, err := s.firecrawl.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     pageURL,
		Formats: []string{"markdown"},
	})
	if err != nil || !resp.Success || !usableContent(resp.Data.Markdown) {
		zap.L().Debug("provider: fallback scrape failed",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return ""
	}
	return strings.TrimSpace(resp.Data.Markdown)
}

// usableContent rejects empty pages and short anti-bot challenge bodies.
func usableContent(content string) bool {
	content = strings.TrimSpace(content)
	if len(content) < minUsableContent {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) && len(content) < 1000 {
			return false
		}
	}
	return true
}

// normalizeSiteURL defaults the scheme to https.
func normalizeSiteURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "https://" + u
	}
	return u
}
