// Package enrich orchestrates one enrichment request end to end: credit
// pre-flight, provider fan-out, registry follow-up, LLM synthesis,
// placeholder sanitation, and exact-once credit settlement.
package enrich

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/internal/ledger"
	"github.com/leadflow/enrich-cli/internal/model"
	"github.com/leadflow/enrich-cli/internal/provider"
	"github.com/leadflow/enrich-cli/internal/sanitize"
	"github.com/leadflow/enrich-cli/internal/synth"
)

// ErrInsufficientCredits is returned by the pre-flight check when the
// organization cannot pay for the enrichment. Nothing runs and nothing is
// charged.
var ErrInsufficientCredits = eris.New("enrich: insufficient credits")

// Searcher provides web-search context for a request.
type Searcher interface {
	Name() string
	Search(ctx context.Context, req model.EnrichmentRequest) string
}

// Scraper provides site-scrape context for a known website.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, siteURL string) string
}

// Registry resolves a registry identifier found in collected text to an
// authoritative ownership record.
type Registry interface {
	Name() string
	Lookup(ctx context.Context, rawText string) string
}

// Synthesizer turns aggregated context into a structured result. The bool
// reports that the model answered but the answer was unusable.
type Synthesizer interface {
	Synthesize(ctx context.Context, req model.EnrichmentRequest, sections []synth.Section) (*model.EnrichmentResult, bool, error)
}

// Orchestrator runs the enrichment cascade for one organization at a time.
type Orchestrator struct {
	ledger    ledger.Ledger
	search    Searcher
	scrape    Scraper // optional
	registry  Registry
	engine    Synthesizer
	sanitizer *sanitize.Sanitizer
	policy    *Policy
}

// New assembles an Orchestrator. scrape and registry may be nil to disable
// those providers; policy nil selects DefaultPolicy.
func New(lg ledger.Ledger, search Searcher, scrape Scraper, registry Registry, engine Synthesizer, policy *Policy) *Orchestrator {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if policy.ProviderTimeout <= 0 {
		policy.ProviderTimeout = DefaultPolicy().ProviderTimeout
	}
	return &Orchestrator{
		ledger:    lg,
		search:    search,
		scrape:    scrape,
		registry:  registry,
		engine:    engine,
		sanitizer: sanitize.New(policy.Placeholders...),
		policy:    policy,
	}
}

// Enrich executes the full cascade for one entity.
//
// Billing contract: at most one enrich credit is settled per call, and only
// after synthesis produced a deliverable result. Provider failures and a
// failed synthesis call never charge. A settlement that loses the race to
// the last credit still delivers the result, flagged SettlementFailed for
// reconciliation.
func (o *Orchestrator) Enrich(ctx context.Context, orgID string, req model.EnrichmentRequest) (*model.Outcome, error) {
	if strings.TrimSpace(req.EntityName) == "" {
		return nil, eris.New("enrich: entity name is required")
	}

	requestID := uuid.NewString()
	log := zap.L().With(
		zap.String("request_id", requestID),
		zap.String("org_id", orgID),
		zap.String("entity", req.EntityName),
	)

	ok, remaining, err := o.ledger.Check(ctx, orgID, ledger.CreditTypeEnrich)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: credit check failed")
	}
	if !ok {
		log.Info("enrichment rejected", zap.Int64("credits_remaining", remaining))
		return nil, ErrInsufficientCredits
	}

	sections, degraded := o.collect(ctx, req, log)

	result, parseFailed, err := o.engine.Synthesize(ctx, req, sections)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: synthesis failed")
	}
	o.sanitizer.Apply(result)

	outcome := &model.Outcome{
		RequestID: requestID,
		Result:    result,
		Degraded:  degraded,
		Remaining: remaining,
	}

	if parseFailed && !o.policy.ChargeOnParse() {
		log.Warn("unparseable synthesis response, not charging per policy")
		return outcome, nil
	}

	o.settle(ctx, orgID, outcome, log)
	return outcome, nil
}

// collect fans out to the providers and assembles the prompt sections in
// priority order. Search and scrape run concurrently; the registry lookup
// runs after them because it feeds on their text.
func (o *Orchestrator) collect(ctx context.Context, req model.EnrichmentRequest, log *zap.Logger) ([]synth.Section, []string) {
	var (
		searchText string
		scrapeText string
		wg         sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		searchText = o.withTimeout(ctx, func(pCtx context.Context) string {
			return o.search.Search(pCtx, req)
		})
	}()

	if o.scrape != nil && req.WebsiteURL != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scrapeText = o.withTimeout(ctx, func(pCtx context.Context) string {
				return o.scrape.Scrape(pCtx, req.WebsiteURL)
			})
		}()
	}
	wg.Wait()

	combined := searchText + "\n" + scrapeText
	registryText := ""
	if o.registry != nil {
		registryText = o.withTimeout(ctx, func(pCtx context.Context) string {
			return o.registry.Lookup(pCtx, combined)
		})
	}

	var degraded []string
	if searchText == "" {
		degraded = append(degraded, o.search.Name())
	}
	if o.scrape != nil && req.WebsiteURL != "" && scrapeText == "" {
		degraded = append(degraded, o.scrape.Name())
	}
	// A registry miss only counts as degradation when the context actually
	// held a CNPJ for it to resolve.
	if o.registry != nil && registryText == "" && provider.ExtractCNPJ(combined) != "" {
		degraded = append(degraded, o.registry.Name())
	}
	if len(degraded) > 0 {
		log.Info("providers degraded", zap.Strings("providers", degraded))
	}

	return []synth.Section{
		{Label: "Registro oficial (CNPJ)", Text: registryText, Priority: synth.PriorityRegistry},
		{Label: "Site da empresa", Text: scrapeText, Priority: synth.PriorityScrape},
		{Label: "Busca na web", Text: searchText, Priority: synth.PrioritySearch},
	}, degraded
}

func (o *Orchestrator) withTimeout(ctx context.Context, fn func(context.Context) string) string {
	pCtx, cancel := context.WithTimeout(ctx, time.Duration(o.policy.ProviderTimeout))
	defer cancel()
	return fn(pCtx)
}

// settle debits exactly one enrich credit. The debit is detached from the
// request context: once synthesis has been paid for upstream, a client
// disconnect must not leave the credit unspent.
func (o *Orchestrator) settle(ctx context.Context, orgID string, outcome *model.Outcome, log *zap.Logger) {
	sCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	settled, err := o.ledger.Settle(sCtx, orgID, ledger.CreditTypeEnrich, 1)
	switch {
	case err != nil:
		outcome.SettlementFailed = true
		log.Error("credit settlement errored, result delivered unbilled", zap.Error(err))
	case !settled:
		outcome.SettlementFailed = true
		log.Warn("credit settlement lost race, result delivered unbilled",
			zap.Int64("preflight_remaining", outcome.Remaining))
	default:
		outcome.Settled = true
		// Re-read so Remaining reflects concurrent spends, not the
		// pre-flight snapshot.
		if _, remaining, rerr := o.ledger.Check(sCtx, orgID, ledger.CreditTypeEnrich); rerr == nil {
			outcome.Remaining = remaining
		} else {
			outcome.Remaining--
		}
	}
}
