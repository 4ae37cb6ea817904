package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/leadflow/enrich-cli/internal/enrich"
	"github.com/leadflow/enrich-cli/internal/ledger"
	"github.com/leadflow/enrich-cli/internal/provider"
	"github.com/leadflow/enrich-cli/internal/synth"
	anthropicpkg "github.com/leadflow/enrich-cli/pkg/anthropic"
	"github.com/leadflow/enrich-cli/pkg/brasilapi"
	"github.com/leadflow/enrich-cli/pkg/firecrawl"
	"github.com/leadflow/enrich-cli/pkg/jina"
	"github.com/leadflow/enrich-cli/pkg/perplexity"
)

// initLedger opens the configured ledger backend and applies the schema.
func initLedger(ctx context.Context) (ledger.Ledger, error) {
	switch cfg.Store.Driver {
	case "postgres":
		lg, err := ledger.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "init postgres ledger")
		}
		if err := lg.Migrate(ctx); err != nil {
			lg.Close()
			return nil, eris.Wrap(err, "migrate ledger")
		}
		return lg, nil
	case "sqlite":
		lg, err := ledger.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, eris.Wrap(err, "init sqlite ledger")
		}
		if err := lg.Migrate(ctx); err != nil {
			lg.Close()
			return nil, eris.Wrap(err, "migrate ledger")
		}
		return lg, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// buildOrchestrator wires the provider clients, the synthesis engine and the
// policy into an orchestrator over the given ledger.
func buildOrchestrator(lg ledger.Ledger, policyFile string) (*enrich.Orchestrator, error) {
	policy := enrich.DefaultPolicy()
	if policyFile == "" {
		policyFile = cfg.Enrich.PolicyFile
	}
	if policyFile != "" {
		p, err := enrich.LoadPolicy(policyFile)
		if err != nil {
			return nil, err
		}
		policy = p
	}

	jinaClient := jina.NewClient(cfg.Jina.Key,
		jina.WithBaseURL(cfg.Jina.BaseURL),
		jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL),
	)

	var firecrawlClient firecrawl.Client
	if cfg.Firecrawl.Key != "" {
		firecrawlClient = firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))
	}

	var perplexityClient perplexity.Client
	if cfg.Perplexity.Key != "" {
		perplexityClient = perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
	}

	var registry enrich.Registry
	if !cfg.Registry.Disabled {
		registry = provider.NewRegistryLookup(brasilapi.NewClient(
			brasilapi.WithBaseURL(cfg.Registry.BaseURL),
			brasilapi.WithRateLimit(rate.Limit(cfg.Registry.RatePerSec), int(cfg.Registry.RatePerSec)+1),
			brasilapi.WithHTTPClient(&http.Client{Timeout: registryTimeout()}),
		))
	} else {
		zap.L().Info("registry lookup disabled by config")
	}

	engine := synth.NewEngine(anthropicpkg.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, policy.ContextBudget)

	return enrich.New(
		lg,
		provider.NewWebSearch(jinaClient, perplexityClient),
		provider.NewSiteScrape(jinaClient, firecrawlClient, policy.SubPaths),
		registry,
		engine,
		policy,
	), nil
}

func registryTimeout() time.Duration {
	if cfg.Registry.TimeoutSecs <= 0 {
		return 15 * time.Second
	}
	return time.Duration(cfg.Registry.TimeoutSecs) * time.Second
}
