// Package brasilapi provides a client for the BrasilAPI public CNPJ
// registry, which resolves a CNPJ to the company's legal record including
// the registered partner roster (QSA).
package brasilapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://brasilapi.com.br/api"

// ErrNotFound is returned when the registry has no record for the CNPJ.
var ErrNotFound = eris.New("brasilapi: cnpj not found")

// Client resolves CNPJs against the public registry.
type Client interface {
	// LookupCNPJ fetches the legal record for a digits-only 14-char CNPJ.
	LookupCNPJ(ctx context.Context, cnpj string) (*Company, error)
}

// Company is the registry record for a legal entity.
type Company struct {
	CNPJ         string    `json:"cnpj"`
	LegalName    string    `json:"razao_social"`
	TradeName    string    `json:"nome_fantasia"`
	Phone1       string    `json:"ddd_telefone_1"`
	Phone2       string    `json:"ddd_telefone_2"`
	Email        string    `json:"email"`
	City         string    `json:"municipio"`
	State        string    `json:"uf"`
	MainActivity string    `json:"cnae_fiscal_descricao"`
	Partners     []Partner `json:"qsa"`
}

// Partner is one entry in the QSA (quadro de sócios e administradores).
type Partner struct {
	Name string `json:"nome_socio"`
	Role string `json:"qualificacao_socio"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = u }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit overrides the default request rate.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *httpClient) { c.limiter = rate.NewLimiter(r, burst) }
}

type httpClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a BrasilAPI client. The public registry endpoints are
// aggressively rate-limited, so requests are throttled to 3/s by default.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(3), 3),
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) LookupCNPJ(ctx context.Context, cnpj string) (*Company, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "brasilapi: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cnpj/v1/"+cnpj, nil)
	if err != nil {
		return nil, eris.Wrap(err, "brasilapi: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "brasilapi: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "brasilapi: read response")
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, eris.Errorf("brasilapi: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var company Company
	if err := json.Unmarshal(body, &company); err != nil {
		return nil, eris.Wrap(err, "brasilapi: unmarshal response")
	}
	return &company, nil
}
