package model

// Confidence is the coarse quality tier of a synthesized result.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// EnrichmentRequest identifies the entity to enrich. WebsiteURL is optional;
// empty means the site is unknown and the scrape provider is skipped.
type EnrichmentRequest struct {
	EntityName string `json:"entity_name"`
	Location   string `json:"location"`
	WebsiteURL string `json:"website_url,omitempty"`
}

// EnrichmentResult is the consolidated decision-maker record. Every string
// field uses "" for absence — the sanitizer guarantees no placeholder
// literals ("null", "não informado", ...) survive into a final result.
type EnrichmentResult struct {
	OwnerName      string     `json:"owner_name,omitempty"`
	Role           string     `json:"role,omitempty"`
	PrimaryPhone   string     `json:"primary_phone,omitempty"`
	SecondaryPhone string     `json:"secondary_phone,omitempty"`
	InstagramURL   string     `json:"instagram_url,omitempty"`
	FacebookURL    string     `json:"facebook_url,omitempty"`
	LinkedinURL    string     `json:"linkedin_url,omitempty"`
	Email          string     `json:"email,omitempty"`
	WebsiteURL     string     `json:"website_url,omitempty"`
	TaxID          string     `json:"tax_id,omitempty"`
	Partners       []string   `json:"partners,omitempty"`
	Confidence     Confidence `json:"confidence"`
}

// Empty reports whether the result carries no extracted data at all.
func (r *EnrichmentResult) Empty() bool {
	return r.OwnerName == "" && r.Role == "" &&
		r.PrimaryPhone == "" && r.SecondaryPhone == "" &&
		r.InstagramURL == "" && r.FacebookURL == "" && r.LinkedinURL == "" &&
		r.Email == "" && r.WebsiteURL == "" && r.TaxID == "" &&
		len(r.Partners) == 0
}

// Outcome is the terminal state of one enrichment request.
//
// Settled is true when exactly one credit was debited. SettlementFailed is
// true when synthesis produced a result but the debit lost a race (or the
// ledger was already empty) — the result is still delivered and the
// discrepancy is logged for billing reconciliation.
type Outcome struct {
	RequestID        string            `json:"request_id"`
	Result           *EnrichmentResult `json:"result"`
	Settled          bool              `json:"settled"`
	SettlementFailed bool              `json:"settlement_failed,omitempty"`
	Degraded         []string          `json:"degraded_providers,omitempty"`
	Remaining        int64             `json:"credits_remaining"`
}
