// Package ledger implements the per-organization credit ledger that meters
// enrichment execution. Balances are mutated only through Settle and Grant;
// Settle is a single conditional statement so two concurrent enrichments for
// the same organization can never over-spend the balance.
package ledger

import (
	"context"

	"github.com/rotisserie/eris"
)

// CreditType names one of the two independent counters an organization holds.
type CreditType string

const (
	CreditTypeSearch CreditType = "search"
	CreditTypeEnrich CreditType = "enrich"
)

// ErrUnknownOrg is returned when the organization has no ledger row.
var ErrUnknownOrg = eris.New("ledger: unknown organization")

// Valid reports whether t is a known credit type.
func (t CreditType) Valid() bool {
	return t == CreditTypeSearch || t == CreditTypeEnrich
}

// Balance is a point-in-time snapshot of one organization's counters.
type Balance struct {
	OrgID         string `json:"org_id"`
	SearchCredits int64  `json:"search_credits"`
	EnrichCredits int64  `json:"enrich_credits"`
}

// Ledger is the credit gate. Check is a read-only pre-flight; Settle is the
// only mutation path for spending.
type Ledger interface {
	// Check reports whether the organization holds at least one credit of
	// the given type, along with the current remaining count. Never mutates.
	Check(ctx context.Context, orgID string, t CreditType) (bool, int64, error)

	// Settle atomically decrements the counter by amount only if the result
	// stays >= 0, and reports whether the decrement happened. A losing race
	// or an empty counter yields (false, nil), not an error.
	Settle(ctx context.Context, orgID string, t CreditType, amount int64) (bool, error)

	// Grant adds credits to the counter, creating the ledger row if needed.
	Grant(ctx context.Context, orgID string, t CreditType, amount int64) error

	// Balance returns both counters for the organization.
	Balance(ctx context.Context, orgID string) (*Balance, error)

	Close()
}

// column maps a credit type to its ledger column. Both stores share the
// schema, so the mapping lives here.
func column(t CreditType) (string, error) {
	switch t {
	case CreditTypeSearch:
		return "search_credits", nil
	case CreditTypeEnrich:
		return "enrich_credits", nil
	default:
		return "", eris.Errorf("ledger: unknown credit type %q", t)
	}
}
