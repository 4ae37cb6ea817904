package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/leadflow/enrich-cli/pkg/brasilapi"
)

// cnpjPattern matches a CNPJ with or without its usual formatting
// (12.345.678/0001-95 or 12345678000195).
var cnpjPattern = regexp.MustCompile(`\b\d{2}\.?\d{3}\.?\d{3}/?\d{4}-?\d{2}\b`)

var nonDigits = regexp.MustCompile(`\D`)

// ExtractCNPJ scans free text for the first sequence that looks like a CNPJ
// and passes check-digit validation, returning it digits-only. Returns ""
// when no valid identifier is present.
func ExtractCNPJ(text string) string {
	for _, match := range cnpjPattern.FindAllString(text, -1) {
		digits := nonDigits.ReplaceAllString(match, "")
		if len(digits) == 14 && validCNPJ(digits) {
			return digits
		}
	}
	return ""
}

// validCNPJ verifies the two check digits.
func validCNPJ(digits string) bool {
	// All-identical sequences pass the checksum but are never issued.
	if strings.Count(digits, digits[:1]) == len(digits) {
		return false
	}
	return checkDigit(digits, 12) == int(digits[12]-'0') &&
		checkDigit(digits, 13) == int(digits[13]-'0')
}

func checkDigit(digits string, length int) int {
	weight := length - 7 // 5 for the first digit, 6 for the second
	sum := 0
	for i := 0; i < length; i++ {
		sum += int(digits[i]-'0') * weight
		weight--
		if weight < 2 {
			weight = 9
		}
	}
	rest := sum % 11
	if rest < 2 {
		return 0
	}
	return 11 - rest
}

// RegistryLookup resolves a registry identifier found in upstream context to
// the authoritative ownership record. The step is purely additive: no
// identifier, or any lookup failure, yields an empty context.
type RegistryLookup struct {
	client brasilapi.Client
}

// NewRegistryLookup creates a RegistryLookup provider.
func NewRegistryLookup(client brasilapi.Client) *RegistryLookup {
	return &RegistryLookup{client: client}
}

// Name identifies the provider in degradation reports.
func (r *RegistryLookup) Name() string { return "registry_lookup" }

// Lookup scans rawText for a CNPJ and formats the registry record as a
// context block. Never returns an error.
func (r *RegistryLookup) Lookup(ctx context.Context, rawText string) string {
	cnpj := ExtractCNPJ(rawText)
	if cnpj == "" {
		return ""
	}

	company, err := r.client.LookupCNPJ(ctx, cnpj)
	if err != nil {
		if !eris.Is(err, brasilapi.ErrNotFound) {
			zap.L().Warn("provider: registry lookup failed",
				zap.String("cnpj", cnpj),
				zap.Error(err),
			)
		}
		return ""
	}

	var b strings.Builder
	b.WriteString("--- Registro CNPJ (fonte oficial) ---\n")
	fmt.Fprintf(&b, "CNPJ: %s\n", cnpj)
	if company.LegalName != "" {
		fmt.Fprintf(&b, "Razão social: %s\n", company.LegalName)
	}
	if company.TradeName != "" {
		fmt.Fprintf(&b, "Nome fantasia: %s\n", company.TradeName)
	}
	if company.MainActivity != "" {
		fmt.Fprintf(&b, "Atividade principal: %s\n", company.MainActivity)
	}
	if company.Phone1 != "" {
		fmt.Fprintf(&b, "Telefone: %s\n", company.Phone1)
	}
	if company.Phone2 != "" {
		fmt.Fprintf(&b, "Telefone 2: %s\n", company.Phone2)
	}
	if company.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", company.Email)
	}
	if company.City != "" {
		fmt.Fprintf(&b, "Município: %s/%s\n", company.City, company.State)
	}
	if len(company.Partners) > 0 {
		b.WriteString("Quadro societário:\n")
		for _, p := range company.Partners {
			if p.Role != "" {
				fmt.Fprintf(&b, "- %s (%s)\n", p.Name, p.Role)
			} else {
				fmt.Fprintf(&b, "- %s\n", p.Name)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
