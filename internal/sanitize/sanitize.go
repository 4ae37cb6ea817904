// Package sanitize strips placeholder non-values from provider and LLM
// output. Models asked to return null for unknown fields still emit literal
// strings like "null", "n/a" or "não informado"; those must become true
// absence before a result is considered final.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/leadflow/enrich-cli/internal/model"
)

// defaultPlaceholders are matched case- and accent-insensitively after
// trimming. "nao informado" therefore also catches "NÃO INFORMADO".
var defaultPlaceholders = []string{
	"null",
	"undefined",
	"none",
	"nil",
	"n/a",
	"na",
	"unknown",
	"-",
	"--",
	"nao informado",
	"nao encontrado",
	"nao identificado",
	"nao disponivel",
	"desconhecido",
	"sem informacao",
}

// stripAccents removes combining marks after NFD decomposition.
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitizer maps placeholder tokens to absence.
type Sanitizer struct {
	tokens map[string]struct{}
}

// New creates a Sanitizer with the default placeholder set plus any extra
// tokens (e.g. from the enrichment policy file).
func New(extra ...string) *Sanitizer {
	s := &Sanitizer{tokens: make(map[string]struct{}, len(defaultPlaceholders)+len(extra))}
	for _, t := range defaultPlaceholders {
		s.tokens[fold(t)] = struct{}{}
	}
	for _, t := range extra {
		if f := fold(t); f != "" {
			s.tokens[f] = struct{}{}
		}
	}
	return s
}

// fold lowercases and strips accents for matching.
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripAccents, s); err == nil {
		return out
	}
	return s
}

// Clean trims the value and maps placeholder tokens to "". Idempotent:
// Clean(Clean(v)) == Clean(v).
func (s *Sanitizer) Clean(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if _, ok := s.tokens[fold(v)]; ok {
		return ""
	}
	return v
}

// Apply cleans every field of a result in place and drops placeholder
// entries from the partner list.
func (s *Sanitizer) Apply(r *model.EnrichmentResult) {
	if r == nil {
		return
	}
	r.OwnerName = s.Clean(r.OwnerName)
	r.Role = s.Clean(r.Role)
	r.PrimaryPhone = s.Clean(r.PrimaryPhone)
	r.SecondaryPhone = s.Clean(r.SecondaryPhone)
	r.InstagramURL = s.Clean(r.InstagramURL)
	r.FacebookURL = s.Clean(r.FacebookURL)
	r.LinkedinURL = s.Clean(r.LinkedinURL)
	r.Email = s.Clean(r.Email)
	r.WebsiteURL = s.Clean(r.WebsiteURL)
	r.TaxID = s.Clean(r.TaxID)

	partners := r.Partners[:0]
	for _, p := range r.Partners {
		if cleaned := s.Clean(p); cleaned != "" {
			partners = append(partners, cleaned)
		}
	}
	if len(partners) == 0 {
		r.Partners = nil
	} else {
		r.Partners = partners
	}
}
