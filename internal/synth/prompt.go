package synth

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leadflow/enrich-cli/internal/model"
)

// DefaultContextBudget bounds the aggregated context injected into the
// prompt, leaving headroom in the model's window for instructions and output.
const DefaultContextBudget = 48000

// Source priorities: when the budget is tight, the densest sources win.
const (
	PriorityRegistry = 3
	PriorityScrape   = 2
	PrioritySearch   = 1
)

// Section is one provider's labeled contribution to the aggregated context.
type Section struct {
	Label    string
	Text     string
	Priority int
}

const systemPrompt = "You are a data analyst extracting decision-maker information about Brazilian businesses from collected web context. Only report facts directly supported by the provided text. Return valid JSON matching the requested schema. Use null for every field without direct textual evidence — inventing data is a defect."

const promptTemplate = `Identify the most likely decision-maker for the business below from the collected context.

Business: %s
Location: %s%s

Rules:
- The decision-maker is whoever the context identifies as owner, founder, partner, director or administrator (proprietário, fundador, sócio, diretor, administrador). Prefer the registry's partner roster when present.
- For primary_phone prefer a mobile/WhatsApp number; a landline goes in secondary_phone.
- Only include a social profile URL if it plausibly belongs to this business (matching name, city or activity).
- tax_id is the CNPJ, digits only.
- partners lists every registered partner name found in the context.
- confidence is "high" when the owner is confirmed by the registry or the business's own site, "medium" when inferred from secondary sources, "low" otherwise.
- Return null for any field lacking direct textual evidence. Never guess, never fabricate.

Return only a JSON object with this exact shape:
{
  "owner_name": string or null,
  "role": string or null,
  "primary_phone": string or null,
  "secondary_phone": string or null,
  "instagram_url": string or null,
  "facebook_url": string or null,
  "linkedin_url": string or null,
  "email": string or null,
  "website_url": string or null,
  "tax_id": string or null,
  "partners": array of strings,
  "confidence": "high" | "medium" | "low"
}

Collected context:
%s`

// buildPrompt renders the user prompt with the aggregated context truncated
// to the budget.
func buildPrompt(req model.EnrichmentRequest, sections []Section, budget int) string {
	website := ""
	if req.WebsiteURL != "" {
		website = "\nWebsite: " + req.WebsiteURL
	}
	return fmt.Sprintf(promptTemplate, req.EntityName, req.Location, website, buildContext(sections, budget))
}

// buildContext concatenates non-empty sections in priority order, truncating
// lower-priority sections first when the character budget is exceeded.
// Section order within the output is stable by priority (highest first) so
// registry output survives ahead of raw search snippets.
func buildContext(sections []Section, budget int) string {
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	kept := make([]Section, 0, len(sections))
	for _, s := range sections {
		if strings.TrimSpace(s.Text) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "(no context collected)"
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Priority > kept[j].Priority })

	var b strings.Builder
	remaining := budget
	for _, s := range kept {
		if remaining <= 0 {
			break
		}
		text := strings.TrimSpace(s.Text)
		header := fmt.Sprintf("=== %s ===\n", s.Label)
		overhead := len(header) + len("\n\n")
		if overhead+len(text) > remaining {
			cut := remaining - overhead
			if cut <= 0 {
				break
			}
			text = truncate(text, cut)
		}
		b.WriteString(header)
		b.WriteString(text)
		b.WriteString("\n\n")
		remaining -= overhead + len(text)
	}
	return strings.TrimSpace(b.String())
}

// truncate cuts at a rune boundary at or below max bytes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
