package synth

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/leadflow/enrich-cli/internal/model"
)

// rawResult mirrors the JSON schema requested from the model. Pointer
// fields distinguish an explicit null from a provided value.
type rawResult struct {
	OwnerName      *string  `json:"owner_name"`
	Role           *string  `json:"role"`
	PrimaryPhone   *string  `json:"primary_phone"`
	SecondaryPhone *string  `json:"secondary_phone"`
	InstagramURL   *string  `json:"instagram_url"`
	FacebookURL    *string  `json:"facebook_url"`
	LinkedinURL    *string  `json:"linkedin_url"`
	Email          *string  `json:"email"`
	WebsiteURL     *string  `json:"website_url"`
	TaxID          *string  `json:"tax_id"`
	Partners       []string `json:"partners"`
	Confidence     string   `json:"confidence"`
}

// extractJSON locates the first well-formed JSON object in a model
// response. Tolerates raw JSON, JSON inside a fenced code block, and JSON
// surrounded by incidental prose.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Slice from the first { to the last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// parseResult coerces a model response into an EnrichmentResult.
func parseResult(text string) (*model.EnrichmentResult, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, eris.Wrap(err, "synth: parse model response")
	}

	result := &model.EnrichmentResult{
		OwnerName:      deref(raw.OwnerName),
		Role:           deref(raw.Role),
		PrimaryPhone:   deref(raw.PrimaryPhone),
		SecondaryPhone: deref(raw.SecondaryPhone),
		InstagramURL:   deref(raw.InstagramURL),
		FacebookURL:    deref(raw.FacebookURL),
		LinkedinURL:    deref(raw.LinkedinURL),
		Email:          deref(raw.Email),
		WebsiteURL:     deref(raw.WebsiteURL),
		TaxID:          deref(raw.TaxID),
		Partners:       raw.Partners,
		Confidence:     parseConfidence(raw.Confidence),
	}
	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// parseConfidence defaults anything unrecognized to low.
func parseConfidence(s string) model.Confidence {
	switch model.Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case model.ConfidenceHigh:
		return model.ConfidenceHigh
	case model.ConfidenceMedium:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// emptyResult is the terminal state for an unparseable response: every
// field absent, confidence low. "Enrichment ran but found nothing" is a
// valid outcome, not an error.
func emptyResult() *model.EnrichmentResult {
	return &model.EnrichmentResult{Confidence: model.ConfidenceLow}
}
