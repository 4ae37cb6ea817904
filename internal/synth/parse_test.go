package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/enrich-cli/internal/model"
)

const sampleJSON = `{
  "owner_name": "Maria Souza",
  "role": "Sócia-Administradora",
  "primary_phone": "(11) 98888-7777",
  "secondary_phone": null,
  "instagram_url": "https://instagram.com/clinicasorriso",
  "facebook_url": null,
  "linkedin_url": null,
  "email": "contato@sorriso.com.br",
  "website_url": "https://sorriso.com.br",
  "tax_id": "12345678000195",
  "partners": ["Maria Souza", "José Souza"],
  "confidence": "high"
}`

// The three response shapes the model is known to produce must parse to the
// same structured result.
func TestParseResult_EquivalentShapes(t *testing.T) {
	t.Parallel()

	shapes := map[string]string{
		"raw":    sampleJSON,
		"fenced": "```json\n" + sampleJSON + "\n```",
		"prose":  "Here is the extracted data:\n\n" + sampleJSON + "\n\nLet me know if you need anything else.",
	}

	var results []*model.EnrichmentResult
	for name, text := range shapes {
		got, err := parseResult(text)
		require.NoError(t, err, "shape %s", name)
		results = append(results, got)
	}

	for _, got := range results {
		assert.Equal(t, results[0], got)
	}
	assert.Equal(t, "Maria Souza", results[0].OwnerName)
	assert.Equal(t, "(11) 98888-7777", results[0].PrimaryPhone)
	assert.Equal(t, "", results[0].SecondaryPhone)
	assert.Equal(t, []string{"Maria Souza", "José Souza"}, results[0].Partners)
	assert.Equal(t, model.ConfidenceHigh, results[0].Confidence)
}

func TestParseResult_BareFence(t *testing.T) {
	t.Parallel()

	got, err := parseResult("```\n" + sampleJSON + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "Maria Souza", got.OwnerName)
}

func TestParseResult_AllNulls(t *testing.T) {
	t.Parallel()

	got, err := parseResult(`{"owner_name":null,"role":null,"primary_phone":null,"secondary_phone":null,"instagram_url":null,"facebook_url":null,"linkedin_url":null,"email":null,"website_url":null,"tax_id":null,"partners":[],"confidence":"low"}`)
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, model.ConfidenceLow, got.Confidence)
}

func TestParseResult_UnknownConfidenceDefaultsLow(t *testing.T) {
	t.Parallel()

	got, err := parseResult(`{"confidence":"muito alta"}`)
	require.NoError(t, err)
	assert.Equal(t, model.ConfidenceLow, got.Confidence)
}

func TestParseResult_Unparseable(t *testing.T) {
	t.Parallel()

	_, err := parseResult("I could not find any information about this business.")
	require.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"raw", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Sure! {\"a\":1}", `{"a":1}`},
		{"trailing prose", "{\"a\":1}\nHope this helps.", `{"a":1}`},
		{"no json", "nothing here", "nothing here"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, extractJSON(tc.in))
		})
	}
}
