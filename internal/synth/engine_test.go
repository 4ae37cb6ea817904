package synth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadflow/enrich-cli/internal/model"
	"github.com/leadflow/enrich-cli/pkg/anthropic"
)

type fakeCompleter struct {
	resp *anthropic.MessageResponse
	err  error
	last anthropic.MessageRequest
}

func (f *fakeCompleter) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func TestEngineSynthesize(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{resp: &anthropic.MessageResponse{Text: sampleJSON}}
	eng := NewEngine(fake, "claude-sonnet-4-5", 0)

	req := model.EnrichmentRequest{EntityName: "Clínica Sorriso", Location: "São Paulo"}
	got, parseFailed, err := eng.Synthesize(context.Background(), req, []Section{
		{Label: "search", Text: "Maria Souza é a dona", Priority: PrioritySearch},
	})
	require.NoError(t, err)
	assert.False(t, parseFailed)
	assert.Equal(t, "Maria Souza", got.OwnerName)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)

	assert.Equal(t, "claude-sonnet-4-5", fake.last.Model)
	assert.Equal(t, systemPrompt, fake.last.System)
	require.Len(t, fake.last.Messages, 1)
	assert.Contains(t, fake.last.Messages[0].Content, "Maria Souza é a dona")
}

func TestEngineSynthesize_TransportError(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{err: errors.New("api: overloaded")}
	eng := NewEngine(fake, "claude-sonnet-4-5", 0)

	got, parseFailed, err := eng.Synthesize(context.Background(), model.EnrichmentRequest{EntityName: "X"}, nil)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.False(t, parseFailed)
}

// A response that is prose instead of JSON is still a billable answer: the
// engine degrades it to an all-empty low-confidence result.
func TestEngineSynthesize_UnparseableResponse(t *testing.T) {
	t.Parallel()

	fake := &fakeCompleter{resp: &anthropic.MessageResponse{Text: "I could not find anything about this business."}}
	eng := NewEngine(fake, "claude-sonnet-4-5", 0)

	got, parseFailed, err := eng.Synthesize(context.Background(), model.EnrichmentRequest{EntityName: "X"}, nil)
	require.NoError(t, err)
	assert.True(t, parseFailed)
	assert.True(t, got.Empty())
	assert.Equal(t, model.ConfidenceLow, got.Confidence)
}
