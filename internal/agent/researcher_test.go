package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-data/kestrel/internal/model"
	"github.com/kestrel-data/kestrel/internal/service/enrich"
)

type stubSearcher struct {
	sources []model.Source
	err     error
	calls   int
}

func (s *stubSearcher) Search(_ context.Context, _ string, _ int) ([]model.Source, error) {
	s.calls++
	return s.sources, s.err
}

type stubEnricher struct {
	profile enrich.Profile
	err     error
}

func (s *stubEnricher) Enabled() bool { return true }

func (s *stubEnricher) Enrich(_ context.Context, _ string, _ []string) (enrich.Profile, error) {
	return s.profile, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResearchSuccess(t *testing.T) {
	searcher := &stubSearcher{sources: []model.Source{
		{Title: "Nvidia Corp", URL: "https://nvidia.com", Content: "GPU maker", Score: 0.98},
		{Title: "Nvidia news", URL: "https://example.com", Content: "Earnings", Score: 0.85},
	}}
	enricher := &stubEnricher{profile: enrich.Profile{
		CompanyName: "Nvidia Corporation",
		Industry:    "Semiconductors",
		Summary:     "GPU and AI chip designer.",
	}}

	r := NewResearcher(searcher, enricher, 5, testLogger())
	run := r.Research(context.Background(), "Nvidia")

	require.Nil(t, run.Error)
	assert.True(t, run.Complete)
	assert.Equal(t, model.RunStatusSuccess, run.Status())
	assert.Len(t, run.Sources, 2)
	assert.Equal(t, "Nvidia Corporation", run.CompanyName)
	require.NotNil(t, run.Industry)
	assert.Equal(t, "Semiconductors", *run.Industry)

	// One search step + one enrich step, one call per provider.
	require.Len(t, run.Steps, 2)
	assert.Equal(t, "search", run.Steps[0].Name)
	assert.Equal(t, model.StepStatusSuccess, run.Steps[0].Status)
	assert.Equal(t, "enrich", run.Steps[1].Name)
	require.Len(t, run.ApiCalls, 2)
	assert.Equal(t, "tavily", run.ApiCalls[0].Provider)
	assert.Equal(t, 2, run.ApiCalls[0].Results)
	assert.Equal(t, "openai", run.ApiCalls[1].Provider)
}

func TestResearchSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: errors.New("search: status 500: upstream down")}
	r := NewResearcher(searcher, enrich.NewNoopProvider(), 5, testLogger())

	run := r.Research(context.Background(), "Nvidia")

	// Failure is captured, never raised.
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "upstream down")
	assert.False(t, run.Complete)
	assert.Equal(t, model.RunStatusFailure, run.Status())
	assert.Empty(t, run.Sources)

	// The failed search is still recorded; enrichment does not run at all.
	require.Len(t, run.Steps, 1)
	assert.Equal(t, model.StepStatusFailure, run.Steps[0].Status)
	require.Len(t, run.ApiCalls, 1)
	assert.Equal(t, 0, run.ApiCalls[0].Results)
}

func TestResearchEnrichmentSkippedWithoutProvider(t *testing.T) {
	searcher := &stubSearcher{sources: []model.Source{{Title: "a", URL: "u", Content: "c", Score: 1}}}
	r := NewResearcher(searcher, enrich.NewNoopProvider(), 5, testLogger())

	run := r.Research(context.Background(), "Nvidia")

	require.Nil(t, run.Error)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, model.StepStatusSkipped, run.Steps[1].Status)
	// No LLM call is recorded for a skipped step.
	assert.Len(t, run.ApiCalls, 1)
	// Company name falls back to the query.
	assert.Equal(t, "Nvidia", run.CompanyName)
}

func TestResearchEnrichmentFailureIsBestEffort(t *testing.T) {
	searcher := &stubSearcher{sources: []model.Source{{Title: "a", URL: "u", Content: "c", Score: 1}}}
	enricher := &stubEnricher{err: fmt.Errorf("enrich: unexpected status 429")}
	r := NewResearcher(searcher, enricher, 5, testLogger())

	run := r.Research(context.Background(), "Nvidia")

	// The run stays successful; only the step records the failure.
	require.Nil(t, run.Error)
	assert.Equal(t, model.RunStatusSuccess, run.Status())
	require.Len(t, run.Steps, 2)
	assert.Equal(t, model.StepStatusFailure, run.Steps[1].Status)
	require.NotNil(t, run.Steps[1].Error)
	assert.Contains(t, *run.Steps[1].Error, "429")
}
