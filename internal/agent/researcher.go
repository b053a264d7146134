// Package agent implements the company research agent and its metadata
// collector.
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/kestrel-data/kestrel/internal/model"
	"github.com/kestrel-data/kestrel/internal/service/enrich"
)

// Searcher is the search-API boundary used by the researcher.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.Source, error)
}

// Researcher performs company research: a search step followed by an
// optional enrichment step. External-call failures never escape Research;
// they are captured into the run's error and status fields.
type Researcher struct {
	searcher   Searcher
	enricher   enrich.Provider
	maxSources int
	logger     *slog.Logger

	now func() time.Time
}

// NewResearcher creates a researcher. The enricher decides at construction
// whether the enrichment step runs or is recorded as skipped.
func NewResearcher(searcher Searcher, enricher enrich.Provider, maxSources int, logger *slog.Logger) *Researcher {
	if maxSources <= 0 {
		maxSources = 5
	}
	return &Researcher{
		searcher:   searcher,
		enricher:   enricher,
		maxSources: maxSources,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Research runs the full research flow for one query. The returned run is
// complete in either outcome: on failure the error text and a failed step
// are recorded and Complete stays false.
func (r *Researcher) Research(ctx context.Context, query string) model.ResearchRun {
	run := model.ResearchRun{
		Query:       query,
		CompanyName: query,
		Sources:     []model.Source{},
		StartedAt:   r.now(),
	}

	r.searchStep(ctx, &run)
	if run.Error == nil {
		r.enrichStep(ctx, &run)
	}

	run.CompletedAt = r.now()
	return run
}

func (r *Researcher) searchStep(ctx context.Context, run *model.ResearchRun) {
	start := r.now()
	sources, err := r.searcher.Search(ctx, run.Query, r.maxSources)
	latency := float64(r.now().Sub(start)) / float64(time.Millisecond)

	call := model.ApiCall{
		Provider:  "tavily",
		QueryUsed: run.Query,
		Results:   len(sources),
		LatencyMS: latency,
		CalledAt:  start,
	}
	step := model.Step{Name: "search", Status: model.StepStatusSuccess, LatencyMS: latency}

	if err != nil {
		msg := err.Error()
		step.Status = model.StepStatusFailure
		step.Error = &msg
		run.Error = &msg
		r.logger.Warn("search step failed", "query", run.Query, "error", err)
	} else {
		run.Sources = sources
		run.Complete = true
	}

	run.Steps = append(run.Steps, step)
	run.ApiCalls = append(run.ApiCalls, call)
}

func (r *Researcher) enrichStep(ctx context.Context, run *model.ResearchRun) {
	if !r.enricher.Enabled() {
		run.Steps = append(run.Steps, model.Step{
			Name:   "enrich",
			Status: model.StepStatusSkipped,
		})
		return
	}

	snippets := make([]string, 0, len(run.Sources))
	for _, s := range run.Sources {
		snippets = append(snippets, s.Content)
	}

	start := r.now()
	profile, err := r.enricher.Enrich(ctx, run.Query, snippets)
	latency := float64(r.now().Sub(start)) / float64(time.Millisecond)

	run.ApiCalls = append(run.ApiCalls, model.ApiCall{
		Provider:  "openai",
		QueryUsed: run.Query,
		Results:   1,
		LatencyMS: latency,
		CalledAt:  start,
	})

	step := model.Step{Name: "enrich", Status: model.StepStatusSuccess, LatencyMS: latency}
	if err != nil {
		// Enrichment is best-effort: record the failed step but keep the
		// run successful with the search results it already has.
		msg := err.Error()
		step.Status = model.StepStatusFailure
		step.Error = &msg
		r.logger.Warn("enrich step failed", "query", run.Query, "error", err)
	} else {
		run.CompanyName = profile.CompanyName
		if profile.Industry != "" {
			run.Industry = &profile.Industry
		}
		if profile.Summary != "" {
			run.Summary = &profile.Summary
		}
	}
	run.Steps = append(run.Steps, step)
}
