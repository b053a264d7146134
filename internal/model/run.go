// Package model defines the core domain types for Kestrel.
//
// Types mirror the three-table warehouse model (agent_runs, run_steps,
// api_calls) plus the flat document-store projection. Optional fields are
// pointers so they serialize as null when absent.
package model

import (
	"time"
)

// RunStatus is the overall outcome of a research run.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailure RunStatus = "failure"
)

// StepStatus is the outcome of a single internal stage of a run.
type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusFailure StepStatus = "failure"
	StepStatusSkipped StepStatus = "skipped"
)

// Source is one web source returned by the search step.
type Source struct {
	Title   string  `json:"title" bson:"title"`
	URL     string  `json:"url" bson:"url"`
	Content string  `json:"content" bson:"content"`
	Score   float64 `json:"score" bson:"score"`
}

// Step is one internal phase of a run (e.g. "search", "enrich").
type Step struct {
	Name      string     `json:"name" bson:"name"`
	Status    StepStatus `json:"status" bson:"status"`
	LatencyMS float64    `json:"latency_ms" bson:"latency_ms"`
	Error     *string    `json:"error,omitempty" bson:"error,omitempty"`
}

// ApiCall is one outbound call to an external provider during a run.
type ApiCall struct {
	Provider  string    `json:"provider" bson:"provider"`
	QueryUsed string    `json:"query_used" bson:"query_used"`
	Results   int       `json:"results" bson:"results"`
	LatencyMS float64   `json:"latency_ms" bson:"latency_ms"`
	CalledAt  time.Time `json:"called_at" bson:"called_at"`
}

// ResearchRun is the result of one research invocation.
// Created once per invocation; immutable after completion.
type ResearchRun struct {
	Query       string    `json:"query"`
	CompanyName string    `json:"company_name"`
	Industry    *string   `json:"industry,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	Sources     []Source  `json:"sources"`
	Steps       []Step    `json:"steps"`
	ApiCalls    []ApiCall `json:"api_calls"`
	Complete    bool      `json:"research_complete"`
	Error       *string   `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Status derives the run status from the error field.
func (r ResearchRun) Status() RunStatus {
	if r.Error != nil {
		return RunStatusFailure
	}
	return RunStatusSuccess
}

// LatencyMS is the wall-clock duration of the run in milliseconds.
func (r ResearchRun) LatencyMS() float64 {
	return float64(r.CompletedAt.Sub(r.StartedAt)) / float64(time.Millisecond)
}

// ResponseSize is the total size of all source text in characters.
func (r ResearchRun) ResponseSize() int {
	var n int
	for _, s := range r.Sources {
		n += len(s.Title) + len(s.Content) + len(s.URL)
	}
	return n
}
