package agent

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-data/kestrel/internal/model"
)

func completedRun(t *testing.T) model.ResearchRun {
	t.Helper()
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return model.ResearchRun{
		Query:       "Nvidia",
		CompanyName: "Nvidia Corporation",
		Sources: []model.Source{
			{Title: "Nvidia Corp", URL: "https://nvidia.com", Content: "GPU maker", Score: 0.98},
			{Title: "News", URL: "https://example.com", Content: "Earnings beat", Score: 0.85},
		},
		Steps: []model.Step{
			{Name: "search", Status: model.StepStatusSuccess, LatencyMS: 400},
			{Name: "enrich", Status: model.StepStatusSuccess, LatencyMS: 50},
		},
		ApiCalls: []model.ApiCall{
			{Provider: "tavily", QueryUsed: "Nvidia", Results: 2, LatencyMS: 400, CalledAt: started},
		},
		Complete:    true,
		StartedAt:   started,
		CompletedAt: started.Add(450 * time.Millisecond),
	}
}

func TestCollect(t *testing.T) {
	c := NewCollector("1.0.0")
	rec := c.Collect(completedRun(t))

	_, err := uuid.Parse(rec.EventID)
	require.NoError(t, err, "event id must be a uuid")
	assert.Equal(t, c.SessionID(), rec.SessionID)
	assert.Equal(t, "1.0.0", rec.AgentVersion)
	assert.Equal(t, "Nvidia", rec.Query)
	assert.Equal(t, 6, rec.QueryLength)
	assert.Equal(t, model.RunStatusSuccess, rec.Status)
	assert.InDelta(t, 450.0, rec.LatencyMS, 0.001)
	assert.Equal(t, 2, rec.NumSources)
	assert.Nil(t, rec.ErrorMessage)
	assert.Len(t, rec.Steps, 2)
	assert.Len(t, rec.ApiCalls, 1)

	// Response size is the sum of title+content+url lengths across sources.
	want := len("Nvidia Corp") + len("GPU maker") + len("https://nvidia.com") +
		len("News") + len("Earnings beat") + len("https://example.com")
	assert.Equal(t, want, rec.ResponseSizeChars)
}

func TestCollectFailedRun(t *testing.T) {
	run := completedRun(t)
	msg := "search: status 500"
	run.Error = &msg
	run.Complete = false
	run.Sources = nil

	c := NewCollector("1.0.0")
	rec := c.Collect(run)

	assert.Equal(t, model.RunStatusFailure, rec.Status)
	require.NotNil(t, rec.ErrorMessage)
	assert.Equal(t, msg, *rec.ErrorMessage)
	assert.Zero(t, rec.NumSources)
	assert.Zero(t, rec.ResponseSizeChars)
}

func TestHistory(t *testing.T) {
	c := NewCollector("1.0.0")

	_, ok := c.Latest()
	assert.False(t, ok)

	first := c.Collect(completedRun(t))
	second := c.Collect(completedRun(t))

	assert.NotEqual(t, first.EventID, second.EventID, "event ids are fresh per run")
	assert.Equal(t, first.SessionID, second.SessionID, "session id is stable")

	require.Len(t, c.History(), 2)
	latest, ok := c.Latest()
	require.True(t, ok)
	assert.Equal(t, second.EventID, latest.EventID)
}
