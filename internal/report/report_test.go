package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-data/kestrel/internal/model"
)

func rec(query string, status model.RunStatus, latency float64, sources int) model.MetadataRecord {
	return model.MetadataRecord{
		Query:      query,
		Status:     status,
		LatencyMS:  latency,
		NumSources: sources,
	}
}

func TestSummarize(t *testing.T) {
	records := []model.MetadataRecord{
		rec("Nvidia", model.RunStatusSuccess, 400, 2),
		rec("Nvidia", model.RunStatusSuccess, 600, 3),
		rec("OpenAI", model.RunStatusSuccess, 900, 5),
		rec("AMD", model.RunStatusFailure, 100, 0),
	}

	s := Summarize(records)

	assert.Equal(t, 4, s.TotalRuns)
	assert.Equal(t, 3, s.Successes)
	assert.Equal(t, 1, s.Failures)
	assert.InDelta(t, 75.0, s.SuccessRate, 0.001)
	assert.InDelta(t, 500.0, s.AvgLatencyMS, 0.001)
	assert.InDelta(t, 900.0, s.P95LatencyMS, 0.001)
	assert.InDelta(t, 2.5, s.AvgSources, 0.001)

	assert.Equal(t, 3, s.StatusCounts[model.RunStatusSuccess])
	assert.Equal(t, 1, s.StatusCounts[model.RunStatusFailure])
	assert.Equal(t, map[int]int{0: 1, 2: 1, 3: 1, 5: 1}, s.SourceDistribution)
}

func TestSummarizeQueryStatsSortedSlowestFirst(t *testing.T) {
	records := []model.MetadataRecord{
		rec("fast", model.RunStatusSuccess, 100, 1),
		rec("slow", model.RunStatusSuccess, 900, 1),
		rec("slow", model.RunStatusSuccess, 1100, 1),
		rec("medium", model.RunStatusSuccess, 500, 1),
	}

	s := Summarize(records)

	require.Len(t, s.QueryStats, 3)
	assert.Equal(t, "slow", s.QueryStats[0].Query)
	assert.Equal(t, 2, s.QueryStats[0].Runs)
	assert.InDelta(t, 1000.0, s.QueryStats[0].AvgLatencyMS, 0.001)
	assert.Equal(t, "medium", s.QueryStats[1].Query)
	assert.Equal(t, "fast", s.QueryStats[2].Query)
}

func TestTopQueriesClampsToAvailable(t *testing.T) {
	s := Summarize([]model.MetadataRecord{rec("only", model.RunStatusSuccess, 100, 1)})
	assert.Len(t, s.TopQueries(12), 1)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.TotalRuns)
	assert.Zero(t, s.SuccessRate)
	assert.Empty(t, s.QueryStats)
}

func TestRender(t *testing.T) {
	records := []model.MetadataRecord{
		rec("Nvidia", model.RunStatusSuccess, 450, 2),
		rec("AMD", model.RunStatusFailure, 120, 0),
	}

	var buf bytes.Buffer
	require.NoError(t, Summarize(records).Render(&buf))

	out := buf.String()
	assert.Contains(t, out, "Total runs")
	assert.Contains(t, out, "50.0%")
	assert.Contains(t, out, "Nvidia")
	assert.Contains(t, out, "Source count distribution")
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Summary{}.Render(&buf))
	assert.Contains(t, buf.String(), "No metadata records found")
}
