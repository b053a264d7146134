// Package report computes execution metrics over collected metadata and
// renders them as a terminal summary.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/kestrel-data/kestrel/internal/model"
)

// QueryStat aggregates latency for one query string.
type QueryStat struct {
	Query        string
	Runs         int
	AvgLatencyMS float64
}

// Summary holds the metrics the dashboard surfaces: run counts, success
// rate, latency, and distribution breakdowns.
type Summary struct {
	TotalRuns    int
	Successes    int
	Failures     int
	SuccessRate  float64 // percent
	AvgLatencyMS float64
	P95LatencyMS float64
	AvgSources   float64

	// QueryStats is sorted by average latency, slowest first.
	QueryStats []QueryStat
	// SourceDistribution counts runs per num_sources value.
	SourceDistribution map[int]int
	StatusCounts       map[model.RunStatus]int
}

// Summarize computes the summary over a set of metadata records.
func Summarize(records []model.MetadataRecord) Summary {
	s := Summary{
		SourceDistribution: make(map[int]int),
		StatusCounts:       make(map[model.RunStatus]int),
	}
	if len(records) == 0 {
		return s
	}

	type acc struct {
		runs    int
		latency float64
	}
	byQuery := make(map[string]*acc)

	var totalLatency, totalSources float64
	latencies := make([]float64, 0, len(records))
	for _, rec := range records {
		s.TotalRuns++
		s.StatusCounts[rec.Status]++
		if rec.Status == model.RunStatusSuccess {
			s.Successes++
		} else {
			s.Failures++
		}
		totalLatency += rec.LatencyMS
		latencies = append(latencies, rec.LatencyMS)
		totalSources += float64(rec.NumSources)
		s.SourceDistribution[rec.NumSources]++

		a := byQuery[rec.Query]
		if a == nil {
			a = &acc{}
			byQuery[rec.Query] = a
		}
		a.runs++
		a.latency += rec.LatencyMS
	}

	s.SuccessRate = 100 * float64(s.Successes) / float64(s.TotalRuns)
	s.AvgLatencyMS = totalLatency / float64(s.TotalRuns)
	s.P95LatencyMS = percentile(latencies, 0.95)
	s.AvgSources = totalSources / float64(s.TotalRuns)

	for q, a := range byQuery {
		s.QueryStats = append(s.QueryStats, QueryStat{
			Query:        q,
			Runs:         a.runs,
			AvgLatencyMS: a.latency / float64(a.runs),
		})
	}
	sort.Slice(s.QueryStats, func(i, j int) bool {
		if s.QueryStats[i].AvgLatencyMS != s.QueryStats[j].AvgLatencyMS {
			return s.QueryStats[i].AvgLatencyMS > s.QueryStats[j].AvgLatencyMS
		}
		return s.QueryStats[i].Query < s.QueryStats[j].Query
	})

	return s
}

// percentile returns the nearest-rank percentile of values. p is in (0,1].
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := int(float64(len(sorted))*p+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

// TopQueries returns the n slowest queries by average latency.
func (s Summary) TopQueries(n int) []QueryStat {
	if n > len(s.QueryStats) {
		n = len(s.QueryStats)
	}
	return s.QueryStats[:n]
}

// Render writes the summary as a plain-text table.
func (s Summary) Render(w io.Writer) error {
	if s.TotalRuns == 0 {
		_, err := fmt.Fprintln(w, "No metadata records found.")
		return err
	}

	fmt.Fprintln(w, "Agent Observability Summary")
	fmt.Fprintln(w, "---------------------------")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Total runs\t%d\n", s.TotalRuns)
	fmt.Fprintf(tw, "Success rate\t%.1f%%\n", s.SuccessRate)
	fmt.Fprintf(tw, "Avg latency\t%.0f ms\n", s.AvgLatencyMS)
	fmt.Fprintf(tw, "P95 latency\t%.0f ms\n", s.P95LatencyMS)
	fmt.Fprintf(tw, "Avg sources\t%.1f\n", s.AvgSources)
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSlowest queries (avg latency)")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "QUERY\tRUNS\tAVG MS\n")
	for _, qs := range s.TopQueries(12) {
		fmt.Fprintf(tw, "%s\t%d\t%.0f\n", qs.Query, qs.Runs, qs.AvgLatencyMS)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w, "\nSource count distribution")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SOURCES\tRUNS\n")
	counts := make([]int, 0, len(s.SourceDistribution))
	for n := range s.SourceDistribution {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for _, n := range counts {
		fmt.Fprintf(tw, "%d\t%d\n", n, s.SourceDistribution[n])
	}
	return tw.Flush()
}
