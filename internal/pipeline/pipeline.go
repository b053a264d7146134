// Package pipeline orchestrates one end-to-end research run: research,
// metadata collection, document-store persistence, stream relay, and the
// optional backfill and warehouse verification passes.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/kestrel-data/kestrel/internal/model"
	"github.com/kestrel-data/kestrel/internal/telemetry"
	"github.com/kestrel-data/kestrel/internal/warehouse"
)

// Researcher runs the research flow for one query.
type Researcher interface {
	Research(ctx context.Context, query string) model.ResearchRun
}

// Collector projects runs into metadata records.
type Collector interface {
	Collect(run model.ResearchRun) model.MetadataRecord
	SessionID() string
}

// Persister writes metadata records to the document store.
type Persister interface {
	SaveMetadata(ctx context.Context, rec model.MetadataRecord) (string, error)
}

// Streamer relays metadata records to the delivery stream.
type Streamer interface {
	StreamMetadata(ctx context.Context, rec model.MetadataRecord) (bool, error)
	StreamRecent(ctx context.Context, limit int) (int, error)
}

// Verifier reads back recent runs from the warehouse.
type Verifier interface {
	AgentRuns(ctx context.Context, limit int, dateFrom, dateTo time.Time) ([]warehouse.AgentRunRow, error)
}

// Options control the optional stages of a run.
type Options struct {
	// Relay disabled skips streaming entirely.
	Relay bool
	// Backfill additionally streams recent store documents.
	Backfill      bool
	BackfillLimit int
	// Verify queries the warehouse for recent runs after relaying.
	Verify bool
}

// Result summarizes one pipeline run. Stage errors are recorded per stage;
// a failure in one stage never prevents later stages from running.
type Result struct {
	Run    model.ResearchRun
	Record model.MetadataRecord

	MongoID      string
	MongoErr     error
	RelaySent    bool
	RelayErr     error
	BackfillSent int
	BackfillErr  error

	// WarehouseRuns is -1 when verification was skipped.
	WarehouseRuns int
	WarehouseErr  error
}

// Succeeded reports whether the research itself completed.
func (r Result) Succeeded() bool {
	return r.Run.Error == nil
}

// Pipeline wires the stages together. Persister, streamer, and verifier
// may be nil when the corresponding service is not configured; their
// stages are then skipped.
type Pipeline struct {
	researcher Researcher
	collector  Collector
	persister  Persister
	streamer   Streamer
	verifier   Verifier
	logger     *slog.Logger
	metrics    *telemetry.PipelineMetrics
}

func New(researcher Researcher, collector Collector, persister Persister, streamer Streamer, verifier Verifier, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		researcher: researcher,
		collector:  collector,
		persister:  persister,
		streamer:   streamer,
		verifier:   verifier,
		logger:     logger,
	}
}

// WithMetrics attaches pipeline instruments. A nil metrics value is valid
// and records nothing.
func (p *Pipeline) WithMetrics(m *telemetry.PipelineMetrics) *Pipeline {
	p.metrics = m
	return p
}

// Run executes the pipeline for one query.
func (p *Pipeline) Run(ctx context.Context, query string, opts Options) Result {
	res := Result{WarehouseRuns: -1}

	p.logger.Info("research started", "query", query, "session_id", p.collector.SessionID())
	res.Run = p.researcher.Research(ctx, query)
	res.Record = p.collector.Collect(res.Run)
	p.metrics.RecordRun(ctx, string(res.Record.Status), res.Record.LatencyMS)

	if res.Run.Error != nil {
		p.logger.Warn("research failed", "query", query, "error", *res.Run.Error)
	} else {
		p.logger.Info("research complete",
			"query", query,
			"sources", len(res.Run.Sources),
			"latency_ms", res.Record.LatencyMS)
	}

	p.persist(ctx, &res)
	if opts.Relay {
		p.relay(ctx, &res, opts)
	} else {
		p.logger.Info("relay skipped")
	}
	if opts.Verify {
		p.verify(ctx, &res)
	}

	return res
}

func (p *Pipeline) persist(ctx context.Context, res *Result) {
	if p.persister == nil {
		p.logger.Info("document store not configured, skipping persistence")
		return
	}

	id, err := p.persister.SaveMetadata(ctx, res.Record)
	if err != nil {
		res.MongoErr = err
		p.logger.Error("persist metadata failed", "error", err)
		return
	}
	res.MongoID = id
	p.logger.Info("metadata persisted", "mongo_id", id)
}

func (p *Pipeline) relay(ctx context.Context, res *Result, opts Options) {
	if p.streamer == nil {
		p.logger.Info("relay not configured, skipping")
		return
	}

	sent, err := p.streamer.StreamMetadata(ctx, res.Record)
	res.RelaySent = sent
	if err != nil {
		res.RelayErr = err
		p.logger.Error("relay failed", "error", err)
	} else if !sent {
		p.logger.Warn("relay partially delivered")
	} else {
		p.logger.Info("metadata relayed", "event_id", res.Record.EventID)
		p.metrics.RecordRelay(ctx, 1+len(res.Record.Steps)+len(res.Record.ApiCalls))
	}

	if !opts.Backfill {
		return
	}
	limit := opts.BackfillLimit
	if limit <= 0 {
		limit = 10
	}
	n, err := p.streamer.StreamRecent(ctx, limit)
	res.BackfillSent = n
	if err != nil {
		res.BackfillErr = err
		p.logger.Error("backfill failed", "error", err)
		return
	}
	p.logger.Info("backfill complete", "records", n)
}

func (p *Pipeline) verify(ctx context.Context, res *Result) {
	if p.verifier == nil {
		p.logger.Info("warehouse not configured, skipping verification")
		return
	}

	rows, err := p.verifier.AgentRuns(ctx, 5, time.Time{}, time.Time{})
	if err != nil {
		res.WarehouseErr = err
		p.logger.Warn("warehouse verification failed", "error", err)
		return
	}
	res.WarehouseRuns = len(rows)
	p.logger.Info("warehouse verified", "recent_runs", len(rows))
}
