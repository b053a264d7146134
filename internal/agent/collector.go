package agent

import (
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-data/kestrel/internal/model"
)

// Collector converts completed research runs into flat metadata records.
// One collector spans one session: every record it produces carries the
// same session id and agent version.
type Collector struct {
	agentVersion string
	sessionID    string
	history      []model.MetadataRecord
}

// NewCollector creates a collector with a fresh session id.
func NewCollector(agentVersion string) *Collector {
	return &Collector{
		agentVersion: agentVersion,
		sessionID:    uuid.NewString(),
	}
}

// SessionID returns the collector's session identifier.
func (c *Collector) SessionID() string {
	return c.sessionID
}

// Collect projects a run into a flat MetadataRecord with a fresh event id
// and appends it to the in-memory history.
func (c *Collector) Collect(run model.ResearchRun) model.MetadataRecord {
	started := run.StartedAt
	completed := run.CompletedAt

	rec := model.MetadataRecord{
		EventID:           uuid.NewString(),
		TimestampUTC:      time.Now().UTC(),
		Query:             run.Query,
		QueryLength:       len(run.Query),
		Status:            run.Status(),
		LatencyMS:         run.LatencyMS(),
		ResponseSizeChars: run.ResponseSize(),
		NumSources:        len(run.Sources),
		SessionID:         c.sessionID,
		AgentVersion:      c.agentVersion,
		ErrorMessage:      run.Error,
		CompanyName:       run.CompanyName,
		Industry:          run.Industry,
		Steps:             run.Steps,
		ApiCalls:          run.ApiCalls,
		StartedAtUTC:      &started,
		CompletedAtUTC:    &completed,
	}

	c.history = append(c.history, rec)
	return rec
}

// History returns all records collected in this session, oldest first.
func (c *Collector) History() []model.MetadataRecord {
	return c.history
}

// Latest returns the most recent record, or false when none exist.
func (c *Collector) Latest() (model.MetadataRecord, bool) {
	if len(c.history) == 0 {
		return model.MetadataRecord{}, false
	}
	return c.history[len(c.history)-1], true
}
