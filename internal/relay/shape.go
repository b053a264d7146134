// Package relay shapes metadata records into warehouse rows and forwards
// them in batches to the Kinesis Firehose delivery stream.
package relay

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-data/kestrel/internal/model"
)

// Kind classifies a metadata record once at the shaping boundary.
type Kind int

const (
	// KindLegacy is a flat record without step/call lists; shaping
	// synthesizes one step and one call from the run's own fields.
	KindLegacy Kind = iota
	// KindEnriched carries explicit step and call lists.
	KindEnriched
)

// Classify determines the record kind. The decision is made here, once;
// the per-record mappers never sniff the shape again.
func Classify(rec model.MetadataRecord) Kind {
	if len(rec.Steps) > 0 || len(rec.ApiCalls) > 0 {
		return KindEnriched
	}
	return KindLegacy
}

// RecordSet is the fan-out of one run: exactly one AgentRunRecord plus one
// RunStepRecord per step and one APICallRecord per call.
type RecordSet struct {
	Run   model.AgentRunRecord
	Steps []model.RunStepRecord
	Calls []model.APICallRecord
}

// Count returns the total number of records in the set.
func (rs RecordSet) Count() int {
	return 1 + len(rs.Steps) + len(rs.Calls)
}

// Payloads serializes the set into Firehose wire format: one JSON object
// per record, newline-terminated, run first. Only the projected record
// fields reach the wire; the storage-internal document id does not.
func (rs RecordSet) Payloads() ([][]byte, error) {
	out := make([][]byte, 0, rs.Count())

	appendRecord := func(v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("relay: marshal record: %w", err)
		}
		out = append(out, append(b, '\n'))
		return nil
	}

	if err := appendRecord(rs.Run); err != nil {
		return nil, err
	}
	for _, s := range rs.Steps {
		if err := appendRecord(s); err != nil {
			return nil, err
		}
	}
	for _, c := range rs.Calls {
		if err := appendRecord(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Shape maps one flat metadata record into its warehouse fan-out. The
// transform is pure and total: every recorded step and call produces
// exactly one downstream record, and a legacy record produces exactly one
// synthetic step and one synthetic call. Synthesized step/call ids are
// freshly generated on every invocation; repeated shaping of the same run
// yields identical run-level fields but new child ids.
func Shape(rec model.MetadataRecord) RecordSet {
	kind := Classify(rec)
	ts := ensureTime(rec.TimestampUTC)

	return RecordSet{
		Run:   shapeRun(rec, kind, ts),
		Steps: shapeSteps(rec, ts),
		Calls: shapeCalls(rec, ts),
	}
}

func shapeRun(rec model.MetadataRecord, kind Kind, ts time.Time) model.AgentRunRecord {
	run := model.AgentRunRecord{
		RecordType:     model.RecordTypeAgentRun,
		RunID:          rec.EventID,
		CompanyName:    rec.Query,
		Status:         rec.Status,
		StartedAt:      ts,
		CompletedAt:    ts,
		TotalLatencyMS: rec.LatencyMS,
		TotalAPICalls:  rec.NumSources,
		ErrorMessage:   rec.ErrorMessage,
	}

	if kind == KindEnriched {
		if rec.CompanyName != "" {
			run.CompanyName = rec.CompanyName
		}
		run.Industry = rec.Industry
		if rec.StartedAtUTC != nil {
			run.StartedAt = *rec.StartedAtUTC
		}
		if rec.CompletedAtUTC != nil {
			run.CompletedAt = *rec.CompletedAtUTC
		}
		if len(rec.ApiCalls) > 0 {
			run.TotalAPICalls = len(rec.ApiCalls)
		}
	}
	return run
}

func shapeSteps(rec model.MetadataRecord, ts time.Time) []model.RunStepRecord {
	if len(rec.Steps) == 0 {
		// Legacy input: one synthetic "research" step carrying the run's
		// own status and latency.
		return []model.RunStepRecord{{
			RecordType:   model.RecordTypeRunStep,
			StepID:       uuid.NewString(),
			RunID:        rec.EventID,
			StepName:     "research",
			Status:       model.StepStatus(rec.Status),
			LatencyMS:    rec.LatencyMS,
			ErrorMessage: rec.ErrorMessage,
		}}
	}

	steps := make([]model.RunStepRecord, 0, len(rec.Steps))
	for _, s := range rec.Steps {
		steps = append(steps, model.RunStepRecord{
			RecordType:   model.RecordTypeRunStep,
			StepID:       uuid.NewString(),
			RunID:        rec.EventID,
			StepName:     s.Name,
			Status:       s.Status,
			LatencyMS:    s.LatencyMS,
			ErrorMessage: s.Error,
		})
	}
	return steps
}

func shapeCalls(rec model.MetadataRecord, ts time.Time) []model.APICallRecord {
	if len(rec.ApiCalls) == 0 {
		// Legacy input: one synthetic call for the research query.
		return []model.APICallRecord{{
			RecordType:      model.RecordTypeAPICall,
			CallID:          uuid.NewString(),
			RunID:           rec.EventID,
			QueryUsed:       rec.Query,
			ResultsReturned: rec.NumSources,
			LatencyMS:       rec.LatencyMS,
			CalledAt:        ts,
		}}
	}

	calls := make([]model.APICallRecord, 0, len(rec.ApiCalls))
	for _, c := range rec.ApiCalls {
		calls = append(calls, model.APICallRecord{
			RecordType:      model.RecordTypeAPICall,
			CallID:          uuid.NewString(),
			RunID:           rec.EventID,
			QueryUsed:       c.QueryUsed,
			ResultsReturned: c.Results,
			LatencyMS:       c.LatencyMS,
			CalledAt:        ensureTime(c.CalledAt),
		})
	}
	return calls
}

// ensureTime substitutes now for missing timestamps.
func ensureTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
