package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MetadataRecord is the flat, denormalized projection of a ResearchRun
// stored in the document store. Legacy records carry only the flat fields;
// enriched records additionally embed the per-step and per-call lists.
type MetadataRecord struct {
	ID                primitive.ObjectID `json:"-" bson:"_id,omitempty"`
	EventID           string             `json:"event_id" bson:"event_id"`
	TimestampUTC      time.Time          `json:"timestamp_utc" bson:"timestamp_utc"`
	Query             string             `json:"query" bson:"query"`
	QueryLength       int                `json:"query_length" bson:"query_length"`
	Status            RunStatus          `json:"status" bson:"status"`
	LatencyMS         float64            `json:"latency_ms" bson:"latency_ms"`
	ResponseSizeChars int                `json:"response_size_chars" bson:"response_size_chars"`
	NumSources        int                `json:"num_sources" bson:"num_sources"`
	SessionID         string             `json:"session_id" bson:"session_id"`
	AgentVersion      string             `json:"agent_version" bson:"agent_version"`
	ErrorMessage      *string            `json:"error_message" bson:"error_message"`

	// Enriched fields, absent on legacy documents.
	CompanyName    string     `json:"company_name,omitempty" bson:"company_name,omitempty"`
	Industry       *string    `json:"industry,omitempty" bson:"industry,omitempty"`
	Steps          []Step     `json:"steps,omitempty" bson:"steps,omitempty"`
	ApiCalls       []ApiCall  `json:"api_calls,omitempty" bson:"api_calls,omitempty"`
	StartedAtUTC   *time.Time `json:"started_at_utc,omitempty" bson:"started_at_utc,omitempty"`
	CompletedAtUTC *time.Time `json:"completed_at_utc,omitempty" bson:"completed_at_utc,omitempty"`
}
