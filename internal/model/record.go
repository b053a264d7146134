package model

import "time"

// RecordType discriminates the three relay record kinds on the wire.
type RecordType string

const (
	RecordTypeAgentRun RecordType = "agent_run"
	RecordTypeRunStep  RecordType = "run_step"
	RecordTypeAPICall  RecordType = "api_call"
)

// AgentRunRecord is the warehouse projection of one run (agent_runs table).
type AgentRunRecord struct {
	RecordType     RecordType `json:"record_type"`
	RunID          string     `json:"run_id"`
	CompanyName    string     `json:"company_name"`
	Industry       *string    `json:"industry"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    time.Time  `json:"completed_at"`
	TotalLatencyMS float64    `json:"total_latency_ms"`
	TotalAPICalls  int        `json:"total_api_calls"`
	ErrorMessage   *string    `json:"error_message"`
}

// RunStepRecord is the warehouse projection of one step (run_steps table).
type RunStepRecord struct {
	RecordType   RecordType `json:"record_type"`
	StepID       string     `json:"step_id"`
	RunID        string     `json:"run_id"`
	StepName     string     `json:"step_name"`
	Status       StepStatus `json:"status"`
	LatencyMS    float64    `json:"latency_ms"`
	ErrorMessage *string    `json:"error_message"`
}

// APICallRecord is the warehouse projection of one call (api_calls table).
type APICallRecord struct {
	RecordType      RecordType `json:"record_type"`
	CallID          string     `json:"call_id"`
	RunID           string     `json:"run_id"`
	QueryUsed       string     `json:"query_used"`
	ResultsReturned int        `json:"results_returned"`
	LatencyMS       float64    `json:"latency_ms"`
	CalledAt        time.Time  `json:"called_at"`
}
