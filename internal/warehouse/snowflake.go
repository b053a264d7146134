// Package warehouse reads the analytics tables that Firehose delivery
// lands in Snowflake, and provisions the ingestion objects (file format,
// stage, pipe) they depend on.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sf "github.com/snowflakedb/gosnowflake"

	"github.com/kestrel-data/kestrel/internal/config"
)

// Warehouse wraps a Snowflake connection for metadata read-back.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

// AgentRunRow is one row of the agent_runs table.
type AgentRunRow struct {
	RunID          string
	CompanyName    string
	Industry       *string
	Status         string
	StartedAt      time.Time
	CompletedAt    time.Time
	TotalLatencyMS float64
	TotalAPICalls  int
	ErrorMessage   *string
	IngestedAt     time.Time
}

// RunStepRow is one row of the run_steps table.
type RunStepRow struct {
	StepID       string
	RunID        string
	StepName     string
	Status       string
	LatencyMS    float64
	ErrorMessage *string
	IngestedAt   time.Time
}

// APICallRow is one row of the api_calls table.
type APICallRow struct {
	CallID          string
	RunID           string
	QueryUsed       string
	ResultsReturned int
	LatencyMS       float64
	CalledAt        time.Time
	IngestedAt      time.Time
}

// New opens a Snowflake connection from the configured account settings.
// The connection is lazy; call Ping to verify credentials.
func New(cfg config.Config, logger *slog.Logger) (*Warehouse, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("warehouse: open connection: %w", err)
	}
	db.SetMaxOpenConns(2)

	return &Warehouse{db: db, logger: logger}, nil
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.SnowflakeAccount == "" || cfg.SnowflakeUser == "" || cfg.SnowflakePassword == "" {
		return "", fmt.Errorf("warehouse: SNOWFLAKE_ACCOUNT, SNOWFLAKE_USER, SNOWFLAKE_PASSWORD must be set")
	}

	dsn, err := sf.DSN(&sf.Config{
		Account:   cfg.SnowflakeAccount,
		User:      cfg.SnowflakeUser,
		Password:  cfg.SnowflakePassword,
		Warehouse: cfg.SnowflakeWarehouse,
		Database:  cfg.SnowflakeDatabase,
		Schema:    cfg.SnowflakeSchema,
	})
	if err != nil {
		return "", fmt.Errorf("warehouse: build dsn: %w", err)
	}
	return dsn, nil
}

// Ping verifies the connection.
func (w *Warehouse) Ping(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return fmt.Errorf("warehouse: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() error {
	return w.db.Close()
}

// AgentRuns returns recent runs, newest first, optionally bounded by
// started_at date. Zero time values leave the corresponding bound open.
func (w *Warehouse) AgentRuns(ctx context.Context, limit int, dateFrom, dateTo time.Time) ([]AgentRunRow, error) {
	query, args := agentRunsQuery(limit, dateFrom, dateTo)

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query agent_runs: %w", err)
	}
	defer rows.Close()

	var out []AgentRunRow
	for rows.Next() {
		var (
			r        AgentRunRow
			industry sql.NullString
			errMsg   sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.CompanyName, &industry, &r.Status,
			&r.StartedAt, &r.CompletedAt, &r.TotalLatencyMS, &r.TotalAPICalls,
			&errMsg, &r.IngestedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scan agent_runs: %w", err)
		}
		if industry.Valid {
			r.Industry = &industry.String
		}
		if errMsg.Valid {
			r.ErrorMessage = &errMsg.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunSteps returns steps, newest first, optionally filtered to a set of runs.
func (w *Warehouse) RunSteps(ctx context.Context, limit int, runIDs []string) ([]RunStepRow, error) {
	query, args := childQuery("run_steps",
		"step_id, run_id, step_name, status, latency_ms, error_message, ingested_at",
		"ingested_at", limit, runIDs)

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query run_steps: %w", err)
	}
	defer rows.Close()

	var out []RunStepRow
	for rows.Next() {
		var (
			r      RunStepRow
			errMsg sql.NullString
		)
		if err := rows.Scan(&r.StepID, &r.RunID, &r.StepName, &r.Status,
			&r.LatencyMS, &errMsg, &r.IngestedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scan run_steps: %w", err)
		}
		if errMsg.Valid {
			r.ErrorMessage = &errMsg.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// APICalls returns calls, newest first, optionally filtered to a set of runs.
func (w *Warehouse) APICalls(ctx context.Context, limit int, runIDs []string) ([]APICallRow, error) {
	query, args := childQuery("api_calls",
		"call_id, run_id, query_used, results_returned, latency_ms, called_at, ingested_at",
		"called_at", limit, runIDs)

	rows, err := w.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query api_calls: %w", err)
	}
	defer rows.Close()

	var out []APICallRow
	for rows.Next() {
		var r APICallRow
		if err := rows.Scan(&r.CallID, &r.RunID, &r.QueryUsed, &r.ResultsReturned,
			&r.LatencyMS, &r.CalledAt, &r.IngestedAt); err != nil {
			return nil, fmt.Errorf("warehouse: scan api_calls: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// agentRunsQuery builds the agent_runs select with optional date bounds on
// started_at. Bounds compare by calendar date, matching how the dashboard
// filters.
func agentRunsQuery(limit int, dateFrom, dateTo time.Time) (string, []any) {
	var b strings.Builder
	b.WriteString(`SELECT run_id, company_name, industry, status, started_at, completed_at,
       total_latency_ms, total_api_calls, error_message, ingested_at
FROM agent_runs
WHERE 1=1`)

	var args []any
	if !dateFrom.IsZero() {
		b.WriteString(" AND CAST(started_at AS DATE) >= ?")
		args = append(args, dateFrom.Format("2006-01-02"))
	}
	if !dateTo.IsZero() {
		b.WriteString(" AND CAST(started_at AS DATE) <= ?")
		args = append(args, dateTo.Format("2006-01-02"))
	}
	b.WriteString(" ORDER BY started_at DESC LIMIT ?")
	args = append(args, limit)

	return b.String(), args
}

// childQuery builds a select for run_steps or api_calls with an optional
// run_id IN filter.
func childQuery(table, columns, orderBy string, limit int, runIDs []string) (string, []any) {
	var b strings.Builder
	var args []any

	fmt.Fprintf(&b, "SELECT %s\nFROM %s", columns, table)
	if len(runIDs) > 0 {
		placeholders := strings.Repeat("?,", len(runIDs))
		fmt.Fprintf(&b, "\nWHERE run_id IN (%s)", placeholders[:len(placeholders)-1])
		for _, id := range runIDs {
			args = append(args, id)
		}
	}
	fmt.Fprintf(&b, "\nORDER BY %s DESC\nLIMIT ?", orderBy)
	args = append(args, limit)

	return b.String(), args
}
