package warehouse

import (
	"context"
	"fmt"

	"github.com/kestrel-data/kestrel/internal/config"
)

// Ingestion DDL. Firehose writes newline-delimited JSON objects to S3; a
// single auto-ingest pipe lands every object into raw_records, and the
// typed views split the stream by record_type. A COPY transformation
// cannot filter rows, so a pipe per table is not expressible.
const (
	createDatabase = `CREATE DATABASE IF NOT EXISTS %s;`
	createSchema   = `CREATE SCHEMA IF NOT EXISTS %s;`

	createRawTable = `CREATE TABLE IF NOT EXISTS raw_records (
    record VARIANT,
    ingested_at TIMESTAMP_NTZ DEFAULT CURRENT_TIMESTAMP()
);`

	createFileFormat = `CREATE OR REPLACE FILE FORMAT agent_metadata_json_format
    TYPE = 'JSON'
    STRIP_OUTER_ARRAY = FALSE
    DATE_FORMAT = 'AUTO'
    TIMESTAMP_FORMAT = 'AUTO';`

	createStage = `CREATE OR REPLACE STAGE agent_metadata_stage
    URL = 's3://%s/%s'
    STORAGE_INTEGRATION = %s
    FILE_FORMAT = agent_metadata_json_format;`

	createPipe = `CREATE OR REPLACE PIPE agent_metadata_pipe
    AUTO_INGEST = TRUE
    AS
    COPY INTO raw_records (record)
    FROM @agent_metadata_stage
    FILE_FORMAT = agent_metadata_json_format
    ON_ERROR = 'CONTINUE';`

	createAgentRunsView = `CREATE OR REPLACE VIEW agent_runs AS
SELECT
    record:run_id::VARCHAR             AS run_id,
    record:company_name::VARCHAR       AS company_name,
    record:industry::VARCHAR           AS industry,
    record:status::VARCHAR             AS status,
    record:started_at::TIMESTAMP_NTZ   AS started_at,
    record:completed_at::TIMESTAMP_NTZ AS completed_at,
    record:total_latency_ms::FLOAT     AS total_latency_ms,
    record:total_api_calls::INTEGER    AS total_api_calls,
    record:error_message::VARCHAR      AS error_message,
    ingested_at
FROM raw_records
WHERE record:record_type = 'agent_run';`

	createRunStepsView = `CREATE OR REPLACE VIEW run_steps AS
SELECT
    record:step_id::VARCHAR       AS step_id,
    record:run_id::VARCHAR        AS run_id,
    record:step_name::VARCHAR     AS step_name,
    record:status::VARCHAR        AS status,
    record:latency_ms::FLOAT      AS latency_ms,
    record:error_message::VARCHAR AS error_message,
    ingested_at
FROM raw_records
WHERE record:record_type = 'run_step';`

	createAPICallsView = `CREATE OR REPLACE VIEW api_calls AS
SELECT
    record:call_id::VARCHAR           AS call_id,
    record:run_id::VARCHAR            AS run_id,
    record:query_used::VARCHAR        AS query_used,
    record:results_returned::INTEGER  AS results_returned,
    record:latency_ms::FLOAT          AS latency_ms,
    record:called_at::TIMESTAMP_NTZ   AS called_at,
    ingested_at
FROM raw_records
WHERE record:record_type = 'api_call';`
)

// Setup provisions the ingestion objects: database, schema, landing table,
// file format, external stage, auto-ingest pipe, and the three typed views.
// The storage integration must already exist; stage and pipe failures are
// logged and skipped so the rest of the setup still completes.
func (w *Warehouse) Setup(ctx context.Context, cfg config.Config) error {
	steps := []struct {
		name string
		ddl  string
	}{
		{"database", fmt.Sprintf(createDatabase, cfg.SnowflakeDatabase)},
		{"schema", fmt.Sprintf(createSchema, cfg.SnowflakeSchema)},
		{"raw_records table", createRawTable},
		{"file format", createFileFormat},
		{"agent_runs view", createAgentRunsView},
		{"run_steps view", createRunStepsView},
		{"api_calls view", createAPICallsView},
	}

	for _, s := range steps {
		w.logger.Info("warehouse setup", "object", s.name)
		if _, err := w.db.ExecContext(ctx, s.ddl); err != nil {
			return fmt.Errorf("warehouse: create %s: %w", s.name, err)
		}
	}

	stage := fmt.Sprintf(createStage, cfg.S3Bucket, cfg.S3Prefix, cfg.StorageIntegration)
	if _, err := w.db.ExecContext(ctx, stage); err != nil {
		w.logger.Warn("warehouse setup: stage creation failed, create the storage integration first",
			"error", err)
		return nil
	}

	w.logger.Info("warehouse setup", "object", "pipe")
	if _, err := w.db.ExecContext(ctx, createPipe); err != nil {
		w.logger.Warn("warehouse setup: pipe creation failed", "error", err)
		return nil
	}

	w.logger.Info("warehouse setup complete",
		"hint", "configure the S3 event notification with the pipe ARN from SHOW PIPES")
	return nil
}
