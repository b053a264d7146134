package warehouse

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel-data/kestrel/internal/config"
)

func warehouseConfig() config.Config {
	return config.Config{
		SnowflakeAccount:   "xy12345.us-east-1",
		SnowflakeUser:      "kestrel",
		SnowflakePassword:  "secret",
		SnowflakeWarehouse: "COMPUTE_WH",
		SnowflakeDatabase:  "AGENT_METADATA_DB",
		SnowflakeSchema:    "PUBLIC",
	}
}

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN(warehouseConfig())
	require.NoError(t, err)
	assert.Contains(t, dsn, "xy12345.us-east-1")
	assert.Contains(t, dsn, "AGENT_METADATA_DB")
	assert.NotContains(t, strings.ToLower(dsn), "password=")
}

func TestBuildDSNRequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"missing account", func(c *config.Config) { c.SnowflakeAccount = "" }},
		{"missing user", func(c *config.Config) { c.SnowflakeUser = "" }},
		{"missing password", func(c *config.Config) { c.SnowflakePassword = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := warehouseConfig()
			tt.mutate(&cfg)
			_, err := buildDSN(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "must be set")
		})
	}
}

func TestAgentRunsQuery(t *testing.T) {
	t.Run("no bounds", func(t *testing.T) {
		query, args := agentRunsQuery(500, time.Time{}, time.Time{})
		assert.NotContains(t, query, "CAST(started_at AS DATE)")
		assert.Contains(t, query, "ORDER BY started_at DESC LIMIT ?")
		assert.Equal(t, []any{500}, args)
	})

	t.Run("both bounds", func(t *testing.T) {
		from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
		query, args := agentRunsQuery(100, from, to)
		assert.Contains(t, query, "CAST(started_at AS DATE) >= ?")
		assert.Contains(t, query, "CAST(started_at AS DATE) <= ?")
		assert.Equal(t, []any{"2026-08-01", "2026-08-15", 100}, args)
	})
}

func TestChildQuery(t *testing.T) {
	t.Run("unfiltered", func(t *testing.T) {
		query, args := childQuery("run_steps",
			"step_id, run_id", "ingested_at", 5000, nil)
		assert.NotContains(t, query, "WHERE")
		assert.Contains(t, query, "ORDER BY ingested_at DESC")
		assert.Equal(t, []any{5000}, args)
	})

	t.Run("run id filter", func(t *testing.T) {
		query, args := childQuery("api_calls",
			"call_id, run_id", "called_at", 100, []string{"a", "b", "c"})
		assert.Contains(t, query, "WHERE run_id IN (?,?,?)")
		assert.Equal(t, []any{"a", "b", "c", 100}, args)
	})
}
