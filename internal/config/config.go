// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration. It is constructed once at
// process start and passed by reference into each component constructor;
// components never read the environment themselves.
type Config struct {
	// Search settings.
	TavilyAPIKey  string
	SearchDepth   string // "basic" or "advanced"
	SearchTimeout time.Duration

	// Enrichment provider settings.
	EnrichProvider string // "auto", "openai", or "noop"
	OpenAIAPIKey   string
	EnrichModel    string
	EnrichTimeout  time.Duration

	// Document store settings.
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Relay settings.
	FirehoseStreamName string
	AWSRegion          string
	RelayBatchSize     int
	RelayMaxRetries    int
	RelayRetryBase     time.Duration

	// Warehouse settings.
	SnowflakeAccount   string
	SnowflakeUser      string
	SnowflakePassword  string
	SnowflakeWarehouse string
	SnowflakeDatabase  string
	SnowflakeSchema    string
	S3Bucket           string
	S3Prefix           string
	StorageIntegration string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		TavilyAPIKey:       envStr("TAVILY_API_KEY", ""),
		SearchDepth:        envStr("KESTREL_SEARCH_DEPTH", "advanced"),
		SearchTimeout:      envDuration("KESTREL_SEARCH_TIMEOUT", 30*time.Second),
		EnrichProvider:     envStr("KESTREL_ENRICH_PROVIDER", "auto"),
		OpenAIAPIKey:       envStr("OPENAI_API_KEY", ""),
		EnrichModel:        envStr("KESTREL_ENRICH_MODEL", "gpt-4o-mini"),
		EnrichTimeout:      envDuration("KESTREL_ENRICH_TIMEOUT", 30*time.Second),
		MongoURI:           envStr("MONGODB_URI", ""),
		MongoDatabase:      envStr("MONGODB_DATABASE", "agent_metadata_db"),
		MongoCollection:    envStr("MONGODB_COLLECTION", "agent_metadata"),
		FirehoseStreamName: envStr("FIREHOSE_STREAM_NAME", ""),
		AWSRegion:          envStr("AWS_REGION", "us-east-1"),
		RelayBatchSize:     envInt("KESTREL_RELAY_BATCH_SIZE", 25),
		RelayMaxRetries:    envInt("KESTREL_RELAY_MAX_RETRIES", 3),
		RelayRetryBase:     envDuration("KESTREL_RELAY_RETRY_BASE", time.Second),
		SnowflakeAccount:   envStr("SNOWFLAKE_ACCOUNT", ""),
		SnowflakeUser:      envStr("SNOWFLAKE_USER", ""),
		SnowflakePassword:  envStr("SNOWFLAKE_PASSWORD", ""),
		SnowflakeWarehouse: envStr("SNOWFLAKE_WAREHOUSE", "COMPUTE_WH"),
		SnowflakeDatabase:  envStr("SNOWFLAKE_DATABASE", "AGENT_METADATA_DB"),
		SnowflakeSchema:    envStr("SNOWFLAKE_SCHEMA", "PUBLIC"),
		S3Bucket:           envStr("S3_BUCKET_NAME", "agent-metadata-firehose"),
		S3Prefix:           envStr("S3_PREFIX", "agent_metadata/"),
		StorageIntegration: envStr("SNOWFLAKE_STORAGE_INTEGRATION", "S3_AGENT_METADATA"),
		OTELEndpoint:       envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:       envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:        envStr("OTEL_SERVICE_NAME", "kestrel"),
		LogLevel:           envStr("KESTREL_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
// Per-service credentials are checked by the component constructors, so a
// run without, say, Snowflake configured can still research and persist.
func (c Config) Validate() error {
	if c.RelayBatchSize <= 0 {
		return fmt.Errorf("config: KESTREL_RELAY_BATCH_SIZE must be positive")
	}
	// Firehose PutRecordBatch hard limit.
	if c.RelayBatchSize > 500 {
		return fmt.Errorf("config: KESTREL_RELAY_BATCH_SIZE must be at most 500")
	}
	if c.RelayMaxRetries < 0 {
		return fmt.Errorf("config: KESTREL_RELAY_MAX_RETRIES must not be negative")
	}
	if c.SearchDepth != "basic" && c.SearchDepth != "advanced" {
		return fmt.Errorf("config: KESTREL_SEARCH_DEPTH must be %q or %q", "basic", "advanced")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
