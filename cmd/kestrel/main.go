// Command kestrel runs the company research agent and its metadata
// pipeline: search, enrichment, document-store persistence, and relay to
// the warehouse delivery stream.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kestrel-data/kestrel/internal/agent"
	"github.com/kestrel-data/kestrel/internal/config"
	"github.com/kestrel-data/kestrel/internal/model"
	"github.com/kestrel-data/kestrel/internal/pipeline"
	"github.com/kestrel-data/kestrel/internal/relay"
	"github.com/kestrel-data/kestrel/internal/report"
	"github.com/kestrel-data/kestrel/internal/search"
	"github.com/kestrel-data/kestrel/internal/service/enrich"
	"github.com/kestrel-data/kestrel/internal/storage"
	"github.com/kestrel-data/kestrel/internal/telemetry"
	"github.com/kestrel-data/kestrel/internal/warehouse"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	level := slog.LevelInfo
	if os.Getenv("KESTREL_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(logger).ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

type runFlags struct {
	agentVersion  string
	maxSources    int
	noRelay       bool
	backfill      bool
	backfillLimit int
	verify        bool
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	var flags runFlags

	root := &cobra.Command{
		Use:          "kestrel [query]",
		Short:        "Run the company research agent and stream its metadata",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := "Nvidia"
			if len(args) > 0 {
				query = args[0]
			}
			return runResearch(cmd.Context(), logger, query, flags)
		},
	}

	root.Flags().StringVar(&flags.agentVersion, "version", "1.0.0", "agent version recorded in metadata")
	root.Flags().IntVar(&flags.maxSources, "max-sources", 5, "max sources to retrieve")
	root.Flags().BoolVar(&flags.noRelay, "no-relay", false, "skip streaming to Firehose")
	root.Flags().BoolVar(&flags.backfill, "backfill", false, "also stream recent store documents to Firehose")
	root.Flags().IntVar(&flags.backfillLimit, "backfill-limit", 10, "max documents to backfill")
	root.Flags().BoolVar(&flags.verify, "verify-warehouse", false, "query the warehouse for recent rows afterwards")

	root.AddCommand(newReportCmd(logger))
	root.AddCommand(newWarehouseSetupCmd(logger))

	return root
}

func runResearch(ctx context.Context, logger *slog.Logger, query string, flags runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("kestrel starting", "version", version, "query", query)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	metrics, err := telemetry.NewPipelineMetrics()
	if err != nil {
		logger.Warn("pipeline metrics unavailable", "error", err)
	}

	searcher, err := search.New(cfg.TavilyAPIKey, cfg.SearchDepth, cfg.SearchTimeout)
	if err != nil {
		return err
	}

	enricher := newEnrichProvider(cfg, logger)
	researcher := agent.NewResearcher(searcher, enricher, flags.maxSources, logger)
	collector := agent.NewCollector(flags.agentVersion)

	store := newStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close(context.Background())
	}

	streamer := newStreamer(ctx, cfg, store, logger)

	var verifier pipeline.Verifier
	if flags.verify {
		wh, err := warehouse.New(cfg, logger)
		if err != nil {
			logger.Warn("warehouse unavailable", "error", err)
		} else {
			defer wh.Close()
			verifier = wh
		}
	}

	var persister pipeline.Persister
	if store != nil {
		persister = store
	}

	p := pipeline.New(researcher, collector, persister, streamer, verifier, logger).
		WithMetrics(metrics)

	res := p.Run(ctx, query, pipeline.Options{
		Relay:         !flags.noRelay,
		Backfill:      flags.backfill,
		BackfillLimit: flags.backfillLimit,
		Verify:        flags.verify,
	})

	printSummary(res)

	if !res.Succeeded() {
		return fmt.Errorf("research failed: %s", *res.Run.Error)
	}
	return nil
}

func printSummary(res pipeline.Result) {
	fmt.Println("--- Summary ---")
	if res.Run.Error != nil {
		fmt.Printf("Research:  failed (%s)\n", *res.Run.Error)
	} else {
		fmt.Printf("Research:  OK | %d sources | %.0fms\n", len(res.Run.Sources), res.Record.LatencyMS)
	}

	switch {
	case res.MongoID != "":
		fmt.Printf("MongoDB:   %s\n", res.MongoID)
	case res.MongoErr != nil:
		fmt.Printf("MongoDB:   %v\n", res.MongoErr)
	default:
		fmt.Println("MongoDB:   skipped")
	}

	switch {
	case res.RelaySent:
		fmt.Println("Firehose:  sent")
	case res.RelayErr != nil:
		fmt.Printf("Firehose:  %v\n", res.RelayErr)
	default:
		fmt.Println("Firehose:  skipped")
	}

	if res.BackfillSent > 0 {
		fmt.Printf("Backfill:  %d records\n", res.BackfillSent)
	}
	if res.WarehouseRuns >= 0 {
		fmt.Printf("Snowflake: %d recent runs\n", res.WarehouseRuns)
	}
}

// newEnrichProvider selects the enrichment provider. "auto" uses OpenAI
// when a key is configured and falls back to noop otherwise.
func newEnrichProvider(cfg config.Config, logger *slog.Logger) enrich.Provider {
	switch cfg.EnrichProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when KESTREL_ENRICH_PROVIDER=openai")
			return enrich.NewNoopProvider()
		}
		p, err := enrich.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EnrichModel, cfg.EnrichTimeout)
		if err != nil {
			logger.Error("openai provider init failed", "error", err)
			return enrich.NewNoopProvider()
		}
		logger.Info("enrich provider: openai", "model", cfg.EnrichModel)
		return p

	case "noop":
		logger.Info("enrich provider: noop (enrichment step skipped)")
		return enrich.NewNoopProvider()

	case "auto":
		if cfg.OpenAIAPIKey != "" {
			p, err := enrich.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.EnrichModel, cfg.EnrichTimeout)
			if err == nil {
				logger.Info("enrich provider: openai (auto)", "model", cfg.EnrichModel)
				return p
			}
			logger.Error("openai provider init failed", "error", err)
		}
		logger.Info("enrich provider: noop (auto, no OPENAI_API_KEY)")
		return enrich.NewNoopProvider()

	default:
		logger.Warn("unknown enrich provider, using noop", "provider", cfg.EnrichProvider)
		return enrich.NewNoopProvider()
	}
}

// newStore connects to the document store, or returns nil when it is not
// configured or unreachable. Persistence is optional for a research run.
func newStore(ctx context.Context, cfg config.Config, logger *slog.Logger) *storage.Store {
	if cfg.MongoURI == "" {
		logger.Info("MONGODB_URI not set, document store disabled")
		return nil
	}
	store, err := storage.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	if err != nil {
		logger.Error("document store unavailable", "error", err)
		return nil
	}
	return store
}

// newStreamer builds the Firehose relay, or returns nil when the stream is
// not configured. The store doubles as the backfill source when present.
func newStreamer(ctx context.Context, cfg config.Config, store *storage.Store, logger *slog.Logger) pipeline.Streamer {
	if cfg.FirehoseStreamName == "" {
		logger.Info("FIREHOSE_STREAM_NAME not set, relay disabled")
		return nil
	}
	sender, err := relay.NewFirehoseSender(ctx, cfg.FirehoseStreamName, cfg.AWSRegion)
	if err != nil {
		logger.Error("firehose unavailable", "error", err)
		return nil
	}

	var source relay.MetadataSource
	if store != nil {
		source = store
	}
	return relay.New(sender, source, cfg.RelayBatchSize, cfg.RelayMaxRetries, cfg.RelayRetryBase, logger)
}

func newReportCmd(logger *slog.Logger) *cobra.Command {
	var (
		limit   int
		session string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize collected metadata from the document store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := storage.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
			if err != nil {
				return err
			}
			defer store.Close(context.Background())

			records, err := loadRecords(ctx, store, session, limit)
			if err != nil {
				return err
			}
			return report.Summarize(records).Render(os.Stdout)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 500, "max documents to load")
	cmd.Flags().StringVar(&session, "session", "", "restrict to one session id")

	return cmd
}

func loadRecords(ctx context.Context, store *storage.Store, session string, limit int) ([]model.MetadataRecord, error) {
	if session != "" {
		return store.MetadataBySession(ctx, session, limit)
	}
	return store.RecentMetadata(ctx, limit, 0)
}

func newWarehouseSetupCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "warehouse-setup",
		Short: "Provision Snowflake ingestion objects (tables, stage, pipe)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			wh, err := warehouse.New(cfg, logger)
			if err != nil {
				return err
			}
			defer wh.Close()

			if err := wh.Ping(ctx); err != nil {
				return err
			}
			return wh.Setup(ctx, cfg)
		},
	}
}
