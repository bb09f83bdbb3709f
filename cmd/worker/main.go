// The worker consumes policy documents from Kafka and runs the learning
// pipeline: structure parsing, critical fact extraction, entity linking,
// tiered relation learning, and graph/decision persistence.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nuriwon/yakgwan/internal/application/ingest"
	"github.com/nuriwon/yakgwan/internal/config"
	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/prometheus"
	"github.com/nuriwon/yakgwan/internal/intelligence/common"
	"github.com/nuriwon/yakgwan/internal/intelligence/entitylink"
	"github.com/nuriwon/yakgwan/internal/intelligence/extractor"
	"github.com/nuriwon/yakgwan/internal/intelligence/learning"
	"github.com/nuriwon/yakgwan/internal/intelligence/structparser"

	neo4jdriver "github.com/nuriwon/yakgwan/internal/infrastructure/database/neo4j"
	neo4jrepo "github.com/nuriwon/yakgwan/internal/infrastructure/database/neo4j/repositories"
	pgconn "github.com/nuriwon/yakgwan/internal/infrastructure/database/postgres"
	pgrepo "github.com/nuriwon/yakgwan/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/nuriwon/yakgwan/internal/infrastructure/database/redis"
	kafkaconsumer "github.com/nuriwon/yakgwan/internal/infrastructure/messaging/kafka"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	skipMigrations := flag.Bool("skip-migrations", false, "do not run database migrations on startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.Named("worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *skipMigrations); err != nil {
		logger.Error("worker exited with error", logging.Err(err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, skipMigrations bool) error {
	metrics := prometheus.NewMetrics()

	// ── Infrastructure ────────────────────────────────────────────────────────
	rdb, err := redisclient.NewClient(cfg.Redis, logger)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer rdb.Close()
	cache := redisclient.NewCache(rdb, logger, redisclient.WithPrefix(cfg.Redis.KeyPrefix))

	if !skipMigrations {
		if err := pgconn.RunMigrations(cfg.Postgres, logger); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}
	db, err := pgconn.Connect(cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer db.Close()

	graphDriver, err := neo4jdriver.NewDriver(ctx, cfg.Neo4j, logger)
	if err != nil {
		return fmt.Errorf("neo4j: %w", err)
	}
	defer graphDriver.Close(context.Background())

	// ── Intelligence ──────────────────────────────────────────────────────────
	linker, err := entitylink.NewLinkerFromFile(cfg.Ontology.Path, cfg.Ontology.FuzzyThreshold, logger)
	if err != nil {
		return fmt.Errorf("ontology: %w", err)
	}
	if cfg.Ontology.WatchFile {
		if err := linker.Watch(ctx, cfg.Ontology.Path); err != nil {
			logger.Warn("ontology watch disabled", logging.Err(err))
		}
	}

	ext, err := common.NewExtractor(cfg.Extraction, logger)
	if err != nil {
		return fmt.Errorf("extraction backend: %w", err)
	}

	templates := learning.NewTemplateStore(cache, cfg.Learning.TemplateTTL, logger)
	versions := learning.NewVersionStore(cache, cfg.Learning.ChunkTTL)
	chunks := learning.NewChunkStore(cache, cfg.Learning.ChunkTTL, cfg.Learning.LocalCacheTTL, logger)
	selector := learning.NewSelector(templates, versions, chunks,
		cfg.Learning.TemplateSimilarityThreshold, cfg.Learning.IncrementalSimilarityThreshold, logger)
	engine := learning.NewEngine(selector, chunks, versions, templates, ext, metrics, logger)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	decisions := pgrepo.NewDecisionRepository(db)
	graph := graphSink{repo: neo4jrepo.NewPolicyGraphRepository(graphDriver)}
	svc := ingest.NewService(structparser.New(), extractor.New(), linker,
		engine, decisions, graph, metrics, logger)

	handler := func(ctx context.Context, doc policy.Document) error {
		_, err := svc.Learn(ctx, doc)
		return err
	}
	consumer := kafkaconsumer.NewConsumer(cfg.Kafka, cfg.Worker, handler, logger)

	healthSrv := startHealthServer(cfg.Worker.HealthPort, rdb, metrics, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("health server shutdown error", logging.Err(err))
		}
	}()

	logger.Info("worker started",
		logging.String("topic", cfg.Kafka.Topic),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.String("ontology_version", linker.Version()),
		logging.String("extraction_backend", ext.Name()))

	return consumer.Run(ctx)
}

// graphSink adapts the Neo4j repository to the pipeline's sink interface.
type graphSink struct {
	repo *neo4jrepo.PolicyGraphRepository
}

func (g graphSink) WriteDocument(ctx context.Context, r ingest.Result) error {
	return g.repo.UpsertDocumentGraph(ctx, neo4jrepo.DocumentGraph{
		Document:  r.Document,
		Parsed:    r.Parsed,
		Facts:     r.Facts,
		Links:     r.Links,
		Relations: r.Relations,
	})
}

// startHealthServer exposes liveness, readiness, and metrics endpoints.
func startHealthServer(port int, rdb *goredis.Client, metrics *prometheus.Metrics,
	logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "cache unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", logging.Err(err))
		}
	}()

	return srv
}
