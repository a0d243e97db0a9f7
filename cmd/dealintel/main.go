// Command dealintel runs the combined API server and worker pool, grounded
// on the teacher's cmd/tarsy/main.go bootstrap: load .env, load and
// validate Config, build the ent client (running migrations), wire every
// package's collaborators together, and serve until an interrupt signal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoferino/dealintel/pkg/agent"
	"github.com/hoferino/dealintel/pkg/api"
	"github.com/hoferino/dealintel/pkg/blobstore"
	"github.com/hoferino/dealintel/pkg/cache"
	"github.com/hoferino/dealintel/pkg/checkpoint"
	"github.com/hoferino/dealintel/pkg/config"
	"github.com/hoferino/dealintel/pkg/database"
	"github.com/hoferino/dealintel/pkg/embedding"
	"github.com/hoferino/dealintel/pkg/events"
	"github.com/hoferino/dealintel/pkg/ingestion"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/llmprovider"
	"github.com/hoferino/dealintel/pkg/observability"
	"github.com/hoferino/dealintel/pkg/policy"
	"github.com/hoferino/dealintel/pkg/rerank"
	"github.com/hoferino/dealintel/pkg/retrieval"
	"github.com/hoferino/dealintel/pkg/worker"
)

func main() {
	envPath := flag.String("env-file", ".env", "path to .env file (missing file is not an error)")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load env file", "path", *envPath, "error", err)
	}

	if err := run(); err != nil {
		slog.Error("dealintel exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gin.SetMode(cfg.Server.GinMode)

	dbClient, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	blobs, err := blobstore.New(ctx, blobstore.Config{
		Bucket:          cfg.BlobStore.Bucket,
		Region:          cfg.BlobStore.Region,
		Endpoint:        cfg.BlobStore.Endpoint,
		AccessKeyID:     cfg.BlobStore.AccessKeyID,
		SecretAccessKey: cfg.BlobStore.SecretAccessKey,
		ForcePathStyle:  cfg.BlobStore.ForcePathStyle,
		SignedURLTTL:    cfg.BlobStore.SignedURLTTL,
	})
	if err != nil {
		return fmt.Errorf("build blobstore: %w", err)
	}

	redisCache := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)

	authz, err := policy.New(ctx, cfg.Policy.BundlePath)
	if err != nil {
		return fmt.Errorf("compile policy bundle: %w", err)
	}

	registerer := prometheus.DefaultRegisterer
	metrics := observability.NewMetrics(registerer)
	usageLogger := observability.NewUsageLogger(dbClient.Client, metrics)
	usageRepo := observability.NewRepository(dbClient.Client)

	primaryClient := llmprovider.NewHTTPClient(llmprovider.HTTPConfig{
		BaseURL: cfg.Providers.LLMPrimaryBaseURL,
		APIKey:  cfg.Providers.LLMPrimaryAPIKey,
		Model:   cfg.Providers.LLMPrimaryModel,
		Timeout: cfg.Providers.RequestTimeout,
	})
	var fallbackClient llmprovider.Client
	if cfg.Providers.LLMFallbackBaseURL != "" {
		fallbackClient = llmprovider.NewHTTPClient(llmprovider.HTTPConfig{
			BaseURL: cfg.Providers.LLMFallbackBaseURL,
			APIKey:  cfg.Providers.LLMFallbackAPIKey,
			Model:   cfg.Providers.LLMFallbackModel,
			Timeout: cfg.Providers.RequestTimeout,
		})
	}
	provider := llmprovider.New(
		cfg.Providers.LLMPrimaryModel, primaryClient,
		cfg.Providers.LLMFallbackModel, fallbackClient,
		dbClient.Client,
	)

	embedder := embedding.New(embedding.Config{
		BaseURL:       cfg.Providers.EmbeddingBaseURL,
		APIKey:        cfg.Providers.EmbeddingAPIKey,
		Model:         cfg.Providers.EmbeddingModel,
		FallbackModel: cfg.Providers.EmbeddingFallbackModel,
		Timeout:       cfg.Providers.RequestTimeout,
	}, dbClient.Client)

	reranker := rerank.New(rerank.Config{
		BaseURL: cfg.Providers.RerankBaseURL,
		APIKey:  cfg.Providers.RerankAPIKey,
		Model:   cfg.Providers.RerankModel,
		Timeout: cfg.Providers.RequestTimeout,
	})

	extractor := agent.NewLLMExtractor(provider)
	graph := kgraph.New(dbClient.Client, embedder, extractor)
	retriever := retrieval.New(graph, reranker, redisCache)
	queue := jobqueue.New(dbClient.Client)
	runtime := agent.New(dbClient.Client, graph, retriever, queue, redisCache, provider)

	checkpoints := checkpoint.New(dbClient.Client)
	retention := checkpoint.NewRetentionService(checkpoints, cfg.Retention.CheckpointRetention)
	retention.Start(ctx)
	defer retention.Stop()

	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Database, cfg.Database.SSLMode,
	)
	publisher := events.NewEventPublisher(dbClient.DB())
	connManager := events.NewConnectionManager(events.NoopCatchupQuerier{}, cfg.Server.WriteTimeout)
	listener := events.NewNotifyListener(connString, connManager)
	connManager.SetListener(listener)
	if err := listener.Start(ctx); err != nil {
		return fmt.Errorf("start notify listener: %w", err)
	}
	defer listener.Stop(context.Background())

	ingestionHandlers := ingestion.New(dbClient.Client, blobs, graph, queue, extractor)
	registry := worker.NewRegistry()
	ingestionHandlers.Register(registry, cfg.Worker.DefaultConcurrency)
	pool := worker.New(queue, registry, worker.Config{
		InstanceID:         cfg.Worker.InstanceID,
		PollInterval:       cfg.Worker.PollInterval,
		HeartbeatInterval:  cfg.Worker.HeartbeatInterval,
		OrphanTimeout:      cfg.Worker.OrphanTimeout,
		DefaultConcurrency: cfg.Worker.DefaultConcurrency,
	})
	pool.Start(ctx)
	defer pool.Stop()

	server := api.NewServer(api.Deps{
		Client:       dbClient.Client,
		Blobs:        blobs,
		Graph:        graph,
		Retriever:    retriever,
		Queue:        queue,
		Runtime:      runtime,
		Checkpoints:  checkpoints,
		UsageRepo:    usageRepo,
		UsageLogger:  usageLogger,
		Metrics:      metrics,
		Authz:        authz,
		Publisher:    publisher,
		ConnManager:  connManager,
		GinMode:      cfg.Server.GinMode,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err := server.ValidateWiring(); err != nil {
		return fmt.Errorf("server wiring: %w", err)
	}

	go serveMetrics(ctx)

	slog.Info("dealintel starting", "port", cfg.Server.Port)
	return server.Start(ctx, ":"+cfg.Server.Port)
}

// serveMetrics runs a plain net/http server on :9090 exposing Prometheus
// metrics, kept separate from the gin engine so /admin/usage's tenant
// scoping never accidentally gates cluster-internal scrape traffic.
func serveMetrics(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":9090", Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("metrics server failed", "error", err)
	}
}
