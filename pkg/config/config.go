// Package config loads dealintel's process configuration from environment
// variables, following the same getenv-with-default and explicit Validate()
// shape as pkg/database's own config loader.
package config

import (
	"fmt"
	"time"

	"github.com/hoferino/dealintel/pkg/database"
)

// Config is the umbrella struct cmd/dealintel builds at startup and threads
// through the API server and worker pool. Load reads every sub-struct in
// one pass and fails if any required field is missing; only Database has
// its own loader (database.LoadConfigFromEnv).
type Config struct {
	Server    ServerConfig
	Database  database.Config
	Redis     RedisConfig
	BlobStore BlobStoreConfig
	Policy    PolicyConfig
	Providers ProvidersConfig
	Worker    WorkerConfig
	Retention RetentionConfig
	LogLevel  string
	LogJSON   bool
}

// ServerConfig configures the gin HTTP API (pkg/api).
type ServerConfig struct {
	Port         string
	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisConfig configures pkg/cache's shared namespaced cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// ToolTTL, RetrievalTTL, SummaryTTL are read from the environment for
	// the cache:tool:, cache:retrieval: and cache:summary: namespaces; no
	// code passes them on, and each cache user applies its own TTL.
	ToolTTL      time.Duration
	RetrievalTTL time.Duration
	SummaryTTL   time.Duration
}

// BlobStoreConfig configures pkg/blobstore's S3-compatible object store.
type BlobStoreConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
	SignedURLTTL    time.Duration
}

// PolicyConfig configures pkg/policy's in-process OPA evaluator.
type PolicyConfig struct {
	BundlePath string
}

// ProvidersConfig groups the external LLM/embedding/rerank provider
// settings consumed by pkg/llmprovider, pkg/embedding, and pkg/rerank.
type ProvidersConfig struct {
	LLMPrimaryBaseURL      string
	LLMPrimaryAPIKey       string
	LLMPrimaryModel        string
	LLMFallbackBaseURL     string
	LLMFallbackAPIKey      string
	LLMFallbackModel       string
	EmbeddingBaseURL       string
	EmbeddingAPIKey        string
	EmbeddingModel         string
	EmbeddingFallbackModel string
	RerankBaseURL          string
	RerankAPIKey           string
	RerankModel            string
	GraphExtractionBaseURL string
	GraphExtractionAPIKey  string
	RequestTimeout         time.Duration
}

// WorkerConfig configures pkg/worker's pool.
type WorkerConfig struct {
	InstanceID        string
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
	OrphanTimeout     time.Duration
	DefaultConcurrency int
	// PerQueueConcurrency holds per-queue concurrency overrides; Load leaves
	// it empty and cmd/dealintel does not pass it to pkg/worker.
	PerQueueConcurrency map[string]int
}

// RetentionConfig holds retention durations. CheckpointRetention is passed
// to checkpoint.NewRetentionService as its sweep interval; the checkpoint
// age cutoff is fixed at 30 days there. JobArchiveRetention and
// LLMUsageRetention are loaded but nothing reads them.
type RetentionConfig struct {
	CheckpointRetention time.Duration
	JobArchiveRetention time.Duration
	LLMUsageRetention   time.Duration
}

// Load reads the full Config from the environment, returning a *LoadError
// wrapping the first validation failure encountered.
func Load() (Config, error) {
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return Config{}, NewLoadError("database", err)
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         getEnvOrDefault("HTTP_PORT", "8080"),
			GinMode:      getEnvOrDefault("GIN_MODE", "release"),
			ReadTimeout:  mustDuration("HTTP_READ_TIMEOUT", "30s"),
			WriteTimeout: mustDuration("HTTP_WRITE_TIMEOUT", "60s"),
		},
		Database: dbCfg,
		Redis: RedisConfig{
			Addr:         getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password:     getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:           0,
			ToolTTL:      mustDuration("CACHE_TOOL_TTL", "10m"),
			RetrievalTTL: mustDuration("CACHE_RETRIEVAL_TTL", "5m"),
			SummaryTTL:   mustDuration("CACHE_SUMMARY_TTL", "1h"),
		},
		BlobStore: BlobStoreConfig{
			Bucket:          getEnvOrDefault("BLOB_BUCKET", "dealintel-documents"),
			Region:          getEnvOrDefault("BLOB_REGION", "us-east-1"),
			Endpoint:        getEnvOrDefault("BLOB_ENDPOINT", ""),
			AccessKeyID:     getEnvOrDefault("BLOB_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvOrDefault("BLOB_SECRET_ACCESS_KEY", ""),
			ForcePathStyle:  getEnvOrDefault("BLOB_FORCE_PATH_STYLE", "false") == "true",
			SignedURLTTL:    mustDuration("BLOB_SIGNED_URL_TTL", "15m"),
		},
		Policy: PolicyConfig{
			BundlePath: getEnvOrDefault("POLICY_BUNDLE_PATH", "./deploy/policy"),
		},
		Providers: ProvidersConfig{
			LLMPrimaryBaseURL:      getEnvOrDefault("LLM_PRIMARY_BASE_URL", ""),
			LLMPrimaryAPIKey:       getEnvOrDefault("LLM_PRIMARY_API_KEY", ""),
			LLMPrimaryModel:        getEnvOrDefault("LLM_PRIMARY_MODEL", ""),
			LLMFallbackBaseURL:     getEnvOrDefault("LLM_FALLBACK_BASE_URL", ""),
			LLMFallbackAPIKey:      getEnvOrDefault("LLM_FALLBACK_API_KEY", ""),
			LLMFallbackModel:       getEnvOrDefault("LLM_FALLBACK_MODEL", ""),
			EmbeddingBaseURL:       getEnvOrDefault("EMBEDDING_BASE_URL", ""),
			EmbeddingAPIKey:        getEnvOrDefault("EMBEDDING_API_KEY", ""),
			EmbeddingModel:         getEnvOrDefault("EMBEDDING_MODEL", ""),
			EmbeddingFallbackModel: getEnvOrDefault("EMBEDDING_FALLBACK_MODEL", ""),
			RerankBaseURL:          getEnvOrDefault("RERANK_BASE_URL", ""),
			RerankAPIKey:           getEnvOrDefault("RERANK_API_KEY", ""),
			RerankModel:            getEnvOrDefault("RERANK_MODEL", ""),
			GraphExtractionBaseURL: getEnvOrDefault("GRAPH_EXTRACTION_BASE_URL", ""),
			GraphExtractionAPIKey:  getEnvOrDefault("GRAPH_EXTRACTION_API_KEY", ""),
			RequestTimeout:         mustDuration("PROVIDER_REQUEST_TIMEOUT", "30s"),
		},
		Worker: WorkerConfig{
			InstanceID:          getEnvOrDefault("WORKER_INSTANCE_ID", hostnameOrDefault()),
			PollInterval:        mustDuration("WORKER_POLL_INTERVAL", "2s"),
			HeartbeatInterval:   mustDuration("WORKER_HEARTBEAT_INTERVAL", "10s"),
			OrphanTimeout:       mustDuration("WORKER_ORPHAN_TIMEOUT", "60s"),
			DefaultConcurrency:  mustInt("WORKER_DEFAULT_CONCURRENCY", 4),
			PerQueueConcurrency: map[string]int{},
		},
		Retention: RetentionConfig{
			CheckpointRetention: mustDuration("RETENTION_CHECKPOINTS", "720h"),
			JobArchiveRetention: mustDuration("RETENTION_JOB_ARCHIVES", "2160h"),
			LLMUsageRetention:   mustDuration("RETENTION_LLM_USAGE", "8760h"),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		LogJSON:  getEnvOrDefault("LOG_JSON", "true") == "true",
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, NewLoadError("environment", err)
	}
	return cfg, nil
}

// Validate checks cross-cutting invariants not already enforced by
// database.Config.Validate.
func (c Config) Validate() error {
	if c.Providers.LLMPrimaryBaseURL == "" {
		return NewValidationError("providers", "llm_primary", "base_url", fmt.Errorf("required"))
	}
	if c.Providers.EmbeddingBaseURL == "" {
		return NewValidationError("providers", "embedding", "base_url", fmt.Errorf("required"))
	}
	if c.Worker.DefaultConcurrency < 1 {
		return NewValidationError("worker", "default", "concurrency", fmt.Errorf("must be at least 1"))
	}
	return nil
}
