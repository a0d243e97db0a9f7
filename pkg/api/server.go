// Package api exposes dealintel's HTTP surface over gin: document
// upload/retry, the chat endpoint (streamed over SSE), hybrid search, CIM
// step advancement, admin usage/cost reporting, and a WebSocket endpoint
// for dashboard event fan-out. Grounded on the teacher's cmd/tarsy bootstrap
// and pkg/api/server.go wiring pattern (collaborators assembled by the
// caller and handed to NewServer, ValidateWiring before Start), translated
// from Echo to gin since that is the router actually vendored in go.mod.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hoferino/dealintel/ent"
	"github.com/hoferino/dealintel/pkg/agent"
	"github.com/hoferino/dealintel/pkg/blobstore"
	"github.com/hoferino/dealintel/pkg/checkpoint"
	"github.com/hoferino/dealintel/pkg/events"
	"github.com/hoferino/dealintel/pkg/jobqueue"
	"github.com/hoferino/dealintel/pkg/kgraph"
	"github.com/hoferino/dealintel/pkg/observability"
	"github.com/hoferino/dealintel/pkg/policy"
	"github.com/hoferino/dealintel/pkg/retrieval"
	"github.com/hoferino/dealintel/pkg/version"
)

// Server bundles every collaborator an HTTP handler needs and owns the gin
// engine's lifecycle. ValidateWiring checks nine of the collaborators
// (client, blobs, graph, retriever, queue, runtime, checkpoints, usageRepo,
// authz) before Start instead of a nil-pointer panic on first request;
// usageLogger, metrics and publisher are not checked and no handler reads
// them, and a nil connManager makes /ws answer 503.
type Server struct {
	engine *gin.Engine
	http   *http.Server

	client       *ent.Client
	blobs        *blobstore.Store
	graph        *kgraph.Graph
	retriever    *retrieval.Retriever
	queue        *jobqueue.Queue
	runtime      *agent.Runtime
	checkpoints  *checkpoint.Store
	usageRepo    *observability.Repository
	usageLogger  *observability.UsageLogger
	metrics      *observability.Metrics
	authz        *policy.Evaluator
	publisher    *events.EventPublisher
	connManager  *events.ConnectionManager

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Deps are the collaborators NewServer wires into every handler.
type Deps struct {
	Client      *ent.Client
	Blobs       *blobstore.Store
	Graph       *kgraph.Graph
	Retriever   *retrieval.Retriever
	Queue       *jobqueue.Queue
	Runtime     *agent.Runtime
	Checkpoints *checkpoint.Store
	UsageRepo   *observability.Repository
	UsageLogger *observability.UsageLogger
	Metrics     *observability.Metrics
	Authz       *policy.Evaluator
	Publisher   *events.EventPublisher
	ConnManager *events.ConnectionManager

	GinMode      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds the gin engine and registers every route. Call
// ValidateWiring before Start in cmd/dealintel so a missing collaborator
// fails fast at boot rather than on the first request that needs it.
func NewServer(deps Deps) *Server {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(), securityHeaders())

	s := &Server{
		engine:       engine,
		client:       deps.Client,
		blobs:        deps.Blobs,
		graph:        deps.Graph,
		retriever:    deps.Retriever,
		queue:        deps.Queue,
		runtime:      deps.Runtime,
		checkpoints:  deps.Checkpoints,
		usageRepo:    deps.UsageRepo,
		usageLogger:  deps.UsageLogger,
		metrics:      deps.Metrics,
		authz:        deps.Authz,
		publisher:    deps.Publisher,
		connManager:  deps.ConnManager,
		readTimeout:  deps.ReadTimeout,
		writeTimeout: deps.WriteTimeout,
	}
	s.setupRoutes()
	return s
}

// ValidateWiring reports the first unset required collaborator, so
// cmd/dealintel can fail at boot instead of on first request.
func (s *Server) ValidateWiring() error {
	switch {
	case s.client == nil:
		return fmt.Errorf("api: ent client not wired")
	case s.blobs == nil:
		return fmt.Errorf("api: blobstore not wired")
	case s.graph == nil:
		return fmt.Errorf("api: knowledge graph not wired")
	case s.retriever == nil:
		return fmt.Errorf("api: retriever not wired")
	case s.queue == nil:
		return fmt.Errorf("api: jobqueue not wired")
	case s.runtime == nil:
		return fmt.Errorf("api: agent runtime not wired")
	case s.checkpoints == nil:
		return fmt.Errorf("api: checkpoint store not wired")
	case s.usageRepo == nil:
		return fmt.Errorf("api: observability repository not wired")
	case s.authz == nil:
		return fmt.Errorf("api: policy evaluator not wired")
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.handleHealth)

	s.engine.POST("/documents/upload", s.handleUploadDocument)
	s.engine.POST("/webhooks/document-uploaded", s.handleDocumentUploadedWebhook)
	s.engine.GET("/documents/:id", s.handleGetDocument)
	s.engine.POST("/documents/:id/retry", s.handleRetryDocument)

	s.engine.POST("/chat", s.handleChat)
	s.engine.POST("/search/hybrid", s.handleHybridSearch)
	s.engine.POST("/cims/:id/step", s.handleCIMStep)

	admin := s.engine.Group("/admin/usage")
	{
		admin.GET("/daily", s.handleUsageDaily)
		admin.GET("/by-feature", s.handleUsageByFeature)
		admin.GET("/by-model", s.handleUsageByModel)
		admin.GET("/by-deal", s.handleUsageByDeal)
		admin.GET("/errors", s.handleUsageErrors)
		admin.GET("/summary", s.handleUsageSummary)
	}

	s.engine.GET("/ws", s.handleWebSocket)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version.Full()})
}

// Start runs the HTTP server until ctx is cancelled, at which point it
// shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, allowing in-flight requests
// (including streamed /chat SSE connections) up to 30s to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Engine exposes the underlying gin engine for tests that want to drive
// requests with httptest without going through Start/Shutdown.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
