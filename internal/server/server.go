package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/lgpdshield/lgpd-shield/internal/audit"
	"github.com/lgpdshield/lgpd-shield/internal/cache"
	"github.com/lgpdshield/lgpd-shield/internal/config"
	"github.com/lgpdshield/lgpd-shield/internal/logger"
	"github.com/lgpdshield/lgpd-shield/internal/redact"
	"github.com/lgpdshield/lgpd-shield/internal/structured"
	"github.com/lgpdshield/lgpd-shield/internal/websocket"
	"go.uber.org/zap"
)

// engineState bundles everything derived from the redaction section of
// the configuration. Reloads build a fresh state and swap it in; requests
// in flight keep the state they started with.
type engineState struct {
	engine   *redact.Engine
	walker   *structured.Walker
	warnings []string
	loadedAt time.Time
}

// Server is the HTTP redaction service.
type Server struct {
	config *config.Config
	logger *logger.Logger
	router *mux.Router
	server *http.Server
	wsHub  *websocket.Hub

	state atomic.Pointer[engineState]

	resultCache *cache.ResultCache
	auditStore  *audit.Store
	limiter     *ipLimiter

	startTime     time.Time
	totalRequests atomic.Int64
	totalFindings atomic.Int64
}

// New creates a server from the loaded configuration. The audit store is
// required when enabled; the result cache degrades to a no-op when Redis
// is unreachable, since recomputing a redaction is always safe.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	state, err := buildEngineState(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build redaction engine: %w", err)
	}

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		router:    mux.NewRouter(),
		startTime: time.Now(),
	}
	s.state.Store(state)

	if cfg.WebSocket.Enabled {
		s.wsHub = websocket.NewHub(log.WithComponent("websocket").Logger)
	}

	if cfg.Cache.Enabled {
		resultCache, err := cache.New(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			s.logger.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.resultCache = resultCache
		}
	}

	if cfg.Audit.Enabled {
		auditStore, err := audit.NewStore(&audit.Config{
			DatabaseURL:     cfg.Audit.DatabaseURL,
			MaxOpenConns:    cfg.Audit.MaxOpenConns,
			MaxIdleConns:    cfg.Audit.MaxIdleConns,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		}, log.WithComponent("audit").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		s.auditStore = auditStore
	}

	s.limiter = newIPLimiter(cfg.Server.RequestsPerMin)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

func buildEngineState(cfg *config.Config, log *logger.Logger) (*engineState, error) {
	engine, warnings, err := redact.BuildEngine(
		cfg.Redaction.Rules,
		cfg.Redaction.Operators,
		cfg.Redaction.IncludeDefaults,
		log.WithComponent("redact").Logger,
	)
	if err != nil {
		return nil, err
	}

	policy := structured.FailClosed
	if cfg.Redaction.LeafPolicy == "marker" {
		policy = structured.MarkerOnError
	}
	walker := structured.NewWalker(engine,
		structured.WithLeafPolicy(policy),
		structured.WithWorkers(cfg.Redaction.Workers),
		structured.WithLogger(log.WithComponent("structured").Logger),
	)

	return &engineState{
		engine:   engine,
		walker:   walker,
		warnings: warnings,
		loadedAt: time.Now(),
	}, nil
}

// Reload rebuilds the engine from a freshly loaded configuration. A
// configuration that fails to build keeps the previous engine serving.
func (s *Server) Reload(cfg *config.Config) {
	state, err := buildEngineState(cfg, s.logger)
	if err != nil {
		s.logger.Error("Config reload rejected, keeping previous engine", zap.Error(err))
		return
	}
	s.state.Store(state)
	s.logger.Info("Redaction engine reloaded",
		zap.Int("patterns", len(state.engine.Registry().Patterns())),
		zap.Strings("warnings", state.warnings),
	)
	if s.wsHub != nil {
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeSystemStatus,
			Timestamp: time.Now(),
			Data: websocket.SystemStatusEvent{
				Status:         "reloaded",
				ActivePatterns: len(state.engine.Registry().Patterns()),
			},
		})
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")
	s.router.HandleFunc("/patterns", s.handlePatterns).Methods("GET")

	if s.wsHub != nil {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.requestMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/redact/text", s.handleRedactText).Methods("POST")
	api.HandleFunc("/redact/value", s.handleRedactValue).Methods("POST")
	api.HandleFunc("/redact/table", s.handleRedactTable).Methods("POST")
	api.HandleFunc("/redact/document", s.handleRedactDocument).Methods("POST")
	api.HandleFunc("/cache/stats", s.handleCacheStats).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	state := s.state.Load()
	s.logger.Info("Starting LGPD-Shield server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("patterns", len(state.engine.Registry().Patterns())),
		zap.String("leaf_policy", s.config.Redaction.LeafPolicy),
		zap.Bool("cache_enabled", s.resultCache != nil),
		zap.Bool("audit_enabled", s.auditStore != nil),
	)
	for _, warning := range state.warnings {
		s.logger.Warn("Pattern configuration warning", zap.String("warning", warning))
	}

	if s.wsHub != nil {
		go s.wsHub.Run()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping LGPD-Shield server")
	err := s.server.Shutdown(ctx)
	if s.resultCache != nil {
		s.resultCache.Close()
	}
	if s.auditStore != nil {
		s.auditStore.Close()
	}
	return err
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// GetWebSocketHub returns the WebSocket hub for broadcasting events
func (s *Server) GetWebSocketHub() *websocket.Hub {
	return s.wsHub
}
