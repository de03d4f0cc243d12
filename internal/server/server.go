// Package server provides the HTTP server for the Anvil API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/eibrahimli/anvil/internal/agent"
	"github.com/eibrahimli/anvil/internal/command"
	"github.com/eibrahimli/anvil/internal/event"
	"github.com/eibrahimli/anvil/internal/executor"
	"github.com/eibrahimli/anvil/internal/formatter"
	"github.com/eibrahimli/anvil/internal/lsp"
	"github.com/eibrahimli/anvil/internal/mcp"
	"github.com/eibrahimli/anvil/internal/orchestrator"
	"github.com/eibrahimli/anvil/internal/permission"
	"github.com/eibrahimli/anvil/internal/provider"
	"github.com/eibrahimli/anvil/internal/session"
	"github.com/eibrahimli/anvil/internal/storage"
	"github.com/eibrahimli/anvil/internal/tool"
	"github.com/eibrahimli/anvil/internal/vcs"
	"github.com/eibrahimli/anvil/pkg/types"
)

// Config holds server configuration.
type Config struct {
	Port         int
	Directory    string
	EnableCORS   bool
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		Directory:    "",
		EnableCORS:   true,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// Server is the HTTP server.
type Server struct {
	config           *Config
	router           *chi.Mux
	httpSrv          *http.Server
	appConfig        *types.Config
	storage          *storage.Storage
	sessionService   *session.Service
	providerReg      *provider.Registry
	toolReg          *tool.Registry
	bus              *event.Bus
	mcpClient        *mcp.Client
	commandExecutor  *command.Executor
	formatterManager *formatter.Manager
	agentReg         *agent.Registry
	subagentExecutor *executor.SubagentExecutor
	mcpReconnectStop func()
	lspClient        *lsp.Client

	orchMu        sync.Mutex
	orchestrators map[string]*orchestrator.Orchestrator

	vcsMu       sync.Mutex
	vcsWatchers map[string]*vcsWatcherEntry
}

// vcsWatcherEntry tracks one directory's branch watcher plus how many
// sessions are currently using it, so the watcher outlives any single
// session but stops once the last one referencing that directory closes.
type vcsWatcherEntry struct {
	watcher  *vcs.Watcher
	refCount int
}

// New creates a new Server instance.
func New(cfg *Config, appConfig *types.Config, store *storage.Storage, providerReg *provider.Registry, toolReg *tool.Registry) *Server {
	r := chi.NewRouter()

	// Parse default provider and model from config
	// Format: "provider/model" (e.g., "ark/ep-xxx" or "anthropic/claude-sonnet-4-20250514")
	var defaultProviderID, defaultModelID string
	if appConfig != nil && appConfig.Model != "" {
		parts := strings.SplitN(appConfig.Model, "/", 2)
		if len(parts) == 2 {
			defaultProviderID = parts[0]
			defaultModelID = parts[1]
		}
	}

	// Create MCP client
	mcpClient := mcp.NewClient()

	// Create command executor
	cmdExecutor := command.NewExecutor(cfg.Directory, appConfig)

	// Create formatter manager
	fmtManager := formatter.NewManager(cfg.Directory, appConfig)

	// Agent registry + subagent executor back both the Task tool and the
	// orchestrator's task dispatch with the same agent-selection and
	// child-session machinery.
	agentReg := agent.NewRegistry()
	toolReg.RegisterTaskTool(agentReg)
	permChecker := toolReg.PermissionChecker()
	if permChecker == nil {
		permChecker = permission.NewChecker()
	}
	subagentExecutor := executor.NewSubagentExecutor(executor.SubagentExecutorConfig{
		Storage:           store,
		ProviderRegistry:  providerReg,
		ToolRegistry:      toolReg,
		PermissionChecker: permChecker,
		AgentRegistry:     agentReg,
		WorkDir:           cfg.Directory,
		DefaultProviderID: defaultProviderID,
		DefaultModelID:    defaultModelID,
	})
	toolReg.SetTaskExecutor(subagentExecutor)

	lspDisabled := appConfig != nil && appConfig.LSP != nil && !appConfig.LSP.Enabled
	lspClient := lsp.NewClient(cfg.Directory, lspDisabled)

	s := &Server{
		config:           cfg,
		router:           r,
		appConfig:        appConfig,
		storage:          store,
		sessionService:   session.NewServiceWithProcessor(store, providerReg, toolReg, permChecker, defaultProviderID, defaultModelID),
		providerReg:      providerReg,
		toolReg:          toolReg,
		bus:              event.NewBus(),
		mcpClient:        mcpClient,
		commandExecutor:  cmdExecutor,
		formatterManager: fmtManager,
		agentReg:         agentReg,
		subagentExecutor: subagentExecutor,
		lspClient:        lspClient,
		orchestrators:    make(map[string]*orchestrator.Orchestrator),
		vcsWatchers:      make(map[string]*vcsWatcherEntry),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// InitializeMCP initializes MCP servers from configuration.
func (s *Server) InitializeMCP(ctx context.Context) error {
	if s.appConfig == nil || s.appConfig.MCP == nil {
		return nil
	}

	for name, cfg := range s.appConfig.MCP.Servers {
		enabled := cfg.Enabled
		mcpCfg := &mcp.Config{
			Enabled:     enabled,
			Type:        mcp.TransportType(cfg.Type),
			URL:         cfg.URL,
			Headers:     cfg.Headers,
			Command:     cfg.Command,
			Environment: cfg.Environment,
			Timeout:     cfg.Timeout,
		}
		if err := s.mcpClient.AddServer(ctx, name, mcpCfg); err != nil {
			// Log but don't fail on individual server errors
			continue
		}
	}

	s.mcpReconnectStop = s.mcpClient.StartReconnectLoop(ctx)
	return nil
}

// CloseMCP stops the reconnection loop and closes all MCP server connections.
func (s *Server) CloseMCP() error {
	if s.mcpReconnectStop != nil {
		s.mcpReconnectStop()
	}
	if s.mcpClient != nil {
		return s.mcpClient.Close()
	}
	return nil
}

// CloseLSP shuts down any running language server processes.
func (s *Server) CloseLSP() error {
	if s.lspClient != nil {
		return s.lspClient.Close()
	}
	return nil
}

// CloseVCSWatchers stops every branch watcher still running, regardless of
// refcount. Called on shutdown so fsnotify handles don't leak past process
// exit.
func (s *Server) CloseVCSWatchers() error {
	s.vcsMu.Lock()
	defer s.vcsMu.Unlock()

	var firstErr error
	for dir, entry := range s.vcsWatchers {
		if err := entry.watcher.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.vcsWatchers, dir)
	}
	return firstErr
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(middleware.RequestID)

	// Logging
	s.router.Use(middleware.Logger)

	// Recover from panics
	s.router.Use(middleware.Recoverer)

	// Real IP
	s.router.Use(middleware.RealIP)

	// CORS
	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Instance context
	s.router.Use(s.instanceContext)
}

// instanceContext middleware injects directory into context.
func (s *Server) instanceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get directory from query or use default
		dir := r.URL.Query().Get("directory")
		if dir == "" {
			dir = s.config.Directory
		}

		ctx := context.WithValue(r.Context(), contextKeyDirectory, dir)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Context keys
type contextKey string

const (
	contextKeyDirectory contextKey = "directory"
)

// getDirectory returns the directory from context.
func getDirectory(ctx context.Context) string {
	if dir, ok := ctx.Value(contextKeyDirectory).(string); ok {
		return dir
	}
	return ""
}
