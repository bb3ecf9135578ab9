// Package api provides the HTTP and WebSocket surface of the orchestrator:
// task/session/workspace CRUD, phase execution, and the event-bus bridge.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/opencode-studio/pkg/config"
	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/phases"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
	"github.com/codeready-toolchain/opencode-studio/pkg/version"
)

// Server is the HTTP API server.
type Server struct {
	echo           *echo.Echo
	httpServer     *http.Server
	cfg            config.Config
	ectx           *engine.ExecutorContext
	runner         *phases.Runner
	reviewRepo     *store.ReviewCommentRepository
	diffViewedRepo *store.DiffViewedRepository
}

// NewServer wires an echo router over ectx's repositories, bus, and
// workspace manager, runner for phase execution, and the two repositories
// ectx does not itself carry.
func NewServer(
	cfg config.Config,
	ectx *engine.ExecutorContext,
	runner *phases.Runner,
	reviewRepo *store.ReviewCommentRepository,
	diffViewedRepo *store.DiffViewedRepository,
) *Server {
	e := echo.New()

	s := &Server{
		echo:           e,
		cfg:            cfg,
		ectx:           ectx,
		runner:         runner,
		reviewRepo:     reviewRepo,
		diffViewedRepo: diffViewedRepo,
	}

	s.setupRoutes()
	return s
}

// setupRoutes registers every route named in spec.md §6, plus the
// diff-viewed-files endpoints SPEC_FULL.md adds for the markViewed
// idempotence law.
func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(2 * 1024 * 1024))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/ws", s.wsHandler)

	api := s.echo.Group("/api")
	api.GET("/project", s.projectHandler)

	api.GET("/tasks", s.listTasksHandler)
	api.POST("/tasks", s.createTaskHandler)
	api.GET("/tasks/:id", s.getTaskHandler)
	api.PATCH("/tasks/:id", s.updateTaskHandler)
	api.DELETE("/tasks/:id", s.deleteTaskHandler)
	api.POST("/tasks/:id/transition", s.transitionTaskHandler)
	api.POST("/tasks/:id/execute", s.executeTaskHandler)
	api.GET("/tasks/:id/sessions", s.listTaskSessionsHandler)
	api.POST("/tasks/:id/workspace", s.createWorkspaceHandler)
	api.GET("/tasks/:id/comments", s.listReviewCommentsHandler)
	api.POST("/tasks/:id/comments", s.createReviewCommentHandler)

	api.GET("/sessions/:id", s.getSessionHandler)
	api.DELETE("/sessions/:id", s.deleteSessionHandler)
	api.POST("/sessions/:id/abort", s.abortSessionHandler)
	api.GET("/sessions/:id/activities", s.listSessionActivitiesHandler)

	api.GET("/workspaces", s.listWorkspacesHandler)
	api.GET("/workspaces/:task_id", s.getWorkspaceStatusHandler)
	api.GET("/workspaces/:task_id/diff", s.getWorkspaceDiffHandler)
	api.GET("/workspaces/:task_id/viewed-files", s.listViewedFilesHandler)
	api.POST("/workspaces/:task_id/viewed-files", s.markViewedHandler)
	api.POST("/workspaces/:task_id/merge", s.mergeWorkspaceHandler)
	api.DELETE("/workspaces/:task_id", s.deleteWorkspaceHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener. Used
// by tests to serve on a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// healthHandler handles GET /health. Beyond status/version it reports the
// event bus's live subscriber count, the number of currently active
// sessions, and whether the configured VCS backend binary is available —
// the same aggregate-health idiom as the teacher's healthHandler, adapted
// from worker-pool/MCP stats to phase-engine/session stats.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	resp := &HealthResponse{
		Status:  "healthy",
		Version: version.Full(),
	}

	if s.ectx.Bus != nil {
		resp.EventBus.SubscriberCount = s.ectx.Bus.SubscriberCount()
	}

	if s.ectx.SessionRepo != nil {
		count, err := s.ectx.SessionRepo.ActiveCount(reqCtx)
		if err != nil {
			s.ectx.Log.Warn("health: failed to count active sessions", "error", err)
		} else {
			resp.ActiveSessions = count
		}
	}

	if s.ectx.WorkspaceManager != nil {
		backend := s.ectx.WorkspaceManager.VCS()
		resp.VCS.Backend = backend.Name()
		resp.VCS.Available = backend.IsAvailable(reqCtx)
		if !resp.VCS.Available {
			resp.Status = "degraded"
		}
	}

	return c.JSON(http.StatusOK, resp)
}
