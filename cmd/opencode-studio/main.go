// Command opencode-studio is the orchestrator server: it wires the
// config, database, VCS workspace manager, event bus, phase engine, and
// REST/WebSocket API together and serves them for one project.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
	"github.com/codeready-toolchain/opencode-studio/pkg/api"
	"github.com/codeready-toolchain/opencode-studio/pkg/cleanup"
	"github.com/codeready-toolchain/opencode-studio/pkg/config"
	"github.com/codeready-toolchain/opencode-studio/pkg/database"
	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/events"
	"github.com/codeready-toolchain/opencode-studio/pkg/mcp"
	"github.com/codeready-toolchain/opencode-studio/pkg/phases"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
	"github.com/codeready-toolchain/opencode-studio/pkg/version"
)

func main() {
	repoPath := flag.String("repo", getEnv("OPENCODE_STUDIO_REPO", "."), "path to the project repository this instance manages")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	absRepo, err := filepath.Abs(*repoPath)
	if err != nil {
		log.Fatalf("resolve repo path: %v", err)
	}

	if err := godotenv.Load(filepath.Join(absRepo, ".opencode-studio", ".env")); err != nil {
		logger.Debug("no .env file loaded", "error", err)
	}

	cfg, err := config.Load(filepath.Join(absRepo, ".opencode-studio", "config.toml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.RepoPath = absRepo

	if err := os.MkdirAll(cfg.DataDir(), 0o755); err != nil {
		log.Fatalf("create data directory: %v", err)
	}
	for _, dir := range []string{"kanban/plans", "kanban/reviews", "kanban/findings", "kanban/phases"} {
		if err := os.MkdirAll(filepath.Join(cfg.DataDir(), dir), 0o755); err != nil {
			log.Fatalf("create %s directory: %v", dir, err)
		}
	}

	logger.Info("starting opencode-studio", "version", version.Full(), "repo", absRepo, "vcs", cfg.VCS)

	dbClient, err := database.NewClient(database.DefaultConfig(cfg.DatabasePath()))
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}()

	taskRepo := store.NewTaskRepository(dbClient.DB())
	sessionRepo := store.NewSessionRepository(dbClient.DB())
	activityRepo := store.NewActivityRepository(dbClient.DB())
	reviewRepo := store.NewReviewCommentRepository(dbClient.DB())
	diffViewedRepo := store.NewDiffViewedRepository(dbClient.DB())

	backend, err := vcs.New(cfg.VCS, absRepo, cfg.WorkspaceBase(), "main")
	if err != nil {
		log.Fatalf("construct vcs backend: %v", err)
	}
	workspaceManager := vcs.NewWorkspaceManager(backend, vcs.DefaultWorkspaceConfig(cfg.WorkspaceBase()), absRepo, logger.With("component", "vcs"))

	bus := events.NewBus()
	activityRegistry := events.NewActivityRegistry()

	agentClient := agentrt.New(cfg.AgentRuntime.BaseURL)
	mcpManager := mcp.NewManager(agentClient, logger.With("component", "mcp"))

	ectx := engine.NewExecutorContext(
		engine.ExecutorConfigFromProject(cfg),
		agentClient,
		workspaceManager,
		taskRepo,
		sessionRepo,
		activityRepo,
		bus,
		activityRegistry,
		mcpManager,
		logger.With("component", "engine"),
	)

	eng := engine.New(ectx)
	runner := phases.NewRunner(eng, reviewRepo)

	cleanupSvc := cleanup.NewService(ectx, cleanup.DefaultReapInterval)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := cleanupSvc.RecoverStartupSessions(startCtx); err != nil {
		logger.Error("startup session recovery failed", "error", err)
	}
	startCancel()

	runCtx, stopCleanup := context.WithCancel(context.Background())
	defer stopCleanup()
	go cleanupSvc.Run(runCtx)

	server := api.NewServer(cfg, ectx, runner, reviewRepo, diffViewedRepo)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("listening", "addr", addr)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	select {
	case <-sigCtx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
