// -- cmd/serve.go --
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/internal/agent"
	"github.com/xkilldash9x/agent-backend/internal/browser"
	"github.com/xkilldash9x/agent-backend/internal/llmclient"
	"github.com/xkilldash9x/agent-backend/internal/observability"
	"github.com/xkilldash9x/agent-backend/internal/server"
	"github.com/xkilldash9x/agent-backend/internal/store"
	"github.com/xkilldash9x/agent-backend/internal/tools"
)

// newServeCmd wires the full service: browser manager, LLM router, tool
// registry, planner, task manager and the HTTP/WebSocket surface.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the agent HTTP service.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// LLM router. Fails fast on missing model configuration.
			llm, err := llmclient.NewClient(ctx, cfg.Agent, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize LLM client: %w", err)
			}
			defer func() {
				if err := llm.Close(); err != nil {
					logger.Warn("Failed to close LLM client.", zap.Error(err))
				}
			}()

			// Browser manager. Chrome itself launches lazily on first use.
			mgr := browser.NewManager(cfg, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := mgr.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Browser manager shutdown incomplete.", zap.Error(err))
				}
			}()

			registry := tools.NewRegistry(tools.NewController(mgr), cfg.Agent.ScreenshotDir, logger)
			executor := agent.NewExecutor(registry, logger)
			planner := agent.NewPlanner(llm, executor, mgr, registry.Tools(), cfg.Agent, logger)

			// Optional task persistence.
			var taskStore agent.TaskStore
			if cfg.Store.DSN != "" {
				s, pool, err := store.Connect(ctx, cfg.Store.DSN, logger)
				if err != nil {
					return fmt.Errorf("failed to connect to task store: %w", err)
				}
				defer pool.Close()
				taskStore = s
				logger.Info("Task persistence enabled.")
			} else {
				logger.Info("No store DSN configured, running in-memory only.")
			}

			// Event hub for the websocket stream.
			hub := server.NewHub(logger)
			hubCtx, stopHub := context.WithCancel(context.Background())
			defer stopHub()
			go hub.Run(hubCtx)

			manager := agent.NewManager(planner, taskStore, hub, cfg.Agent.MaxConcurrentTasks, logger)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := manager.Shutdown(shutdownCtx); err != nil {
					logger.Warn("Task manager shutdown incomplete.", zap.Error(err))
				}
			}()

			srv := server.New(cfg.Server, manager, hub, planner.SystemPrompt(), logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logger.Info("Shutdown signal received.")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("http server shutdown failed: %w", err)
			}
			return <-errCh
		},
	}
}
