// internal/server/server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
	"github.com/xkilldash9x/agent-backend/internal/config"
)

// TaskService is the slice of the task manager the HTTP layer needs.
// Satisfied by *agent.Manager.
type TaskService interface {
	Submit(request string) (uuid.UUID, error)
	Get(taskID uuid.UUID) (schemas.TaskRecord, bool)
	List() []schemas.TaskRecord
}

// Server is the HTTP management interface: task submission and inspection,
// the planning prompt, and the websocket event stream.
type Server struct {
	cfg          config.ServerConfig
	tasks        TaskService
	hub          *Hub
	systemPrompt string
	logger       *zap.Logger

	httpSrv *http.Server
}

// New builds the server and its routes. The hub may be nil when the event
// stream is disabled.
func New(cfg config.ServerConfig, tasks TaskService, hub *Hub, systemPrompt string, logger *zap.Logger) *Server {
	s := &Server{
		cfg:          cfg,
		tasks:        tasks,
		hub:          hub,
		systemPrompt: systemPrompt,
		logger:       logger.Named("server"),
	}

	s.httpSrv = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Routes builds the router. Exposed separately so tests can drive the
// handlers through httptest without binding a listener.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The websocket route stays outside the request-scoped middleware group:
	// the connection is long-lived and must not be wrapped by per-request
	// logging or timeouts.
	if s.hub != nil {
		r.Get("/agent/events", s.hub.HandleWS)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)

		r.Route("/agent", func(r chi.Router) {
			r.Get("/status", s.handleStatus)
			r.Get("/system-prompt", s.handleSystemPrompt)
			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", s.handleSubmitTask)
				r.Get("/", s.handleListTasks)
				r.Get("/{id}", s.handleGetTask)
			})
		})
	})

	return r
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server listening.", zap.String("addr", s.cfg.Addr()))
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server.")
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, format string, args ...any) {
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	running := 0
	total := 0
	for _, record := range s.tasks.List() {
		total++
		if record.State == schemas.TaskRunning {
			running++
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":        "Agent is running",
		"tasks_total":   total,
		"tasks_running": running,
	})
}

func (s *Server) handleSystemPrompt(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"prompt": s.systemPrompt})
}

func (s *Server) handleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req schemas.TaskRequest
	if err := jsoniter.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if strings.TrimSpace(req.Request) == "" {
		s.writeError(w, http.StatusBadRequest, "request must not be empty")
		return
	}

	taskID, err := s.tasks.Submit(req.Request)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "%v", err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID.String(),
		"status":  "Task processing initiated",
	})
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	records := s.tasks.List()
	if records == nil {
		records = []schemas.TaskRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tasks": records})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid task id: %v", err)
		return
	}

	record, ok := s.tasks.Get(taskID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "task %s not found", taskID)
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}
