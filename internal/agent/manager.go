// internal/agent/manager.go
package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

const storeSaveTimeout = 5 * time.Second

// TaskRunner executes the planning loop for a single task. Satisfied by
// *Planner.
type TaskRunner interface {
	ReactLoop(ctx context.Context, taskID uuid.UUID, request string, onStep func(schemas.TaskStep)) error
}

// Manager owns the task registry: it accepts task submissions, runs them
// through the planner with bounded concurrency, and tracks their lifecycle
// state for the API.
type Manager struct {
	runner TaskRunner
	store  TaskStore
	events EventSink
	logger *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu    sync.RWMutex
	tasks map[uuid.UUID]*schemas.TaskRecord

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewManager creates a task manager. maxConcurrent bounds how many tasks run
// simultaneously; further submissions queue as PENDING. A nil store disables
// persistence and a nil sink disables event fan-out.
func NewManager(runner TaskRunner, store TaskStore, events EventSink, maxConcurrent int, logger *zap.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if events == nil {
		events = NopEventSink{}
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:  runner,
		store:   store,
		events:  events,
		logger:  logger.Named("task_manager"),
		baseCtx: baseCtx,
		cancel:  cancel,
		tasks:   make(map[uuid.UUID]*schemas.TaskRecord),
		sem:     make(chan struct{}, maxConcurrent),
	}
}

// Submit registers a new task and schedules it for execution. The returned ID
// can be used to poll task state.
func (m *Manager) Submit(request string) (uuid.UUID, error) {
	if request == "" {
		return uuid.Nil, fmt.Errorf("task request must not be empty")
	}

	taskID := uuid.New()
	record := &schemas.TaskRecord{
		ID:          taskID.String(),
		Request:     request,
		State:       schemas.TaskPending,
		SubmittedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	if m.baseCtx.Err() != nil {
		m.mu.Unlock()
		return uuid.Nil, fmt.Errorf("task manager is shut down")
	}
	m.tasks[taskID] = record
	m.mu.Unlock()

	m.publish(schemas.EventTaskAccepted, taskID, record.Request)
	m.logger.Info("Task accepted.", zap.String("task_id", taskID.String()))

	m.wg.Add(1)
	go m.run(taskID, request)

	return taskID, nil
}

// run executes one task end to end, respecting the concurrency bound.
func (m *Manager) run(taskID uuid.UUID, request string) {
	defer m.wg.Done()

	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-m.baseCtx.Done():
		m.finish(taskID, fmt.Errorf("task manager shut down before the task started"))
		return
	}

	m.transition(taskID, func(r *schemas.TaskRecord) {
		now := time.Now().UTC()
		r.State = schemas.TaskRunning
		r.StartedAt = &now
	})
	m.publish(schemas.EventTaskStarted, taskID, nil)

	onStep := func(step schemas.TaskStep) {
		m.transition(taskID, func(r *schemas.TaskRecord) {
			r.Steps = append(r.Steps, step)
		})
		m.publish(schemas.EventTaskStep, taskID, step)
	}

	err := m.runner.ReactLoop(m.baseCtx, taskID, request, onStep)
	m.finish(taskID, err)
}

// finish moves the task into its terminal state and persists the record.
func (m *Manager) finish(taskID uuid.UUID, err error) {
	m.transition(taskID, func(r *schemas.TaskRecord) {
		now := time.Now().UTC()
		r.FinishedAt = &now
		if err != nil {
			r.State = schemas.TaskFailed
			r.Error = err.Error()
		} else {
			r.State = schemas.TaskCompleted
		}
	})

	if err != nil {
		m.logger.Warn("Task failed.", zap.String("task_id", taskID.String()), zap.Error(err))
		m.publish(schemas.EventTaskFailed, taskID, err.Error())
	} else {
		m.logger.Info("Task completed.", zap.String("task_id", taskID.String()))
		m.publish(schemas.EventTaskCompleted, taskID, nil)
	}

	if m.store != nil {
		record, ok := m.Get(taskID)
		if ok {
			saveCtx, cancel := context.WithTimeout(context.Background(), storeSaveTimeout)
			defer cancel()
			if err := m.store.SaveTask(saveCtx, &record); err != nil {
				m.logger.Warn("Failed to persist task record.", zap.String("task_id", taskID.String()), zap.Error(err))
			}
		}
	}
}

// transition applies a mutation to a task record under the registry lock.
func (m *Manager) transition(taskID uuid.UUID, mutate func(*schemas.TaskRecord)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if record, ok := m.tasks[taskID]; ok {
		mutate(record)
	}
}

func (m *Manager) publish(eventType schemas.EventType, taskID uuid.UUID, payload any) {
	m.events.Publish(schemas.Event{
		Type:      eventType,
		TaskID:    taskID.String(),
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
}

// Get returns a copy of the task record, so callers can read it without
// holding the registry lock.
func (m *Manager) Get(taskID uuid.UUID) (schemas.TaskRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.tasks[taskID]
	if !ok {
		return schemas.TaskRecord{}, false
	}
	return copyRecord(record), true
}

// List returns copies of all task records, newest first.
func (m *Manager) List() []schemas.TaskRecord {
	m.mu.RLock()
	records := make([]schemas.TaskRecord, 0, len(m.tasks))
	for _, record := range m.tasks {
		records = append(records, copyRecord(record))
	}
	m.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records
}

func copyRecord(record *schemas.TaskRecord) schemas.TaskRecord {
	out := *record
	out.Steps = make([]schemas.TaskStep, len(record.Steps))
	copy(out.Steps, record.Steps)
	return out
}

// Shutdown stops accepting tasks, cancels running ones, and waits for them to
// wind down or for the context to expire.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down task manager.")
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All tasks finished.")
		return nil
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for tasks to finish.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}
