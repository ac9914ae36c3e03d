// internal/agent/helper_test.go
package agent

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

// setupTestLogger creates an observed zap logger for asserting on log output.
func setupTestLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

// MockLLMClient is a testify mock of schemas.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLLMClient) Close() error {
	return m.Called().Error(0)
}

// MockContextManager is a testify mock of ContextManager.
type MockContextManager struct {
	mock.Mock
}

func (m *MockContextManager) NewContext(ctx context.Context) (uuid.UUID, error) {
	args := m.Called(ctx)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockContextManager) CloseContext(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockCallExecutor is a testify mock of CallExecutor.
type MockCallExecutor struct {
	mock.Mock
}

func (m *MockCallExecutor) ParseCalls(calls []string) ([]ParsedCall, error) {
	args := m.Called(calls)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ParsedCall), args.Error(1)
}

func (m *MockCallExecutor) ExecuteCalls(ctx context.Context, contextID uuid.UUID, calls []ParsedCall) []schemas.ToolResponse {
	args := m.Called(ctx, contextID, calls)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]schemas.ToolResponse)
}

// recordingSink captures published events for assertion.
type recordingSink struct {
	mu     sync.Mutex
	events []schemas.Event
}

func (s *recordingSink) Publish(event schemas.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) Events() []schemas.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSink) Types() []schemas.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]schemas.EventType, 0, len(s.events))
	for _, e := range s.events {
		types = append(types, e.Type)
	}
	return types
}

// MockTaskStore is a testify mock of TaskStore.
type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) SaveTask(ctx context.Context, record *schemas.TaskRecord) error {
	return m.Called(ctx, record).Error(0)
}

// stubRunner is a TaskRunner backed by a plain function, which keeps manager
// tests free of mock choreography around the onStep callback.
type stubRunner struct {
	fn func(ctx context.Context, taskID uuid.UUID, request string, onStep func(schemas.TaskStep)) error
}

func (s *stubRunner) ReactLoop(ctx context.Context, taskID uuid.UUID, request string, onStep func(schemas.TaskStep)) error {
	return s.fn(ctx, taskID, request, onStep)
}
