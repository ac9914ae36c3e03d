// internal/agent/interfaces.go
package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

// ContextManager is the slice of the browser manager the planner needs: one
// isolated page group per task. Satisfied by *browser.Manager.
type ContextManager interface {
	NewContext(ctx context.Context) (uuid.UUID, error)
	CloseContext(ctx context.Context, id uuid.UUID) error
}

// CallExecutor parses and runs planner-emitted function call strings.
// Satisfied by *Executor.
type CallExecutor interface {
	ParseCalls(calls []string) ([]ParsedCall, error)
	ExecuteCalls(ctx context.Context, contextID uuid.UUID, calls []ParsedCall) []schemas.ToolResponse
}

// EventSink receives task lifecycle events for fan-out to subscribers.
type EventSink interface {
	Publish(event schemas.Event)
}

// NopEventSink discards all events.
type NopEventSink struct{}

func (NopEventSink) Publish(schemas.Event) {}

// TaskStore persists finished task records. A nil store disables persistence.
type TaskStore interface {
	SaveTask(ctx context.Context, record *schemas.TaskRecord) error
}
