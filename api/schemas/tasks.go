package schemas

import "time"

// TaskState tracks a submitted task through its lifecycle.
type TaskState string

const (
	TaskPending   TaskState = "PENDING"   // Accepted, not yet picked up by the loop.
	TaskRunning   TaskState = "RUNNING"   // The ReAct loop is executing.
	TaskCompleted TaskState = "COMPLETED" // The planner declared the task done.
	TaskFailed    TaskState = "FAILED"    // The loop aborted (LLM failure, step budget, cancellation).
)

// TaskRequest is the body of POST /agent/tasks.
type TaskRequest struct {
	Request string `json:"request"` // The natural language objective for the agent.
}

// TaskStep records one planning round: what the model planned, which calls ran
// and what they returned. The transcript doubles as planner context for the
// following round.
type TaskStep struct {
	Index         int            `json:"index"`
	Observation   string         `json:"observation,omitempty"`
	Plan          string         `json:"plan"`
	FunctionCalls []string       `json:"function_calls"`
	Results       []ToolResponse `json:"results"`
	Timestamp     time.Time      `json:"timestamp"`
}

// TaskRecord is the full server-side view of a task, returned by
// GET /agent/tasks/{id}.
type TaskRecord struct {
	ID          string     `json:"id"`
	Request     string     `json:"request"`
	State       TaskState  `json:"state"`
	Steps       []TaskStep `json:"steps"`
	Error       string     `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// EventType labels messages broadcast on the /agent/events WebSocket.
type EventType string

const (
	EventTaskAccepted  EventType = "TASK_ACCEPTED"
	EventTaskStarted   EventType = "TASK_STARTED"
	EventTaskStep      EventType = "TASK_STEP"
	EventTaskCompleted EventType = "TASK_COMPLETED"
	EventTaskFailed    EventType = "TASK_FAILED"
)

// Event is the WebSocket broadcast envelope.
type Event struct {
	Type      EventType   `json:"type"`
	TaskID    string      `json:"task_id"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
