package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/agent-backend/api/schemas"
)

// ErrTaskNotFound is returned when a task ID has no persisted record.
var ErrTaskNotFound = errors.New("task not found")

// DBPool abstracts the pgxpool.Pool so the store can be mocked in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Store persists task records to PostgreSQL. Persistence is optional: the
// service runs fully in-memory when no DSN is configured, and the store is
// only constructed when one is.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a store over an existing pool and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pgx pool for the DSN, verifies connectivity and ensures the
// schema exists.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}

	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool, nil
}

const schemaSQL = `
    CREATE TABLE IF NOT EXISTS agent_tasks (
        id UUID PRIMARY KEY,
        request TEXT NOT NULL,
        state TEXT NOT NULL,
        steps JSONB NOT NULL DEFAULT '[]',
        error TEXT NOT NULL DEFAULT '',
        submitted_at TIMESTAMPTZ NOT NULL,
        started_at TIMESTAMPTZ,
        finished_at TIMESTAMPTZ
    );
`

// EnsureSchema creates the task-history table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure task schema: %w", err)
	}
	return nil
}

const saveTaskSQL = `
    INSERT INTO agent_tasks (id, request, state, steps, error, submitted_at, started_at, finished_at)
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (id) DO UPDATE SET
        state = EXCLUDED.state,
        steps = EXCLUDED.steps,
        error = EXCLUDED.error,
        started_at = EXCLUDED.started_at,
        finished_at = EXCLUDED.finished_at;
`

// SaveTask upserts one task record. Steps are stored as a JSONB transcript so
// the full planning history survives restarts.
func (s *Store) SaveTask(ctx context.Context, record *schemas.TaskRecord) error {
	steps, err := json.Marshal(record.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal task steps: %w", err)
	}
	if record.Steps == nil {
		steps = json.RawMessage("[]")
	}

	// Normalize timestamps to UTC before insertion to prevent ambiguity.
	submittedAt := record.SubmittedAt.UTC()
	startedAt := record.StartedAt
	if startedAt != nil {
		utc := startedAt.UTC()
		startedAt = &utc
	}
	finishedAt := record.FinishedAt
	if finishedAt != nil {
		utc := finishedAt.UTC()
		finishedAt = &utc
	}

	_, err = s.pool.Exec(ctx, saveTaskSQL,
		record.ID, record.Request, string(record.State),
		steps, record.Error,
		submittedAt, startedAt, finishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save task %s: %w", record.ID, err)
	}

	s.log.Debug("Task record persisted.", zap.String("task_id", record.ID), zap.String("state", string(record.State)))
	return nil
}

const getTaskSQL = `
    SELECT id, request, state, steps, error, submitted_at, started_at, finished_at
    FROM agent_tasks
    WHERE id = $1;
`

// GetTask loads a single task record. Returns ErrTaskNotFound when the ID is
// unknown.
func (s *Store) GetTask(ctx context.Context, taskID string) (*schemas.TaskRecord, error) {
	rows, err := s.pool.Query(ctx, getTaskSQL, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task %s: %w", taskID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("error during row iteration: %w", err)
		}
		return nil, ErrTaskNotFound
	}

	record, err := scanTask(rows)
	if err != nil {
		return nil, err
	}
	return record, nil
}

const listTasksSQL = `
    SELECT id, request, state, steps, error, submitted_at, started_at, finished_at
    FROM agent_tasks
    ORDER BY submitted_at DESC
    LIMIT $1;
`

// ListTasks returns up to limit task records, newest first.
func (s *Store) ListTasks(ctx context.Context, limit int) ([]schemas.TaskRecord, error) {
	rows, err := s.pool.Query(ctx, listTasksSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var records []schemas.TaskRecord
	for rows.Next() {
		record, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

func scanTask(rows pgx.Rows) (*schemas.TaskRecord, error) {
	var (
		record   schemas.TaskRecord
		stateStr string
		steps    []byte
	)

	err := rows.Scan(
		&record.ID, &record.Request, &stateStr,
		&steps, &record.Error,
		&record.SubmittedAt, &record.StartedAt, &record.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan task row: %w", err)
	}

	record.State = schemas.TaskState(stateStr)
	if len(steps) > 0 {
		if err := json.Unmarshal(steps, &record.Steps); err != nil {
			return nil, fmt.Errorf("failed to unmarshal steps for task %s: %w", record.ID, err)
		}
	}
	return &record, nil
}
