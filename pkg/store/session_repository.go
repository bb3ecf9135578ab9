package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// SessionRepository persists Sessions in the sessions table.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository wraps db.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, task_id, agent_session_id, phase, status, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.TaskID.String(), s.AgentSessionID, string(s.Phase), string(s.Status),
		nullableUnix(s.StartedAt), nullableUnix(s.CompletedAt), s.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Update persists the current in-memory state of s.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET agent_session_id = ?, status = ?, started_at = ?, completed_at = ?
		WHERE id = ?`,
		s.AgentSessionID, string(s.Status), nullableUnix(s.StartedAt), nullableUnix(s.CompletedAt), s.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Get returns the session with id, or ErrNotFound.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, agent_session_id, phase, status, started_at, completed_at, created_at
		FROM sessions WHERE id = ?`, id.String())
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListByTask returns all sessions for a task, newest first.
func (r *SessionRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, agent_session_id, phase, status, started_at, completed_at, created_at
		FROM sessions WHERE task_id = ? ORDER BY created_at DESC`, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ActiveForTask returns the task's pending or running session, if any. A
// task has at most one active session; callers use this to enforce
// SessionExists.
func (r *SessionRepository) ActiveForTask(ctx context.Context, taskID uuid.UUID) (*models.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, task_id, agent_session_id, phase, status, started_at, completed_at, created_at
		FROM sessions WHERE task_id = ? AND status IN ('pending', 'running')
		ORDER BY created_at DESC LIMIT 1`, taskID.String())
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return s, err
}

// ActiveCount returns the number of sessions currently pending or running,
// across all tasks — used by the health endpoint's aggregate status.
func (r *SessionRepository) ActiveCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sessions WHERE status IN ('pending', 'running')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// RunningSessions returns every session currently in the running status,
// used on startup to recover from an unclean shutdown.
func (r *SessionRepository) RunningSessions(ctx context.Context) ([]*models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, agent_session_id, phase, status, started_at, completed_at, created_at
		FROM sessions WHERE status = 'running'`)
	if err != nil {
		return nil, fmt.Errorf("list running sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes the session row. Activities cascade via the foreign key.
func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSession(scanner rowScanner) (*models.Session, error) {
	var (
		idStr, taskIDStr, phase, status string
		agentSessionID                 sql.NullString
		startedAt, completedAt         sql.NullInt64
		createdAt                      int64
	)
	if err := scanner.Scan(&idStr, &taskIDStr, &agentSessionID, &phase, &status, &startedAt, &completedAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	taskID, err := uuid.Parse(taskIDStr)
	if err != nil {
		return nil, fmt.Errorf("parse session task id: %w", err)
	}

	s := &models.Session{
		ID:        id,
		TaskID:    taskID,
		Phase:     models.SessionPhase(phase),
		Status:    models.SessionStatus(status),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}
	if agentSessionID.Valid {
		s.AgentSessionID = &agentSessionID.String
	}
	if startedAt.Valid {
		t := time.Unix(startedAt.Int64, 0).UTC()
		s.StartedAt = &t
	}
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0).UTC()
		s.CompletedAt = &t
	}
	return s, nil
}

func nullableUnix(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
