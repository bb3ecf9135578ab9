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

// TaskRepository persists Tasks in the tasks table.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository wraps db.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a new task row.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, roadmap_item_id, workspace_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Title, t.Description, string(t.Status),
		nullableUUID(t.RoadmapItemID), t.WorkspacePath,
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Get returns the task with id, or ErrNotFound.
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, roadmap_item_id, workspace_path, created_at, updated_at
		FROM tasks WHERE id = ?`, id.String())
	return scanTask(row)
}

// List returns all tasks ordered by creation time, newest first.
func (r *TaskRepository) List(ctx context.Context) ([]*models.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, roadmap_item_id, workspace_path, created_at, updated_at
		FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []*models.Task
	for rows.Next() {
		task, err := scanTaskRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

// Update applies a full replace of the mutable task fields. updated_at must
// be strictly non-decreasing — callers are expected to have bumped it.
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, roadmap_item_id = ?,
			workspace_path = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), nullableUUID(t.RoadmapItemID),
		t.WorkspacePath, t.UpdatedAt.Unix(), t.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the task row. Sessions cascade via the foreign key.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row *sql.Row) (*models.Task, error) {
	t, err := scanTaskFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func scanTaskRows(rows *sql.Rows) (*models.Task, error) {
	return scanTaskFrom(rows)
}

func scanTaskFrom(scanner rowScanner) (*models.Task, error) {
	var (
		idStr, title, description, status string
		roadmapItemID, workspacePath      sql.NullString
		createdAt, updatedAt              int64
	)
	if err := scanner.Scan(&idStr, &title, &description, &status, &roadmapItemID, &workspacePath, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse task id: %w", err)
	}

	task := &models.Task{
		ID:          id,
		Title:       title,
		Description: description,
		Status:      models.TaskStatus(status),
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
		UpdatedAt:   time.Unix(updatedAt, 0).UTC(),
	}
	if roadmapItemID.Valid {
		rid, err := uuid.Parse(roadmapItemID.String)
		if err == nil {
			task.RoadmapItemID = &rid
		}
	}
	if workspacePath.Valid {
		task.WorkspacePath = &workspacePath.String
	}
	return task, nil
}

func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
