package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// ReviewCommentRepository persists ReviewComments in the review_comments
// table. These back FixMode::UserComments: a human leaves file/line-anchored
// comments on a diff, and the fix phase folds them into its prompt.
type ReviewCommentRepository struct {
	db *sql.DB
}

// NewReviewCommentRepository wraps db.
func NewReviewCommentRepository(db *sql.DB) *ReviewCommentRepository {
	return &ReviewCommentRepository{db: db}
}

// Create inserts a new review comment and returns it with its assigned id.
func (r *ReviewCommentRepository) Create(ctx context.Context, c models.ReviewComment) (models.ReviewComment, error) {
	if c.CreatedAt.IsZero() {
		return models.ReviewComment{}, fmt.Errorf("create review comment: created_at is zero")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO review_comments (task_id, file_path, line_start, line_end, side, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.TaskID.String(), c.FilePath, c.LineStart, c.LineEnd, string(c.Side), c.Content, c.CreatedAt.Unix(),
	)
	if err != nil {
		return models.ReviewComment{}, fmt.Errorf("insert review comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.ReviewComment{}, fmt.Errorf("insert review comment: %w", err)
	}
	c.ID = id
	return c, nil
}

// ListByTask returns every review comment left on task, oldest first — the
// order the fix phase folds them into its prompt in.
func (r *ReviewCommentRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.ReviewComment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, task_id, file_path, line_start, line_end, side, content, created_at
		FROM review_comments WHERE task_id = ? ORDER BY created_at ASC, id ASC`, taskID.String())
	if err != nil {
		return nil, fmt.Errorf("list review comments: %w", err)
	}
	defer rows.Close()

	var out []models.ReviewComment
	for rows.Next() {
		c, err := scanReviewComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteByTask removes all review comments for task, once the fix phase that
// consumed them has completed.
func (r *ReviewCommentRepository) DeleteByTask(ctx context.Context, taskID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM review_comments WHERE task_id = ?`, taskID.String())
	if err != nil {
		return fmt.Errorf("delete review comments: %w", err)
	}
	return nil
}

func scanReviewComment(rows *sql.Rows) (models.ReviewComment, error) {
	var (
		id                       int64
		taskIDStr, filePath      string
		lineStart, lineEnd       int
		side, content            string
		createdAt                int64
	)
	if err := rows.Scan(&id, &taskIDStr, &filePath, &lineStart, &lineEnd, &side, &content, &createdAt); err != nil {
		return models.ReviewComment{}, fmt.Errorf("scan review comment: %w", err)
	}
	taskID, err := uuid.Parse(taskIDStr)
	if err != nil {
		return models.ReviewComment{}, fmt.Errorf("parse review comment task id: %w", err)
	}
	return models.ReviewComment{
		ID:        id,
		TaskID:    taskID,
		FilePath:  filePath,
		LineStart: lineStart,
		LineEnd:   lineEnd,
		Side:      models.ReviewCommentSide(side),
		Content:   content,
		CreatedAt: time.Unix(createdAt, 0).UTC(),
	}, nil
}
