package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// DiffViewedRepository persists DiffViewedFiles in the diff_viewed_files
// table. MarkViewed is an upsert: viewing the same file twice moves its
// timestamp forward instead of producing a duplicate row.
type DiffViewedRepository struct {
	db *sql.DB
}

// NewDiffViewedRepository wraps db.
func NewDiffViewedRepository(db *sql.DB) *DiffViewedRepository {
	return &DiffViewedRepository{db: db}
}

// MarkViewed records that filePath's diff has been viewed for taskID as of
// viewedAt. Calling it again for the same (taskID, filePath) updates the
// existing row rather than inserting a second one.
func (r *DiffViewedRepository) MarkViewed(ctx context.Context, taskID uuid.UUID, filePath string, viewedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO diff_viewed_files (task_id, file_path, viewed_at)
		VALUES (?, ?, ?)
		ON CONFLICT (task_id, file_path) DO UPDATE SET viewed_at = excluded.viewed_at`,
		taskID.String(), filePath, viewedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("mark diff viewed: %w", err)
	}
	return nil
}

// ListByTask returns every file marked viewed for taskID.
func (r *DiffViewedRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]models.DiffViewedFile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT task_id, file_path, viewed_at FROM diff_viewed_files WHERE task_id = ? ORDER BY file_path ASC`,
		taskID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("list viewed files: %w", err)
	}
	defer rows.Close()

	var out []models.DiffViewedFile
	for rows.Next() {
		var (
			taskIDStr, filePath string
			viewedAt            int64
		)
		if err := rows.Scan(&taskIDStr, &filePath, &viewedAt); err != nil {
			return nil, fmt.Errorf("scan viewed file: %w", err)
		}
		id, err := uuid.Parse(taskIDStr)
		if err != nil {
			return nil, fmt.Errorf("parse viewed file task id: %w", err)
		}
		out = append(out, models.DiffViewedFile{
			TaskID:   id,
			FilePath: filePath,
			ViewedAt: time.Unix(viewedAt, 0).UTC(),
		})
	}
	return out, rows.Err()
}

// IsViewed reports whether filePath has been marked viewed for taskID.
func (r *DiffViewedRepository) IsViewed(ctx context.Context, taskID uuid.UUID, filePath string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM diff_viewed_files WHERE task_id = ? AND file_path = ?`,
		taskID.String(), filePath,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check viewed file: %w", err)
	}
	return count > 0, nil
}
