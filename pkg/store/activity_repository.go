package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// ActivityRepository persists SessionActivities in the session_activities
// table — the durable mirror of pkg/events.ActivityStore's in-memory log.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository wraps db.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Append inserts a new activity row. The id is assigned by sqlite's
// AUTOINCREMENT, which is gap-free for a single-writer database.
func (r *ActivityRepository) Append(ctx context.Context, a models.SessionActivity) (models.SessionActivity, error) {
	data := a.Data
	if data == nil {
		data = json.RawMessage("{}")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO session_activities (session_id, activity_type, activity_id, data, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.SessionID.String(), a.ActivityType, a.ActivityID, string(data), a.CreatedAt.Unix(),
	)
	if err != nil {
		return models.SessionActivity{}, fmt.Errorf("insert activity: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.SessionActivity{}, fmt.Errorf("insert activity: %w", err)
	}
	a.ID = id
	a.Data = data
	return a, nil
}

// Since returns all activities for sessionID with id greater than afterID,
// ordered by id ascending.
func (r *ActivityRepository) Since(ctx context.Context, sessionID uuid.UUID, afterID int64) ([]models.SessionActivity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, activity_type, activity_id, data, created_at
		FROM session_activities WHERE session_id = ? AND id > ? ORDER BY id ASC`,
		sessionID.String(), afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	var out []models.SessionActivity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// All returns every activity recorded for sessionID.
func (r *ActivityRepository) All(ctx context.Context, sessionID uuid.UUID) ([]models.SessionActivity, error) {
	return r.Since(ctx, sessionID, 0)
}

// Count returns the number of activities recorded for sessionID.
func (r *ActivityRepository) Count(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM session_activities WHERE session_id = ?`, sessionID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count activities: %w", err)
	}
	return count, nil
}

func scanActivity(rows *sql.Rows) (models.SessionActivity, error) {
	var (
		id                int64
		sessionIDStr      string
		activityType      string
		activityID        sql.NullString
		data              string
		createdAt         int64
	)
	if err := rows.Scan(&id, &sessionIDStr, &activityType, &activityID, &data, &createdAt); err != nil {
		return models.SessionActivity{}, fmt.Errorf("scan activity: %w", err)
	}
	sessionID, err := uuid.Parse(sessionIDStr)
	if err != nil {
		return models.SessionActivity{}, fmt.Errorf("parse activity session id: %w", err)
	}
	a := models.SessionActivity{
		ID:           id,
		SessionID:    sessionID,
		ActivityType: activityType,
		Data:         json.RawMessage(data),
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
	}
	if activityID.Valid {
		a.ActivityID = &activityID.String
	}
	return a, nil
}
