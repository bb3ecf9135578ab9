package models

import (
	"time"

	"github.com/google/uuid"
)

// ReviewCommentSide is which side of a diff a comment is anchored to.
type ReviewCommentSide string

const (
	ReviewCommentSideLeft  ReviewCommentSide = "LEFT"
	ReviewCommentSideRight ReviewCommentSide = "RIGHT"
)

// ReviewComment is a user-supplied, file/line-anchored comment used to drive
// FixMode::UserComments. Persisted in the review_comments table.
type ReviewComment struct {
	ID        int64             `json:"id"`
	TaskID    uuid.UUID         `json:"task_id"`
	FilePath  string            `json:"file_path"`
	LineStart int               `json:"line_start"`
	LineEnd   int               `json:"line_end"`
	Side      ReviewCommentSide `json:"side"`
	Content   string            `json:"content"`
	CreatedAt time.Time         `json:"created_at"`
}

// DiffViewedFile records that a user has viewed a given file's diff for a
// task. markViewed is an upsert keyed by (task_id, file_path).
type DiffViewedFile struct {
	TaskID    uuid.UUID `json:"task_id"`
	FilePath  string    `json:"file_path"`
	ViewedAt  time.Time `json:"viewed_at"`
}
