package api

import "github.com/codeready-toolchain/opencode-studio/pkg/models"

// MergeRequest is the body of POST /api/workspaces/{task_id}/merge.
type MergeRequest struct {
	Message string `json:"message"`
}

// MarkViewedRequest is the body of POST /api/workspaces/{task_id}/viewed-files.
type MarkViewedRequest struct {
	FilePath string `json:"file_path"`
}

// CreateReviewCommentRequest is the body of POST /api/tasks/{id}/comments.
type CreateReviewCommentRequest struct {
	FilePath  string                   `json:"file_path"`
	LineStart int                      `json:"line_start"`
	LineEnd   int                      `json:"line_end"`
	Side      models.ReviewCommentSide `json:"side"`
	Content   string                   `json:"content"`
}
