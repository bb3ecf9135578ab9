package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// listTasksHandler handles GET /api/tasks.
func (s *Server) listTasksHandler(c *echo.Context) error {
	tasks, err := s.ectx.TaskRepo.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// createTaskHandler handles POST /api/tasks.
func (s *Server) createTaskHandler(c *echo.Context) error {
	var req models.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if req.Title == "" {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", "title is required")
	}

	task := models.NewTask(req.Title, req.Description)
	task.RoadmapItemID = req.RoadmapItemID

	if err := s.ectx.TaskRepo.Create(c.Request().Context(), task); err != nil {
		return writeError(c, err)
	}
	s.ectx.EmitEvent(models.TaskCreated{TaskIDValue: task.ID, Title: task.Title})

	return c.JSON(http.StatusCreated, task)
}

// getTaskHandler handles GET /api/tasks/{id}.
func (s *Server) getTaskHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	task, err := s.ectx.TaskRepo.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// updateTaskHandler handles PATCH /api/tasks/{id}. A Status field routes
// through ExecutorContext.Transition so it is validated against the
// lifecycle table rather than assigned directly; any other field is a
// plain field-level update.
func (s *Server) updateTaskHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	task, err := s.ectx.TaskRepo.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	var req models.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.WorkspacePath != nil {
		task.WorkspacePath = req.WorkspacePath
	}

	if req.Status != nil {
		if err := s.ectx.Transition(ctx, task, *req.Status); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, task)
	}

	task.UpdatedAt = time.Now().UTC()
	if err := s.ectx.TaskRepo.Update(ctx, task); err != nil {
		return writeError(c, err)
	}
	s.ectx.EmitEvent(models.TaskUpdated{TaskIDValue: task.ID})
	return c.JSON(http.StatusOK, task)
}

// deleteTaskHandler handles DELETE /api/tasks/{id}.
func (s *Server) deleteTaskHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if err := s.ectx.TaskRepo.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// transitionTaskHandler handles POST /api/tasks/{id}/transition.
func (s *Server) transitionTaskHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	task, err := s.ectx.TaskRepo.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	if err := s.ectx.Transition(ctx, task, req.To); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// executeTaskHandler handles POST /api/tasks/{id}/execute. Runner.Execute
// itself has no notion of an already-running session, so the
// SessionExists check named in spec.md §7/§8 is enforced here before
// handing off.
func (s *Server) executeTaskHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	task, err := s.ectx.TaskRepo.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	active, err := s.ectx.SessionRepo.ActiveForTask(ctx, task.ID)
	if err != nil {
		return writeError(c, err)
	}
	if active != nil {
		return writeError(c, engine.ErrSessionExists)
	}

	sessionID, phase, err := s.runner.Execute(ctx, s.ectx, task)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ExecuteResponse{SessionID: sessionID, Phase: phase})
}

// listTaskSessionsHandler handles GET /api/tasks/{id}/sessions.
func (s *Server) listTaskSessionsHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	sessions, err := s.ectx.SessionRepo.ListByTask(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, sessions)
}

// createWorkspaceHandler handles POST /api/tasks/{id}/workspace.
func (s *Server) createWorkspaceHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	task, err := s.ectx.TaskRepo.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}

	ws, err := s.ectx.WorkspaceManager.SetupWorkspace(ctx, task.ID.String())
	if err != nil {
		return writeError(c, err)
	}

	task.WorkspacePath = &ws.Path
	task.UpdatedAt = time.Now().UTC()
	if err := s.ectx.TaskRepo.Update(ctx, task); err != nil {
		s.ectx.Log.Error("failed to persist workspace_path", "task_id", task.ID, "error", err)
	}
	s.ectx.EmitEvent(models.WorkspaceCreated{TaskIDValue: task.ID, Path: ws.Path})

	return c.JSON(http.StatusCreated, ws)
}

// listReviewCommentsHandler handles GET /api/tasks/{id}/comments.
func (s *Server) listReviewCommentsHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	comments, err := s.reviewRepo.ListByTask(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

// createReviewCommentHandler handles POST /api/tasks/{id}/comments. These
// back FixMode::UserComments (SPEC_FULL.md supplement #5): a human leaves
// file/line-anchored comments that the next Fix phase folds into its
// prompt.
func (s *Server) createReviewCommentHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	var req CreateReviewCommentRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if req.FilePath == "" || req.Content == "" {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", "file_path and content are required")
	}
	if req.Side != models.ReviewCommentSideLeft && req.Side != models.ReviewCommentSideRight {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", "side must be LEFT or RIGHT")
	}

	comment := models.ReviewComment{
		TaskID:    id,
		FilePath:  req.FilePath,
		LineStart: req.LineStart,
		LineEnd:   req.LineEnd,
		Side:      req.Side,
		Content:   req.Content,
		CreatedAt: time.Now().UTC(),
	}
	created, err := s.reviewRepo.Create(c.Request().Context(), comment)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func parseUUID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}
