package api

import (
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

// findWorkspace locates the workspace for taskID by scanning
// ListWorkspaces, mirroring the original implementation's routes exactly —
// there is no direct "get workspace by task id" operation on the backend.
func (s *Server) findWorkspace(c *echo.Context, taskID string) (vcs.Workspace, error) {
	workspaces, err := s.ectx.WorkspaceManager.ListWorkspaces(c.Request().Context())
	if err != nil {
		return vcs.Workspace{}, err
	}
	for _, ws := range workspaces {
		if ws.TaskID == taskID {
			return ws, nil
		}
	}
	return vcs.Workspace{}, vcs.ErrWorkspaceNotFound
}

// listWorkspacesHandler handles GET /api/workspaces.
func (s *Server) listWorkspacesHandler(c *echo.Context) error {
	workspaces, err := s.ectx.WorkspaceManager.ListWorkspaces(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, workspaces)
}

// getWorkspaceStatusHandler handles GET /api/workspaces/{task_id}.
func (s *Server) getWorkspaceStatusHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	ws, err := s.findWorkspace(c, taskID)
	if err != nil {
		return writeError(c, err)
	}
	status, err := s.ectx.WorkspaceManager.GetStatus(c.Request().Context(), ws)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, StatusResponse{TaskID: taskID, Status: status})
}

// getWorkspaceDiffHandler handles GET /api/workspaces/{task_id}/diff.
func (s *Server) getWorkspaceDiffHandler(c *echo.Context) error {
	taskID := c.Param("task_id")
	ws, err := s.findWorkspace(c, taskID)
	if err != nil {
		return writeError(c, err)
	}
	diff, err := s.ectx.WorkspaceManager.GetDiff(c.Request().Context(), ws)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, DiffResponse{TaskID: taskID, Diff: diff})
}

// listViewedFilesHandler handles GET /api/workspaces/{task_id}/viewed-files.
func (s *Server) listViewedFilesHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("task_id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	files, err := s.diffViewedRepo.ListByTask(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// markViewedHandler handles POST /api/workspaces/{task_id}/viewed-files.
// Marking the same file viewed twice moves its timestamp forward rather
// than creating a second row (ON CONFLICT DO UPDATE in the repository).
func (s *Server) markViewedHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("task_id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	var req MarkViewedRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if req.FilePath == "" {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", "file_path is required")
	}

	if err := s.diffViewedRepo.MarkViewed(c.Request().Context(), id, req.FilePath, time.Now().UTC()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// mergeWorkspaceHandler handles POST /api/workspaces/{task_id}/merge. The
// response is a tagged union: {"result":"success"} or
// {"result":"conflicts","files":[...]}, carrying the original's richer
// per-file ConflictType (SPEC_FULL.md supplement #3) rather than bare paths.
func (s *Server) mergeWorkspaceHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("task_id")

	ws, err := s.findWorkspace(c, taskID)
	if err != nil {
		return writeError(c, err)
	}

	var req MergeRequest
	if err := c.Bind(&req); err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	result, err := s.ectx.WorkspaceManager.MergeWorkspace(ctx, ws, req.Message)
	if err != nil {
		return writeError(c, err)
	}

	if id, parseErr := parseUUID(taskID); parseErr == nil {
		s.ectx.EmitEvent(models.WorkspaceMerged{TaskIDValue: id, Success: result.Success})
	}

	if result.Success {
		return c.JSON(http.StatusOK, mergeResponse{Result: "success"})
	}
	return c.JSON(http.StatusOK, mergeResponse{Result: "conflicts", Files: result.Files})
}

// deleteWorkspaceHandler handles DELETE /api/workspaces/{task_id}.
func (s *Server) deleteWorkspaceHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	taskID := c.Param("task_id")

	ws, err := s.findWorkspace(c, taskID)
	if err != nil {
		return writeError(c, err)
	}
	if err := s.ectx.WorkspaceManager.CleanupWorkspace(ctx, ws); err != nil {
		return writeError(c, err)
	}

	if id, parseErr := parseUUID(taskID); parseErr == nil {
		s.ectx.EmitEvent(models.WorkspaceDeleted{TaskIDValue: id})
	}
	return c.NoContent(http.StatusNoContent)
}

// mergeResponse is the tagged-union merge result: exactly one of the
// success/conflicts branches is meaningful, discriminated by Result.
type mergeResponse struct {
	Result string             `json:"result"`
	Files  []vcs.ConflictFile `json:"files,omitempty"`
}
