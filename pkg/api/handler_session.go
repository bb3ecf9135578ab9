package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// getSessionHandler handles GET /api/sessions/{id}.
func (s *Server) getSessionHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	session, err := s.ectx.SessionRepo.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// deleteSessionHandler handles DELETE /api/sessions/{id}. The in-memory
// activity store follows the session row out.
func (s *Server) deleteSessionHandler(c *echo.Context) error {
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}
	if err := s.ectx.SessionRepo.Delete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	if s.ectx.ActivityRegistry != nil {
		s.ectx.ActivityRegistry.Drop(id)
	}
	return c.NoContent(http.StatusNoContent)
}

// abortSessionHandler handles POST /api/sessions/{id}/abort. The session
// is marked aborted first; asking the runtime to abort its conversation is
// best-effort — the in-flight prompt surfaces the abort as an error and is
// classified as a failure by the engine either way.
func (s *Server) abortSessionHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	session, err := s.ectx.SessionRepo.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if session.Status.Terminal() {
		return writeJSONError(c, http.StatusConflict, "conflict", "session already terminal")
	}

	session.Abort()
	if err := s.ectx.SessionRepo.Update(ctx, session); err != nil {
		return writeError(c, err)
	}

	if session.AgentSessionID != nil {
		if err := s.ectx.AgentClient.Abort(ctx, *session.AgentSessionID); err != nil {
			s.ectx.Log.Warn("failed to abort agent runtime session",
				"session_id", session.ID, "agent_session_id", *session.AgentSessionID, "error", err)
		}
	}

	if store := s.ectx.GetActivityStore(session.ID); store != nil {
		store.PushFinished(false, "aborted by user")
	}
	s.ectx.EmitSessionEnded(session.ID, session.TaskID, false)

	return c.JSON(http.StatusOK, session)
}

// listSessionActivitiesHandler handles GET /api/sessions/{id}/activities.
// ?since=N tail-reads entries with id > N so a UI subscriber can resume
// where it left off. The in-memory store is preferred; sessions from
// before the current process fall back to the persisted log.
func (s *Server) listSessionActivitiesHandler(c *echo.Context) error {
	ctx := c.Request().Context()
	id, err := parseUUID(c.Param("id"))
	if err != nil {
		return writeJSONError(c, http.StatusBadRequest, "bad_request", err.Error())
	}

	if _, err := s.ectx.SessionRepo.Get(ctx, id); err != nil {
		return writeError(c, err)
	}

	var since int64
	if raw := c.QueryParam("since"); raw != "" {
		since, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return writeJSONError(c, http.StatusBadRequest, "bad_request", "since must be an integer")
		}
	}

	if s.ectx.ActivityRegistry != nil {
		if store, ok := s.ectx.ActivityRegistry.Get(id); ok {
			return c.JSON(http.StatusOK, store.Since(since))
		}
	}

	activities, err := s.ectx.ActivityRepo.Since(ctx, id, since)
	if err != nil {
		return writeError(c, err)
	}
	if activities == nil {
		activities = []models.SessionActivity{}
	}
	return c.JSON(http.StatusOK, activities)
}
