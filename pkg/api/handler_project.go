package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"
)

// projectHandler handles GET /api/project.
func (s *Server) projectHandler(c *echo.Context) error {
	tasks, err := s.ectx.TaskRepo.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, ProjectResponse{
		Name:       s.cfg.Name,
		Path:       s.cfg.RepoPath,
		VCS:        s.cfg.VCS,
		TasksCount: len(tasks),
	})
}
