package api

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/opencode-studio/pkg/events"
)

// wsHandler upgrades GET /ws to a WebSocket connection and runs its
// protocol loop to completion (blocks until the connection closes).
func (s *Server) wsHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Single local user (spec.md §1 Non-goals) — no origin allowlist to
		// enforce. Mirrors the teacher's own deferred-to-later-phase stance.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	events.HandleConnection(c.Request().Context(), conn, s.ectx.Bus)
	return nil
}
