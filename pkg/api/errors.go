package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/phases"
	"github.com/codeready-toolchain/opencode-studio/pkg/statemachine"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
	"github.com/codeready-toolchain/opencode-studio/pkg/vcs"
)

// writeJSONError writes the spec.md §6 error shape {error, message} with
// the given HTTP status. It returns only the error (if any) from writing
// that response, so the classified failure is not reported to echo again.
func writeJSONError(c *echo.Context, status int, kind, message string) error {
	return c.JSON(status, ErrorResponse{Error: kind, Message: message})
}

// writeError classifies err per spec.md §7 and writes the matching
// response. Unrecognized errors are logged in full and masked as a generic
// 500 "database error" to the client.
func writeError(c *echo.Context, err error) error {
	var invalidTransition *statemachine.InvalidTransitionError
	if errors.As(err, &invalidTransition) {
		msg := fmt.Sprintf("Invalid task status transition from %s to %s", invalidTransition.From, invalidTransition.To)
		return writeJSONError(c, http.StatusBadRequest, "invalid_transition", msg)
	}

	if errors.Is(err, store.ErrNotFound) || errors.Is(err, vcs.ErrWorkspaceNotFound) {
		return writeJSONError(c, http.StatusNotFound, "not_found", err.Error())
	}

	if errors.Is(err, engine.ErrSessionExists) {
		return writeJSONError(c, http.StatusConflict, "session_exists", err.Error())
	}
	if errors.Is(err, vcs.ErrWorkspaceAlreadyExists) {
		return writeJSONError(c, http.StatusConflict, "conflict", err.Error())
	}
	if errors.Is(err, phases.ErrNoExecutablePhase) {
		return writeJSONError(c, http.StatusConflict, "conflict", err.Error())
	}

	var agentErr *engine.AgentRuntimeError
	if errors.As(err, &agentErr) {
		return writeJSONError(c, http.StatusInternalServerError, "agent_runtime_error", err.Error())
	}
	var vcsErr *engine.VcsCommandFailedError
	if errors.As(err, &vcsErr) {
		return writeJSONError(c, http.StatusInternalServerError, "vcs_command_failed", err.Error())
	}
	var cmdErr *vcs.CommandError
	if errors.As(err, &cmdErr) {
		return writeJSONError(c, http.StatusInternalServerError, "vcs_error", err.Error())
	}

	slog.Error("unhandled API error", "error", err)
	return writeJSONError(c, http.StatusInternalServerError, "database_error", "database error")
}
