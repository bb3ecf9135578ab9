// Package statemachine validates Task status transitions against the
// orchestrator's lifecycle table. It is a pure function package: no state,
// no I/O.
package statemachine

import (
	"fmt"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// InvalidTransitionError is returned when a requested transition is not in
// the allowed-transitions table for the current status.
type InvalidTransitionError struct {
	From models.TaskStatus
	To   models.TaskStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q", e.From, e.To)
}

var allowedTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusTodo:           {models.TaskStatusPlanning},
	models.TaskStatusPlanning:       {models.TaskStatusPlanningReview, models.TaskStatusTodo},
	models.TaskStatusPlanningReview: {models.TaskStatusInProgress, models.TaskStatusPlanning},
	models.TaskStatusInProgress:     {models.TaskStatusAiReview, models.TaskStatusPlanningReview},
	models.TaskStatusAiReview:       {models.TaskStatusFix, models.TaskStatusReview, models.TaskStatusInProgress},
	models.TaskStatusFix:            {models.TaskStatusAiReview},
	models.TaskStatusReview:         {models.TaskStatusDone, models.TaskStatusInProgress, models.TaskStatusFix},
	models.TaskStatusDone:           {},
}

// nextStatus is the canonical forward step from each status. ai_review's
// canonical next is review (the approved/skip path); the fix path is
// reached explicitly by a phase result classifier, never by nextStatus.
var nextStatusTable = map[models.TaskStatus]models.TaskStatus{
	models.TaskStatusTodo:           models.TaskStatusPlanning,
	models.TaskStatusPlanning:       models.TaskStatusPlanningReview,
	models.TaskStatusPlanningReview: models.TaskStatusInProgress,
	models.TaskStatusInProgress:     models.TaskStatusAiReview,
	models.TaskStatusAiReview:       models.TaskStatusReview,
	models.TaskStatusFix:            models.TaskStatusAiReview,
	models.TaskStatusReview:         models.TaskStatusDone,
}

var previousStatusTable = map[models.TaskStatus]models.TaskStatus{
	models.TaskStatusPlanning:       models.TaskStatusTodo,
	models.TaskStatusPlanningReview: models.TaskStatusPlanning,
	models.TaskStatusInProgress:     models.TaskStatusPlanningReview,
	models.TaskStatusAiReview:       models.TaskStatusInProgress,
	models.TaskStatusFix:            models.TaskStatusAiReview,
	models.TaskStatusReview:         models.TaskStatusAiReview,
	models.TaskStatusDone:           models.TaskStatusReview,
}

// ValidateTransition returns an *InvalidTransitionError if to is not a legal
// next status from from.
func ValidateTransition(from, to models.TaskStatus) error {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return &InvalidTransitionError{From: from, To: to}
}

// CanTransition reports whether ValidateTransition would succeed.
func CanTransition(from, to models.TaskStatus) bool {
	return ValidateTransition(from, to) == nil
}

// NextStatus returns the canonical forward step from current, or false if
// current is terminal.
func NextStatus(current models.TaskStatus) (models.TaskStatus, bool) {
	next, ok := nextStatusTable[current]
	return next, ok
}

// PreviousStatus returns the status that precedes current on the canonical
// forward path, or false if current is the initial status. No API handler
// calls it; PATCH /api/tasks/{id} validates a status change like any other
// transition.
func PreviousStatus(current models.TaskStatus) (models.TaskStatus, bool) {
	prev, ok := previousStatusTable[current]
	return prev, ok
}

// AllowedTransitions returns the legal next statuses from from, for
// surfacing to clients (e.g. in error messages or UI affordances).
func AllowedTransitions(from models.TaskStatus) []models.TaskStatus {
	allowed := allowedTransitions[from]
	out := make([]models.TaskStatus, len(allowed))
	copy(out, allowed)
	return out
}
