package phases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/engine"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
	"github.com/codeready-toolchain/opencode-studio/pkg/store"
)

// ErrNoExecutablePhase is returned when Execute is asked to act on a task
// whose status is an approval gate (planning_review, review) or terminal
// (done) — these only advance via an explicit transition or a
// human-authored fix, never automatically.
var ErrNoExecutablePhase = errors.New("task status has no automatically executable phase")

// Runner chains Engine.Execute calls into the full task lifecycle: it picks
// the phase implied by a task's current status, drives the review/fix loop
// bounded by ExecutorConfig.MaxReviewIterations, and steps a multi-part
// implementation through its sub-phases. This is the "caller" spec.md's
// Phase Engine section defers phase-chaining to — Engine itself only knows
// how to run one phase to completion.
type Runner struct {
	engine  *engine.Engine
	reviews *store.ReviewCommentRepository
}

// NewRunner creates a Runner driving eng, consulting reviews for the
// review-comment-driven fix mode.
func NewRunner(eng *engine.Engine, reviews *store.ReviewCommentRepository) *Runner {
	return &Runner{engine: eng, reviews: reviews}
}

// Execute advances task by one logical unit of work appropriate to its
// current status, returning the last session run and the phase it ran as.
func (r *Runner) Execute(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (uuid.UUID, models.SessionPhase, error) {
	switch task.Status {
	case models.TaskStatusTodo:
		return r.runPlanning(ctx, ectx, task)
	case models.TaskStatusInProgress:
		return r.runImplementation(ctx, ectx, task)
	case models.TaskStatusAiReview:
		return r.runReviewFixLoop(ctx, ectx, task)
	case models.TaskStatusFix:
		return r.runUserCommentsFix(ctx, ectx, task)
	default:
		return uuid.Nil, "", fmt.Errorf("%w: %s", ErrNoExecutablePhase, task.Status)
	}
}

func (r *Runner) runPlanning(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (uuid.UUID, models.SessionPhase, error) {
	if err := ectx.Transition(ctx, task, models.TaskStatusPlanning); err != nil {
		return uuid.Nil, "", fmt.Errorf("begin planning: %w", err)
	}
	session, _, err := r.engine.Execute(ctx, task, NewPlanningPhase())
	return sessionResult(session, models.SessionPhasePlanning, err)
}

// runImplementation steps a multi-part implementation through its
// sub-phases, each a separate Engine.Execute call so a crash mid-step
// leaves a consistent, resumable task status rather than silently skipping
// steps.
func (r *Runner) runImplementation(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (uuid.UUID, models.SessionPhase, error) {
	const totalPhases = 1 // single-shot implementation; multi-step plans are not yet split by the planning phase.

	var lastSessionID uuid.UUID
	for phaseNumber := 1; phaseNumber <= totalPhases; phaseNumber++ {
		session, outcome, err := r.engine.Execute(ctx, task, NewImplementationPhase(phaseNumber, totalPhases))
		if session != nil {
			lastSessionID = session.ID
		}
		if err != nil {
			return lastSessionID, models.SessionPhaseImplementation, err
		}
		if outcome.Kind != engine.OutcomeContinue {
			break
		}
	}
	return lastSessionID, models.SessionPhaseImplementation, nil
}

// runReviewFixLoop runs the AI review, and on CHANGES_REQUESTED drives a
// Feedback-mode fix and loops back into another review. ReviewPhase itself
// never looks at ExecutorConfig.MaxReviewIterations — it always reports
// Iterate on CHANGES_REQUESTED — so the bound is enforced here: once the
// next iteration would exceed the configured maximum, Runner overrides the
// phase's own outcome and escalates straight to human review instead of
// spawning another fix.
func (r *Runner) runReviewFixLoop(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (uuid.UUID, models.SessionPhase, error) {
	iteration := 0
	var lastSessionID uuid.UUID
	var lastPhase models.SessionPhase

	for {
		session, outcome, err := r.engine.Execute(ctx, task, NewReviewPhase(iteration, false))
		if session != nil {
			lastSessionID = session.ID
		}
		lastPhase = models.SessionPhaseReview
		if err != nil {
			return lastSessionID, lastPhase, err
		}

		if outcome.Kind != engine.OutcomeIterate || iteration >= ectx.Config.MaxReviewIterations {
			if outcome.Kind == engine.OutcomeIterate {
				if err := ectx.Transition(ctx, task, models.TaskStatusReview); err != nil {
					return lastSessionID, lastPhase, fmt.Errorf("escalate to human review: %w", err)
				}
			}
			return lastSessionID, lastPhase, nil
		}

		if err := ectx.Transition(ctx, task, models.TaskStatusFix); err != nil {
			return lastSessionID, lastPhase, fmt.Errorf("begin fix: %w", err)
		}

		fixSession, _, err := r.engine.Execute(ctx, task, NewFixPhase(NewFixWithFeedback(outcome.Feedback)))
		if fixSession != nil {
			lastSessionID = fixSession.ID
		}
		lastPhase = models.SessionPhaseFix
		if err != nil {
			return lastSessionID, lastPhase, err
		}

		iteration = outcome.Iteration
	}
}

// runUserCommentsFix handles a task a human has explicitly sent to fix
// (review→fix) with review comments left on the diff, rather than the
// review phase's own CHANGES_REQUESTED feedback.
func (r *Runner) runUserCommentsFix(ctx context.Context, ectx *engine.ExecutorContext, task *models.Task) (uuid.UUID, models.SessionPhase, error) {
	comments, err := r.reviews.ListByTask(ctx, task.ID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("load review comments: %w", err)
	}

	session, _, err := r.engine.Execute(ctx, task, NewFixPhase(NewFixWithUserComments(comments)))
	if err != nil {
		return sessionResult(session, models.SessionPhaseFix, err)
	}

	if delErr := r.reviews.DeleteByTask(ctx, task.ID); delErr != nil {
		ectx.Log.Warn("failed to clear consumed review comments", "task_id", task.ID, "error", delErr)
	}
	return sessionResult(session, models.SessionPhaseFix, nil)
}

func sessionResult(session *models.Session, phase models.SessionPhase, err error) (uuid.UUID, models.SessionPhase, error) {
	if session == nil {
		return uuid.Nil, phase, err
	}
	return session.ID, phase, err
}
