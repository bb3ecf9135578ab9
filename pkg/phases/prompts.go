// Package phases implements the four phase types the engine drives:
// planning, implementation, review, and fix. It also provides Runner, the
// caller that chains phase executions into the full task lifecycle —
// bounding the review/fix loop by ExecutorConfig.MaxReviewIterations and
// stepping a multi-part implementation through its sub-phases.
package phases

import (
	"fmt"

	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// planningPrompt instructs the agent to produce a plan without touching
// code.
func planningPrompt(task *models.Task, planPath string) string {
	return fmt.Sprintf(`You are analyzing a development task. Create a detailed implementation plan.

## Task
**Title:** %s
**Description:** %s

## Required Output
Save your analysis to: %s

The plan should include:
1. Technical analysis
2. Files to modify/create
3. Step-by-step implementation steps
4. Potential risks
5. Estimated complexity (S/M/L/XL)

Do NOT implement anything yet. Only create the plan.`, task.Title, task.Description, planPath)
}

// implementationPrompt directs the agent to read the plan and implement it
// in the workspace. phaseNumber/totalPhases are 1-indexed; totalPhases==1
// is a single-shot implementation.
func implementationPrompt(task *models.Task, planPath string, phaseNumber, totalPhases int) string {
	step := ""
	if totalPhases > 1 {
		step = fmt.Sprintf("\n\nThis is step %d of %d. Implement only this step's scope; later steps will follow.", phaseNumber, totalPhases)
	}

	return fmt.Sprintf(`Implement the following task according to the plan.

## Task
**Title:** %s
**Plan:** Read from %s

## Instructions
1. Read the plan carefully
2. Implement each step
3. Write tests if applicable
4. Commit your changes%s

Start implementation now.`, task.Title, planPath, step)
}

// reviewPrompt carries the diff and review criteria, and asks the agent to
// classify its own verdict with the APPROVED / CHANGES_REQUESTED tokens the
// review phase's classifier matches on.
func reviewPrompt(task *models.Task, diff, reviewPath string) string {
	return fmt.Sprintf(`Review the following code changes for task: %s

## Diff
`+"```"+`
%s
`+"```"+`

## Review Criteria
1. Code quality and style
2. Correctness - does it solve the task?
3. Tests - are they adequate?
4. Security concerns
5. Breaking changes

## Output
Save your review to: %s

If approved, respond with: APPROVED
If changes needed, respond with: CHANGES_REQUESTED and explain what needs fixing.`, task.Title, diff, reviewPath)
}

// fixIssuesPrompt templates a fix prompt from a review's free-text feedback.
func fixIssuesPrompt(task *models.Task, feedback string) string {
	return fmt.Sprintf(`Fix the issues identified in the code review for task: %s

## Review Feedback
%s

## Instructions
1. Address each issue mentioned
2. Update tests if needed
3. Commit your changes

Fix the issues now.`, task.Title, feedback)
}

// fixWithMcpPrompt is used when the fix phase relies on the findings MCP
// server for structured issues instead of a feedback string — the server's
// tools carry the per-finding detail, so the prompt only needs to point the
// agent at them.
func fixWithMcpPrompt(task *models.Task) string {
	return fmt.Sprintf(`Fix the issues found during code review for task: %s

## Instructions
1. Use the findings tools available to you to list the structured review findings
2. Address each finding, starting with the highest severity
3. Update tests if needed
4. Commit your changes

Fix the issues now.`, task.Title)
}

// fixUserCommentsPrompt templates a fix prompt from explicit file/line
// comments a human left on the diff.
func fixUserCommentsPrompt(task *models.Task, comments []models.ReviewComment) string {
	body := ""
	for _, c := range comments {
		lines := fmt.Sprintf("%d", c.LineStart)
		if c.LineEnd != c.LineStart {
			lines = fmt.Sprintf("%d-%d", c.LineStart, c.LineEnd)
		}
		body += fmt.Sprintf("\n- **%s:%s** (%s): %s", c.FilePath, lines, c.Side, c.Content)
	}

	return fmt.Sprintf(`Fix the issues raised in the following review comments for task: %s

## Review Comments
%s

## Instructions
1. Address each comment at its referenced file and line range
2. Update tests if needed
3. Commit your changes

Fix the issues now.`, task.Title, body)
}
