package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/opencode-studio/pkg/agentrt"
	"github.com/codeready-toolchain/opencode-studio/pkg/mcp"
	"github.com/codeready-toolchain/opencode-studio/pkg/models"
)

// Engine drives a single Phase to completion against an ExecutorContext.
// It owns resource acquisition and release, session bookkeeping, and
// prompt dispatch; it knows nothing about which concrete phase it is
// running, or what comes after — that is the caller's decision, driven off
// the returned PhaseOutcome.
type Engine struct {
	ctx *ExecutorContext
}

// New wraps ectx in an Engine.
func New(ectx *ExecutorContext) *Engine {
	return &Engine{ctx: ectx}
}

// Execute runs phase against task end to end:
//
//  1. acquires the resources phase declares it needs (workspace, MCP
//     findings server), scoped to a session id minted up front
//  2. asks phase to build its prompt and session configuration
//  3. opens an agent-runtime session and wraps it in deferred guards that,
//     on any early return or panic, mark the session failed and emit
//     session.ended
//  4. dispatches the prompt and records the reply as an activity
//  5. finalizes the session (completed/failed) and emits session.ended
//  6. hands the result to phase.ProcessResult for phase-specific handling
//  7. releases resources in the reverse order they were acquired
func (e *Engine) Execute(ctx context.Context, task *models.Task, phase Phase) (*models.Session, PhaseOutcome, error) {
	ectx := e.ctx
	log := ectx.Log.With("task_id", task.ID, "phase", phase.PhaseType())

	reqs := phase.RequiredResources()
	session := models.NewSession(task.ID, phase.PhaseType())

	if reqs.NeedsWorkspace {
		if err := ectx.SetupWorkspace(ctx, task); err != nil {
			return nil, PhaseOutcome{}, fmt.Errorf("acquire workspace: %w", err)
		}
	}

	if reqs.NeedsMcpFindings {
		guard, err := mcp.Connect(ctx, ectx.McpManager, task.ID, session.ID, ectx.WorkingDirForTask(task), ectx.FindingsPath(task.ID))
		if err != nil {
			return nil, PhaseOutcome{}, &AgentRuntimeError{Op: "mcp_connect", Err: err}
		}
		defer guard.Release(ctx)
	}

	cfg, err := phase.BuildConfig(ctx, ectx, task)
	if err != nil {
		return nil, PhaseOutcome{}, fmt.Errorf("build phase config: %w", err)
	}

	if err := ectx.PersistSession(ctx, session); err != nil {
		return nil, PhaseOutcome{}, fmt.Errorf("persist session: %w", err)
	}

	title := task.Title
	rtSession, err := ectx.AgentClient.CreateSession(ctx, &title)
	if err != nil {
		session.Fail()
		_ = ectx.UpdateSession(ctx, session)
		return session, PhaseOutcome{}, &AgentRuntimeError{Op: "create_session", Err: err}
	}
	session.Start(rtSession.ID)
	if err := ectx.UpdateSession(ctx, session); err != nil {
		log.Warn("failed to persist session start", "session_id", session.ID, "error", err)
	}
	ectx.EmitSessionStarted(session)

	guard := newSessionGuard(session.ID, task.ID, ectx.Bus, log)
	defer guard.release()
	defer func() {
		if session.Status == models.SessionStatusRunning {
			session.Fail()
			if err := ectx.UpdateSession(ctx, session); err != nil {
				log.Warn("failed to persist session failure", "session_id", session.ID, "error", err)
			}
		}
	}()

	resp, err := ectx.AgentClient.SendPrompt(ctx, rtSession.ID, cfg.Prompt, cfg.Model, cfg.WorkingDir)
	if err != nil {
		session.Fail()
		_ = ectx.UpdateSession(ctx, session)
		e.finishActivity(ctx, session.ID, false, err.Error())
		guard.markFailed()
		ectx.EmitSessionEnded(session.ID, task.ID, false)

		// The phase's failure branch owns the recovery transition
		// (planning→todo, implementation→planning_review, ...), so the
		// task is never stranded in a state it cannot leave.
		failOut, procErr := phase.ProcessResult(ctx, ectx, task, SessionOutput{
			SessionID:      session.ID,
			AgentSessionID: rtSession.ID,
			Success:        false,
			Error:          err.Error(),
		})
		if procErr != nil {
			log.Error("failed to process failed-phase result", "session_id", session.ID, "error", procErr)
		}
		return session, failOut, &AgentRuntimeError{Op: "send_prompt", Err: err}
	}

	e.recordMessage(ctx, session, task.ID, resp.Message)

	session.Complete()
	if err := ectx.UpdateSession(ctx, session); err != nil {
		log.Warn("failed to persist session completion", "session_id", session.ID, "error", err)
	}
	e.finishActivity(ctx, session.ID, true, "")
	guard.markCompleted()
	ectx.EmitSessionEnded(session.ID, task.ID, true)

	// ProcessResult applies whatever task-status transition the phase
	// decides on directly, via ectx.Transition — PhaseOutcome is purely
	// informational, telling the caller what ran and what (if anything) it
	// should drive next.
	outcome, err := phase.ProcessResult(ctx, ectx, task, SessionOutput{
		SessionID:      session.ID,
		AgentSessionID: rtSession.ID,
		ResponseText:   responseText(resp.Message),
		Success:        true,
	})
	if err != nil {
		return session, outcome, fmt.Errorf("process phase result: %w", err)
	}

	return session, outcome, nil
}

// recordMessage turns the assistant's reply into activities and bus
// events. When the runtime supplies fine-grained parts they are recorded
// one by one (text → agent_message, tool_use → tool_call, tool_result →
// tool_result); a flat reply falls back to a single agent_message.
func (e *Engine) recordMessage(ctx context.Context, session *models.Session, taskID uuid.UUID, msg agentrt.Message) {
	if len(msg.Parts) == 0 {
		e.recordAgentText(ctx, session, taskID, msg.Content)
		return
	}
	for _, p := range msg.Parts {
		switch p.Type {
		case "text":
			e.recordAgentText(ctx, session, taskID, p.Text)
		case "tool_use":
			e.recordToolCall(ctx, session, taskID, p)
		case "tool_result":
			e.recordToolResult(ctx, session, taskID, p)
		default:
			e.ctx.Log.Debug("skipping unknown message part", "session_id", session.ID, "part_type", p.Type)
		}
	}
}

func (e *Engine) recordAgentText(ctx context.Context, session *models.Session, taskID uuid.UUID, content string) {
	ectx := e.ctx
	ectx.EmitEvent(models.AgentMessage{
		SessionID:   session.ID,
		TaskIDValue: taskID,
		Message:     models.AgentMessageData{Content: content, Role: "assistant", IsPartial: false},
	})

	payload, err := json.Marshal(models.AgentMessageData{Content: content, Role: "assistant"})
	if err != nil {
		ectx.Log.Error("failed to marshal agent message activity", "session_id", session.ID, "error", err)
		return
	}
	e.recordActivity(ctx, session.ID, models.ActivityTypeAgentMessage, nil, payload)
}

func (e *Engine) recordToolCall(ctx context.Context, session *models.Session, taskID uuid.UUID, p agentrt.MessagePart) {
	var input *string
	if len(p.Input) > 0 {
		s := string(p.Input)
		input = &s
	}
	e.ctx.EmitEvent(models.ToolExecution{
		SessionID:   session.ID,
		TaskIDValue: taskID,
		Tool:        models.ToolExecutionData{Name: p.Tool, Input: input, Success: true},
	})

	payload, err := json.Marshal(struct {
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input,omitempty"`
	}{Name: p.Tool, Input: p.Input})
	if err != nil {
		e.ctx.Log.Error("failed to marshal tool call activity", "session_id", session.ID, "error", err)
		return
	}
	e.recordActivity(ctx, session.ID, models.ActivityTypeToolCall, partActivityID(p), payload)
}

func (e *Engine) recordToolResult(ctx context.Context, session *models.Session, taskID uuid.UUID, p agentrt.MessagePart) {
	output := p.Output
	e.ctx.EmitEvent(models.ToolExecution{
		SessionID:   session.ID,
		TaskIDValue: taskID,
		Tool:        models.ToolExecutionData{Name: p.Tool, Output: &output, Success: !p.IsError},
	})

	payload, err := json.Marshal(struct {
		Name    string `json:"name"`
		Output  string `json:"output"`
		Success bool   `json:"success"`
	}{Name: p.Tool, Output: p.Output, Success: !p.IsError})
	if err != nil {
		e.ctx.Log.Error("failed to marshal tool result activity", "session_id", session.ID, "error", err)
		return
	}
	e.recordActivity(ctx, session.ID, models.ActivityTypeToolResult, partActivityID(p), payload)
}

func partActivityID(p agentrt.MessagePart) *string {
	if p.CallID == "" {
		return nil
	}
	id := p.CallID
	return &id
}

// responseText flattens a message for phase classification: the runtime's
// own flattened content when present, else the text parts joined in order.
func responseText(msg agentrt.Message) string {
	if msg.Content != "" {
		return msg.Content
	}
	var b strings.Builder
	for _, p := range msg.Parts {
		if p.Type != "text" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

func (e *Engine) recordActivity(ctx context.Context, sessionID uuid.UUID, activityType string, activityID *string, data json.RawMessage) {
	ectx := e.ctx
	if ectx.ActivityRepo != nil {
		a := models.SessionActivity{
			SessionID:    sessionID,
			ActivityType: activityType,
			ActivityID:   activityID,
			Data:         data,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := ectx.ActivityRepo.Append(ctx, a); err != nil {
			ectx.Log.Error("failed to persist activity", "session_id", sessionID, "activity_type", activityType, "error", err)
		}
	}
	if store := ectx.GetActivityStore(sessionID); store != nil {
		store.Append(activityType, activityID, data)
	}
}

func (e *Engine) finishActivity(ctx context.Context, sessionID uuid.UUID, success bool, errMsg string) {
	ectx := e.ctx
	payload, err := json.Marshal(models.FinishedData{Success: success, Error: errMsg})
	if err != nil {
		ectx.Log.Error("failed to marshal finished activity", "session_id", sessionID, "error", err)
		return
	}
	if ectx.ActivityRepo != nil {
		a := models.SessionActivity{
			SessionID:    sessionID,
			ActivityType: models.ActivityTypeFinished,
			Data:         payload,
			CreatedAt:    time.Now().UTC(),
		}
		if _, err := ectx.ActivityRepo.Append(ctx, a); err != nil {
			ectx.Log.Error("failed to persist finished activity", "session_id", sessionID, "error", err)
		}
	}
	if store := ectx.GetActivityStore(sessionID); store != nil {
		store.PushFinished(success, errMsg)
	}
}
