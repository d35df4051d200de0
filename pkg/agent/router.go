// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package agent

import (
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools/builtin"
)

// Decision is the router's choice of next node.
type Decision string

const (
	DecideAgent      Decision = "agent"
	DecideAction     Decision = "action"
	DecideObtainData Decision = "obtain_data"
	DecideFinalize   Decision = "finalize"
)

// Route is the core state-transition function. It inspects the latest
// message(s) and the per-run counters and decides the next node. It is
// invoked after every model call and after every action pass.
//
// Decision order, first match wins:
//  1. direct-reply short-circuit: a reply tool already delivered output
//  2. scheduled-note continuation: force tool execution
//  3. tool-error handling: surrender, exhaust, or retry with guidance
//  4. missing-parameter path: bounded probe loop
//  5. stalled-tool forcing: planner chose tools but none were called
//  6. default: pending tool calls run, bare assistant text finalizes,
//     fresh tool results return to the model
//
// Any panic inside routing resolves to finalize: fail-safe termination
// takes priority over fail-open retry.
func Route(state *RunState) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("router panicked, forcing finalize", zap.Any("panic", r))
			decision = DecideFinalize
		}
	}()

	decision = route(state)
	log.Debug("router decision",
		zap.String("decision", string(decision)),
		zap.Int("tool_iters", state.ToolIterCounter),
		zap.Int("data_iters", state.DataIterCounter))
	return decision
}

func route(state *RunState) Decision {
	last := state.LastMessage()
	if last == nil {
		return DecideFinalize
	}

	// 1. Direct-reply short-circuit: the agent already messaged the user
	// through a reply tool and marked the message final. The reply call
	// must have an executed, non-error result; a pending call still needs
	// the action node to deliver it.
	if replyDelivered(state) {
		return DecideFinalize
	}

	// 2. Scheduled/recurring/triggered continuation: the injected note
	// exists specifically to force immediate tool execution. When the note
	// carries no pending calls the model must still produce them, so
	// control goes to the model instead of looping on an empty action pass.
	if last.IsAssistant() && strings.HasPrefix(last.Content, ScheduledNotePrefix) {
		if len(state.PendingToolCalls()) > 0 {
			return DecideAction
		}
		return DecideAgent
	}

	// 3. Tool-error handling.
	if last.IsToolError() {
		details := last.ToolResult.ErrorDetails
		if details == nil || !details.Retryable {
			if details != nil {
				state.Append(llm.NewUserMessage(details.UserFacing()))
			}
			return DecideFinalize
		}
		if state.ToolIterCounter >= state.Config.MaxToolIters {
			state.Append(llm.NewUserMessage(maxRetriesMessage(details.Guidance())))
			return DecideFinalize
		}
		state.ToolIterCounter++
		if details.RetryAfterSeconds > 0 {
			// Backoff is the outer scheduler's job; the router never sleeps.
			log.Info("retryable tool error suggests delay",
				zap.String("category", string(details.Category)),
				zap.Int("retry_after_seconds", details.RetryAfterSeconds))
		}
		state.Append(llm.NewUserMessage(details.Guidance()))
		return DecideAction
	}

	// 4. Missing-parameter path. Only relevant once the model has spoken
	// without pending tool calls: a pending call always takes precedence.
	if last.IsAssistant() && !last.HasToolCalls() &&
		!state.Config.MinimalTools &&
		state.Config.RequiresTool(builtin.AskUserToolName) {
		if state.DataIterCounter >= state.Config.MaxDataIters || state.ParamProbeDone {
			return DecideFinalize
		}
		return DecideObtainData
	}

	// 5. Stalled-tool forcing: tools were explicitly required but no new
	// assistant message in this run has called any.
	if !state.Config.MinimalTools && len(state.Config.RequiredToolIDs) > 0 && !newToolCallsExist(state) {
		state.ToolIterCounter++
		if state.ToolIterCounter > state.Config.MaxToolIters {
			state.Append(llm.NewUserMessage(maxRetriesMessage("")))
			return DecideFinalize
		}
		state.Append(llm.NewUserMessage(stalledPlanReminder(state.Config.Plan)))
		return DecideAction
	}

	// 6. Default.
	if last.IsAssistant() {
		if last.HasToolCalls() {
			return DecideAction
		}
		return DecideFinalize
	}
	return DecideAgent
}

// replyDelivered reports whether the latest tool-calling assistant message
// contains a final reply-tool call that has already executed successfully.
func replyDelivered(state *RunState) bool {
	msg := state.LatestAssistantWithToolCalls()
	if msg == nil {
		return false
	}
	for _, call := range msg.ToolCalls {
		if !isFinalReplyCall(call) {
			continue
		}
		if result := state.ToolResultFor(call.ID); result != nil && !result.ToolResult.IsError() {
			return true
		}
	}
	return false
}

// isFinalReplyCall reports whether the call targets a reply tool with
// final_message true (the default when omitted).
func isFinalReplyCall(call llm.ToolCall) bool {
	if !strings.HasPrefix(call.Name, builtin.ReplyToolPrefix) {
		return false
	}
	if v, ok := call.Input["final_message"].(bool); ok && !v {
		return false
	}
	return true
}

// newToolCallsExist reports whether any assistant message produced during
// this run carries tool calls.
func newToolCallsExist(state *RunState) bool {
	for _, msg := range state.NewMessages() {
		if msg.IsAssistant() && msg.HasToolCalls() {
			return true
		}
	}
	return false
}
