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
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools"
	"github.com/teradata-labs/praxos/pkg/tools/builtin"
)

// CallModel invokes the bound LLM with the system prompt and the full
// message history, appending the assistant's response. The response may
// carry tool call requests; execution happens in the action node.
func CallModel(ctx context.Context, state *RunState, toolset []tools.Tool) error {
	messages := make([]llm.Message, 0, len(state.Messages)+1)
	messages = append(messages, llm.NewSystemMessage(state.Config.SystemPrompt))
	messages = append(messages, state.Messages...)

	resp, err := state.Config.Provider.Chat(ctx, messages, toolset)
	if err != nil {
		return fmt.Errorf("model call failed: %w", err)
	}

	for i := range resp.ToolCalls {
		if resp.ToolCalls[i].ID == "" {
			resp.ToolCalls[i].ID = uuid.New().String()
		}
	}

	state.Append(llm.NewAssistantMessage(resp.Content, resp.ToolCalls))
	log.Debug("model responded",
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.String("stop_reason", resp.StopReason))
	return nil
}

// ObtainData is the bounded missing-parameter side loop. It increments the
// data counter, and unless the cap is exhausted, appends one directive
// instructing the model to consolidate every missing field into a single
// probe tool call, then hands control back to the model.
func ObtainData(state *RunState) Decision {
	state.DataIterCounter++
	if state.DataIterCounter > state.Config.MaxDataIters {
		return DecideFinalize
	}

	state.Append(llm.NewUserMessage(obtainDataDirective))
	state.ParamProbeDone = true
	return DecideAgent
}

// ExecuteAction executes the tool calls of the most recent tool-calling
// assistant message, appending one tool-result message per call. Calls that
// already have a successful result are skipped, so a retry pass re-runs
// only what failed. Sibling calls run concurrently; results are appended in
// call order once all complete.
func ExecuteAction(ctx context.Context, state *RunState, executor *tools.Executor) {
	pending := state.PendingToolCalls()
	if len(pending) == 0 {
		return
	}

	results := make([]*tools.Result, len(pending))
	var wg sync.WaitGroup
	for i, call := range pending {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			result, err := executor.Execute(ctx, call.Name, call.Input)
			if err != nil {
				result = tools.FromError(call.Name, err, "", nil)
			}
			results[i] = result
		}(i, call)
	}
	wg.Wait()

	for i, call := range pending {
		state.Append(llm.NewToolResultMessage(call.ID, call.Name, renderToolResult(results[i]), results[i]))
		if call.Name == builtin.AskUserToolName {
			// The probe ran; a later router pass may open one more probe.
			state.ParamProbeDone = false
		}
	}
}

// renderToolResult serializes a tool result for the model's context window.
func renderToolResult(result *tools.Result) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","error_message":%q}`, err.Error())
	}
	return string(raw)
}
