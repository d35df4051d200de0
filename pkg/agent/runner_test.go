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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/praxos/pkg/conversation"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools"
)

func newTestStore(t *testing.T) *conversation.SQLiteStore {
	t.Helper()
	store, err := conversation.NewSQLiteStore(conversation.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunner_ConversationalRun(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{Content: "Hello! How can I help?", StopReason: "end_turn"},
		},
		StructuredOutputs: map[string]string{
			"turn_plan":      `{"turn_type":"conversational","tools_needed":false}`,
			"final_response": `{"response":"Hello! How can I help?","delivery_platform":"whatsapp"}`,
		},
	}
	runner := NewRunner(store, provider, provider, NewAssembler(nil))

	userCtx := UserContext{TenantID: "t1", UserID: "u1"}
	resp := runner.Run(context.Background(), userCtx,
		[]Input{{Text: "hi"}}, SourceWhatsApp, Metadata{})

	require.NotNil(t, resp)
	assert.Equal(t, "Hello! How can I help?", resp.Response)
	assert.Equal(t, "whatsapp", resp.DeliveryPlatform)

	// The run's messages were persisted under the conversation.
	history, err := store.History(context.Background(), "t1", "u1", 0)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(history), 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, "hi", history[0].Content)

	// And the execution record was written.
	execs, err := store.Executions(context.Background(), "t1", "u1", 10)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "completed", execs[0].Status)
	assert.Equal(t, SourceWhatsApp, execs[0].Source)
	assert.Equal(t, "hi", execs[0].Request)
}

func TestRunner_PlanningFailureFallsOpen(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{Content: "Here is your answer anyway.", StopReason: "end_turn"},
		},
		// Every structured call fails: planning AND structured finalize.
		StructuredErr: errors.New("structured output unavailable"),
	}
	runner := NewRunner(store, provider, provider, NewAssembler(nil))

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{Text: "what's up"}}, SourceTelegram, Metadata{})

	require.NotNil(t, resp, "a failed planner must never fail the run")
	assert.Equal(t, "Here is your answer anyway.", resp.Response)
}

func TestRunner_AssemblyFailureIsApologetic(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		StructuredOutputs: map[string]string{
			"turn_plan": `{"turn_type":"command","tools_needed":false}`,
		},
	}
	factories := []ToolFactory{
		{Name: "dup", New: func(bctx BindContext) tools.Tool { return &tools.MockTool{MockName: "dup"} }},
		{Name: "dup", New: func(bctx BindContext) tools.Tool { return &tools.MockTool{MockName: "dup"} }},
	}
	assembler := NewAssembler(factories)
	runner := NewRunner(store, provider, provider, assembler)

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{Text: "hi"}}, SourceWhatsApp, Metadata{})

	require.NotNil(t, resp)
	assert.Contains(t, resp.Response, "something went wrong")
}

func TestRunner_ScheduledRunSeedsNote(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{Content: "Done.", StopReason: "end_turn"},
		},
		StructuredOutputs: map[string]string{
			"turn_plan":      `{"turn_type":"command","tools_needed":false}`,
			"final_response": `{"response":"Done.","delivery_platform":"email"}`,
		},
	}
	runner := NewRunner(store, provider, provider, NewAssembler(nil))

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{Text: "send the weekly report"}}, SourceScheduled,
		Metadata{ScheduledTaskID: "task-1"})

	require.NotNil(t, resp)

	history, err := store.History(context.Background(), "t1", "u1", 0)
	require.NoError(t, err)

	var sawNote bool
	for _, msg := range history {
		if msg.IsAssistant() && strings.HasPrefix(msg.Content, ScheduledNotePrefix) {
			sawNote = true
		}
	}
	assert.True(t, sawNote, "scheduled runs must carry the continuation note")
}

func TestRunner_ToolUsageMilestonesRecorded(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "read_mail"}}, StopReason: "tool_use"},
			{Content: "You have 3 unread messages.", StopReason: "end_turn"},
		},
		StructuredOutputs: map[string]string{
			"turn_plan":      `{"turn_type":"command","tools_needed":true,"required_tool_ids":["read_mail"]}`,
			"final_response": `{"response":"You have 3 unread messages.","delivery_platform":"whatsapp"}`,
		},
	}
	factories := []ToolFactory{
		{Name: "read_mail", New: func(bctx BindContext) tools.Tool {
			return &tools.MockTool{MockName: "read_mail"}
		}},
	}
	runner := NewRunner(store, provider, provider, NewAssembler(factories))

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{Text: "check my mail"}}, SourceWhatsApp, Metadata{})
	require.NotNil(t, resp)

	counters, err := store.Milestones(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters["tool_usage:read_mail"])
}

func TestRunner_PlanStepReportsBecomeMilestones(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{ToolCalls: []llm.ToolCall{{
				ID:    "c1",
				Name:  "report_plan_step",
				Input: map[string]interface{}{"step_number": float64(1), "description": "look up mail", "status": "started"},
			}}, StopReason: "tool_use"},
			{Content: "Done.", StopReason: "end_turn"},
		},
		StructuredOutputs: map[string]string{
			"turn_plan":      `{"turn_type":"conversational","tools_needed":false}`,
			"final_response": `{"response":"Done.","delivery_platform":"whatsapp"}`,
		},
	}
	runner := NewRunner(store, provider, provider, NewAssembler(nil))

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{Text: "check my mail"}}, SourceWhatsApp, Metadata{})
	require.NotNil(t, resp)

	counters, err := store.Milestones(context.Background(), "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counters["plan_steps_started"])
}

func TestRunner_FileInputsBecomePlaceholders(t *testing.T) {
	store := newTestStore(t)
	provider := &llm.MockProvider{
		Responses: []*llm.Response{
			{Content: "Got your file.", StopReason: "end_turn"},
		},
		StructuredOutputs: map[string]string{
			"turn_plan":      `{"turn_type":"conversational","tools_needed":false}`,
			"final_response": `{"response":"Got your file.","delivery_platform":"whatsapp"}`,
		},
	}
	runner := NewRunner(store, provider, provider, NewAssembler(nil))

	resp := runner.Run(context.Background(), UserContext{TenantID: "t1", UserID: "u1"},
		[]Input{{
			Text:  "summarize this",
			Files: []FileLink{{URL: "https://files.example/report.pdf", FileType: "application/pdf", FileName: "report.pdf"}},
		}}, SourceWhatsApp, Metadata{})

	require.NotNil(t, resp)

	history, err := store.History(context.Background(), "t1", "u1", 0)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Contains(t, history[0].Content, "[FILE:report.pdf]")
}
