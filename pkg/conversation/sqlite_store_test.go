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
package conversation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_AppendAndHistory(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	msgs := []llm.Message{
		llm.NewUserMessage("first"),
		llm.NewAssistantMessage("second", nil),
		llm.NewUserMessage("third"),
	}
	require.NoError(t, store.AppendMessages(ctx, "t1", "conv1", msgs))

	history, err := store.History(ctx, "t1", "conv1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestSQLiteStore_HistoryLimitKeepsMostRecent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.AppendMessages(ctx, "t1", "conv1",
			[]llm.Message{llm.NewUserMessage(fmt.Sprintf("msg-%d", i))}))
	}

	history, err := store.History(ctx, "t1", "conv1", 3)
	require.NoError(t, err)
	require.Len(t, history, 3)
	// Most recent three, oldest first.
	assert.Equal(t, "msg-7", history[0].Content)
	assert.Equal(t, "msg-9", history[2].Content)
}

func TestSQLiteStore_TenantIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessages(ctx, "t1", "conv1",
		[]llm.Message{llm.NewUserMessage("tenant one secret")}))
	require.NoError(t, store.AppendMessages(ctx, "t2", "conv1",
		[]llm.Message{llm.NewUserMessage("tenant two secret")}))

	h1, err := store.History(ctx, "t1", "conv1", 0)
	require.NoError(t, err)
	require.Len(t, h1, 1)
	assert.Equal(t, "tenant one secret", h1[0].Content)

	h2, err := store.History(ctx, "t2", "conv1", 0)
	require.NoError(t, err)
	require.Len(t, h2, 1)
	assert.Equal(t, "tenant two secret", h2[0].Content)
}

func TestSQLiteStore_ConversationIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessages(ctx, "t1", "conv-a",
		[]llm.Message{llm.NewUserMessage("a")}))
	require.NoError(t, store.AppendMessages(ctx, "t1", "conv-b",
		[]llm.Message{llm.NewUserMessage("b")}))

	history, err := store.History(ctx, "t1", "conv-a", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "a", history[0].Content)
}

func TestSQLiteStore_ToolMessagesRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	result := tools.Success("payload")
	msgs := []llm.Message{
		llm.NewAssistantMessage("", []llm.ToolCall{{ID: "c1", Name: "read_mail", Input: map[string]interface{}{"folder": "inbox"}}}),
		llm.NewToolResultMessage("c1", "read_mail", `{"status":"success"}`, result),
	}
	require.NoError(t, store.AppendMessages(ctx, "t1", "conv1", msgs))

	history, err := store.History(ctx, "t1", "conv1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	require.Len(t, history[0].ToolCalls, 1)
	assert.Equal(t, "read_mail", history[0].ToolCalls[0].Name)
	assert.Equal(t, "inbox", history[0].ToolCalls[0].Input["folder"])

	assert.Equal(t, "c1", history[1].ToolUseID)
	require.NotNil(t, history[1].ToolResult)
	assert.True(t, history[1].ToolResult.Succeeded())
}

func TestSQLiteStore_EmptyAppendIsNoop(t *testing.T) {
	store := newStore(t)
	require.NoError(t, store.AppendMessages(context.Background(), "t1", "conv1", nil))
}

func TestSQLiteStore_ExecutionRecords(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	rec := &ExecutionRecord{
		TenantID:       "t1",
		ConversationID: "conv1",
		Source:         "whatsapp",
		Request:        "do the thing",
		Response:       "done",
		Status:         "completed",
		ToolCalls:      2,
		DurationMs:     1200,
		StartedAt:      time.Now().Add(-2 * time.Second),
		CompletedAt:    time.Now(),
	}
	require.NoError(t, store.RecordExecution(ctx, rec))
	assert.NotEmpty(t, rec.ID)

	records, err := store.Executions(ctx, "t1", "conv1", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "do the thing", records[0].Request)
	assert.Equal(t, "completed", records[0].Status)
	assert.Equal(t, 2, records[0].ToolCalls)
}

func TestSQLiteStore_MilestoneCounters(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	count, err := store.IncrementMilestone(ctx, "t1", "u1", "tool_usage:read_mail", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = store.IncrementMilestone(ctx, "t1", "u1", "tool_usage:read_mail", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	_, err = store.IncrementMilestone(ctx, "t1", "u1", "plan_steps_started", 1)
	require.NoError(t, err)

	counters, err := store.Milestones(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counters["tool_usage:read_mail"])
	assert.Equal(t, int64(1), counters["plan_steps_started"])

	// Counters are scoped per tenant and user.
	other, err := store.Milestones(ctx, "t2", "u1")
	require.NoError(t, err)
	assert.Empty(t, other)
	other, err = store.Milestones(ctx, "t1", "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMilestoneRecorder_RecordsStepStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	recorder := NewMilestoneRecorder(store, "t1", "u1")
	require.NoError(t, recorder.RecordStep(ctx, 1, "fetch the data", "started"))
	require.NoError(t, recorder.RecordStep(ctx, 1, "fetch the data", "completed"))
	require.NoError(t, recorder.RecordStep(ctx, 2, "send the email", ""))

	counters, err := store.Milestones(ctx, "t1", "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters["plan_steps_started"])
	assert.Equal(t, int64(1), counters["plan_steps_completed"])
}
