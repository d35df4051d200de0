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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/praxos/pkg/llm"
)

func TestPlanner_NarrowsToolset(t *testing.T) {
	provider := &llm.MockProvider{
		StructuredOutputs: map[string]string{
			"turn_plan": `{"turn_type":"command","tools_needed":true,"required_tool_ids":["send_email","current_time"],"plan":"1. look up the time\n2. send the email"}`,
		},
	}
	planner := NewPlanner(provider)

	plan := planner.Plan(context.Background(),
		[]llm.Message{llm.NewUserMessage("email bob the current time")},
		[]string{"send_email", "current_time", "read_mail"})

	require.NotNil(t, plan)
	assert.Equal(t, "command", plan.TurnType)
	assert.True(t, plan.ToolsNeeded)
	assert.Equal(t, []string{"send_email", "current_time"}, plan.RequiredToolIDs)
	assert.Contains(t, plan.Plan, "send the email")
}

func TestPlanner_DropsUnknownToolIDs(t *testing.T) {
	provider := &llm.MockProvider{
		StructuredOutputs: map[string]string{
			"turn_plan": `{"turn_type":"command","tools_needed":true,"required_tool_ids":["send_email","hallucinated_tool"]}`,
		},
	}
	planner := NewPlanner(provider)

	plan := planner.Plan(context.Background(),
		[]llm.Message{llm.NewUserMessage("email bob")},
		[]string{"send_email", "read_mail"})

	require.NotNil(t, plan)
	assert.Equal(t, []string{"send_email"}, plan.RequiredToolIDs)
}

func TestPlanner_FailOpenOnError(t *testing.T) {
	provider := &llm.MockProvider{StructuredErr: errors.New("model unavailable")}
	planner := NewPlanner(provider)

	plan := planner.Plan(context.Background(),
		[]llm.Message{llm.NewUserMessage("do something")},
		[]string{"send_email"})

	assert.Nil(t, plan, "planning failure must fall back to the full catalog")
}

func TestPlanner_NilProviderFailsOpen(t *testing.T) {
	planner := NewPlanner(nil)

	plan := planner.Plan(context.Background(),
		[]llm.Message{llm.NewUserMessage("do something")},
		[]string{"send_email"})

	assert.Nil(t, plan)
}

func TestPlanner_ConversationalTurn(t *testing.T) {
	provider := &llm.MockProvider{
		StructuredOutputs: map[string]string{
			"turn_plan": `{"turn_type":"conversational","tools_needed":false}`,
		},
	}
	planner := NewPlanner(provider)

	plan := planner.Plan(context.Background(),
		[]llm.Message{llm.NewUserMessage("how are you?")},
		[]string{"send_email"})

	require.NotNil(t, plan)
	assert.False(t, plan.ToolsNeeded)
	assert.Empty(t, plan.RequiredToolIDs)
}

func TestReplaceMediaPlaceholders(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "image payload",
			in:   "look at data:image/png;base64,iVBORw0KGgoAAAANSUhEUg== please",
			want: "look at [IMAGE] please",
		},
		{
			name: "audio payload",
			in:   "data:audio/mpeg;base64,SUQzBA==",
			want: "[AUDIO]",
		},
		{
			name: "pdf payload",
			in:   "data:application/pdf;base64,JVBERi0=",
			want: "[FILE]",
		},
		{
			name: "plain text untouched",
			in:   "no media here",
			want: "no media here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, replaceMediaPlaceholders(tt.in))
		})
	}
}
