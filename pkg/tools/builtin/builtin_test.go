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
package builtin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/praxos/pkg/tools"
)

func TestCurrentTimeTool(t *testing.T) {
	tool := NewCurrentTimeTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	data := result.Data.(map[string]interface{})
	assert.Equal(t, "UTC", data["timezone"])
	assert.NotEmpty(t, data["iso8601"])
	assert.NotEmpty(t, data["weekday"])
}

func TestCurrentTimeTool_Timezone(t *testing.T) {
	tool := NewCurrentTimeTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{"timezone": "Europe/Berlin"})
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	data := result.Data.(map[string]interface{})
	assert.Equal(t, "Europe/Berlin", data["timezone"])
}

func TestCurrentTimeTool_BadTimezone(t *testing.T) {
	tool := NewCurrentTimeTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{"timezone": "Mars/Olympus"})
	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, tools.CategoryInvalidParameter, result.ErrorDetails.Category)
}

func TestAskUserTool(t *testing.T) {
	tool := NewAskUserForMissingParamsTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"question":       "Who should receive the email, and what is the subject?",
		"missing_params": []interface{}{"recipient", "subject"},
	})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusNeedUserInput, result.Status)
	assert.Contains(t, result.UserMessage, "Who should receive")
	assert.Equal(t, "[recipient, subject]", result.Metadata["missing_params"])
}

func TestAskUserTool_RequiresQuestion(t *testing.T) {
	tool := NewAskUserForMissingParamsTool()

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, tools.CategoryMissingParameter, result.ErrorDetails.Category)
}

func TestReportPlanStepTool(t *testing.T) {
	var gotStep int
	var gotStatus string
	recorder := StepRecorderFunc(func(ctx context.Context, stepNumber int, description, status string) error {
		gotStep = stepNumber
		gotStatus = status
		return nil
	})
	tool := NewReportPlanStepTool(recorder)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"step_number": float64(2),
		"description": "fetch the data",
		"status":      "started",
	})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, 2, gotStep)
	assert.Equal(t, "started", gotStatus)
}

func TestReportPlanStepTool_NilRecorder(t *testing.T) {
	tool := NewReportPlanStepTool(nil)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"step_number": float64(1),
		"description": "anything",
	})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestReportPlanStepTool_RecorderFailure(t *testing.T) {
	recorder := StepRecorderFunc(func(ctx context.Context, stepNumber int, description, status string) error {
		return errors.New("storage offline")
	})
	tool := NewReportPlanStepTool(recorder)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"step_number": float64(1),
		"description": "anything",
	})
	require.NoError(t, err)
	assert.Equal(t, tools.StatusError, result.Status)
}

// recordingMessenger captures sent messages.
type recordingMessenger struct {
	platform string
	sent     []string
	links    [][]string
	err      error
}

func (m *recordingMessenger) Platform() string { return m.platform }

func (m *recordingMessenger) Send(_ context.Context, text string, fileLinks []string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, text)
	m.links = append(m.links, fileLinks)
	return nil
}

func TestReplyTool_Send(t *testing.T) {
	messenger := &recordingMessenger{platform: "telegram"}
	tool := NewReplyTool(messenger)

	assert.Equal(t, ReplyToolPrefix+"telegram", tool.Name())

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"message":    "Here you go!",
		"file_links": []interface{}{"https://files.example/a.pdf"},
	})
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, []string{"Here you go!"}, messenger.sent)
	assert.Equal(t, []string{"https://files.example/a.pdf"}, messenger.links[0])
}

func TestReplyTool_MissingMessage(t *testing.T) {
	tool := NewReplyTool(&recordingMessenger{platform: "telegram"})

	result, err := tool.Execute(context.Background(), map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, tools.CategoryMissingParameter, result.ErrorDetails.Category)
}

func TestReplyTool_TransportFailure(t *testing.T) {
	messenger := &recordingMessenger{platform: "telegram", err: errors.New("connection refused")}
	tool := NewReplyTool(messenger)

	result, err := tool.Execute(context.Background(), map[string]interface{}{"message": "hi"})
	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, tools.CategoryNetworkError, result.ErrorDetails.Category)
	assert.True(t, result.ErrorDetails.Retryable)
}
