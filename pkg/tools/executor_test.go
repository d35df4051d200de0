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
package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(tools ...Tool) *Executor {
	registry := NewRegistry()
	for _, tool := range tools {
		registry.Register(tool)
	}
	return NewExecutor(registry)
}

func TestExecutor_Success(t *testing.T) {
	tool := &MockTool{MockName: "echo"}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "echo", map[string]interface{}{"input": "hi"})

	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, "mock result", result.Data)
	assert.Equal(t, 1, tool.Calls())
	assert.Equal(t, "hi", tool.LastParams["input"])
}

func TestExecutor_UnknownTool(t *testing.T) {
	executor := newTestExecutor()

	result, err := executor.Execute(context.Background(), "missing", nil)

	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestExecutor_GoErrorBecomesResult(t *testing.T) {
	tool := &MockTool{
		MockName: "flaky",
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*Result, error) {
			return nil, errors.New("connection refused")
		},
	}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "flaky", nil)

	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, CategoryNetworkError, result.ErrorDetails.Category)
	assert.True(t, result.ErrorDetails.Retryable)
}

func TestExecutor_PanicIsolation(t *testing.T) {
	tool := &MockTool{
		MockName: "bomb",
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*Result, error) {
			panic("boom")
		},
	}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "bomb", nil)

	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	require.NotNil(t, result.ErrorDetails)
	assert.Contains(t, result.ErrorDetails.TechnicalDetails, "boom")
}

func TestExecutor_NilResultBecomesError(t *testing.T) {
	tool := &MockTool{
		MockName: "silent",
		MockExecute: func(ctx context.Context, params map[string]interface{}) (*Result, error) {
			return nil, nil
		},
	}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "silent", nil)

	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestExecutor_MissingRequiredParam(t *testing.T) {
	tool := &MockTool{
		MockName: "strict",
		MockSchema: NewObjectSchema("Strict schema", map[string]*JSONSchema{
			"recipient": NewStringSchema("Recipient address"),
		}, []string{"recipient"}),
	}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "strict", map[string]interface{}{})

	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, CategoryMissingParameter, result.ErrorDetails.Category)
	assert.Contains(t, result.ErrorDetails.Message, "recipient")
	assert.Equal(t, 0, tool.Calls(), "tool must not run when validation fails")
}

func TestExecutor_InvalidParamType(t *testing.T) {
	tool := &MockTool{
		MockName: "typed",
		MockSchema: NewObjectSchema("Typed schema", map[string]*JSONSchema{
			"count": NewNumberSchema("A count"),
		}, []string{"count"}),
	}
	executor := newTestExecutor(tool)

	result, err := executor.Execute(context.Background(), "typed", map[string]interface{}{"count": "three"})

	require.NoError(t, err)
	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, CategoryInvalidParameter, result.ErrorDetails.Category)
	assert.False(t, result.ErrorDetails.Retryable)
	assert.Equal(t, 0, tool.Calls())
}

func TestExecutor_RecordsTiming(t *testing.T) {
	executor := newTestExecutor(&MockTool{MockName: "timed"})

	result, err := executor.Execute(context.Background(), "timed", nil)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ExecutionTimeMs, int64(0))
}
