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
// Package tools defines the tool contract for the Praxos agent: the Tool
// interface, the structured execution result envelope, the error taxonomy
// with recovery hints, and the registry/executor that run tool calls on
// behalf of the agent graph.
package tools

import (
	"context"
	"encoding/json"
)

// Tool defines the interface for executable tools in the agent runtime.
// Tools are the agent's only mechanism for acting on the outside world:
// sending messages, reading mail, scheduling tasks. Each tool encapsulates
// a single capability bound to the current request's context.
type Tool interface {
	// Name returns the tool's unique identifier
	Name() string

	// Description returns a human-readable description for LLM context
	Description() string

	// InputSchema returns the JSON Schema for tool parameters
	InputSchema() *JSONSchema

	// Execute runs the tool with given parameters
	Execute(ctx context.Context, params map[string]interface{}) (*Result, error)

	// Integration returns the authenticated integration this tool requires
	// (e.g., "gmail", "notion", "slack"). Empty string means the tool is
	// always available regardless of the user's connected integrations.
	Integration() string
}

// Status is the outcome class of a tool execution.
type Status string

const (
	// StatusSuccess indicates the tool completed and Data is meaningful.
	StatusSuccess Status = "success"
	// StatusError indicates the tool failed and ErrorDetails is populated.
	StatusError Status = "error"
	// StatusPartialSuccess indicates the tool completed some but not all
	// of the requested work; both Data and ErrorDetails may be set.
	StatusPartialSuccess Status = "partial_success"
	// StatusNeedUserInput indicates the tool cannot proceed without more
	// information from the user; UserMessage carries the question.
	StatusNeedUserInput Status = "need_user_input"
)

// Result represents the outcome of a tool execution.
//
// Invariant: for a non-partial status exactly one of Data or ErrorDetails
// is meaningfully populated.
type Result struct {
	// Status classifies the outcome
	Status Status `json:"status"`

	// Data contains the result payload (format varies by tool)
	Data interface{} `json:"result,omitempty"`

	// UserMessage is an optional user-facing message. For error results it
	// must be relayed to the user verbatim; for need_user_input it is the
	// question to ask.
	UserMessage string `json:"user_message,omitempty"`

	// ErrorDetails contains the structured error when Status is error
	ErrorDetails *ErrorDetails `json:"error_details,omitempty"`

	// Metadata contains tool-specific metadata
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// ExecutionTimeMs in milliseconds, set by the executor
	ExecutionTimeMs int64 `json:"execution_time_ms,omitempty"`
}

// Succeeded reports whether the result carries a success status.
func (r *Result) Succeeded() bool {
	return r != nil && r.Status == StatusSuccess
}

// IsError reports whether the result carries an error status.
func (r *Result) IsError() bool {
	return r != nil && r.Status == StatusError
}

// Retryable reports whether the router may re-attempt the failed call.
// Non-error results are never retryable.
func (r *Result) Retryable() bool {
	return r.IsError() && r.ErrorDetails != nil && r.ErrorDetails.Retryable
}

// Success builds a success result with the given payload.
func Success(data interface{}) *Result {
	return &Result{Status: StatusSuccess, Data: data}
}

// SuccessWithMessage builds a success result carrying a user-facing message.
func SuccessWithMessage(data interface{}, userMessage string) *Result {
	return &Result{Status: StatusSuccess, Data: data, UserMessage: userMessage}
}

// NeedUserInput builds a result asking the user for more information.
func NeedUserInput(question string) *Result {
	return &Result{Status: StatusNeedUserInput, UserMessage: question}
}

// JSONSchema represents a JSON Schema for tool parameters.
// This follows the JSON Schema spec for type definitions.
type JSONSchema struct {
	Type        string                 `json:"type"`
	Description string                 `json:"description,omitempty"`
	Properties  map[string]*JSONSchema `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *JSONSchema            `json:"items,omitempty"`
	Enum        []interface{}          `json:"enum,omitempty"`
	Default     interface{}            `json:"default,omitempty"`
	Format      string                 `json:"format,omitempty"`
}

// ToJSON converts the schema to JSON bytes.
func (s *JSONSchema) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// NewObjectSchema creates a new object schema with the given properties.
func NewObjectSchema(description string, properties map[string]*JSONSchema, required []string) *JSONSchema {
	return &JSONSchema{
		Type:        "object",
		Description: description,
		Properties:  properties,
		Required:    required,
	}
}

// NewStringSchema creates a new string schema.
func NewStringSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "string",
		Description: description,
	}
}

// NewNumberSchema creates a new number schema.
func NewNumberSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "number",
		Description: description,
	}
}

// NewBooleanSchema creates a new boolean schema.
func NewBooleanSchema(description string) *JSONSchema {
	return &JSONSchema{
		Type:        "boolean",
		Description: description,
	}
}

// NewArraySchema creates a new array schema.
func NewArraySchema(description string, items *JSONSchema) *JSONSchema {
	return &JSONSchema{
		Type:        "array",
		Description: description,
		Items:       items,
	}
}

// WithEnum adds enum values to the schema.
func (s *JSONSchema) WithEnum(values ...interface{}) *JSONSchema {
	s.Enum = values
	return s
}

// WithDefault adds a default value to the schema.
func (s *JSONSchema) WithDefault(value interface{}) *JSONSchema {
	s.Default = value
	return s
}
