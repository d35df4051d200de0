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
// Package llm defines the provider abstraction for chat models: the
// conversation message types shared across the runtime, the Provider
// interface, and request rate limiting.
package llm

import (
	"context"
	"time"

	"github.com/teradata-labs/praxos/pkg/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation by the LLM.
type ToolCall struct {
	// ID is a unique identifier for this tool call
	ID string `json:"id"`

	// Name is the tool name
	Name string `json:"name"`

	// Input contains the tool parameters
	Input map[string]interface{} `json:"input"`
}

// Message represents a single message in the conversation.
type Message struct {
	// ID is the unique message identifier (from database)
	ID string `json:"id,omitempty"`

	// Role is the message sender (system, user, assistant, tool)
	Role string `json:"role"`

	// Content is the message text
	Content string `json:"content"`

	// ToolCalls contains tool invocations (if role is assistant)
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolUseID is the ID of the tool call this result corresponds to
	// (if role is tool)
	ToolUseID string `json:"tool_use_id,omitempty"`

	// ToolName names the tool that produced this result (if role is tool)
	ToolName string `json:"tool_name,omitempty"`

	// ToolResult contains the structured tool execution result (if role is
	// tool). Content carries its serialized form for the provider.
	ToolResult *tools.Result `json:"tool_result,omitempty"`

	// Timestamp when the message was created
	Timestamp time.Time `json:"timestamp,omitempty"`

	// TokenCount for budget tracking
	TokenCount int `json:"token_count,omitempty"`
}

// IsAssistant reports whether the message was produced by the model.
func (m *Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasToolCalls reports whether the message carries tool invocations.
func (m *Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// IsToolError reports whether the message is a failed tool result.
func (m *Message) IsToolError() bool {
	return m.Role == RoleTool && m.ToolResult.IsError()
}

// NewUserMessage builds a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// NewSystemMessage builds a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content, Timestamp: time.Now()}
}

// NewAssistantMessage builds an assistant message.
func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: toolCalls, Timestamp: time.Now()}
}

// NewToolResultMessage builds a tool result message paired to a tool call.
func NewToolResultMessage(toolUseID, toolName, content string, result *tools.Result) Message {
	return Message{
		Role:       RoleTool,
		ToolUseID:  toolUseID,
		ToolName:   toolName,
		Content:    content,
		ToolResult: result,
		Timestamp:  time.Now(),
	}
}

// Usage tracks LLM token usage and costs.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// Response represents a response from the LLM.
type Response struct {
	// Content is the text response (if no tool calls)
	Content string

	// ToolCalls contains requested tool executions
	ToolCalls []ToolCall

	// StopReason indicates why the LLM stopped
	StopReason string

	// Usage tracks token usage
	Usage Usage

	// Metadata contains provider-specific metadata
	Metadata map[string]interface{}
}

// Provider defines the interface for LLM providers.
// This allows pluggable LLM backends.
type Provider interface {
	// Chat sends a conversation to the LLM and returns the response
	Chat(ctx context.Context, messages []Message, toolset []tools.Tool) (*Response, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}

// StructuredProvider extends Provider with schema-constrained output.
// Providers implement this when they can force the model to emit a value
// matching a JSON schema (used by the planner and the finalizer).
type StructuredProvider interface {
	Provider

	// ChatStructured sends the conversation and unmarshals the model's
	// schema-constrained output into out.
	ChatStructured(ctx context.Context, messages []Message, name string, schema *tools.JSONSchema, out interface{}) error
}
