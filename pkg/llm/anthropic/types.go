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
package anthropic

import "encoding/json"

// MessagesRequest represents a request to the Anthropic Messages API.
type MessagesRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature,omitempty"`
	Tools       []CacheableTool  `json:"tools,omitempty"`
	ToolChoice  *ToolChoice      `json:"tool_choice,omitempty"`
	System      []TextBlockParam `json:"system,omitempty"`
}

// MessagesResponse represents a response from the Anthropic Messages API.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// Message represents a single message in the conversation.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents a content block in a message.
// Uses custom MarshalJSON to ensure tool_use blocks always include "input": {}.
type ContentBlock struct {
	Type      string                 `json:"type"`
	Text      string                 `json:"text,omitempty"`
	ID        string                 `json:"id,omitempty"`
	Name      string                 `json:"name,omitempty"`
	Input     map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                 `json:"tool_use_id,omitempty"`
	Content   string                 `json:"content,omitempty"`
	IsError   bool                   `json:"is_error,omitempty"`
}

// MarshalJSON implements custom JSON marshaling for ContentBlock.
// Anthropic's API requires tool_use blocks to always have "input" present
// (even if empty {}). Go's omitempty treats empty maps the same as nil, so
// we handle this explicitly.
func (cb ContentBlock) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"type": cb.Type,
	}
	if cb.Text != "" {
		m["text"] = cb.Text
	}
	if cb.ID != "" {
		m["id"] = cb.ID
	}
	if cb.Name != "" {
		m["name"] = cb.Name
	}
	if cb.Type == "tool_use" {
		if len(cb.Input) == 0 {
			m["input"] = map[string]interface{}{}
		} else {
			m["input"] = cb.Input
		}
	} else if len(cb.Input) > 0 {
		m["input"] = cb.Input
	}
	if cb.ToolUseID != "" {
		m["tool_use_id"] = cb.ToolUseID
	}
	if cb.Content != "" {
		m["content"] = cb.Content
	}
	if cb.IsError {
		m["is_error"] = true
	}
	return json.Marshal(m)
}

// TextBlockParam is a system prompt block, optionally cacheable.
type TextBlockParam struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// CacheControl marks a prompt caching breakpoint.
type CacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

// CacheableTool represents a tool definition for Claude, optionally
// carrying a cache breakpoint.
type CacheableTool struct {
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	InputSchema  InputSchema   `json:"input_schema"`
	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ToolChoice forces the model to call a specific tool.
type ToolChoice struct {
	Type string `json:"type"`           // "auto", "any", "tool"
	Name string `json:"name,omitempty"` // required when Type is "tool"
}

// InputSchema represents the JSON schema for tool inputs.
type InputSchema struct {
	Type       string                            `json:"type"`
	Properties map[string]map[string]interface{} `json:"properties,omitempty"`
	Required   []string                          `json:"required,omitempty"`
}

// Usage represents token usage information.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
}
