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
// Package anthropic implements the llm.Provider interface against the
// Anthropic Messages API over plain HTTP.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultEndpoint is the default Anthropic API endpoint
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default LLM temperature
	DefaultTemperature = 1.0
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
)

// Client implements the llm.Provider interface for Anthropic's Claude API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	rateLimiter *llm.RateLimiter
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey            string
	Model             string // Default: claude-sonnet-4-5-20250929
	Endpoint          string // Default: https://api.anthropic.com/v1/messages
	Timeout           time.Duration
	MaxTokens         int     // Default: 4096
	Temperature       float64 // Default: 1.0
	RateLimiterConfig llm.RateLimiterConfig
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}

	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.Enabled {
		rateLimiter = llm.NewRateLimiter(config.RateLimiterConfig)
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		rateLimiter: rateLimiter,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []llm.Message, toolset []tools.Tool) (*llm.Response, error) {
	systemPrompt, apiMessages := convertMessages(messages)

	req := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if len(systemPrompt) > 0 {
		req.System = systemPrompt
	}
	if apiTools := convertTools(toolset); len(apiTools) > 0 {
		req.Tools = apiTools
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("API call failed: %w", err)
	}

	return c.convertResponse(resp), nil
}

// ChatStructured forces Claude to emit a value matching the given schema by
// presenting it as a single mandatory tool, then unmarshals the tool input
// into out.
func (c *Client) ChatStructured(ctx context.Context, messages []llm.Message, name string, schema *tools.JSONSchema, out interface{}) error {
	systemPrompt, apiMessages := convertMessages(messages)

	req := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Tools: []CacheableTool{
			{
				Name:        name,
				Description: "Record the structured output of this step.",
				InputSchema: InputSchema{
					Type:       schema.Type,
					Properties: convertSchemaProperties(schema.Properties),
					Required:   schema.Required,
				},
			},
		},
		ToolChoice: &ToolChoice{Type: "tool", Name: name},
	}
	if len(systemPrompt) > 0 {
		req.System = systemPrompt
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return fmt.Errorf("API call failed: %w", err)
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == name {
			raw, err := json.Marshal(block.Input)
			if err != nil {
				return fmt.Errorf("failed to re-marshal structured output: %w", err)
			}
			return json.Unmarshal(raw, out)
		}
	}
	return fmt.Errorf("no structured output block %q in response", name)
}

// convertMessages converts runtime messages to Anthropic format.
// Returns the system prompt blocks (with cache_control on the last block)
// and the API messages. System messages are extracted and combined, as the
// Messages API requires them in a separate "system" field.
func convertMessages(messages []llm.Message) ([]TextBlockParam, []Message) {
	var systemPrompts []string
	var apiMessages []Message

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}

		case llm.RoleUser:
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{Type: "text", Text: msg.Content},
				},
			})

		case llm.RoleAssistant:
			var content []ContentBlock
			if msg.Content != "" {
				content = append(content, ContentBlock{
					Type: "text",
					Text: msg.Content,
				})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Input
				if input == nil {
					input = map[string]interface{}{}
				}
				content = append(content, ContentBlock{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: input,
				})
			}
			if len(content) > 0 {
				apiMessages = append(apiMessages, Message{
					Role:    "assistant",
					Content: content,
				})
			}

		case llm.RoleTool:
			apiMessages = append(apiMessages, Message{
				Role: "user",
				Content: []ContentBlock{
					{
						Type:      "tool_result",
						ToolUseID: msg.ToolUseID,
						Content:   msg.Content,
						IsError:   msg.ToolResult.IsError(),
					},
				},
			})
		}
	}

	// Combine all system prompts and wrap in a TextBlockParam with
	// cache_control. Cached tokens don't count against the ITPM rate limit.
	if len(systemPrompts) == 0 {
		return nil, apiMessages
	}
	systemText := ""
	for i, p := range systemPrompts {
		if i > 0 {
			systemText += "\n\n"
		}
		systemText += p
	}
	return []TextBlockParam{
		{
			Type:         "text",
			Text:         systemText,
			CacheControl: &CacheControl{Type: "ephemeral"},
		},
	}, apiMessages
}

// convertTools converts the toolset to Anthropic format. The last tool in
// the list is marked with cache_control: ephemeral so the entire tool list
// is cached.
func convertTools(toolset []tools.Tool) []CacheableTool {
	var apiTools []CacheableTool

	for _, tool := range toolset {
		apiTool := CacheableTool{
			Name:        tool.Name(),
			Description: tool.Description(),
		}
		if schema := tool.InputSchema(); schema != nil {
			apiTool.InputSchema = InputSchema{
				Type:       schema.Type,
				Properties: convertSchemaProperties(schema.Properties),
				Required:   schema.Required,
			}
		}
		apiTools = append(apiTools, apiTool)
	}

	if len(apiTools) > 0 {
		apiTools[len(apiTools)-1].CacheControl = &CacheControl{Type: "ephemeral"}
	}
	return apiTools
}

// convertSchemaProperties converts JSONSchema properties to Anthropic format.
func convertSchemaProperties(props map[string]*tools.JSONSchema) map[string]map[string]interface{} {
	if props == nil {
		return nil
	}

	result := make(map[string]map[string]interface{})
	for key, schema := range props {
		propMap := make(map[string]interface{})
		propMap["type"] = schema.Type

		if schema.Description != "" {
			propMap["description"] = schema.Description
		}
		if schema.Enum != nil {
			propMap["enum"] = schema.Enum
		}
		if schema.Default != nil {
			propMap["default"] = schema.Default
		}
		if schema.Properties != nil {
			propMap["properties"] = convertSchemaProperties(schema.Properties)
		}
		if schema.Items != nil {
			propMap["items"] = map[string]interface{}{
				"type": schema.Items.Type,
			}
		}

		result[key] = propMap
	}
	return result
}

// convertResponse converts an Anthropic response to runtime format.
func (c *Client) convertResponse(resp *MessagesResponse) *llm.Response {
	out := &llm.Response{
		StopReason: resp.StopReason,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CostUSD:      calculateCost(resp.Usage),
		},
		Metadata: map[string]interface{}{
			"model":       resp.Model,
			"stop_reason": resp.StopReason,
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	return out
}

// calculateCost estimates the cost in USD based on token usage.
// Claude Sonnet pricing: $3/M input, $15/M output, cache write at 1.25x
// input, cache read at 0.10x input.
func calculateCost(usage Usage) float64 {
	inputCost := float64(usage.InputTokens) * 3.0 / 1_000_000
	outputCost := float64(usage.OutputTokens) * 15.0 / 1_000_000
	cacheWriteCost := float64(usage.CacheCreationInputTokens) * 3.75 / 1_000_000
	cacheReadCost := float64(usage.CacheReadInputTokens) * 0.30 / 1_000_000
	return inputCost + outputCost + cacheWriteCost + cacheReadCost
}

// callAPI makes the HTTP request to Anthropic's API.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// The lambda creates a fresh HTTP request on each attempt so the request
	// body can be re-read on a 429 retry. A 429 response is converted to an
	// error so the rate limiter's backoff retry logic fires automatically.
	buildAPIReq := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-api-key", c.apiKey)
		r.Header.Set("anthropic-version", "2023-06-01")
		r.Header.Set("anthropic-beta", "prompt-caching-2024-07-31")
		return r, nil
	}

	var httpResp *http.Response
	if c.rateLimiter != nil {
		result, err := c.rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
			req, err := buildAPIReq(ctx)
			if err != nil {
				return nil, err
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				respBody, _ := io.ReadAll(resp.Body)
				_ = resp.Body.Close()
				return nil, fmt.Errorf("API error (status 429): %s", string(respBody))
			}
			return resp, nil
		})
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
		httpResp = result.(*http.Response)
	} else {
		req, err := buildAPIReq(ctx)
		if err != nil {
			return nil, err
		}
		httpResp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &resp, nil
}

// Ensure Client implements the provider interfaces.
var _ llm.Provider = (*Client)(nil)
var _ llm.StructuredProvider = (*Client)(nil)
