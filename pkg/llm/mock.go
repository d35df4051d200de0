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
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/teradata-labs/praxos/pkg/tools"
)

// MockProvider is a scripted Provider for testing. Each Chat call returns
// the next queued response; when the script runs out it returns the last
// response again. Thread-safe.
type MockProvider struct {
	mu        sync.Mutex
	Responses []*Response

	// StructuredOutputs holds JSON payloads returned by ChatStructured,
	// keyed by the structured output name.
	StructuredOutputs map[string]string

	// StructuredErr, when set, is returned by every ChatStructured call.
	StructuredErr error

	// ChatFunc, when set, overrides the scripted responses entirely.
	ChatFunc func(ctx context.Context, messages []Message, toolset []tools.Tool) (*Response, error)

	CallCount    int
	LastMessages []Message
	LastToolset  []tools.Tool
}

// Name returns the provider name.
func (m *MockProvider) Name() string { return "mock" }

// Model returns the model identifier.
func (m *MockProvider) Model() string { return "mock-model" }

// Chat returns the next scripted response.
func (m *MockProvider) Chat(ctx context.Context, messages []Message, toolset []tools.Tool) (*Response, error) {
	m.mu.Lock()
	idx := m.CallCount
	m.CallCount++
	m.LastMessages = messages
	m.LastToolset = toolset
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, toolset)
	}

	if len(m.Responses) == 0 {
		return &Response{Content: "mock response", StopReason: "end_turn"}, nil
	}
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// ChatStructured unmarshals the scripted payload for name into out.
func (m *MockProvider) ChatStructured(ctx context.Context, messages []Message, name string, schema *tools.JSONSchema, out interface{}) error {
	m.mu.Lock()
	m.CallCount++
	m.LastMessages = messages
	m.mu.Unlock()

	if m.StructuredErr != nil {
		return m.StructuredErr
	}
	payload, ok := m.StructuredOutputs[name]
	if !ok {
		return fmt.Errorf("no structured output scripted for %q", name)
	}
	return json.Unmarshal([]byte(payload), out)
}

// Calls returns how many provider calls ran.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

var _ Provider = (*MockProvider)(nil)
var _ StructuredProvider = (*MockProvider)(nil)
