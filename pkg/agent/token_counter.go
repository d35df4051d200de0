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
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teradata-labs/praxos/pkg/llm"
)

// TokenCounter provides token counting for context window management.
// Uses tiktoken with cl100k_base encoding (Claude-compatible approximation).
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

var (
	globalTokenCounter *TokenCounter
	counterInitOnce    sync.Once
)

// GetTokenCounter returns a singleton token counter instance.
func GetTokenCounter() *TokenCounter {
	counterInitOnce.Do(func() {
		tkm, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			// Fallback: char-based estimation when the encoding can't load
			globalTokenCounter = &TokenCounter{encoder: nil}
			return
		}
		globalTokenCounter = &TokenCounter{encoder: tkm}
	})
	return globalTokenCounter
}

// CountTokens returns the token count for a given text.
func (tc *TokenCounter) CountTokens(text string) int {
	if tc.encoder == nil {
		return len(text) / 4
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	return len(tc.encoder.Encode(text, nil, nil))
}

// EstimateMessagesTokens estimates token count for a slice of messages,
// including formatting overhead for message structure.
func (tc *TokenCounter) EstimateMessagesTokens(messages []llm.Message) int {
	total := 0
	for _, msg := range messages {
		// role + formatting overhead
		total += 10
		total += tc.CountTokens(msg.Content)
		if len(msg.ToolCalls) > 0 {
			total += tc.CountTokens(fmt.Sprintf("%v", msg.ToolCalls))
		}
	}
	return total
}

// TrimToBudget drops the oldest messages until the estimate fits budget.
// The trim boundary never splits an assistant message from its tool
// results: trimming continues until the window starts on a user or
// assistant message.
func (tc *TokenCounter) TrimToBudget(messages []llm.Message, budget int) []llm.Message {
	if budget <= 0 {
		return messages
	}
	start := 0
	for start < len(messages) && tc.EstimateMessagesTokens(messages[start:]) > budget {
		start++
	}
	for start > 0 && start < len(messages) && messages[start].Role == llm.RoleTool {
		start++
	}
	return messages[start:]
}
