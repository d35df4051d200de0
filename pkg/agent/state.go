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
	"sync"

	"github.com/teradata-labs/praxos/pkg/llm"
)

// Default iteration caps.
const (
	// DefaultMaxToolIters bounds router-driven retries of failed tool calls.
	DefaultMaxToolIters = 3

	// DefaultMaxDataIters bounds missing-parameter probe loops.
	DefaultMaxDataIters = 2

	// DefaultMaxSteps is the hard step cap on graph execution, a last-resort
	// safety net independent of the two semantic counters.
	DefaultMaxSteps = 24
)

// RunConfig is the immutable per-run configuration.
type RunConfig struct {
	// Provider is the bound LLM-with-tools callable
	Provider llm.Provider

	// Structured is the bound structured-output callable, used by the
	// planner and the finalize fallback
	Structured llm.StructuredProvider

	// SystemPrompt for every model call in this run
	SystemPrompt string

	// InitialMessageCount snapshots the history length at run start, used
	// to compute which messages are new to this run
	InitialMessageCount int

	// Plan is the planner's natural-language plan for this turn
	Plan string

	// RequiredToolIDs is the planner's narrowed tool set. Nil means the
	// full catalog was loaded.
	RequiredToolIDs []string

	// MinimalTools is false when the planner explicitly narrowed the
	// toolset, true when the full catalog was loaded as a fallback
	MinimalTools bool

	// Source is the inbound channel
	Source string

	// InputText is the original user input for this run
	InputText string

	// MaxToolIters caps router-driven tool retries (default 3)
	MaxToolIters int

	// MaxDataIters caps missing-parameter probes (default 2)
	MaxDataIters int

	// MaxSteps caps total graph steps (default 24)
	MaxSteps int
}

// RequiresTool reports whether the planner listed the named tool.
func (c *RunConfig) RequiresTool(name string) bool {
	for _, id := range c.RequiredToolIDs {
		if id == name {
			return true
		}
	}
	return false
}

// RunState is the single mutable object threaded through the graph for one
// execution. It is exclusively owned by the run's goroutine; no other
// goroutine may read or mutate it.
type RunState struct {
	// Messages is the run's working memory, append-only
	Messages []llm.Message

	// UserContext is the authenticated identity
	UserContext UserContext

	// Metadata carries routing info
	Metadata Metadata

	// FinalResponse is the terminal result, set by the finalize node
	FinalResponse *FinalResponse

	// ToolIterCounter counts router-driven tool-error retries.
	// Monotonically non-decreasing within a run.
	ToolIterCounter int

	// DataIterCounter counts missing-parameter probes.
	// Monotonically non-decreasing within a run.
	DataIterCounter int

	// ParamProbeDone guards against immediately re-entering the
	// missing-parameter loop. Set by the obtain-data node, cleared by the
	// action node once the probe tool actually ran.
	ParamProbeDone bool

	// Config is the immutable per-run configuration
	Config RunConfig

	// Media is the per-run media reference bus
	Media *MediaBus

	// background collects fire-and-forget task handles (milestone
	// tracking) awaited at run teardown
	background sync.WaitGroup
}

// NewRunState creates a run state over the loaded history.
func NewRunState(history []llm.Message, userCtx UserContext, metadata Metadata, config RunConfig) *RunState {
	if config.MaxToolIters <= 0 {
		config.MaxToolIters = DefaultMaxToolIters
	}
	if config.MaxDataIters <= 0 {
		config.MaxDataIters = DefaultMaxDataIters
	}
	if config.MaxSteps <= 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	config.InitialMessageCount = len(history)

	return &RunState{
		Messages:    history,
		UserContext: userCtx,
		Metadata:    metadata,
		Config:      config,
		Media:       NewMediaBus(),
	}
}

// Append appends a message to the run's working memory.
func (s *RunState) Append(msg llm.Message) {
	s.Messages = append(s.Messages, msg)
}

// LastMessage returns the most recent message, or nil when empty.
func (s *RunState) LastMessage() *llm.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return &s.Messages[len(s.Messages)-1]
}

// NewMessages returns the messages produced during this run.
func (s *RunState) NewMessages() []llm.Message {
	if s.Config.InitialMessageCount >= len(s.Messages) {
		return nil
	}
	return s.Messages[s.Config.InitialMessageCount:]
}

// LatestAssistantWithToolCalls returns the most recent assistant message
// carrying tool calls, or nil.
func (s *RunState) LatestAssistantWithToolCalls() *llm.Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].IsAssistant() && s.Messages[i].HasToolCalls() {
			return &s.Messages[i]
		}
	}
	return nil
}

// PendingToolCalls returns the calls of the latest tool-calling assistant
// message that do not yet have a successful result.
func (s *RunState) PendingToolCalls() []llm.ToolCall {
	msg := s.LatestAssistantWithToolCalls()
	if msg == nil {
		return nil
	}
	var pending []llm.ToolCall
	for _, call := range msg.ToolCalls {
		if result := s.ToolResultFor(call.ID); result != nil && !result.ToolResult.IsError() {
			continue
		}
		pending = append(pending, call)
	}
	return pending
}

// ToolResultFor returns the tool result message answering the given call
// id, or nil when the call has not been executed yet.
func (s *RunState) ToolResultFor(callID string) *llm.Message {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == llm.RoleTool && s.Messages[i].ToolUseID == callID {
			return &s.Messages[i]
		}
	}
	return nil
}

// Go runs fn in the background and registers it for teardown await.
func (s *RunState) Go(fn func()) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		fn()
	}()
}

// WaitBackground blocks until all background tasks complete.
func (s *RunState) WaitBackground() {
	s.background.Wait()
}

// MediaRef is a reference to a media object produced or received during a
// run, keyed by the placeholder that stands in for it in message text.
type MediaRef struct {
	Placeholder string
	URL         string
	MediaType   string
	FileName    string
}

// MediaBus holds per-run media references. Explicitly created per run so
// concurrent runs never share media state.
type MediaBus struct {
	mu   sync.Mutex
	refs map[string]MediaRef
}

// NewMediaBus creates an empty media bus.
func NewMediaBus() *MediaBus {
	return &MediaBus{refs: make(map[string]MediaRef)}
}

// Put registers a media reference under its placeholder.
func (b *MediaBus) Put(ref MediaRef) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refs[ref.Placeholder] = ref
}

// Get looks up a media reference by placeholder.
func (b *MediaBus) Get(placeholder string) (MediaRef, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ref, ok := b.refs[placeholder]
	return ref, ok
}

// All returns every registered reference.
func (b *MediaBus) All() []MediaRef {
	b.mu.Lock()
	defer b.mu.Unlock()
	refs := make([]MediaRef, 0, len(b.refs))
	for _, ref := range b.refs {
		refs = append(refs, ref)
	}
	return refs
}
