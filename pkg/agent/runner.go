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
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/conversation"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/observability"
	"github.com/teradata-labs/praxos/pkg/tools"
	"github.com/teradata-labs/praxos/pkg/tools/builtin"
)

// Input is one inbound payload of a run.
type Input struct {
	// Text is the user's message text
	Text string

	// Files references files attached to the message
	Files []FileLink
}

// Runner is the top-level library entry: it loads history, plans, assembles
// the toolset, executes the graph, and persists the run's new messages.
// One Runner serves many concurrent runs; per-run state is never shared.
type Runner struct {
	store      conversation.Store
	provider   llm.Provider
	structured llm.StructuredProvider
	assembler  *Assembler
	planner    *Planner
	tracer     observability.Tracer

	messengers map[string]builtin.Messenger
	recorder   builtin.StepRecorder

	historyLimit       int
	historyTokenBudget int
	maxToolIters       int
	maxDataIters       int
	maxSteps           int
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithTracer configures span export for runs.
func WithTracer(tracer observability.Tracer) RunnerOption {
	return func(r *Runner) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// WithMessenger registers an outbound messenger for its platform.
func WithMessenger(m builtin.Messenger) RunnerOption {
	return func(r *Runner) { r.messengers[m.Platform()] = m }
}

// WithStepRecorder configures plan milestone recording.
func WithStepRecorder(recorder builtin.StepRecorder) RunnerOption {
	return func(r *Runner) { r.recorder = recorder }
}

// WithHistoryLimit caps how many messages are loaded per run.
func WithHistoryLimit(n int) RunnerOption {
	return func(r *Runner) { r.historyLimit = n }
}

// WithHistoryTokenBudget caps the token estimate of the loaded history.
func WithHistoryTokenBudget(n int) RunnerOption {
	return func(r *Runner) { r.historyTokenBudget = n }
}

// WithMaxToolIters overrides the tool retry cap.
func WithMaxToolIters(n int) RunnerOption {
	return func(r *Runner) { r.maxToolIters = n }
}

// WithMaxDataIters overrides the missing-parameter probe cap.
func WithMaxDataIters(n int) RunnerOption {
	return func(r *Runner) { r.maxDataIters = n }
}

// WithMaxSteps overrides the hard graph step cap.
func WithMaxSteps(n int) RunnerOption {
	return func(r *Runner) { r.maxSteps = n }
}

// NewRunner creates a runner. structured may be nil when the provider does
// not support structured output; planning is then skipped and finalize
// falls back to the last assistant message.
func NewRunner(store conversation.Store, provider llm.Provider, structured llm.StructuredProvider, assembler *Assembler, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:              store,
		provider:           provider,
		structured:         structured,
		assembler:          assembler,
		planner:            NewPlanner(structured),
		tracer:             observability.NewNoOpTracer(),
		messengers:         make(map[string]builtin.Messenger),
		historyLimit:       100,
		historyTokenBudget: 60000,
		maxToolIters:       DefaultMaxToolIters,
		maxDataIters:       DefaultMaxDataIters,
		maxSteps:           DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.planner.SetTracer(r.tracer)
	return r
}

// Run executes one agent run for an inbound event and always returns a
// FinalResponse: any unrecoverable failure resolves to a generic apologetic
// response with technical detail preserved in logs and the audit trail.
func (r *Runner) Run(ctx context.Context, userCtx UserContext, inputs []Input, source string, metadata Metadata) (resp *FinalResponse) {
	started := time.Now()
	if metadata.Source == "" {
		metadata.Source = source
	}
	if metadata.ConversationID == "" {
		metadata.ConversationID = userCtx.UserID
	}
	if metadata.TraceID == "" {
		metadata.TraceID = uuid.New().String()
	}

	var state *RunState
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("run panicked",
				zap.Any("panic", rec),
				zap.String("conversation_id", metadata.ConversationID))
			resp = apologeticResponse(source)
		}
		r.finishRun(userCtx, metadata, source, inputs, state, resp, started)
	}()

	ctx, span := r.tracer.StartSpan(ctx, "runner.run",
		observability.WithAttribute("source", source),
		observability.WithAttribute("tenant_id", userCtx.TenantID))
	defer r.tracer.EndSpan(span)

	history, err := r.store.History(ctx, userCtx.TenantID, metadata.ConversationID, r.historyLimit)
	if err != nil {
		// A fresh conversation is better than a failed run.
		log.Warn("history load failed, starting empty", zap.Error(err))
		history = nil
	}
	history = GetTokenCounter().TrimToBudget(history, r.historyTokenBudget)

	bctx := BindContext{
		UserContext: userCtx,
		Metadata:    metadata,
		Messenger:   r.messengers[interactiveDelivery(source)],
	}

	inputText := r.seedInputText(inputs)

	// Plan before state creation so the system prompt can carry the plan.
	plan := r.planner.Plan(ctx, append(history, llm.NewUserMessage(inputText)), r.assembler.CatalogIDs(bctx))

	config := RunConfig{
		Provider:     r.provider,
		Structured:   r.structured,
		Source:       source,
		InputText:    inputText,
		MinimalTools: true,
		MaxToolIters: r.maxToolIters,
		MaxDataIters: r.maxDataIters,
		MaxSteps:     r.maxSteps,
	}
	if plan != nil && plan.ToolsNeeded && len(plan.RequiredToolIDs) > 0 {
		config.RequiredToolIDs = plan.RequiredToolIDs
		config.MinimalTools = false
		config.Plan = plan.Plan
	}
	config.SystemPrompt = BuildSystemPrompt(userCtx, metadata, config.Plan, time.Now())

	state = NewRunState(history, userCtx, metadata, config)
	bctx.Recorder = r.backgroundRecorder(state)
	r.seedMessages(state, inputs, inputText, source)

	toolset, err := r.assembler.Assemble(bctx, config.RequiredToolIDs)
	if err != nil {
		span.RecordError(err)
		log.Error("toolset assembly failed", zap.Error(err))
		return apologeticResponse(source)
	}

	executor := tools.NewExecutor(registryFor(toolset))
	executor.SetTracer(r.tracer)
	graph := NewGraph(executor)
	graph.SetTracer(r.tracer)

	resp, err = graph.Run(ctx, state, toolset)
	if err != nil {
		span.RecordError(err)
		log.Error("graph run failed", zap.Error(err))
		return apologeticResponse(source)
	}
	return resp
}

// seedInputText joins the inputs into the run's original input text.
func (r *Runner) seedInputText(inputs []Input) string {
	var parts []string
	for _, in := range inputs {
		if in.Text != "" {
			parts = append(parts, in.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// seedMessages appends the inbound user message(s) and, for time-triggered
// sources, the scheduled continuation note.
func (r *Runner) seedMessages(state *RunState, inputs []Input, inputText string, source string) {
	content := inputText
	for _, in := range inputs {
		for _, file := range in.Files {
			placeholder := fmt.Sprintf("[FILE:%s]", file.FileName)
			state.Media.Put(MediaRef{
				Placeholder: placeholder,
				URL:         file.URL,
				MediaType:   file.FileType,
				FileName:    file.FileName,
			})
			content += "\n" + placeholder
		}
	}
	state.Append(llm.NewUserMessage(content))

	switch source {
	case SourceScheduled, SourceRecurring, SourceTriggered:
		state.Append(llm.NewAssistantMessage(ScheduledNote(source), nil))
	}
}

// backgroundRecorder builds the per-run step recorder: a store-backed
// milestone recorder chained with the optionally configured one. Reports
// run as background tasks collected by the run and awaited at teardown.
// Failures are logged, never surfaced to the model.
func (r *Runner) backgroundRecorder(state *RunState) builtin.StepRecorder {
	milestones := conversation.NewMilestoneRecorder(r.store, state.UserContext.TenantID, state.UserContext.UserID)
	inner := r.recorder
	return builtin.StepRecorderFunc(func(ctx context.Context, stepNumber int, description, status string) error {
		state.Go(func() {
			ctx := context.WithoutCancel(ctx)
			if err := milestones.RecordStep(ctx, stepNumber, description, status); err != nil {
				log.Warn("milestone record failed",
					zap.Int("step", stepNumber),
					zap.Error(err))
			}
			if inner == nil {
				return
			}
			if err := inner.RecordStep(ctx, stepNumber, description, status); err != nil {
				log.Warn("step record failed",
					zap.Int("step", stepNumber),
					zap.Error(err))
			}
		})
		return nil
	})
}

// finishRun awaits background tasks, persists the run's new messages, and
// records the execution summary.
func (r *Runner) finishRun(userCtx UserContext, metadata Metadata, source string, inputs []Input, state *RunState, resp *FinalResponse, started time.Time) {
	ctx := context.Background()

	status := "completed"
	failureReason := ""
	responseText := ""
	toolCalls := 0

	if state != nil {
		state.WaitBackground()
		if err := r.store.AppendMessages(ctx, userCtx.TenantID, metadata.ConversationID, state.NewMessages()); err != nil {
			log.Error("failed to persist run messages", zap.Error(err))
		}
		for _, msg := range state.NewMessages() {
			if msg.Role != llm.RoleTool {
				continue
			}
			toolCalls++
			if msg.ToolName == "" {
				continue
			}
			// Best-effort usage counters; a failed increment never fails the run.
			if _, err := r.store.IncrementMilestone(ctx, userCtx.TenantID, userCtx.UserID, "tool_usage:"+msg.ToolName, 1); err != nil {
				log.Warn("tool usage milestone failed",
					zap.String("tool", msg.ToolName),
					zap.Error(err))
			}
		}
	}
	if resp != nil {
		responseText = resp.Response
		if resp.ExecutionNotes != "" && responseText == "" {
			responseText = resp.ExecutionNotes
		}
	} else {
		status = "failed"
		failureReason = "no final response produced"
	}

	rec := &conversation.ExecutionRecord{
		TenantID:       userCtx.TenantID,
		ConversationID: metadata.ConversationID,
		Source:         source,
		Request:        r.seedInputText(inputs),
		Response:       responseText,
		Status:         status,
		ToolCalls:      toolCalls,
		DurationMs:     time.Since(started).Milliseconds(),
		StartedAt:      started,
		CompletedAt:    time.Now(),
		FailureReason:  failureReason,
	}
	if err := r.store.RecordExecution(ctx, rec); err != nil {
		log.Error("failed to record execution", zap.Error(err))
	}
}

// registryFor builds a registry over the assembled toolset.
func registryFor(toolset []tools.Tool) *tools.Registry {
	registry := tools.NewRegistry()
	for _, tool := range toolset {
		registry.Register(tool)
	}
	return registry
}
