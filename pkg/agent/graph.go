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

	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/observability"
	"github.com/teradata-labs/praxos/pkg/tools"
)

// Graph wires the nodes into the execution loop for one run: model call,
// router, action, obtain-data, finalize. One entry point (the model call),
// one terminal node (finalize).
type Graph struct {
	executor *tools.Executor
	tracer   observability.Tracer
}

// NewGraph creates a graph over the given executor.
func NewGraph(executor *tools.Executor) *Graph {
	return &Graph{
		executor: executor,
		tracer:   observability.NewNoOpTracer(),
	}
}

// SetTracer configures span export for graph runs.
func (g *Graph) SetTracer(tracer observability.Tracer) {
	if tracer != nil {
		g.tracer = tracer
	}
}

// Run executes the graph to completion and returns the terminal response.
// The hard step cap is a last-resort safety net against unforeseen cycles,
// independent of the two semantic iteration counters.
func (g *Graph) Run(ctx context.Context, state *RunState, toolset []tools.Tool) (*FinalResponse, error) {
	if state.FinalResponse != nil {
		return state.FinalResponse, nil
	}

	ctx, span := g.tracer.StartSpan(ctx, "agent.run",
		observability.WithAttribute("source", state.Metadata.Source),
		observability.WithAttribute("conversation_id", state.Metadata.ConversationID))
	defer g.tracer.EndSpan(span)

	// Entry: runs seeded with a trailing assistant message (the scheduled
	// note) route immediately; everything else starts at the model call.
	node := DecideAgent
	if last := state.LastMessage(); last != nil && last.IsAssistant() {
		node = Route(state)
	}

	for step := 0; step < state.Config.MaxSteps; step++ {
		g.tracer.RecordEvent(ctx, "graph.node", map[string]interface{}{
			"node": string(node),
			"step": step,
		})

		switch node {
		case DecideAgent:
			if err := CallModel(ctx, state, toolset); err != nil {
				span.RecordError(err)
				return nil, err
			}
			node = Route(state)

		case DecideAction:
			ExecuteAction(ctx, state, g.executor)
			node = Route(state)

		case DecideObtainData:
			node = ObtainData(state)

		case DecideFinalize:
			state.FinalResponse = Finalize(ctx, state)
			span.SetAttribute("steps", step)
			return state.FinalResponse, nil
		}
	}

	// Step cap exhausted without a terminal decision.
	log.Warn("graph step cap reached, forcing finalize",
		zap.Int("max_steps", state.Config.MaxSteps),
		zap.String("conversation_id", state.Metadata.ConversationID))
	span.SetAttribute("step_cap_hit", true)
	state.FinalResponse = Finalize(ctx, state)
	return state.FinalResponse, nil
}
