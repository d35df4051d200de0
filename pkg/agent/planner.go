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
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/observability"
	"github.com/teradata-labs/praxos/pkg/tools"
)

// PlanResult is the planner's narrowing decision for one turn.
type PlanResult struct {
	// TurnType classifies the turn: "command" or "conversational"
	TurnType string `json:"turn_type"`

	// ToolsNeeded reports whether any tooling is required
	ToolsNeeded bool `json:"tools_needed"`

	// RequiredToolIDs is the ordered, minimal set of tool identifiers
	RequiredToolIDs []string `json:"required_tool_ids"`

	// Plan is the step-by-step natural-language plan
	Plan string `json:"plan"`
}

// Planner narrows the tool catalog per turn via a structured model call.
type Planner struct {
	provider llm.StructuredProvider
	tracer   observability.Tracer
}

// NewPlanner creates a planner over the given structured provider.
func NewPlanner(provider llm.StructuredProvider) *Planner {
	return &Planner{
		provider: provider,
		tracer:   observability.NewNoOpTracer(),
	}
}

// SetTracer configures span export for planning calls.
func (p *Planner) SetTracer(tracer observability.Tracer) {
	if tracer != nil {
		p.tracer = tracer
	}
}

// Plan asks the model for the minimal ordered tool set needed this turn.
// Any failure is treated as "no narrowing available" and returns nil: the
// caller loads the full catalog. Tool starvation is worse than abundance.
func (p *Planner) Plan(ctx context.Context, history []llm.Message, catalog []string) (result *PlanResult) {
	ctx, span := p.tracer.StartSpan(ctx, "planner.plan",
		observability.WithAttribute("catalog_size", len(catalog)))
	defer p.tracer.EndSpan(span)

	defer func() {
		if r := recover(); r != nil {
			log.Warn("planner panicked, loading full catalog", zap.Any("panic", r))
			result = nil
		}
	}()

	if p.provider == nil {
		return nil
	}

	instruction := fmt.Sprintf(`Classify the latest user turn and plan tool use.

Available tool identifiers (closed vocabulary, use these exact strings):
%s

Rules:
- Classify the turn as "command" (the user wants something done) or "conversational".
- If tooling is needed, list the minimal ordered set of tool identifiers for THIS turn only.
- Exclude tools whose results are already available earlier in the conversation.
- Include a tool again if the user has since supplied information that was previously missing for it.
- Include %s when the request is missing required information the user must supply.
- Provide a short step-by-step plan when tools are needed.`,
		strings.Join(catalog, ", "), "ask_user_for_missing_params")

	messages := make([]llm.Message, 0, len(history)+1)
	for _, msg := range history {
		msg.Content = replaceMediaPlaceholders(msg.Content)
		messages = append(messages, msg)
	}
	messages = append(messages, llm.NewUserMessage(instruction))

	var plan PlanResult
	if err := p.provider.ChatStructured(ctx, messages, "turn_plan", planSchema(), &plan); err != nil {
		span.RecordError(err)
		log.Warn("planning failed, loading full catalog", zap.Error(err))
		return nil
	}

	// Drop identifiers outside the catalog vocabulary.
	if len(plan.RequiredToolIDs) > 0 {
		known := make(map[string]bool, len(catalog))
		for _, id := range catalog {
			known[id] = true
		}
		kept := plan.RequiredToolIDs[:0]
		for _, id := range plan.RequiredToolIDs {
			if known[id] {
				kept = append(kept, id)
			}
		}
		plan.RequiredToolIDs = kept
	}

	span.SetAttribute("tools_needed", plan.ToolsNeeded)
	span.SetAttribute("required_tools", len(plan.RequiredToolIDs))
	return &plan
}

var (
	dataURIPattern     = regexp.MustCompile(`data:(image|audio|video|application)/[A-Za-z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)
	mediaTypeToMarker  = map[string]string{"image": "[IMAGE]", "audio": "[AUDIO]", "video": "[VIDEO]", "application": "[FILE]"}
	mediaMarkerPattern = regexp.MustCompile(`data:(image|audio|video|application)`)
)

// replaceMediaPlaceholders swaps inline media payloads for short textual
// placeholders before planning, to control token cost and avoid re-sending
// binary payloads.
func replaceMediaPlaceholders(content string) string {
	return dataURIPattern.ReplaceAllStringFunc(content, func(match string) string {
		if m := mediaMarkerPattern.FindStringSubmatch(match); m != nil {
			if marker, ok := mediaTypeToMarker[m[1]]; ok {
				return marker
			}
		}
		return "[FILE]"
	})
}

// planSchema is the structured output schema for planning calls.
func planSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"The tool plan for the current turn",
		map[string]*tools.JSONSchema{
			"turn_type": tools.NewStringSchema("Turn classification").
				WithEnum("command", "conversational"),
			"tools_needed": tools.NewBooleanSchema("Whether any tooling is required"),
			"required_tool_ids": tools.NewArraySchema(
				"Ordered minimal set of tool identifiers from the catalog",
				tools.NewStringSchema("Tool identifier")),
			"plan": tools.NewStringSchema("Step-by-step natural-language plan"),
		},
		[]string{"turn_type", "tools_needed"},
	)
}
