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

	"github.com/teradata-labs/praxos/pkg/tools"
	"github.com/teradata-labs/praxos/pkg/tools/builtin"
)

// BindContext is the request-scoped context tools are bound to at
// assembly time, so tool bodies never re-derive identity.
type BindContext struct {
	UserContext UserContext
	Metadata    Metadata

	// Messenger delivers replies on the run's source channel. Nil for
	// sources with no interactive reply tool.
	Messenger builtin.Messenger

	// Recorder receives plan step reports. May be nil.
	Recorder builtin.StepRecorder
}

// ToolFactory constructs one catalog tool bound to a request context.
type ToolFactory struct {
	// Name is the tool identifier, unique across the catalog
	Name string

	// Integration gates the factory on a connected integration.
	// Empty means always eligible.
	Integration string

	// New builds the bound tool instance
	New func(bctx BindContext) tools.Tool
}

// Assembler instantiates per-request toolsets from the factory catalog.
type Assembler struct {
	factories []ToolFactory
}

// NewAssembler creates an assembler over the given catalog.
func NewAssembler(factories []ToolFactory) *Assembler {
	return &Assembler{factories: factories}
}

// CatalogIDs returns the identifiers the planner may choose from for this
// user: integration-gated catalog names plus the always-available set.
func (a *Assembler) CatalogIDs(bctx BindContext) []string {
	ids := make([]string, 0, len(a.factories)+4)
	for _, f := range a.factories {
		if bctx.UserContext.HasIntegration(f.Integration) {
			ids = append(ids, f.Name)
		}
	}
	ids = append(ids, "current_time", "report_plan_step", builtin.AskUserToolName)
	if bctx.Messenger != nil {
		ids = append(ids, builtin.ReplyToolPrefix+bctx.Messenger.Platform())
	}
	return ids
}

// Assemble instantiates the toolset for one run. A nil or empty required
// set loads the full integration-gated catalog; otherwise only the named
// tools are built. The always-available set is unioned in either way. The
// missing-parameter probe tool is built only when the required set names
// it. Duplicate tool names are an error.
func (a *Assembler) Assemble(bctx BindContext, required []string) ([]tools.Tool, error) {
	wanted := func(string) bool { return true }
	probeRequested := false
	if len(required) > 0 {
		set := make(map[string]bool, len(required))
		for _, id := range required {
			set[id] = true
		}
		probeRequested = set[builtin.AskUserToolName]
		wanted = func(name string) bool { return set[name] }
	}

	var toolset []tools.Tool
	seen := make(map[string]bool)
	add := func(tool tools.Tool) error {
		name := tool.Name()
		if seen[name] {
			return fmt.Errorf("duplicate tool name in toolset: %s", name)
		}
		seen[name] = true
		toolset = append(toolset, tool)
		return nil
	}

	for _, f := range a.factories {
		if !bctx.UserContext.HasIntegration(f.Integration) {
			continue
		}
		if !wanted(f.Name) {
			continue
		}
		if err := add(f.New(bctx)); err != nil {
			return nil, err
		}
	}

	for _, tool := range alwaysAvailable(bctx) {
		if seen[tool.Name()] {
			continue
		}
		if err := add(tool); err != nil {
			return nil, err
		}
	}

	if probeRequested && !seen[builtin.AskUserToolName] {
		if err := add(builtin.NewAskUserForMissingParamsTool()); err != nil {
			return nil, err
		}
	}

	return toolset, nil
}

// alwaysAvailable builds the fixed tool set every run carries: time lookup,
// plan step reporting, and the reply tool for the run's source channel.
func alwaysAvailable(bctx BindContext) []tools.Tool {
	set := []tools.Tool{
		builtin.NewCurrentTimeTool(),
		builtin.NewReportPlanStepTool(bctx.Recorder),
	}
	if bctx.Messenger != nil {
		set = append(set, builtin.NewReplyTool(bctx.Messenger))
	}
	return set
}
