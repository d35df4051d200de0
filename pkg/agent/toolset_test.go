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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/praxos/pkg/tools"
	"github.com/teradata-labs/praxos/pkg/tools/builtin"
)

func testFactories() []ToolFactory {
	return []ToolFactory{
		{
			Name:        "gmail_send",
			Integration: "gmail",
			New: func(bctx BindContext) tools.Tool {
				return &tools.MockTool{MockName: "gmail_send", MockIntegration: "gmail"}
			},
		},
		{
			Name:        "notion_page",
			Integration: "notion",
			New: func(bctx BindContext) tools.Tool {
				return &tools.MockTool{MockName: "notion_page", MockIntegration: "notion"}
			},
		},
		{
			Name: "web_search",
			New: func(bctx BindContext) tools.Tool {
				return &tools.MockTool{MockName: "web_search"}
			},
		},
	}
}

func TestAssembler_CatalogGatedByIntegrations(t *testing.T) {
	assembler := NewAssembler(testFactories())
	bctx := BindContext{
		UserContext: UserContext{Integrations: []string{"gmail"}},
		Messenger:   &mockMessenger{platform: "whatsapp"},
	}

	ids := assembler.CatalogIDs(bctx)

	assert.Contains(t, ids, "gmail_send")
	assert.Contains(t, ids, "web_search")
	assert.NotContains(t, ids, "notion_page")
	assert.Contains(t, ids, "current_time")
	assert.Contains(t, ids, builtin.AskUserToolName)
	assert.Contains(t, ids, builtin.ReplyToolPrefix+"whatsapp")
}

func TestAssembler_FullCatalogWhenNoNarrowing(t *testing.T) {
	assembler := NewAssembler(testFactories())
	bctx := BindContext{
		UserContext: UserContext{Integrations: []string{"gmail", "notion"}},
	}

	toolset, err := assembler.Assemble(bctx, nil)
	require.NoError(t, err)

	names := toolNames(toolset)
	assert.Contains(t, names, "gmail_send")
	assert.Contains(t, names, "notion_page")
	assert.Contains(t, names, "web_search")
	assert.Contains(t, names, "current_time")
}

func TestAssembler_NarrowedToolset(t *testing.T) {
	assembler := NewAssembler(testFactories())
	bctx := BindContext{
		UserContext: UserContext{Integrations: []string{"gmail", "notion"}},
	}

	toolset, err := assembler.Assemble(bctx, []string{"gmail_send"})
	require.NoError(t, err)

	names := toolNames(toolset)
	assert.Contains(t, names, "gmail_send")
	assert.NotContains(t, names, "notion_page")
	assert.NotContains(t, names, "web_search")
	// Always-available tools are unioned in regardless of narrowing.
	assert.Contains(t, names, "current_time")
}

func TestAssembler_ProbeToolOnlyWhenRequested(t *testing.T) {
	assembler := NewAssembler(testFactories())
	bctx := BindContext{
		UserContext: UserContext{Integrations: []string{"gmail"}},
	}

	without, err := assembler.Assemble(bctx, []string{"gmail_send"})
	require.NoError(t, err)
	assert.NotContains(t, toolNames(without), builtin.AskUserToolName)

	with, err := assembler.Assemble(bctx, []string{"gmail_send", builtin.AskUserToolName})
	require.NoError(t, err)
	assert.Contains(t, toolNames(with), builtin.AskUserToolName)
}

func TestAssembler_IntegrationGateBeatsNarrowing(t *testing.T) {
	assembler := NewAssembler(testFactories())
	bctx := BindContext{UserContext: UserContext{Integrations: nil}}

	toolset, err := assembler.Assemble(bctx, []string{"gmail_send"})
	require.NoError(t, err)

	assert.NotContains(t, toolNames(toolset), "gmail_send")
}

func TestAssembler_DuplicateNamesRejected(t *testing.T) {
	factories := []ToolFactory{
		{Name: "dup", New: func(bctx BindContext) tools.Tool { return &tools.MockTool{MockName: "dup"} }},
		{Name: "dup", New: func(bctx BindContext) tools.Tool { return &tools.MockTool{MockName: "dup"} }},
	}
	assembler := NewAssembler(factories)

	_, err := assembler.Assemble(BindContext{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate tool name")
}

func TestAssembler_ReplyToolOnlyWithMessenger(t *testing.T) {
	assembler := NewAssembler(nil)

	without, err := assembler.Assemble(BindContext{}, nil)
	require.NoError(t, err)
	for _, name := range toolNames(without) {
		assert.NotContains(t, name, builtin.ReplyToolPrefix)
	}

	with, err := assembler.Assemble(BindContext{Messenger: &mockMessenger{platform: "telegram"}}, nil)
	require.NoError(t, err)
	assert.Contains(t, toolNames(with), builtin.ReplyToolPrefix+"telegram")
}

func toolNames(toolset []tools.Tool) []string {
	names := make([]string, 0, len(toolset))
	for _, tool := range toolset {
		names = append(names, tool.Name())
	}
	return names
}
