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
package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/teradata-labs/praxos/pkg/tools"
)

// AskUserToolName is the identifier of the missing-parameter probe tool.
// The router treats its presence among the required tools as the signal
// that the missing-parameter probe path is enabled.
const AskUserToolName = "ask_user_for_missing_params"

// AskUserForMissingParamsTool lets the model request information the user
// has not supplied.
type AskUserForMissingParamsTool struct{}

// NewAskUserForMissingParamsTool creates the missing-parameter probe tool.
func NewAskUserForMissingParamsTool() *AskUserForMissingParamsTool {
	return &AskUserForMissingParamsTool{}
}

func (t *AskUserForMissingParamsTool) Name() string {
	return AskUserToolName
}

func (t *AskUserForMissingParamsTool) Integration() string {
	return ""
}

func (t *AskUserForMissingParamsTool) Description() string {
	return "Asks the user for required information that is missing from their request. Use only when the task cannot proceed without it. List every missing item in one call rather than asking piecemeal."
}

func (t *AskUserForMissingParamsTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"Ask the user for missing required parameters",
		map[string]*tools.JSONSchema{
			"question": tools.NewStringSchema("The question to ask the user, phrased conversationally"),
			"missing_params": tools.NewArraySchema(
				"Names of the parameters that are missing",
				tools.NewStringSchema("Parameter name"),
			),
		},
		[]string{"question"},
	)
}

func (t *AskUserForMissingParamsTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	question, _ := params["question"].(string)
	if question == "" {
		return tools.MissingParameter(t.Name(), "question"), nil
	}

	var missing []string
	if raw, ok := params["missing_params"].([]interface{}); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				missing = append(missing, s)
			}
		}
	}

	result := tools.NeedUserInput(question)
	if len(missing) > 0 {
		result.Metadata = map[string]interface{}{
			"missing_params": fmt.Sprintf("[%s]", strings.Join(missing, ", ")),
		}
	}
	return result, nil
}

var _ tools.Tool = (*AskUserForMissingParamsTool)(nil)
