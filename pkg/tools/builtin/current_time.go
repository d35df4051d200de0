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
// Package builtin provides the always-available tools every agent run
// carries regardless of the user's connected integrations: time lookup,
// plan progress reporting, missing-parameter probes, and the per-platform
// reply tools.
package builtin

import (
	"context"
	"time"

	"github.com/teradata-labs/praxos/pkg/tools"
)

// CurrentTimeTool reports the current time, optionally in a requested
// IANA timezone.
type CurrentTimeTool struct{}

// NewCurrentTimeTool creates a new current time tool.
func NewCurrentTimeTool() *CurrentTimeTool {
	return &CurrentTimeTool{}
}

func (t *CurrentTimeTool) Name() string {
	return "current_time"
}

func (t *CurrentTimeTool) Integration() string {
	return ""
}

func (t *CurrentTimeTool) Description() string {
	return "Returns the current date and time. Use when the user's request depends on the present moment (scheduling, relative dates, deadlines). Accepts an optional IANA timezone name such as 'America/New_York'."
}

func (t *CurrentTimeTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"Get the current date and time",
		map[string]*tools.JSONSchema{
			"timezone": tools.NewStringSchema("IANA timezone name (e.g. 'Europe/London'). Defaults to UTC."),
		},
		[]string{},
	)
}

func (t *CurrentTimeTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	loc := time.UTC
	if tz, ok := params["timezone"].(string); ok && tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return tools.InvalidParameter(t.Name(), "timezone", tz, "IANA timezone name", err.Error()), nil
		}
		loc = parsed
	}

	now := time.Now().In(loc)
	return tools.Success(map[string]interface{}{
		"iso8601":  now.Format(time.RFC3339),
		"unix":     now.Unix(),
		"timezone": loc.String(),
		"weekday":  now.Weekday().String(),
	}), nil
}

var _ tools.Tool = (*CurrentTimeTool)(nil)
