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

	"github.com/teradata-labs/praxos/pkg/tools"
)

// StepRecorder receives plan progress reports. Implementations persist the
// milestone or forward it to the user's progress surface. Recording runs in
// the background; the agent never blocks on it.
type StepRecorder interface {
	RecordStep(ctx context.Context, stepNumber int, description, status string) error
}

// StepRecorderFunc adapts a function to the StepRecorder interface.
type StepRecorderFunc func(ctx context.Context, stepNumber int, description, status string) error

func (f StepRecorderFunc) RecordStep(ctx context.Context, stepNumber int, description, status string) error {
	return f(ctx, stepNumber, description, status)
}

// ReportPlanStepTool lets the model announce progress through a multi-step
// plan. Each call marks one step as started or completed.
type ReportPlanStepTool struct {
	recorder StepRecorder
}

// NewReportPlanStepTool creates a plan step reporting tool. recorder may be
// nil, in which case reports succeed without side effects.
func NewReportPlanStepTool(recorder StepRecorder) *ReportPlanStepTool {
	return &ReportPlanStepTool{recorder: recorder}
}

func (t *ReportPlanStepTool) Name() string {
	return "report_plan_step"
}

func (t *ReportPlanStepTool) Integration() string {
	return ""
}

func (t *ReportPlanStepTool) Description() string {
	return "Reports progress on the current execution plan. Call this when starting or completing a plan step so the user can follow long-running work. Not a substitute for replying to the user."
}

func (t *ReportPlanStepTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"Report progress on a plan step",
		map[string]*tools.JSONSchema{
			"step_number": tools.NewNumberSchema("1-based index of the step in the current plan"),
			"description": tools.NewStringSchema("Short description of the step"),
			"status": tools.NewStringSchema("Step status").
				WithEnum("started", "completed", "skipped").
				WithDefault("completed"),
		},
		[]string{"step_number", "description"},
	)
}

func (t *ReportPlanStepTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	stepNumber := 0
	if n, ok := params["step_number"].(float64); ok {
		stepNumber = int(n)
	}
	description, _ := params["description"].(string)
	status, _ := params["status"].(string)
	if status == "" {
		status = "completed"
	}

	if t.recorder != nil {
		if err := t.recorder.RecordStep(ctx, stepNumber, description, status); err != nil {
			return tools.FromError(t.Name(), err, "", nil), nil
		}
	}

	return tools.Success(map[string]interface{}{
		"recorded": fmt.Sprintf("step %d %s", stepNumber, status),
	}), nil
}

var _ tools.Tool = (*ReportPlanStepTool)(nil)
