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
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/observability"
)

// Executor executes tools with schema validation, panic isolation, and
// timing. A tool failure never surfaces as a Go error to the caller: every
// failure mode is folded into a structured error Result so the agent graph
// can route on it. The returned error is reserved for infrastructure
// problems (unknown tool name).
type Executor struct {
	registry *Registry
	tracer   observability.Tracer
}

// NewExecutor creates a new tool executor.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		tracer:   observability.NewNoOpTracer(),
	}
}

// SetTracer configures span export for tool executions.
func (e *Executor) SetTracer(tracer observability.Tracer) {
	if tracer != nil {
		e.tracer = tracer
	}
}

// Execute executes a tool by name with the given parameters.
func (e *Executor) Execute(ctx context.Context, toolName string, params map[string]interface{}) (*Result, error) {
	tool, ok := e.registry.Get(toolName)
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", toolName)
	}

	ctx, span := e.tracer.StartSpan(ctx, "tool.execute",
		observability.WithAttribute("tool", toolName))
	defer e.tracer.EndSpan(span)

	if params == nil {
		params = map[string]interface{}{}
	}

	if result := validateParams(tool, params); result != nil {
		span.SetAttribute("validation_failed", true)
		return result, nil
	}

	start := time.Now()
	result := e.executeGuarded(ctx, tool, params)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if result.IsError() && result.ErrorDetails != nil {
		span.RecordError(fmt.Errorf("%s: %s", result.ErrorDetails.Category, result.ErrorDetails.Message))
		log.Warn("tool execution failed",
			zap.String("tool", toolName),
			zap.String("category", string(result.ErrorDetails.Category)),
			zap.Bool("retryable", result.ErrorDetails.Retryable),
			zap.Int64("duration_ms", result.ExecutionTimeMs))
	} else {
		log.Debug("tool executed",
			zap.String("tool", toolName),
			zap.String("status", string(result.Status)),
			zap.Int64("duration_ms", result.ExecutionTimeMs))
	}

	e.tracer.RecordMetric("tool.execution_ms", float64(result.ExecutionTimeMs),
		map[string]string{"tool": toolName, "status": string(result.Status)})

	return result, nil
}

// executeGuarded invokes the tool, converting panics and Go errors into
// structured error results.
func (e *Executor) executeGuarded(ctx context.Context, tool Tool, params map[string]interface{}) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("tool panicked",
				zap.String("tool", tool.Name()),
				zap.Any("panic", r))
			result = FromError(tool.Name(), fmt.Errorf("panic: %v", r), tool.Integration(), nil)
		}
	}()

	result, err := tool.Execute(ctx, params)
	if err != nil {
		return FromError(tool.Name(), err, tool.Integration(), nil)
	}
	if result == nil {
		return FromError(tool.Name(), fmt.Errorf("tool returned no result"), tool.Integration(), nil)
	}
	return result
}

// validateParams checks params against the tool's input schema. Returns nil
// when valid, or a structured parameter error result.
func validateParams(tool Tool, params map[string]interface{}) *Result {
	schema := tool.InputSchema()
	if schema == nil {
		return nil
	}

	schemaJSON, err := schema.ToJSON()
	if err != nil {
		return nil
	}

	validation, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(params),
	)
	if err != nil {
		// Schema itself is malformed; let the tool decide what to do.
		log.Warn("schema validation skipped",
			zap.String("tool", tool.Name()),
			zap.Error(err))
		return nil
	}
	if validation.Valid() {
		return nil
	}

	for _, desc := range validation.Errors() {
		if desc.Type() == "required" {
			if missing, ok := desc.Details()["property"].(string); ok {
				return MissingParameter(tool.Name(), missing)
			}
		}
	}

	first := validation.Errors()[0]
	field := strings.TrimPrefix(first.Field(), "(root).")
	expected := ""
	if prop, ok := schema.Properties[field]; ok {
		expected = prop.Type
	}
	return InvalidParameter(tool.Name(), field, params[field], expected, first.Description())
}
