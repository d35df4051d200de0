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
	"fmt"
	"strings"
)

// ErrorCategory classifies a tool failure for routing decisions.
type ErrorCategory string

const (
	CategoryAuthExpired        ErrorCategory = "auth_expired"
	CategoryAuthInvalid        ErrorCategory = "auth_invalid"
	CategoryPermissionDenied   ErrorCategory = "permission_denied"
	CategoryNotFound           ErrorCategory = "not_found"
	CategoryRateLimit          ErrorCategory = "rate_limit"
	CategoryNetworkError       ErrorCategory = "network_error"
	CategoryServiceUnavailable ErrorCategory = "service_unavailable"
	CategoryInvalidParameter   ErrorCategory = "invalid_parameter"
	CategoryMissingParameter   ErrorCategory = "missing_parameter"
	CategoryUnknownError       ErrorCategory = "unknown_error"
)

// ErrorSeverity grades how serious a failure is for the user.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "low"
	SeverityMedium   ErrorSeverity = "medium"
	SeverityHigh     ErrorSeverity = "high"
	SeverityCritical ErrorSeverity = "critical"
)

// RecoveryAction is a structured, non-executed suggestion attached to an
// error. It guides the model's next tool call or user-facing explanation;
// the runtime never performs it automatically.
type RecoveryAction struct {
	// ActionType tags the kind of recovery (retry, ask_user, use_alternative,
	// fix_parameter, verify_resource, list_resources, retry_with_delay,
	// retry_later, inform_user, try_alternatives, report_error).
	ActionType string `json:"action_type"`

	// Description is a human-readable explanation of the suggestion
	Description string `json:"description"`

	// Parameters carries structured hints for the model
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// EstimatedDelaySeconds is the suggested wait before acting, if any
	EstimatedDelaySeconds int `json:"estimated_delay_seconds,omitempty"`
}

// ErrorDetails is the structured error record attached to failed tool
// executions. It gives the router and ultimately the LLM enough structure
// to decide retry vs. surrender vs. ask-user.
type ErrorDetails struct {
	// Category is the error taxonomy entry
	Category ErrorCategory `json:"category"`

	// Severity grades the failure
	Severity ErrorSeverity `json:"severity"`

	// Message is the human-readable error message, safe to relay to users
	Message string `json:"error_message"`

	// TechnicalDetails preserves the raw failure for operator diagnosis
	TechnicalDetails string `json:"technical_details,omitempty"`

	// Operation names the tool operation that failed
	Operation string `json:"operation"`

	// ResourceID identifies the affected resource, if any
	ResourceID string `json:"resource_id,omitempty"`

	// Retryable indicates whether the router may re-attempt the call
	Retryable bool `json:"is_retryable"`

	// RetryAfterSeconds is the suggested backoff before retrying. The
	// router logs and surfaces this but never sleeps; honoring it is the
	// outer scheduler's job.
	RetryAfterSeconds int `json:"retry_after_seconds,omitempty"`

	// RecoveryActions is an ordered list of suggestions, best first
	RecoveryActions []RecoveryAction `json:"recovery_actions,omitempty"`

	// AffectedIntegrations lists the integrations implicated in the failure
	AffectedIntegrations []string `json:"affected_integrations,omitempty"`

	// Parameters captures offending parameter values for parameter errors
	Parameters map[string]string `json:"parameters,omitempty"`
}

// Guidance renders retry guidance for the model: the category, the error
// message, the first recovery action in detail, and up to two alternatives.
// The router appends this text to the conversation before re-entering the
// tool execution cycle.
func (e *ErrorDetails) Guidance() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The last tool execution failed (%s): %s", e.Category, e.Message)

	if len(e.RecoveryActions) > 0 {
		first := e.RecoveryActions[0]
		fmt.Fprintf(&b, "\nSuggested recovery: [%s] %s", first.ActionType, first.Description)
		if len(first.Parameters) > 0 {
			fmt.Fprintf(&b, " (parameters: %v)", first.Parameters)
		}
		if first.EstimatedDelaySeconds > 0 {
			fmt.Fprintf(&b, " (estimated delay: %ds)", first.EstimatedDelaySeconds)
		}

		alternatives := e.RecoveryActions[1:]
		if len(alternatives) > 2 {
			alternatives = alternatives[:2]
		}
		for _, alt := range alternatives {
			fmt.Fprintf(&b, "\nAlternative: [%s] %s", alt.ActionType, alt.Description)
		}
	}

	if e.RetryAfterSeconds > 0 {
		fmt.Fprintf(&b, "\nThe service asked to wait %d seconds before retrying.", e.RetryAfterSeconds)
	}

	b.WriteString("\nAnalyze what failed, adjust the approach, and retry.")
	return b.String()
}

// UserFacing renders a non-retryable error as a message suitable for the
// end user, without technical detail.
func (e *ErrorDetails) UserFacing() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, action := range e.RecoveryActions {
		if action.ActionType == "ask_user" || action.ActionType == "inform_user" {
			fmt.Fprintf(&b, " %s.", action.Description)
			break
		}
	}
	return b.String()
}
