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
	"regexp"
	"strconv"
	"strings"
)

// Error response builders. These construct rich, actionable error results
// that give the model detailed context and recovery guidance. Classification
// in FromError is purely heuristic string matching: a best-effort triage
// layer, not a guarantee of perfect categorization.

// AuthExpired builds an expired-authentication error result.
func AuthExpired(operation, integration, technicalDetails string) *Result {
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:         CategoryAuthExpired,
			Severity:         SeverityHigh,
			Message:          fmt.Sprintf("Your %s authentication has expired. Please reconnect your account.", integration),
			Operation:        operation,
			TechnicalDetails: technicalDetails,
			Retryable:        false,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:  "ask_user",
					Description: fmt.Sprintf("Inform the user that their %s connection has expired and guide them to reconnect", integration),
					Parameters:  map[string]interface{}{"integration": integration, "action": "reconnect"},
				},
			},
			AffectedIntegrations: []string{integration},
		},
	}
}

// AuthInvalid builds an invalid-authentication error result.
func AuthInvalid(operation, integration, technicalDetails string) *Result {
	integrationMsg := ""
	var affected []string
	if integration != "" {
		integrationMsg = " for " + integration
		affected = []string{integration}
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:         CategoryAuthInvalid,
			Severity:         SeverityHigh,
			Message:          fmt.Sprintf("Invalid authentication credentials%s. Please verify your account connection.", integrationMsg),
			Operation:        operation,
			TechnicalDetails: technicalDetails,
			Retryable:        false,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:  "ask_user",
					Description: fmt.Sprintf("Ask the user to reconnect%s with valid credentials", integrationMsg),
				},
			},
			AffectedIntegrations: affected,
		},
	}
}

// PermissionDenied builds a permission-denied error result.
func PermissionDenied(operation, resource, requiredPermission, technicalDetails string) *Result {
	resourceMsg := ""
	if resource != "" {
		resourceMsg = " to access " + resource
	}
	permMsg := ""
	if requiredPermission != "" {
		permMsg = " The required permission is: " + requiredPermission + "."
	}
	actions := []RecoveryAction{
		{
			ActionType:  "ask_user",
			Description: fmt.Sprintf("Inform the user they need additional permissions%s", resourceMsg),
		},
		{
			ActionType:  "use_alternative",
			Description: "Try an alternative approach that doesn't require this permission",
		},
	}
	if requiredPermission != "" {
		actions[0].Parameters = map[string]interface{}{"required_permission": requiredPermission}
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:         CategoryPermissionDenied,
			Severity:         SeverityHigh,
			Message:          fmt.Sprintf("Permission denied%s.%s", resourceMsg, permMsg),
			Operation:        operation,
			TechnicalDetails: technicalDetails,
			ResourceID:       resource,
			Retryable:        false,
			RecoveryActions:  actions,
		},
	}
}

// NotFound builds a not-found error result with verification hints.
func NotFound(operation, resourceType, resourceID string, suggestions []string, technicalDetails string) *Result {
	actions := []RecoveryAction{
		{
			ActionType:  "verify_resource",
			Description: fmt.Sprintf("Verify the %s identifier '%s' is correct", resourceType, resourceID),
			Parameters:  map[string]interface{}{"resource_type": resourceType, "resource_id": resourceID},
		},
		{
			ActionType:  "list_resources",
			Description: fmt.Sprintf("List available %ss to find the correct one", resourceType),
		},
	}
	if len(suggestions) > 0 {
		actions = append(actions, RecoveryAction{
			ActionType:  "try_alternatives",
			Description: fmt.Sprintf("Try these similar %ss instead", resourceType),
			Parameters:  map[string]interface{}{"suggestions": suggestions},
		})
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:         CategoryNotFound,
			Severity:         SeverityMedium,
			Message:          fmt.Sprintf("The %s '%s' was not found.", resourceType, resourceID),
			Operation:        operation,
			TechnicalDetails: technicalDetails,
			ResourceID:       resourceID,
			Retryable:        false,
			RecoveryActions:  actions,
		},
	}
}

// RateLimit builds a rate-limit error result. retryAfter is in seconds.
func RateLimit(operation string, retryAfter int, integration, technicalDetails string) *Result {
	integrationMsg := ""
	var affected []string
	if integration != "" {
		integrationMsg = " for " + integration
		affected = []string{integration}
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:          CategoryRateLimit,
			Severity:          SeverityMedium,
			Message:           fmt.Sprintf("Rate limit exceeded%s. Please wait %d seconds before retrying.", integrationMsg, retryAfter),
			Operation:         operation,
			TechnicalDetails:  technicalDetails,
			Retryable:         true,
			RetryAfterSeconds: retryAfter,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:            "retry_with_delay",
					Description:           fmt.Sprintf("Retry automatically after %d seconds", retryAfter),
					EstimatedDelaySeconds: retryAfter,
				},
				{
					ActionType:  "inform_user",
					Description: fmt.Sprintf("Inform user about rate limit and %ds delay", retryAfter),
				},
			},
			AffectedIntegrations: affected,
		},
	}
}

// NetworkError builds a transient network error result.
func NetworkError(operation, integration, technicalDetails string) *Result {
	integrationMsg := ""
	var affected []string
	if integration != "" {
		integrationMsg = " with " + integration
		affected = []string{integration}
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:          CategoryNetworkError,
			Severity:          SeverityMedium,
			Message:           fmt.Sprintf("Network error occurred while communicating%s. This may be a temporary issue.", integrationMsg),
			Operation:         operation,
			TechnicalDetails:  technicalDetails,
			Retryable:         true,
			RetryAfterSeconds: 5,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:            "retry",
					Description:           "Retry the operation (network issues are often temporary)",
					EstimatedDelaySeconds: 5,
				},
				{
					ActionType:  "inform_user",
					Description: "If retries fail, inform the user about connectivity issues",
				},
			},
			AffectedIntegrations: affected,
		},
	}
}

// ServiceUnavailable builds a service-outage error result.
func ServiceUnavailable(operation, service, technicalDetails string) *Result {
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:          CategoryServiceUnavailable,
			Severity:          SeverityHigh,
			Message:           fmt.Sprintf("The %s service is currently unavailable. This may be a temporary outage.", service),
			Operation:         operation,
			TechnicalDetails:  technicalDetails,
			Retryable:         true,
			RetryAfterSeconds: 30,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:            "retry_later",
					Description:           fmt.Sprintf("Retry after %s service is back online", service),
					EstimatedDelaySeconds: 30,
				},
				{
					ActionType:  "inform_user",
					Description: fmt.Sprintf("Inform user that %s is temporarily unavailable", service),
				},
				{
					ActionType:  "use_alternative",
					Description: fmt.Sprintf("If available, use an alternative to %s", service),
				},
			},
			AffectedIntegrations: []string{service},
		},
	}
}

// InvalidParameter builds a validation error for a malformed parameter.
// Parameter errors are never auto-retried by the router; the model is
// expected to self-correct the value and issue a fresh tool call.
func InvalidParameter(operation, paramName string, paramValue interface{}, expectedFormat, validationError string) *Result {
	msg := fmt.Sprintf("Parameter '%s' has invalid value. Expected format: %s", paramName, expectedFormat)
	if validationError != "" {
		msg += ". Validation error: " + validationError
	}
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:   CategoryInvalidParameter,
			Severity:   SeverityLow,
			Message:    msg,
			Operation:  operation,
			Retryable:  false,
			Parameters: map[string]string{paramName: fmt.Sprintf("%v", paramValue)},
			RecoveryActions: []RecoveryAction{
				{
					ActionType:  "fix_parameter",
					Description: fmt.Sprintf("Correct the '%s' parameter to match format: %s", paramName, expectedFormat),
					Parameters: map[string]interface{}{
						"param_name":      paramName,
						"expected_format": expectedFormat,
						"current_value":   fmt.Sprintf("%v", paramValue),
					},
				},
				{
					ActionType:  "ask_user",
					Description: fmt.Sprintf("Ask the user to provide a valid %s", paramName),
				},
			},
		},
	}
}

// MissingParameter builds a validation error for an absent required
// parameter. Like InvalidParameter, never auto-retried by the router.
func MissingParameter(operation, paramName string) *Result {
	return &Result{
		Status: StatusError,
		ErrorDetails: &ErrorDetails{
			Category:  CategoryMissingParameter,
			Severity:  SeverityMedium,
			Message:   fmt.Sprintf("Required parameter '%s' is missing.", paramName),
			Operation: operation,
			Retryable: false,
			RecoveryActions: []RecoveryAction{
				{
					ActionType:  "ask_user",
					Description: fmt.Sprintf("Ask the user to provide the missing '%s' parameter", paramName),
					Parameters:  map[string]interface{}{"param_name": paramName},
				},
			},
		},
	}
}

var retryAfterPattern = regexp.MustCompile(`retry.*?(\d+)`)

// FromError categorizes an arbitrary error into a structured error result.
// Matching is case-insensitive substring triage over the error text; when
// nothing matches, the error is treated as retryable unknown_error as a
// safe fallback. extra may carry "resource_type" and "resource_id" hints
// used by the not-found branch.
func FromError(operation string, err error, integration string, extra map[string]string) *Result {
	errStr := err.Error()
	errLower := strings.ToLower(errStr)
	technical := fmt.Sprintf("%T: %s", err, errStr)

	switch {
	case strings.Contains(errStr, "401") || strings.Contains(errLower, "unauthorized"):
		if strings.Contains(errLower, "expired") || strings.Contains(errLower, "token") {
			if integration == "" {
				integration = "service"
			}
			return AuthExpired(operation, integration, technical)
		}
		return AuthInvalid(operation, integration, technical)

	case strings.Contains(errStr, "403") || strings.Contains(errLower, "forbidden") || strings.Contains(errLower, "permission"):
		return PermissionDenied(operation, "", "", technical)

	case strings.Contains(errStr, "404") || strings.Contains(errLower, "not found"):
		resourceType := "resource"
		resourceID := "unknown"
		if extra != nil {
			if v := extra["resource_type"]; v != "" {
				resourceType = v
			}
			if v := extra["resource_id"]; v != "" {
				resourceID = v
			}
		}
		return NotFound(operation, resourceType, resourceID, nil, technical)

	case strings.Contains(errStr, "429") || strings.Contains(errLower, "rate limit") || strings.Contains(errLower, "too many requests"):
		retryAfter := 60
		if m := retryAfterPattern.FindStringSubmatch(errLower); m != nil {
			if parsed, perr := strconv.Atoi(m[1]); perr == nil {
				retryAfter = parsed
			}
		}
		return RateLimit(operation, retryAfter, integration, technical)

	case strings.Contains(errLower, "timeout") || strings.Contains(errLower, "connection") || strings.Contains(errLower, "network"):
		return NetworkError(operation, integration, technical)

	case strings.Contains(errStr, "503") || strings.Contains(errLower, "service unavailable") || strings.Contains(errLower, "temporarily unavailable"):
		service := integration
		if service == "" {
			service = "external service"
		}
		return ServiceUnavailable(operation, service, technical)

	default:
		var affected []string
		if integration != "" {
			affected = []string{integration}
		}
		return &Result{
			Status: StatusError,
			ErrorDetails: &ErrorDetails{
				Category:          CategoryUnknownError,
				Severity:          SeverityMedium,
				Message:           fmt.Sprintf("An unexpected error occurred during %s: %s", operation, errStr),
				Operation:         operation,
				TechnicalDetails:  technical,
				Retryable:         true, // safe default
				RetryAfterSeconds: 5,
				RecoveryActions: []RecoveryAction{
					{
						ActionType:            "retry",
						Description:           "Retry the operation in case this was a transient error",
						EstimatedDelaySeconds: 5,
					},
					{
						ActionType:  "report_error",
						Description: "If the error persists, report it to the development team",
					},
				},
				AffectedIntegrations: affected,
			},
		}
	}
}
