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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError_Classification(t *testing.T) {
	tests := []struct {
		name          string
		err           string
		wantCategory  ErrorCategory
		wantRetryable bool
		wantDelay     int
	}{
		{
			name:          "expired token",
			err:           "401 Unauthorized: token expired",
			wantCategory:  CategoryAuthExpired,
			wantRetryable: false,
		},
		{
			name:          "unauthorized without token hint",
			err:           "401 Unauthorized",
			wantCategory:  CategoryAuthInvalid,
			wantRetryable: false,
		},
		{
			name:          "forbidden",
			err:           "403 Forbidden",
			wantCategory:  CategoryPermissionDenied,
			wantRetryable: false,
		},
		{
			name:          "permission wording",
			err:           "insufficient permission for calendar",
			wantCategory:  CategoryPermissionDenied,
			wantRetryable: false,
		},
		{
			name:          "not found",
			err:           "404 page not found",
			wantCategory:  CategoryNotFound,
			wantRetryable: false,
		},
		{
			name:          "rate limit with retry hint",
			err:           "429 Too Many Requests, retry after 30",
			wantCategory:  CategoryRateLimit,
			wantRetryable: true,
			wantDelay:     30,
		},
		{
			name:          "rate limit without hint",
			err:           "rate limit exceeded",
			wantCategory:  CategoryRateLimit,
			wantRetryable: true,
			wantDelay:     60,
		},
		{
			name:          "timeout",
			err:           "Connection timeout",
			wantCategory:  CategoryNetworkError,
			wantRetryable: true,
			wantDelay:     5,
		},
		{
			name:          "service unavailable",
			err:           "503 Service Unavailable",
			wantCategory:  CategoryServiceUnavailable,
			wantRetryable: true,
			wantDelay:     30,
		},
		{
			name:          "unrecognized error",
			err:           "something inexplicable happened",
			wantCategory:  CategoryUnknownError,
			wantRetryable: true,
			wantDelay:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromError("test_op", errors.New(tt.err), "", nil)

			require.NotNil(t, result)
			assert.Equal(t, StatusError, result.Status)
			require.NotNil(t, result.ErrorDetails)
			assert.Equal(t, tt.wantCategory, result.ErrorDetails.Category)
			assert.Equal(t, tt.wantRetryable, result.ErrorDetails.Retryable)
			assert.Equal(t, tt.wantDelay, result.ErrorDetails.RetryAfterSeconds)
			assert.Equal(t, "test_op", result.ErrorDetails.Operation)
			assert.NotEmpty(t, result.ErrorDetails.TechnicalDetails)
		})
	}
}

func TestFromError_NotFoundUsesExtraHints(t *testing.T) {
	result := FromError("get_event", errors.New("404 not found"), "gcal", map[string]string{
		"resource_type": "calendar event",
		"resource_id":   "evt-123",
	})

	require.NotNil(t, result.ErrorDetails)
	assert.Equal(t, CategoryNotFound, result.ErrorDetails.Category)
	assert.Equal(t, "evt-123", result.ErrorDetails.ResourceID)
	assert.Contains(t, result.ErrorDetails.Message, "calendar event")
}

func TestFromError_CaseInsensitive(t *testing.T) {
	result := FromError("op", errors.New("RATE LIMIT hit"), "", nil)
	assert.Equal(t, CategoryRateLimit, result.ErrorDetails.Category)
}

func TestRateLimit_RecoveryActions(t *testing.T) {
	result := RateLimit("send_email", 45, "gmail", "429")

	require.NotNil(t, result.ErrorDetails)
	assert.True(t, result.ErrorDetails.Retryable)
	assert.Equal(t, 45, result.ErrorDetails.RetryAfterSeconds)
	require.NotEmpty(t, result.ErrorDetails.RecoveryActions)
	assert.Equal(t, "retry_with_delay", result.ErrorDetails.RecoveryActions[0].ActionType)
	assert.Equal(t, 45, result.ErrorDetails.RecoveryActions[0].EstimatedDelaySeconds)
	assert.Equal(t, []string{"gmail"}, result.ErrorDetails.AffectedIntegrations)
}

func TestParameterErrors_NeverRetryable(t *testing.T) {
	invalid := InvalidParameter("op", "date", "tomorrow-ish", "YYYY-MM-DD", "bad format")
	missing := MissingParameter("op", "recipient")

	assert.False(t, invalid.Retryable())
	assert.False(t, missing.Retryable())
	assert.Equal(t, CategoryInvalidParameter, invalid.ErrorDetails.Category)
	assert.Equal(t, CategoryMissingParameter, missing.ErrorDetails.Category)
}

func TestGuidance_IncludesRecovery(t *testing.T) {
	result := RateLimit("send_email", 30, "gmail", "429")
	guidance := result.ErrorDetails.Guidance()

	assert.Contains(t, guidance, "rate_limit")
	assert.Contains(t, guidance, "Suggested recovery")
	assert.Contains(t, guidance, "wait 30 seconds")
	assert.Contains(t, guidance, "retry")
}

func TestUserFacing_NoTechnicalDetail(t *testing.T) {
	result := AuthExpired("read_mail", "gmail", "401 raw wire dump")
	msg := result.ErrorDetails.UserFacing()

	assert.Contains(t, msg, "gmail")
	assert.NotContains(t, msg, "401 raw wire dump")
}
