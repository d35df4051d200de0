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
package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_DisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Enabled: false})

	calls := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, calls)
}

func TestRateLimiter_BurstWithinCapacity(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 100,
		BurstCapacity:     3,
	})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
			return nil, nil
		})
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second, "burst should not block")
}

func TestRateLimiter_RetriesThrottleErrors(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 1000,
		BurstCapacity:     10,
		MaxRetries:        3,
		RetryBackoff:      time.Millisecond,
	})

	calls := 0
	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("429 too many requests")
		}
		return "finally", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "finally", result)
	assert.Equal(t, 3, calls)
}

func TestRateLimiter_NonThrottleErrorsNotRetried(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 1000,
		BurstCapacity:     10,
		RetryBackoff:      time.Millisecond,
	})

	calls := 0
	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("400 bad request")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRateLimiter_ExhaustsRetries(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 1000,
		BurstCapacity:     10,
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
	})

	calls := 0
	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, errors.New("overloaded_error")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited after 2 retries")
	assert.Equal(t, 3, calls)
}

func TestRateLimiter_ContextCancellation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.1,
		BurstCapacity:     1,
	})

	// Drain the single burst token.
	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = rl.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestIsThrottleError(t *testing.T) {
	assert.True(t, isThrottleError(errors.New("429 Too Many Requests")))
	assert.True(t, isThrottleError(errors.New("rate limit exceeded")))
	assert.True(t, isThrottleError(errors.New("overloaded_error: please slow down")))
	assert.False(t, isThrottleError(errors.New("500 internal server error")))
}
