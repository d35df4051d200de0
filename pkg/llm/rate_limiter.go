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
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RateLimiterConfig configures the LLM rate limiter.
type RateLimiterConfig struct {
	// Enabled enables rate limiting
	Enabled bool

	// RequestsPerSecond is the maximum requests allowed per second.
	// Default: 0.7 (safely under Anthropic Tier 1 50 RPM)
	RequestsPerSecond float64

	// BurstCapacity is the maximum burst of requests allowed.
	// Default: 3
	BurstCapacity int

	// MaxRetries is the maximum number of retries for 429 throttling errors.
	// Default: 5
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries (doubles each retry).
	// Default: 2s
	RetryBackoff time.Duration

	// Logger for rate limiter events
	Logger *zap.Logger
}

// DefaultRateLimiterConfig returns conservative defaults for Anthropic's API.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 0.7,
		BurstCapacity:     3,
		MaxRetries:        5,
		RetryBackoff:      2 * time.Second,
		Logger:            zap.NewNop(),
	}
}

// RateLimiter implements token bucket rate limiting for LLM requests with
// automatic retry on throttling errors.
type RateLimiter struct {
	config RateLimiterConfig

	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 0.7
	}
	if config.BurstCapacity <= 0 {
		config.BurstCapacity = 3
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 2 * time.Second
	}

	return &RateLimiter{
		config:     config,
		tokens:     float64(config.BurstCapacity),
		maxTokens:  float64(config.BurstCapacity),
		refillRate: config.RequestsPerSecond,
		lastRefill: time.Now(),
	}
}

// Do executes a function call with rate limiting and automatic retry on
// throttling. The call must build a fresh request per attempt so the body
// can be re-read on retry.
func (rl *RateLimiter) Do(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if !rl.config.Enabled {
		return call(ctx)
	}

	backoff := rl.config.RetryBackoff
	var lastErr error

	for attempt := 0; attempt <= rl.config.MaxRetries; attempt++ {
		if err := rl.waitForToken(ctx); err != nil {
			return nil, err
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isThrottleError(err) {
			return nil, err
		}

		rl.config.Logger.Warn("LLM request throttled, backing off",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, fmt.Errorf("rate limited after %d retries: %w", rl.config.MaxRetries, lastErr)
}

// waitForToken blocks until a request token is available or ctx is done.
func (rl *RateLimiter) waitForToken(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := time.Now()
		rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
		if rl.tokens > rl.maxTokens {
			rl.tokens = rl.maxTokens
		}
		rl.lastRefill = now

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}
		deficit := 1 - rl.tokens
		rl.mu.Unlock()

		wait := time.Duration(deficit / rl.refillRate * float64(time.Second))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func isThrottleError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "overloaded")
}
