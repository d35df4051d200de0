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
// Package conversation persists per-user conversation history and run
// execution records. History is an append-only log keyed by tenant and
// conversation; the runtime loads a window of it into each run and appends the
// run's new messages on completion.
package conversation

import (
	"context"
	"time"

	"github.com/teradata-labs/praxos/pkg/llm"
)

// ExecutionRecord summarizes one completed agent run for the audit trail.
type ExecutionRecord struct {
	ID             string
	TenantID       string
	ConversationID string
	Source         string
	Request        string
	Response       string
	Status         string
	ToolCalls      int
	DurationMs     int64
	StartedAt      time.Time
	CompletedAt    time.Time
	FailureReason  string
}

// Store is the persistence contract for conversation history.
type Store interface {
	// AppendMessages appends messages to the conversation's history in order.
	AppendMessages(ctx context.Context, tenantID, conversationID string, messages []llm.Message) error

	// History returns up to limit most recent messages for the conversation,
	// oldest first. limit <= 0 means no limit.
	History(ctx context.Context, tenantID, conversationID string, limit int) ([]llm.Message, error)

	// RecordExecution saves a run summary to the audit trail.
	RecordExecution(ctx context.Context, rec *ExecutionRecord) error

	// Executions returns up to limit most recent execution records for
	// the conversation, newest first.
	Executions(ctx context.Context, tenantID, conversationID string, limit int) ([]*ExecutionRecord, error)

	// IncrementMilestone atomically adds delta to the named per-user
	// counter and returns the new value.
	IncrementMilestone(ctx context.Context, tenantID, userID, name string, delta int64) (int64, error)

	// Milestones returns all of the user's counters by name.
	Milestones(ctx context.Context, tenantID, userID string) (map[string]int64, error)

	// Close releases store resources.
	Close() error
}

// MilestoneRecorder persists plan step reports as per-user milestone
// counters. It satisfies the step recorder contract of the plan reporting
// tool without the tool knowing about storage.
type MilestoneRecorder struct {
	store    Store
	tenantID string
	userID   string
}

// NewMilestoneRecorder creates a recorder scoped to one user.
func NewMilestoneRecorder(store Store, tenantID, userID string) *MilestoneRecorder {
	return &MilestoneRecorder{store: store, tenantID: tenantID, userID: userID}
}

// RecordStep increments the counter for the step's status.
func (r *MilestoneRecorder) RecordStep(ctx context.Context, stepNumber int, description, status string) error {
	if status == "" {
		status = "started"
	}
	_, err := r.store.IncrementMilestone(ctx, r.tenantID, r.userID, "plan_steps_"+status, 1)
	return err
}
