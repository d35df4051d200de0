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
// Package scheduler executes user commands at scheduled times: one-shot
// reminders and recurring cron tasks. Each firing re-enters the agent
// runtime through the scheduled/recurring source channels.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/teradata-labs/praxos/internal/sqlitedriver"
)

// Task is one scheduled user command.
type Task struct {
	// ID is the task identifier
	ID string

	// TenantID and UserID identify who the task runs as
	TenantID string
	UserID   string

	// ConversationID scopes the task's conversation history
	ConversationID string

	// Command is the user's original request text, replayed on firing
	Command string

	// Cron is the recurrence expression. Empty for one-shot tasks.
	Cron string

	// RunAt is the firing time for one-shot tasks
	RunAt time.Time

	// Timezone for cron evaluation
	Timezone string

	// Enabled gates firing without deleting the task
	Enabled bool

	// Stats
	Runs        int
	Failures    int
	LastRunAt   time.Time
	NextRunAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastFailure string
}

// Recurring reports whether the task fires repeatedly.
func (t *Task) Recurring() bool {
	return t.Cron != ""
}

// Store persists scheduled tasks in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the task store at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS scheduled_tasks (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		command TEXT NOT NULL,
		cron TEXT NOT NULL DEFAULT '',
		run_at INTEGER,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		enabled INTEGER NOT NULL DEFAULT 1,
		runs INTEGER NOT NULL DEFAULT 0,
		failures INTEGER NOT NULL DEFAULT 0,
		last_run_at INTEGER,
		next_run_at INTEGER,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		last_failure TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_tenant ON scheduled_tasks(tenant_id, user_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_enabled ON scheduled_tasks(enabled);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Create saves a new task.
func (s *Store) Create(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Timezone == "" {
		task.Timezone = "UTC"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, tenant_id, user_id, conversation_id, command,
			cron, run_at, timezone, enabled, runs, failures, last_run_at, next_run_at,
			created_at, updated_at, last_failure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.TenantID, task.UserID, task.ConversationID, task.Command,
		task.Cron, nullableTime(task.RunAt), task.Timezone, boolToInt(task.Enabled),
		task.Runs, task.Failures, nullableTime(task.LastRunAt), nullableTime(task.NextRunAt),
		task.CreatedAt.UnixMilli(), task.UpdatedAt.UnixMilli(), task.LastFailure)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Get retrieves a task by id.
func (s *Store) Get(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	task, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", id)
	}
	return task, err
}

// List returns every task, optionally only enabled ones.
func (s *Store) List(ctx context.Context, enabledOnly bool) ([]*Task, error) {
	query := taskSelect
	if enabledOnly {
		query += ` WHERE enabled = 1`
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// SetEnabled flips the enabled flag.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return nil
}

// Delete removes a task.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// RecordRun atomically updates the task's stats after a firing.
func (s *Store) RecordRun(ctx context.Context, id string, failed bool, failure string, nextRun time.Time) error {
	failures := 0
	if failed {
		failures = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_tasks
		SET runs = runs + 1,
			failures = failures + ?,
			last_run_at = ?,
			next_run_at = ?,
			last_failure = ?,
			updated_at = ?
		WHERE id = ?`,
		failures, time.Now().UnixMilli(), nullableTime(nextRun), failure,
		time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// Close releases store resources.
func (s *Store) Close() error {
	return s.db.Close()
}

const taskSelect = `
	SELECT id, tenant_id, user_id, conversation_id, command, cron, run_at,
		timezone, enabled, runs, failures, last_run_at, next_run_at,
		created_at, updated_at, last_failure
	FROM scheduled_tasks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*Task, error) {
	task := &Task{}
	var runAt, lastRunAt, nextRunAt sql.NullInt64
	var enabled int
	var createdAt, updatedAt int64
	var lastFailure sql.NullString

	err := row.Scan(&task.ID, &task.TenantID, &task.UserID, &task.ConversationID,
		&task.Command, &task.Cron, &runAt, &task.Timezone, &enabled,
		&task.Runs, &task.Failures, &lastRunAt, &nextRunAt,
		&createdAt, &updatedAt, &lastFailure)
	if err != nil {
		return nil, err
	}

	task.Enabled = enabled != 0
	task.CreatedAt = time.UnixMilli(createdAt)
	task.UpdatedAt = time.UnixMilli(updatedAt)
	task.LastFailure = lastFailure.String
	if runAt.Valid {
		task.RunAt = time.UnixMilli(runAt.Int64)
	}
	if lastRunAt.Valid {
		task.LastRunAt = time.UnixMilli(lastRunAt.Int64)
	}
	if nextRunAt.Valid {
		task.NextRunAt = time.UnixMilli(nextRunAt.Int64)
	}
	return task, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UnixMilli()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
