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
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/teradata-labs/praxos/internal/sqlitedriver"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/observability"
)

// SQLiteStore provides persistent SQLite storage for conversation history
// and execution records.
type SQLiteStore struct {
	db     *sql.DB
	tracer observability.Tracer
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	Path   string               // Database file path (default: ":memory:")
	Tracer observability.Tracer // Tracer for observability (default: NoOpTracer)
}

// NewSQLiteStore creates a new SQLite-backed conversation store.
func NewSQLiteStore(config SQLiteConfig) (*SQLiteStore, error) {
	if config.Path == "" {
		config.Path = ":memory:"
	}
	if config.Tracer == nil {
		config.Tracer = observability.NewNoOpTracer()
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		tracer: config.Tracer,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	ctx := context.Background()
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.init_schema")
	defer s.tracer.EndSpan(span)

	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tool_calls_json TEXT,
		tool_use_id TEXT,
		tool_name TEXT,
		tool_result_json TEXT,
		created_at INTEGER NOT NULL,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conv ON messages(tenant_id, conversation_id, seq);

	CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		source TEXT NOT NULL,
		request TEXT NOT NULL,
		response TEXT,
		status TEXT NOT NULL,
		tool_calls INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		started_at INTEGER NOT NULL,
		completed_at INTEGER,
		failure_reason TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_executions_conv ON executions(tenant_id, conversation_id, started_at);

	CREATE TABLE IF NOT EXISTS milestones (
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (tenant_id, user_id, name)
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttribute("success", true)
	return nil
}

// AppendMessages appends messages to the conversation's history in order.
func (s *SQLiteStore) AppendMessages(ctx context.Context, tenantID, conversationID string, messages []llm.Message) error {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.append",
		observability.WithAttribute("count", len(messages)))
	defer s.tracer.EndSpan(span)

	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var nextSeq int64
	row := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE tenant_id = ? AND conversation_id = ?`,
		tenantID, conversationID)
	if err := row.Scan(&nextSeq); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, tenant_id, conversation_id, role, content, tool_calls_json,
			tool_use_id, tool_name, tool_result_json, created_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range messages {
		id := msg.ID
		if id == "" {
			id = uuid.New().String()
		}
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}

		var toolCallsJSON, toolResultJSON sql.NullString
		if len(msg.ToolCalls) > 0 {
			raw, err := json.Marshal(msg.ToolCalls)
			if err != nil {
				span.RecordError(err)
				return fmt.Errorf("failed to marshal tool calls: %w", err)
			}
			toolCallsJSON = sql.NullString{String: string(raw), Valid: true}
		}
		if msg.ToolResult != nil {
			raw, err := json.Marshal(msg.ToolResult)
			if err != nil {
				span.RecordError(err)
				return fmt.Errorf("failed to marshal tool result: %w", err)
			}
			toolResultJSON = sql.NullString{String: string(raw), Valid: true}
		}

		_, err = stmt.ExecContext(ctx, id, tenantID, conversationID, msg.Role, msg.Content,
			toolCallsJSON, msg.ToolUseID, msg.ToolName, toolResultJSON,
			ts.UnixMilli(), nextSeq+int64(i))
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// History returns up to limit most recent messages for the conversation, oldest first.
func (s *SQLiteStore) History(ctx context.Context, tenantID, conversationID string, limit int) ([]llm.Message, error) {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.history")
	defer s.tracer.EndSpan(span)

	query := `
		SELECT id, role, content, tool_calls_json, tool_use_id, tool_name,
			tool_result_json, created_at
		FROM (
			SELECT * FROM messages
			WHERE tenant_id = ? AND conversation_id = ?
			ORDER BY seq DESC
			%s
		) ORDER BY seq ASC`
	args := []interface{}{tenantID, conversationID}
	if limit > 0 {
		query = fmt.Sprintf(query, "LIMIT ?")
		args = append(args, limit)
	} else {
		query = fmt.Sprintf(query, "")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var messages []llm.Message
	for rows.Next() {
		var msg llm.Message
		var toolCallsJSON, toolUseID, toolName, toolResultJSON sql.NullString
		var createdAt int64

		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &toolCallsJSON,
			&toolUseID, &toolName, &toolResultJSON, &createdAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg.ToolUseID = toolUseID.String
		msg.ToolName = toolName.String
		msg.Timestamp = time.UnixMilli(createdAt)
		if toolCallsJSON.Valid {
			if err := json.Unmarshal([]byte(toolCallsJSON.String), &msg.ToolCalls); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
			}
		}
		if toolResultJSON.Valid {
			if err := json.Unmarshal([]byte(toolResultJSON.String), &msg.ToolResult); err != nil {
				span.RecordError(err)
				return nil, fmt.Errorf("failed to unmarshal tool result: %w", err)
			}
		}

		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// RecordExecution saves a run summary to the audit trail.
func (s *SQLiteStore) RecordExecution(ctx context.Context, rec *ExecutionRecord) error {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.record_execution")
	defer s.tracer.EndSpan(span)

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var completedAt sql.NullInt64
	if !rec.CompletedAt.IsZero() {
		completedAt = sql.NullInt64{Int64: rec.CompletedAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions (id, tenant_id, conversation_id, source, request, response,
			status, tool_calls, duration_ms, started_at, completed_at, failure_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TenantID, rec.ConversationID, rec.Source, rec.Request, rec.Response,
		rec.Status, rec.ToolCalls, rec.DurationMs, rec.StartedAt.UnixMilli(),
		completedAt, rec.FailureReason)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// Executions returns up to limit most recent execution records, newest first.
func (s *SQLiteStore) Executions(ctx context.Context, tenantID, conversationID string, limit int) ([]*ExecutionRecord, error) {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.executions")
	defer s.tracer.EndSpan(span)

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, request, response, status, tool_calls, duration_ms,
			started_at, completed_at, failure_reason
		FROM executions
		WHERE tenant_id = ? AND conversation_id = ?
		ORDER BY started_at DESC
		LIMIT ?`,
		tenantID, conversationID, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var records []*ExecutionRecord
	for rows.Next() {
		rec := &ExecutionRecord{TenantID: tenantID, ConversationID: conversationID}
		var response, failureReason sql.NullString
		var startedAt int64
		var completedAt sql.NullInt64

		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Request, &response,
			&rec.Status, &rec.ToolCalls, &rec.DurationMs, &startedAt,
			&completedAt, &failureReason); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		rec.Response = response.String
		rec.FailureReason = failureReason.String
		rec.StartedAt = time.UnixMilli(startedAt)
		if completedAt.Valid {
			rec.CompletedAt = time.UnixMilli(completedAt.Int64)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// IncrementMilestone atomically adds delta to the named per-user counter
// and returns the new value. The upsert is a single statement, so
// concurrent increments never lose updates.
func (s *SQLiteStore) IncrementMilestone(ctx context.Context, tenantID, userID, name string, delta int64) (int64, error) {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.increment_milestone",
		observability.WithAttribute("name", name))
	defer s.tracer.EndSpan(span)

	var count int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO milestones (tenant_id, user_id, name, count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, user_id, name)
		DO UPDATE SET count = count + excluded.count, updated_at = excluded.updated_at
		RETURNING count`,
		tenantID, userID, name, delta, time.Now().UnixMilli()).Scan(&count)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("failed to increment milestone: %w", err)
	}
	return count, nil
}

// Milestones returns all of the user's counters by name.
func (s *SQLiteStore) Milestones(ctx context.Context, tenantID, userID string) (map[string]int64, error) {
	ctx, span := s.tracer.StartSpan(ctx, "conversation_store.milestones")
	defer s.tracer.EndSpan(span)

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, count FROM milestones
		WHERE tenant_id = ? AND user_id = ?`,
		tenantID, userID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query milestones: %w", err)
	}
	defer rows.Close()

	counters := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		counters[name] = count
	}
	return counters, rows.Err()
}

// Close releases store resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
