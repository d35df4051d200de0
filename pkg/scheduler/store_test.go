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
package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTaskStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_CreateAndGet(t *testing.T) {
	store := newTaskStore(t)
	ctx := context.Background()

	task := &Task{
		TenantID:       "t1",
		UserID:         "u1",
		ConversationID: "u1",
		Command:        "send the weekly report",
		Cron:           "0 9 * * 1",
		Timezone:       "Europe/Berlin",
		Enabled:        true,
	}
	require.NoError(t, store.Create(ctx, task))
	require.NotEmpty(t, task.ID)

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "send the weekly report", got.Command)
	assert.Equal(t, "0 9 * * 1", got.Cron)
	assert.Equal(t, "Europe/Berlin", got.Timezone)
	assert.True(t, got.Enabled)
	assert.True(t, got.Recurring())
}

func TestStore_OneShotTask(t *testing.T) {
	store := newTaskStore(t)
	ctx := context.Background()

	runAt := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	task := &Task{
		TenantID: "t1", UserID: "u1", ConversationID: "u1",
		Command: "remind me about the dentist",
		RunAt:   runAt,
		Enabled: true,
	}
	require.NoError(t, store.Create(ctx, task))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Recurring())
	assert.Equal(t, runAt.UnixMilli(), got.RunAt.UnixMilli())
}

func TestStore_GetMissing(t *testing.T) {
	store := newTaskStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_ListEnabledOnly(t *testing.T) {
	store := newTaskStore(t)
	ctx := context.Background()

	enabled := &Task{TenantID: "t1", UserID: "u1", ConversationID: "u1", Command: "a", Cron: "* * * * *", Enabled: true}
	paused := &Task{TenantID: "t1", UserID: "u1", ConversationID: "u1", Command: "b", Cron: "* * * * *", Enabled: false}
	require.NoError(t, store.Create(ctx, enabled))
	require.NoError(t, store.Create(ctx, paused))

	all, err := store.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := store.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, enabled.ID, active[0].ID)
}

func TestStore_SetEnabledAndDelete(t *testing.T) {
	store := newTaskStore(t)
	ctx := context.Background()

	task := &Task{TenantID: "t1", UserID: "u1", ConversationID: "u1", Command: "a", Cron: "* * * * *", Enabled: true}
	require.NoError(t, store.Create(ctx, task))

	require.NoError(t, store.SetEnabled(ctx, task.ID, false))
	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)

	require.NoError(t, store.Delete(ctx, task.ID))
	_, err = store.Get(ctx, task.ID)
	assert.Error(t, err)
}

func TestStore_RecordRun(t *testing.T) {
	store := newTaskStore(t)
	ctx := context.Background()

	task := &Task{TenantID: "t1", UserID: "u1", ConversationID: "u1", Command: "a", Cron: "* * * * *", Enabled: true}
	require.NoError(t, store.Create(ctx, task))

	next := time.Now().Add(time.Minute)
	require.NoError(t, store.RecordRun(ctx, task.ID, false, "", next))
	require.NoError(t, store.RecordRun(ctx, task.ID, true, "provider exploded", next))

	got, err := store.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Runs)
	assert.Equal(t, 1, got.Failures)
	assert.Equal(t, "provider exploded", got.LastFailure)
	assert.False(t, got.LastRunAt.IsZero())
}
