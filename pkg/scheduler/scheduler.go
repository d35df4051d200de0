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
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/agent"
)

// Dispatcher executes an agent run for a fired task. *agent.Runner
// satisfies this.
type Dispatcher interface {
	Run(ctx context.Context, userCtx agent.UserContext, inputs []agent.Input, source string, metadata agent.Metadata) *agent.FinalResponse
}

// UserResolver loads the user context a task runs as. Implementations
// typically consult the tenant directory.
type UserResolver func(ctx context.Context, tenantID, userID string) (agent.UserContext, error)

// Config configures the scheduler.
type Config struct {
	// Store persists tasks. Required.
	Store *Store

	// Dispatcher runs fired tasks. Required.
	Dispatcher Dispatcher

	// ResolveUser loads the user context for a task. Required.
	ResolveUser UserResolver

	// RunTimeout bounds one task execution (default 5m)
	RunTimeout time.Duration

	// SkipIfRunning skips a firing while the previous one is still
	// executing (default true via DefaultConfig)
	SkipIfRunning bool
}

// DefaultConfig returns a config with production defaults. Store,
// Dispatcher and ResolveUser must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		RunTimeout:    5 * time.Minute,
		SkipIfRunning: true,
	}
}

// Scheduler fires stored tasks: recurring tasks through a cron engine,
// one-shot tasks through timers. Fired tasks re-enter the agent runtime
// as scheduled or recurring runs.
type Scheduler struct {
	mu          sync.RWMutex
	config      Config
	cronEngine  *cron.Cron
	cronEntries map[string]cron.EntryID
	timers      map[string]*time.Timer
	running     map[string]bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	started     bool
}

// New creates a scheduler.
func New(config Config) (*Scheduler, error) {
	if config.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if config.ResolveUser == nil {
		return nil, fmt.Errorf("user resolver is required")
	}
	if config.RunTimeout <= 0 {
		config.RunTimeout = 5 * time.Minute
	}

	return &Scheduler{
		config:      config,
		cronEngine:  cron.New(),
		cronEntries: make(map[string]cron.EntryID),
		timers:      make(map[string]*time.Timer),
		running:     make(map[string]bool),
		stopCh:      make(chan struct{}),
	}, nil
}

// Start loads enabled tasks from the store and begins firing them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	tasks, err := s.config.Store.List(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to load tasks: %w", err)
	}
	for _, task := range tasks {
		if err := s.scheduleLocked(task); err != nil {
			log.Warn("skipping unschedulable task",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	}

	s.cronEngine.Start()
	s.started = true
	log.Info("scheduler started", zap.Int("tasks", len(tasks)))
	return nil
}

// Stop halts firing and waits for in-flight executions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	cronCtx := s.cronEngine.Stop()
	<-cronCtx.Done()
	s.wg.Wait()
	log.Info("scheduler stopped")
}

// Add validates, persists, and schedules a task.
func (s *Scheduler) Add(ctx context.Context, task *Task) error {
	if err := validateTask(task); err != nil {
		return err
	}
	task.Enabled = true
	if next, err := nextExecution(task, time.Now()); err == nil {
		task.NextRunAt = next
	}

	if err := s.config.Store.Create(ctx, task); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return s.scheduleLocked(task)
	}
	return nil
}

// Remove unschedules and deletes a task.
func (s *Scheduler) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	s.unscheduleLocked(id)
	s.mu.Unlock()
	return s.config.Store.Delete(ctx, id)
}

// Pause unschedules a task without deleting it.
func (s *Scheduler) Pause(ctx context.Context, id string) error {
	s.mu.Lock()
	s.unscheduleLocked(id)
	s.mu.Unlock()
	return s.config.Store.SetEnabled(ctx, id, false)
}

// Resume re-enables and reschedules a paused task.
func (s *Scheduler) Resume(ctx context.Context, id string) error {
	if err := s.config.Store.SetEnabled(ctx, id, true); err != nil {
		return err
	}
	task, err := s.config.Store.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return s.scheduleLocked(task)
	}
	return nil
}

// TriggerNow fires a task immediately, outside its schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) error {
	task, err := s.config.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(task)
	}()
	return nil
}

// scheduleLocked registers the task with the cron engine or a one-shot
// timer. Caller holds s.mu.
func (s *Scheduler) scheduleLocked(task *Task) error {
	s.unscheduleLocked(task.ID)

	if task.Recurring() {
		spec := task.Cron
		if task.Timezone != "" && task.Timezone != "UTC" {
			spec = fmt.Sprintf("CRON_TZ=%s %s", task.Timezone, task.Cron)
		}
		id := task.ID
		entryID, err := s.cronEngine.AddFunc(spec, func() {
			s.fire(id)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", task.Cron, err)
		}
		s.cronEntries[task.ID] = entryID
		return nil
	}

	delay := time.Until(task.RunAt)
	if delay < 0 {
		// Missed while we were down. Fire immediately.
		delay = 0
	}
	id := task.ID
	s.timers[task.ID] = time.AfterFunc(delay, func() {
		s.fire(id)
	})
	return nil
}

// unscheduleLocked removes any cron entry or timer. Caller holds s.mu.
func (s *Scheduler) unscheduleLocked(id string) {
	if entryID, ok := s.cronEntries[id]; ok {
		s.cronEngine.Remove(entryID)
		delete(s.cronEntries, id)
	}
	if timer, ok := s.timers[id]; ok {
		timer.Stop()
		delete(s.timers, id)
	}
}

// fire reloads the task and executes it, honoring the skip-if-running
// guard.
func (s *Scheduler) fire(id string) {
	select {
	case <-s.stopCh:
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	task, err := s.config.Store.Get(ctx, id)
	if err != nil {
		log.Warn("fired task no longer exists", zap.String("task_id", id))
		s.mu.Lock()
		s.unscheduleLocked(id)
		s.mu.Unlock()
		return
	}
	if !task.Enabled {
		return
	}

	s.mu.Lock()
	if s.config.SkipIfRunning && s.running[id] {
		s.mu.Unlock()
		log.Info("skipping firing, previous run still executing",
			zap.String("task_id", id))
		return
	}
	s.running[id] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, id)
			s.mu.Unlock()
		}()
		s.execute(task)
	}()
}

// execute runs the task's command through the agent runtime and records
// the outcome.
func (s *Scheduler) execute(task *Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.RunTimeout)
	defer cancel()

	started := time.Now()
	log.Info("executing scheduled task",
		zap.String("task_id", task.ID),
		zap.String("tenant_id", task.TenantID),
		zap.Bool("recurring", task.Recurring()))

	source := agent.SourceScheduled
	if task.Recurring() {
		source = agent.SourceRecurring
	}

	userCtx, err := s.config.ResolveUser(ctx, task.TenantID, task.UserID)
	failure := ""
	if err != nil {
		failure = fmt.Sprintf("user resolution failed: %v", err)
	} else {
		resp := s.config.Dispatcher.Run(ctx, userCtx,
			[]agent.Input{{Text: task.Command}},
			source,
			agent.Metadata{
				ConversationID:  task.ConversationID,
				Source:          source,
				ScheduledTaskID: task.ID,
			})
		if resp == nil {
			failure = "no response produced"
		}
	}

	next, _ := nextExecution(task, time.Now())
	if err := s.config.Store.RecordRun(ctx, task.ID, failure != "", failure, next); err != nil {
		log.Error("failed to record task run",
			zap.String("task_id", task.ID),
			zap.Error(err))
	}

	// One-shot tasks retire after firing.
	if !task.Recurring() {
		s.mu.Lock()
		s.unscheduleLocked(task.ID)
		s.mu.Unlock()
		if err := s.config.Store.SetEnabled(ctx, task.ID, false); err != nil {
			log.Warn("failed to disable one-shot task", zap.Error(err))
		}
	}

	log.Info("scheduled task finished",
		zap.String("task_id", task.ID),
		zap.Bool("failed", failure != ""),
		zap.Duration("duration", time.Since(started)))
}

// validateTask checks the task's schedule before persisting it.
func validateTask(task *Task) error {
	if task.TenantID == "" || task.UserID == "" {
		return fmt.Errorf("tenant and user are required")
	}
	if task.Command == "" {
		return fmt.Errorf("command is required")
	}
	if task.Cron == "" && task.RunAt.IsZero() {
		return fmt.Errorf("either a cron expression or a run time is required")
	}
	if task.Cron != "" && !task.RunAt.IsZero() {
		return fmt.Errorf("cron expression and run time are mutually exclusive")
	}
	if task.Cron != "" {
		if _, err := cron.ParseStandard(task.Cron); err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", task.Cron, err)
		}
	}
	if task.Timezone != "" {
		if _, err := time.LoadLocation(task.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", task.Timezone, err)
		}
	}
	return nil
}

// nextExecution computes when the task fires next after now.
func nextExecution(task *Task, now time.Time) (time.Time, error) {
	if !task.Recurring() {
		if task.RunAt.After(now) {
			return task.RunAt, nil
		}
		return time.Time{}, nil
	}

	schedule, err := cron.ParseStandard(task.Cron)
	if err != nil {
		return time.Time{}, err
	}
	loc := time.UTC
	if task.Timezone != "" {
		if l, err := time.LoadLocation(task.Timezone); err == nil {
			loc = l
		}
	}
	return schedule.Next(now.In(loc)), nil
}
