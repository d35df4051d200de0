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
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/praxos/pkg/agent"
	"github.com/teradata-labs/praxos/pkg/scheduler"
)

var (
	taskCron     string
	taskAt       string
	taskTimezone string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage scheduled tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [command]",
	Short: "Schedule a command (--cron for recurring, --at for one-shot)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskStore(cmd.Context(), func(ctx context.Context, store *scheduler.Store) error {
			task := &scheduler.Task{
				TenantID:       viper.GetString("tenant"),
				UserID:         viper.GetString("user"),
				ConversationID: viper.GetString("user"),
				Command:        args[0],
				Cron:           taskCron,
				Timezone:       taskTimezone,
				Enabled:        true,
			}
			if taskAt != "" {
				at, err := time.Parse(time.RFC3339, taskAt)
				if err != nil {
					return fmt.Errorf("invalid --at time (want RFC3339): %w", err)
				}
				task.RunAt = at
			}
			if err := store.Create(ctx, task); err != nil {
				return err
			}
			fmt.Printf("created task %s\n", task.ID)
			return nil
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskStore(cmd.Context(), func(ctx context.Context, store *scheduler.Store) error {
			tasks, err := store.List(ctx, false)
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				fmt.Println("no tasks")
				return nil
			}
			for _, t := range tasks {
				schedule := t.Cron
				if !t.Recurring() {
					schedule = "at " + t.RunAt.Format(time.RFC3339)
				}
				state := "enabled"
				if !t.Enabled {
					state = "paused"
				}
				fmt.Printf("%s  [%s]  %s  runs=%d failures=%d\n  %s\n",
					t.ID, state, schedule, t.Runs, t.Failures, t.Command)
			}
			return nil
		})
	},
}

var taskPauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskStore(cmd.Context(), func(ctx context.Context, store *scheduler.Store) error {
			return store.SetEnabled(ctx, args[0], false)
		})
	},
}

var taskResumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskStore(cmd.Context(), func(ctx context.Context, store *scheduler.Store) error {
			return store.SetEnabled(ctx, args[0], true)
		})
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTaskStore(cmd.Context(), func(ctx context.Context, store *scheduler.Store) error {
			return store.Delete(ctx, args[0])
		})
	},
}

var taskServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler until interrupted, firing due tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, convStore, err := buildRunner()
		if err != nil {
			return err
		}
		defer convStore.Close()

		store, err := scheduler.NewStore(cmd.Context(), viper.GetString("db.tasks_path"))
		if err != nil {
			return err
		}
		defer store.Close()

		config := scheduler.DefaultConfig()
		config.Store = store
		config.Dispatcher = runner
		config.ResolveUser = func(ctx context.Context, tenantID, userID string) (agent.UserContext, error) {
			return agent.UserContext{
				TenantID: tenantID,
				UserID:   userID,
				Name:     userID,
				Timezone: "UTC",
			}, nil
		}

		sched, err := scheduler.New(config)
		if err != nil {
			return err
		}
		if err := sched.Start(cmd.Context()); err != nil {
			return err
		}
		defer sched.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
		case <-cmd.Context().Done():
		}
		return nil
	},
}

func init() {
	taskAddCmd.Flags().StringVar(&taskCron, "cron", "", "cron expression for recurring tasks")
	taskAddCmd.Flags().StringVar(&taskAt, "at", "", "RFC3339 time for one-shot tasks")
	taskAddCmd.Flags().StringVar(&taskTimezone, "timezone", "UTC", "IANA timezone for cron evaluation")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskPauseCmd)
	taskCmd.AddCommand(taskResumeCmd)
	taskCmd.AddCommand(taskRemoveCmd)
	taskCmd.AddCommand(taskServeCmd)
}

// withTaskStore opens the task store, runs fn, and closes it.
func withTaskStore(ctx context.Context, fn func(context.Context, *scheduler.Store) error) error {
	store, err := scheduler.NewStore(ctx, viper.GetString("db.tasks_path"))
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(ctx, store)
}
