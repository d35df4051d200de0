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
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/internal/version"
	"github.com/teradata-labs/praxos/pkg/agent"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "praxos",
	Short:   "Praxos - conversational agent runtime",
	Long:    `Praxos runs conversational agent turns: it plans, assembles a per-request toolset, drives the model/tool loop, and persists conversation history. Includes a scheduler for one-shot and recurring commands.`,
	Version: version.Get(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		return log.Init(viper.GetString("log.level"))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./praxos.yaml)")
	rootCmd.PersistentFlags().String("db", "praxos.db", "conversation database path")
	rootCmd.PersistentFlags().String("tasks-db", "praxos-tasks.db", "scheduled task database path")
	rootCmd.PersistentFlags().String("tenant", "default", "tenant ID")
	rootCmd.PersistentFlags().String("user", "local", "user ID")

	_ = viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = viper.BindPFlag("db.tasks_path", rootCmd.PersistentFlags().Lookup("tasks-db"))
	_ = viper.BindPFlag("tenant", rootCmd.PersistentFlags().Lookup("tenant"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(taskCmd)
}

// loadConfig reads praxos.yaml (if present) and the PRAXOS_* environment,
// then applies defaults.
func loadConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/praxos/")
		viper.SetConfigName("praxos")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("PRAXOS")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")

	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "")
	viper.SetDefault("llm.rate_limit.enabled", true)

	viper.SetDefault("db.path", "praxos.db")
	viper.SetDefault("db.tasks_path", "praxos-tasks.db")

	viper.SetDefault("agent.max_tool_iters", agent.DefaultMaxToolIters)
	viper.SetDefault("agent.max_data_iters", agent.DefaultMaxDataIters)
	viper.SetDefault("agent.max_steps", agent.DefaultMaxSteps)
	viper.SetDefault("agent.history_limit", 100)
	viper.SetDefault("agent.history_token_budget", 60000)
}
