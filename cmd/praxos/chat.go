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
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/teradata-labs/praxos/pkg/agent"
	"github.com/teradata-labs/praxos/pkg/conversation"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/llm/anthropic"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with the agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, store, err := buildRunner()
		if err != nil {
			return err
		}
		defer store.Close()

		userCtx := localUserContext()
		fmt.Println("praxos chat (ctrl-d to exit)")

		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			resp := runner.Run(cmd.Context(), userCtx,
				[]agent.Input{{Text: text}}, agent.SourceWebsocket, agent.Metadata{})
			printResponse(resp)
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run a single agent turn",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runner, store, err := buildRunner()
		if err != nil {
			return err
		}
		defer store.Close()

		resp := runner.Run(cmd.Context(), localUserContext(),
			[]agent.Input{{Text: strings.Join(args, " ")}},
			agent.SourceWebsocket, agent.Metadata{})
		printResponse(resp)
		return nil
	},
}

// buildRunner wires the store, provider, and toolset catalog from config.
func buildRunner() (*agent.Runner, conversation.Store, error) {
	apiKey := viper.GetString("llm.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, nil, fmt.Errorf("no API key: set llm.api_key or ANTHROPIC_API_KEY")
	}

	store, err := conversation.NewSQLiteStore(conversation.SQLiteConfig{
		Path: viper.GetString("db.path"),
	})
	if err != nil {
		return nil, nil, err
	}

	rlConfig := llm.DefaultRateLimiterConfig()
	rlConfig.Enabled = viper.GetBool("llm.rate_limit.enabled")
	client := anthropic.NewClient(anthropic.Config{
		APIKey:            apiKey,
		Model:             viper.GetString("llm.model"),
		RateLimiterConfig: rlConfig,
	})

	assembler := agent.NewAssembler(nil)

	runner := agent.NewRunner(store, client, client, assembler,
		agent.WithMessenger(&consoleMessenger{}),
		agent.WithHistoryLimit(viper.GetInt("agent.history_limit")),
		agent.WithHistoryTokenBudget(viper.GetInt("agent.history_token_budget")),
		agent.WithMaxToolIters(viper.GetInt("agent.max_tool_iters")),
		agent.WithMaxDataIters(viper.GetInt("agent.max_data_iters")),
		agent.WithMaxSteps(viper.GetInt("agent.max_steps")),
	)
	return runner, store, nil
}

func localUserContext() agent.UserContext {
	return agent.UserContext{
		TenantID: viper.GetString("tenant"),
		UserID:   viper.GetString("user"),
		Name:     viper.GetString("user"),
		Timezone: "UTC",
	}
}

func printResponse(resp *agent.FinalResponse) {
	if resp == nil {
		fmt.Println("(no response)")
		return
	}
	if resp.Response != "" {
		fmt.Println(resp.Response)
	}
	if resp.ExecutionNotes != "" {
		fmt.Printf("  [%s]\n", resp.ExecutionNotes)
	}
	for _, link := range resp.FileLinks {
		fmt.Printf("  file: %s (%s)\n", link.URL, link.FileName)
	}
}

// consoleMessenger delivers agent replies straight to stdout. It stands in
// for the websocket channel in CLI sessions.
type consoleMessenger struct{}

func (m *consoleMessenger) Platform() string { return agent.SourceWebsocket }

func (m *consoleMessenger) Send(_ context.Context, text string, fileLinks []string) error {
	fmt.Println(text)
	for _, link := range fileLinks {
		fmt.Printf("  file: %s\n", link)
	}
	return nil
}
