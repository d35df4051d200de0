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
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/praxos/internal/log"
	"github.com/teradata-labs/praxos/pkg/llm"
	"github.com/teradata-labs/praxos/pkg/tools"
)

// Finalize produces the terminal structured response for the run.
//
// Fast path: when a reply tool already delivered a final message, the
// response is essentially empty, annotated with which messaging tools
// fired. Fallback: a structured-output model call repackages the tail of
// the conversation into the output schema.
func Finalize(ctx context.Context, state *RunState) *FinalResponse {
	var resp *FinalResponse
	if fired := deliveredReplyTools(state); len(fired) > 0 {
		resp = &FinalResponse{
			ExecutionNotes:   "User was messaged directly via: " + strings.Join(fired, ", "),
			DeliveryPlatform: interactiveDelivery(state.Metadata.Source),
			OutputModality:   ModalityText,
		}
	} else {
		var err error
		resp, err = finalizeFallback(ctx, state)
		if err != nil {
			log.Warn("finalize fallback failed", zap.Error(err))
			resp = finalizeFromLastAssistant(state)
		}
	}
	resp.FileLinks = drainMediaBus(state, resp.FileLinks)
	return resp
}

// drainMediaBus merges the run's media references into the response file
// links, keyed by URL so refs the model already listed are not duplicated.
// Ordered by placeholder so finalizing twice yields the same links.
func drainMediaBus(state *RunState, links []FileLink) []FileLink {
	if state.Media == nil {
		return links
	}
	refs := state.Media.All()
	if len(refs) == 0 {
		return links
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Placeholder < refs[j].Placeholder })

	seen := make(map[string]bool, len(links))
	for _, link := range links {
		seen[link.URL] = true
	}
	for _, ref := range refs {
		if ref.URL == "" || seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		links = append(links, FileLink{
			URL:      ref.URL,
			FileType: ref.MediaType,
			FileName: ref.FileName,
		})
	}
	return links
}

// deliveredReplyTools returns the sorted, de-duplicated names of reply
// tools that fired with final_message true. Deterministic for a given
// tool-call list, so finalizing twice yields equivalent notes.
func deliveredReplyTools(state *RunState) []string {
	seen := make(map[string]bool)
	for _, msg := range state.Messages {
		if !msg.IsAssistant() {
			continue
		}
		for _, call := range msg.ToolCalls {
			if !isFinalReplyCall(call) {
				continue
			}
			if result := state.ToolResultFor(call.ID); result != nil && !result.ToolResult.IsError() {
				seen[call.Name] = true
			}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	fired := make([]string, 0, len(seen))
	for name := range seen {
		fired = append(fired, name)
	}
	sort.Strings(fired)
	return fired
}

// finalizeFallback asks a structured-output model call to repackage the
// conversation tail into the output schema.
func finalizeFallback(ctx context.Context, state *RunState) (*FinalResponse, error) {
	if state.Config.Structured == nil {
		return nil, fmt.Errorf("no structured provider bound")
	}

	tail := conversationTail(state.Messages)
	platform := interactiveDelivery(state.Metadata.Source)

	instruction := fmt.Sprintf(`Repackage the final content of this conversation into the response schema.
Rules:
- delivery_platform must be %q unless the user explicitly requested a different channel.
- Scheduled, recurring, and triggered runs can never target the websocket channel.
- If the user asked for media (voice, image, video), set output_modality and generation_instructions describing what to generate; do not generate it yourself.
- The response text must read as a direct reply to the user.`, platform)

	messages := make([]llm.Message, 0, len(tail)+2)
	messages = append(messages, llm.NewSystemMessage(state.Config.SystemPrompt))
	messages = append(messages, tail...)
	messages = append(messages, llm.NewUserMessage(instruction))

	var out FinalResponse
	if err := state.Config.Structured.ChatStructured(ctx, messages, "final_response", finalResponseSchema(), &out); err != nil {
		return nil, err
	}

	if out.DeliveryPlatform == "" {
		out.DeliveryPlatform = platform
	}
	if out.OutputModality == "" {
		out.OutputModality = ModalityText
	}
	return &out, nil
}

// finalizeFromLastAssistant builds a best-effort response when even the
// fallback model call failed.
func finalizeFromLastAssistant(state *RunState) *FinalResponse {
	for i := len(state.Messages) - 1; i >= 0; i-- {
		msg := state.Messages[i]
		if msg.IsAssistant() && msg.Content != "" {
			return &FinalResponse{
				Response:         msg.Content,
				ExecutionNotes:   "structured finalization unavailable, used last assistant text",
				DeliveryPlatform: interactiveDelivery(state.Metadata.Source),
				OutputModality:   ModalityText,
			}
		}
	}
	return apologeticResponse(state.Metadata.Source)
}

// conversationTail isolates the most recent user message through the end
// of the history.
func conversationTail(messages []llm.Message) []llm.Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i:]
		}
	}
	return messages
}

// finalResponseSchema is the structured output schema for the finalize
// fallback.
func finalResponseSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"The structured terminal response of an agent run",
		map[string]*tools.JSONSchema{
			"response":        tools.NewStringSchema("User-facing response text"),
			"execution_notes": tools.NewStringSchema("Notes on what was done during the run"),
			"delivery_platform": tools.NewStringSchema("Channel to deliver the response on").
				WithEnum("email", "whatsapp", "websocket", "telegram", "imessage", "slack", "discord"),
			"output_modality": tools.NewStringSchema("Requested output form").
				WithEnum(ModalityText, ModalityVoice, ModalityAudio, ModalityImage, ModalityVideo, ModalityFile),
			"generation_instructions": tools.NewStringSchema("Instructions for downstream media generation, if any"),
			"file_links": tools.NewArraySchema("Files to deliver with the response",
				tools.NewObjectSchema("A file reference", map[string]*tools.JSONSchema{
					"url":       tools.NewStringSchema("File URL"),
					"file_type": tools.NewStringSchema("File MIME type or extension"),
					"file_name": tools.NewStringSchema("Display name"),
				}, []string{"url"})),
		},
		[]string{"response", "delivery_platform"},
	)
}
