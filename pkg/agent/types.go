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
// Package agent implements the conversational agent runtime: the per-run
// state machine that alternates between model calls and tool execution,
// the planner that narrows the toolset per turn, and the finalizer that
// produces the structured terminal response.
package agent

import "time"

// Source identifies the channel an inbound request arrived on.
const (
	SourceWhatsApp  = "whatsapp"
	SourceTelegram  = "telegram"
	SourceIMessage  = "imessage"
	SourceWebsocket = "websocket"
	SourceEmail     = "email"
	SourceScheduled = "scheduled"
	SourceRecurring = "recurring"
	SourceTriggered = "triggered"
	SourceSlack     = "slack"
	SourceDiscord   = "discord"
	SourceMCP       = "mcp"
)

// Sources lists the accepted source channel identifiers.
var Sources = []string{
	SourceWhatsApp, SourceTelegram, SourceIMessage, SourceWebsocket,
	SourceEmail, SourceScheduled, SourceRecurring, SourceTriggered,
	SourceSlack, SourceDiscord, SourceMCP,
}

// Output modalities for the final response.
const (
	ModalityText  = "text"
	ModalityVoice = "voice"
	ModalityAudio = "audio"
	ModalityImage = "image"
	ModalityVideo = "video"
	ModalityFile  = "file"
)

// FileLink references a file attached to the final response.
type FileLink struct {
	URL      string `json:"url"`
	FileType string `json:"file_type"`
	FileName string `json:"file_name"`
}

// FinalResponse is the structured terminal output of a run.
type FinalResponse struct {
	// Response is the user-facing response text. Empty when the agent
	// already messaged the user directly via a reply tool.
	Response string `json:"response"`

	// ExecutionNotes records what happened during the run for operators
	// and downstream delivery.
	ExecutionNotes string `json:"execution_notes,omitempty"`

	// DeliveryPlatform names the channel the response should go out on.
	DeliveryPlatform string `json:"delivery_platform"`

	// OutputModality is the requested output form (text, voice, image...).
	OutputModality string `json:"output_modality,omitempty"`

	// GenerationInstructions carries media generation intent for downstream
	// generators. This core records the intent only.
	GenerationInstructions string `json:"generation_instructions,omitempty"`

	// FileLinks lists files to deliver with the response.
	FileLinks []FileLink `json:"file_links,omitempty"`
}

// UserContext carries the authenticated identity a run executes as.
type UserContext struct {
	// TenantID scopes all storage and tool access
	TenantID string

	// UserID identifies the user within the tenant
	UserID string

	// Name is the user's display name, used in prompts
	Name string

	// Timezone is the user's IANA timezone
	Timezone string

	// Integrations lists the user's connected integrations
	// (e.g., "gmail", "notion"). Gates which tools exist for the run.
	Integrations []string
}

// HasIntegration reports whether the user has the named integration
// connected. Empty names are always available.
func (u *UserContext) HasIntegration(name string) bool {
	if name == "" {
		return true
	}
	for _, have := range u.Integrations {
		if have == name {
			return true
		}
	}
	return false
}

// Metadata carries per-request routing info.
type Metadata struct {
	// ConversationID scopes the message log
	ConversationID string

	// Source is the inbound channel
	Source string

	// TraceID links the run to its trace
	TraceID string

	// ScheduledTaskID is set for scheduled/recurring runs
	ScheduledTaskID string

	// ReceivedAt is when the inbound event arrived
	ReceivedAt time.Time
}

// interactiveDelivery maps an inbound source to the platform responses are
// delivered on. Non-interactive sources (scheduled, recurring, triggered,
// mcp) have no interactive channel and fall back to email.
func interactiveDelivery(source string) string {
	switch source {
	case SourceWhatsApp, SourceTelegram, SourceIMessage, SourceWebsocket,
		SourceEmail, SourceSlack, SourceDiscord:
		return source
	default:
		return SourceEmail
	}
}
