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
	"fmt"
	"strings"
	"time"
)

// ScheduledNotePrefix marks the system-injected note that precedes
// scheduled, recurring, and triggered runs. The router transitions straight
// to tool execution when it sees this note so time-triggered commands never
// stall waiting for user confirmation.
const ScheduledNotePrefix = "NOTE: This command was previously"

// ScheduledNote builds the injected note for a time-triggered run.
func ScheduledNote(source string) string {
	return fmt.Sprintf("%s scheduled by the user and is now being executed automatically (%s). Execute the required tools immediately; do not ask for confirmation.", ScheduledNotePrefix, source)
}

// maxRetriesMessage tells the user retries were exhausted. The guidance
// from the last error is appended when available.
func maxRetriesMessage(guidance string) string {
	msg := "The maximum number of retries has been reached and the operation could not be completed."
	if guidance != "" {
		msg += "\n\nLast failure:\n" + guidance
	}
	msg += "\n\nExplain to the user what went wrong and suggest what they could try instead."
	return msg
}

// obtainDataDirective instructs the model to consolidate every missing
// field into a single question via the probe tool.
const obtainDataDirective = "Some required information is missing from the user's request. Call the ask_user_for_missing_params tool exactly once, consolidating ALL missing fields into a single clear question. Do not ask piecemeal and do not call any other tool first."

// stalledPlanReminder nudges the model back toward tool use when planning
// chose tools but no tool call has been made yet.
func stalledPlanReminder(plan string) string {
	msg := "The request requires tool use but no tool has been called yet. Execute the plan using the available tools instead of replying conversationally."
	if plan != "" {
		msg += "\n\nPlan:\n" + plan
	}
	return msg
}

// apologeticResponse is the generic user-facing failure response. Technical
// detail goes into execution notes, never to the user.
func apologeticResponse(source string) *FinalResponse {
	return &FinalResponse{
		Response:         "I'm sorry, something went wrong while handling your request. Please try again in a moment.",
		DeliveryPlatform: interactiveDelivery(source),
		OutputModality:   ModalityText,
	}
}

// BuildSystemPrompt constructs the per-run system prompt from the user's
// identity, the inbound channel, and the planner's output.
func BuildSystemPrompt(userCtx UserContext, metadata Metadata, plan string, now time.Time) string {
	var b strings.Builder

	b.WriteString("You are Praxos, a personal assistant that acts on the user's behalf across their connected services.\n\n")

	name := userCtx.Name
	if name == "" {
		name = "the user"
	}
	tz := userCtx.Timezone
	if tz == "" {
		tz = "UTC"
	}
	fmt.Fprintf(&b, "You are assisting %s. Their timezone is %s. The current time is %s.\n",
		name, tz, now.Format(time.RFC1123))
	fmt.Fprintf(&b, "This conversation arrived via %s.\n", metadata.Source)

	if len(userCtx.Integrations) > 0 {
		fmt.Fprintf(&b, "Connected integrations: %s.\n", strings.Join(userCtx.Integrations, ", "))
	} else {
		b.WriteString("The user has no integrations connected; only built-in tools are available.\n")
	}

	b.WriteString(`
Rules:
- Use tools to act; never claim you performed an action without calling the matching tool.
- When you have finished, either call the reply tool for the user's channel or answer in plain text.
- If required information is missing, ask for all of it in one consolidated question.
- Report progress on multi-step work with report_plan_step.
- Never expose technical error details to the user; explain failures plainly and suggest next steps.`)

	if plan != "" {
		b.WriteString("\n\nPlan for this turn:\n")
		b.WriteString(plan)
	}

	return b.String()
}
