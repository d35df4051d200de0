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
package builtin

import (
	"context"
	"fmt"

	"github.com/teradata-labs/praxos/pkg/tools"
)

// ReplyToolPrefix is the shared name prefix of the per-platform reply
// tools. The router matches on this prefix when deciding whether a reply
// has already been delivered.
const ReplyToolPrefix = "reply_to_user_on_"

// Messenger delivers outbound messages on a platform. Implementations wrap
// the platform transport (WhatsApp, Telegram, email, websocket push).
type Messenger interface {
	// Send delivers text and optional file links to the user on the
	// messenger's platform.
	Send(ctx context.Context, text string, fileLinks []string) error

	// Platform returns the platform identifier this messenger serves.
	Platform() string
}

// ReplyTool sends a message to the user on one platform. One instance is
// assembled per run for the platform the request arrived on. A successful
// call with final_message true (the default) short-circuits the run:
// the router finalizes instead of calling the model again.
type ReplyTool struct {
	messenger Messenger
}

// NewReplyTool creates a reply tool bound to the given messenger.
func NewReplyTool(messenger Messenger) *ReplyTool {
	return &ReplyTool{messenger: messenger}
}

func (t *ReplyTool) Name() string {
	return ReplyToolPrefix + t.messenger.Platform()
}

func (t *ReplyTool) Integration() string {
	return ""
}

func (t *ReplyTool) Description() string {
	return fmt.Sprintf("Sends your reply to the user on %s. Set final_message to false only when you will send further messages in this same run; otherwise the run completes after delivery.", t.messenger.Platform())
}

func (t *ReplyTool) InputSchema() *tools.JSONSchema {
	return tools.NewObjectSchema(
		"Send a reply to the user",
		map[string]*tools.JSONSchema{
			"message": tools.NewStringSchema("The message text to deliver"),
			"final_message": tools.NewBooleanSchema("Whether this is the final message of the run").
				WithDefault(true),
			"file_links": tools.NewArraySchema(
				"Links to files to attach or reference",
				tools.NewStringSchema("File URL"),
			),
		},
		[]string{"message"},
	)
}

func (t *ReplyTool) Execute(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
	message, _ := params["message"].(string)
	if message == "" {
		return tools.MissingParameter(t.Name(), "message"), nil
	}

	var fileLinks []string
	if raw, ok := params["file_links"].([]interface{}); ok {
		for _, item := range raw {
			if s, ok := item.(string); ok {
				fileLinks = append(fileLinks, s)
			}
		}
	}

	if err := t.messenger.Send(ctx, message, fileLinks); err != nil {
		return tools.FromError(t.Name(), err, t.messenger.Platform(), nil), nil
	}

	return tools.SuccessWithMessage(map[string]interface{}{
		"delivered": true,
		"platform":  t.messenger.Platform(),
	}, message), nil
}

var _ tools.Tool = (*ReplyTool)(nil)
