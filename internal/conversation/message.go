// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the wire name of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is one turn of the conversation. Messages are values; State hands
// out copies.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Reasoning string    `json:"reasoning,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message with a fresh id.
func NewMessage(role Role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message with optional reasoning.
func NewAssistantMessage(content, reasoning string) Message {
	m := NewMessage(RoleAssistant, content)
	m.Reasoning = reasoning
	return m
}

// Preview returns the first line of the content fitted to width columns.
func (m Message) Preview(width int) string {
	return util.FirstLine(m.Content, width)
}

// ToCloud converts messages to the request wire format. Reasoning is not
// sent back to the model.
func ToCloud(messages []Message) []cloud.Message {
	out := make([]cloud.Message, len(messages))
	for i, m := range messages {
		out[i] = cloud.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
