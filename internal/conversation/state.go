// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"errors"
	"fmt"
	"time"
)

// ErrIndexOutOfRange is returned by Edit and At for an invalid index.
var ErrIndexOutOfRange = errors.New("message index out of range")

// State is the ordered message history. It is not safe for concurrent use;
// one owner mutates it and everyone else works from a Snapshot.
type State struct {
	messages []Message
}

// New returns an empty State.
func New() *State {
	return &State{}
}

// Append adds msg to the end. It always succeeds.
func (s *State) Append(msg Message) {
	s.messages = append(s.messages, msg)
}

// Edit replaces the content at index and discards every later message.
// The edited message keeps its id and role and is returned.
func (s *State) Edit(index int, content string) (Message, error) {
	if index < 0 || index >= len(s.messages) {
		return Message{}, fmt.Errorf("%w: index %d, %d messages", ErrIndexOutOfRange, index, len(s.messages))
	}

	msg := s.messages[index]
	msg.Content = content
	msg.Reasoning = ""
	msg.Timestamp = time.Now()
	s.messages[index] = msg

	// Clear the tail so dropped messages do not linger in the backing array
	clear(s.messages[index+1:])
	s.messages = s.messages[:index+1]
	return msg, nil
}

// Clear drops every message.
func (s *State) Clear() {
	s.messages = nil
}

// RemoveLastIfRole pops the final message if its role is role and reports
// whether it did.
func (s *State) RemoveLastIfRole(role Role) (Message, bool) {
	n := len(s.messages)
	if n == 0 || s.messages[n-1].Role != role {
		return Message{}, false
	}
	last := s.messages[n-1]
	s.messages[n-1] = Message{}
	s.messages = s.messages[:n-1]
	return last, true
}

// Snapshot returns an independent copy of the history.
func (s *State) Snapshot() []Message {
	if len(s.messages) == 0 {
		return []Message{}
	}
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *State) Len() int {
	return len(s.messages)
}

// IsEmpty reports whether there are no messages.
func (s *State) IsEmpty() bool {
	return len(s.messages) == 0
}

// At returns the message at index.
func (s *State) At(index int) (Message, error) {
	if index < 0 || index >= len(s.messages) {
		return Message{}, fmt.Errorf("%w: index %d, %d messages", ErrIndexOutOfRange, index, len(s.messages))
	}
	return s.messages[index], nil
}

// Last returns the final message, if any.
func (s *State) Last() (Message, bool) {
	if len(s.messages) == 0 {
		return Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}
