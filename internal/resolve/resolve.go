// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/orchestrator"
)

// ErrCancelled is returned by a Picker when the user declines to choose.
var ErrCancelled = errors.New("selection cancelled")

// Picker presents candidates and returns the index of the one chosen.
type Picker interface {
	Pick(ctx context.Context, candidates []orchestrator.Candidate) (int, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, candidates []orchestrator.Candidate) (int, error)

// Pick implements Picker.
func (f PickerFunc) Pick(ctx context.Context, candidates []orchestrator.Candidate) (int, error) {
	return f(ctx, candidates)
}

// Kind classifies a Result.
type Kind int

const (
	// Accepted carries a message to append.
	Accepted Kind = iota
	// NoResponses means every candidate failed.
	NoResponses
	// Cancelled means the picker was dismissed.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case NoResponses:
		return "no-responses"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Result is the resolution of one outcome.
type Result struct {
	Kind Kind

	// Message is set when Kind is Accepted.
	Message conversation.Message

	// Picked is the chosen candidate's position in the outcome list.
	Picked int

	// Auto is true when a single candidate was accepted without the picker.
	Auto bool
}

// Resolve applies the resolution policy to out. The picker is only called
// when there are two or more candidates; its errors other than ErrCancelled
// are returned.
func Resolve(ctx context.Context, out orchestrator.Outcome, picker Picker) (Result, error) {
	switch len(out.Candidates) {
	case 0:
		return Result{Kind: NoResponses, Picked: -1}, nil
	case 1:
		return accept(out.Candidates, 0, true), nil
	}

	if picker == nil {
		return Result{}, errors.New("several candidates but no picker configured")
	}
	candidates := make([]orchestrator.Candidate, len(out.Candidates))
	copy(candidates, out.Candidates)

	index, err := picker.Pick(ctx, candidates)
	if err != nil {
		if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) {
			return Result{Kind: Cancelled, Picked: -1}, nil
		}
		return Result{}, fmt.Errorf("picker failed: %w", err)
	}
	if index < 0 || index >= len(candidates) {
		return Result{}, fmt.Errorf("picker returned index %d for %d candidates", index, len(candidates))
	}
	return accept(candidates, index, false), nil
}

func accept(candidates []orchestrator.Candidate, index int, auto bool) Result {
	c := candidates[index]
	return Result{
		Kind:    Accepted,
		Message: conversation.NewAssistantMessage(strings.TrimSpace(c.Content), c.Reasoning),
		Picked:  index,
		Auto:    auto,
	}
}

// Apply performs the state change for r: Accepted appends the message,
// NoResponses removes the trailing user message (returned so the caller can
// offer it back), Cancelled does nothing.
func Apply(state *conversation.State, r Result) (removed conversation.Message, ok bool) {
	switch r.Kind {
	case Accepted:
		state.Append(r.Message)
	case NoResponses:
		return state.RemoveLastIfRole(conversation.RoleUser)
	}
	return conversation.Message{}, false
}
