// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/orchat/internal/config"
	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/plan"
	"github.com/jeranaias/orchat/internal/resolve"
)

// ErrEmptyMessage rejects blank input.
var ErrEmptyMessage = errors.New("please enter a message")

// NoSelectionNotice is shown when the picker is dismissed.
const NoSelectionNotice = "No response was selected"

// =============================================================================
// SETTINGS
// =============================================================================

// Settings are the per-turn request settings. They are copied into each
// turn, so a change never affects a run in flight.
type Settings struct {
	Model      string
	Candidates int
	Base       plan.Params
}

// SettingsFromConfig derives Settings from the [chat] config section.
func SettingsFromConfig(c config.ChatConfig) (Settings, error) {
	effort, err := plan.ParseEffort(c.ReasoningEffort)
	if err != nil {
		return Settings{}, err
	}
	s := Settings{
		Model:      c.Model,
		Candidates: c.Candidates,
		Base: plan.Params{
			Temperature:         c.Temperature,
			ContextLength:       c.ContextLength,
			MaxCompletionTokens: c.MaxCompletionTokens,
			ReasoningEffort:     effort,
			ReasoningMaxTokens:  c.ReasoningMaxTokens,
			ExcludeReasoning:    c.ExcludeReasoning,
		},
	}
	return s, s.Validate()
}

// Validate checks the settings before they are used for a turn.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Model) == "" {
		return errors.New("no model selected")
	}
	if s.Candidates < plan.MinCandidates || s.Candidates > plan.MaxCandidates {
		return fmt.Errorf("candidates must be between %d and %d, got %d", plan.MinCandidates, plan.MaxCandidates, s.Candidates)
	}
	return s.Base.Validate()
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Notifier surfaces user-visible notices.
type Notifier interface {
	// NoResponses reports that every candidate failed. lost is the text of
	// the user message that was rolled back, for recovery.
	NoResponses(lost string)

	// Info shows a plain notice.
	Info(msg string)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns a conversation and runs turns against it.
type Controller struct {
	mu       sync.Mutex
	id       string
	started  time.Time
	settings Settings
	state    *conversation.State

	runner   orchestrator.Runner
	picker   resolve.Picker
	notifier Notifier
	logger   zerolog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithState starts the controller from an existing history.
func WithState(state *conversation.State) Option {
	return func(c *Controller) {
		if state != nil {
			c.state = state
		}
	}
}

// New returns a controller for settings.
func New(settings Settings, runner orchestrator.Runner, picker resolve.Picker, notifier Notifier, opts ...Option) (*Controller, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		id:       uuid.NewString(),
		started:  time.Now(),
		settings: settings,
		state:    conversation.New(),
		runner:   runner,
		picker:   picker,
		notifier: notifier,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string {
	return c.id
}

// Duration returns how long the session has been running.
func (c *Controller) Duration() time.Duration {
	return time.Since(c.started)
}

// Settings returns the current settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// UpdateSettings replaces the settings after validating them. Safe to call
// from another goroutine, such as a config watcher.
func (c *Controller) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	return nil
}

// SetModel switches the model for later turns.
func (c *Controller) SetModel(model string) error {
	s := c.Settings()
	s.Model = strings.TrimSpace(model)
	return c.UpdateSettings(s)
}

// SetCandidates changes how many candidates later turns request.
func (c *Controller) SetCandidates(n int) error {
	s := c.Settings()
	s.Candidates = n
	return c.UpdateSettings(s)
}

// SetTemperature changes the single-candidate temperature.
func (c *Controller) SetTemperature(t float64) error {
	s := c.Settings()
	s.Base.Temperature = t
	return c.UpdateSettings(s)
}

// History returns a copy of the conversation.
func (c *Controller) History() []conversation.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot()
}

// Len returns the number of messages.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Len()
}

// Clear drops the whole conversation. Confirmation is the caller's job.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Clear()
}

// =============================================================================
// TURNS
// =============================================================================

// Send appends text as a user message and resolves a reply to it.
func (c *Controller) Send(ctx context.Context, text string) (resolve.Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return resolve.Result{}, ErrEmptyMessage
	}

	c.mu.Lock()
	c.state.Append(conversation.NewUserMessage(text))
	snapshot := c.state.Snapshot()
	settings := c.settings
	c.mu.Unlock()

	return c.turn(ctx, snapshot, settings)
}

// Edit rewrites message index and discards everything after it. When the
// edited message is a user message the turn is rerun once on the truncated
// history and rerun is true.
func (c *Controller) Edit(ctx context.Context, index int, text string) (result resolve.Result, rerun bool, err error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return resolve.Result{}, false, ErrEmptyMessage
	}

	c.mu.Lock()
	edited, err := c.state.Edit(index, text)
	snapshot := c.state.Snapshot()
	settings := c.settings
	c.mu.Unlock()
	if err != nil {
		return resolve.Result{}, false, err
	}

	c.logger.Debug().Int("index", index).Str("role", edited.Role.String()).Msg("message edited")
	if edited.Role != conversation.RoleUser {
		return resolve.Result{}, false, nil
	}

	result, err = c.turn(ctx, snapshot, settings)
	return result, true, err
}

// turn runs one orchestration on snapshot and applies the resolution.
func (c *Controller) turn(ctx context.Context, snapshot []conversation.Message, settings Settings) (resolve.Result, error) {
	p := plan.Build(settings.Candidates, settings.Base)
	out := c.runner.Run(ctx, snapshot, settings.Model, p)

	c.logger.Info().
		Str("session", c.id).
		Str("model", settings.Model).
		Int("planned", len(p)).
		Int("received", len(out.Candidates)).
		Msg("turn finished")

	// Cancelling the run stops further requests; replies already received
	// still go to the picker
	result, err := resolve.Resolve(context.WithoutCancel(ctx), out, c.picker)
	if err != nil {
		return resolve.Result{}, err
	}

	c.mu.Lock()
	removed, ok := resolve.Apply(c.state, result)
	c.mu.Unlock()

	switch result.Kind {
	case resolve.NoResponses:
		if ok && c.notifier != nil {
			c.notifier.NoResponses(removed.Content)
		}
	case resolve.Cancelled:
		if c.notifier != nil {
			c.notifier.Info(NoSelectionNotice)
		}
	}
	return result, nil
}
