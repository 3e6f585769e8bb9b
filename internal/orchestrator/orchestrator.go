// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/jeranaias/orchat/internal/cloud"
	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/plan"
)

// =============================================================================
// TYPES
// =============================================================================

// Completer issues completion requests. *cloud.Client implements it.
type Completer interface {
	Stream(ctx context.Context, req cloud.Request) (*cloud.Stream, error)
	Complete(ctx context.Context, req cloud.Request) (*cloud.Response, error)
}

// Runner is what callers need from an Orchestrator.
type Runner interface {
	Run(ctx context.Context, history []conversation.Message, model string, p plan.Plan) Outcome
}

// Candidate is one successful completion.
type Candidate struct {
	Content   string
	Reasoning string

	// Index is the candidate's position in the plan.
	Index       int
	Temperature float64
}

// Failure records a candidate that was skipped.
type Failure struct {
	Index int
	Err   error
}

// Outcome is the result of a run. Candidates is in plan order. An Outcome
// with no candidates is the NoResponses case.
type Outcome struct {
	Candidates []Candidate
	Failures   []Failure

	// Cancelled is set when the context ended the run early.
	Cancelled bool
}

// NoResponses reports whether every candidate failed.
func (o Outcome) NoResponses() bool {
	return len(o.Candidates) == 0
}

// =============================================================================
// ORCHESTRATOR
// =============================================================================

// Orchestrator runs sampling plans against a Completer.
type Orchestrator struct {
	client    Completer
	observer  Observer
	logger    zerolog.Logger
	limiter   *rate.Limiter
	parallel  int
	streaming bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver sets the run observer.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the logger used to report skipped candidates.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithParallel fetches up to limit candidates at once. A limit below 2
// keeps the sequential behavior.
func WithParallel(limit int) Option {
	return func(o *Orchestrator) {
		o.parallel = limit
	}
}

// WithRateLimit spaces candidate requests to at most rps per second.
// Zero or less disables pacing.
func WithRateLimit(rps float64) Option {
	return func(o *Orchestrator) {
		if rps > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			o.limiter = nil
		}
	}
}

// WithStreaming chooses between streamed (default) and single-response
// requests.
func WithStreaming(enabled bool) Option {
	return func(o *Orchestrator) {
		o.streaming = enabled
	}
}

// New returns an Orchestrator using client.
func New(client Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:    client,
		observer:  NopObserver,
		logger:    zerolog.Nop(),
		streaming: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run carries the per-run mutable state.
type run struct {
	*Orchestrator
	model    string
	messages []cloud.Message

	mu    sync.Mutex
	total int
}

// Run attempts every entry of p against model with a private copy of
// history and returns the outcome. It never returns an error: failures are
// per candidate and end up in Outcome.Failures.
func (o *Orchestrator) Run(ctx context.Context, history []conversation.Message, model string, p plan.Plan) Outcome {
	r := &run{
		Orchestrator: o,
		model:        model,
		messages:     conversation.ToCloud(history),
	}

	slots := make([]*Candidate, len(p))
	failures := make([]error, len(p))

	if o.parallel > 1 && len(p) > 1 {
		r.runParallel(ctx, p, slots, failures)
	} else {
		r.runSequential(ctx, p, slots, failures)
	}

	var out Outcome
	for i := range p {
		switch {
		case slots[i] != nil:
			out.Candidates = append(out.Candidates, *slots[i])
		case failures[i] != nil:
			out.Failures = append(out.Failures, Failure{Index: i, Err: failures[i]})
		}
	}
	out.Cancelled = ctx.Err() != nil

	o.logger.Debug().
		Str("model", model).
		Int("planned", len(p)).
		Int("succeeded", len(out.Candidates)).
		Bool("cancelled", out.Cancelled).
		Msg("orchestration finished")

	r.notify(func() { o.observer.OnComplete(out) })
	return out
}

// Async runs Run on its own goroutine and delivers the outcome on the
// returned channel.
func (o *Orchestrator) Async(ctx context.Context, history []conversation.Message, model string, p plan.Plan) <-chan Outcome {
	snapshot := make([]conversation.Message, len(history))
	copy(snapshot, history)

	ch := make(chan Outcome, 1)
	go func() {
		ch <- o.Run(ctx, snapshot, model, p)
	}()
	return ch
}

func (r *run) runSequential(ctx context.Context, p plan.Plan, slots []*Candidate, failures []error) {
	for i, params := range p {
		if ctx.Err() != nil {
			return
		}
		cand, err := r.attempt(ctx, i, params)
		if err != nil {
			failures[i] = err
			r.failed(i, params, err)
			continue
		}
		slots[i] = cand
	}
}

func (r *run) runParallel(ctx context.Context, p plan.Plan, slots []*Candidate, failures []error) {
	var g errgroup.Group
	g.SetLimit(r.parallel)
	for i, params := range p {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			cand, err := r.attempt(ctx, i, params)
			if err != nil {
				failures[i] = err
				r.failed(i, params, err)
				return nil
			}
			slots[i] = cand
			return nil
		})
	}
	// Workers never return errors; failures are per slot
	_ = g.Wait()
}

// attempt performs one candidate request.
func (r *run) attempt(ctx context.Context, index int, params plan.Params) (*Candidate, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req := params.Request(r.model, r.messages)
	var content, reasoning string
	var err error
	if r.streaming {
		content, reasoning, err = r.stream(ctx, index, req)
	} else {
		content, reasoning, err = r.complete(ctx, index, req)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		r.logger.Warn().Int("candidate", index).Str("model", r.model).Msg("candidate finished with an empty reply")
	}
	return &Candidate{
		Content:     content,
		Reasoning:   reasoning,
		Index:       index,
		Temperature: params.Temperature,
	}, nil
}

func (r *run) stream(ctx context.Context, index int, req cloud.Request) (string, string, error) {
	s, err := r.client.Stream(ctx, req)
	if err != nil {
		return "", "", err
	}
	defer s.Close()

	var sb strings.Builder
	fragments := 0
	for s.Next() {
		sb.WriteString(s.Text())
		fragments++
		r.progress(index, fragments)
	}
	if err := s.Err(); err != nil {
		return "", "", err
	}
	return sb.String(), s.Reasoning(), nil
}

func (r *run) complete(ctx context.Context, index int, req cloud.Request) (string, string, error) {
	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return "", "", err
	}
	r.progress(index, 1)
	return resp.Content(), resp.Choices[0].Message.Reasoning, nil
}

func (r *run) progress(index, fragments int) {
	r.notify(func() {
		r.total++
		r.observer.OnProgress(Progress{Candidate: index, Fragments: fragments, Total: r.total})
	})
}

func (r *run) failed(index int, params plan.Params, err error) {
	r.logger.Warn().
		Err(err).
		Int("candidate", index+1).
		Str("model", r.model).
		Float64("temperature", params.Temperature).
		Msg("candidate failed, skipping")
	r.notify(func() { r.observer.OnFailure(index, err) })
}

// notify serializes observer calls.
func (r *run) notify(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
}
