// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// Race detection tests for the controller. Run with:
//
//	go test -race ./internal/session/...

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/orchestrator"
	"github.com/jeranaias/orchat/internal/plan"
)

// =============================================================================
// TEST CONFIGURATION
// =============================================================================

const (
	// Number of concurrent goroutines for race tests
	raceConcurrency = 20
	// Number of iterations per goroutine
	raceIterations = 25
	// Timeout for race tests
	raceTimeout = 30 * time.Second
)

// echoRunner answers every run with one reply per planned candidate.
type echoRunner struct {
	runs atomic.Int64
}

func (r *echoRunner) Run(ctx context.Context, history []conversation.Message, model string, p plan.Plan) orchestrator.Outcome {
	r.runs.Add(1)
	var out orchestrator.Outcome
	for i, params := range p {
		if ctx.Err() != nil {
			out.Cancelled = true
			break
		}
		out.Candidates = append(out.Candidates, orchestrator.Candidate{
			Content:     fmt.Sprintf("reply to %d messages", len(history)),
			Index:       i,
			Temperature: params.Temperature,
		})
	}
	return out
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestConcurrency_SettingsReadWrite(t *testing.T) {
	c, err := New(testSettings(1), &echoRunner{}, nil, &recordingNotifier{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if ctx.Err() != nil {
					return
				}
				s := c.Settings()
				assert.NoError(t, s.Validate())
			}
		}()
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if ctx.Err() != nil {
					return
				}
				_ = c.SetCandidates(plan.Clamp(idx%plan.MaxCandidates + 1))
				_ = c.SetModel(fmt.Sprintf("vendor/model-%d", idx))
				_ = c.SetTemperature(float64(j%20) / 10)
			}
		}(i)
	}
	wg.Wait()

	assert.NoError(t, c.Settings().Validate())
}

// =============================================================================
// TURNS
// =============================================================================

func TestConcurrency_SendWithReaders(t *testing.T) {
	runner := &echoRunner{}
	notifier := &recordingNotifier{}
	c, err := New(testSettings(1), runner, nil, notifier)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), raceTimeout)
	defer cancel()

	var wg sync.WaitGroup
	var sent atomic.Int64
	for i := 0; i < raceConcurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < raceIterations; j++ {
				if ctx.Err() != nil {
					return
				}
				_, err := c.Send(ctx, fmt.Sprintf("message %d-%d", idx, j))
				if assert.NoError(t, err) {
					sent.Add(1)
				}
			}
		}(i)
	}

	writersDone := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-writersDone:
				return
			default:
			}
			for _, m := range c.History() {
				assert.NotEmpty(t, m.Content)
			}
			_ = c.Len()
		}
	}()

	wg.Wait()
	close(writersDone)
	<-readerDone

	assert.Equal(t, int(2*sent.Load()), c.Len())
	assert.Equal(t, sent.Load(), runner.runs.Load())
}

func TestConcurrency_UpdateDuringTurn(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var seen plan.Plan
	runner := runnerFunc(func(ctx context.Context, history []conversation.Message, model string, p plan.Plan) orchestrator.Outcome {
		seen = p
		close(started)
		<-release
		return orchestrator.Outcome{Candidates: []orchestrator.Candidate{{Content: "done"}}}
	})

	c, err := New(testSettings(1), runner, nil, &recordingNotifier{})
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "hello")
		errCh <- err
	}()

	<-started
	require.NoError(t, c.SetCandidates(4))
	close(release)
	require.NoError(t, <-errCh)

	// The running turn kept the settings it started with
	assert.Len(t, seen, 1)
	assert.Equal(t, 4, c.Settings().Candidates)
	assert.Equal(t, 2, c.Len())
}

type runnerFunc func(ctx context.Context, history []conversation.Message, model string, p plan.Plan) orchestrator.Outcome

func (f runnerFunc) Run(ctx context.Context, history []conversation.Message, model string, p plan.Plan) orchestrator.Outcome {
	return f(ctx, history, model, p)
}
