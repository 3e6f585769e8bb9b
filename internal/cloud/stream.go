// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// =============================================================================
// STREAM CHUNK
// =============================================================================

// StreamChunk is one decoded line of a streamed completion.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role      string `json:"role,omitempty"`
			Content   string `json:"content,omitempty"`
			Reasoning string `json:"reasoning,omitempty"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason,omitempty"`
	} `json:"choices"`
	Usage *Usage          `json:"usage,omitempty"`
	Error json.RawMessage `json:"error,omitempty"`
}

// Content returns the content delta of the first choice.
func (c *StreamChunk) Content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// ReasoningDelta returns the reasoning delta of the first choice.
func (c *StreamChunk) ReasoningDelta() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Reasoning
	}
	return ""
}

// FinishReason returns the finish reason of the first choice, if any.
func (c *StreamChunk) FinishReason() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].FinishReason
	}
	return ""
}

// =============================================================================
// STREAM
// =============================================================================

// Stream is a lazy, finite, single-pass sequence of text fragments. Each
// call to Next blocks until the transport delivers the next content line.
// A Stream is not safe for concurrent use, except Close.
type Stream struct {
	ctx               context.Context
	model             string
	body              io.ReadCloser
	reader            *bufio.Reader
	maxDecodeFailures int
	logger            zerolog.Logger

	text         string
	reasoning    strings.Builder
	finishReason string
	usage        *Usage
	err          error
	done         bool

	consecutiveFailures int
	skipped             int

	closeOnce sync.Once
}

// Stream sends req with streaming enabled. It returns once the response
// headers arrive; fragments are read lazily through the returned Stream,
// which the caller must Close.
func (c *Client) Stream(ctx context.Context, req Request) (*Stream, error) {
	if !c.IsConfigured() {
		return nil, &RequestFailed{Model: req.Model, Err: ErrNotConfigured}
	}
	req.Stream = true

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, &RequestFailed{Model: req.Model, Err: err}
	}
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, &RequestFailed{Model: req.Model, Err: fmt.Errorf("request failed: %w", err)}
	}
	c.logger.Debug().
		Str("model", req.Model).
		Int("status", resp.StatusCode).
		Float64("temperature", req.Temperature).
		Dur("ttfb", time.Since(start)).
		Msg("stream opened")

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := readResponse(resp)
		return nil, &RequestFailed{Model: req.Model, Err: handleErrorResponse(resp.StatusCode, body)}
	}

	return newStream(ctx, req.Model, resp.Body, c.maxDecodeFailures, c.logger), nil
}

// newStream wraps an open response body.
func newStream(ctx context.Context, model string, body io.ReadCloser, maxDecodeFailures int, logger zerolog.Logger) *Stream {
	return &Stream{
		ctx:               ctx,
		model:             model,
		body:              body,
		reader:            bufio.NewReaderSize(body, 64*1024),
		maxDecodeFailures: maxDecodeFailures,
		logger:            logger,
	}
}

// Next advances to the next non-empty content fragment. It returns false at
// end of stream or on failure; Err distinguishes the two. The body is closed
// once Next returns false.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	for {
		line, err := s.readLine()
		if len(line) > 0 {
			text, stop := s.handleLine(line)
			if stop {
				s.finish()
				return false
			}
			if text != "" {
				s.text = text
				return true
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.fail(fmt.Errorf("stream read failed: %w", err))
			}
			s.finish()
			return false
		}
	}
}

// readLine returns the next line without its terminator. A final line with
// no trailing newline is returned together with io.EOF.
func (s *Stream) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		line = append(line, chunk...)
		if err != nil {
			if s.ctx != nil && s.ctx.Err() != nil {
				return nil, s.ctx.Err()
			}
			return line, err
		}
		if len(line) > maxLineSize {
			return nil, fmt.Errorf("stream line exceeds %d bytes", maxLineSize)
		}
		if !isPrefix {
			return line, nil
		}
	}
}

// handleLine processes one raw line. It returns the content fragment, if
// any, and whether the stream is over.
func (s *Stream) handleLine(raw []byte) (string, bool) {
	line := bytes.TrimSpace(raw)
	if len(line) == 0 || line[0] == ':' {
		return "", false
	}
	line = bytes.TrimSpace(bytes.TrimPrefix(line, []byte("data:")))
	if bytes.Equal(line, []byte("[DONE]")) {
		return "", true
	}

	var chunk StreamChunk
	if err := json.Unmarshal(line, &chunk); err != nil {
		return "", s.decodeFailed(&DecodeError{Line: string(line), Err: err})
	}
	s.consecutiveFailures = 0

	if apiErr := parseAPIError(chunk.Error, http.StatusOK); apiErr != nil {
		s.fail(mapStatus(apiErr))
		return "", true
	}

	if r := chunk.ReasoningDelta(); r != "" {
		s.reasoning.WriteString(r)
	}
	if fr := chunk.FinishReason(); fr != "" {
		s.finishReason = fr
	}
	if chunk.Usage != nil {
		s.usage = chunk.Usage
	}
	return chunk.Content(), false
}

// decodeFailed records a skipped line and reports whether the cap is hit.
func (s *Stream) decodeFailed(derr *DecodeError) bool {
	s.skipped++
	s.consecutiveFailures++
	s.logger.Debug().Str("model", s.model).Err(derr).Msg("skipping stream line")

	if s.maxDecodeFailures > 0 && s.consecutiveFailures >= s.maxDecodeFailures {
		s.fail(fmt.Errorf("%w (%d in a row): %w", ErrTooManyDecodeFailures, s.consecutiveFailures, derr))
		return true
	}
	return false
}

func (s *Stream) fail(err error) {
	if s.err == nil {
		s.err = &RequestFailed{Model: s.model, Err: err}
	}
}

func (s *Stream) finish() {
	s.done = true
	s.text = ""
	s.Close()
}

// Text returns the fragment produced by the last successful Next.
func (s *Stream) Text() string {
	return s.text
}

// Err returns the failure that ended the stream, or nil if it ended
// normally. Failures are always *RequestFailed.
func (s *Stream) Err() error {
	return s.err
}

// Reasoning returns the reasoning text accumulated so far.
func (s *Stream) Reasoning() string {
	return s.reasoning.String()
}

// FinishReason returns the last finish reason reported by the server.
func (s *Stream) FinishReason() string {
	return s.finishReason
}

// Usage returns token usage if the server reported it.
func (s *Stream) Usage() *Usage {
	return s.usage
}

// Skipped returns how many lines were dropped as undecodable.
func (s *Stream) Skipped() int {
	return s.skipped
}

// Close releases the connection. It is safe to call more than once and
// from another goroutine to abort a blocked Next.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
	})
	return err
}

// Fragments adapts the stream to a range-over-func sequence. A failure is
// yielded once as the final pair. The stream is closed when iteration stops.
func (s *Stream) Fragments() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		defer s.Close()
		for s.Next() {
			if !yield(s.Text(), nil) {
				return
			}
		}
		if err := s.Err(); err != nil {
			yield("", err)
		}
	}
}

// Collect drains the stream, calling onFragment for each fragment, and
// returns the concatenated content.
func (s *Stream) Collect(onFragment func(string)) (string, error) {
	var sb strings.Builder
	for frag, err := range s.Fragments() {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
		if onFragment != nil {
			onFragment(frag)
		}
	}
	return sb.String(), nil
}
