// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud talks to OpenRouter-compatible chat completion endpoints.
//
// One call is one HTTP exchange. There are no retries: a failed request is
// reported as a *RequestFailed carrying the model and the cause, and the
// caller decides what to do next.
//
// # Key Types
//
//   - Client: endpoint configuration plus the shared HTTP clients
//   - Request: model, messages and per-request sampling parameters
//   - Response: a complete, non-streamed reply
//   - Stream: a lazy, single-pass sequence of text fragments
//
// # Usage
//
//	client := cloud.NewClient(apiKey).WithSite("https://example.org", "orchat")
//
//	stream, err := client.Stream(ctx, cloud.Request{
//	    Model:       "openai/gpt-4o-mini",
//	    Messages:    []cloud.Message{{Role: "user", Content: "Hello"}},
//	    Temperature: 0.7,
//	})
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Text())
//	}
//	return stream.Err()
//
// # Stream parsing
//
// Every line is stripped of an optional "data: " prefix. Blank lines and
// ":" comment lines are keep-alives. Lines that do not decode as a chunk are
// skipped; Client.WithMaxDecodeFailures can bound how many may occur in a
// row. A literal [DONE] line or the connection closing ends the stream.
package cloud
