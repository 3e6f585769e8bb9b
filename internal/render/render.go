// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

// Renderer converts markdown into a display form.
type Renderer interface {
	Render(markdown string) (string, error)
}

// fallbacker is implemented by renderers that know how to present raw text
// when rendering fails.
type fallbacker interface {
	Fallback(text string) string
}

// Safe renders text with r and never fails: on error it returns the
// renderer's fallback form of text, or text itself.
func Safe(r Renderer, text string) string {
	if r != nil {
		out, err := r.Render(text)
		if err == nil {
			return out
		}
		if f, ok := r.(fallbacker); ok {
			return f.Fallback(text)
		}
	}
	return text
}

// Plain is a Renderer that returns its input unchanged. Used when output is
// not a terminal.
type Plain struct{}

// Render implements Renderer.
func (Plain) Render(markdown string) (string, error) {
	return markdown, nil
}
