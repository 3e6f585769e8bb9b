// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/jeranaias/orchat/internal/conversation"
	"github.com/jeranaias/orchat/internal/util"
)

// ErrNothingToExport is returned for an empty conversation.
var ErrNothingToExport = errors.New("conversation has no messages")

// =============================================================================
// HTML EXPORT
// =============================================================================

// ExportOptions configures ExportHTML.
type ExportOptions struct {
	Title string
	Model string

	// Theme is "dark" or "light". Default: "dark"
	Theme string

	// IncludeTimestamps adds a time to each message header.
	IncludeTimestamps bool

	// Now stamps the footer. Zero means time.Now.
	Now time.Time
}

// ExportHTML writes messages as a self-contained HTML page. Message bodies
// go through r; a message that fails to render is written escaped.
func ExportHTML(w io.Writer, r *HTML, messages []conversation.Message, opts ExportOptions) error {
	if len(messages) == 0 {
		return ErrNothingToExport
	}
	if r == nil {
		r = NewHTML(DefaultCodeStyle)
	}
	if opts.Title == "" {
		opts.Title = "orchat conversation"
	}
	if opts.Theme != "light" {
		opts.Theme = "dark"
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("<meta charset=\"UTF-8\">\n")
	sb.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "<title>%s</title>\n", html.EscapeString(opts.Title))
	sb.WriteString("<meta name=\"generator\" content=\"orchat\">\n")
	sb.WriteString("<style>\n")
	sb.WriteString(pageCSS)
	sb.WriteString(r.CSS())
	sb.WriteString("</style>\n</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", opts.Theme)

	sb.WriteString("<header class=\"header\">\n")
	fmt.Fprintf(&sb, "<h1>%s</h1>\n<div class=\"metadata\">\n", html.EscapeString(opts.Title))
	if opts.Model != "" {
		fmt.Fprintf(&sb, "<span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(opts.Model))
	}
	fmt.Fprintf(&sb, "<span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(messages))
	sb.WriteString("</div>\n</header>\n")

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range messages {
		writeMessage(&sb, r, msg, opts.IncludeTimestamps)
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\"><p>Exported from <strong>orchat</strong> on %s</p></footer>\n",
		opts.Now.Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// ExportHTMLFile writes the export to path atomically.
func ExportHTMLFile(path string, r *HTML, messages []conversation.Message, opts ExportOptions) error {
	var buf bytes.Buffer
	if err := ExportHTML(&buf, r, messages, opts); err != nil {
		return err
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func writeMessage(sb *strings.Builder, r *HTML, msg conversation.Message, timestamps bool) {
	role := msg.Role.String()
	if role == "" {
		role = "unknown"
	}
	fmt.Fprintf(sb, "<div class=\"message %s-message\">\n", html.EscapeString(role))
	sb.WriteString("<div class=\"message-header\">\n")
	fmt.Fprintf(sb, "<span class=\"role-label\">%s</span>\n", html.EscapeString(msg.Role.DisplayName()))
	if timestamps && !msg.Timestamp.IsZero() {
		fmt.Fprintf(sb, "<span class=\"timestamp\">%s</span>\n", msg.Timestamp.Format("15:04:05"))
	}
	sb.WriteString("</div>\n")

	if msg.Reasoning != "" {
		sb.WriteString("<details class=\"reasoning\"><summary>Reasoning</summary>\n")
		sb.WriteString(Safe(r, msg.Reasoning))
		sb.WriteString("</details>\n")
	}

	sb.WriteString("<div class=\"message-content\">\n")
	sb.WriteString(Safe(r, msg.Content))
	sb.WriteString("</div>\n</div>\n")
}

const pageCSS = `* { margin: 0; padding: 0; box-sizing: border-box; }
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
.dark-theme { background: #1e1e2e; color: #cdd6f4; }
.light-theme { background: #eff1f5; color: #4c4f69; }
.container { max-width: 900px; margin: 0 auto; padding: 2rem 1rem; }
.header { margin-bottom: 2rem; padding-bottom: 1rem; border-bottom: 1px solid #45475a; }
.header h1 { font-size: 1.6rem; margin-bottom: .5rem; }
.metadata { display: flex; gap: 1.5rem; font-size: .9rem; opacity: .8; }
.message { margin-bottom: 1.5rem; padding: 1rem 1.25rem; border-radius: 8px; }
.dark-theme .user-message { background: #313244; }
.dark-theme .assistant-message { background: #181825; border-left: 3px solid #89b4fa; }
.light-theme .user-message { background: #dce0e8; }
.light-theme .assistant-message { background: #e6e9ef; border-left: 3px solid #1e66f5; }
.system-message { font-style: italic; opacity: .8; }
.message-header { display: flex; justify-content: space-between; font-size: .85rem; margin-bottom: .5rem; font-weight: 600; }
.timestamp { font-weight: 400; opacity: .6; }
.message-content p { margin: .5rem 0; }
.message-content ul, .message-content ol { margin: .5rem 0 .5rem 1.5rem; }
.message-content table { border-collapse: collapse; margin: .5rem 0; }
.message-content th, .message-content td { border: 1px solid #585b70; padding: .25rem .5rem; }
.message-content pre { padding: .75rem; border-radius: 6px; overflow-x: auto; margin: .5rem 0; }
.reasoning { font-size: .9rem; opacity: .75; margin-bottom: .5rem; }
.footer { margin-top: 3rem; text-align: center; font-size: .8rem; opacity: .6; }
`
