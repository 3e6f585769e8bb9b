// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jeranaias/orchat/internal/ui/styles"
	"github.com/jeranaias/orchat/internal/util"
)

// NotAvailable is shown for a missing value.
const NotAvailable = "N/A"

var printer = message.NewPrinter(language.English)

// FormatContext renders a context size as thousands, e.g. 128000 -> "128K".
func FormatContext(tokens int) string {
	if tokens <= 0 {
		return NotAvailable
	}
	return fmt.Sprintf("%dK", tokens/1000)
}

// FormatTokens renders a token count with digit grouping.
func FormatTokens(tokens int) string {
	if tokens <= 0 {
		return NotAvailable
	}
	return printer.Sprintf("%d", tokens)
}

// FormatPrice converts a per-token price string into dollars per million
// tokens. Unparseable prices are returned unchanged.
func FormatPrice(raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		if raw == "" {
			return NotAvailable
		}
		return raw
	}
	return fmt.Sprintf("$%.2f/M tokens", v*1_000_000)
}

// FormatPricing renders every price kind, prompt and completion first.
func FormatPricing(pricing map[string]string) string {
	if len(pricing) == 0 {
		return NotAvailable
	}
	keys := make([]string, 0, len(pricing))
	for k := range pricing {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := priceRank(keys[i]), priceRank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + FormatPrice(pricing[k])
	}
	return strings.Join(parts, ", ")
}

func priceRank(kind string) int {
	switch kind {
	case "prompt":
		return 0
	case "completion":
		return 1
	default:
		return 2
	}
}

// FormatCreated renders a creation date.
func FormatCreated(t time.Time) string {
	if t.IsZero() {
		return NotAvailable
	}
	return t.Format("2006-01-02")
}

// =============================================================================
// TABLE
// =============================================================================

type column struct {
	title string
	width int
	value func(Model) string
}

func columns(width int) []column {
	cols := []column{
		{title: "ID", width: 40, value: func(m Model) string { return m.ID }},
		{title: "NAME", width: 34, value: func(m Model) string { return m.Name }},
		{title: "CONTEXT", width: 8, value: func(m Model) string { return FormatContext(m.ContextLength) }},
		{title: "PROMPT", width: 16, value: func(m Model) string { return FormatPrice(m.Pricing["prompt"]) }},
		{title: "COMPLETION", width: 16, value: func(m Model) string { return FormatPrice(m.Pricing["completion"]) }},
	}
	if width <= 0 {
		return cols
	}

	// Shrink the id and name columns to fit, keeping at least 12 each
	total := len(cols) - 1
	for _, c := range cols {
		total += c.width
	}
	for excess := total - width; excess > 0; {
		shrunk := false
		for _, i := range []int{1, 0} {
			if excess > 0 && cols[i].width > 12 {
				cols[i].width--
				excess--
				shrunk = true
			}
		}
		if !shrunk {
			break
		}
	}
	return cols
}

// WriteTable writes models as an aligned table fitted to width columns.
// A width of zero disables fitting.
func WriteTable(w io.Writer, models []Model, width int) error {
	cols := columns(width)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = util.PadWidth(c.title, c.width)
	}
	if _, err := fmt.Fprintln(w, styles.TableHeader.Render(strings.Join(header, " "))); err != nil {
		return err
	}

	for _, m := range models {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = util.PadWidth(util.TruncateWidth(c.value(m), c.width), c.width)
		}
		if _, err := fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " ")); err != nil {
			return err
		}
	}
	return nil
}

// Describe renders every field of m for a detail view.
func Describe(m Model) string {
	var sb strings.Builder
	sb.WriteString(styles.Title.Render(m.DisplayName()))
	sb.WriteString("\n")

	field := func(label, value string) {
		sb.WriteString(styles.Label.Render(util.PadWidth(label+":", 16)))
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	field("ID", m.ID)
	field("Created", FormatCreated(m.Created))
	field("Context", FormatContext(m.ContextLength)+" ("+FormatTokens(m.ContextLength)+" tokens)")
	field("Max completion", FormatTokens(m.MaxCompletionTokens))
	field("Pricing", FormatPricing(m.Pricing))

	if desc := strings.TrimSpace(m.Description); desc != "" {
		sb.WriteString("\n")
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	return sb.String()
}
