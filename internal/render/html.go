// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	gmutil "github.com/yuin/goldmark/util"
)

// DefaultCodeStyle is the chroma style used for fenced code.
const DefaultCodeStyle = "monokai"

// chromaClass matches the class lists chroma emits.
var chromaClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// HTML renders markdown to sanitized HTML.
type HTML struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	code      *codeRenderer
	codeStyle *chroma.Style
}

// NewHTML builds an HTML renderer using the named chroma style for code.
// An unknown style falls back to chroma's default.
func NewHTML(codeStyle string) *HTML {
	style := chromaStyles.Get(codeStyle)
	if style == nil {
		style = chromaStyles.Fallback
	}
	code := &codeRenderer{
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.TabWidth(4)),
		style:     style,
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			renderer.WithNodeRenderers(gmutil.Prioritized(code, 200)),
		),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("class").Matching(chromaClass).OnElements("pre", "code", "span")

	return &HTML{md: md, policy: policy, code: code, codeStyle: style}
}

// Render implements Renderer.
func (h *HTML) Render(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return string(h.policy.SanitizeBytes(buf.Bytes())), nil
}

// Fallback returns text escaped for HTML inside a pre block.
func (h *HTML) Fallback(text string) string {
	return "<pre>" + html.EscapeString(text) + "</pre>"
}

// CSS returns the stylesheet for highlighted code blocks.
func (h *HTML) CSS() string {
	var buf bytes.Buffer
	if err := h.code.formatter.WriteCSS(&buf, h.codeStyle); err != nil {
		return ""
	}
	return buf.String()
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// codeRenderer replaces goldmark's fenced code output with chroma markup.
type codeRenderer struct {
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCode)
}

func (r *codeRenderer) renderFencedCode(w gmutil.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	language := ""
	if n.Info != nil {
		language = string(n.Language(source))
	}
	if err := r.highlight(w, language, code.String()); err != nil {
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.WriteString(html.EscapeString(code.String()))
		_, _ = w.WriteString("</code></pre>\n")
	}
	return ast.WalkSkipChildren, nil
}

func (r *codeRenderer) highlight(w gmutil.BufWriter, language, code string) error {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}
