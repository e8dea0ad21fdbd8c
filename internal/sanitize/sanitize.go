// Package sanitize turns chat messages written with Markdown or HTML
// markup into plain text.
package sanitize

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	blockTags  = regexp.MustCompile(`<br\s*/?>|</?p>|</?div>|</?pre>|</?h[1-6]>|</?li>|</?blockquote>`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// Policy strips markup from text.
type Policy struct {
	policy   *bluemonday.Policy
	markdown goldmark.Markdown
}

// NewPolicy creates a Policy that keeps no tags at all.
func NewPolicy() *Policy {
	return &Policy{
		policy:   bluemonday.StrictPolicy(),
		markdown: goldmark.New(),
	}
}

// PlainText renders Markdown, drops every tag and returns the remaining
// text. Block boundaries become line breaks. Input that fails to render is
// returned unchanged.
func (p *Policy) PlainText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := p.markdown.Convert([]byte(text), &buf); err != nil {
		return text
	}

	out := blockTags.ReplaceAllString(buf.String(), "\n")
	out = p.policy.Sanitize(out)
	out = blankLines.ReplaceAllString(out, "\n")
	return strings.TrimSpace(html.UnescapeString(out))
}
