package extract

import (
	"context"

	"github.com/edgard/standupbot/internal/sanitize"
)

// PlainText runs the wrapped Extractor on the message with its Markdown and
// HTML markup removed, so "**Today:** x" reads like "Today: x".
type PlainText struct {
	next   Extractor
	policy *sanitize.Policy
}

// NewPlainText wraps next.
func NewPlainText(next Extractor) *PlainText {
	return &PlainText{next: next, policy: sanitize.NewPolicy()}
}

// Extract implements Extractor.
func (p *PlainText) Extract(ctx context.Context, text string) Result {
	return p.next.Extract(ctx, p.policy.PlainText(text))
}
