// Package extract turns a free-text standup reply into the work done today
// and the commitment for tomorrow.
//
// Two strategies implement Extractor: Rules, a deterministic regular
// expression cascade, and LLM, which asks a language model and falls back to
// Rules on any failure. Extract never fails; a field it cannot find is empty.
package extract

import (
	"context"
	"strings"
	"unicode/utf8"
)

// MinFieldLength is the shortest field kept after trimming. Shorter values
// are treated as noise.
const MinFieldLength = 3

// Result holds the extracted fields. An empty string means "not found".
type Result struct {
	Today    string
	Tomorrow string
}

// Empty reports whether neither field was found.
func (r Result) Empty() bool {
	return r.Today == "" && r.Tomorrow == ""
}

// Extractor extracts standup fields from raw text.
type Extractor interface {
	Extract(ctx context.Context, text string) Result
}

// clean trims punctuation and whitespace from both ends and drops values
// shorter than MinFieldLength.
func clean(s string) string {
	s = strings.Trim(s, ".,;:!? \t\n\r")
	if utf8.RuneCountInString(s) < MinFieldLength {
		return ""
	}
	return s
}
