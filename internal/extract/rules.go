package extract

import (
	"context"
	"regexp"
	"strings"
)

const (
	todayWord    = `today`
	tomorrowWord = `tomm?orrow`

	doneVerbs    = `(?:worked\s+on|did|completed|finished|accomplished)`
	planVerbs    = `(?:will|plan\s+to|going\s+to|gonna)`
	planActions  = `(?:(?:work\s+on|do|complete|finish)\b)?`
	sentenceStop = `\.(?:\s|$)|[!?\n]|$`
)

// stop builds the terminator of a captured phrase: the other keyword, the
// phrase's own keyword closing the sentence, a sentence terminator or the
// end of the text.
func stop(other, own string) string {
	return `(?:\s*\b` + other + `\b|\s+` + own + `\s*(?:[.!?\n]|$)|` + sentenceStop + `)`
}

// trailing matches a sentence that ends with keyword, as in "Fixed the bug
// today."
func trailing(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)(?:^|[.!?]\s+)([^.!?\n]+?)\s+` + keyword + `\s*(?:[.!?\n]|$)`)
}

// Patterns are tried in order. The trailing-keyword forms come last so a
// verb-led phrase elsewhere in the reply always wins over them.
var (
	todayPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\b` + todayWord + `\s+(?:i\s+)?` + doneVerbs + `\b\s*:?\s*(.+?)` + stop(tomorrowWord, todayWord)),
		regexp.MustCompile(`(?is)\b` + doneVerbs + `\b\s*:?\s*(.+?)` + stop(tomorrowWord, todayWord)),
		regexp.MustCompile(`(?is)\b` + todayWord + `\b\s*:?\s*([^.!?\s].*?)` + stop(tomorrowWord, todayWord)),
		trailing(todayWord),
	}

	tomorrowPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)\b` + tomorrowWord + `\s+(?:i\s+)?` + planVerbs + `\s+` + planActions + `\s*:?\s*(.+?)` + stop(todayWord, tomorrowWord)),
		regexp.MustCompile(`(?is)\b` + planVerbs + `\s+` + planActions + `\s*(.+?)` + stop(todayWord, tomorrowWord)),
		trailing(tomorrowWord),
	}

	todayKeyword    = regexp.MustCompile(`(?i)\b` + todayWord + `\b`)
	tomorrowKeyword = regexp.MustCompile(`(?i)\b` + tomorrowWord + `\b`)
	sentenceBreak   = regexp.MustCompile(`[.\n]`)

	leadingFiller = regexp.MustCompile(`(?i)^(?:on|that|the)\s+`)
	leadingDone   = regexp.MustCompile(`(?i)^(?:i\s+)?` + doneVerbs + `\b\s*:?\s*`)
	leadingPlan   = regexp.MustCompile(`(?i)^(?:i\s+)?` + planVerbs + `\s+` + `(?:(?:work\s+on|do)\b)?\s*:?\s*`)
)

// Rules is the deterministic extraction strategy. The zero value is ready to use.
type Rules struct{}

// NewRules returns the rule-based extractor.
func NewRules() Rules {
	return Rules{}
}

// Extract runs the cascade: labeled patterns, then a split on the bare
// keyword, then a two-sentence guess when no keyword appears at all.
func (Rules) Extract(_ context.Context, text string) Result {
	var res Result
	if strings.TrimSpace(text) == "" {
		return res
	}

	res.Today = firstMatch(todayPatterns, text, leadingDone)
	res.Tomorrow = firstMatch(tomorrowPatterns, text, leadingPlan)

	hasToday := todayKeyword.MatchString(text)
	hasTomorrow := tomorrowKeyword.MatchString(text)

	if res.Tomorrow == "" && hasTomorrow {
		res.Tomorrow = splitAfter(text, tomorrowKeyword, todayKeyword, leadingPlan)
	}
	if res.Today == "" && hasToday {
		res.Today = splitAfter(text, todayKeyword, tomorrowKeyword, leadingDone)
	}

	if res.Empty() && !hasToday && !hasTomorrow {
		res = sentenceGuess(text)
	}
	return res
}

// firstMatch returns the first pattern capture that survives cleaning.
// Captures of the trailing-keyword patterns still carry their verb, so the
// verb prefix is stripped before cleaning.
func firstMatch(patterns []*regexp.Regexp, text string, verbPrefix *regexp.Regexp) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := clean(verbPrefix.ReplaceAllString(strings.TrimSpace(m[1]), "")); v != "" {
			return v
		}
	}
	return ""
}

// splitAfter takes the text following the first keyword match up to the
// other keyword or the end of the sentence and strips leading filler.
func splitAfter(text string, keyword, other *regexp.Regexp, verbPrefix *regexp.Regexp) string {
	loc := keyword.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if o := other.FindStringIndex(rest); o != nil {
		rest = rest[:o[0]]
	}
	if i := sentenceEnd(rest); i >= 0 {
		rest = rest[:i]
	}

	rest = strings.TrimLeft(rest, ".,;: \t")
	rest = verbPrefix.ReplaceAllString(rest, "")
	rest = leadingFiller.ReplaceAllString(rest, "")
	return clean(rest)
}

// sentenceEnd returns the index of the first sentence terminator in s that
// follows some content, or -1.
func sentenceEnd(s string) int {
	seen := false
	for i, r := range s {
		switch {
		case r == '\n' || r == '!' || r == '?':
			if seen {
				return i
			}
		case r == '.':
			if seen && (i+1 == len(s) || s[i+1] == ' ' || s[i+1] == '\n' || s[i+1] == '\t') {
				return i
			}
		case r != ' ' && r != '\t' && r != ':' && r != ',' && r != ';':
			seen = true
		}
	}
	return -1
}

// sentenceGuess assigns the first sentence to today and the second to
// tomorrow. A single sentence is not enough to tell the fields apart.
func sentenceGuess(text string) Result {
	var sentences []string
	for _, s := range sentenceBreak.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) < 2 {
		return Result{}
	}
	return Result{Today: clean(sentences[0]), Tomorrow: clean(sentences[1])}
}
