package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Completer sends an instruction and a user text to a language model and
// returns its raw JSON answer.
type Completer interface {
	CompleteJSON(ctx context.Context, instruction, text string) (string, error)
}

// LLM extracts fields with a language model. Every failure, including a
// timeout or an unparsable answer, falls back to another Extractor.
type LLM struct {
	completer   Completer
	fallback    Extractor
	instruction string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewLLM wraps completer. A nil fallback means Rules.
func NewLLM(completer Completer, fallback Extractor, instruction string, timeout time.Duration, logger *slog.Logger) *LLM {
	if fallback == nil {
		fallback = NewRules()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LLM{
		completer:   completer,
		fallback:    fallback,
		instruction: instruction,
		timeout:     timeout,
		logger:      logger.With("component", "llm_extractor"),
	}
}

// Extract implements Extractor.
func (l *LLM) Extract(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{}
	}

	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	raw, err := l.completer.CompleteJSON(callCtx, l.instruction, text)
	if err != nil {
		l.logger.WarnContext(ctx, "LLM extraction failed, falling back to rules", "error", err,
			"timeout", errors.Is(err, context.DeadlineExceeded))
		return l.fallback.Extract(ctx, text)
	}

	res, err := parseAnswer(raw)
	if err != nil {
		l.logger.WarnContext(ctx, "LLM returned an unusable answer, falling back to rules", "error", err, "answer", raw)
		return l.fallback.Extract(ctx, text)
	}

	l.logger.DebugContext(ctx, "LLM extraction finished", "today", res.Today != "", "tomorrow", res.Tomorrow != "")
	return res
}

type answer struct {
	TodayWork          *string `json:"today_work"`
	TomorrowCommitment *string `json:"tomorrow_commitment"`
}

// parseAnswer decodes the two-field JSON object. Models sometimes wrap JSON
// in a markdown fence or spell null as a string; both are accepted.
func parseAnswer(raw string) (Result, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Result{}, errors.New("empty answer")
	}

	var a answer
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Result{}, fmt.Errorf("invalid JSON answer: %w", err)
	}
	return Result{Today: nullable(a.TodayWork), Tomorrow: nullable(a.TomorrowCommitment)}, nil
}

func nullable(s *string) string {
	if s == nil || strings.EqualFold(strings.TrimSpace(*s), "null") {
		return ""
	}
	return clean(*s)
}
