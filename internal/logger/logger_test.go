package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/standupbot/internal/errs"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for input, want := range testCases {
		assert.Equal(t, want, ParseLevel(input), "level %q", input)
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	log := New(&buf, "warn", true)
	log.Info("hidden")
	log.Warn("shown", "component", "test")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"component":"test"`)
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"this is too long", 10, "this is..."},
		{"abc", 2, "..."},
		{"héllo wörld", 8, "héllo..."},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, truncateString(tc.input, tc.maxLen), "input %q", tc.input)
	}
}

func TestProcessSchedulerArgs(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		code string
	}{
		{"not found", gocron.ErrJobNotFound, errs.CodeValidation},
		{"duplicate", errors.New("duplicate job name"), errs.CodeValidation},
		{"shutdown", errors.New("scheduler shutdown"), errs.CodeConfig},
		{"other", errors.New("boom"), errs.CodeConfig},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := processSchedulerArgs("job", "prompt", "error", tc.err)
			require.Len(t, out, 4)
			assert.Equal(t, "prompt", out[1])

			wrapped, ok := out[3].(error)
			require.True(t, ok)
			assert.Equal(t, tc.code, errs.Code(wrapped))
			assert.ErrorIs(t, wrapped, tc.err)
		})
	}
}

func TestProcessSchedulerArgs_OddAndPlain(t *testing.T) {
	t.Parallel()

	out := processSchedulerArgs("name", "x", "dangling")
	assert.Equal(t, []any{"name", "x", "dangling"}, out)

	plain := errors.New("not under the error key")
	out = processSchedulerArgs("cause", plain)
	assert.Same(t, plain, out[1])
}

func TestGocronLogger_Writes(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	l := NewGocronLogger(New(&buf, "debug", false))
	l.Error("job failed", "error", errors.New("boom"))

	assert.Contains(t, buf.String(), "component=gocron")
	assert.Contains(t, buf.String(), "scheduler error: boom")
}
