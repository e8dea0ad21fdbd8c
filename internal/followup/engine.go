// Package followup re-surfaces yesterday's commitments to their authors.
//
// A commitment is Open until a follow-up message for it is delivered, then
// Sent for good. A run dispatches every Open commitment of one date, marks
// each delivered one as Sent and skips over failures without retrying them.
package followup

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/standupbot/internal/database"
)

// Store is the persistence the engine needs.
type Store interface {
	ListOpenFollowUpsOn(ctx context.Context, date time.Time) ([]database.Commitment, error)
	MarkFollowUpSent(ctx context.Context, responseID int64, sentOn time.Time) error
}

// Dispatcher delivers one follow-up message.
type Dispatcher interface {
	SendFollowUp(ctx context.Context, c database.Commitment) error
}

// Report summarizes a run.
type Report struct {
	Date   string
	Total  int
	Sent   int
	Failed int
}

// Engine runs follow-ups.
type Engine struct {
	store      Store
	dispatcher Dispatcher
	clock      clockwork.Clock
	location   func() *time.Location
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to date follow-ups.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLocation sets the timezone follow-ups are dated in.
func WithLocation(loc func() *time.Location) Option {
	return func(e *Engine) { e.location = loc }
}

// WithDispatchTimeout bounds each dispatch.
func WithDispatchTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// NewEngine creates an engine.
func NewEngine(store Store, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := &Engine{
		store:      store,
		dispatcher: dispatcher,
		clock:      clockwork.NewRealClock(),
		location:   func() *time.Location { return time.UTC },
		timeout:    15 * time.Second,
		logger:     logger.With("component", "follow_up_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run follows up on the open commitments made on date. Only a failure to
// list commitments is returned; per-commitment failures are logged and
// counted in the report.
func (e *Engine) Run(ctx context.Context, date time.Time) (Report, error) {
	report := Report{Date: database.DateKey(date)}

	open, err := e.store.ListOpenFollowUpsOn(ctx, date)
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to list open follow-ups", "date", report.Date, "error", err)
		return report, err
	}
	report.Total = len(open)

	if len(open) == 0 {
		e.logger.InfoContext(ctx, "No open commitments to follow up", "date", report.Date)
		return report, nil
	}

	today := e.clock.Now().In(e.location())
	for _, c := range open {
		if err := e.dispatch(ctx, c); err != nil {
			e.logger.WarnContext(ctx, "Follow-up dispatch failed, continuing",
				"response_id", c.ResponseID, "user_id", c.UserID, "error", err)
			report.Failed++
			continue
		}

		if err := e.store.MarkFollowUpSent(ctx, c.ResponseID, today); err != nil {
			e.logger.ErrorContext(ctx, "Follow-up sent but not recorded",
				"response_id", c.ResponseID, "user_id", c.UserID, "error", err)
			report.Failed++
			continue
		}
		report.Sent++
	}

	e.logger.InfoContext(ctx, "Follow-up run finished",
		"date", report.Date, "total", report.Total, "sent", report.Sent, "failed", report.Failed)
	return report, nil
}

func (e *Engine) dispatch(ctx context.Context, c database.Commitment) error {
	dctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.dispatcher.SendFollowUp(dctx, c)
}
