package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/edgard/standupbot/internal/bot"
	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/followup"
	"github.com/edgard/standupbot/internal/standup"
)

// Scheduler is the part of the coordinator the admin commands drive.
type Scheduler interface {
	Reconfigure(hour, minute int, loc *time.Location) error
	ScheduleOneOff(minutes int) (time.Time, error)
	TriggerPrompt(ctx context.Context) error
	TriggerFollowUps(ctx context.Context, date time.Time) (followup.Report, error)
	Schedule() bot.Schedule
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger    *slog.Logger
	Config    *config.Config
	Store     database.Store
	Settings  *standup.Settings
	Tracker   *standup.Tracker
	Service   *standup.Service
	Scheduler Scheduler
	Clock     clockwork.Clock
}

// today returns the current date in the configured timezone.
func (d HandlerDeps) today() time.Time {
	clock := d.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return clock.Now().In(d.Settings.Location())
}
