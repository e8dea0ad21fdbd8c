package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/standupbot/internal/bot"
	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/errs"
	"github.com/edgard/standupbot/internal/extract"
	"github.com/edgard/standupbot/internal/followup"
	"github.com/edgard/standupbot/internal/logger"
	"github.com/edgard/standupbot/internal/standup"
)

const (
	adminID   = int64(1)
	channelID = int64(-100)
)

type fakeScheduler struct {
	mu          sync.Mutex
	schedule    bot.Schedule
	reconfigs   int
	oneOffs     []int
	prompts     int
	promptErr   error
	followDates []string
	report      followup.Report
	clock       clockwork.Clock
}

func (f *fakeScheduler) Reconfigure(hour, minute int, loc *time.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, fm := bot.FollowUpTime(hour, minute, 30*time.Minute)
	f.schedule = bot.Schedule{Hour: hour, Minute: minute, FollowUpHour: fh, FollowUpMinute: fm, Location: loc}
	f.reconfigs++
	return nil
}

func (f *fakeScheduler) ScheduleOneOff(minutes int) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.oneOffs = append(f.oneOffs, minutes)
	return f.clock.Now().Add(time.Duration(minutes) * time.Minute), nil
}

func (f *fakeScheduler) TriggerPrompt(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.promptErr != nil {
		return f.promptErr
	}
	f.prompts++
	return nil
}

func (f *fakeScheduler) TriggerFollowUps(_ context.Context, date time.Time) (followup.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := database.DateKey(date)
	f.followDates = append(f.followDates, key)
	r := f.report
	r.Date = key
	return r, nil
}

func (f *fakeScheduler) Schedule() bot.Schedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedule
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{AdminUserID: adminID, BotInfo: &models.User{Username: "standup_bot"}},
		Standup: config.StandupConfig{
			Timezone:       "UTC",
			Hour:           9,
			ResponseWindow: 3 * time.Hour,
			FollowUpLead:   30 * time.Minute,
			HistoryLimit:   5,
		},
		Messages: config.MessagesConfig{
			Welcome:           "hi @botname",
			Help:              "help",
			Unauthorized:      "nope",
			GeneralError:      "general error",
			ResponseError:     "response error",
			ParseFailed:       "could not parse",
			RecordedToday:     "today: %s",
			RecordedTomorrow:  "tomorrow: %s",
			ChannelSet:        "channel set",
			TimeSet:           "time %02d:%02d %s follow-up %02d:%02d",
			TimezoneSet:       "tz %s",
			TimeUsage:         "time usage",
			TimezoneUsage:     "tz usage",
			ScheduleUsage:     "schedule usage",
			FollowUpsUsage:    "follow-ups usage",
			HistoryUsage:      "history usage",
			ShowConfig:        "channel %s tz %s time %02d:%02d follow-up %02d:%02d",
			NotSet:            "not set",
			NoChannel:         "no channel",
			NoCommitments:     "none for %s",
			CommitmentsHeader: "commitments for %s:",
			FollowUpsDone:     "%s: %d sent, %d failed",
			StandupSent:       "sent",
			StandupScheduled:  "scheduled %s",
			NoHistory:         "no history",
			HistoryHeader:     "history:",
		},
	}
}

type fixture struct {
	deps      HandlerDeps
	cmds      commands
	store     database.Store
	scheduler *fakeScheduler
	clock     *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "handlers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })

	cfg := testConfig()
	log := logger.Discard()
	store := database.NewStore(db, log)
	settings := standup.NewSettings(store, cfg.Standup)
	_, err = settings.Load(context.Background())
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC))
	sched := &fakeScheduler{clock: clock}
	require.NoError(t, sched.Reconfigure(9, 0, time.UTC))
	sched.reconfigs = 0

	deps := HandlerDeps{
		Logger:    log,
		Config:    cfg,
		Store:     store,
		Settings:  settings,
		Tracker:   standup.NewTracker(cfg.Standup.ResponseWindow),
		Service:   standup.NewService(store, extract.NewRules(), settings, cfg.Messages, log),
		Scheduler: sched,
		Clock:     clock,
	}
	return &fixture{deps: deps, cmds: commands{deps: deps}, store: store, scheduler: sched, clock: clock}
}

func message(chatID, userID int64, text string) *models.Message {
	return &models.Message{
		ID:   10,
		Chat: models.Chat{ID: chatID},
		From: &models.User{ID: userID, FirstName: "Ann"},
		Text: text,
		Date: int(time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC).Unix()),
	}
}

var bg = context.Background()

func TestCommandArgs(t *testing.T) {
	t.Parallel()
	assert.Nil(t, commandArgs(""))
	assert.Empty(t, commandArgs("/help"))
	assert.Equal(t, []string{"9", "30"}, commandArgs("/set_time   9 30 "))
	assert.Equal(t, []string{"Europe/Berlin"}, commandArgs("/set_timezone@standup_bot Europe/Berlin"))
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Ann Lee", displayName(&models.User{FirstName: "Ann", LastName: "Lee", Username: "ann"}))
	assert.Equal(t, "Ann", displayName(&models.User{FirstName: "Ann"}))
	assert.Equal(t, "ann", displayName(&models.User{Username: "ann"}))
}

func TestRegisterAllCommands(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	registered := RegisterAllCommands(f.deps)

	for _, name := range []string{"/start", "/help", "/history"} {
		require.Contains(t, registered, name)
		assert.Empty(t, registered[name].Middleware, name)
	}
	for _, name := range []string{
		"/set_channel", "/set_time", "/set_timezone", "/show_config", "/view_commitments",
		"/test_follow_ups", "/test_standup", "/schedule_test_standup",
	} {
		require.Contains(t, registered, name)
		assert.Len(t, registered[name].Middleware, 1, name)
		assert.NotNil(t, registered[name].Handler, name)
		assert.Equal(t, name[1:], registered[name].Pattern)
	}
}

func TestAdminOnly_PassesAdmin(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	called := false
	h := AdminOnly(f.deps)(func(context.Context, *tgbot.Bot, *models.Update) { called = true })
	h(bg, nil, &models.Update{Message: message(channelID, adminID, "/show_config")})
	assert.True(t, called)

	called = false
	h(bg, nil, &models.Update{})
	assert.False(t, called, "updates without a message are dropped")
}

func TestStartAndHelp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.start(bg, message(channelID, 5, "/start"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hi @standup_bot", text)

	text, err = f.cmds.help(bg, message(channelID, 5, "/help"), nil)
	require.NoError(t, err)
	assert.Equal(t, "help", text)
}

func TestSetChannelAndShowConfig(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.showConfig(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "channel not set tz UTC time 09:00 follow-up 08:30", text)

	text, err = f.cmds.setChannel(bg, message(channelID, adminID, "/set_channel"), nil)
	require.NoError(t, err)
	assert.Equal(t, "channel set", text)

	text, err = f.cmds.showConfig(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "channel -100 tz UTC time 09:00 follow-up 08:30", text)

	stored, err := f.store.GetConfig(bg, database.KeyChannelID, "")
	require.NoError(t, err)
	assert.Equal(t, "-100", stored)
}

func TestSetTime(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.setTime(bg, nil, []string{"0", "10"})
	require.NoError(t, err)
	assert.Equal(t, "time 00:10 UTC follow-up 23:40", text)
	assert.Equal(t, 1, f.scheduler.reconfigs)

	snap := f.deps.Settings.Current()
	assert.Equal(t, 0, snap.Hour)
	assert.Equal(t, 10, snap.Minute)

	testCases := []struct {
		name string
		args []string
		want string
	}{
		{"missing minute", []string{"9"}, "time usage"},
		{"not a number", []string{"nine", "0"}, "time usage"},
		{"hour out of range", []string{"24", "0"}, "hour must be between 0 and 23"},
		{"minute out of range", []string{"9", "60"}, "minute must be between 0 and 59"},
	}
	for _, tc := range testCases {
		_, err := f.cmds.setTime(bg, nil, tc.args)
		require.Error(t, err, tc.name)
		assert.True(t, errs.IsValidation(err), tc.name)
		assert.Equal(t, tc.want, errs.UserMessage(err, ""), tc.name)
	}
	assert.Equal(t, 1, f.scheduler.reconfigs, "rejected input must not reconfigure")
}

func TestSetTimezone(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.setTimezone(bg, nil, []string{"Asia/Tokyo"})
	require.NoError(t, err)
	assert.Equal(t, "tz Asia/Tokyo", text)
	assert.Equal(t, "Asia/Tokyo", f.scheduler.Schedule().Location.String())
	assert.Equal(t, "Asia/Tokyo", f.deps.Settings.Location().String())

	for _, args := range [][]string{nil, {"Mars/Base"}, {"a", "b"}} {
		_, err := f.cmds.setTimezone(bg, nil, args)
		assert.Equal(t, "tz usage", errs.UserMessage(err, ""), "%v", args)
	}
	assert.Equal(t, 1, f.scheduler.reconfigs)
}

func TestViewCommitments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.viewCommitments(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "none for 2025-03-10", text)

	_, err = f.deps.Service.Process(bg, standup.Inbound{
		UserID: 7, DisplayName: "Bo", Text: "Today I worked on the API. Tomorrow I will write tests.",
		ReceivedAt: f.clock.Now(),
	})
	require.NoError(t, err)

	text, err = f.cmds.viewCommitments(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "commitments for 2025-03-10:\n• Bo: write tests", text)
}

func TestTestFollowUps(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.testFollowUps(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "no channel", text)
	assert.Empty(t, f.scheduler.followDates)

	require.NoError(t, f.deps.Settings.SetChannel(bg, channelID))
	f.scheduler.report = followup.Report{Total: 2, Sent: 1, Failed: 1}

	text, err = f.cmds.testFollowUps(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-09: 1 sent, 1 failed", text)

	_, err = f.cmds.testFollowUps(bg, nil, []string{"today"})
	require.NoError(t, err)
	_, err = f.cmds.testFollowUps(bg, nil, []string{"2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-03-09", "2025-03-10", "2025-01-31"}, f.scheduler.followDates)

	_, err = f.cmds.testFollowUps(bg, nil, []string{"31/01/2025"})
	assert.Equal(t, "follow-ups usage", errs.UserMessage(err, ""))

	f.scheduler.report = followup.Report{}
	text, err = f.cmds.testFollowUps(bg, nil, []string{"today"})
	require.NoError(t, err)
	assert.Equal(t, "none for 2025-03-10", text)
}

func TestTestStandup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.testStandup(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "sent", text)
	assert.Equal(t, 1, f.scheduler.prompts)

	f.scheduler.promptErr = errs.NewConfigError("no standup channel configured", nil)
	text, err = f.cmds.testStandup(bg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "no channel", text)

	f.scheduler.promptErr = errs.NewAPIError("telegram down", errors.New("timeout"))
	_, err = f.cmds.testStandup(bg, nil, nil)
	require.Error(t, err)
	assert.Equal(t, "general error", errs.UserMessage(err, "general error"))
}

func TestScheduleTestStandup(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	text, err := f.cmds.scheduleTestStandup(bg, nil, []string{"5"})
	require.NoError(t, err)
	assert.Equal(t, "no channel", text)

	require.NoError(t, f.deps.Settings.SetChannel(bg, channelID))

	text, err = f.cmds.scheduleTestStandup(bg, nil, []string{"5"})
	require.NoError(t, err)
	assert.Equal(t, "scheduled 14:05 UTC", text)
	assert.Equal(t, []int{5}, f.scheduler.oneOffs)

	for _, args := range [][]string{nil, {"0"}, {"-3"}, {"soon"}, {"1", "2"}} {
		_, err := f.cmds.scheduleTestStandup(bg, nil, args)
		assert.Equal(t, "schedule usage", errs.UserMessage(err, ""), "%v", args)
	}
	assert.Len(t, f.scheduler.oneOffs, 1)
}

func TestHistory(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	msg := message(channelID, 7, "/history")

	text, err := f.cmds.history(bg, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "no history", text)

	for i, body := range []string{
		"Today I worked on the API. Tomorrow I will write tests.",
		"idk",
		"Today: dashboards\nTomorrow: alerts",
	} {
		_, err := f.deps.Service.Process(bg, standup.Inbound{
			UserID: 7, Text: body, ReceivedAt: f.clock.Now().AddDate(0, 0, i-2),
		})
		require.NoError(t, err)
	}

	text, err = f.cmds.history(bg, msg, nil)
	require.NoError(t, err)
	assert.Equal(t, "history:\n\n📅 2025-03-10\n✅ dashboards\n📝 alerts\n\n📅 2025-03-09\nidk\n\n📅 2025-03-08\n✅ the API\n📝 write tests", text)

	text, err = f.cmds.history(bg, msg, []string{"1"})
	require.NoError(t, err)
	assert.Equal(t, "history:\n\n📅 2025-03-10\n✅ dashboards\n📝 alerts", text)

	for _, args := range [][]string{{"0"}, {"51"}, {"x"}, {"1", "2"}} {
		_, err := f.cmds.history(bg, msg, args)
		assert.Equal(t, "history usage", errs.UserMessage(err, ""), "%v", args)
	}
}

func TestStandupHandler(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	h := standupHandler{f.deps}
	require.NoError(t, f.deps.Settings.SetChannel(bg, channelID))

	msg := message(channelID, 7, "Today I worked on the API. Tomorrow I will write tests.")
	in := inbound(msg)
	assert.False(t, h.inScope(in), "no prompt sent yet")

	f.deps.Tracker.Record(3, f.clock.Now().Add(-time.Hour))
	assert.True(t, h.inScope(in))

	msg.ReplyToMessage = &models.Message{ID: 3}
	in = inbound(msg)
	assert.Equal(t, int64(3), in.ReplyToID)
	assert.True(t, h.inScope(in))

	assert.Equal(t, "today: the API\ntomorrow: write tests", h.respond(bg, in))
	assert.Equal(t, "could not parse", h.respond(bg, inbound(message(channelID, 8, "idk"))))

	assert.False(t, h.inScope(inbound(message(-200, 7, "Today x. Tomorrow y."))))

	botMsg := message(channelID, 9, "Today x. Tomorrow y.")
	botMsg.From.IsBot = true
	assert.False(t, h.inScope(inbound(botMsg)))
}
