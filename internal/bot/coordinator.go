package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/standupbot/internal/bot/tasks"
	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/errs"
	"github.com/edgard/standupbot/internal/followup"
	"github.com/edgard/standupbot/internal/logger"
	"github.com/edgard/standupbot/internal/standup"
)

const (
	jobPrompt   = "standup_prompt"
	jobFollowUp = "standup_follow_up"
	jobOneOff   = "standup_one_off"

	tagStandup     = "standup"
	tagMaintenance = "maintenance"
)

// PromptSender posts the standup prompt.
type PromptSender interface {
	SendPrompt(ctx context.Context) (standup.Prompt, error)
}

// PromptRecorder remembers the last delivered prompt.
type PromptRecorder interface {
	Record(messageID int64, sentAt time.Time)
}

// FollowUpRunner runs the follow-ups of one commitment date.
type FollowUpRunner interface {
	Run(ctx context.Context, date time.Time) (followup.Report, error)
}

// SettingsSource provides the current runtime settings.
type SettingsSource interface {
	Current() standup.Snapshot
}

// CoordinatorDeps are the collaborators of a Coordinator.
type CoordinatorDeps struct {
	Logger    *slog.Logger
	Settings  SettingsSource
	Prompter  PromptSender
	Tracker   PromptRecorder
	FollowUps FollowUpRunner
	Tasks     map[string]tasks.ScheduledTaskFunc
	TaskCfg   *config.SchedulerConfig
}

// Schedule describes the active recurring triggers.
type Schedule struct {
	Hour           int
	Minute         int
	FollowUpHour   int
	FollowUpMinute int
	Location       *time.Location
}

// Coordinator owns the scheduler: the daily prompt, the daily follow-up run
// ahead of it, one-off prompts and the maintenance tasks. At most one trigger
// body runs at a time, whether fired by the scheduler or by an admin.
type Coordinator struct {
	scheduler gocron.Scheduler
	clock     clockwork.Clock
	logger    *slog.Logger
	deps      CoordinatorDeps
	lead      time.Duration
	timeout   time.Duration

	mu          sync.Mutex
	running     bool
	schedule    Schedule
	promptJob   uuid.UUID
	followUpJob uuid.UUID

	ctxMu   sync.RWMutex
	baseCtx context.Context
	cancel  context.CancelFunc

	runMu sync.Mutex
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*coordinatorOptions)

type coordinatorOptions struct {
	clock   clockwork.Clock
	lead    time.Duration
	timeout time.Duration
}

// WithClock drives the scheduler with c instead of the wall clock.
func WithClock(c clockwork.Clock) CoordinatorOption {
	return func(o *coordinatorOptions) { o.clock = c }
}

// WithFollowUpLead sets how long before the prompt the follow-ups run.
func WithFollowUpLead(d time.Duration) CoordinatorOption {
	return func(o *coordinatorOptions) { o.lead = d }
}

// WithTriggerTimeout bounds a single trigger body.
func WithTriggerTimeout(d time.Duration) CoordinatorOption {
	return func(o *coordinatorOptions) { o.timeout = d }
}

// NewCoordinator creates a stopped coordinator.
func NewCoordinator(deps CoordinatorDeps, opts ...CoordinatorOption) (*Coordinator, error) {
	o := coordinatorOptions{
		clock:   clockwork.NewRealClock(),
		lead:    30 * time.Minute,
		timeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	log := deps.Logger.With("component", "coordinator")

	loc := deps.Settings.Current().Location
	if loc == nil {
		loc = time.UTC
	}

	s, err := gocron.NewScheduler(
		gocron.WithClock(o.clock),
		gocron.WithLocation(loc),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
		gocron.WithLogger(logger.NewGocronLogger(deps.Logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Coordinator{
		scheduler: s,
		clock:     o.clock,
		logger:    log,
		deps:      deps,
		lead:      o.lead,
		timeout:   o.timeout,
		baseCtx:   context.Background(),
		cancel:    func() {},
	}, nil
}

// Start registers the maintenance tasks and the standup triggers from the
// current settings, then starts the scheduler. Trigger bodies run with a
// context derived from ctx.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("coordinator is already running")
	}

	c.ctxMu.Lock()
	c.baseCtx, c.cancel = context.WithCancel(ctx)
	c.ctxMu.Unlock()

	c.registerTasks()

	snap := c.deps.Settings.Current()
	if err := c.replaceTriggers(snap.Hour, snap.Minute, snap.Location); err != nil {
		c.cancelJobs()
		return err
	}

	c.scheduler.Start()
	c.running = true
	c.logger.InfoContext(ctx, "Coordinator started",
		"prompt", fmt.Sprintf("%02d:%02d", c.schedule.Hour, c.schedule.Minute),
		"follow_up", fmt.Sprintf("%02d:%02d", c.schedule.FollowUpHour, c.schedule.FollowUpMinute),
		"timezone", c.schedule.Location.String())
	return nil
}

// Stop shuts the scheduler down, waiting for running trigger bodies.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	err := c.scheduler.Shutdown()
	if err != nil {
		c.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		c.logger.Info("Coordinator stopped")
	}
	c.cancelJobs()
	c.running = false
	return err
}

// Reconfigure replaces both standup triggers. Triggers of the previous
// configuration never fire afterwards.
func (c *Coordinator) Reconfigure(hour, minute int, loc *time.Location) error {
	if err := standup.ValidateTime(hour, minute); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.schedule
	if err := c.replaceTriggers(hour, minute, loc); err != nil {
		if previous.Location != nil {
			if restoreErr := c.replaceTriggers(previous.Hour, previous.Minute, previous.Location); restoreErr != nil {
				c.logger.Error("Failed to restore previous triggers", "error", restoreErr)
			}
		}
		return err
	}

	c.logger.Info("Standup triggers reconfigured",
		"prompt", fmt.Sprintf("%02d:%02d", hour, minute),
		"follow_up", fmt.Sprintf("%02d:%02d", c.schedule.FollowUpHour, c.schedule.FollowUpMinute),
		"timezone", c.schedule.Location.String())
	return nil
}

// ScheduleOneOff schedules a single prompt the given number of minutes from
// now without touching the recurring triggers.
func (c *Coordinator) ScheduleOneOff(minutes int) (time.Time, error) {
	if minutes < 1 {
		return time.Time{}, errs.NewValidationError("minutes must be at least 1", nil)
	}

	at := c.clock.Now().Add(time.Duration(minutes) * time.Minute)
	_, err := c.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(func() {
			c.runJob(jobOneOff, c.runPrompt)
		}),
		gocron.WithName(jobOneOff),
		gocron.WithTags(tagStandup),
	)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to schedule one-off prompt: %w", err)
	}

	c.logger.Info("One-off prompt scheduled", "at", at)
	return at, nil
}

// TriggerPrompt dispatches the prompt now.
func (c *Coordinator) TriggerPrompt(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.runPrompt(ctx)
}

// TriggerFollowUps runs the follow-ups of date now.
func (c *Coordinator) TriggerFollowUps(ctx context.Context, date time.Time) (followup.Report, error) {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.deps.FollowUps.Run(ctx, date)
}

// Schedule returns the active recurring triggers.
func (c *Coordinator) Schedule() Schedule {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule
}

// Jobs lists every registered job.
func (c *Coordinator) Jobs() []gocron.Job {
	return c.scheduler.Jobs()
}

// NextRuns returns the next fire times of the prompt and follow-up triggers.
func (c *Coordinator) NextRuns() (prompt, followUp time.Time, err error) {
	c.mu.Lock()
	promptID, followUpID := c.promptJob, c.followUpJob
	c.mu.Unlock()

	for _, j := range c.scheduler.Jobs() {
		next, nextErr := j.NextRun()
		if nextErr != nil {
			return time.Time{}, time.Time{}, nextErr
		}
		switch j.ID() {
		case promptID:
			prompt = next
		case followUpID:
			followUp = next
		}
	}
	return prompt, followUp, nil
}

// FollowUpTime returns the wall-clock time lead before hour:minute,
// wrapping across midnight.
func FollowUpTime(hour, minute int, lead time.Duration) (int, int) {
	const day = 24 * 60
	total := hour*60 + minute - int(lead/time.Minute)
	total = ((total % day) + day) % day
	return total / 60, total % 60
}

// replaceTriggers swaps the recurring standup jobs. Callers hold c.mu.
func (c *Coordinator) replaceTriggers(hour, minute int, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	fuHour, fuMinute := FollowUpTime(hour, minute, c.lead)

	for _, id := range []uuid.UUID{c.promptJob, c.followUpJob} {
		if id == uuid.Nil {
			continue
		}
		if err := c.scheduler.RemoveJob(id); err != nil {
			c.logger.Warn("Failed to remove standup trigger", "job_id", id, "error", err)
		}
	}
	c.promptJob, c.followUpJob = uuid.Nil, uuid.Nil

	prompt, err := c.scheduler.NewJob(
		gocron.CronJob(dailyCrontab(loc, hour, minute), false),
		gocron.NewTask(func() {
			c.runJob(jobPrompt, c.runPrompt)
		}),
		gocron.WithName(jobPrompt),
		gocron.WithTags(tagStandup),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule standup prompt: %w", err)
	}

	followUp, err := c.scheduler.NewJob(
		gocron.CronJob(dailyCrontab(loc, fuHour, fuMinute), false),
		gocron.NewTask(func() {
			c.runJob(jobFollowUp, c.runFollowUps)
		}),
		gocron.WithName(jobFollowUp),
		gocron.WithTags(tagStandup),
	)
	if err != nil {
		if rmErr := c.scheduler.RemoveJob(prompt.ID()); rmErr != nil {
			c.logger.Warn("Failed to remove standup trigger", "job_id", prompt.ID(), "error", rmErr)
		}
		return fmt.Errorf("failed to schedule follow-ups: %w", err)
	}

	c.promptJob, c.followUpJob = prompt.ID(), followUp.ID()
	c.schedule = Schedule{
		Hour:           hour,
		Minute:         minute,
		FollowUpHour:   fuHour,
		FollowUpMinute: fuMinute,
		Location:       loc,
	}
	return nil
}

// dailyCrontab pins a daily time to a timezone independent of the
// scheduler's location.
func dailyCrontab(loc *time.Location, hour, minute int) string {
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", loc.String(), minute, hour)
}

// registerTasks schedules the enabled maintenance tasks. Callers hold c.mu.
func (c *Coordinator) registerTasks() {
	cfg := c.deps.TaskCfg
	if cfg == nil || len(cfg.Tasks) == 0 {
		c.logger.Info("No maintenance tasks configured")
		return
	}

	scheduled := 0
	for taskName, taskConfig := range cfg.Tasks {
		if !taskConfig.Enabled {
			c.logger.Info("Skipping disabled task", "task_name", taskName)
			continue
		}
		taskFunc, exists := c.deps.Tasks[taskName]
		if !exists {
			c.logger.Warn("Scheduled task configured but not found in registry, skipping", "task_name", taskName)
			continue
		}

		_, err := c.scheduler.NewJob(
			gocron.CronJob(taskConfig.Schedule, true),
			gocron.NewTask(func() {
				c.runJob(taskName, taskFunc)
			}),
			gocron.WithName(taskName),
			gocron.WithTags(tagMaintenance),
		)
		if err != nil {
			c.logger.Error("Failed to schedule task", "task_name", taskName, "schedule", taskConfig.Schedule, "error", err)
			continue
		}
		c.logger.Info("Scheduled task", "task_name", taskName, "schedule", taskConfig.Schedule)
		scheduled++
	}
	c.logger.Info("Maintenance tasks scheduled", "count", scheduled)
}

// runJob runs a trigger body with a bounded context and logs its outcome.
func (c *Coordinator) runJob(name string, fn func(ctx context.Context) error) {
	c.ctxMu.RLock()
	base := c.baseCtx
	c.ctxMu.RUnlock()

	ctx, cancel := context.WithTimeout(base, c.timeout)
	defer cancel()

	c.logger.InfoContext(ctx, "Running scheduled job", "job", name)
	startTime := c.clock.Now()
	if err := fn(ctx); err != nil {
		if errs.Code(err) == errs.CodeConfig {
			c.logger.WarnContext(ctx, "Scheduled job skipped", "job", name, "reason", err)
			return
		}
		c.logger.ErrorContext(ctx, "Scheduled job failed", "job", name, "error", err)
		return
	}
	c.logger.InfoContext(ctx, "Finished scheduled job", "job", name, "duration", c.clock.Since(startTime))
}

func (c *Coordinator) cancelJobs() {
	c.ctxMu.RLock()
	defer c.ctxMu.RUnlock()
	c.cancel()
}

func (c *Coordinator) runPrompt(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	if !c.deps.Settings.Current().HasChannel() {
		return errs.NewConfigError("no standup channel configured", nil)
	}

	prompt, err := c.deps.Prompter.SendPrompt(ctx)
	if err != nil {
		return err
	}
	c.deps.Tracker.Record(prompt.MessageID, prompt.SentAt)
	return nil
}

func (c *Coordinator) runFollowUps(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()

	snap := c.deps.Settings.Current()
	if !snap.HasChannel() {
		return errs.NewConfigError("no standup channel configured", nil)
	}

	loc := snap.Location
	if loc == nil {
		loc = time.UTC
	}
	yesterday := c.clock.Now().In(loc).AddDate(0, 0, -1)

	report, err := c.deps.FollowUps.Run(ctx, yesterday)
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "Follow-ups finished", "date", report.Date, "sent", report.Sent, "failed", report.Failed)
	return nil
}
