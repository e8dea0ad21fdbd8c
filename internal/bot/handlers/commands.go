package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/edgard/standupbot/internal/bot"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/errs"
)

const maxHistory = 50

// commands implements every slash command.
type commands struct {
	deps HandlerDeps
}

func (c commands) start(context.Context, *models.Message, []string) (string, error) {
	return c.withBotName(c.deps.Config.Messages.Welcome), nil
}

func (c commands) help(context.Context, *models.Message, []string) (string, error) {
	return c.withBotName(c.deps.Config.Messages.Help), nil
}

func (c commands) withBotName(text string) string {
	if info := c.deps.Config.Telegram.BotInfo; info != nil && info.Username != "" {
		return strings.ReplaceAll(text, "@botname", "@"+info.Username)
	}
	return text
}

func (c commands) setChannel(ctx context.Context, msg *models.Message, _ []string) (string, error) {
	if err := c.deps.Settings.SetChannel(ctx, msg.Chat.ID); err != nil {
		return "", err
	}
	return c.deps.Config.Messages.ChannelSet, nil
}

func (c commands) setTime(ctx context.Context, _ *models.Message, args []string) (string, error) {
	usage := errs.NewValidationError(c.deps.Config.Messages.TimeUsage, nil)
	if len(args) != 2 {
		return "", usage
	}
	hour, err := strconv.Atoi(args[0])
	if err != nil {
		return "", usage
	}
	minute, err := strconv.Atoi(args[1])
	if err != nil {
		return "", usage
	}

	if err := c.deps.Settings.SetTime(ctx, hour, minute); err != nil {
		return "", err
	}
	return c.reconfigure()
}

func (c commands) setTimezone(ctx context.Context, _ *models.Message, args []string) (string, error) {
	if len(args) != 1 {
		return "", errs.NewValidationError(c.deps.Config.Messages.TimezoneUsage, nil)
	}
	if err := c.deps.Settings.SetTimezone(ctx, args[0]); err != nil {
		if errs.IsValidation(err) {
			return "", errs.NewValidationError(c.deps.Config.Messages.TimezoneUsage, err)
		}
		return "", err
	}
	if _, err := c.reconfigure(); err != nil {
		return "", err
	}
	return fmt.Sprintf(c.deps.Config.Messages.TimezoneSet, args[0]), nil
}

// reconfigure moves the triggers to the current settings.
func (c commands) reconfigure() (string, error) {
	snap := c.deps.Settings.Current()
	if err := c.deps.Scheduler.Reconfigure(snap.Hour, snap.Minute, snap.Location); err != nil {
		return "", err
	}
	sched := c.deps.Scheduler.Schedule()
	return fmt.Sprintf(c.deps.Config.Messages.TimeSet,
		sched.Hour, sched.Minute, sched.Location.String(), sched.FollowUpHour, sched.FollowUpMinute), nil
}

func (c commands) showConfig(context.Context, *models.Message, []string) (string, error) {
	snap := c.deps.Settings.Current()
	channel := c.deps.Config.Messages.NotSet
	if snap.HasChannel() {
		channel = strconv.FormatInt(snap.ChannelID, 10)
	}
	fuHour, fuMinute := bot.FollowUpTime(snap.Hour, snap.Minute, c.deps.Config.Standup.FollowUpLead)
	return fmt.Sprintf(c.deps.Config.Messages.ShowConfig,
		channel, snap.Location.String(), snap.Hour, snap.Minute, fuHour, fuMinute), nil
}

func (c commands) viewCommitments(ctx context.Context, _ *models.Message, _ []string) (string, error) {
	today := c.deps.today()
	commitments, err := c.deps.Store.ListCommitmentsOn(ctx, today)
	if err != nil {
		return "", err
	}
	date := database.DateKey(today)
	if len(commitments) == 0 {
		return fmt.Sprintf(c.deps.Config.Messages.NoCommitments, date), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(c.deps.Config.Messages.CommitmentsHeader, date))
	for _, cm := range commitments {
		sb.WriteString(fmt.Sprintf("\n• %s: %s", nameOrID(cm.Username, cm.UserID), cm.Text))
	}
	return sb.String(), nil
}

func (c commands) testFollowUps(ctx context.Context, _ *models.Message, args []string) (string, error) {
	if len(args) > 1 {
		return "", errs.NewValidationError(c.deps.Config.Messages.FollowUpsUsage, nil)
	}
	if !c.deps.Settings.Current().HasChannel() {
		return c.deps.Config.Messages.NoChannel, nil
	}

	today := c.deps.today()
	date := today.AddDate(0, 0, -1)
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "today":
			date = today
		case "yesterday":
		default:
			parsed, err := time.ParseInLocation(database.DateLayout, args[0], today.Location())
			if err != nil {
				return "", errs.NewValidationError(c.deps.Config.Messages.FollowUpsUsage, err)
			}
			date = parsed
		}
	}

	report, err := c.deps.Scheduler.TriggerFollowUps(ctx, date)
	if err != nil {
		return "", err
	}
	if report.Total == 0 {
		return fmt.Sprintf(c.deps.Config.Messages.NoCommitments, report.Date), nil
	}
	return fmt.Sprintf(c.deps.Config.Messages.FollowUpsDone, report.Date, report.Sent, report.Failed), nil
}

func (c commands) testStandup(ctx context.Context, _ *models.Message, _ []string) (string, error) {
	if err := c.deps.Scheduler.TriggerPrompt(ctx); err != nil {
		if errs.Code(err) == errs.CodeConfig {
			return c.deps.Config.Messages.NoChannel, nil
		}
		return "", err
	}
	return c.deps.Config.Messages.StandupSent, nil
}

func (c commands) scheduleTestStandup(_ context.Context, _ *models.Message, args []string) (string, error) {
	usage := errs.NewValidationError(c.deps.Config.Messages.ScheduleUsage, nil)
	if len(args) != 1 {
		return "", usage
	}
	minutes, err := strconv.Atoi(args[0])
	if err != nil || minutes < 1 {
		return "", usage
	}
	if !c.deps.Settings.Current().HasChannel() {
		return c.deps.Config.Messages.NoChannel, nil
	}

	at, err := c.deps.Scheduler.ScheduleOneOff(minutes)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(c.deps.Config.Messages.StandupScheduled, at.In(c.deps.Settings.Location()).Format("15:04 MST")), nil
}

func (c commands) history(ctx context.Context, msg *models.Message, args []string) (string, error) {
	limit := c.deps.Config.Standup.HistoryLimit
	if len(args) > 1 {
		return "", errs.NewValidationError(c.deps.Config.Messages.HistoryUsage, nil)
	}
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 || n > maxHistory {
			return "", errs.NewValidationError(c.deps.Config.Messages.HistoryUsage, err)
		}
		limit = n
	}

	responses, err := c.deps.Store.RecentResponsesFor(ctx, msg.From.ID, limit)
	if err != nil {
		return "", err
	}
	if len(responses) == 0 {
		return c.deps.Config.Messages.NoHistory, nil
	}

	var sb strings.Builder
	sb.WriteString(c.deps.Config.Messages.HistoryHeader)
	for _, r := range responses {
		sb.WriteString("\n\n📅 " + r.ResponseDate)
		if !r.TodayWork.Valid && !r.TomorrowCommitment.Valid {
			sb.WriteString("\n" + truncate(r.RawMessage, 200))
			continue
		}
		if r.TodayWork.Valid {
			sb.WriteString("\n✅ " + r.TodayWork.String)
		}
		if r.TomorrowCommitment.Valid {
			sb.WriteString("\n📝 " + r.TomorrowCommitment.String)
		}
	}
	return sb.String(), nil
}

func nameOrID(name string, id int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("user %d", id)
}
