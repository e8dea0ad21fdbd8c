package telegram

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/errs"
	"github.com/edgard/standupbot/internal/standup"
)

// MessageSender is the part of *bot.Bot the dispatcher uses.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// ChannelSource provides the current standup channel.
type ChannelSource interface {
	Current() standup.Snapshot
}

const (
	labelToday      = "Today's Question"
	labelTomorrow   = "Tomorrow's Question"
	labelHowTo      = "How to Respond"
	labelCommitment = "🎯 Your Commitment"
	labelStatus     = "❓ Status"
	timestampLayout = "Mon, 02 Jan 2006 15:04 MST"
)

// Dispatcher posts the standup prompt and follow-up cards to the standup
// channel.
type Dispatcher struct {
	sender   MessageSender
	settings ChannelSource
	messages config.MessagesConfig
	clock    clockwork.Clock
	timeout  time.Duration
	logger   *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSendTimeout bounds every send.
func WithSendTimeout(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) { disp.timeout = d }
}

// WithDispatchClock sets the clock used for card timestamps.
func WithDispatchClock(c clockwork.Clock) DispatcherOption {
	return func(disp *Dispatcher) { disp.clock = c }
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(sender MessageSender, settings ChannelSource, messages config.MessagesConfig, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	d := &Dispatcher{
		sender:   sender,
		settings: settings,
		messages: messages,
		clock:    clockwork.NewRealClock(),
		timeout:  15 * time.Second,
		logger:   logger.With("component", "dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SendPrompt posts the daily prompt and returns its message ID and the
// time Telegram dated it.
func (d *Dispatcher) SendPrompt(ctx context.Context) (standup.Prompt, error) {
	chatID, err := d.channel()
	if err != nil {
		return standup.Prompt{}, err
	}

	msg, err := d.send(ctx, chatID, d.renderPrompt(d.timestamp()))
	if err != nil {
		return standup.Prompt{}, errs.NewAPIError("failed to send standup prompt", err)
	}

	sentAt := time.Unix(int64(msg.Date), 0)
	if msg.Date == 0 {
		sentAt = d.clock.Now().Truncate(time.Second)
	}

	d.logger.InfoContext(ctx, "Standup prompt sent", "chat_id", chatID, "message_id", msg.ID, "sent_at", sentAt)
	return standup.Prompt{MessageID: int64(msg.ID), SentAt: sentAt}, nil
}

// SendFollowUp posts a follow-up card mentioning the commitment's author.
func (d *Dispatcher) SendFollowUp(ctx context.Context, c database.Commitment) error {
	chatID, err := d.channel()
	if err != nil {
		return err
	}

	if _, err := d.send(ctx, chatID, d.renderFollowUp(c, d.timestamp())); err != nil {
		return errs.NewAPIError(fmt.Sprintf("failed to send follow-up for response %d", c.ResponseID), err)
	}

	d.logger.InfoContext(ctx, "Follow-up sent", "chat_id", chatID, "response_id", c.ResponseID, "user_id", c.UserID)
	return nil
}

func (d *Dispatcher) channel() (int64, error) {
	snap := d.settings.Current()
	if !snap.HasChannel() {
		return 0, errs.NewConfigError("no standup channel configured", nil)
	}
	return snap.ChannelID, nil
}

func (d *Dispatcher) send(ctx context.Context, chatID int64, text string) (*models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	msg, err := d.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, fmt.Errorf("empty send result")
	}
	return msg, nil
}

func (d *Dispatcher) timestamp() string {
	now := d.clock.Now()
	if loc := d.settings.Current().Location; loc != nil {
		now = now.In(loc)
	}
	return now.Format(timestampLayout)
}

func (d *Dispatcher) renderPrompt(ts string) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(d.messages.PromptTitle) + "</b>\n")
	sb.WriteString(html.EscapeString(d.messages.PromptDescription) + "\n\n")
	writeField(&sb, labelToday, html.EscapeString(d.messages.PromptToday))
	writeField(&sb, labelTomorrow, html.EscapeString(d.messages.PromptTomorrow))
	writeField(&sb, labelHowTo, html.EscapeString(d.messages.PromptHowTo))
	sb.WriteString("<i>" + html.EscapeString(ts) + "</i>")
	return sb.String()
}

func (d *Dispatcher) renderFollowUp(c database.Commitment, ts string) string {
	var sb strings.Builder
	sb.WriteString("<b>" + html.EscapeString(d.messages.FollowUpTitle) + "</b>\n")
	sb.WriteString(fmt.Sprintf(html.EscapeString(d.messages.FollowUpDescription), mention(c), html.EscapeString(humanDate(c.CommitmentDate))))
	sb.WriteString("\n\n")
	writeField(&sb, labelCommitment, "<blockquote>"+html.EscapeString(c.Text)+"</blockquote>")
	writeField(&sb, labelStatus, html.EscapeString(d.messages.FollowUpStatus))
	sb.WriteString("<i>" + html.EscapeString(ts) + "</i>")
	return sb.String()
}

// writeField appends a bold label followed by an already escaped value.
func writeField(sb *strings.Builder, label, value string) {
	sb.WriteString("<b>" + html.EscapeString(label) + "</b>\n")
	sb.WriteString(value + "\n\n")
}

// mention links to the user so Telegram notifies them even without a username.
func mention(c database.Commitment) string {
	name := c.Username
	if name == "" {
		name = fmt.Sprintf("user %d", c.UserID)
	}
	return fmt.Sprintf(`<a href="tg://user?id=%d">%s</a>`, c.UserID, html.EscapeString(name))
}

func humanDate(date string) string {
	t, err := time.Parse(database.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}
