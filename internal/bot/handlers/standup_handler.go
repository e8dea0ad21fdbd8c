package handlers

import (
	"context"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/standupbot/internal/standup"
)

// NewStandupHandler returns the default handler. It records replies to the
// standup prompt and ignores every other message.
func NewStandupHandler(deps HandlerDeps) tgbot.HandlerFunc {
	h := standupHandler{deps}
	log := deps.Logger.With("handler", "standup")

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.From == nil {
			return
		}
		in := inbound(msg)
		if !h.inScope(in) {
			return
		}

		_, _ = b.SendChatAction(ctx, &tgbot.SendChatActionParams{ChatID: msg.Chat.ID, Action: models.ChatActionTyping})

		sendReply(ctx, b, log, msg, h.respond(ctx, in))
	}
}

type standupHandler struct {
	deps HandlerDeps
}

func (h standupHandler) inScope(in standup.Inbound) bool {
	return h.deps.Tracker.InScope(in, h.deps.Settings.Current().ChannelID)
}

// respond records the reply and returns the confirmation for its author.
func (h standupHandler) respond(ctx context.Context, in standup.Inbound) string {
	conf, err := h.deps.Service.Process(ctx, in)
	if err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to process standup response",
			"handler", "standup", "user_id", in.UserID, "error", err)
		return h.deps.Config.Messages.ResponseError
	}
	return conf.Text()
}

// inbound converts a Telegram message into the standup workflow's view.
func inbound(msg *models.Message) standup.Inbound {
	in := standup.Inbound{
		ChatID:      msg.Chat.ID,
		UserID:      msg.From.ID,
		DisplayName: displayName(msg.From),
		MessageID:   int64(msg.ID),
		Text:        msg.Text,
		ReceivedAt:  time.Unix(int64(msg.Date), 0),
		FromBot:     msg.From.IsBot,
	}
	if msg.ReplyToMessage != nil {
		in.ReplyToID = int64(msg.ReplyToMessage.ID)
	}
	return in
}
