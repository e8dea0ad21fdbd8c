package handlers

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/standupbot/internal/errs"
)

const (
	sendMessageTimeout = 10 * time.Second
	maxMessageLength   = 4096
)

// commandFunc computes the reply to a command. args excludes the command
// itself. A ValidationError's message is shown to the user as is; any other
// error becomes the generic error notice.
type commandFunc func(ctx context.Context, msg *models.Message, args []string) (string, error)

// newCommandHandler adapts fn to a Telegram handler that logs the command
// and sends its reply.
func newCommandHandler(deps HandlerDeps, name string, fn commandFunc) tgbot.HandlerFunc {
	log := deps.Logger.With("handler", name)

	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
			return
		}
		msg := update.Message
		log.InfoContext(ctx, "Handling command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

		text, err := fn(ctx, msg, commandArgs(msg.Text))
		if err != nil {
			if errs.IsValidation(err) {
				log.InfoContext(ctx, "Command rejected", "reason", err)
			} else {
				log.ErrorContext(ctx, "Command failed", "error", err, "code", errs.Code(err))
			}
			text = errs.UserMessage(err, deps.Config.Messages.GeneralError)
		}
		if text == "" {
			return
		}
		sendReply(ctx, b, log, msg, text)
	}
}

// commandArgs splits the text after the command word.
func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	return fields[1:]
}

// sendReply answers msg in its chat.
func sendReply(ctx context.Context, b *tgbot.Bot, log *slog.Logger, msg *models.Message, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &tgbot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            truncate(text, maxMessageLength),
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err, "chat_id", msg.Chat.ID)
	}
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen-3]) + "..."
}

// displayName is the name shown for a user in confirmations and cards.
func displayName(u *models.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}
