// Package handlers contains the Telegram command and message handlers of the
// standup bot, their registration and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/standupbot/internal/errs"
)

// AdminOnly lets only the configured admin through. Everyone else gets the
// unauthorized notice.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				return
			}

			if isAdmin(deps, update.Message.From.ID) {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "AdminOnly")
			log.WarnContext(ctx, "Unauthorized access attempt",
				"user_id", update.Message.From.ID,
				"chat_id", chatID,
				"error", errs.NewUnauthorizedError("command restricted to the standup admin"))

			if _, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.Unauthorized,
			}); err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
			}
		}
	}
}

func isAdmin(deps HandlerDeps, userID int64) bool {
	return userID != 0 && userID == deps.Config.Telegram.AdminUserID
}
