package handlers

import (
	tgbot "github.com/go-telegram/bot"
)

// RegisteredHandler represents a command handler with its middleware.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
	MatchType   tgbot.MatchType
}

// RegisterAllCommands returns every slash command keyed by its name.
func RegisterAllCommands(deps HandlerDeps) map[string]RegisteredHandler {
	c := commands{deps: deps}
	handlers := make(map[string]RegisteredHandler)

	public := map[string]commandFunc{
		"start":   c.start,
		"help":    c.help,
		"history": c.history,
	}
	admin := map[string]commandFunc{
		"set_channel":           c.setChannel,
		"set_time":              c.setTime,
		"set_timezone":          c.setTimezone,
		"show_config":           c.showConfig,
		"view_commitments":      c.viewCommitments,
		"test_follow_ups":       c.testFollowUps,
		"test_standup":          c.testStandup,
		"schedule_test_standup": c.scheduleTestStandup,
	}

	for name, fn := range public {
		handlers["/"+name] = command(deps, name, fn)
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}
	for name, fn := range admin {
		h := command(deps, name, fn)
		h.Middleware = adminMiddleware
		handlers["/"+name] = h
	}

	return handlers
}

func command(deps HandlerDeps, name string, fn commandFunc) RegisteredHandler {
	return RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     name,
		Handler:     newCommandHandler(deps, name, fn),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
}
