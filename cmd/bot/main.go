// Package main contains the entrypoint for the standup bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/jessevdk/go-flags"

	"github.com/edgard/standupbot/internal/bot"
	"github.com/edgard/standupbot/internal/bot/handlers"
	"github.com/edgard/standupbot/internal/bot/tasks"
	"github.com/edgard/standupbot/internal/config"
	"github.com/edgard/standupbot/internal/database"
	"github.com/edgard/standupbot/internal/extract"
	"github.com/edgard/standupbot/internal/followup"
	"github.com/edgard/standupbot/internal/logger"
	"github.com/edgard/standupbot/internal/standup"
	"github.com/edgard/standupbot/internal/telegram"
)

// Opts with all CLI options
type Opts struct {
	Config  string `short:"c" long:"config" env:"STANDUP_CONFIG" default:"./config.yaml" description:"path to configuration file"`
	Debug   bool   `long:"dbg" env:"DEBUG" description:"force debug logging"`
	Version bool   `short:"V" long:"version" description:"show version info"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx, opts)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until ctx is cancelled or the bot fails
// and returns the process exit code.
func run(ctx context.Context, opts Opts) int {
	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", opts.Config, "error", err)
		return 1
	}
	if opts.Debug {
		cfg.Logger.Level = "debug"
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Starting standup bot", "version", revision, "level", cfg.Logger.Level)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)
	if err := store.Ping(ctx); err != nil {
		log.Error("Database is not reachable", "path", cfg.Database.Path, "error", err)
		return 1
	}

	settings := standup.NewSettings(store, cfg.Standup)
	snap, err := settings.Load(ctx)
	if err != nil {
		log.Error("Failed to load standup settings", "error", err)
		return 1
	}
	log.Info("Standup settings loaded",
		"channel_id", snap.ChannelID, "timezone", snap.Location.String(), "hour", snap.Hour, "minute", snap.Minute)

	extractor, err := extract.New(ctx, cfg.Extractor, log)
	if err != nil {
		log.Error("Failed to initialize extractor", "provider", cfg.Extractor.Provider, "error", err)
		return 1
	}

	tracker := standup.NewTracker(cfg.Standup.ResponseWindow)
	hDeps := handlers.HandlerDeps{
		Logger:   log,
		Config:   cfg,
		Store:    store,
		Settings: settings,
		Tracker:  tracker,
		Service:  standup.NewService(store, extractor, settings, cfg.Messages, log),
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewStandupHandler(hDeps)),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	dispatcher := telegram.NewDispatcher(tg, settings, cfg.Messages, log,
		telegram.WithSendTimeout(cfg.Standup.DispatchTimeout))
	engine := followup.NewEngine(store, dispatcher, log,
		followup.WithLocation(settings.Location),
		followup.WithDispatchTimeout(cfg.Standup.DispatchTimeout))

	coordinator, err := bot.NewCoordinator(bot.CoordinatorDeps{
		Logger:    log,
		Settings:  settings,
		Prompter:  dispatcher,
		Tracker:   tracker,
		FollowUps: engine,
		Tasks:     tasks.RegisterAllTasks(tasks.TaskDeps{Logger: log, Store: store}),
		TaskCfg:   &cfg.Scheduler,
	}, bot.WithFollowUpLead(cfg.Standup.FollowUpLead))
	if err != nil {
		log.Error("Failed to create coordinator", "error", err)
		return 1
	}

	hDeps.Scheduler = coordinator
	if _, err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	runErr := bot.NewBot(log, tg, coordinator).Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	return 0
}
