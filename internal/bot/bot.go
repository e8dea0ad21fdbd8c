// Package bot wires the standup bot together: the Telegram poller and the
// coordinator that owns every scheduled trigger.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Poller receives Telegram updates until ctx is cancelled.
type Poller interface {
	Start(ctx context.Context)
}

// Bot manages the lifecycle of the poller and the coordinator.
type Bot struct {
	logger      *slog.Logger
	poller      Poller
	coordinator *Coordinator
}

// NewBot creates the orchestrator.
func NewBot(logger *slog.Logger, poller Poller, coordinator *Coordinator) *Bot {
	return &Bot{
		logger:      logger.With("component", "bot_orchestrator"),
		poller:      poller,
		coordinator: coordinator,
	}
}

// Run starts the poller and the coordinator and blocks until ctx is
// cancelled or one of them fails.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.poller.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		b.logger.Info("Starting coordinator...")
		if err := b.coordinator.Start(gCtx); err != nil {
			b.logger.Error("Failed to start coordinator", "error", err)
			return fmt.Errorf("failed to start coordinator: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping coordinator...")

		if err := b.coordinator.Stop(); err != nil {
			b.logger.Error("Error stopping coordinator", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
