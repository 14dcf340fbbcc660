package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/season-engine/repositories"
)

// TickRunner advances every game on a fixed interval. Cancellation is only
// observed between advances, a started batch always runs to its end.
type TickRunner struct {
	advance  AdvanceService
	games    repositories.GameRepository
	interval time.Duration
	logger   *slog.Logger
}

func NewTickRunner(advance AdvanceService, games repositories.GameRepository, interval time.Duration, logger *slog.Logger) *TickRunner {
	return &TickRunner{advance: advance, games: games, interval: interval, logger: logger}
}

// Run ticks until ctx is cancelled.
func (r *TickRunner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("Tick runner started", slog.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Tick runner stopped")
			return
		case <-ticker.C:
			advanced, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("Tick runner: run failed", slog.Any("error", err))
				continue
			}
			r.logger.Debug("Tick runner: run finished", slog.Int("advanced", advanced))
		}
	}
}

// RunOnce advances each game by one batch and returns how many advanced.
func (r *TickRunner) RunOnce(ctx context.Context) (int, error) {
	ids, err := r.games.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	advanced := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return advanced, nil
		}
		// Отмена не должна прерывать батч посередине.
		outcome, err := r.advance.Advance(context.WithoutCancel(ctx), id)
		switch {
		case errors.Is(err, ErrAdvanceInProgress):
			r.logger.Debug("Tick runner: game busy", slog.Int("game_id", id))
		case err != nil:
			r.logger.Error("Tick runner: advance failed", slog.Int("game_id", id), slog.Any("error", err))
		case outcome.Status == AdvanceAdvanced:
			advanced++
		}
	}
	return advanced, nil
}
