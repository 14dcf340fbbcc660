package services

import (
	"context"
	"errors"

	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
)

// stateSource gives playoff generators and promotion rules read access to a
// game, bound to the executor of the current unit of work.
type stateSource struct {
	exec  repositories.SQLExecutor
	store repositories.Set
}

func (s *stateSource) Standings(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error) {
	return s.store.Standings.ListByCompetition(ctx, s.exec, gameID, competitionID, true)
}

func (s *stateSource) TiesInRound(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	return s.store.CupTies.ListByRound(ctx, s.exec, gameID, competitionID, round)
}

func (s *stateSource) SimulatedSeason(ctx context.Context, gameID int, competitionID, season string) (*models.SimulatedSeason, error) {
	sim, err := s.store.Simulated.Get(ctx, s.exec, gameID, competitionID, season)
	if errors.Is(err, repositories.ErrSimulatedSeasonNotFound) {
		return nil, nil
	}
	return sim, err
}
