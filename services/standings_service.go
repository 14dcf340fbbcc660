package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/standings"
)

type StandingsService interface {
	// UpdateAfterMatch adds a played group or league match to both teams' rows,
	// creating the rows on first use, and re-ranks the table.
	UpdateAfterMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.GameMatch) error
	RecalculatePositions(ctx context.Context, exec repositories.SQLExecutor, gameID int, competitionID string) ([]*models.GameStanding, error)
	// Rebuild recomputes the table from the played match history.
	Rebuild(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error)
	Table(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error)
	// OnMatchFinalized is the match_finalized listener.
	OnMatchFinalized(ctx context.Context, exec repositories.SQLExecutor, event models.DomainEvent) error
}

type standingsService struct {
	store  repositories.Set
	locker locking.Locker
	logger *slog.Logger
}

func NewStandingsService(store repositories.Set, locker locking.Locker, logger *slog.Logger) StandingsService {
	return &standingsService{store: store, locker: locker, logger: logger}
}

func (s *standingsService) OnMatchFinalized(ctx context.Context, exec repositories.SQLExecutor, event models.DomainEvent) error {
	if event.Match == nil {
		return nil
	}
	return s.UpdateAfterMatch(ctx, exec, event.Match)
}

func (s *standingsService) UpdateAfterMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.GameMatch) error {
	if !match.Played || match.IsCupTieMatch() {
		return nil
	}
	competition, err := s.store.Competitions.GetByID(ctx, match.CompetitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return fmt.Errorf("%w: %s", ErrCompetitionNotFound, match.CompetitionID)
		}
		return err
	}
	if !competition.HasStandings() {
		return nil
	}

	home, err := s.store.Standings.GetOrCreate(ctx, exec, match.GameID, match.CompetitionID, match.HomeTeamID, match.GroupLabel)
	if err != nil {
		return fmt.Errorf("failed to load standing of team %d: %w", match.HomeTeamID, err)
	}
	away, err := s.store.Standings.GetOrCreate(ctx, exec, match.GameID, match.CompetitionID, match.AwayTeamID, match.GroupLabel)
	if err != nil {
		return fmt.Errorf("failed to load standing of team %d: %w", match.AwayTeamID, err)
	}

	homeScore, awayScore := match.Score()
	standings.ApplyResult(home, away, homeScore, awayScore)
	if err := s.store.Standings.Update(ctx, exec, home); err != nil {
		return err
	}
	if err := s.store.Standings.Update(ctx, exec, away); err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "standings updated",
		slog.Int("game_id", match.GameID),
		slog.String("competition_id", match.CompetitionID),
		slog.Int("match_id", match.ID))
	_, err = s.RecalculatePositions(ctx, exec, match.GameID, match.CompetitionID)
	return err
}

func (s *standingsService) RecalculatePositions(ctx context.Context, exec repositories.SQLExecutor, gameID int, competitionID string) ([]*models.GameStanding, error) {
	rows, err := s.store.Standings.ListByCompetition(ctx, exec, gameID, competitionID, false)
	if err != nil {
		return nil, err
	}
	before := make(map[int]int, len(rows))
	for _, r := range rows {
		before[r.ID] = r.Position
	}

	standings.Rank(rows)
	for _, r := range rows {
		if before[r.ID] == r.Position {
			continue
		}
		if err := s.store.Standings.Update(ctx, exec, r); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

func (s *standingsService) Rebuild(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error) {
	release, err := s.locker.TryLock(ctx, locking.GameKey(gameID))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, ErrAdvanceInProgress
		}
		return nil, err
	}
	defer release()

	var rows []*models.GameStanding
	err = s.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		matches, err := s.store.Matches.ListByCompetition(ctx, exec, gameID, competitionID)
		if err != nil {
			return err
		}
		teams, err := s.store.Participants.ListTeams(ctx, exec, gameID, competitionID)
		if err != nil {
			return err
		}
		rows, err = standings.Build(gameID, competitionID, teams, matches)
		if err != nil {
			return err
		}
		if err := s.store.Standings.DeleteByCompetition(ctx, exec, gameID, competitionID); err != nil {
			return err
		}
		for _, r := range rows {
			if err := s.store.Standings.Create(ctx, exec, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	s.logger.InfoContext(ctx, "standings rebuilt",
		slog.Int("game_id", gameID),
		slog.String("competition_id", competitionID),
		slog.Int("teams", len(rows)))
	return rows, nil
}

func (s *standingsService) Table(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error) {
	return s.store.Standings.ListByCompetition(ctx, nil, gameID, competitionID, true)
}
