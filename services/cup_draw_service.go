package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
)

type CupDrawService interface {
	// NextRoundNeedingDraw returns the round that can be drawn now: every tie
	// of the previous round is decided and the round itself has no ties yet.
	NextRoundNeedingDraw(ctx context.Context, gameID int, competitionID string) (round int, ok bool, err error)
	// ConductDraw draws the round and creates its ties and legs. It returns no
	// ties when the round is not the one waiting for a draw.
	ConductDraw(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error)
	ListTies(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error)
}

type cupDrawService struct {
	p      *progression
	locker locking.Locker
}

func newCupDrawService(p *progression, locker locking.Locker) CupDrawService {
	return &cupDrawService{p: p, locker: locker}
}

func (s *cupDrawService) NextRoundNeedingDraw(ctx context.Context, gameID int, competitionID string) (int, bool, error) {
	game, err := s.p.loadGame(ctx, nil, gameID)
	if err != nil {
		return 0, false, err
	}
	return s.p.nextRoundNeedingDraw(ctx, s.p.readUnit(), game, competitionID)
}

func (s *cupDrawService) ConductDraw(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	release, err := s.locker.TryLock(ctx, locking.GameKey(gameID))
	if err != nil {
		if errors.Is(err, locking.ErrLocked) {
			return nil, ErrAdvanceInProgress
		}
		return nil, err
	}
	defer release()

	game, err := s.p.loadGame(ctx, nil, gameID)
	if err != nil {
		return nil, err
	}
	if !game.ParticipatesIn(competitionID) {
		return nil, fmt.Errorf("%w: %s", ErrCompetitionInactive, competitionID)
	}

	var ties []*models.CupTie
	_, err = s.p.inTx(ctx, func(ctx context.Context, u *unitOfWork) error {
		var txErr error
		ties, txErr = s.p.conductDraw(ctx, u, game, competitionID, round)
		return txErr
	})
	if err != nil {
		return nil, classify(err)
	}
	return ties, nil
}

func (s *cupDrawService) ListTies(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	if round > 0 {
		return s.p.store.CupTies.ListByRound(ctx, nil, gameID, competitionID, round)
	}
	last, err := s.p.store.CupTies.MaxRound(ctx, nil, gameID, competitionID)
	if err != nil || last == 0 {
		return []*models.CupTie{}, err
	}
	return s.p.store.CupTies.ListByRound(ctx, nil, gameID, competitionID, last)
}

func (p *progression) nextRoundNeedingDraw(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string) (int, bool, error) {
	last, err := p.store.CupTies.MaxRound(ctx, u.exec, game.ID, competitionID)
	if err != nil {
		return 0, false, err
	}
	if last >= p.schedule.TotalRounds(competitionID, game.Season) {
		return 0, false, nil
	}
	if last == 0 {
		// Nobody has entered the first round: the game is not in this cup.
		if len(p.schedule.Entrants(competitionID, game.Season, 1)) == 0 {
			return 0, false, nil
		}
		return 1, true, nil
	}

	ties, err := p.store.CupTies.ListByRound(ctx, u.exec, game.ID, competitionID, last)
	if err != nil {
		return 0, false, err
	}
	for _, t := range ties {
		if !t.Completed {
			return 0, false, nil
		}
	}
	return last + 1, true, nil
}

// drawIfReady draws the next round when one is waiting.
func (p *progression) drawIfReady(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string) ([]*models.CupTie, error) {
	round, ok, err := p.nextRoundNeedingDraw(ctx, u, game, competitionID)
	if err != nil || !ok {
		return nil, err
	}
	return p.conductDraw(ctx, u, game, competitionID, round)
}

func (p *progression) conductDraw(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string, round int) ([]*models.CupTie, error) {
	next, ok, err := p.nextRoundNeedingDraw(ctx, u, game, competitionID)
	if err != nil {
		return nil, err
	}
	if !ok || next != round {
		return nil, nil
	}

	teams, err := p.drawnTeams(ctx, u, game, competitionID, round)
	if err != nil {
		return nil, err
	}

	cfg, err := p.competitionConfig(competitionID)
	if err != nil {
		return nil, err
	}
	strategy, err := brackets.NewDrawStrategy(cfg.Draw)
	if err != nil {
		return nil, classify(err)
	}
	pairings, err := strategy.Draw(ctx, brackets.DrawParams{
		CompetitionID: competitionID,
		Round:         round,
		Teams:         teams,
		Seed:          drawSeed(cfg.DrawSeed, game, competitionID, round),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("draw of %s round %d: %w", competitionID, round, err))
	}

	rc, err := p.schedule.RoundConfig(competitionID, game.Season, round)
	if err != nil {
		return nil, classify(err)
	}
	ties, err := p.createTies(ctx, u, game, competitionID, rc, pairings)
	if err != nil {
		return nil, err
	}

	event := models.NewDomainEvent(models.EventDrawConducted, game.ID, competitionID)
	event.Ties = ties
	if err := u.emit(ctx, event); err != nil {
		return nil, err
	}
	if err := u.logTransition(ctx, game, TransitionDrawConducted, roundPayload{CompetitionID: competitionID, Round: round, Ties: tieSummaries(ties)}); err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "cup draw conducted",
		slog.Int("game_id", game.ID),
		slog.String("competition_id", competitionID),
		slog.Int("round", round),
		slog.String("strategy", strategy.GetName()),
		slog.Int("ties", len(ties)))
	return ties, nil
}

// drawnTeams lists the winners of the previous round by bracket position,
// followed by the teams entering at this round.
func (p *progression) drawnTeams(ctx context.Context, u *unitOfWork, game *models.Game, competitionID string, round int) ([]int, error) {
	teams := make([]int, 0)
	if round > 1 {
		previous, err := p.store.CupTies.ListByRound(ctx, u.exec, game.ID, competitionID, round-1)
		if err != nil {
			return nil, err
		}
		for _, t := range previous {
			if !t.Completed || t.WinnerID == nil || !t.HasTeam(*t.WinnerID) {
				return nil, fmt.Errorf("%w: tie %d of round %d has no valid winner", ErrDataInconsistency, t.ID, round-1)
			}
			teams = append(teams, *t.WinnerID)
		}
	}
	return append(teams, p.schedule.Entrants(competitionID, game.Season, round)...), nil
}

func drawSeed(fixed *uint64, game *models.Game, competitionID string, round int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d/%s/%s/%d", game.ID, competitionID, game.Season, round)
	seed := h.Sum64()
	if fixed != nil {
		seed ^= *fixed
	}
	return seed
}
