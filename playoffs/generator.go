// Package playoffs builds end-of-season playoff brackets from league standings
// and from the winners of earlier playoff rounds.
package playoffs

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
)

var (
	// ErrWinnerMissing means an earlier round was expected to be decided but is
	// not. It denotes corrupted state and is never retried.
	ErrWinnerMissing = errors.New("playoff round is missing a recorded winner")
	// ErrPositionMissing means the final table has no team at a qualifying position.
	ErrPositionMissing = errors.New("standings have no team at a qualifying position")
	ErrUnknownRound    = errors.New("unknown playoff round")
	ErrUnknownType     = errors.New("unknown playoff type")
)

// Source gives a generator read access to the game state it needs.
type Source interface {
	Standings(ctx context.Context, gameID int, competitionID string) ([]*models.GameStanding, error)
	TiesInRound(ctx context.Context, gameID int, competitionID string, round int) ([]*models.CupTie, error)
}

// ScheduleProvider supplies the legally fixed playoff dates.
type ScheduleProvider interface {
	RoundConfig(competitionID, season string, round int) (models.PlayoffRoundConfig, error)
}

type Generator interface {
	CompetitionID() string
	QualifyingPositions() []int
	DirectPromotionPositions() []int
	// TriggerMatchday is the last regular-season matchday; the bracket is drawn after it.
	TriggerMatchday() int
	TotalRounds() int
	AwayGoals() bool
	RoundConfig(season string, round int) (models.PlayoffRoundConfig, error)
	GenerateMatchups(ctx context.Context, src Source, gameID, round int) ([]brackets.Pairing, error)
	IsComplete(ctx context.Context, src Source, gameID int) (bool, error)
	// Winner returns the team that won the final, if the final is decided.
	Winner(ctx context.Context, src Source, gameID int) (int, bool, error)
}

// New builds the generator described by cfg.
func New(cfg config.PlayoffConfig, schedule ScheduleProvider) (Generator, error) {
	switch cfg.Type {
	case config.PlayoffFourTeam:
		return NewFourTeam(cfg, schedule)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}

// BuildAll creates one generator per configured playoff, keyed by playoff id.
func BuildAll(file *config.CompetitionsFile, schedule ScheduleProvider) (map[string]Generator, error) {
	generators := make(map[string]Generator, len(file.Playoffs))
	for _, cfg := range file.Playoffs {
		g, err := New(cfg, schedule)
		if err != nil {
			return nil, fmt.Errorf("playoff %s: %w", cfg.ID, err)
		}
		generators[cfg.ID] = g
	}
	return generators, nil
}
