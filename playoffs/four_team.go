package playoffs

import (
	"context"
	"fmt"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/models"
)

const (
	roundSemifinal = 1
	roundFinal     = 2
)

// FourTeam is a two-round bracket: semifinals pair the extremes of the
// qualifying range (best vs worst, second best vs second worst), the final
// pairs the semifinal winners. Every round is two-legged and the lower seed
// hosts the first leg.
type FourTeam struct {
	competitionID string
	qualifying    []int
	direct        []int
	trigger       int
	awayGoals     bool
	schedule      ScheduleProvider
}

func NewFourTeam(cfg config.PlayoffConfig, schedule ScheduleProvider) (*FourTeam, error) {
	if len(cfg.QualifyingPositions) != 4 {
		return nil, fmt.Errorf("four_team playoff needs 4 qualifying positions, got %d", len(cfg.QualifyingPositions))
	}
	return &FourTeam{
		competitionID: cfg.Competition,
		qualifying:    append([]int(nil), cfg.QualifyingPositions...),
		direct:        append([]int(nil), cfg.DirectPromotionPositions...),
		trigger:       cfg.TriggerMatchday,
		awayGoals:     cfg.AwayGoals,
		schedule:      schedule,
	}, nil
}

func (g *FourTeam) CompetitionID() string { return g.competitionID }

func (g *FourTeam) QualifyingPositions() []int {
	return append([]int(nil), g.qualifying...)
}

func (g *FourTeam) DirectPromotionPositions() []int {
	return append([]int(nil), g.direct...)
}

func (g *FourTeam) TriggerMatchday() int { return g.trigger }

func (g *FourTeam) TotalRounds() int { return roundFinal }

func (g *FourTeam) AwayGoals() bool { return g.awayGoals }

func (g *FourTeam) RoundConfig(season string, round int) (models.PlayoffRoundConfig, error) {
	if round < roundSemifinal || round > roundFinal {
		return models.PlayoffRoundConfig{}, fmt.Errorf("%w: %d", ErrUnknownRound, round)
	}
	return g.schedule.RoundConfig(g.competitionID, season, round)
}

func (g *FourTeam) GenerateMatchups(ctx context.Context, src Source, gameID, round int) ([]brackets.Pairing, error) {
	switch round {
	case roundSemifinal:
		return g.semifinals(ctx, src, gameID)
	case roundFinal:
		return g.final(ctx, src, gameID)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownRound, round)
	}
}

// semifinals: with positions [3,4,5,6] tie 1 is 6 v 3 and tie 2 is 5 v 4.
func (g *FourTeam) semifinals(ctx context.Context, src Source, gameID int) ([]brackets.Pairing, error) {
	table, err := src.Standings(ctx, gameID, g.competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read standings of %s: %w", g.competitionID, err)
	}
	byPosition := make(map[int]int, len(table))
	for _, row := range table {
		byPosition[row.Position] = row.TeamID
	}

	teams := make([]int, len(g.qualifying))
	for i, pos := range g.qualifying {
		id, ok := byPosition[pos]
		if !ok {
			return nil, fmt.Errorf("%w: position %d of %s", ErrPositionMissing, pos, g.competitionID)
		}
		teams[i] = id
	}

	return []brackets.Pairing{
		{BracketPosition: 1, HomeTeamID: teams[3], AwayTeamID: teams[0]},
		{BracketPosition: 2, HomeTeamID: teams[2], AwayTeamID: teams[1]},
	}, nil
}

// final: the winner of semifinal 2 is the lower seed and hosts the first leg.
func (g *FourTeam) final(ctx context.Context, src Source, gameID int) ([]brackets.Pairing, error) {
	ties, err := src.TiesInRound(ctx, gameID, g.competitionID, roundSemifinal)
	if err != nil {
		return nil, fmt.Errorf("failed to read semifinals of %s: %w", g.competitionID, err)
	}

	winners := make(map[int]int, 2)
	for _, tie := range ties {
		if tie.Completed && tie.WinnerID != nil {
			winners[tie.BracketPosition] = *tie.WinnerID
		}
	}
	first, ok1 := winners[1]
	second, ok2 := winners[2]
	if len(ties) != 2 || !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: %s semifinals have %d ties and %d winners, want 2 and 2",
			ErrWinnerMissing, g.competitionID, len(ties), len(winners))
	}

	return []brackets.Pairing{
		{BracketPosition: 1, HomeTeamID: second, AwayTeamID: first},
	}, nil
}

func (g *FourTeam) finalTie(ctx context.Context, src Source, gameID int) (*models.CupTie, error) {
	ties, err := src.TiesInRound(ctx, gameID, g.competitionID, roundFinal)
	if err != nil {
		return nil, fmt.Errorf("failed to read final of %s: %w", g.competitionID, err)
	}
	if len(ties) == 0 {
		return nil, nil
	}
	return ties[0], nil
}

func (g *FourTeam) IsComplete(ctx context.Context, src Source, gameID int) (bool, error) {
	tie, err := g.finalTie(ctx, src, gameID)
	if err != nil || tie == nil {
		return false, err
	}
	return tie.Completed, nil
}

func (g *FourTeam) Winner(ctx context.Context, src Source, gameID int) (int, bool, error) {
	tie, err := g.finalTie(ctx, src, gameID)
	if err != nil || tie == nil || !tie.Completed {
		return 0, false, err
	}
	if tie.WinnerID == nil {
		return 0, false, fmt.Errorf("%w: final of %s is completed without a winner", ErrWinnerMissing, g.competitionID)
	}
	return *tie.WinnerID, true, nil
}
