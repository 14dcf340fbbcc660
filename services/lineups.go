package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/simulation"
)

// LineupProvider picks the side a team fields in one match.
type LineupProvider interface {
	Lineup(ctx context.Context, game *models.Game, match *models.GameMatch, teamID int, squad []*models.Player) (*models.Lineup, error)
}

// AutoLineups fields the strongest eleven for every team.
type AutoLineups struct{}

func (AutoLineups) Lineup(_ context.Context, _ *models.Game, _ *models.GameMatch, teamID int, squad []*models.Player) (*models.Lineup, error) {
	return simulation.PickLineup(teamID, squad), nil
}

// ManagedLineups requires the user to pick the lineup of the team they manage.
// Other teams are picked automatically. Selections are stored with the game,
// so they survive restarts and are visible to every instance.
type ManagedLineups struct {
	lineups repositories.LineupRepository
}

func NewManagedLineups(lineups repositories.LineupRepository) *ManagedLineups {
	return &ManagedLineups{lineups: lineups}
}

// Select stores the lineup used for the managed team until it is changed.
func (m *ManagedLineups) Select(ctx context.Context, gameID int, formation, mentality string, playerIDs []int) error {
	if len(playerIDs) != simulation.LineupSize {
		return fmt.Errorf("%w: lineup needs %d players, got %d", ErrLineupRequired, simulation.LineupSize, len(playerIDs))
	}
	seen := make(map[int]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			return fmt.Errorf("%w: player %d selected twice", ErrLineupRequired, id)
		}
		seen[id] = true
	}
	selection := &models.LineupSelection{
		GameID:    gameID,
		Formation: formation,
		Mentality: mentality,
		PlayerIDs: append([]int(nil), playerIDs...),
	}
	if err := m.lineups.Save(ctx, nil, selection); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return fmt.Errorf("%w: %d", ErrGameNotFound, gameID)
		}
		return err
	}
	return nil
}

func (m *ManagedLineups) Lineup(ctx context.Context, game *models.Game, match *models.GameMatch, teamID int, squad []*models.Player) (*models.Lineup, error) {
	if teamID != game.TeamID {
		return simulation.PickLineup(teamID, squad), nil
	}

	sel, err := m.lineups.Get(ctx, nil, game.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrLineupNotFound) {
			return nil, ErrLineupRequired
		}
		return nil, err
	}

	byID := make(map[int]*models.Player, len(squad))
	for _, p := range squad {
		byID[p.ID] = p
	}
	players := make([]*models.Player, 0, len(sel.PlayerIDs))
	for _, id := range sel.PlayerIDs {
		// Проданные или выбывшие игроки требуют нового выбора.
		p, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: player %d is no longer in the squad", ErrLineupRequired, id)
		}
		players = append(players, p)
	}
	return &models.Lineup{TeamID: teamID, Formation: sel.Formation, Mentality: sel.Mentality, Players: players}, nil
}
