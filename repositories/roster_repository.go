package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
	"github.com/lib/pq"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository reads squads and stores ability changes of the season transition.
type PlayerRepository interface {
	ListByTeams(ctx context.Context, exec SQLExecutor, teamIDs []int) (models.PlayersByTeam, error)
	UpdateAbility(ctx context.Context, exec SQLExecutor, playerID, ability int) error
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) ListByTeams(ctx context.Context, exec SQLExecutor, teamIDs []int) (models.PlayersByTeam, error) {
	squads := make(models.PlayersByTeam, len(teamIDs))
	if len(teamIDs) == 0 {
		return squads, nil
	}
	ids := make([]int64, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = int64(id)
	}

	query := `SELECT id, team_id, name, position, ability, birth_date FROM players
		WHERE team_id = ANY($1) ORDER BY team_id ASC, ability DESC, id ASC`
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.TeamID, &p.Name, &p.Position, &p.Ability, &p.BirthDate); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		squads[p.TeamID] = append(squads[p.TeamID], &p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return squads, nil
}

func (r *postgresPlayerRepository) UpdateAbility(ctx context.Context, exec SQLExecutor, playerID, ability int) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `UPDATE players SET ability = $1 WHERE id = $2`, ability, playerID)
	if err != nil {
		return fmt.Errorf("failed to update ability of player %d: %w", playerID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}
