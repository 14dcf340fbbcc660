package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrParticipantConflict = errors.New("participant conflict: team already entered in this competition")

// ParticipantRepository keeps the teams entered in each competition of a game.
type ParticipantRepository interface {
	ListTeams(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]int, error)
	// ReplaceTeams swaps the full entry list of a competition, e.g. after promotion and relegation.
	ReplaceTeams(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamIDs []int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) ListTeams(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]int, error) {
	query := `SELECT team_id FROM competition_participants WHERE game_id = $1 AND competition_id = $2 ORDER BY team_id ASC`
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, gameID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants of %s: %w", competitionID, err)
	}
	defer rows.Close()

	teamIDs := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		teamIDs = append(teamIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return teamIDs, nil
}

func (r *postgresParticipantRepository) ReplaceTeams(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamIDs []int) error {
	executor := executorOr(exec, r.db)
	if _, err := executor.ExecContext(ctx, `DELETE FROM competition_participants WHERE game_id = $1 AND competition_id = $2`, gameID, competitionID); err != nil {
		return fmt.Errorf("failed to clear participants of %s: %w", competitionID, err)
	}

	ids := make([]int64, len(teamIDs))
	for i, id := range teamIDs {
		ids[i] = int64(id)
	}
	query := `
		INSERT INTO competition_participants (game_id, competition_id, team_id)
		SELECT $1, $2, unnest($3::int[])`
	if _, err := executor.ExecContext(ctx, query, gameID, competitionID, pq.Array(ids)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return ErrParticipantConflict
		}
		return fmt.Errorf("failed to enter participants into %s: %w", competitionID, err)
	}
	return nil
}
