package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
	"github.com/lib/pq"
)

var ErrLineupNotFound = errors.New("lineup not selected")

// LineupRepository keeps one lineup selection per game.
type LineupRepository interface {
	Get(ctx context.Context, exec SQLExecutor, gameID int) (*models.LineupSelection, error)
	Save(ctx context.Context, exec SQLExecutor, l *models.LineupSelection) error
}

type postgresLineupRepository struct {
	db *sql.DB
}

func NewPostgresLineupRepository(db *sql.DB) LineupRepository {
	return &postgresLineupRepository{db: db}
}

func (r *postgresLineupRepository) Get(ctx context.Context, exec SQLExecutor, gameID int) (*models.LineupSelection, error) {
	var (
		l         models.LineupSelection
		playerIDs pq.Int64Array
	)
	query := `SELECT game_id, formation, mentality, player_ids, updated_at FROM game_lineups WHERE game_id = $1`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query, gameID).
		Scan(&l.GameID, &l.Formation, &l.Mentality, &playerIDs, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLineupNotFound
		}
		return nil, fmt.Errorf("failed to get lineup of game %d: %w", gameID, err)
	}
	l.PlayerIDs = make([]int, len(playerIDs))
	for i, v := range playerIDs {
		l.PlayerIDs[i] = int(v)
	}
	return &l, nil
}

func (r *postgresLineupRepository) Save(ctx context.Context, exec SQLExecutor, l *models.LineupSelection) error {
	playerIDs := make(pq.Int64Array, len(l.PlayerIDs))
	for i, v := range l.PlayerIDs {
		playerIDs[i] = int64(v)
	}
	query := `
		INSERT INTO game_lineups (game_id, formation, mentality, player_ids, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (game_id) DO UPDATE SET
			formation = EXCLUDED.formation,
			mentality = EXCLUDED.mentality,
			player_ids = EXCLUDED.player_ids,
			updated_at = EXCLUDED.updated_at
		RETURNING updated_at`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query, l.GameID, l.Formation, l.Mentality, playerIDs).Scan(&l.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" { // foreign_key_violation
			return fmt.Errorf("%w: %d", ErrGameNotFound, l.GameID)
		}
		return fmt.Errorf("failed to save lineup of game %d: %w", l.GameID, err)
	}
	return nil
}
