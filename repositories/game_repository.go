package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/season-engine/models"
	"github.com/lib/pq"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error)
	Update(ctx context.Context, exec SQLExecutor, game *models.Game) error
	ListIDs(ctx context.Context) ([]int, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `
		INSERT INTO games (user_id, team_id, season, game_date, current_matchday, competition_ids)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		game.UserID, game.TeamID, game.Season, game.CurrentDate, game.CurrentMatchday, pq.Array(game.CompetitionIDs),
	).Scan(&game.ID, &game.CreatedAt, &game.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *postgresGameRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Game, error) {
	query := `
		SELECT id, user_id, team_id, season, game_date, current_matchday, competition_ids, created_at, updated_at
		FROM games
		WHERE id = $1`

	var game models.Game
	err := executorOr(exec, r.db).QueryRowContext(ctx, query, id).Scan(
		&game.ID, &game.UserID, &game.TeamID, &game.Season, &game.CurrentDate,
		&game.CurrentMatchday, pq.Array(&game.CompetitionIDs), &game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return &game, nil
}

func (r *postgresGameRepository) Update(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	game.UpdatedAt = time.Now()
	query := `
		UPDATE games
		SET season = $1, game_date = $2, current_matchday = $3, competition_ids = $4, updated_at = $5
		WHERE id = $6`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		game.Season, game.CurrentDate, game.CurrentMatchday, pq.Array(game.CompetitionIDs), game.UpdatedAt, game.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update game %d: %w", game.ID, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) ListIDs(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM games ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list games: %w", err)
	}
	defer rows.Close()

	ids := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
