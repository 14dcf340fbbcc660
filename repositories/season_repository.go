package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/season-engine/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrSimulatedSeasonNotFound = errors.New("simulated season not found")

type SimulatedSeasonRepository interface {
	Get(ctx context.Context, exec SQLExecutor, gameID int, competitionID, season string) (*models.SimulatedSeason, error)
	Save(ctx context.Context, exec SQLExecutor, s *models.SimulatedSeason) error
}

// TransitionLogRepository is append-only: rows are never updated or deleted.
type TransitionLogRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.TransitionLogEntry) error
	ListByGame(ctx context.Context, exec SQLExecutor, gameID int, season string) ([]*models.TransitionLogEntry, error)
}

type postgresSimulatedSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSimulatedSeasonRepository(db *sql.DB) SimulatedSeasonRepository {
	return &postgresSimulatedSeasonRepository{db: db}
}

func (r *postgresSimulatedSeasonRepository) Get(ctx context.Context, exec SQLExecutor, gameID int, competitionID, season string) (*models.SimulatedSeason, error) {
	var (
		s       models.SimulatedSeason
		results pq.Int64Array
	)
	query := `SELECT id, game_id, competition_id, season, results FROM simulated_seasons
		WHERE game_id = $1 AND competition_id = $2 AND season = $3`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query, gameID, competitionID, season).
		Scan(&s.ID, &s.GameID, &s.CompetitionID, &s.Season, &results)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSimulatedSeasonNotFound
		}
		return nil, fmt.Errorf("failed to get simulated season %s/%s: %w", competitionID, season, err)
	}
	s.Results = make([]int, len(results))
	for i, v := range results {
		s.Results[i] = int(v)
	}
	return &s, nil
}

func (r *postgresSimulatedSeasonRepository) Save(ctx context.Context, exec SQLExecutor, s *models.SimulatedSeason) error {
	results := make(pq.Int64Array, len(s.Results))
	for i, v := range s.Results {
		results[i] = int64(v)
	}
	query := `
		INSERT INTO simulated_seasons (game_id, competition_id, season, results)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (game_id, competition_id, season) DO UPDATE SET results = EXCLUDED.results
		RETURNING id`
	if err := executorOr(exec, r.db).QueryRowContext(ctx, query, s.GameID, s.CompetitionID, s.Season, results).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to save simulated season %s/%s: %w", s.CompetitionID, s.Season, err)
	}
	return nil
}

type postgresTransitionLogRepository struct {
	db *sql.DB
}

func NewPostgresTransitionLogRepository(db *sql.DB) TransitionLogRepository {
	return &postgresTransitionLogRepository{db: db}
}

func (r *postgresTransitionLogRepository) Append(ctx context.Context, exec SQLExecutor, e *models.TransitionLogEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO transition_log (id, game_id, kind, season, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := executorOr(exec, r.db).ExecContext(ctx, query, e.ID, e.GameID, e.Kind, e.Season, e.Payload, e.CreatedAt); err != nil {
		return fmt.Errorf("failed to append transition %s: %w", e.Kind, err)
	}
	return nil
}

func (r *postgresTransitionLogRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameID int, season string) ([]*models.TransitionLogEntry, error) {
	query := `SELECT id, game_id, kind, season, payload, created_at FROM transition_log
		WHERE game_id = $1 AND season = $2
		ORDER BY created_at ASC, id ASC`
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, gameID, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions of game %d: %w", gameID, err)
	}
	defer rows.Close()

	entries := make([]*models.TransitionLogEntry, 0)
	for rows.Next() {
		var e models.TransitionLogEntry
		if err := rows.Scan(&e.ID, &e.GameID, &e.Kind, &e.Season, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
