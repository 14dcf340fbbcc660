package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
)

var (
	ErrCupTieNotFound        = errors.New("cup tie not found")
	ErrCupTieAlreadyComplete = errors.New("cup tie already completed")
)

type CupTieRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tie *models.CupTie) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.CupTie, error)
	SetLegs(ctx context.Context, exec SQLExecutor, tie *models.CupTie) error
	// Complete marks an open tie as decided. A tie is completed at most once.
	Complete(ctx context.Context, exec SQLExecutor, tie *models.CupTie) error
	ListByRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, round int) ([]*models.CupTie, error)
	ListOpen(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]*models.CupTie, error)
	// MaxRound returns the highest round that has ties, 0 if none were drawn.
	MaxRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error)
	// DeleteByCompetition drops every tie of the competition. Leg matches must be deleted first.
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error
}

type postgresCupTieRepository struct {
	db *sql.DB
}

func NewPostgresCupTieRepository(db *sql.DB) CupTieRepository {
	return &postgresCupTieRepository{db: db}
}

const cupTieColumns = `id, game_id, competition_id, round_number, bracket_position, home_team_id, away_team_id,
	first_leg_match_id, second_leg_match_id, winner_id, completed, resolution, created_at`

func (r *postgresCupTieRepository) scanTie(row rowScanner) (*models.CupTie, error) {
	var (
		t                           models.CupTie
		firstLeg, secondLeg, winner sql.NullInt64
		resolution                  []byte
	)
	err := row.Scan(
		&t.ID, &t.GameID, &t.CompetitionID, &t.RoundNumber, &t.BracketPosition, &t.HomeTeamID, &t.AwayTeamID,
		&firstLeg, &secondLeg, &winner, &t.Completed, &resolution, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCupTieNotFound
		}
		return nil, err
	}
	t.FirstLegMatchID = intFromNull(firstLeg)
	t.SecondLegMatchID = intFromNull(secondLeg)
	t.WinnerID = intFromNull(winner)
	if len(resolution) > 0 {
		var res models.TieResolution
		if err := json.Unmarshal(resolution, &res); err != nil {
			return nil, fmt.Errorf("failed to decode resolution of tie %d: %w", t.ID, err)
		}
		t.Resolution = &res
	}
	return &t, nil
}

func (r *postgresCupTieRepository) queryTies(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.CupTie, error) {
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cup ties: %w", err)
	}
	defer rows.Close()

	ties := make([]*models.CupTie, 0)
	for rows.Next() {
		t, err := r.scanTie(rows)
		if err != nil {
			return nil, err
		}
		ties = append(ties, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ties, nil
}

func (r *postgresCupTieRepository) Create(ctx context.Context, exec SQLExecutor, t *models.CupTie) error {
	query := `
		INSERT INTO cup_ties (game_id, competition_id, round_number, bracket_position, home_team_id, away_team_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		t.GameID, t.CompetitionID, t.RoundNumber, t.BracketPosition, t.HomeTeamID, t.AwayTeamID,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create cup tie: %w", err)
	}
	return nil
}

func (r *postgresCupTieRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.CupTie, error) {
	query := `SELECT ` + cupTieColumns + ` FROM cup_ties WHERE id = $1`
	return r.scanTie(executorOr(exec, r.db).QueryRowContext(ctx, query, id))
}

func (r *postgresCupTieRepository) SetLegs(ctx context.Context, exec SQLExecutor, t *models.CupTie) error {
	query := `UPDATE cup_ties SET first_leg_match_id = $1, second_leg_match_id = $2 WHERE id = $3`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		nullableInt(t.FirstLegMatchID), nullableInt(t.SecondLegMatchID), t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to set legs of tie %d: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrCupTieNotFound)
}

func (r *postgresCupTieRepository) Complete(ctx context.Context, exec SQLExecutor, t *models.CupTie) error {
	resolution, err := json.Marshal(t.Resolution)
	if err != nil {
		return fmt.Errorf("failed to encode resolution of tie %d: %w", t.ID, err)
	}
	query := `UPDATE cup_ties SET completed = TRUE, winner_id = $1, resolution = $2 WHERE id = $3 AND completed = FALSE`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, nullableInt(t.WinnerID), resolution, t.ID)
	if err != nil {
		return fmt.Errorf("failed to complete tie %d: %w", t.ID, err)
	}
	return checkAffectedRows(result, ErrCupTieAlreadyComplete)
}

func (r *postgresCupTieRepository) ListByRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, round int) ([]*models.CupTie, error) {
	query := `SELECT ` + cupTieColumns + ` FROM cup_ties
		WHERE game_id = $1 AND competition_id = $2 AND round_number = $3
		ORDER BY bracket_position ASC, id ASC`
	return r.queryTies(ctx, exec, query, gameID, competitionID, round)
}

func (r *postgresCupTieRepository) ListOpen(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]*models.CupTie, error) {
	query := `SELECT ` + cupTieColumns + ` FROM cup_ties
		WHERE game_id = $1 AND competition_id = $2 AND completed = FALSE
		ORDER BY round_number ASC, bracket_position ASC`
	return r.queryTies(ctx, exec, query, gameID, competitionID)
}

func (r *postgresCupTieRepository) MaxRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error) {
	var round sql.NullInt64
	query := `SELECT MAX(round_number) FROM cup_ties WHERE game_id = $1 AND competition_id = $2`
	if err := executorOr(exec, r.db).QueryRowContext(ctx, query, gameID, competitionID).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to read last drawn round of %s: %w", competitionID, err)
	}
	return int(round.Int64), nil
}

func (r *postgresCupTieRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error {
	query := `DELETE FROM cup_ties WHERE game_id = $1 AND competition_id = $2`
	if _, err := executorOr(exec, r.db).ExecContext(ctx, query, gameID, competitionID); err != nil {
		return fmt.Errorf("failed to delete cup ties of %s: %w", competitionID, err)
	}
	return nil
}
