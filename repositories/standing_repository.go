package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dosada05/season-engine/models"
)

var ErrStandingNotFound = errors.New("standing not found")

type StandingRepository interface {
	Create(ctx context.Context, exec SQLExecutor, standing *models.GameStanding) error
	GetByTeam(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamID int) (*models.GameStanding, error)
	GetOrCreate(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamID int, groupLabel string) (*models.GameStanding, error)
	Update(ctx context.Context, exec SQLExecutor, standing *models.GameStanding) error
	ListByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, sortByPosition bool) ([]*models.GameStanding, error)
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

const standingColumns = `id, game_id, competition_id, team_id, group_label, position, played, won, drawn, lost,
	goals_for, goals_against, goal_difference, points, updated_at`

func (r *postgresStandingRepository) scanStanding(row rowScanner) (*models.GameStanding, error) {
	var s models.GameStanding
	err := row.Scan(
		&s.ID, &s.GameID, &s.CompetitionID, &s.TeamID, &s.GroupLabel, &s.Position, &s.Played, &s.Won, &s.Drawn, &s.Lost,
		&s.GoalsFor, &s.GoalsAgainst, &s.GoalDifference, &s.Points, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStandingNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *postgresStandingRepository) Create(ctx context.Context, exec SQLExecutor, s *models.GameStanding) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}
	query := `
		INSERT INTO game_standings
			(game_id, competition_id, team_id, group_label, position, played, won, drawn, lost,
			 goals_for, goals_against, goal_difference, points, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		s.GameID, s.CompetitionID, s.TeamID, s.GroupLabel, s.Position, s.Played, s.Won, s.Drawn, s.Lost,
		s.GoalsFor, s.GoalsAgainst, s.GoalDifference, s.Points, s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to create standing for team %d in %s: %w", s.TeamID, s.CompetitionID, err)
	}
	return nil
}

func (r *postgresStandingRepository) GetByTeam(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamID int) (*models.GameStanding, error) {
	query := `SELECT ` + standingColumns + ` FROM game_standings
		WHERE game_id = $1 AND competition_id = $2 AND team_id = $3`
	return r.scanStanding(executorOr(exec, r.db).QueryRowContext(ctx, query, gameID, competitionID, teamID))
}

func (r *postgresStandingRepository) GetOrCreate(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, teamID int, groupLabel string) (*models.GameStanding, error) {
	standing, err := r.GetByTeam(ctx, exec, gameID, competitionID, teamID)
	if err == nil {
		return standing, nil
	}
	if !errors.Is(err, ErrStandingNotFound) {
		return nil, fmt.Errorf("failed to get standing for g:%d c:%s t:%d: %w", gameID, competitionID, teamID, err)
	}
	standing = &models.GameStanding{
		GameID:        gameID,
		CompetitionID: competitionID,
		TeamID:        teamID,
		GroupLabel:    groupLabel,
		UpdatedAt:     time.Now(),
	}
	if err := r.Create(ctx, exec, standing); err != nil {
		return nil, err
	}
	return standing, nil
}

func (r *postgresStandingRepository) Update(ctx context.Context, exec SQLExecutor, s *models.GameStanding) error {
	s.UpdatedAt = time.Now()
	query := `
		UPDATE game_standings SET
			position = $1, played = $2, won = $3, drawn = $4, lost = $5,
			goals_for = $6, goals_against = $7, goal_difference = $8, points = $9, updated_at = $10
		WHERE id = $11`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		s.Position, s.Played, s.Won, s.Drawn, s.Lost,
		s.GoalsFor, s.GoalsAgainst, s.GoalDifference, s.Points, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update standing %d: %w", s.ID, err)
	}
	return checkAffectedRows(result, ErrStandingNotFound)
}

func (r *postgresStandingRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, sortByPosition bool) ([]*models.GameStanding, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`SELECT ` + standingColumns + ` FROM game_standings WHERE game_id = $1 AND competition_id = $2`)
	if sortByPosition {
		queryBuilder.WriteString(" ORDER BY group_label ASC, position ASC, team_id ASC")
	} else {
		queryBuilder.WriteString(" ORDER BY team_id ASC")
	}

	rows, err := executorOr(exec, r.db).QueryContext(ctx, queryBuilder.String(), gameID, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings of %s: %w", competitionID, err)
	}
	defer rows.Close()

	standings := make([]*models.GameStanding, 0)
	for rows.Next() {
		s, err := r.scanStanding(rows)
		if err != nil {
			return nil, err
		}
		standings = append(standings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return standings, nil
}

func (r *postgresStandingRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error {
	query := `DELETE FROM game_standings WHERE game_id = $1 AND competition_id = $2`
	if _, err := executorOr(exec, r.db).ExecContext(ctx, query, gameID, competitionID); err != nil {
		return fmt.Errorf("failed to delete standings of %s: %w", competitionID, err)
	}
	return nil
}
