package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/season-engine/models"
)

var ErrCompetitionNotFound = errors.New("competition not found")

type CompetitionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Competition, error)
	Upsert(ctx context.Context, competition *models.Competition) error
}

type postgresCompetitionRepository struct {
	db *sql.DB
}

func NewPostgresCompetitionRepository(db *sql.DB) CompetitionRepository {
	return &postgresCompetitionRepository{db: db}
}

func (r *postgresCompetitionRepository) GetByID(ctx context.Context, id string) (*models.Competition, error) {
	query := `
		SELECT id, name, type, handler_type, season, country, tier
		FROM competitions
		WHERE id = $1`
	var c models.Competition
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Type, &c.HandlerType, &c.Season, &c.Country, &c.Tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition %s: %w", id, err)
	}
	return &c, nil
}

// Upsert writes the competition definition loaded from configuration.
func (r *postgresCompetitionRepository) Upsert(ctx context.Context, c *models.Competition) error {
	query := `
		INSERT INTO competitions (id, name, type, handler_type, season, country, tier)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, handler_type = EXCLUDED.handler_type,
			season = EXCLUDED.season, country = EXCLUDED.country, tier = EXCLUDED.tier`
	_, err := r.db.ExecContext(ctx, query, c.ID, c.Name, c.Type, c.HandlerType, c.Season, c.Country, c.Tier)
	if err != nil {
		return fmt.Errorf("failed to upsert competition %s: %w", c.ID, err)
	}
	return nil
}
