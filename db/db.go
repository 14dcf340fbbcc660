package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Import postgres driver
)

func Connect(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create database handle: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database within %v: %w (close also failed: %v)", timeout, err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database within %v: %w", timeout, err)
	}

	return db, nil
}

// Migrate creates the engine's tables if they do not exist yet.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS competitions (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		type         TEXT NOT NULL,
		handler_type TEXT NOT NULL,
		season       TEXT NOT NULL,
		country      TEXT NOT NULL DEFAULT '',
		tier         INT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS games (
		id               SERIAL PRIMARY KEY,
		user_id          INT NOT NULL,
		team_id          INT NOT NULL,
		season           TEXT NOT NULL,
		game_date        DATE NOT NULL,
		current_matchday INT NOT NULL DEFAULT 0,
		competition_ids  TEXT[] NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS competition_participants (
		game_id        INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		competition_id TEXT NOT NULL REFERENCES competitions(id),
		team_id        INT NOT NULL,
		PRIMARY KEY (game_id, competition_id, team_id)
	)`,
	`CREATE TABLE IF NOT EXISTS players (
		id         SERIAL PRIMARY KEY,
		team_id    INT NOT NULL,
		name       TEXT NOT NULL,
		position   TEXT NOT NULL,
		ability    INT NOT NULL,
		birth_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cup_ties (
		id                  SERIAL PRIMARY KEY,
		game_id             INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		competition_id      TEXT NOT NULL REFERENCES competitions(id),
		round_number        INT NOT NULL,
		bracket_position    INT NOT NULL,
		home_team_id        INT NOT NULL,
		away_team_id        INT NOT NULL,
		first_leg_match_id  INT,
		second_leg_match_id INT,
		winner_id           INT,
		completed           BOOLEAN NOT NULL DEFAULT FALSE,
		resolution          JSONB,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (game_id, competition_id, round_number, bracket_position)
	)`,
	`CREATE TABLE IF NOT EXISTS game_matches (
		id             SERIAL PRIMARY KEY,
		game_id        INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		competition_id TEXT NOT NULL REFERENCES competitions(id),
		home_team_id   INT NOT NULL,
		away_team_id   INT NOT NULL,
		scheduled_date DATE NOT NULL,
		round_number   INT NOT NULL,
		round_name     TEXT NOT NULL DEFAULT '',
		group_label    TEXT NOT NULL DEFAULT '',
		cup_tie_id     INT REFERENCES cup_ties(id),
		played         BOOLEAN NOT NULL DEFAULT FALSE,
		home_score     INT,
		away_score     INT,
		home_score_et  INT,
		away_score_et  INT,
		home_penalties INT,
		away_penalties INT,
		events         JSONB,
		played_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_game_matches_unplayed ON game_matches (game_id, played, scheduled_date)`,
	`CREATE TABLE IF NOT EXISTS game_standings (
		id              SERIAL PRIMARY KEY,
		game_id         INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		competition_id  TEXT NOT NULL REFERENCES competitions(id),
		team_id         INT NOT NULL,
		group_label     TEXT NOT NULL DEFAULT '',
		position        INT NOT NULL DEFAULT 0,
		played          INT NOT NULL DEFAULT 0,
		won             INT NOT NULL DEFAULT 0,
		drawn           INT NOT NULL DEFAULT 0,
		lost            INT NOT NULL DEFAULT 0,
		goals_for       INT NOT NULL DEFAULT 0,
		goals_against   INT NOT NULL DEFAULT 0,
		goal_difference INT NOT NULL DEFAULT 0,
		points          INT NOT NULL DEFAULT 0,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (game_id, competition_id, team_id)
	)`,
	`CREATE TABLE IF NOT EXISTS simulated_seasons (
		id             SERIAL PRIMARY KEY,
		game_id        INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		competition_id TEXT NOT NULL REFERENCES competitions(id),
		season         TEXT NOT NULL,
		results        INT[] NOT NULL,
		UNIQUE (game_id, competition_id, season)
	)`,
	`CREATE TABLE IF NOT EXISTS transition_log (
		id         UUID PRIMARY KEY,
		game_id    INT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
		kind       TEXT NOT NULL,
		season     TEXT NOT NULL,
		payload    JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS game_lineups (
		game_id    INT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
		formation  TEXT NOT NULL,
		mentality  TEXT NOT NULL,
		player_ids INT[] NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
