package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/season-engine/models"
	"github.com/lib/pq"
)

var (
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchAlreadyPlayed = errors.New("match already played")
	ErrMatchNotPlayed     = errors.New("match not played yet")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.GameMatch) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.GameMatch, error)
	ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.GameMatch, error)
	ListByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]*models.GameMatch, error)

	// NextUnplayed returns the chronologically next unplayed match of the game,
	// or nil when every scheduled match has been played.
	NextUnplayed(ctx context.Context, exec SQLExecutor, gameID int) (*models.GameMatch, error)
	NextUnplayedInCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (*models.GameMatch, error)
	// ListUnplayedByRound returns unplayed non-knockout matches of one round.
	ListUnplayedByRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, round int) ([]*models.GameMatch, error)
	// ListUnplayedTieLegsByDate returns unplayed knockout legs scheduled on the given calendar date.
	ListUnplayedTieLegsByDate(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, date time.Time) ([]*models.GameMatch, error)
	CountUnplayedLeague(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error)
	MaxLeagueRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error)

	// SaveResult flips a match from unplayed to played. It fails with
	// ErrMatchAlreadyPlayed if the match was played before.
	SaveResult(ctx context.Context, exec SQLExecutor, match *models.GameMatch) error
	// SaveTieBreak stores extra time and penalty scores of a played match.
	SaveTieBreak(ctx context.Context, exec SQLExecutor, match *models.GameMatch) error
	// DeleteByCompetition drops the fixtures of a finished season.
	DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, game_id, competition_id, home_team_id, away_team_id, scheduled_date, round_number,
	round_name, group_label, cup_tie_id, played, home_score, away_score, home_score_et, away_score_et,
	home_penalties, away_penalties, events, played_at`

func (r *postgresMatchRepository) scanMatch(row rowScanner) (*models.GameMatch, error) {
	var (
		m                              models.GameMatch
		cupTieID, homeScore, awayScore sql.NullInt64
		homeET, awayET                 sql.NullInt64
		homePens, awayPens             sql.NullInt64
		events                         []byte
		playedAt                       sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.GameID, &m.CompetitionID, &m.HomeTeamID, &m.AwayTeamID, &m.ScheduledDate, &m.RoundNumber,
		&m.RoundName, &m.GroupLabel, &cupTieID, &m.Played, &homeScore, &awayScore, &homeET, &awayET,
		&homePens, &awayPens, &events, &playedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	m.CupTieID = intFromNull(cupTieID)
	m.HomeScore = intFromNull(homeScore)
	m.AwayScore = intFromNull(awayScore)
	m.HomeScoreET = intFromNull(homeET)
	m.AwayScoreET = intFromNull(awayET)
	m.HomePenalties = intFromNull(homePens)
	m.AwayPenalties = intFromNull(awayPens)
	if playedAt.Valid {
		t := playedAt.Time
		m.PlayedAt = &t
	}
	if len(events) > 0 {
		if err := json.Unmarshal(events, &m.Events); err != nil {
			return nil, fmt.Errorf("failed to decode events of match %d: %w", m.ID, err)
		}
	}
	return &m, nil
}

func (r *postgresMatchRepository) queryMatches(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) ([]*models.GameMatch, error) {
	rows, err := executorOr(exec, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := make([]*models.GameMatch, 0)
	for rows.Next() {
		m, err := r.scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during match rows iteration: %w", err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.GameMatch) error {
	query := `
		INSERT INTO game_matches
			(game_id, competition_id, home_team_id, away_team_id, scheduled_date, round_number, round_name, group_label, cup_tie_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		m.GameID, m.CompetitionID, m.HomeTeamID, m.AwayTeamID, m.ScheduledDate, m.RoundNumber, m.RoundName, m.GroupLabel,
		nullableInt(m.CupTieID),
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches WHERE id = $1`
	m, err := r.scanMatch(executorOr(exec, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrMatchNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByIDs(ctx context.Context, exec SQLExecutor, ids []int) ([]*models.GameMatch, error) {
	if len(ids) == 0 {
		return []*models.GameMatch{}, nil
	}
	ids64 := make([]int64, len(ids))
	for i, id := range ids {
		ids64[i] = int64(id)
	}
	query := `SELECT ` + matchColumns + ` FROM game_matches WHERE id = ANY($1) ORDER BY scheduled_date ASC, id ASC`
	return r.queryMatches(ctx, exec, query, pq.Array(ids64))
}

func (r *postgresMatchRepository) ListByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) ([]*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches
		WHERE game_id = $1 AND competition_id = $2
		ORDER BY scheduled_date ASC, round_number ASC, id ASC`
	return r.queryMatches(ctx, exec, query, gameID, competitionID)
}

func (r *postgresMatchRepository) NextUnplayed(ctx context.Context, exec SQLExecutor, gameID int) (*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches
		WHERE game_id = $1 AND played = FALSE
		ORDER BY scheduled_date ASC, competition_id ASC, round_number ASC, id ASC
		LIMIT 1`
	return r.first(ctx, exec, query, gameID)
}

func (r *postgresMatchRepository) NextUnplayedInCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches
		WHERE game_id = $1 AND competition_id = $2 AND played = FALSE
		ORDER BY scheduled_date ASC, round_number ASC, id ASC
		LIMIT 1`
	return r.first(ctx, exec, query, gameID, competitionID)
}

func (r *postgresMatchRepository) first(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.GameMatch, error) {
	matches, err := r.queryMatches(ctx, exec, query, args...)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (r *postgresMatchRepository) ListUnplayedByRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, round int) ([]*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches
		WHERE game_id = $1 AND competition_id = $2 AND round_number = $3 AND played = FALSE AND cup_tie_id IS NULL
		ORDER BY scheduled_date ASC, id ASC`
	return r.queryMatches(ctx, exec, query, gameID, competitionID, round)
}

func (r *postgresMatchRepository) ListUnplayedTieLegsByDate(ctx context.Context, exec SQLExecutor, gameID int, competitionID string, date time.Time) ([]*models.GameMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM game_matches
		WHERE game_id = $1 AND competition_id = $2 AND scheduled_date::date = $3::date
			AND played = FALSE AND cup_tie_id IS NOT NULL
		ORDER BY id ASC`
	return r.queryMatches(ctx, exec, query, gameID, competitionID, date)
}

func (r *postgresMatchRepository) CountUnplayedLeague(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM game_matches
		WHERE game_id = $1 AND competition_id = $2 AND played = FALSE AND cup_tie_id IS NULL`
	if err := executorOr(exec, r.db).QueryRowContext(ctx, query, gameID, competitionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unplayed matches of %s: %w", competitionID, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) MaxLeagueRound(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) (int, error) {
	var round sql.NullInt64
	query := `SELECT MAX(round_number) FROM game_matches
		WHERE game_id = $1 AND competition_id = $2 AND cup_tie_id IS NULL`
	if err := executorOr(exec, r.db).QueryRowContext(ctx, query, gameID, competitionID).Scan(&round); err != nil {
		return 0, fmt.Errorf("failed to read last round of %s: %w", competitionID, err)
	}
	return int(round.Int64), nil
}

func (r *postgresMatchRepository) SaveResult(ctx context.Context, exec SQLExecutor, m *models.GameMatch) error {
	events, err := json.Marshal(m.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events of match %d: %w", m.ID, err)
	}
	query := `
		UPDATE game_matches
		SET played = TRUE, home_score = $1, away_score = $2, events = $3, played_at = $4
		WHERE id = $5 AND played = FALSE`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		nullableInt(m.HomeScore), nullableInt(m.AwayScore), events, m.PlayedAt, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save result of match %d: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchAlreadyPlayed)
}

func (r *postgresMatchRepository) SaveTieBreak(ctx context.Context, exec SQLExecutor, m *models.GameMatch) error {
	events, err := json.Marshal(m.Events)
	if err != nil {
		return fmt.Errorf("failed to encode events of match %d: %w", m.ID, err)
	}
	query := `
		UPDATE game_matches
		SET home_score_et = $1, away_score_et = $2, home_penalties = $3, away_penalties = $4, events = $5
		WHERE id = $6 AND played = TRUE`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		nullableInt(m.HomeScoreET), nullableInt(m.AwayScoreET),
		nullableInt(m.HomePenalties), nullableInt(m.AwayPenalties), events, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to save tie break of match %d: %w", m.ID, err)
	}
	return checkAffectedRows(result, ErrMatchNotPlayed)
}

func (r *postgresMatchRepository) DeleteByCompetition(ctx context.Context, exec SQLExecutor, gameID int, competitionID string) error {
	query := `DELETE FROM game_matches WHERE game_id = $1 AND competition_id = $2`
	if _, err := executorOr(exec, r.db).ExecContext(ctx, query, gameID, competitionID); err != nil {
		return fmt.Errorf("failed to delete matches of %s: %w", competitionID, err)
	}
	return nil
}
