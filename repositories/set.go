package repositories

import (
	"database/sql"
	"log/slog"
)

// Set bundles the repositories of one storage backend together with its
// transaction runner.
type Set struct {
	Tx           TxRunner
	Games        GameRepository
	Competitions CompetitionRepository
	Matches      MatchRepository
	CupTies      CupTieRepository
	Standings    StandingRepository
	Simulated    SimulatedSeasonRepository
	Transitions  TransitionLogRepository
	Participants ParticipantRepository
	Players      PlayerRepository
	Lineups      LineupRepository
}

func NewPostgresSet(db *sql.DB, logger *slog.Logger) Set {
	return Set{
		Tx:           NewPostgresTxRunner(db, logger),
		Games:        NewPostgresGameRepository(db),
		Competitions: NewPostgresCompetitionRepository(db),
		Matches:      NewPostgresMatchRepository(db),
		CupTies:      NewPostgresCupTieRepository(db),
		Standings:    NewPostgresStandingRepository(db),
		Simulated:    NewPostgresSimulatedSeasonRepository(db),
		Transitions:  NewPostgresTransitionLogRepository(db),
		Participants: NewPostgresParticipantRepository(db),
		Players:      NewPostgresPlayerRepository(db),
		Lineups:      NewPostgresLineupRepository(db),
	}
}

func (s *MemoryStore) Set() Set {
	return Set{
		Tx:           s,
		Games:        s.Games(),
		Competitions: s.Competitions(),
		Matches:      s.Matches(),
		CupTies:      s.CupTies(),
		Standings:    s.Standings(),
		Simulated:    s.SimulatedSeasons(),
		Transitions:  s.TransitionLog(),
		Participants: s.Participants(),
		Players:      s.Players(),
		Lineups:      s.Lineups(),
	}
}
