package services

import (
	"fmt"
	"log/slog"

	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/events"
	"github.com/Dosada05/season-engine/locking"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/playoffs"
	"github.com/Dosada05/season-engine/promotions"
	"github.com/Dosada05/season-engine/repositories"
	"github.com/Dosada05/season-engine/simulation"
	"github.com/Dosada05/season-engine/storage"
)

type EngineDeps struct {
	Store        repositories.Set
	Competitions *config.CompetitionsFile
	Schedule     *config.Schedule
	Simulator    simulation.MatchSimulator
	TieBreaker   TieBreaker
	Lineups      LineupProvider
	Locker       locking.Locker
	Dispatcher   *events.Dispatcher
	Archiver     *storage.Archiver // nil disables archiving
	Logger       *slog.Logger
}

// Engine is the composition root of the progression services.
type Engine struct {
	Advance   AdvanceService
	Draws     CupDrawService
	Standings StandingsService
	Seasons   SeasonService
}

func NewEngine(deps EngineDeps) (*Engine, error) {
	byPlayoff, err := playoffs.BuildAll(deps.Competitions, deps.Schedule)
	if err != nil {
		return nil, classify(err)
	}
	byCompetition := make(map[string]playoffs.Generator, len(byPlayoff))
	for id, g := range byPlayoff {
		if _, dup := byCompetition[g.CompetitionID()]; dup {
			return nil, fmt.Errorf("%w: competition %s has more than one playoff (%s)", ErrConfiguration, g.CompetitionID(), id)
		}
		byCompetition[g.CompetitionID()] = g
	}
	rules, err := promotions.BuildRules(deps.Competitions, byPlayoff)
	if err != nil {
		return nil, classify(err)
	}

	lineups := deps.Lineups
	if lineups == nil {
		lineups = AutoLineups{}
	}

	p := &progression{
		store:      deps.Store,
		file:       deps.Competitions,
		schedule:   deps.Schedule,
		playoffs:   byCompetition,
		tieBreaker: deps.TieBreaker,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}

	standingsService := NewStandingsService(deps.Store, deps.Locker, deps.Logger)
	deps.Dispatcher.Subscribe(models.EventMatchFinalized, standingsService.OnMatchFinalized)

	return &Engine{
		Advance:   newAdvanceService(p, deps.Simulator, lineups, deps.Locker),
		Draws:     newCupDrawService(p, deps.Locker),
		Standings: standingsService,
		Seasons:   newSeasonService(p, rules, deps.Locker, deps.Archiver),
	}, nil
}
