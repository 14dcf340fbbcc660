package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/season-engine/brackets"
	"github.com/Dosada05/season-engine/config"
	"github.com/Dosada05/season-engine/events"
	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/playoffs"
	"github.com/Dosada05/season-engine/repositories"
)

// Kinds of entries in the transition log.
const (
	TransitionBatchAdvanced    = "batch_advanced"
	TransitionTieResolved      = "tie_resolved"
	TransitionDrawConducted    = "draw_conducted"
	TransitionPlayoffGenerated = "playoff_round_generated"
	TransitionSeasonClosed     = "season_closed"
)

// TieBreaker settles drawn knockout matches.
type TieBreaker interface {
	brackets.ExtraTimeResolver
	brackets.PenaltyResolver
}

// progression is the state shared by the competition handlers and the
// services built on them.
type progression struct {
	store      repositories.Set
	file       *config.CompetitionsFile
	schedule   *config.Schedule
	playoffs   map[string]playoffs.Generator // keyed by competition id
	tieBreaker TieBreaker
	dispatcher *events.Dispatcher
	logger     *slog.Logger
}

// unitOfWork is one transaction plus the events raised inside it.
type unitOfWork struct {
	exec        repositories.SQLExecutor
	recorder    *events.Recorder
	transitions repositories.TransitionLogRepository
}

func (u *unitOfWork) emit(ctx context.Context, event models.DomainEvent) error {
	return u.recorder.Emit(ctx, u.exec, event)
}

func (u *unitOfWork) logTransition(ctx context.Context, game *models.Game, kind string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s transition: %w", kind, err)
	}
	entry := &models.TransitionLogEntry{GameID: game.ID, Kind: kind, Season: game.Season, Payload: data}
	return u.transitions.Append(ctx, u.exec, entry)
}

// inTx runs fn in one transaction. Events emitted by fn reach publishers only
// after commit; on error they are dropped together with the writes.
func (p *progression) inTx(ctx context.Context, fn func(ctx context.Context, u *unitOfWork) error) ([]models.DomainEvent, error) {
	recorder := p.dispatcher.NewRecorder()
	err := p.store.Tx.RunInTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		return fn(ctx, &unitOfWork{exec: exec, recorder: recorder, transitions: p.store.Transitions})
	})
	if err != nil {
		recorder.Discard()
		return nil, err
	}
	committed := recorder.Events()
	recorder.Flush()
	return committed, nil
}

// readUnit is used by read-only queries outside a transaction.
func (p *progression) readUnit() *unitOfWork {
	return &unitOfWork{recorder: p.dispatcher.NewRecorder(), transitions: p.store.Transitions}
}

func (p *progression) loadGame(ctx context.Context, exec repositories.SQLExecutor, gameID int) (*models.Game, error) {
	game, err := p.store.Games.GetByID(ctx, exec, gameID)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrGameNotFound, gameID)
		}
		return nil, err
	}
	return game, nil
}

func (p *progression) competition(ctx context.Context, competitionID string) (*models.Competition, error) {
	c, err := p.store.Competitions.GetByID(ctx, competitionID)
	if err != nil {
		if errors.Is(err, repositories.ErrCompetitionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCompetitionNotFound, competitionID)
		}
		return nil, err
	}
	return c, nil
}

func (p *progression) competitionConfig(competitionID string) (config.CompetitionConfig, error) {
	cfg, ok := p.file.Competition(competitionID)
	if !ok {
		return config.CompetitionConfig{}, fmt.Errorf("%w: competition %s is not configured", ErrConfiguration, competitionID)
	}
	return cfg, nil
}

func (p *progression) playoffFor(competitionID string) (playoffs.Generator, error) {
	g, ok := p.playoffs[competitionID]
	if !ok {
		return nil, fmt.Errorf("%w: competition %s has no playoff", ErrConfiguration, competitionID)
	}
	return g, nil
}

func (p *progression) handlerFor(ctx context.Context, competitionID string) (competitionHandler, error) {
	c, err := p.competition(ctx, competitionID)
	if err != nil {
		return competitionHandler{}, err
	}
	return handlerFor(c.HandlerType)
}

// squads returns have extended with the squads of teamIDs it lacks.
func (p *progression) squads(ctx context.Context, u *unitOfWork, have models.PlayersByTeam, teamIDs ...int) (models.PlayersByTeam, error) {
	out := make(models.PlayersByTeam, len(have)+len(teamIDs))
	for id, squad := range have {
		out[id] = squad
	}
	missing := make([]int, 0, len(teamIDs))
	for _, id := range teamIDs {
		if _, ok := out[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := p.store.Players.ListByTeams(ctx, u.exec, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load squads: %w", err)
	}
	for id, squad := range loaded {
		out[id] = squad
	}
	return out, nil
}

func (p *progression) source(exec repositories.SQLExecutor) *stateSource {
	return &stateSource{exec: exec, store: p.store}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
