package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Dosada05/season-engine/models"
	"github.com/Dosada05/season-engine/repositories"
)

// SeasonProcessor is one step of a season boundary. A processor reads and
// appends to data; it must not rely on which other processors ran before it.
type SeasonProcessor interface {
	Name() string
	Process(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error)
}

// SeasonPipeline runs processors in the order they were registered.
type SeasonPipeline struct {
	processors []SeasonProcessor
	logger     *slog.Logger
}

func NewSeasonPipeline(logger *slog.Logger, processors ...SeasonProcessor) *SeasonPipeline {
	return &SeasonPipeline{processors: processors, logger: logger}
}

func (p *SeasonPipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

func (p *SeasonPipeline) Run(ctx context.Context, exec repositories.SQLExecutor, game *models.Game, data *models.SeasonTransitionData) (*models.SeasonTransitionData, error) {
	for _, proc := range p.processors {
		out, err := proc.Process(ctx, exec, game, data)
		if err != nil {
			return nil, fmt.Errorf("season processor %s for %s: %w", proc.Name(), data.CompetitionID, err)
		}
		if out != nil {
			data = out
		}
		p.logger.DebugContext(ctx, "season processor finished",
			slog.Int("game_id", game.ID),
			slog.String("processor", proc.Name()),
			slog.String("competition_id", data.CompetitionID),
			slog.Int("player_changes", len(data.PlayerChanges)))
	}
	return data, nil
}
