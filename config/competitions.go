package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/Dosada05/season-engine/models"
	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

var ErrInvalidCompetitionConfig = errors.New("invalid competition configuration")

const (
	DrawRandom   = "random"
	DrawStraight = "straight"

	PlayoffFourTeam = "four_team"
)

// CompetitionsFile is the typed shape of competitions.yaml.
type CompetitionsFile struct {
	Competitions   []CompetitionConfig   `yaml:"competitions"`
	Schedules      []ScheduleConfig      `yaml:"schedules"`
	Playoffs       []PlayoffConfig       `yaml:"playoffs"`
	PromotionRules []PromotionRuleConfig `yaml:"promotion_rules"`
}

type CompetitionConfig struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Type      string  `yaml:"type"`
	Handler   string  `yaml:"handler"`
	Season    string  `yaml:"season"`
	Country   string  `yaml:"country"`
	Tier      int     `yaml:"tier"`
	Draw      string  `yaml:"draw"`      // "random" or "straight", knockout rounds only
	DrawSeed  *uint64 `yaml:"draw_seed"` // fixed seed for reproducible draws
	AwayGoals bool    `yaml:"away_goals"`
	Playoff   string  `yaml:"playoff"` // id of a playoffs entry, league_with_playoff only
}

// ScheduleConfig holds one competition's calendar for one season.
type ScheduleConfig struct {
	Competition string        `yaml:"competition"`
	Season      string        `yaml:"season"`
	Matchdays   []string      `yaml:"matchdays"`
	Rounds      []RoundConfig `yaml:"rounds"`
}

type RoundConfig struct {
	Round         int    `yaml:"round"`
	Name          string `yaml:"name"`
	TwoLegged     bool   `yaml:"two_legged"`
	FirstLegDate  string `yaml:"first_leg_date"`
	SecondLegDate string `yaml:"second_leg_date"`
	Entrants      []int  `yaml:"entrants"` // teams joining the cup at this round
}

type PlayoffConfig struct {
	ID                       string `yaml:"id"`
	Type                     string `yaml:"type"`
	Competition              string `yaml:"competition"`
	QualifyingPositions      []int  `yaml:"qualifying_positions"`
	DirectPromotionPositions []int  `yaml:"direct_promotion_positions"`
	TriggerMatchday          int    `yaml:"trigger_matchday"`
	AwayGoals                bool   `yaml:"away_goals"`
}

type PromotionRuleConfig struct {
	TopDivision              string `yaml:"top_division"`
	BottomDivision           string `yaml:"bottom_division"`
	RelegatedPositions       []int  `yaml:"relegated_positions"`
	DirectPromotionPositions []int  `yaml:"direct_promotion_positions"`
	Playoff                  string `yaml:"playoff"`
}

// LoadCompetitions reads and validates the competitions file. Any missing key is
// reported here rather than at the first runtime lookup.
func LoadCompetitions(path string) (*CompetitionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read competitions file: %w", err)
	}
	return ParseCompetitions(data)
}

func ParseCompetitions(data []byte) (*CompetitionsFile, error) {
	var file CompetitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse competitions file: %w", err)
	}
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *CompetitionsFile) Validate() error {
	if len(f.Competitions) == 0 {
		return fmt.Errorf("%w: no competitions defined", ErrInvalidCompetitionConfig)
	}

	competitions := make(map[string]CompetitionConfig, len(f.Competitions))
	for i, c := range f.Competitions {
		if c.ID == "" {
			return fmt.Errorf("%w: competitions[%d]: id is required", ErrInvalidCompetitionConfig, i)
		}
		if _, dup := competitions[c.ID]; dup {
			return fmt.Errorf("%w: competition %s defined twice", ErrInvalidCompetitionConfig, c.ID)
		}
		if c.Season == "" {
			return fmt.Errorf("%w: competition %s: season is required", ErrInvalidCompetitionConfig, c.ID)
		}
		switch models.CompetitionType(c.Type) {
		case models.CompetitionLeague, models.CompetitionKnockoutCup, models.CompetitionGroupStageCup:
		default:
			return fmt.Errorf("%w: competition %s: unknown type %q", ErrInvalidCompetitionConfig, c.ID, c.Type)
		}
		if !models.HandlerType(c.Handler).Valid() {
			return fmt.Errorf("%w: competition %s: unknown handler %q", ErrInvalidCompetitionConfig, c.ID, c.Handler)
		}
		if c.Draw != "" && c.Draw != DrawRandom && c.Draw != DrawStraight {
			return fmt.Errorf("%w: competition %s: unknown draw strategy %q", ErrInvalidCompetitionConfig, c.ID, c.Draw)
		}
		if models.HandlerType(c.Handler) == models.HandlerLeagueWithPlayoff && c.Playoff == "" {
			return fmt.Errorf("%w: competition %s: league_with_playoff requires a playoff", ErrInvalidCompetitionConfig, c.ID)
		}
		competitions[c.ID] = c
	}

	playoffs := make(map[string]PlayoffConfig, len(f.Playoffs))
	for i, p := range f.Playoffs {
		if p.ID == "" {
			return fmt.Errorf("%w: playoffs[%d]: id is required", ErrInvalidCompetitionConfig, i)
		}
		if p.Type != PlayoffFourTeam {
			return fmt.Errorf("%w: playoff %s: unknown type %q", ErrInvalidCompetitionConfig, p.ID, p.Type)
		}
		if _, ok := competitions[p.Competition]; !ok {
			return fmt.Errorf("%w: playoff %s: unknown competition %q", ErrInvalidCompetitionConfig, p.ID, p.Competition)
		}
		if len(p.QualifyingPositions) != 4 {
			return fmt.Errorf("%w: playoff %s: four_team needs exactly 4 qualifying positions, got %d", ErrInvalidCompetitionConfig, p.ID, len(p.QualifyingPositions))
		}
		if !strictlyAscending(p.QualifyingPositions) {
			return fmt.Errorf("%w: playoff %s: qualifying positions must be ascending and distinct", ErrInvalidCompetitionConfig, p.ID)
		}
		if p.TriggerMatchday <= 0 {
			return fmt.Errorf("%w: playoff %s: trigger_matchday is required", ErrInvalidCompetitionConfig, p.ID)
		}
		playoffs[p.ID] = p
	}

	for _, c := range f.Competitions {
		if c.Playoff == "" {
			continue
		}
		p, ok := playoffs[c.Playoff]
		if !ok {
			return fmt.Errorf("%w: competition %s: unknown playoff %q", ErrInvalidCompetitionConfig, c.ID, c.Playoff)
		}
		if p.Competition != c.ID {
			return fmt.Errorf("%w: playoff %s belongs to %s, not %s", ErrInvalidCompetitionConfig, p.ID, p.Competition, c.ID)
		}
	}

	for i, s := range f.Schedules {
		if _, ok := competitions[s.Competition]; !ok {
			return fmt.Errorf("%w: schedules[%d]: unknown competition %q", ErrInvalidCompetitionConfig, i, s.Competition)
		}
		if s.Season == "" {
			return fmt.Errorf("%w: schedules[%d]: season is required", ErrInvalidCompetitionConfig, i)
		}
		for j, d := range s.Matchdays {
			if _, err := time.Parse(dateLayout, d); err != nil {
				return fmt.Errorf("%w: schedule %s/%s matchday %d: %v", ErrInvalidCompetitionConfig, s.Competition, s.Season, j+1, err)
			}
		}
		seen := make(map[int]bool, len(s.Rounds))
		for _, r := range s.Rounds {
			if r.Round <= 0 || seen[r.Round] {
				return fmt.Errorf("%w: schedule %s/%s: invalid or duplicate round %d", ErrInvalidCompetitionConfig, s.Competition, s.Season, r.Round)
			}
			seen[r.Round] = true
			if r.Name == "" {
				return fmt.Errorf("%w: schedule %s/%s round %d: name is required", ErrInvalidCompetitionConfig, s.Competition, s.Season, r.Round)
			}
			if _, err := time.Parse(dateLayout, r.FirstLegDate); err != nil {
				return fmt.Errorf("%w: schedule %s/%s round %d first_leg_date: %v", ErrInvalidCompetitionConfig, s.Competition, s.Season, r.Round, err)
			}
			if r.TwoLegged {
				if _, err := time.Parse(dateLayout, r.SecondLegDate); err != nil {
					return fmt.Errorf("%w: schedule %s/%s round %d second_leg_date: %v", ErrInvalidCompetitionConfig, s.Competition, s.Season, r.Round, err)
				}
			}
		}
	}

	for i, r := range f.PromotionRules {
		if _, ok := competitions[r.TopDivision]; !ok {
			return fmt.Errorf("%w: promotion_rules[%d]: unknown top_division %q", ErrInvalidCompetitionConfig, i, r.TopDivision)
		}
		if _, ok := competitions[r.BottomDivision]; !ok {
			return fmt.Errorf("%w: promotion_rules[%d]: unknown bottom_division %q", ErrInvalidCompetitionConfig, i, r.BottomDivision)
		}
		if r.TopDivision == r.BottomDivision {
			return fmt.Errorf("%w: promotion_rules[%d]: top and bottom division are the same", ErrInvalidCompetitionConfig, i)
		}
		if len(r.RelegatedPositions) == 0 || len(r.DirectPromotionPositions) == 0 {
			return fmt.Errorf("%w: promotion_rules[%d]: relegated and direct promotion positions are required", ErrInvalidCompetitionConfig, i)
		}
		if r.Playoff != "" {
			p, ok := playoffs[r.Playoff]
			if !ok {
				return fmt.Errorf("%w: promotion_rules[%d]: unknown playoff %q", ErrInvalidCompetitionConfig, i, r.Playoff)
			}
			if p.Competition != r.BottomDivision {
				return fmt.Errorf("%w: promotion_rules[%d]: playoff %s is not played in %s", ErrInvalidCompetitionConfig, i, p.ID, r.BottomDivision)
			}
		}
	}

	return nil
}

// Competition returns the definition with the given id.
func (f *CompetitionsFile) Competition(id string) (CompetitionConfig, bool) {
	for _, c := range f.Competitions {
		if c.ID == id {
			return c, true
		}
	}
	return CompetitionConfig{}, false
}

func (f *CompetitionsFile) Playoff(id string) (PlayoffConfig, bool) {
	for _, p := range f.Playoffs {
		if p.ID == id {
			return p, true
		}
	}
	return PlayoffConfig{}, false
}

// ToModel converts a definition into the persisted competition row.
func (c CompetitionConfig) ToModel() *models.Competition {
	return &models.Competition{
		ID:          c.ID,
		Name:        c.Name,
		Type:        models.CompetitionType(c.Type),
		HandlerType: models.HandlerType(c.Handler),
		Season:      c.Season,
		Country:     c.Country,
		Tier:        c.Tier,
	}
}

func strictlyAscending(values []int) bool {
	if !sort.IntsAreSorted(values) {
		return false
	}
	for i := 1; i < len(values); i++ {
		if values[i] == values[i-1] {
			return false
		}
	}
	return true
}
