package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const validCompetitions = `
competitions:
  - id: ESP1
    name: Primera
    type: league
    handler: league
    season: "2025"
    tier: 1
  - id: ESP2
    name: Segunda
    type: league
    handler: league_with_playoff
    season: "2025"
    tier: 2
    playoff: ESP2_PO
  - id: CUP
    name: Copa
    type: knockout_cup
    handler: knockout_cup
    season: "2025"
    draw: random
    draw_seed: 7
    away_goals: true
schedules:
  - competition: ESP2
    season: "2025"
    matchdays: ["2025-08-16", "2025-08-23"]
    rounds:
      - round: 1
        name: Semifinal
        two_legged: true
        first_leg_date: "2026-06-10"
        second_leg_date: "2026-06-14"
      - round: 2
        name: Final
        two_legged: true
        first_leg_date: "2026-06-18"
        second_leg_date: "2026-06-21"
  - competition: CUP
    season: "2025"
    rounds:
      - round: 1
        name: First round
        first_leg_date: "2025-10-29"
        entrants: [1, 2, 3, 4]
playoffs:
  - id: ESP2_PO
    type: four_team
    competition: ESP2
    qualifying_positions: [3, 4, 5, 6]
    direct_promotion_positions: [1, 2]
    trigger_matchday: 2
promotion_rules:
  - top_division: ESP1
    bottom_division: ESP2
    relegated_positions: [18, 19, 20]
    direct_promotion_positions: [1, 2]
    playoff: ESP2_PO
`

func TestParseCompetitions_Valid(t *testing.T) {
	file, err := ParseCompetitions([]byte(validCompetitions))
	if err != nil {
		t.Fatalf("ParseCompetitions() error = %v", err)
	}
	if len(file.Competitions) != 3 {
		t.Fatalf("got %d competitions, want 3", len(file.Competitions))
	}
	cup, ok := file.Competition("CUP")
	if !ok || cup.DrawSeed == nil || *cup.DrawSeed != 7 || !cup.AwayGoals {
		t.Errorf("cup config not parsed correctly: %+v", cup)
	}

	schedule, err := NewSchedule(file)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}
	final, err := schedule.RoundConfig("ESP2", "2025", 2)
	if err != nil {
		t.Fatalf("RoundConfig() error = %v", err)
	}
	if final.Name != "Final" || !final.TwoLegged || final.SecondLegDate == nil {
		t.Errorf("unexpected final config: %+v", final)
	}
	if want := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC); !final.SecondLegDate.Equal(want) {
		t.Errorf("final second leg = %v, want %v", final.SecondLegDate, want)
	}
	if got := schedule.TotalRounds("ESP2", "2025"); got != 2 {
		t.Errorf("TotalRounds() = %d, want 2", got)
	}
	if got := schedule.Entrants("CUP", "2025", 1); len(got) != 4 {
		t.Errorf("Entrants() = %v, want 4 teams", got)
	}
	if got := schedule.Matchdays("ESP2", "2025"); got != 2 {
		t.Errorf("Matchdays() = %d, want 2", got)
	}
}

func TestSchedule_MissingEntryIsFatal(t *testing.T) {
	file, err := ParseCompetitions([]byte(validCompetitions))
	if err != nil {
		t.Fatalf("ParseCompetitions() error = %v", err)
	}
	schedule, err := NewSchedule(file)
	if err != nil {
		t.Fatalf("NewSchedule() error = %v", err)
	}

	if _, err := schedule.RoundConfig("ESP2", "2025", 3); !errors.Is(err, ErrMissingScheduleEntry) {
		t.Errorf("RoundConfig(round 3) error = %v, want ErrMissingScheduleEntry", err)
	}
	if _, err := schedule.RoundConfig("ESP2", "2026", 1); !errors.Is(err, ErrMissingScheduleEntry) {
		t.Errorf("RoundConfig(season 2026) error = %v, want ErrMissingScheduleEntry", err)
	}
	if _, err := schedule.MatchdayDate("ESP2", "2025", 3); !errors.Is(err, ErrMissingScheduleEntry) {
		t.Errorf("MatchdayDate(3) error = %v, want ErrMissingScheduleEntry", err)
	}
}

func TestParseCompetitions_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		replace [2]string
	}{
		{"unknown handler", [2]string{"handler: knockout_cup", "handler: swiss"}},
		{"missing playoff reference", [2]string{"playoff: ESP2_PO\n`", "playoff: NOPE\n`"}},
		{"bad playoff type", [2]string{"type: four_team", "type: eight_team"}},
		{"bad date", [2]string{`"2025-10-29"`, `"29.10.2025"`}},
		{"unknown bottom division", [2]string{"bottom_division: ESP2", "bottom_division: ESP3"}},
		{"unknown draw", [2]string{"draw: random", "draw: lottery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := strings.Replace(validCompetitions+"`", tt.replace[0], tt.replace[1], 1)
			src = strings.TrimSuffix(src, "`")
			_, err := ParseCompetitions([]byte(src))
			if !errors.Is(err, ErrInvalidCompetitionConfig) {
				t.Errorf("ParseCompetitions() error = %v, want ErrInvalidCompetitionConfig", err)
			}
		})
	}
}
