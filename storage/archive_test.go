package storage

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/Dosada05/season-engine/models"
)

type memoryObjects struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryObjects) Upload(ctx context.Context, key, contentType string, r io.Reader) (*UploadResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.objects[key] = body
	m.types[key] = contentType
	return &UploadResult{Key: key}, nil
}

func TestArchiveSeason(t *testing.T) {
	objects := &memoryObjects{objects: map[string][]byte{}, types: map[string]string{}}
	a := NewArchiver(objects)

	archive := &SeasonArchive{
		GameID:      3,
		Season:      "2025",
		NextSeason:  "2026",
		Transitions: []*models.TransitionLogEntry{{GameID: 3, Kind: "batch_advanced", Season: "2025"}},
	}
	key, err := a.ArchiveSeason(context.Background(), archive)
	if err != nil {
		t.Fatalf("ArchiveSeason() error = %v", err)
	}
	if want := "games/3/seasons/2025/transitions.json"; key != want {
		t.Errorf("key = %q, want %q", key, want)
	}
	if objects.types[key] != "application/json" {
		t.Errorf("content type = %q", objects.types[key])
	}

	var got SeasonArchive
	if err := json.Unmarshal(objects.objects[key], &got); err != nil {
		t.Fatalf("stored archive is not JSON: %v", err)
	}
	if got.NextSeason != "2026" || len(got.Transitions) != 1 {
		t.Errorf("stored archive = %+v", got)
	}
}

func TestArchiveSeason_Disabled(t *testing.T) {
	var a *Archiver
	key, err := a.ArchiveSeason(context.Background(), &SeasonArchive{GameID: 1})
	if err != nil || key != "" {
		t.Errorf("nil archiver: ArchiveSeason() = %q, %v; want \"\", nil", key, err)
	}
}
