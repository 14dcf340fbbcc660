// Package storage archives finished seasons to object storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/Dosada05/season-engine/models"
)

type UploadResult struct {
	Key  string
	ETag string
}

// ObjectStore is the subset of an S3-compatible bucket the archiver needs.
type ObjectStore interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)
}

// SeasonArchive is the document written once a season has been closed.
type SeasonArchive struct {
	GameID      int                            `json:"game_id"`
	Season      string                         `json:"season"`
	NextSeason  string                         `json:"next_season"`
	ArchivedAt  time.Time                      `json:"archived_at"`
	Transitions []*models.TransitionLogEntry   `json:"transitions"`
	Pipeline    []*models.SeasonTransitionData `json:"pipeline"`
}

// Archiver stores season archives. A nil *Archiver is valid and does nothing,
// which is what the engine runs with when no bucket is configured.
type Archiver struct {
	store ObjectStore
}

func NewArchiver(store ObjectStore) *Archiver {
	return &Archiver{store: store}
}

// SeasonKey is the object key of one game's season archive.
func SeasonKey(gameID int, season string) string {
	return fmt.Sprintf("games/%d/seasons/%s/transitions.json", gameID, season)
}

// ArchiveSeason uploads the archive and returns its key. It returns "" when
// archiving is disabled.
func (a *Archiver) ArchiveSeason(ctx context.Context, archive *SeasonArchive) (string, error) {
	if a == nil || a.store == nil {
		return "", nil
	}
	body, err := json.Marshal(archive)
	if err != nil {
		return "", fmt.Errorf("failed to encode season archive: %w", err)
	}
	res, err := a.store.Upload(ctx, SeasonKey(archive.GameID, archive.Season), "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return res.Key, nil
}
