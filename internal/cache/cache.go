// Package cache keeps the raw API documents on local disk. Activity files are
// merged, never truncated, so the full history survives incremental fetches
// and can be replayed into the destination tables on every run.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BartekS5/stravaetl/pkg/models"
	"github.com/BartekS5/stravaetl/pkg/utils"
	"github.com/google/renameio/v2"
)

type Store struct {
	Dir string
}

func New(dir string) *Store {
	return &Store{Dir: dir}
}

func (s *Store) ProfilePath(account string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("athlete_profile_%s.json", account))
}

func (s *Store) ActivitiesPath(account string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("activities_%s.json", account))
}

// SaveProfile overwrites the cached profile for account.
func (s *Store) SaveProfile(account string, profile models.Document) error {
	return s.writeJSON(s.ProfilePath(account), profile)
}

// LoadProfile returns nil when no profile has been cached yet.
func (s *Store) LoadProfile(account string) (models.Document, error) {
	data, err := s.read(s.ProfilePath(account))
	if err != nil || data == nil {
		return nil, err
	}
	doc, err := models.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.ProfilePath(account), err)
	}
	return doc, nil
}

// LoadActivities returns the cached activities for account, or nil
// when nothing has been cached.
func (s *Store) LoadActivities(account string) ([]models.Document, error) {
	data, err := s.read(s.ActivitiesPath(account))
	if err != nil || data == nil {
		return nil, err
	}
	docs, err := models.DecodeDocuments(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.ActivitiesPath(account), err)
	}
	return docs, nil
}

// MergeActivities folds batch into the cached activity list. A record whose
// id is already cached replaces the old copy in place; new ids are appended
// in batch order. The file is replaced atomically. It returns the size of the
// merged list.
func (s *Store) MergeActivities(account string, batch []models.Document) (int, error) {
	existing, err := s.LoadActivities(account)
	if err != nil {
		return 0, err
	}

	merged, err := mergeByID(existing, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to merge activities for %s: %w", account, err)
	}

	if err := s.writeJSON(s.ActivitiesPath(account), merged); err != nil {
		return 0, err
	}
	return len(merged), nil
}

func mergeByID(existing, batch []models.Document) ([]models.Document, error) {
	merged := make([]models.Document, 0, len(existing)+len(batch))
	index := make(map[int64]int, len(existing)+len(batch))

	add := func(doc models.Document) error {
		id, err := utils.ConvertToInt64(doc["id"])
		if err != nil {
			return fmt.Errorf("activity without usable id: %w", err)
		}
		if i, ok := index[id]; ok {
			merged[i] = doc
			return nil
		}
		index[id] = len(merged)
		merged = append(merged, doc)
		return nil
	}

	for _, doc := range existing {
		if err := add(doc); err != nil {
			return nil, err
		}
	}
	for _, doc := range batch {
		if err := add(doc); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func (s *Store) read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (s *Store) writeJSON(path string, v interface{}) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
