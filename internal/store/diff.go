package store

import (
	"errors"
	"fmt"

	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pterm/pterm"
)

// DiffStore persists precomputed patches keyed by diff hash
type DiffStore struct {
	layout *Layout
	log    *pterm.Logger
}

// NewDiffStore creates a diff store on layout
func NewDiffStore(layout *Layout, logger *pterm.Logger) *DiffStore {
	return &DiffStore{layout: layout, log: logging.OrDiscard(logger)}
}

// StoreDiff writes diff under its hash. written is false when it already existed.
func (s *DiffStore) StoreDiff(branch string, diff *models.DiffObject) (bool, error) {
	if diff == nil || diff.Hash == "" {
		return false, fmt.Errorf("diff object has no hash")
	}
	path := s.layout.DiffPath(branch, diff.Hash)
	if exists(s.layout.fs, path) {
		return false, nil
	}
	if _, err := writeJSONAtomic(s.layout.fs, path, diff); err != nil {
		return false, fmt.Errorf("failed to store diff %s: %w", diff.Hash, err)
	}
	return true, nil
}

// GetDiff reads a diff. Missing or corrupt objects yield (nil, false).
func (s *DiffStore) GetDiff(branch, hash string) (*models.DiffObject, bool) {
	var diff models.DiffObject
	if err := readJSON(s.layout.fs, s.layout.DiffPath(branch, hash), &diff); err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn("unreadable diff object", s.log.Args("branch", branch, "hash", hash, "error", err))
		}
		return nil, false
	}
	return &diff, true
}

// List returns every diff hash stored in branch, sorted
func (s *DiffStore) List(branch string) ([]string, error) {
	return listSharded(s.layout.fs, s.layout.DiffsDir(branch))
}

// Remove deletes a diff. Removing a missing diff is not an error.
func (s *DiffStore) Remove(branch, hash string) error {
	path := s.layout.DiffPath(branch, hash)
	if !exists(s.layout.fs, path) {
		return nil
	}
	return s.layout.fs.Remove(path)
}
