package engine

import (
	"fmt"
	"sort"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/restore"
)

// RestoreChanges writes a change list into target using branch's objects
func (e *Engine) RestoreChanges(branch string, changes models.FileChanges, target string) (*restore.Report, error) {
	if target == "" {
		target = e.projectRoot
	}
	return e.restorer.Restore(e.branch(branch), changes, target)
}

// RestoreSnapshot restores one snapshot into target. With full set, the
// whole replayed tree up to that snapshot is written instead of only its
// own change list; files that did not exist at that point are not removed.
func (e *Engine) RestoreSnapshot(branch, id, target string, full bool) (*restore.Report, error) {
	branch = e.branch(branch)
	snap, err := e.manifests.Load(branch, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}

	changes := snap.FileChanges
	if full {
		state, err := e.State(branch, id)
		if err != nil {
			return nil, err
		}
		changes = models.FileChanges{Added: stateChanges(state)}
	}

	e.log.Debug("restoring snapshot", e.log.Args("id", snap.ShortID(), "branch", branch, "full", full, "files", changes.Total()))
	return e.RestoreChanges(branch, changes, target)
}

func stateChanges(state State) []models.FileChange {
	out := make([]models.FileChange, 0, len(state))
	for _, c := range state {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
