package retention

import (
	"fmt"

	"github.com/pders01/checkpoint/internal/models"
)

// SweepResult summarizes a garbage-collection pass
type SweepResult struct {
	DryRun          bool
	ContentRemoved  int
	DiffsRemoved    int
	ContentKept     int
	DiffsKept       int
	SkippedBranches []string
}

// Sweep removes content and diff objects that no remaining manifest in the
// same branch references. A branch with an unreadable manifest is left
// untouched, since its references are unknown.
func (m *Manager) Sweep(dryRun bool) (*SweepResult, error) {
	branches, err := m.manifests.Branches()
	if err != nil {
		return nil, err
	}

	result := &SweepResult{DryRun: dryRun}
	for _, branch := range branches {
		snaps, broken, err := m.manifests.ListChecked(branch)
		if err != nil {
			return result, err
		}
		if broken > 0 {
			m.log.Warn("skipping sweep of branch with unreadable snapshots", m.log.Args("branch", branch, "unreadable", broken))
			result.SkippedBranches = append(result.SkippedBranches, branch)
			continue
		}

		content, diffs := referenced(snaps)

		hashes, err := m.content.List(branch)
		if err != nil {
			return result, err
		}
		for _, h := range hashes {
			if content[h] {
				result.ContentKept++
				continue
			}
			if !dryRun {
				if err := m.content.Remove(branch, h); err != nil {
					return result, fmt.Errorf("failed to remove content %s: %w", h, err)
				}
			}
			result.ContentRemoved++
		}

		hashes, err = m.diffs.List(branch)
		if err != nil {
			return result, err
		}
		for _, h := range hashes {
			if diffs[h] {
				result.DiffsKept++
				continue
			}
			if !dryRun {
				if err := m.diffs.Remove(branch, h); err != nil {
					return result, fmt.Errorf("failed to remove diff %s: %w", h, err)
				}
			}
			result.DiffsRemoved++
		}
	}

	m.log.Debug("sweep finished", m.log.Args(
		"dryRun", dryRun,
		"contentRemoved", result.ContentRemoved,
		"diffsRemoved", result.DiffsRemoved,
	))
	return result, nil
}

// referenced collects every object hash named by snaps
func referenced(snaps []*models.Snapshot) (content, diffs map[string]bool) {
	content = make(map[string]bool)
	diffs = make(map[string]bool)
	for _, s := range snaps {
		for _, list := range [][]models.FileChange{s.FileChanges.Added, s.FileChanges.Modified, s.FileChanges.Deleted} {
			for _, c := range list {
				if c.ContentHash != "" {
					content[c.ContentHash] = true
				}
				if c.DiffHash != "" {
					diffs[c.DiffHash] = true
				}
			}
		}
	}
	return content, diffs
}
