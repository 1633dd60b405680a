// Package retention prunes old snapshot manifests and garbage-collects the
// content and diff objects no remaining manifest references.
package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/pterm/pterm"
)

// Options configures a Manager
type Options struct {
	// PreserveTags protect a manifest from age-based cleanup
	PreserveTags []string
	Logger       *pterm.Logger
	// Now overrides the clock
	Now func() time.Time
}

// Manager applies the retention window to a project store
type Manager struct {
	manifests *store.ManifestStore
	content   *store.ContentStore
	diffs     *store.DiffStore
	preserve  []string
	now       func() time.Time
	log       *pterm.Logger
}

// New creates a retention manager over the three stores
func New(manifests *store.ManifestStore, content *store.ContentStore, diffs *store.DiffStore, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		manifests: manifests,
		content:   content,
		diffs:     diffs,
		preserve:  opts.PreserveTags,
		now:       opts.Now,
		log:       logging.OrDiscard(opts.Logger),
	}
}

// Candidate is one manifest evaluated against the retention window
type Candidate struct {
	Snapshot *models.Snapshot
	Branch   string
	ModTime  time.Time
	Prune    bool
	Reason   string
}

// Plan evaluates every manifest without deleting anything. A manifest is
// pruned when its modification time is strictly before now - maxAgeDays.
func (m *Manager) Plan(maxAgeDays int) ([]Candidate, error) {
	if maxAgeDays < 0 {
		return nil, fmt.Errorf("invalid retention days: %d", maxAgeDays)
	}
	cutoff := m.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)

	branches, err := m.manifests.Branches()
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, branch := range branches {
		snaps, err := m.manifests.List(branch)
		if err != nil {
			return nil, err
		}
		for _, snap := range snaps {
			info, err := m.manifests.Stat(branch, snap.ID)
			if err != nil {
				m.log.Warn("cannot stat snapshot", m.log.Args("branch", branch, "id", snap.ID, "error", err))
				continue
			}

			c := Candidate{Snapshot: snap, Branch: branch, ModTime: info.ModTime()}
			switch tag, ok := m.preservedBy(snap); {
			case ok:
				c.Reason = fmt.Sprintf("tagged %q", tag)
			case info.ModTime().Before(cutoff):
				c.Prune = true
				c.Reason = fmt.Sprintf("older than %d days", maxAgeDays)
			default:
				c.Reason = "within retention window"
			}
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ModTime.Before(candidates[j].ModTime)
	})
	return candidates, nil
}

// Cleanup deletes every manifest Plan marks for pruning and returns how
// many were removed. Objects are left for Sweep.
func (m *Manager) Cleanup(maxAgeDays int) (int, error) {
	candidates, err := m.Plan(maxAgeDays)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, c := range candidates {
		if !c.Prune {
			continue
		}
		if err := m.manifests.Delete(c.Snapshot.ID, c.Branch); err != nil {
			return removed, fmt.Errorf("failed to prune snapshot %s: %w", c.Snapshot.ID, err)
		}
		m.log.Debug("pruned snapshot", m.log.Args("branch", c.Branch, "id", c.Snapshot.ID))
		removed++
	}

	if removed > 0 {
		m.log.Info("retention cleanup", m.log.Args("removed", removed, "days", maxAgeDays))
	}
	return removed, nil
}

func (m *Manager) preservedBy(snap *models.Snapshot) (string, bool) {
	for _, tag := range m.preserve {
		if snap.HasTag(tag) {
			return tag, true
		}
	}
	return "", false
}
