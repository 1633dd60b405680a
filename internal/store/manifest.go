package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pterm/pterm"
)

// ManifestStore persists snapshot manifests, one JSON file per snapshot
type ManifestStore struct {
	layout *Layout
	log    *pterm.Logger
}

// NewManifestStore creates a manifest store on layout
func NewManifestStore(layout *Layout, logger *pterm.Logger) *ManifestStore {
	return &ManifestStore{layout: layout, log: logging.OrDiscard(logger)}
}

// Save writes snap into branch, creating the namespace on first use.
// SizeKB is set from the serialized manifest.
func (m *ManifestStore) Save(branch string, snap *models.Snapshot) error {
	if snap.ID == "" {
		return fmt.Errorf("snapshot has no id")
	}
	if strings.ContainsAny(snap.ID, `/\`) || strings.HasPrefix(snap.ID, ".") {
		return fmt.Errorf("invalid snapshot id: %q", snap.ID)
	}
	if err := m.layout.EnsureBranch(branch); err != nil {
		return err
	}

	snap.SizeKB = 0
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	snap.SizeKB = math.Round(float64(len(data))/1024*100) / 100

	if _, err := writeJSONAtomic(m.layout.fs, m.layout.ManifestPath(branch, snap.ID), snap); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snap.ID, err)
	}
	snap.Namespace = SanitizeBranch(branch)
	return nil
}

// Load reads one manifest. Returns ErrNotFound when absent.
func (m *ManifestStore) Load(branch, id string) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := readJSON(m.layout.fs, m.layout.ManifestPath(branch, id), &snap); err != nil {
		return nil, err
	}
	snap.Namespace = SanitizeBranch(branch)
	return &snap, nil
}

// Exists reports whether branch holds a manifest for id
func (m *ManifestStore) Exists(branch, id string) bool {
	return exists(m.layout.fs, m.layout.ManifestPath(branch, id))
}

// Stat returns file info for a manifest, used for age-based retention
func (m *ManifestStore) Stat(branch, id string) (os.FileInfo, error) {
	info, err := m.layout.fs.Stat(m.layout.ManifestPath(branch, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return info, nil
}

// List returns the manifests of branch, newest first. Unparsable files are
// skipped and logged.
func (m *ManifestStore) List(branch string) ([]*models.Snapshot, error) {
	snaps, _, err := m.ListChecked(branch)
	return snaps, err
}

// ListChecked is List that also reports how many manifest files could not
// be read. Callers that delete objects must not trust a partial listing.
func (m *ManifestStore) ListChecked(branch string) ([]*models.Snapshot, int, error) {
	dir := m.layout.SnapshotsDir(branch)
	entries, err := readDirNames(m.layout, dir)
	if err != nil {
		return nil, 0, err
	}

	var snaps []*models.Snapshot
	broken := 0
	for _, name := range entries {
		id := strings.TrimSuffix(name, ".json")
		snap, err := m.Load(branch, id)
		if err != nil {
			m.log.Warn("skipping unreadable snapshot", m.log.Args("branch", branch, "file", name, "error", err))
			broken++
			continue
		}
		snaps = append(snaps, snap)
	}
	SortNewestFirst(snaps)
	return snaps, broken, nil
}

// ListAll returns the manifests of every branch, newest first
func (m *ManifestStore) ListAll() ([]*models.Snapshot, error) {
	branches, err := m.layout.Branches()
	if err != nil {
		return nil, err
	}

	var all []*models.Snapshot
	for _, b := range branches {
		snaps, err := m.List(b)
		if err != nil {
			return nil, err
		}
		all = append(all, snaps...)
	}
	SortNewestFirst(all)
	return all, nil
}

// Find locates a manifest by id across all branches
func (m *ManifestStore) Find(id string) (*models.Snapshot, error) {
	branches, err := m.layout.Branches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if m.Exists(b, id) {
			return m.Load(b, id)
		}
	}
	return nil, ErrNotFound
}

// Update overwrites an existing manifest with snap
func (m *ManifestStore) Update(branch string, snap *models.Snapshot) error {
	if !m.Exists(branch, snap.ID) {
		return fmt.Errorf("snapshot %s: %w", snap.ID, ErrNotFound)
	}
	return m.Save(branch, snap)
}

// Delete removes a manifest. With an empty branch every namespace is
// searched. Returns ErrNotFound when no manifest matched.
func (m *ManifestStore) Delete(id, branch string) error {
	if branch != "" {
		return m.remove(branch, id)
	}

	branches, err := m.layout.Branches()
	if err != nil {
		return err
	}
	for _, b := range branches {
		err := m.remove(b, id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
}

func (m *ManifestStore) remove(branch, id string) error {
	if !m.Exists(branch, id) {
		return fmt.Errorf("snapshot %s: %w", id, ErrNotFound)
	}
	if err := m.layout.fs.Remove(m.layout.ManifestPath(branch, id)); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", id, err)
	}
	return nil
}

// Branches lists the namespaces that exist in the store
func (m *ManifestStore) Branches() ([]string, error) {
	return m.layout.Branches()
}

// SortNewestFirst orders snaps by timestamp descending, id as tiebreak
func SortNewestFirst(snaps []*models.Snapshot) {
	sort.SliceStable(snaps, func(i, j int) bool {
		if snaps[i].Timestamp.Equal(snaps[j].Timestamp) {
			return snaps[i].ID > snaps[j].ID
		}
		return snaps[i].Timestamp.After(snaps[j].Timestamp)
	})
}

// readDirNames returns the .json file names in dir; a missing dir is empty
func readDirNames(l *Layout, dir string) ([]string, error) {
	f, err := l.fs.Open(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer f.Close()

	names, err := f.Readdirnames(-1)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var out []string
	for _, n := range names {
		if filepath.Ext(n) == ".json" && !strings.HasPrefix(n, ".") {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out, nil
}
