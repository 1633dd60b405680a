package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pders01/checkpoint/internal/digest"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/scan"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/pmezard/go-difflib/difflib"
)

// ErrNoChanges is returned by CreateSnapshot when SkipUnchanged is set and
// the tree matches the previous state
var ErrNoChanges = errors.New("no changes since last snapshot")

// CreateOptions describes a new snapshot
type CreateOptions struct {
	Name        string
	Description string
	Tags        []string
	Trigger     models.Trigger
	GitBranch   string
	// SkipUnchanged turns an empty change list into ErrNoChanges
	SkipUnchanged bool
}

// State is a replayed tree: path -> the change entry that last wrote it
type State map[string]models.FileChange

// Paths returns the state's paths, sorted
func (s State) Paths() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CreateSnapshot scans the project, diffs it against the branch's replayed
// state, stores new content and writes the manifest.
func (e *Engine) CreateSnapshot(branch string, opts CreateOptions) (*models.Snapshot, error) {
	branch = e.branch(branch)
	defer e.lock(branch)()

	records, err := e.Scan()
	if err != nil {
		return nil, err
	}

	prev, err := e.State(branch, "")
	if err != nil {
		return nil, err
	}

	changes, stats, err := e.capture(branch, records, prev)
	if err != nil {
		return nil, err
	}
	if opts.SkipUnchanged && changes.Empty() {
		return nil, ErrNoChanges
	}

	trigger := opts.Trigger
	if trigger == "" {
		trigger = models.TriggerManual
	}
	ts := e.now().UTC()
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = models.DefaultName(trigger, ts.Local())
	}
	gitBranch := opts.GitBranch
	if gitBranch == "" {
		gitBranch = branch
	}

	snap := &models.Snapshot{
		ID:          e.newID(),
		Name:        name,
		Description: opts.Description,
		Tags:        normalizeTags(opts.Tags),
		Timestamp:   ts,
		Trigger:     trigger,
		GitBranch:   gitBranch,
		Stats:       stats,
		FileChanges: changes,
	}
	if err := e.manifests.Save(branch, snap); err != nil {
		return nil, err
	}

	e.log.Info("snapshot created", e.log.Args(
		"id", snap.ShortID(),
		"branch", branch,
		"added", len(changes.Added),
		"modified", len(changes.Modified),
		"deleted", len(changes.Deleted),
	))
	return snap, nil
}

// capture classifies every record against prev and stores what is new
func (e *Engine) capture(branch string, records []scan.FileRecord, prev State) (models.FileChanges, models.Stats, error) {
	changes := models.FileChanges{
		Added:    []models.FileChange{},
		Modified: []models.FileChange{},
		Deleted:  []models.FileChange{},
	}
	var stats models.Stats

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })

	seen := make(map[string]bool, len(records))
	for i := range records {
		rec := &records[i]
		seen[rec.Path] = true
		stats.FileCount++
		stats.TotalSize += rec.Size

		old, existed := prev[rec.Path]
		if existed && old.ContentHash == rec.Hash {
			continue
		}

		if _, err := e.content.Store(branch, rec.Hash, rec.Content, rec.MimeType, rec.Encoding); err != nil {
			return changes, stats, err
		}

		change := models.FileChange{
			Path:        rec.Path,
			ContentHash: rec.Hash,
			IsTextFile:  rec.IsTextFile,
			Size:        rec.Size,
		}
		if !existed {
			changes.Added = append(changes.Added, change)
			continue
		}

		if e.storeDiffs && rec.IsTextFile && old.IsTextFile {
			if hash, ok := e.storeTextDiff(branch, rec, old); ok {
				change.DiffHash = hash
			}
		}
		changes.Modified = append(changes.Modified, change)
	}

	for _, path := range prev.Paths() {
		if seen[path] {
			continue
		}
		old := prev[path]
		changes.Deleted = append(changes.Deleted, models.FileChange{
			Path:       path,
			IsTextFile: old.IsTextFile,
			Size:       old.Size,
		})
	}

	return changes, stats, nil
}

// storeTextDiff records a unified patch from the previous body to rec.
// A missing previous body is not an error; the diff is simply omitted.
func (e *Engine) storeTextDiff(branch string, rec *scan.FileRecord, old models.FileChange) (string, bool) {
	before, ok := e.content.Get(branch, old.ContentHash)
	if !ok {
		return "", false
	}

	diff := BuildDiff(rec.Path, old.ContentHash, rec.Hash, before, rec.Content)
	diff.CreatedAt = e.now().UTC()
	if _, err := e.diffs.StoreDiff(branch, diff); err != nil {
		e.log.Warn("failed to store diff", e.log.Args("path", rec.Path, "error", err))
		return "", false
	}
	return diff.Hash, true
}

// BuildDiff produces a unified patch between two text bodies of path
func BuildDiff(path, fromHash, toHash, before, after string) *models.DiffObject {
	patch, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLinesKeepNL(before),
		B:        splitLinesKeepNL(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})

	adds, dels := countChanges(patch)
	return &models.DiffObject{
		Hash:      digest.SumString(fromHash + "\x00" + toHash + "\x00" + path),
		Path:      path,
		FromHash:  fromHash,
		ToHash:    toHash,
		Patch:     patch,
		Additions: adds,
		Deletions: dels,
	}
}

func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.SplitAfter(s, "\n")
}

func countChanges(patch string) (adds, dels int) {
	inHunk := false
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk:
		case strings.HasPrefix(line, "+"):
			adds++
		case strings.HasPrefix(line, "-"):
			dels++
		}
	}
	return adds, dels
}

// State replays the branch's manifests oldest to newest. With a non-empty
// uptoID the replay stops after that snapshot.
func (e *Engine) State(branch, uptoID string) (State, error) {
	snaps, err := e.manifests.List(e.branch(branch))
	if err != nil {
		return nil, err
	}

	state := State{}
	found := uptoID == ""
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		apply(state, s.FileChanges)
		if s.ID == uptoID {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("snapshot %s: %w", uptoID, store.ErrNotFound)
	}
	return state, nil
}

func apply(state State, fc models.FileChanges) {
	for _, c := range fc.Added {
		state[c.Path] = c
	}
	for _, c := range fc.Modified {
		state[c.Path] = c
	}
	for _, c := range fc.Deleted {
		delete(state, c.Path)
	}
}
