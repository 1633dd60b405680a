package engine

import (
	"fmt"
	"sort"

	"github.com/pders01/checkpoint/internal/models"
)

// Comparison is the file-level difference between two replayed states
type Comparison struct {
	From      *models.Snapshot
	To        *models.Snapshot
	Added     []models.FileChange
	Modified  []FileDelta
	Deleted   []models.FileChange
	Unchanged int
}

// FileDelta pairs the two versions of a modified file
type FileDelta struct {
	Path   string
	Before models.FileChange
	After  models.FileChange
}

// Compare diffs the trees as of snapshots fromID and toID in branch
func (e *Engine) Compare(branch, fromID, toID string) (*Comparison, error) {
	branch = e.branch(branch)

	from, err := e.GetSnapshot(branch, fromID)
	if err != nil {
		return nil, err
	}
	to, err := e.GetSnapshot(branch, toID)
	if err != nil {
		return nil, err
	}

	a, err := e.State(branch, from.ID)
	if err != nil {
		return nil, err
	}
	b, err := e.State(branch, to.ID)
	if err != nil {
		return nil, err
	}

	cmp := &Comparison{From: from, To: to}
	for path, after := range b {
		before, ok := a[path]
		switch {
		case !ok:
			cmp.Added = append(cmp.Added, after)
		case before.ContentHash != after.ContentHash:
			cmp.Modified = append(cmp.Modified, FileDelta{Path: path, Before: before, After: after})
		default:
			cmp.Unchanged++
		}
	}
	for path, before := range a {
		if _, ok := b[path]; !ok {
			cmp.Deleted = append(cmp.Deleted, before)
		}
	}

	sort.Slice(cmp.Added, func(i, j int) bool { return cmp.Added[i].Path < cmp.Added[j].Path })
	sort.Slice(cmp.Modified, func(i, j int) bool { return cmp.Modified[i].Path < cmp.Modified[j].Path })
	sort.Slice(cmp.Deleted, func(i, j int) bool { return cmp.Deleted[i].Path < cmp.Deleted[j].Path })
	return cmp, nil
}

// Patch returns a unified patch for a modified text file. A stored diff
// object is used when one matches; otherwise the patch is computed from
// both bodies.
func (e *Engine) Patch(branch string, d FileDelta) (string, error) {
	branch = e.branch(branch)
	if !d.Before.IsTextFile || !d.After.IsTextFile {
		return "", fmt.Errorf("%s: binary files differ", d.Path)
	}

	if d.After.DiffHash != "" {
		if diff, ok := e.diffs.GetDiff(branch, d.After.DiffHash); ok && diff.FromHash == d.Before.ContentHash {
			return diff.Patch, nil
		}
	}

	before, ok := e.content.Get(branch, d.Before.ContentHash)
	if !ok {
		return "", fmt.Errorf("%s: content %s unavailable", d.Path, d.Before.ContentHash)
	}
	after, ok := e.content.Get(branch, d.After.ContentHash)
	if !ok {
		return "", fmt.Errorf("%s: content %s unavailable", d.Path, d.After.ContentHash)
	}
	return BuildDiff(d.Path, d.Before.ContentHash, d.After.ContentHash, before, after).Patch, nil
}
