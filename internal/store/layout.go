// Package store persists snapshot manifests, content objects and diff
// objects under a per-project root, one namespace directory per branch.
//
// Layout:
//
//	<root>/<branch>/snapshots/<id>.json
//	<root>/<branch>/content/<hh>/<hash[2:]>.json
//	<root>/<branch>/diffs/<hh>/<hash[2:]>.json
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when a manifest or object does not exist
var ErrNotFound = errors.New("not found")

// DefaultBranch is the namespace used when a branch name is empty
const DefaultBranch = "main"

const (
	snapshotsDir = "snapshots"
	contentDir   = "content"
	diffsDir     = "diffs"
)

// SanitizeBranch maps a branch name onto a safe directory name.
// Characters outside [A-Za-z0-9._-] become '_'.
func SanitizeBranch(branch string) string {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return DefaultBranch
	}
	b := []byte(branch)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-':
		default:
			b[i] = '_'
		}
	}
	out := string(b)
	// "." and ".." would escape the namespace
	if strings.Trim(out, ".") == "" {
		return strings.Repeat("_", len(out))
	}
	return out
}

// Layout resolves paths inside a project's storage root
type Layout struct {
	fs   afero.Fs
	root string
}

// NewLayout creates a layout rooted at root on fsys
func NewLayout(fsys afero.Fs, root string) *Layout {
	return &Layout{fs: fsys, root: root}
}

// Root returns the project storage directory
func (l *Layout) Root() string { return l.root }

// Fs returns the filesystem the layout lives on
func (l *Layout) Fs() afero.Fs { return l.fs }

// BranchDir returns the namespace directory for branch
func (l *Layout) BranchDir(branch string) string {
	return filepath.Join(l.root, SanitizeBranch(branch))
}

// SnapshotsDir returns the manifest directory for branch
func (l *Layout) SnapshotsDir(branch string) string {
	return filepath.Join(l.BranchDir(branch), snapshotsDir)
}

// ContentDir returns the content object directory for branch
func (l *Layout) ContentDir(branch string) string {
	return filepath.Join(l.BranchDir(branch), contentDir)
}

// DiffsDir returns the diff object directory for branch
func (l *Layout) DiffsDir(branch string) string {
	return filepath.Join(l.BranchDir(branch), diffsDir)
}

// ManifestPath returns the path of a snapshot manifest
func (l *Layout) ManifestPath(branch, id string) string {
	return filepath.Join(l.SnapshotsDir(branch), id+".json")
}

// ContentPath returns the sharded path of a content object
func (l *Layout) ContentPath(branch, hash string) string {
	return shardPath(l.ContentDir(branch), hash)
}

// DiffPath returns the sharded path of a diff object
func (l *Layout) DiffPath(branch, hash string) string {
	return shardPath(l.DiffsDir(branch), hash)
}

// EnsureBranch creates the three namespace directories for branch
func (l *Layout) EnsureBranch(branch string) error {
	for _, dir := range []string{l.SnapshotsDir(branch), l.ContentDir(branch), l.DiffsDir(branch)} {
		if err := l.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Branches lists the namespace directories present under the root, sorted
func (l *Layout) Branches() ([]string, error) {
	entries, err := afero.ReadDir(l.fs, l.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read storage root: %w", err)
	}

	var branches []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			branches = append(branches, e.Name())
		}
	}
	sort.Strings(branches)
	return branches, nil
}

// shardPath splits a hash into a two-character directory and the remainder
func shardPath(dir, hash string) string {
	if len(hash) < 3 {
		return filepath.Join(dir, "_", hash+".json")
	}
	return filepath.Join(dir, hash[:2], hash[2:]+".json")
}

// hashFromShard rebuilds a hash from a shard directory and file name
func hashFromShard(shard, name string) (string, bool) {
	if !strings.HasSuffix(name, ".json") {
		return "", false
	}
	rest := strings.TrimSuffix(name, ".json")
	if shard == "_" {
		return rest, rest != ""
	}
	if len(shard) != 2 || rest == "" {
		return "", false
	}
	return shard + rest, true
}

// listSharded walks dir/<hh>/*.json and returns the hashes found
func listSharded(fsys afero.Fs, dir string) ([]string, error) {
	shards, err := afero.ReadDir(fsys, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var hashes []string
	for _, shard := range shards {
		if !shard.IsDir() {
			continue
		}
		files, err := afero.ReadDir(fsys, filepath.Join(dir, shard.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read shard %s: %w", shard.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			if h, ok := hashFromShard(shard.Name(), f.Name()); ok {
				hashes = append(hashes, h)
			}
		}
	}
	sort.Strings(hashes)
	return hashes, nil
}

// writeJSONAtomic marshals v and replaces path via a temp file in the same
// directory, so readers never observe a partial object
func writeJSONAtomic(fsys afero.Fs, path string, v any) (int, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	if err := WriteFileAtomic(fsys, path, data, 0o644); err != nil {
		return 0, err
	}
	return len(data), nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it
// into place. Parent directories are created.
func WriteFileAtomic(fsys afero.Fs, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir for %q: %w", path, err)
	}

	tmp, err := afero.TempFile(fsys, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %q: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer fsys.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file %q: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %q: %w", tmpPath, err)
	}
	if err := fsys.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file %q: %w", tmpPath, err)
	}
	if err := fsys.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file %q to %q: %w", tmpPath, path, err)
	}
	return nil
}

// readJSON decodes path into v, mapping a missing file onto ErrNotFound
func readJSON(fsys afero.Fs, path string, v any) error {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func exists(fsys afero.Fs, path string) bool {
	_, err := fsys.Stat(path)
	return err == nil
}
