// Package engine ties scanning, object storage, manifests, restore and
// retention together into the snapshot operations the CLI exposes.
package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/restore"
	"github.com/pders01/checkpoint/internal/retention"
	"github.com/pders01/checkpoint/internal/scan"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
)

// Options configures an Engine
type Options struct {
	// Fs defaults to the OS filesystem
	Fs afero.Fs
	// ProjectRoot is the working tree that gets scanned
	ProjectRoot string
	// StorageRoot holds one directory per project
	StorageRoot string
	// Project names the storage directory; defaults to the base name of ProjectRoot
	Project       string
	DefaultBranch string
	StoreDiffs    bool

	MaxFileSize   int64
	MatcherKind   string
	ExtraPatterns []string

	RestoreWorkers int
	PreserveTags   []string

	Logger *pterm.Logger
	Now    func() time.Time
	NewID  func() string
}

// Engine is the snapshot engine for one project
type Engine struct {
	fs            afero.Fs
	projectRoot   string
	project       string
	defaultBranch string
	storeDiffs    bool

	layout    *store.Layout
	content   *store.ContentStore
	diffs     *store.DiffStore
	manifests *store.ManifestStore
	scanner   *scan.Scanner
	restorer  *restore.Restorer
	retention *retention.Manager

	now   func() time.Time
	newID func() string
	log   *pterm.Logger

	locks sync.Map // sanitized branch -> *sync.Mutex
}

// New creates an engine. Nothing is written until the first snapshot.
func New(opts Options) (*Engine, error) {
	if opts.ProjectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}
	if opts.StorageRoot == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.DefaultBranch == "" {
		opts.DefaultBranch = store.DefaultBranch
	}

	projectRoot, err := filepath.Abs(opts.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	storageRoot, err := filepath.Abs(opts.StorageRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root: %w", err)
	}

	project := opts.Project
	if project == "" {
		project = filepath.Base(projectRoot)
	}
	project = store.SanitizeBranch(project)

	log := logging.OrDiscard(opts.Logger)
	layout := store.NewLayout(opts.Fs, filepath.Join(storageRoot, project))
	content := store.NewContentStore(layout, log)
	diffs := store.NewDiffStore(layout, log)
	manifests := store.NewManifestStore(layout, log)

	// a storage root inside the project must never be captured
	extra := append([]string{}, opts.ExtraPatterns...)
	if rel, err := filepath.Rel(projectRoot, storageRoot); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
		extra = append(extra, "/"+filepath.ToSlash(rel)+"/")
	}

	e := &Engine{
		fs:            opts.Fs,
		projectRoot:   projectRoot,
		project:       project,
		defaultBranch: opts.DefaultBranch,
		storeDiffs:    opts.StoreDiffs,
		layout:        layout,
		content:       content,
		diffs:         diffs,
		manifests:     manifests,
		scanner: scan.New(opts.Fs, scan.Options{
			MaxFileSize:   opts.MaxFileSize,
			MatcherKind:   opts.MatcherKind,
			ExtraPatterns: extra,
			Logger:        log,
		}),
		restorer:  restore.New(opts.Fs, content, restore.Options{Workers: opts.RestoreWorkers, Logger: log}),
		retention: retention.New(manifests, content, diffs, retention.Options{PreserveTags: opts.PreserveTags, Logger: log, Now: opts.Now}),
		now:       opts.Now,
		newID:     opts.NewID,
		log:       log,
	}
	return e, nil
}

// Project returns the sanitized project name
func (e *Engine) Project() string { return e.project }

// ProjectRoot returns the scanned working tree
func (e *Engine) ProjectRoot() string { return e.projectRoot }

// StorageDir returns the project's storage directory
func (e *Engine) StorageDir() string { return e.layout.Root() }

// DefaultBranch is used when a caller passes an empty branch
func (e *Engine) DefaultBranch() string { return e.defaultBranch }

func (e *Engine) branch(b string) string {
	if strings.TrimSpace(b) == "" {
		return e.defaultBranch
	}
	return b
}

func (e *Engine) lock(branch string) func() {
	v, _ := e.locks.LoadOrStore(store.SanitizeBranch(branch), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Scan returns the current working-tree records
func (e *Engine) Scan() ([]scan.FileRecord, error) {
	return e.scanner.Scan(e.projectRoot)
}

// Branches lists the namespaces that hold snapshots
func (e *Engine) Branches() ([]string, error) {
	return e.manifests.Branches()
}

// ListSnapshots returns the snapshots of branch, newest first
func (e *Engine) ListSnapshots(branch string) ([]*models.Snapshot, error) {
	return e.manifests.List(e.branch(branch))
}

// ListAllSnapshots returns the snapshots of every branch, newest first
func (e *Engine) ListAllSnapshots() ([]*models.Snapshot, error) {
	return e.manifests.ListAll()
}

// GetSnapshot loads one snapshot from branch
func (e *Engine) GetSnapshot(branch, id string) (*models.Snapshot, error) {
	snap, err := e.manifests.Load(e.branch(branch), id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return snap, nil
}

// ErrAmbiguous is returned when an id prefix matches several snapshots
var ErrAmbiguous = errors.New("ambiguous snapshot id")

// FindSnapshot resolves a full id or a unique id prefix. With an empty
// branch every namespace is searched.
func (e *Engine) FindSnapshot(branch, ref string) (*models.Snapshot, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("snapshot id is required")
	}

	var snaps []*models.Snapshot
	var err error
	if branch == "" {
		snaps, err = e.manifests.ListAll()
	} else {
		snaps, err = e.manifests.List(branch)
	}
	if err != nil {
		return nil, err
	}

	var matches []*models.Snapshot
	for _, s := range snaps {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("snapshot %s: %w", ref, store.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s matches %d snapshots", ErrAmbiguous, ref, len(matches))
	}
}

// DeleteSnapshot removes a manifest. With an empty branch every namespace
// is searched. Referenced objects stay until Sweep.
func (e *Engine) DeleteSnapshot(id, branch string) error {
	return e.manifests.Delete(id, branch)
}

// MetadataUpdate carries the editable fields; nil leaves a field unchanged
type MetadataUpdate struct {
	Name        *string
	Description *string
	Tags        []string
	SetTags     bool
}

// UpdateMetadata overwrites descriptive fields of a snapshot. The stored
// file-change list and stats are never modified.
func (e *Engine) UpdateMetadata(branch, id string, upd MetadataUpdate) (*models.Snapshot, error) {
	branch = e.branch(branch)
	defer e.lock(branch)()

	snap, err := e.manifests.Load(branch, id)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	if upd.Name != nil {
		snap.Name = *upd.Name
	}
	if upd.Description != nil {
		snap.Description = *upd.Description
	}
	if upd.SetTags {
		snap.Tags = normalizeTags(upd.Tags)
	}
	if err := e.manifests.Update(branch, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// StoreContent stores a body under hash; written is false on dedup
func (e *Engine) StoreContent(branch, hash, content, mimeType string, encoding models.Encoding) (bool, error) {
	return e.content.Store(e.branch(branch), hash, content, mimeType, encoding)
}

// GetContent returns a stored body, or false when unavailable
func (e *Engine) GetContent(branch, hash string) (string, bool) {
	return e.content.Get(e.branch(branch), hash)
}

// StoreDiff stores a diff object; written is false on dedup
func (e *Engine) StoreDiff(branch string, diff *models.DiffObject) (bool, error) {
	return e.diffs.StoreDiff(e.branch(branch), diff)
}

// GetDiff returns a stored diff object, or false when unavailable
func (e *Engine) GetDiff(branch, hash string) (*models.DiffObject, bool) {
	return e.diffs.GetDiff(e.branch(branch), hash)
}

// Plan previews age-based cleanup
func (e *Engine) Plan(maxAgeDays int) ([]retention.Candidate, error) {
	return e.retention.Plan(maxAgeDays)
}

// Cleanup deletes manifests older than maxAgeDays. Callers must not run it
// concurrently with snapshot creation.
func (e *Engine) Cleanup(maxAgeDays int) (int, error) {
	return e.retention.Cleanup(maxAgeDays)
}

// Sweep removes objects no remaining manifest references
func (e *Engine) Sweep(dryRun bool) (*retention.SweepResult, error) {
	return e.retention.Sweep(dryRun)
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
