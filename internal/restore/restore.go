// Package restore materializes a snapshot change list onto a directory tree
package restore

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pders01/checkpoint/internal/logging"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/pterm/pterm"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
)

// DefaultWorkers bounds concurrent file operations
const DefaultWorkers = 8

// ObjectSource loads content objects; satisfied by *store.ContentStore
type ObjectSource interface {
	Load(branch, hash string) (*models.ContentObject, error)
}

// Options configures a Restorer
type Options struct {
	Workers int
	Logger  *pterm.Logger
}

// Restorer writes stored content back to disk
type Restorer struct {
	fs      afero.Fs
	objects ObjectSource
	workers int
	log     *pterm.Logger
}

// Failure records a single file that could not be restored
type Failure struct {
	Path string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Report is the per-file outcome of a restore
type Report struct {
	Written   []string
	Unchanged []string
	Deleted   []string
	Skipped   []string
	Failed    []Failure
}

// OK reports whether every file was handled
func (r *Report) OK() bool { return len(r.Failed) == 0 }

// New creates a restorer writing to fsys
func New(fsys afero.Fs, objects ObjectSource, opts Options) *Restorer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	return &Restorer{
		fs:      fsys,
		objects: objects,
		workers: opts.Workers,
		log:     logging.OrDiscard(opts.Logger),
	}
}

type action int

const (
	actionWrite action = iota
	actionDelete
)

type job struct {
	change models.FileChange
	action action
}

// Restore applies changes under target, reading objects from branch.
// Every file is attempted; failures are listed in the report and combined
// into the returned error.
func (r *Restorer) Restore(branch string, changes models.FileChanges, target string) (*Report, error) {
	target, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}
	if err := r.fs.MkdirAll(target, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create target: %w", err)
	}

	var jobs []job
	for _, c := range changes.Added {
		jobs = append(jobs, job{change: c, action: actionWrite})
	}
	for _, c := range changes.Modified {
		jobs = append(jobs, job{change: c, action: actionWrite})
	}
	for _, c := range changes.Deleted {
		jobs = append(jobs, job{change: c, action: actionDelete})
	}

	report := &Report{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(r.workers)
	for _, j := range jobs {
		p.Go(func() {
			outcome, err := r.apply(branch, target, j)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed = append(report.Failed, Failure{Path: j.change.Path, Err: err})
				r.log.Warn("failed to restore file", r.log.Args("path", j.change.Path, "error", err))
				return
			}
			switch outcome {
			case outcomeWritten:
				report.Written = append(report.Written, j.change.Path)
			case outcomeUnchanged:
				report.Unchanged = append(report.Unchanged, j.change.Path)
			case outcomeDeleted:
				report.Deleted = append(report.Deleted, j.change.Path)
			case outcomeSkipped:
				report.Skipped = append(report.Skipped, j.change.Path)
			}
		})
	}
	p.Wait()

	sort.Strings(report.Written)
	sort.Strings(report.Unchanged)
	sort.Strings(report.Deleted)
	sort.Strings(report.Skipped)
	sort.Slice(report.Failed, func(i, k int) bool { return report.Failed[i].Path < report.Failed[k].Path })

	var combined error
	for _, f := range report.Failed {
		combined = multierr.Append(combined, f)
	}
	return report, combined
}

type outcome int

const (
	outcomeWritten outcome = iota
	outcomeUnchanged
	outcomeDeleted
	outcomeSkipped
)

func (r *Restorer) apply(branch, target string, j job) (outcome, error) {
	dest, err := resolve(target, j.change.Path)
	if err != nil {
		return 0, err
	}

	if j.action == actionDelete {
		if _, err := r.fs.Stat(dest); os.IsNotExist(err) {
			return outcomeSkipped, nil
		}
		if err := r.fs.Remove(dest); err != nil {
			return 0, fmt.Errorf("failed to delete: %w", err)
		}
		return outcomeDeleted, nil
	}

	if j.change.ContentHash == "" {
		r.log.Debug("change has no content hash", r.log.Args("path", j.change.Path))
		return outcomeSkipped, nil
	}

	data, err := r.content(branch, j.change.ContentHash)
	if err != nil {
		return 0, err
	}

	if existing, err := afero.ReadFile(r.fs, dest); err == nil && bytes.Equal(existing, data) {
		return outcomeUnchanged, nil
	}

	if err := store.WriteFileAtomic(r.fs, dest, data, 0o644); err != nil {
		return 0, err
	}
	return outcomeWritten, nil
}

// content fetches an object and returns the raw file bytes
func (r *Restorer) content(branch, hash string) ([]byte, error) {
	obj, err := r.objects.Load(branch, hash)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", hash, err)
	}
	payload, err := store.Decode(obj)
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", hash, err)
	}
	if obj.Encoding == models.EncodingBinary {
		raw, err := base64.StdEncoding.DecodeString(string(payload))
		if err != nil {
			return nil, fmt.Errorf("content %s: invalid binary payload: %w", hash, err)
		}
		return raw, nil
	}
	return payload, nil
}

// resolve joins a project-relative path onto target, rejecting escapes
func resolve(target, rel string) (string, error) {
	if rel == "" || filepath.IsAbs(rel) || strings.HasPrefix(rel, "/") {
		return "", fmt.Errorf("invalid path %q", rel)
	}
	dest := filepath.Join(target, filepath.FromSlash(rel))
	back, err := filepath.Rel(target, dest)
	if err != nil || back == "." || back == ".." || strings.HasPrefix(back, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes restore target", rel)
	}
	return dest, nil
}
