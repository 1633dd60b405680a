package engine

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Export is the document written by Export and read by Import
type Export struct {
	Project    string             `json:"project" yaml:"project"`
	ExportDate time.Time          `json:"exportDate" yaml:"exportDate"`
	Snapshots  []ExportedSnapshot `json:"snapshots" yaml:"snapshots"`
}

// ExportedSnapshot is a manifest plus the namespace it came from
type ExportedSnapshot struct {
	models.Snapshot `yaml:",inline"`
	Branch          string `json:"branch,omitempty" yaml:"branch,omitempty"`
}

// ImportResult counts what Import did
type ImportResult struct {
	Imported int
	Skipped  int
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Export writes every snapshot of every branch to path. The format is YAML
// when path ends in .yaml or .yml and JSON otherwise.
func (e *Engine) Export(path string) (int, error) {
	snaps, err := e.manifests.ListAll()
	if err != nil {
		return 0, err
	}

	doc := Export{
		Project:    e.project,
		ExportDate: e.now().UTC(),
		Snapshots:  make([]ExportedSnapshot, 0, len(snaps)),
	}
	for _, s := range snaps {
		doc.Snapshots = append(doc.Snapshots, ExportedSnapshot{Snapshot: *s, Branch: s.Namespace})
	}

	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to encode export: %w", err)
	}

	if err := store.WriteFileAtomic(e.fs, path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write export: %w", err)
	}
	return len(doc.Snapshots), nil
}

// Import merges the snapshots in path. Ids already present in any branch
// are skipped, never overwritten. Entries without a branch go to branch.
func (e *Engine) Import(path, branch string) (*ImportResult, error) {
	data, err := afero.ReadFile(e.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}

	var doc Export
	if isYAML(path) {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}

	existing, err := e.manifests.ListAll()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, s := range existing {
		known[s.ID] = true
	}

	result := &ImportResult{}
	for _, entry := range doc.Snapshots {
		snap := entry.Snapshot
		if snap.ID == "" || known[snap.ID] {
			result.Skipped++
			continue
		}
		target := entry.Branch
		if target == "" {
			target = e.branch(branch)
		}

		unlock := e.lock(target)
		err := e.manifests.Save(target, &snap)
		unlock()
		if err != nil {
			return result, fmt.Errorf("failed to import snapshot %s: %w", snap.ID, err)
		}
		known[snap.ID] = true
		result.Imported++
	}

	e.log.Info("snapshots imported", e.log.Args("imported", result.Imported, "skipped", result.Skipped))
	return result, nil
}
