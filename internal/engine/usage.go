package engine

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// BranchUsage is the storage footprint of one namespace
type BranchUsage struct {
	Branch         string `json:"branch"`
	Snapshots      int    `json:"snapshots"`
	ContentObjects int    `json:"contentObjects"`
	DiffObjects    int    `json:"diffObjects"`
	Bytes          int64  `json:"bytes"`
}

// Usage is the storage footprint of the project
type Usage struct {
	Project    string        `json:"project"`
	Root       string        `json:"root"`
	TotalBytes int64         `json:"totalBytes"`
	Branches   []BranchUsage `json:"branches"`
}

// StorageUsage walks the project's storage directory and totals file
// sizes per branch and object kind
func (e *Engine) StorageUsage() (*Usage, error) {
	root := e.layout.Root()
	usage := &Usage{Project: e.project, Root: root}
	byBranch := map[string]*BranchUsage{}

	if ok, err := afero.DirExists(e.fs, root); err != nil || !ok {
		return usage, err
	}

	err := afero.Walk(e.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".tmp-") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 3 {
			return nil
		}

		b, ok := byBranch[parts[0]]
		if !ok {
			b = &BranchUsage{Branch: parts[0]}
			byBranch[parts[0]] = b
		}

		b.Bytes += info.Size()
		usage.TotalBytes += info.Size()
		switch parts[1] {
		case "snapshots":
			b.Snapshots++
		case "content":
			b.ContentObjects++
		case "diffs":
			b.DiffObjects++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, b := range byBranch {
		usage.Branches = append(usage.Branches, *b)
	}
	sort.Slice(usage.Branches, func(i, j int) bool { return usage.Branches[i].Branch < usage.Branches[j].Branch })
	return usage, nil
}
