package models

import (
	"fmt"
	"time"
)

// Snapshot is the manifest persisted for a captured working-tree state
type Snapshot struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Tags        []string    `json:"tags" yaml:"tags"`
	Timestamp   time.Time   `json:"timestamp" yaml:"timestamp"`
	Trigger     Trigger     `json:"trigger" yaml:"trigger"`
	GitBranch   string      `json:"gitBranch" yaml:"gitBranch"`
	SizeKB      float64     `json:"sizeKb" yaml:"sizeKb"`
	Stats       Stats       `json:"stats" yaml:"stats"`
	FileChanges FileChanges `json:"fileChanges" yaml:"fileChanges"`

	// Namespace is the sanitized branch directory the manifest was read from.
	// It is never serialized.
	Namespace string `json:"-" yaml:"-"`
}

// Stats summarizes the full scanned tree at capture time
type Stats struct {
	FileCount int   `json:"fileCount" yaml:"fileCount"`
	TotalSize int64 `json:"totalSize" yaml:"totalSize"`
}

// FileChanges groups the per-file differences against the previous state
type FileChanges struct {
	Added    []FileChange `json:"added" yaml:"added"`
	Modified []FileChange `json:"modified" yaml:"modified"`
	Deleted  []FileChange `json:"deleted" yaml:"deleted"`
}

// FileChange is a single entry of a change list
type FileChange struct {
	Path        string `json:"path" yaml:"path"`
	ContentHash string `json:"contentHash,omitempty" yaml:"contentHash,omitempty"`
	DiffHash    string `json:"diffHash,omitempty" yaml:"diffHash,omitempty"`
	IsTextFile  bool   `json:"isTextFile" yaml:"isTextFile"`
	Size        int64  `json:"size" yaml:"size"`
}

// Total returns the number of entries across all three lists
func (fc FileChanges) Total() int {
	return len(fc.Added) + len(fc.Modified) + len(fc.Deleted)
}

// Empty reports whether nothing changed
func (fc FileChanges) Empty() bool {
	return fc.Total() == 0
}

// HasTag reports whether the snapshot carries the given tag
func (s *Snapshot) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ShortID returns the first 8 characters of the id for display
func (s *Snapshot) ShortID() string {
	if len(s.ID) <= 8 {
		return s.ID
	}
	return s.ID[:8]
}

// DefaultName generates a display name from trigger and timestamp
// Format: <trigger> YYYY-MM-DD HH:MM
func DefaultName(trigger Trigger, timestamp time.Time) string {
	return fmt.Sprintf("%s %s", trigger, timestamp.Format("2006-01-02 15:04"))
}
