package engine

import (
	"sync"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/restore"
)

// Session carries an active branch for a caller so that the engine itself
// holds no mutable branch selection. Sessions are cheap; use one per caller.
type Session struct {
	e      *Engine
	mu     sync.RWMutex
	branch string
}

// Session starts a session on branch; empty means the default branch
func (e *Engine) Session(branch string) *Session {
	return &Session{e: e, branch: e.branch(branch)}
}

// Branch returns the active branch
func (s *Session) Branch() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branch
}

// SetBranch switches the active branch
func (s *Session) SetBranch(branch string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branch = s.e.branch(branch)
}

// CreateSnapshot captures the tree into the active branch
func (s *Session) CreateSnapshot(opts CreateOptions) (*models.Snapshot, error) {
	return s.e.CreateSnapshot(s.Branch(), opts)
}

// ListSnapshots lists the active branch
func (s *Session) ListSnapshots() ([]*models.Snapshot, error) {
	return s.e.ListSnapshots(s.Branch())
}

// RestoreSnapshot restores a snapshot of the active branch
func (s *Session) RestoreSnapshot(id, target string, full bool) (*restore.Report, error) {
	return s.e.RestoreSnapshot(s.Branch(), id, target, full)
}
