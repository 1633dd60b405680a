package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TempProject is a throwaway working tree plus a separate snapshot store
type TempProject struct {
	Path      string
	StoreRoot string
	T         *testing.T
}

// NewTempProject creates an empty project directory and a storage root
func NewTempProject(t *testing.T) *TempProject {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "checkpoint-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	project := filepath.Join(tmpDir, "project")
	store := filepath.Join(tmpDir, "store")
	for _, dir := range []string{project, store} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			os.RemoveAll(tmpDir)
			t.Fatalf("failed to create directory: %v", err)
		}
	}

	return &TempProject{
		Path:      project,
		StoreRoot: store,
		T:         t,
	}
}

// Cleanup removes the project and its store
func (p *TempProject) Cleanup() {
	p.T.Helper()
	if err := os.RemoveAll(filepath.Dir(p.Path)); err != nil {
		p.T.Errorf("failed to cleanup temp project: %v", err)
	}
}

// CreateFile creates a file in the project
func (p *TempProject) CreateFile(name, content string) {
	p.T.Helper()
	p.WriteBytes(name, []byte(content))
}

// WriteBytes creates a file with raw content in the project
func (p *TempProject) WriteBytes(name string, data []byte) {
	p.T.Helper()
	path := filepath.Join(p.Path, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		p.T.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		p.T.Fatalf("failed to create file: %v", err)
	}
}

// RemoveFile deletes a file from the project
func (p *TempProject) RemoveFile(name string) {
	p.T.Helper()
	if err := os.Remove(filepath.Join(p.Path, name)); err != nil {
		p.T.Fatalf("failed to remove file: %v", err)
	}
}

// ReadFile returns a project file's content
func (p *TempProject) ReadFile(name string) string {
	p.T.Helper()
	data, err := os.ReadFile(filepath.Join(p.Path, name))
	if err != nil {
		p.T.Fatalf("failed to read file: %v", err)
	}
	return string(data)
}

// FileExists reports whether a project file exists
func (p *TempProject) FileExists(name string) bool {
	_, err := os.Stat(filepath.Join(p.Path, name))
	return err == nil
}

// HasGit reports whether the git binary is available
func HasGit() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// InitGit turns the project into a git repository on branch main with one
// commit. The test is skipped when git is not installed.
func (p *TempProject) InitGit() {
	p.T.Helper()
	if !HasGit() {
		p.T.Skip("git not installed")
	}

	p.git("init")
	p.git("symbolic-ref", "HEAD", "refs/heads/main")
	p.git("config", "user.name", "Test User")
	p.git("config", "user.email", "test@example.com")

	p.CreateFile("README.md", "# Test Repository\n")
	p.Commit("Initial commit")
}

// Commit stages and commits all changes
func (p *TempProject) Commit(message string) {
	p.T.Helper()
	p.git("add", ".")
	p.git("commit", "-m", message)
}

// Checkout switches to branch, creating it when create is set
func (p *TempProject) Checkout(branch string, create bool) {
	p.T.Helper()
	if create {
		p.git("checkout", "-b", branch)
		return
	}
	p.git("checkout", branch)
}

func (p *TempProject) git(args ...string) {
	p.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = p.Path
	if output, err := cmd.CombinedOutput(); err != nil {
		p.T.Fatalf("git %v failed: %v\n%s", args, err, output)
	}
}
