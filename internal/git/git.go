package git

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// IsGitRepo checks if dir is inside a git working tree
func IsGitRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// CurrentBranch returns the checked-out branch name in dir.
// A detached HEAD yields "HEAD".
func CurrentBranch(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentCommit returns the commit hash of HEAD in dir
func CurrentCommit(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get current commit: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// GitDir returns the absolute path of the repository's git directory
func GitDir(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "--absolute-git-dir")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to locate git dir: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// HeadPath returns the HEAD file that changes on checkout
func HeadPath(dir string) (string, error) {
	gitDir, err := GitDir(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(gitDir, "HEAD"), nil
}

// BranchOrDefault resolves the snapshot branch for dir: the current git
// branch, or fallback outside a repository or on a detached HEAD
func BranchOrDefault(dir, fallback string) string {
	if !IsGitRepo(dir) {
		return fallback
	}
	branch, err := CurrentBranch(dir)
	if err != nil || branch == "" || branch == "HEAD" {
		return fallback
	}
	return branch
}
