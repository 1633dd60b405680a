package cmd

import (
	"testing"

	"github.com/pders01/checkpoint/internal/models"
)

func TestSaveCapturesTree(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("main.go", "package main\n")
	p.CreateFile("docs/notes.txt", "notes\n")

	snap := save(t, "first", "test")

	if snap.Name != "first" {
		t.Errorf("expected name 'first', got '%s'", snap.Name)
	}
	if snap.Namespace != "main" {
		t.Errorf("expected branch 'main', got '%s'", snap.Namespace)
	}
	if snap.Trigger != models.TriggerManual {
		t.Errorf("expected trigger manual, got %s", snap.Trigger)
	}
	if len(snap.FileChanges.Added) != 2 {
		t.Errorf("expected 2 added files, got %d", len(snap.FileChanges.Added))
	}
	if len(snap.Tags) != 1 || snap.Tags[0] != "test" {
		t.Errorf("expected tags [test], got %v", snap.Tags)
	}
}

func TestSaveRecordsChanges(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "one\n")
	p.CreateFile("b.txt", "two\n")
	save(t, "first")

	p.CreateFile("a.txt", "one changed\n")
	p.RemoveFile("b.txt")
	p.CreateFile("c.txt", "three\n")
	snap := save(t, "second")

	fc := snap.FileChanges
	if len(fc.Added) != 1 || fc.Added[0].Path != "c.txt" {
		t.Errorf("expected c.txt added, got %v", fc.Added)
	}
	if len(fc.Modified) != 1 || fc.Modified[0].Path != "a.txt" {
		t.Errorf("expected a.txt modified, got %v", fc.Modified)
	}
	if len(fc.Deleted) != 1 || fc.Deleted[0].Path != "b.txt" {
		t.Errorf("expected b.txt deleted, got %v", fc.Deleted)
	}
}

func TestSaveBranchFlag(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "one\n")

	branchArg = "feature/x"
	snap := save(t, "on feature")

	if snap.Namespace != "feature_x" {
		t.Errorf("expected branch 'feature_x', got '%s'", snap.Namespace)
	}
}

func TestSaveSkipUnchanged(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "one\n")
	save(t, "first")

	saveSkipUnchanged = true
	if err := runSave(nil, []string{"again"}); err != nil {
		t.Fatalf("save command failed: %v", err)
	}

	if n := len(listSnapshots(t)); n != 1 {
		t.Errorf("expected 1 snapshot, got %d", n)
	}
}

func TestSaveInvalidTrigger(t *testing.T) {
	setupProject(t)

	saveTrigger = "sometimes"
	if err := runSave(nil, []string{}); err == nil {
		t.Error("expected error for invalid trigger")
	}
}

func TestSaveUsesGitBranch(t *testing.T) {
	p := setupProject(t)
	p.InitGit()
	p.Checkout("topic", true)

	snap := save(t, "from git")

	if snap.Namespace != "topic" {
		t.Errorf("expected branch 'topic', got '%s'", snap.Namespace)
	}
	if snap.GitBranch != "topic" {
		t.Errorf("expected git branch 'topic', got '%s'", snap.GitBranch)
	}
	for _, fc := range snap.FileChanges.Added {
		if fc.Path == ".git/HEAD" {
			t.Error(".git contents were captured")
		}
	}
}
