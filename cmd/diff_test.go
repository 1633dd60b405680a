package cmd

import (
	"strings"
	"testing"
)

func TestDiffSummary(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "line one\nline two\n")
	p.CreateFile("b.txt", "b\n")
	first := save(t, "first", "wip")

	p.CreateFile("a.txt", "line one\nline 2\n")
	p.RemoveFile("b.txt")
	p.CreateFile("c.txt", "c\n")
	second := save(t, "second", "done")

	eng := testEngine(t)
	cmp, err := eng.Compare(first.Namespace, first.ID, second.ID)
	if err != nil {
		t.Fatalf("compare failed: %v", err)
	}

	diff := summarize(first.Namespace, cmp)
	if strings.Join(diff.Added, ",") != "c.txt" {
		t.Errorf("expected c.txt added, got %v", diff.Added)
	}
	if strings.Join(diff.Modified, ",") != "a.txt" {
		t.Errorf("expected a.txt modified, got %v", diff.Modified)
	}
	if strings.Join(diff.Deleted, ",") != "b.txt" {
		t.Errorf("expected b.txt deleted, got %v", diff.Deleted)
	}
	if len(diff.TagsAdded) != 1 || diff.TagsAdded[0] != "done" {
		t.Errorf("expected tag 'done' added, got %v", diff.TagsAdded)
	}
	if len(diff.TagsRemoved) != 1 || diff.TagsRemoved[0] != "wip" {
		t.Errorf("expected tag 'wip' removed, got %v", diff.TagsRemoved)
	}
}

func TestDiffCommand(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "one\n")
	first := save(t, "first")
	p.CreateFile("a.txt", "two\n")
	second := save(t, "second")

	diffPatch = true
	if err := runDiff(nil, []string{first.ID[:8], second.ID[:8]}); err != nil {
		t.Fatalf("diff command failed: %v", err)
	}

	diffNoColor = false
	diffJSON = true
	if err := runDiff(nil, []string{first.ID, second.ID}); err != nil {
		t.Fatalf("diff --json failed: %v", err)
	}
}

func TestDiffUnknownSnapshot(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "one\n")
	first := save(t, "first")

	if err := runDiff(nil, []string{first.ID, "nope"}); err == nil {
		t.Error("expected error for unknown snapshot")
	}
}
