package cmd

import (
	"testing"
)

func TestMetaShow(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "a\n")
	snap := save(t, "first")

	if err := runMeta(nil, []string{snap.ID[:8]}); err != nil {
		t.Fatalf("meta command failed: %v", err)
	}

	metaJSON = true
	if err := runMeta(nil, []string{snap.ID}); err != nil {
		t.Fatalf("meta --json failed: %v", err)
	}
}

func TestMetaUpdate(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "a\n")
	snap := save(t, "first", "old", "keep")

	metaName = "renamed"
	metaDescription = "after the fix"
	metaAddTags = []string{"new"}
	metaRemoveTags = []string{"old"}
	if err := runMeta(nil, []string{snap.ID}); err != nil {
		t.Fatalf("meta command failed: %v", err)
	}

	got, err := testEngine(t).GetSnapshot(snap.Namespace, snap.ID)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if got.Name != "renamed" || got.Description != "after the fix" {
		t.Errorf("metadata not updated: %q %q", got.Name, got.Description)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "keep" || got.Tags[1] != "new" {
		t.Errorf("expected tags [keep new], got %v", got.Tags)
	}
	if len(got.FileChanges.Added) != 1 {
		t.Error("file changes were modified")
	}
}

func TestMetaNonExistent(t *testing.T) {
	setupProject(t)

	if err := runMeta(nil, []string{"does-not-exist"}); err == nil {
		t.Error("expected error for non-existent snapshot")
	}
}
