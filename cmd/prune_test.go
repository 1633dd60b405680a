package cmd

import (
	"testing"
	"time"
)

func TestPruneNoSnapshots(t *testing.T) {
	setupProject(t)

	if err := runPrune(nil, []string{}); err != nil {
		t.Fatalf("prune command failed: %v", err)
	}
}

func TestPruneDryRun(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "a\n")
	snap := save(t, "old")
	age(t, testEngine(t), snap, 10*24*time.Hour)

	pruneDays = 5
	if err := runPrune(nil, []string{}); err != nil {
		t.Fatalf("prune command failed: %v", err)
	}

	if n := len(listSnapshots(t)); n != 1 {
		t.Errorf("dry run deleted snapshots: %d left", n)
	}
}

func TestPruneForce(t *testing.T) {
	p := setupProject(t)
	p.CreateFile("a.txt", "a\n")
	old := save(t, "old")
	p.CreateFile("b.txt", "b\n")
	kept := save(t, "kept", "important")
	p.CreateFile("c.txt", "c\n")
	fresh := save(t, "fresh")

	eng := testEngine(t)
	age(t, eng, old, 10*24*time.Hour)
	age(t, eng, kept, 10*24*time.Hour)

	pruneDays = 5
	pruneForce = true
	pruneSweep = true
	if err := runPrune(nil, []string{}); err != nil {
		t.Fatalf("prune command failed: %v", err)
	}

	ids := snapshotIDs(t)
	if ids[old.ID] {
		t.Error("old snapshot was not pruned")
	}
	if !ids[kept.ID] {
		t.Error("preserved snapshot was pruned")
	}
	if !ids[fresh.ID] {
		t.Error("fresh snapshot was pruned")
	}
}
