package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pders01/checkpoint/internal/config"
	"github.com/pders01/checkpoint/internal/engine"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/testutil"
	"github.com/spf13/viper"
)

// setupProject creates a temp project, points the config at its store and
// changes into it. Everything is undone when the test ends.
func setupProject(t *testing.T) *testutil.TempProject {
	t.Helper()

	p := testutil.NewTempProject(t)

	viper.Reset()
	config.SetDefaults()
	viper.Set("storage.root", p.StoreRoot)
	cfgFile = filepath.Join(filepath.Dir(p.Path), "config.toml")
	branchArg = ""
	resetFlags()

	oldWd, _ := os.Getwd()
	if err := os.Chdir(p.Path); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}

	t.Cleanup(func() {
		os.Chdir(oldWd)
		viper.Reset()
		cfgFile = ""
		branchArg = ""
		p.Cleanup()
	})
	return p
}

func resetFlags() {
	saveName, saveDescription, saveTags, saveTrigger, saveSkipUnchanged = "", "", []string{}, "", false
	listAll, listTag, listSince, listLimit, listJSON, listToon = false, "", "", 0, false, false
	metaName, metaDescription, metaTags, metaAddTags, metaRemoveTags, metaJSON, metaToon = "", "", nil, nil, nil, false, false
	tagsJSON, tagsToon, tagsRename = false, false, ""
	pruneDays, pruneDryRun, pruneForce, pruneSweep = 0, true, false, false
	deleteForce, deleteSweep = false, false
	restoreTarget, restoreFull, restoreVerbose = "", false, false
	diffJSON, diffToon, diffPatch, diffNoColor = false, false, false, true
	exportOutput = ""
	scanJSON = false
	searchFiles, searchJSON, searchLimit = false, false, 20
	relatedJSON, relatedToon, relatedLimit = false, false, 10
}

// save runs the save command and returns the new snapshot
func save(t *testing.T, name string, tags ...string) *models.Snapshot {
	t.Helper()

	saveName = name
	saveTags = tags
	defer func() { saveName, saveTags = "", []string{} }()

	before := snapshotIDs(t)
	if err := runSave(nil, []string{}); err != nil {
		t.Fatalf("save command failed: %v", err)
	}

	for _, s := range listSnapshots(t) {
		if !before[s.ID] {
			return s
		}
	}
	t.Fatalf("save did not create a snapshot")
	return nil
}

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := openEngine()
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	return eng
}

func listSnapshots(t *testing.T) []*models.Snapshot {
	t.Helper()
	snaps, err := testEngine(t).ListAllSnapshots()
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	return snaps
}

func snapshotIDs(t *testing.T) map[string]bool {
	t.Helper()
	ids := make(map[string]bool)
	for _, s := range listSnapshots(t) {
		ids[s.ID] = true
	}
	return ids
}

// age backdates a snapshot's manifest file
func age(t *testing.T, eng *engine.Engine, s *models.Snapshot, d time.Duration) {
	t.Helper()
	path := filepath.Join(eng.StorageDir(), s.Namespace, "snapshots", s.ID+".json")
	old := time.Now().Add(-d)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("failed to backdate manifest: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}
