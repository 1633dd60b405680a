package cmd

import (
	"path/filepath"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	for _, ext := range []string{".json", ".yaml"} {
		t.Run(ext, func(t *testing.T) {
			p := setupProject(t)
			p.CreateFile("a.txt", "a\n")
			first := save(t, "first", "x")
			branchArg = "feature"
			p.CreateFile("b.txt", "b\n")
			second := save(t, "second")
			branchArg = ""

			path := filepath.Join(filepath.Dir(p.Path), "export"+ext)
			if err := runExport(nil, []string{path}); err != nil {
				t.Fatalf("export command failed: %v", err)
			}

			eng := testEngine(t)
			if err := eng.DeleteSnapshot(first.ID, ""); err != nil {
				t.Fatalf("delete failed: %v", err)
			}

			if err := runImport(nil, []string{path}); err != nil {
				t.Fatalf("import command failed: %v", err)
			}

			got, err := eng.GetSnapshot(first.Namespace, first.ID)
			if err != nil {
				t.Fatalf("imported snapshot missing: %v", err)
			}
			if got.Name != "first" || !got.HasTag("x") {
				t.Errorf("imported snapshot differs: %+v", got)
			}
			if _, err := eng.GetSnapshot("feature", second.ID); err != nil {
				t.Errorf("snapshot on feature lost: %v", err)
			}
			if n := len(listSnapshots(t)); n != 2 {
				t.Errorf("expected 2 snapshots after import, got %d", n)
			}
		})
	}
}

func TestImportMissingFile(t *testing.T) {
	setupProject(t)

	if err := runImport(nil, []string{"does-not-exist.json"}); err == nil {
		t.Error("expected error for missing file")
	}
}
