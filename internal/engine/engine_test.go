package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pders01/checkpoint/internal/models"
	"github.com/pders01/checkpoint/internal/store"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectRoot = "/work/proj"

// testClock advances one second on every call so manifests order strictly
type testClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func newTestEngine(t *testing.T) (*Engine, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(projectRoot, 0o755))

	clock := &testClock{cur: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	var seq atomic.Int64
	e, err := New(Options{
		Fs:          fsys,
		ProjectRoot: projectRoot,
		StorageRoot: "/store",
		StoreDiffs:  true,
		Now:         clock.Now,
		NewID: func() string {
			return fmt.Sprintf("snap-%04d", seq.Add(1))
		},
	})
	require.NoError(t, err)
	return e, fsys
}

func write(t *testing.T, fsys afero.Fs, rel string, data []byte) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, filepath.Join(projectRoot, rel), data, 0o644))
}

func paths(changes []models.FileChange) []string {
	out := make([]string, 0, len(changes))
	for _, c := range changes {
		out = append(out, c.Path)
	}
	sort.Strings(out)
	return out
}

func TestNewRequiresRoots(t *testing.T) {
	_, err := New(Options{StorageRoot: "/store"})
	assert.Error(t, err)
	_, err = New(Options{ProjectRoot: "/p"})
	assert.Error(t, err)
}

func TestNewDerivesProjectName(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, "proj", e.Project())
	assert.Equal(t, "/store/proj", e.StorageDir())
	assert.Equal(t, "main", e.DefaultBranch())
}

func TestScenarioDeleteAfterSnapshot(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("hello"))
	write(t, fsys, "b.bin", []byte{0x00, 0x01, 0x02, 0xff})

	s1, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, s1.Stats.FileCount)
	assert.Equal(t, int64(9), s1.Stats.TotalSize)
	assert.Equal(t, []string{"a.txt", "b.bin"}, paths(s1.FileChanges.Added))
	assert.Equal(t, models.TriggerManual, s1.Trigger)
	assert.NotEmpty(t, s1.Name)

	require.NoError(t, fsys.Remove(filepath.Join(projectRoot, "a.txt")))

	s2, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(s2.FileChanges.Deleted))
	assert.NotContains(t, paths(s2.FileChanges.Added), "a.txt")
	assert.NotContains(t, paths(s2.FileChanges.Modified), "a.txt")
	assert.Equal(t, 1, s2.Stats.FileCount)
}

func TestScenarioExportImport(t *testing.T) {
	for _, name := range []string{"export.json", "export.yaml"} {
		t.Run(name, func(t *testing.T) {
			e, fsys := newTestEngine(t)
			write(t, fsys, "a.txt", []byte("one"))
			_, err := e.CreateSnapshot("main", CreateOptions{Tags: []string{"important"}})
			require.NoError(t, err)
			write(t, fsys, "a.txt", []byte("two"))
			_, err = e.CreateSnapshot("feature/x", CreateOptions{Description: "on a branch"})
			require.NoError(t, err)

			before := snapshotIDs(t, e)
			out := filepath.Join("/exports", name)

			n, err := e.Export(out)
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			for _, b := range []string{"main", "feature/x"} {
				require.NoError(t, fsys.RemoveAll(e.layout.SnapshotsDir(b)))
			}
			assert.Empty(t, snapshotIDs(t, e))

			res, err := e.Import(out, "")
			require.NoError(t, err)
			assert.Equal(t, 2, res.Imported)
			assert.Equal(t, before, snapshotIDs(t, e))

			snap, err := e.FindSnapshot("", "snap-0002")
			require.NoError(t, err)
			assert.Equal(t, "feature_x", snap.Namespace)
			assert.Equal(t, "on a branch", snap.Description)

			// a second import never overwrites
			res, err = e.Import(out, "")
			require.NoError(t, err)
			assert.Equal(t, 0, res.Imported)
			assert.Equal(t, 2, res.Skipped)
		})
	}
}

func snapshotIDs(t *testing.T, e *Engine) []string {
	t.Helper()
	all, err := e.ListAllSnapshots()
	require.NoError(t, err)
	ids := []string{}
	for _, s := range all {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

func TestImportRejectsGarbage(t *testing.T) {
	e, fsys := newTestEngine(t)
	require.NoError(t, afero.WriteFile(fsys, "/bad.json", []byte("not json"), 0o644))
	_, err := e.Import("/bad.json", "")
	assert.Error(t, err)

	_, err = e.Import("/missing.json", "")
	assert.Error(t, err)
}

func TestDedupAcrossSnapshots(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("same bytes"))
	_, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	count := func() int {
		hashes, err := e.content.List("main")
		require.NoError(t, err)
		return len(hashes)
	}
	require.Equal(t, 1, count())

	// identical content under a new path reuses the object
	write(t, fsys, "copy.txt", []byte("same bytes"))
	s2, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"copy.txt"}, paths(s2.FileChanges.Added))
	assert.Equal(t, 1, count())

	// modifying and reverting adds exactly one object
	write(t, fsys, "a.txt", []byte("changed"))
	_, err = e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	write(t, fsys, "a.txt", []byte("same bytes"))
	s4, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(s4.FileChanges.Modified))
	assert.Equal(t, 2, count())
}

func TestModifiedTextStoresDiff(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "notes.md", []byte("line one\nline two\n"))
	_, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	write(t, fsys, "notes.md", []byte("line one\nline 2\n"))
	s2, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	require.Len(t, s2.FileChanges.Modified, 1)

	change := s2.FileChanges.Modified[0]
	require.NotEmpty(t, change.DiffHash)

	diff, ok := e.GetDiff("main", change.DiffHash)
	require.True(t, ok)
	assert.Equal(t, 1, diff.Additions)
	assert.Equal(t, 1, diff.Deletions)
	assert.Contains(t, diff.Patch, "+line 2")
	assert.Contains(t, diff.Patch, "-line two")
}

func TestSkipUnchanged(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("x"))
	_, err := e.CreateSnapshot("main", CreateOptions{SkipUnchanged: true})
	require.NoError(t, err)

	_, err = e.CreateSnapshot("main", CreateOptions{SkipUnchanged: true, Trigger: models.TriggerAutoTime})
	assert.True(t, errors.Is(err, ErrNoChanges))

	// without the flag an empty snapshot is still recorded
	s, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	assert.True(t, s.FileChanges.Empty())
	assert.Equal(t, 1, s.Stats.FileCount)
}

func TestStateAndFullRestore(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("a1"))
	write(t, fsys, "dir/b.txt", []byte("b1"))
	s1, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	write(t, fsys, "a.txt", []byte("a2"))
	require.NoError(t, fsys.Remove(filepath.Join(projectRoot, "dir/b.txt")))
	s2, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	st1, err := e.State("main", s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.txt"}, st1.Paths())

	st2, err := e.State("main", s2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, st2.Paths())

	_, err = e.State("main", "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	report, err := e.RestoreSnapshot("main", s1.ID, "/restore", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.txt"}, report.Written)

	got, err := afero.ReadFile(fsys, "/restore/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a1", string(got))

	// applying s2's own change list moves the tree forward
	report, err = e.RestoreSnapshot("main", s2.ID, "/restore", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, report.Written)
	assert.Equal(t, []string{"dir/b.txt"}, report.Deleted)

	got, err = afero.ReadFile(fsys, "/restore/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a2", string(got))
}

func TestRestoreBinaryRoundTrip(t *testing.T) {
	e, fsys := newTestEngine(t)
	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0x00, 0xff, 0x10}
	write(t, fsys, "img.png", raw)
	s, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	_, err = e.RestoreChanges("main", s.FileChanges, "/out")
	require.NoError(t, err)

	got, err := afero.ReadFile(fsys, "/out/img.png")
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestCompareAndPatch(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "keep.txt", []byte("same\n"))
	write(t, fsys, "edit.txt", []byte("old\n"))
	write(t, fsys, "drop.txt", []byte("bye\n"))
	s1, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	write(t, fsys, "edit.txt", []byte("new\n"))
	write(t, fsys, "add.txt", []byte("hi\n"))
	require.NoError(t, fsys.Remove(filepath.Join(projectRoot, "drop.txt")))
	s2, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	cmp, err := e.Compare("main", s1.ID, s2.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"add.txt"}, paths(cmp.Added))
	assert.Equal(t, []string{"drop.txt"}, paths(cmp.Deleted))
	require.Len(t, cmp.Modified, 1)
	assert.Equal(t, "edit.txt", cmp.Modified[0].Path)
	assert.Equal(t, 1, cmp.Unchanged)

	patch, err := e.Patch("main", cmp.Modified[0])
	require.NoError(t, err)
	assert.Contains(t, patch, "-old")
	assert.Contains(t, patch, "+new")
}

func TestUpdateMetadataKeepsChanges(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("x"))
	s, err := e.CreateSnapshot("main", CreateOptions{Name: "first"})
	require.NoError(t, err)

	name := "renamed"
	updated, err := e.UpdateMetadata("main", s.ID, MetadataUpdate{
		Name:    &name,
		Tags:    []string{"important", " important ", "", "wip"},
		SetTags: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, []string{"important", "wip"}, updated.Tags)

	loaded, err := e.GetSnapshot("main", s.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", loaded.Name)
	assert.Equal(t, s.FileChanges, loaded.FileChanges)

	_, err = e.UpdateMetadata("main", "nope", MetadataUpdate{Name: &name})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestFindSnapshotByPrefix(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("x"))
	_, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	_, err = e.CreateSnapshot("dev", CreateOptions{})
	require.NoError(t, err)

	s, err := e.FindSnapshot("", "snap-0002")
	require.NoError(t, err)
	assert.Equal(t, "dev", s.Namespace)

	_, err = e.FindSnapshot("", "snap-")
	assert.True(t, errors.Is(err, ErrAmbiguous))

	s, err = e.FindSnapshot("main", "snap-")
	require.NoError(t, err)
	assert.Equal(t, "snap-0001", s.ID)

	_, err = e.FindSnapshot("", "zzz")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDeleteAndSweep(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("v1"))
	s1, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	write(t, fsys, "a.txt", []byte("v2"))
	_, err = e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	require.NoError(t, e.DeleteSnapshot(s1.ID, ""))
	res, err := e.Sweep(false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ContentRemoved)
	assert.Equal(t, 1, res.ContentKept)
}

func TestBranchIsolation(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("shared"))
	s, err := e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	hash := s.FileChanges.Added[0].ContentHash
	_, ok := e.GetContent("main", hash)
	assert.True(t, ok)
	_, ok = e.GetContent("feature/x", hash)
	assert.False(t, ok)

	// the first snapshot on a new branch sees an empty previous state
	s2, err := e.CreateSnapshot("feature/x", CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(s2.FileChanges.Added))

	branches, err := e.Branches()
	require.NoError(t, err)
	assert.Equal(t, []string{"feature_x", "main"}, branches)
}

func TestConcurrentCreationAcrossBranches(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("shared content"))
	write(t, fsys, "b.bin", []byte{0, 1, 2, 3})

	const perBranch = 5
	branches := []string{"main", "feature/a", "feature/b"}

	var wg sync.WaitGroup
	errs := make(chan error, len(branches)*perBranch)
	for _, b := range branches {
		for i := 0; i < perBranch; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := e.CreateSnapshot(b, CreateOptions{}); err != nil {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for _, b := range branches {
		snaps, err := e.ListSnapshots(b)
		require.NoError(t, err)
		assert.Len(t, snaps, perBranch, b)

		// exactly one snapshot per branch introduced the files
		added := 0
		for _, s := range snaps {
			added += len(s.FileChanges.Added)
		}
		assert.Equal(t, 2, added, b)

		hashes, err := e.content.List(b)
		require.NoError(t, err)
		assert.Len(t, hashes, 2, b)

		state, err := e.State(b, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "b.bin"}, state.Paths())
	}
}

func TestStorageUsage(t *testing.T) {
	e, fsys := newTestEngine(t)

	usage, err := e.StorageUsage()
	require.NoError(t, err)
	assert.Zero(t, usage.TotalBytes)
	assert.Empty(t, usage.Branches)

	write(t, fsys, "a.txt", []byte("hello"))
	_, err = e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)
	write(t, fsys, "a.txt", []byte("hello again"))
	_, err = e.CreateSnapshot("main", CreateOptions{})
	require.NoError(t, err)

	usage, err = e.StorageUsage()
	require.NoError(t, err)
	require.Len(t, usage.Branches, 1)
	b := usage.Branches[0]
	assert.Equal(t, "main", b.Branch)
	assert.Equal(t, 2, b.Snapshots)
	assert.Equal(t, 2, b.ContentObjects)
	assert.Equal(t, 1, b.DiffObjects)
	assert.Equal(t, b.Bytes, usage.TotalBytes)
	assert.Positive(t, usage.TotalBytes)
}

func TestStorageInsideProjectIsNotCaptured(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/p/main.go", []byte("package main\n"), 0o644))

	e, err := New(Options{Fs: fsys, ProjectRoot: "/p", StorageRoot: "/p/.snapshots"})
	require.NoError(t, err)

	_, err = e.CreateSnapshot("", CreateOptions{})
	require.NoError(t, err)
	s, err := e.CreateSnapshot("", CreateOptions{})
	require.NoError(t, err)

	assert.True(t, s.FileChanges.Empty())
	assert.Equal(t, 1, s.Stats.FileCount)
}

func TestSessionTracksBranch(t *testing.T) {
	e, fsys := newTestEngine(t)
	write(t, fsys, "a.txt", []byte("x"))

	sess := e.Session("")
	assert.Equal(t, "main", sess.Branch())

	sess.SetBranch("feature/y")
	s, err := sess.CreateSnapshot(CreateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "feature_y", s.Namespace)

	snaps, err := sess.ListSnapshots()
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	_, err = sess.RestoreSnapshot(s.ID, "/r", false)
	require.NoError(t, err)

	// another session is unaffected
	assert.Equal(t, "main", e.Session("").Branch())
}
