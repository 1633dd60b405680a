package git

import (
	"path/filepath"
	"testing"

	"github.com/pders01/checkpoint/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutsideRepository(t *testing.T) {
	p := testutil.NewTempProject(t)
	defer p.Cleanup()

	if !testutil.HasGit() {
		t.Skip("git not installed")
	}

	assert.False(t, IsGitRepo(p.Path))
	assert.Equal(t, "main", BranchOrDefault(p.Path, "main"))
}

func TestBranchAndHead(t *testing.T) {
	p := testutil.NewTempProject(t)
	defer p.Cleanup()
	p.InitGit()

	require.True(t, IsGitRepo(p.Path))

	branch, err := CurrentBranch(p.Path)
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	commit, err := CurrentCommit(p.Path)
	require.NoError(t, err)
	assert.Len(t, commit, 40)

	head, err := HeadPath(p.Path)
	require.NoError(t, err)
	assert.Equal(t, "HEAD", filepath.Base(head))
	assert.FileExists(t, head)

	p.Checkout("feature/x", true)
	assert.Equal(t, "feature/x", BranchOrDefault(p.Path, "main"))
}
