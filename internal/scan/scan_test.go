package scan

import (
	"sort"
	"strings"
	"testing"

	"github.com/pders01/checkpoint/internal/digest"
	"github.com/pders01/checkpoint/internal/models"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string][]byte) {
	t.Helper()
	for path, data := range files {
		require.NoError(t, afero.WriteFile(fsys, path, data, 0644))
	}
}

func paths(records []FileRecord) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Path)
	}
	sort.Strings(out)
	return out
}

func TestScanAppliesExcludes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string][]byte{
		"/p/main.go":                 []byte("package main\n"),
		"/p/src/util.go":             []byte("package src\n"),
		"/p/.git/HEAD":               []byte("ref: refs/heads/main\n"),
		"/p/node_modules/x/index.js": []byte("module.exports = 1\n"),
		"/p/.checkpoint/store.json":  []byte("{}"),
		"/p/.DS_Store":               {0, 1, 2},
		"/p/dist/bundle.js":          []byte("x"),
		"/p/.gitignore":              []byte("*.log\nsecret/\n"),
		"/p/debug.log":               []byte("noise"),
		"/p/secret/key.pem":          []byte("k"),
	})

	s := New(fsys, Options{})
	records, err := s.Scan("/p")
	require.NoError(t, err)

	assert.Equal(t, []string{".gitignore", "main.go", "src/util.go"}, paths(records))
}

func TestScanSkipsOversizedFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string][]byte{
		"/p/small.txt": []byte("ok"),
		"/p/exact.txt": []byte(strings.Repeat("a", 16)),
		"/p/big.txt":   []byte(strings.Repeat("a", 17)),
	})

	s := New(fsys, Options{MaxFileSize: 16})
	records, err := s.Scan("/p")
	require.NoError(t, err)

	assert.Equal(t, []string{"exact.txt", "small.txt"}, paths(records))
}

func TestScanEncodesBinaryAsBase64(t *testing.T) {
	fsys := afero.NewMemMapFs()
	bin := []byte{0x00, 0xff, 0x10, 0x80, 0x00}
	writeFiles(t, fsys, map[string][]byte{
		"/p/a.txt": []byte("hello"),
		"/p/b.bin": bin,
	})

	s := New(fsys, Options{})
	records, err := s.Scan("/p")
	require.NoError(t, err)
	require.Len(t, records, 2)

	byPath := map[string]FileRecord{}
	for _, r := range records {
		byPath[r.Path] = r
	}

	text := byPath["a.txt"]
	assert.True(t, text.IsTextFile)
	assert.Equal(t, models.EncodingUTF8, text.Encoding)
	assert.Equal(t, "hello", text.Content)
	assert.Equal(t, digest.Sum([]byte("hello")), text.Hash)
	assert.Equal(t, int64(5), text.Size)

	binary := byPath["b.bin"]
	assert.False(t, binary.IsTextFile)
	assert.Equal(t, models.EncodingBinary, binary.Encoding)
	assert.NotEqual(t, string(bin), binary.Content)
	raw, err := binary.Bytes()
	require.NoError(t, err)
	assert.Equal(t, bin, raw)
	assert.Equal(t, digest.Sum(bin), binary.Hash)
}

func TestScanWithCustomMatcher(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string][]byte{
		"/p/.gitignore": []byte("*.go\n"),
		"/p/keep.go":    []byte("package keep\n"),
		"/p/drop.md":    []byte("# drop\n"),
	})

	// a substituted matcher replaces the ignore-file matcher entirely
	s := New(fsys, Options{Matcher: NewPartialMatcher([]string{"*.md"})})
	records, err := s.Scan("/p")
	require.NoError(t, err)

	assert.Equal(t, []string{".gitignore", "keep.go"}, paths(records))
}

func TestScanGlobMatcherKind(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string][]byte{
		"/p/a.log": []byte("x"),
		"/p/a.tmp": []byte("x"),
		"/p/a.txt": []byte("x"),
	})

	s := New(fsys, Options{MatcherKind: MatcherGlob, ExtraPatterns: []string{"*.{log,tmp}"}})
	records, err := s.Scan("/p")
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt"}, paths(records))
}

func TestScanMissingRoot(t *testing.T) {
	s := New(afero.NewMemMapFs(), Options{})
	_, err := s.Scan("/nope")
	assert.Error(t, err)
}
