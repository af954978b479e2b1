package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/flatfile-fulltext/internal/searcher/executor"
)

func run(t *testing.T, dataDir, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestIndexAndSearch(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "index", "wiki:cats", "--text", "Cats chase mice. Cats sleep.")
	require.NoError(t, err)
	out, err := run(t, dir, "Dogs chase cats.", "index", "wiki:dogs")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed wiki:dogs (3 tokens)")

	out, err = run(t, dir, "", "search", "--json", "cats", "chase")
	require.NoError(t, err)
	var result executor.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Results, 2)
	assert.Equal(t, "wiki:cats", result.Results[0].Entity)
	assert.Equal(t, 3, result.Results[0].Hits)

	out, err = run(t, dir, "", "search", "cats -dogs")
	require.NoError(t, err)
	assert.Contains(t, out, "wiki:cats")
	assert.NotContains(t, out, "wiki:dogs")
	assert.Contains(t, out, "1 of 1 matches")
}

func TestIndexFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(file, []byte("testing the tester"), 0644))

	_, err := run(t, dir, "", "index", "notes", file)
	require.NoError(t, err)

	out, err := run(t, dir, "", "lookup", "--json", "test*", "missing")
	require.NoError(t, err)
	var hits map[string]map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &hits))
	assert.Equal(t, map[string]int{"notes": 2}, hits["test*"])
	assert.Empty(t, hits["missing"])

	_, err = run(t, dir, "", "index", "other", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestIndexDir(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{
		"a.md":          "alpha bravo",
		"sub/b.md":      "bravo charlie",
		"sub/c.txt":     "charlie delta",
		"drafts/d.md":   "delta echo",
		"sub/deep/e.md": "echo alpha",
	}
	for name, text := range files {
		path := filepath.Join(src, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	}

	dir := t.TempDir()
	out, err := run(t, dir, "", "index-dir", src,
		"--include", "**/*.md", "--exclude", "drafts/**", "--prefix", "docs:", "--quiet", "--workers", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "indexed 3 of 3 files")

	out, err = run(t, dir, "", "entities")
	require.NoError(t, err)
	names := strings.Fields(out)
	assert.ElementsMatch(t, []string{"docs:a.md", "docs:sub/b.md", "docs:sub/deep/e.md"}, names)

	_, err = run(t, dir, "", "index-dir", src, "--include", "[", "--quiet")
	assert.Error(t, err)
}

func TestHistogram(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "index", "one", "--text", "cats cats dogs")
	require.NoError(t, err)
	_, err = run(t, dir, "", "index", "two", "--text", "cats birds")
	require.NoError(t, err)

	out, err := run(t, dir, "", "histogram", "--json", "--min", "2")
	require.NoError(t, err)
	var entries []tokenCount
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Equal(t, []tokenCount{{Token: "cats", Count: 3}}, entries)
}

func TestDeleteRenameClear(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "", "index", "old", "--text", "zebra stripes")
	require.NoError(t, err)

	_, err = run(t, dir, "", "rename", "old", "new")
	require.NoError(t, err)
	out, err := run(t, dir, "", "search", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "new")

	_, err = run(t, dir, "", "delete", "new")
	require.NoError(t, err)
	out, err = run(t, dir, "", "search", "zebra")
	require.NoError(t, err)
	assert.Contains(t, out, "no matches")

	_, err = run(t, dir, "", "clear")
	assert.Error(t, err)
	_, err = run(t, dir, "", "clear", "--yes")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "entities.idx"))
	assert.True(t, os.IsNotExist(err))
}
