package tool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\nthree\n"), 0644))
	r := DefaultRegistry(nil)

	read := func(input map[string]any) domain.ToolInvocationResult {
		input["filePath"] = path
		return dispatch(t, r, &domain.ToolCallRequest{ToolCallID: "r", Name: NameReadFile, Input: input}, nil, nil)
	}

	res := read(map[string]any{})
	assert.Equal(t, "one\ntwo\nthree\n", res.Message)

	r.Forget("r")
	res = read(map[string]any{"startLine": float64(2), "endLine": float64(3)})
	assert.Equal(t, "two\nthree", res.Message)

	r.Forget("r")
	res = read(map[string]any{"startLine": float64(3), "endLine": float64(1)})
	assert.Equal(t, domain.ToolStatusError, res.Status)
}

func TestReadFileAppendsRound(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	folder := history.NewFolder()

	req := &domain.ToolCallRequest{ToolCallID: "r", Name: NameReadFile, TurnID: "t", RoundID: 4, Input: map[string]any{"filePath": path}}
	dispatch(t, DefaultRegistry(nil), req, folder.Updater(), nil)

	rounds := folder.Rounds("t")
	require.Len(t, rounds, 1)
	assert.Equal(t, 4, rounds[0].RoundID)
}

func TestFileSearch(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Sources", "App"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Sources", "App", "main.swift"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644))
	r := DefaultRegistry(nil)

	req := &domain.ToolCallRequest{ToolCallID: "s", Name: NameFileSearch, Input: map[string]any{"query": "**/*.swift"}}
	res := dispatch(t, r, req, nil, NewEnvironment(dir, nil))
	assert.Equal(t, domain.ToolStatusCompleted, res.Status)
	assert.Equal(t, filepath.Join(dir, "Sources", "App", "main.swift"), res.Message)

	req = &domain.ToolCallRequest{ToolCallID: "s2", Name: NameFileSearch, Input: map[string]any{"query": "**/*.swift"}}
	res = dispatch(t, r, req, nil, nil)
	assert.Equal(t, "No workspace is open", res.Message)
}

func TestFileSearchSkipsExcludedDirectories(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"App/main.swift", ".git/hooks/x.swift", "node_modules/pkg/y.swift", "App/.build/z.swift"} {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	}

	req := &domain.ToolCallRequest{ToolCallID: "s", Name: NameFileSearch, Input: map[string]any{"query": "**/*.swift"}}
	res := dispatch(t, DefaultRegistry(nil), req, nil, NewEnvironment(dir, nil))
	assert.Equal(t, domain.ToolStatusCompleted, res.Status)
	assert.Equal(t, filepath.Join(dir, "App", "main.swift"), res.Message)
}
