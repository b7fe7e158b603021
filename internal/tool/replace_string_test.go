package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/ledger"
)

func replaceReq(path, oldStr, newStr string, all bool) *domain.ToolCallRequest {
	return &domain.ToolCallRequest{
		ToolCallID: "r-" + oldStr,
		Name:       NameReplaceString,
		TurnID:     "turn",
		Input: map[string]any{
			"filePath":   path,
			"oldString":  oldStr,
			"newString":  newStr,
			"replaceAll": all,
		},
	}
}

func TestReplaceString(t *testing.T) {
	tests := []struct {
		name    string
		content string
		old     string
		new     string
		all     bool
		status  domain.ToolStatus
		want    string
	}{
		{"single", "let a = 1", "1", "2", false, domain.ToolStatusCompleted, "let a = 2"},
		{"not found", "let a = 1", "zzz", "2", false, domain.ToolStatusError, "let a = 1"},
		{"ambiguous", "a a", "a", "b", false, domain.ToolStatusError, "a a"},
		{"replace all", "a a", "a", "b", true, domain.ToolStatusCompleted, "b b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "f.swift")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			r := DefaultRegistry(nil)
			res := dispatch(t, r, replaceReq(path, tt.old, tt.new, tt.all), nil, nil)
			assert.Equal(t, tt.status, res.Status, res.Message)

			b, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(b))
		})
	}
}

func TestReplaceStringPreservesMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.sh")
	require.NoError(t, os.WriteFile(path, []byte("echo a"), 0755))

	res := dispatch(t, DefaultRegistry(nil), replaceReq(path, "a", "b", false), nil, nil)
	require.Equal(t, domain.ToolStatusCompleted, res.Status)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestReplaceStringMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.swift")
	res := dispatch(t, DefaultRegistry(nil), replaceReq(path, "a", "b", false), nil, nil)
	assert.Equal(t, "File does not exist at "+path, res.Message)
}

func TestReplaceStringUndoRestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.swift")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))
	l := ledger.New(nil)
	RegisterUndoers(l)
	env := NewEnvironment(dir, l)
	r := DefaultRegistry(nil)

	require.Equal(t, domain.ToolStatusCompleted, dispatch(t, r, replaceReq(path, "v1", "v2", false), nil, env).Status)
	require.Equal(t, domain.ToolStatusCompleted, dispatch(t, r, replaceReq(path, "v2", "v3", false), nil, env).Status)

	recs, err := l.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	_, err = l.UndoAll(context.Background())
	require.NoError(t, err)
	b, _ := os.ReadFile(path)
	assert.Equal(t, "v1", string(b))
}

func insertReq(path, code string) *domain.ToolCallRequest {
	return &domain.ToolCallRequest{
		ToolCallID: "i-" + code,
		Name:       NameInsertEdit,
		TurnID:     "turn",
		Input:      map[string]any{"filePath": path, "code": code, "explanation": "rewrite"},
	}
}

func TestInsertEditCreatesAndUndoDeletes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.swift")
	l := ledger.New(nil)
	RegisterUndoers(l)

	res := dispatch(t, DefaultRegistry(nil), insertReq(path, "struct A {}"), nil, NewEnvironment(dir, l))
	require.Equal(t, domain.ToolStatusCompleted, res.Status, res.Message)
	assert.Equal(t, "File edited at "+path+".", res.Message)

	_, err := l.Undo(context.Background(), 1)
	require.NoError(t, err)
	assert.NoFileExists(t, path)
}

func TestInsertEditReplacesAndUndoRestores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.swift")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))
	l := ledger.New(nil)
	RegisterUndoers(l)

	res := dispatch(t, DefaultRegistry(nil), insertReq(path, "new"), nil, NewEnvironment(dir, l))
	require.Equal(t, domain.ToolStatusCompleted, res.Status)
	b, _ := os.ReadFile(path)
	assert.Equal(t, "new", string(b))

	recs, _ := l.Records(context.Background())
	require.Len(t, recs, 1)
	assert.Equal(t, "old", recs[0].OriginalContent)

	_, err := l.Undo(context.Background(), 1)
	require.NoError(t, err)
	b, _ = os.ReadFile(path)
	assert.Equal(t, "old", string(b))
}
