package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/pairkit/internal/config"
	"github.com/joss/pairkit/internal/testutil"
)

func setup(t *testing.T) string {
	t.Helper()
	testutil.SetEnv(t, "HOME", t.TempDir())
	testutil.SetEnv(t, "PAIRKIT_LEDGER", "sqlite")
	testutil.SetEnv(t, "PAIRKIT_LS_COMMAND", "")
	config.ResetEnv()
	t.Cleanup(config.ResetEnv)
	return t.TempDir()
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--plain"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	setup(t)
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "pairkit version "+version+"\n", out)
}

func TestContextAndFolders(t *testing.T) {
	dir := setup(t)
	app := filepath.Join(dir, "App")
	testutil.XcodeProject(t, app, "App")
	testutil.WriteFile(t, app, "main.swift", "print(1)")
	testutil.WriteFile(t, app, "notes.bin", "x")

	out, err := run(t, "context", "-w", app)
	require.NoError(t, err)
	assert.Contains(t, out, "/main.swift\t")
	assert.NotContains(t, out, "notes.bin")

	out, err = run(t, "folders", "-w", app)
	require.NoError(t, err)
	assert.Contains(t, out, "App\tfile://")
}

func TestContainerWorkspace(t *testing.T) {
	dir := setup(t)
	container := testutil.XcodeContainer(t, dir, "W", "group:A/A.xcodeproj")
	testutil.WriteFile(t, dir, "A/x.swift", "x")

	out, err := run(t, "context", "-w", container)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "/A/x.swift\t"), out)
	assert.NotContains(t, out, dir+"/A/x.swift\t")

	_, err = run(t, "tool", "-w", container, "create-file", "new.swift", "--content", "let x = 1")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "new.swift"))
	assert.NoFileExists(t, filepath.Join(container, "new.swift"))
}

func TestToolCreateListUndo(t *testing.T) {
	dir := setup(t)

	out, err := run(t, "tool", "-w", dir, "create-file", "hello.txt", "--content", "hi")
	require.NoError(t, err)
	assert.Contains(t, out, "completed\tFile created at "+filepath.Join(dir, "hello.txt")+".")
	assert.Equal(t, "hi", testutil.ReadFile(t, filepath.Join(dir, "hello.txt")))

	out, err = run(t, "tool", "-w", dir, "create-file", "hello.txt", "--content", "again")
	assert.ErrorIs(t, err, errToolFailed)
	assert.Contains(t, out, "File already exists at")

	out, err = run(t, "ledger", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "create_file"))

	out, err = run(t, "ledger", "undo")
	require.NoError(t, err)
	assert.Contains(t, out, "undone "+filepath.Join(dir, "hello.txt"))
	assert.NoFileExists(t, filepath.Join(dir, "hello.txt"))

	out, err = run(t, "ledger", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No recorded edits")
}

func TestToolReplaceAndRead(t *testing.T) {
	dir := setup(t)
	testutil.WriteFile(t, dir, "a.txt", "one\ntwo\nthree\n")

	_, err := run(t, "tool", "-w", dir, "replace", "a.txt", "--old", "two", "--new", "2")
	require.NoError(t, err)

	out, err := run(t, "tool", "-w", dir, "read", "a.txt", "--start", "2", "--end", "2")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = run(t, "ledger", "undo", "--all")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", testutil.ReadFile(t, filepath.Join(dir, "a.txt")))
}

func TestToolList(t *testing.T) {
	setup(t)
	out, err := run(t, "tool", "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	assert.True(t, strings.HasPrefix(lines[0], "create_file\t"))
}

func TestUndoRejectsZeroCount(t *testing.T) {
	setup(t)
	_, err := run(t, "ledger", "undo", "-n", "0")
	assert.ErrorContains(t, err, "-n must be at least 1")
}

func TestMode(t *testing.T) {
	setup(t)

	out, err := run(t, "mode")
	require.NoError(t, err)
	assert.Equal(t, "mode=Ask model=(none)\n", out)

	out, err = run(t, "mode", "agent")
	require.NoError(t, err)
	assert.Equal(t, "mode=Agent model=(none)\n", out)

	out, err = run(t, "mode")
	require.NoError(t, err)
	assert.Contains(t, out, "mode=Agent")

	_, err = run(t, "mode", "chat")
	assert.ErrorContains(t, err, `unknown mode "chat"`)
}

func TestServeRequiresLanguageServer(t *testing.T) {
	setup(t)
	_, err := run(t, "serve", "--no-input")
	assert.ErrorContains(t, err, "no language server configured")
}
