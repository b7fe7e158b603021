// Package testutil provides common test helpers and fakes.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile creates dir/name with content, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ReadFile reads the content of a file.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

// SetEnv sets an environment variable for the duration of the test.
func SetEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	require.NoError(t, os.Setenv(key, value))
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

// XcodeProject creates dir/name.xcodeproj with a project file and returns
// its path.
func XcodeProject(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".xcodeproj")
	WriteFile(t, path, "project.pbxproj", "// !$*UTF8*$!\n{}\n")
	return path
}

// XcodeContainer creates dir/name.xcworkspace whose manifest references
// locations in order, e.g. "group:App/App.xcodeproj".
func XcodeContainer(t *testing.T, dir, name string, locations ...string) string {
	t.Helper()
	path := filepath.Join(dir, name+".xcworkspace")
	WriteFile(t, path, "contents.xcworkspacedata", Manifest(locations...))
	return path
}

// Manifest renders a workspace manifest with one FileRef per location
func Manifest(locations ...string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<Workspace version = "1.0">` + "\n")
	for _, loc := range locations {
		fmt.Fprintf(&sb, "   <FileRef\n      location = \"%s\">\n   </FileRef>\n", loc)
	}
	sb.WriteString("</Workspace>\n")
	return sb.String()
}
