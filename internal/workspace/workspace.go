// Package workspace discovers the projects inside an IDE workspace and the
// files that can be offered as conversation context.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.lsp.dev/uri"
)

const (
	ContainerExt      = ".xcworkspace"
	ProjectExt        = ".xcodeproj"
	ContainerManifest = "contents.xcworkspacedata"
	ProjectManifest   = "project.pbxproj"
)

// DefaultSkipPatterns are matched against entry base names
var DefaultSkipPatterns = []string{
	".git",
	".svn",
	".hg",
	"CVS",
	".DS_Store",
	"Thumbs.db",
	"node_modules",
	"bower_components",
}

// DefaultExtensions lists the context file extensions, without dots
var DefaultExtensions = []string{
	"swift", "m", "mm", "h", "cpp", "c", "js", "py", "rb", "java",
	"applescript", "scpt", "plist", "entitlements",
}

// IsContainer reports whether path is a workspace container with a manifest
func IsContainer(path string) bool {
	return filepath.Ext(path) == ContainerExt && isFile(filepath.Join(path, ContainerManifest))
}

// ProjectRoot is the directory a workspace path stands for: the parent
// of a container, the path itself otherwise.
func ProjectRoot(path string) string {
	if IsContainer(path) {
		return filepath.Dir(path)
	}
	return path
}

// IsProject reports whether path is a project bundle with a project file
func IsProject(path string) bool {
	return filepath.Ext(path) == ProjectExt && isFile(filepath.Join(path, ProjectManifest))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MatchesAny reports whether the base name of path matches one of patterns
func MatchesAny(path string, patterns []string) bool {
	name := filepath.Base(path)
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// ShouldSkip reports whether a directory entry is excluded from enumeration
// and watching.
func ShouldSkip(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || MatchesAny(name, DefaultSkipPatterns)
}

// Path accepts a filesystem path or a file URI and returns a clean path
func Path(s string) string {
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, uri.FileScheme+"://") {
		return filepath.Clean(uri.URI(s).Filename())
	}
	return filepath.Clean(s)
}

// URI returns the file URI for path
func URI(path string) string {
	return string(uri.File(path))
}
