package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/metrics"
)

// maxConcurrentWalks bounds parallel sub-project enumeration
const maxConcurrentWalks = 4

// Resolver computes workspace folders and context files. It holds no
// per-workspace state; every call reads the filesystem afresh.
type Resolver struct {
	parser       ManifestParser
	skipPatterns []string
	extensions   map[string]bool
	log          *logging.Logger
}

type Option func(*Resolver)

// WithParser replaces the manifest parser
func WithParser(p ManifestParser) Option {
	return func(r *Resolver) { r.parser = p }
}

// WithSkipPatterns appends base-name glob patterns to the defaults
func WithSkipPatterns(patterns ...string) Option {
	return func(r *Resolver) { r.skipPatterns = append(r.skipPatterns, patterns...) }
}

// WithExtensions adds allowed extensions, with or without a leading dot
func WithExtensions(exts ...string) Option {
	return func(r *Resolver) {
		for _, e := range exts {
			r.extensions[strings.ToLower(strings.TrimPrefix(e, "."))] = true
		}
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		parser:       XMLManifest{},
		skipPatterns: append([]string(nil), DefaultSkipPatterns...),
		extensions:   make(map[string]bool, len(DefaultExtensions)),
		log:          logging.New("workspace"),
	}
	for _, e := range DefaultExtensions {
		r.extensions[e] = true
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Subprojects lists the project directories referenced by a container, in
// manifest order. Read or parse failures are logged and yield what was
// parsed so far.
func (r *Resolver) Subprojects(containerPath string) []string {
	manifest := filepath.Join(containerPath, ContainerManifest)
	data, err := os.ReadFile(manifest)
	if err != nil {
		r.log.Error("workspace.manifest_read_failed", map[string]any{"path": manifest}, err)
		return nil
	}
	dirs, err := r.parser.Subprojects(containerPath, data)
	if err != nil {
		r.log.Error("workspace.manifest_parse_failed", map[string]any{"path": manifest}, err)
	}
	return dirs
}

// roots is the ordered list of directories to enumerate for ws
func (r *Resolver) roots(ws domain.WorkspaceInfo) (container string, roots []string) {
	container = Path(ws.WorkspaceURL)
	if container != "" && IsContainer(container) {
		return container, r.Subprojects(container)
	}
	if p := Path(ws.ProjectURL); p != "" {
		return container, []string{p}
	}
	if container != "" {
		return container, []string{container}
	}
	return "", nil
}

// Files enumerates context files for ws. Output order is sub-project order,
// then walk order within each. Failures are logged and never returned.
func (r *Resolver) Files(ctx context.Context, ws domain.WorkspaceInfo) []domain.FileReference {
	start := time.Now()
	container, roots := r.roots(ws)
	projectRoot := Path(ws.ProjectURL)
	if projectRoot == "" {
		switch {
		case container != "" && IsContainer(container):
			projectRoot = filepath.Dir(container)
		case len(roots) == 1:
			projectRoot = roots[0]
		}
	}

	results := make([][]domain.FileReference, len(roots))
	var g errgroup.Group
	g.SetLimit(maxConcurrentWalks)
	for i, root := range roots {
		g.Go(func() error {
			files, err := r.walk(ctx, root, projectRoot)
			if err != nil {
				r.log.Error("context.walk_failed", map[string]any{"root": root}, err)
			}
			results[i] = files
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.FileReference
	for _, files := range results {
		out = append(out, files...)
	}

	metrics.ContextFiles.Observe(float64(len(out)))
	r.log.TimedEvent("context.files_resolved", start, map[string]any{
		"workspace": ws.Key(),
		"roots":     len(roots),
		"files":     len(out),
	})
	return out
}

func (r *Resolver) walk(ctx context.Context, root, projectRoot string) ([]domain.FileReference, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil
	}

	var files []domain.FileReference
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			r.log.Debug("context.entry_unreadable", map[string]any{"path": path, "error": err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		if r.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !r.allowed(path) {
			return nil
		}

		files = append(files, domain.FileReference{
			URL:          URI(path),
			RelativePath: strings.TrimPrefix(path, projectRoot),
			FileName:     d.Name(),
		})
		return nil
	})
	if err != nil {
		return files, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

// excluded covers hidden entries, skip patterns and nested containers or
// projects.
func (r *Resolver) excluded(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return true
	}
	if MatchesAny(name, r.skipPatterns) {
		return true
	}
	return IsContainer(path) || IsProject(path)
}

func (r *Resolver) allowed(path string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return ext != "" && r.extensions[ext]
}

// ShouldSkip reports whether the resolver excludes path, using its own skip
// patterns.
func (r *Resolver) ShouldSkip(path string) bool {
	return r.excluded(path)
}

// Folders returns one folder per existing sub-project of ws
func (r *Resolver) Folders(ws domain.WorkspaceInfo) []domain.WorkspaceFolder {
	_, roots := r.roots(ws)
	var out []domain.WorkspaceFolder
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		out = append(out, domain.WorkspaceFolder{URI: URI(root), Name: filepath.Base(root)})
	}
	return out
}
