package tool

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/workspace"
)

const NameFileSearch = "file_search"

const fileSearchLimit = 200

var errSearchLimit = errors.New("search limit reached")

// FileSearch globs the workspace for file paths
type FileSearch struct{}

func NewFileSearch() *FileSearch { return &FileSearch{} }

func (t *FileSearch) Info() domain.Tool {
	return domain.Tool{
		Name:        NameFileSearch,
		Description: "Search the workspace for files matching a glob such as **/*.swift.",
		Parameters: domain.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Glob pattern relative to the workspace",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *FileSearch) Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool {
	if req.Name != NameFileSearch {
		return false
	}

	query, ok := req.StringInput("query")
	if !ok || query == "" || !doublestar.ValidatePattern(query) {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	if env == nil || env.WorkspacePath() == "" {
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, "No workspace is open", nil)))
		return true
	}
	base := env.WorkspacePath()

	var matches []string
	err := doublestar.GlobWalk(os.DirFS(base), query, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.IsDir() && !skipped(p) {
			matches = append(matches, filepath.Join(base, filepath.FromSlash(p)))
		}
		if len(matches) >= fileSearchLimit {
			return errSearchLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errSearchLimit) {
		done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to search files", err)))
		return true
	}
	sort.Strings(matches)

	appendCompletedRound(hist, req)
	if len(matches) == 0 {
		done.Complete(CompletedResult(req.ToolCallID, fmt.Sprintf("No files match %s", query)))
		return true
	}
	done.Complete(CompletedResult(req.ToolCallID, strings.Join(matches, "\n")))
	return true
}

// skipped reports whether any element of the slash-separated path p is
// excluded from workspace enumeration.
func skipped(p string) bool {
	for _, elem := range strings.Split(p, "/") {
		if workspace.ShouldSkip(elem) {
			return true
		}
	}
	return false
}
