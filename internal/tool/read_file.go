package tool

import (
	"context"
	"fmt"
	"os"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
)

const NameReadFile = "read_file"

// ReadFile returns file content, optionally limited to a 1-based inclusive
// line range.
type ReadFile struct{}

func NewReadFile() *ReadFile { return &ReadFile{} }

func (t *ReadFile) Info() domain.Tool {
	return domain.Tool{
		Name:        NameReadFile,
		Description: "Read a file. startLine and endLine are 1-based and inclusive.",
		Parameters: domain.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"filePath": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to read",
				},
				"startLine": map[string]any{
					"type":        "integer",
					"description": "First line to return",
				},
				"endLine": map[string]any{
					"type":        "integer",
					"description": "Last line to return",
				},
			},
			"required": []string{"filePath"},
		},
	}
}

func (t *ReadFile) Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool {
	if req.Name != NameReadFile {
		return false
	}

	rawPath, ok := req.StringInput("filePath")
	if !ok || rawPath == "" {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	start, _ := req.IntInput("startLine")
	end, _ := req.IntInput("endLine")
	if start < 0 || end < 0 || (end > 0 && end < start) {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	path := resolvePath(env, rawPath)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("File does not exist at %s", path), nil)))
		return true
	}

	var content string
	if start == 0 && end == 0 {
		b, err := os.ReadFile(path)
		if err != nil {
			done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to read file", err)))
			return true
		}
		content = string(b)
	} else {
		if start == 0 {
			start = 1
		}
		content, _, err = readLines(path, start, end)
		if err != nil {
			done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to read file", err)))
			return true
		}
	}

	appendCompletedRound(hist, req)
	done.Complete(CompletedResult(req.ToolCallID, content))
	return true
}
