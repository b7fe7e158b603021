package tool

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
)

const NameCreateFile = "create_file"

// CreateFile writes a new file and refuses to overwrite an existing one
type CreateFile struct {
	revealer Revealer
	log      *logging.Logger
}

func NewCreateFile(revealer Revealer) *CreateFile {
	return &CreateFile{revealer: revealer, log: logging.New("tool.create_file")}
}

func (t *CreateFile) Info() domain.Tool {
	return domain.Tool{
		Name:        NameCreateFile,
		Description: "Create a new file with the given content. Fails if the file already exists.",
		Parameters: domain.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"filePath": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to create",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content of the new file",
				},
			},
			"required": []string{"filePath", "content"},
		},
	}
}

func (t *CreateFile) Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool {
	if req.Name != NameCreateFile {
		return false
	}

	rawPath, ok1 := req.StringInput("filePath")
	content, ok2 := req.StringInput("content")
	if !ok1 || !ok2 || rawPath == "" {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	path := resolvePath(env, rawPath)

	if fileExists(path) {
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("File already exists at %s", path), nil)))
		return true
	}

	if err := publishFile(path, content, true, 0644); err != nil {
		if errors.Is(err, errExists) {
			done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("File already exists at %s", path), nil)))
			return true
		}
		done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to write content to file", err)))
		return true
	}

	written, err := os.ReadFile(path)
	if err != nil || len(written) == 0 || string(written) != content {
		// The file stays on disk.
		done.Complete(ErrorResult(req.ToolCallID, newError(VerificationFailed, "Failed to verify file creation.", nil)))
		return true
	}

	recordEdit(ctx, env, req, path, "", content)
	reveal(ctx, t.revealer, env, path, t.log)
	appendCompletedRound(hist, req)

	t.log.Info("tool.file_created", map[string]any{"file": path, "bytes": len(content)})
	done.Complete(CompletedResult(req.ToolCallID, fmt.Sprintf("File created at %s.", path)))
	return true
}

// UndoCreateFile removes path if it is a regular file. Missing paths and
// directories are left alone.
func UndoCreateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}
