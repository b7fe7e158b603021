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

const NameInsertEdit = "insert_edit_into_file"

// InsertEdit replaces a file's whole content, creating the file if needed
type InsertEdit struct {
	revealer Revealer
	log      *logging.Logger
}

func NewInsertEdit(revealer Revealer) *InsertEdit {
	return &InsertEdit{revealer: revealer, log: logging.New("tool.insert_edit")}
}

func (t *InsertEdit) Info() domain.Tool {
	return domain.Tool{
		Name:        NameInsertEdit,
		Description: "Write the complete new content of a file. Creates the file if it does not exist.",
		Parameters: domain.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"filePath": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to edit",
				},
				"code": map[string]any{
					"type":        "string",
					"description": "The full new content of the file",
				},
				"explanation": map[string]any{
					"type":        "string",
					"description": "A short description of the edit",
				},
			},
			"required": []string{"filePath", "code"},
		},
	}
}

func (t *InsertEdit) Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool {
	if req.Name != NameInsertEdit {
		return false
	}

	rawPath, ok1 := req.StringInput("filePath")
	code, ok2 := req.StringInput("code")
	if !ok1 || !ok2 || rawPath == "" {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	path := resolvePath(env, rawPath)

	var original string
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		original = string(b)
	case errors.Is(err, os.ErrNotExist):
	default:
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("Cannot read file at %s", path), err)))
		return true
	}

	if err := publishFile(path, code, false, fileMode(path)); err != nil {
		done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to write content to file", err)))
		return true
	}

	written, err := os.ReadFile(path)
	if err != nil || string(written) != code {
		done.Complete(ErrorResult(req.ToolCallID, newError(VerificationFailed, "Failed to verify file edit.", nil)))
		return true
	}

	recordEdit(ctx, env, req, path, original, code)
	reveal(ctx, t.revealer, env, path, t.log)
	appendCompletedRound(hist, req)

	if explanation, _ := req.StringInput("explanation"); explanation != "" {
		t.log.Info("tool.file_edited", map[string]any{"file": path, "explanation": explanation})
	} else {
		t.log.Info("tool.file_edited", map[string]any{"file": path})
	}
	done.Complete(CompletedResult(req.ToolCallID, fmt.Sprintf("File edited at %s.", path)))
	return true
}
