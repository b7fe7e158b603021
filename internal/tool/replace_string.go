package tool

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
)

const NameReplaceString = "replace_string_in_file"

// ReplaceString edits an existing file by exact string replacement
type ReplaceString struct {
	revealer Revealer
	log      *logging.Logger
}

func NewReplaceString(revealer Revealer) *ReplaceString {
	return &ReplaceString{revealer: revealer, log: logging.New("tool.replace_string")}
}

func (t *ReplaceString) Info() domain.Tool {
	return domain.Tool{
		Name:        NameReplaceString,
		Description: "Replace an exact string in an existing file. oldString must be unique unless replaceAll is set.",
		Parameters: domain.JSONSchema{
			"type": "object",
			"properties": map[string]any{
				"filePath": map[string]any{
					"type":        "string",
					"description": "Absolute path of the file to edit",
				},
				"oldString": map[string]any{
					"type":        "string",
					"description": "The exact text to replace",
				},
				"newString": map[string]any{
					"type":        "string",
					"description": "The replacement text",
				},
				"replaceAll": map[string]any{
					"type":        "boolean",
					"description": "Replace every occurrence (default false)",
				},
			},
			"required": []string{"filePath", "oldString", "newString"},
		},
	}
}

func (t *ReplaceString) Invoke(ctx context.Context, req *domain.ToolCallRequest, done Completer, hist history.Updater, env Environment) bool {
	if req.Name != NameReplaceString {
		return false
	}

	rawPath, ok1 := req.StringInput("filePath")
	oldStr, ok2 := req.StringInput("oldString")
	newStr, ok3 := req.StringInput("newString")
	if !ok1 || !ok2 || !ok3 || rawPath == "" || oldStr == "" {
		done.Complete(ErrorResult(req.ToolCallID, newError(InvalidInput, "Invalid parameters", nil)))
		return true
	}
	replaceAll, _ := req.Input["replaceAll"].(bool)
	path := resolvePath(env, rawPath)

	original, err := os.ReadFile(path)
	if err != nil {
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("File does not exist at %s", path), nil)))
		return true
	}

	str := string(original)
	count := strings.Count(str, oldStr)
	switch {
	case count == 0:
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed, fmt.Sprintf("oldString not found in %s", path), nil)))
		return true
	case count > 1 && !replaceAll:
		done.Complete(ErrorResult(req.ToolCallID, newError(PreconditionFailed,
			fmt.Sprintf("oldString found %d times in %s; set replaceAll or include more context", count, path), nil)))
		return true
	}

	var modified string
	if replaceAll {
		modified = strings.ReplaceAll(str, oldStr, newStr)
	} else {
		modified = strings.Replace(str, oldStr, newStr, 1)
		count = 1
	}

	if err := publishFile(path, modified, false, fileMode(path)); err != nil {
		done.Complete(ErrorResult(req.ToolCallID, newError(IOFailure, "Failed to write content to file", err)))
		return true
	}

	written, err := os.ReadFile(path)
	if err != nil || string(written) != modified {
		done.Complete(ErrorResult(req.ToolCallID, newError(VerificationFailed, "Failed to verify file edit.", nil)))
		return true
	}

	recordEdit(ctx, env, req, path, str, modified)
	reveal(ctx, t.revealer, env, path, t.log)
	appendCompletedRound(hist, req)

	t.log.Info("tool.file_edited", map[string]any{"file": path, "replacements": count})
	done.Complete(CompletedResult(req.ToolCallID, fmt.Sprintf("Replaced %d occurrence(s) in %s.", count, path)))
	return true
}

// UndoEdit restores original. An empty original means the file did not exist
// before the edit and is removed instead.
func UndoEdit(path, original string) error {
	if original == "" {
		return UndoCreateFile(path)
	}
	return publishFile(path, original, false, fileMode(path))
}
