package tool

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.lsp.dev/uri"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/history"
	"github.com/joss/pairkit/internal/logging"
)

var errExists = errors.New("file exists")

// publishFile writes content to a temp file beside path and publishes it.
// With exclusive set the publish fails with errExists if path already exists.
func publishFile(path, content string, exclusive bool, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if exclusive {
		// Link refuses to replace an existing path.
		err := os.Link(tmpPath, path)
		if err == nil {
			return nil
		}
		if errors.Is(err, fs.ErrExist) {
			return errExists
		}
		if _, statErr := os.Lstat(path); statErr == nil {
			return errExists
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func fileMode(path string) fs.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0644
	}
	return info.Mode().Perm()
}

func readLines(path string, start, end int) (string, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	n := 0
	for scanner.Scan() {
		n++
		if n < start || (end > 0 && n > end) {
			continue
		}
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", 0, fmt.Errorf("read file: %w", err)
	}
	return strings.Join(lines, "\n"), n, nil
}

// resolvePath makes p absolute, resolving relative paths against the
// workspace when one is known.
func resolvePath(env Environment, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	if env != nil && env.WorkspacePath() != "" {
		return filepath.Join(env.WorkspacePath(), p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// FileURL is the ledger form of a filesystem path
func FileURL(path string) string {
	return string(uri.File(path))
}

// PathFromURL inverts FileURL and passes plain paths through
func PathFromURL(u string) string {
	if strings.HasPrefix(u, uri.FileScheme+"://") {
		return uri.URI(u).Filename()
	}
	return u
}

// appendCompletedRound records req as a single completed tool call round
func appendCompletedRound(hist history.Updater, req *domain.ToolCallRequest) {
	if hist == nil {
		return
	}
	hist(req.TurnID, []domain.AgentRound{{
		RoundID: req.RoundID,
		ToolCalls: []domain.ToolCallSummary{{
			ID:           req.ToolCallID,
			Name:         req.Name,
			Status:       domain.ToolStatusCompleted,
			InvokeParams: req,
		}},
	}})
}

func reveal(ctx context.Context, r Revealer, env Environment, path string, log *logging.Logger) {
	if r == nil || env == nil || env.WorkspacePath() == "" {
		return
	}
	if err := r.Reveal(ctx, env.WorkspacePath(), path); err != nil {
		log.Info("tool.reveal_failed", map[string]any{
			"file":  path,
			"kind":  string(BestEffortSecondary),
			"error": err.Error(),
		})
	}
}

func recordEdit(ctx context.Context, env Environment, req *domain.ToolCallRequest, path, original, modified string) {
	if env == nil {
		return
	}
	env.RecordEdit(ctx, domain.FileEditRecord{
		FileURL:         FileURL(path),
		OriginalContent: original,
		ModifiedContent: modified,
		ToolName:        req.Name,
		ConversationID:  req.ConversationID,
		TurnID:          req.TurnID,
	})
}
