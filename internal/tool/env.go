package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/exec"
	"github.com/joss/pairkit/internal/ledger"
	"github.com/joss/pairkit/internal/logging"
)

// Environment is the optional context provider handed to tools
type Environment interface {
	WorkspacePath() string
	RecordEdit(ctx context.Context, edit domain.FileEditRecord)
}

type ledgerEnv struct {
	workspace string
	ledger    *ledger.Ledger
	log       *logging.Logger
}

// NewEnvironment binds a workspace path to a ledger. l may be nil, in which
// case edits are not recorded.
func NewEnvironment(workspacePath string, l *ledger.Ledger) Environment {
	return &ledgerEnv{
		workspace: workspacePath,
		ledger:    l,
		log:       logging.New("tool").WithWorkspace(workspacePath),
	}
}

// RegisterUndoers installs the undo action of every file-mutating tool
func RegisterUndoers(l *ledger.Ledger) {
	l.RegisterUndoer(NameCreateFile, func(ctx context.Context, rec domain.FileEditRecord) error {
		return UndoCreateFile(PathFromURL(rec.FileURL))
	})
	l.RegisterUndoer(NameInsertEdit, func(ctx context.Context, rec domain.FileEditRecord) error {
		return UndoEdit(PathFromURL(rec.FileURL), rec.OriginalContent)
	})
	l.RegisterUndoer(NameReplaceString, func(ctx context.Context, rec domain.FileEditRecord) error {
		return UndoEdit(PathFromURL(rec.FileURL), rec.OriginalContent)
	})
}

func (e *ledgerEnv) WorkspacePath() string { return e.workspace }

func (e *ledgerEnv) RecordEdit(ctx context.Context, edit domain.FileEditRecord) {
	if e.ledger == nil {
		return
	}
	if _, err := e.ledger.Record(ctx, edit); err != nil {
		e.log.Error("tool.record_edit_failed", map[string]any{"file": edit.FileURL}, err)
	}
}

// Revealer surfaces a changed file in the editor. Failures are never
// escalated to the tool result.
type Revealer interface {
	Reveal(ctx context.Context, workspacePath, filePath string) error
}

// DefaultRevealTimeout bounds CommandRevealer
const DefaultRevealTimeout = 5 * time.Second

// CommandRevealer opens files by running an editor command with the file
// path appended, e.g. {"xed"} or {"code", "-r"}.
type CommandRevealer struct {
	Command []string
	Timeout time.Duration
	// Runner defaults to exec.Default
	Runner exec.Runner
}

func (r CommandRevealer) Reveal(ctx context.Context, workspacePath, filePath string) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("no reveal command configured")
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultRevealTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runner := r.Runner
	if runner == nil {
		runner = exec.Default
	}
	args := append(append([]string(nil), r.Command[1:]...), filePath)
	if out, err := runner.RunInDir(ctx, workspacePath, r.Command[0], args...); err != nil {
		return fmt.Errorf("%s: %w (%s)", r.Command[0], err, out)
	}
	return nil
}
