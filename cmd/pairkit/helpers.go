package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/config"
	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/ledger"
	"github.com/joss/pairkit/internal/prefs"
	"github.com/joss/pairkit/internal/tool"
	"github.com/joss/pairkit/internal/workspace"
)

// workspaceFlags selects the workspace a command acts on. Both default to
// the working directory; --project defaults to --workspace, or to the
// directory holding it when it is a container.
type workspaceFlags struct {
	workspace string
	project   string
}

func (f *workspaceFlags) register(cmd *cobra.Command, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	flags.StringVarP(&f.workspace, "workspace", "w", "", "Workspace container or project path (default: current directory)")
	flags.StringVarP(&f.project, "project", "p", "", "Active project root (default: workspace, or its parent for a container)")
}

func (f *workspaceFlags) info() (domain.WorkspaceInfo, error) {
	ws, err := absOrCwd(f.workspace)
	if err != nil {
		return domain.WorkspaceInfo{}, err
	}
	project := workspace.ProjectRoot(ws)
	if f.project != "" {
		if project, err = filepath.Abs(f.project); err != nil {
			return domain.WorkspaceInfo{}, err
		}
	}
	return domain.WorkspaceInfo{
		WorkspaceURL: workspace.URI(ws),
		ProjectURL:   workspace.URI(project),
	}, nil
}

// projectPath is the directory tools resolve relative paths against
func (f *workspaceFlags) projectPath() (string, error) {
	ws, err := f.info()
	if err != nil {
		return "", err
	}
	return workspace.Path(ws.ProjectURL), nil
}

func absOrCwd(p string) (string, error) {
	if p == "" {
		return os.Getwd()
	}
	return filepath.Abs(p)
}

func newResolver(c *config.Config) *workspace.Resolver {
	return workspace.NewResolver(
		workspace.WithExtensions(c.Workspace.ExtraExtensions...),
		workspace.WithSkipPatterns(c.Workspace.ExtraSkipPatterns...),
	)
}

// openLedger opens the configured ledger with every built-in undoer
func openLedger(c *config.Config) (*ledger.Ledger, error) {
	var store ledger.Store
	switch c.Ledger.Driver {
	case "", "memory":
	case "sqlite":
		s, err := ledger.OpenSQLite(c.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}
	l := ledger.New(store)
	tool.RegisterUndoers(l)
	return l, nil
}

func newPrefs(c *config.Config) *prefs.Prefs {
	return prefs.New(prefs.NewFileBacking(c.PrefsPath), prefs.NewCatalog())
}

func newRevealer(c *config.Config) tool.Revealer {
	if len(c.RevealCommand) == 0 {
		return nil
	}
	return tool.CommandRevealer{Command: c.RevealCommand}
}

// printOut writes s to the command's stdout, ending it with a newline
func printOut(cmd *cobra.Command, s string) {
	if s != "" && s[len(s)-1] != '\n' {
		s += "\n"
	}
	fmt.Fprint(cmd.OutOrStdout(), s)
}
