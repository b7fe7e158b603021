// Package main provides the pairkit CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/joss/pairkit/internal/config"
	"github.com/joss/pairkit/internal/logging"
)

var (
	version = "0.1.0"
	cfg     *config.Config
	pretty  bool
	plain   bool
	logFile *os.File
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pairkit",
		Short: "Client-side agent tooling for an AI pair-programming backend",
		Long: `pairkit: workspace context, file-editing tools and an undo ledger for
an AI pair-programming language server.

Use 'pairkit serve' to connect to the language server and handle its tool calls.
The other commands work offline against the same workspace and ledger.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			cfg, err = config.Load(wd)
			if err != nil {
				return err
			}
			pretty = !plain && term.IsTerminal(int(os.Stdout.Fd()))
			return configureLogging(cfg.Log)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Sync()
			if logFile != nil {
				logFile.Close()
			}
		},
	}

	root.PersistentFlags().BoolVar(&plain, "plain", false, "Plain tab-separated output even on a terminal")

	root.AddGroup(
		&cobra.Group{ID: "workspace", Title: "Workspace:"},
		&cobra.Group{ID: "tools", Title: "Tools:"},
		&cobra.Group{ID: "agent", Title: "Agent:"},
	)

	for _, c := range []*cobra.Command{contextCmd(), foldersCmd()} {
		c.GroupID = "workspace"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{toolCmd(), ledgerCmd()} {
		c.GroupID = "tools"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{modeCmd(), serveCmd()} {
		c.GroupID = "agent"
		root.AddCommand(c)
	}
	root.AddCommand(versionCmd())
	return root
}

func configureLogging(l config.Log) error {
	opts := logging.Options{Level: logging.Level(l.Level), JSON: l.JSON}
	if l.File != "" {
		f, err := os.OpenFile(l.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		opts.Output = f
	}
	logging.Configure(opts)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show pairkit version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pairkit version %s\n", version)
		},
	}
}
