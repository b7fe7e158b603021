package main

import (
	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/render"
)

func contextCmd() *cobra.Command {
	var wf workspaceFlags
	cmd := &cobra.Command{
		Use:   "context",
		Short: "List candidate context files for the workspace",
		Long: `List the source files the assistant may use as context.

For a container, every referenced sub-project is searched. Hidden entries,
skip patterns and nested projects are excluded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := wf.info()
			if err != nil {
				return err
			}
			files := newResolver(cfg).Files(cmd.Context(), ws)
			printOut(cmd, render.New(pretty).Files(files))
			return nil
		},
	}
	wf.register(cmd, false)
	return cmd
}

func foldersCmd() *cobra.Command {
	var wf workspaceFlags
	cmd := &cobra.Command{
		Use:   "folders",
		Short: "List workspace folders sent to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := wf.info()
			if err != nil {
				return err
			}
			folders := newResolver(cfg).Folders(ws)
			printOut(cmd, render.New(pretty).Folders(folders))
			return nil
		},
	}
	wf.register(cmd, false)
	return cmd
}
