package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/logging"
	"github.com/joss/pairkit/internal/render"
	"github.com/joss/pairkit/internal/tool"
)

// errToolFailed makes the process exit non-zero after the result is shown
var errToolFailed = errors.New("tool call failed")

func toolCmd() *cobra.Command {
	var wf workspaceFlags
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Invoke a client tool locally",
		Long: `Run one of the client tools the backend can call, through the same
dispatcher and edit ledger 'pairkit serve' uses.`,
	}
	wf.register(cmd, true)

	cmd.AddCommand(
		toolListCmd(),
		createFileCmd(&wf),
		editCmd(&wf),
		replaceCmd(&wf),
		readCmd(&wf),
		searchCmd(&wf),
	)
	return cmd
}

func toolListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printOut(cmd, render.New(pretty).Tools(tool.DefaultRegistry(nil).All()))
		},
	}
}

func createFileCmd(wf *workspaceFlags) *cobra.Command {
	var content, from string
	cmd := &cobra.Command{
		Use:   "create-file PATH",
		Short: "Create a new file (fails if it exists)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if from != "" {
				data, err := os.ReadFile(from)
				if err != nil {
					return err
				}
				content = string(data)
			}
			return runTool(cmd, wf, tool.NameCreateFile, map[string]any{
				"filePath": args[0],
				"content":  content,
			}, false)
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "File content")
	cmd.Flags().StringVar(&from, "from", "", "Read content from this file")
	cmd.MarkFlagsMutuallyExclusive("content", "from")
	cmd.MarkFlagsOneRequired("content", "from")
	return cmd
}

func editCmd(wf *workspaceFlags) *cobra.Command {
	var from, explanation string
	cmd := &cobra.Command{
		Use:   "edit PATH",
		Short: "Replace a file's content (creating it if absent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(from)
			if err != nil {
				return err
			}
			input := map[string]any{"filePath": args[0], "code": string(data)}
			if explanation != "" {
				input["explanation"] = explanation
			}
			return runTool(cmd, wf, tool.NameInsertEdit, input, false)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Read the new content from this file")
	cmd.Flags().StringVar(&explanation, "explanation", "", "Why the edit is made")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func replaceCmd(wf *workspaceFlags) *cobra.Command {
	var oldString, newString string
	var all bool
	cmd := &cobra.Command{
		Use:   "replace PATH",
		Short: "Replace text in an existing file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, wf, tool.NameReplaceString, map[string]any{
				"filePath":   args[0],
				"oldString":  oldString,
				"newString":  newString,
				"replaceAll": all,
			}, false)
		},
	}
	cmd.Flags().StringVar(&oldString, "old", "", "Text to replace")
	cmd.Flags().StringVar(&newString, "new", "", "Replacement text")
	cmd.Flags().BoolVar(&all, "all", false, "Replace every occurrence")
	_ = cmd.MarkFlagRequired("old")
	return cmd
}

func readCmd(wf *workspaceFlags) *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "read PATH",
		Short: "Print a file or a line range of it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := map[string]any{"filePath": args[0]}
			if start > 0 {
				input["startLine"] = start
			}
			if end > 0 {
				input["endLine"] = end
			}
			return runTool(cmd, wf, tool.NameReadFile, input, true)
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "First line (1-based)")
	cmd.Flags().IntVar(&end, "end", 0, "Last line (inclusive)")
	return cmd
}

func searchCmd(wf *workspaceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search GLOB",
		Short: "Find workspace files matching a glob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, wf, tool.NameFileSearch, map[string]any{"query": args[0]}, true)
		},
	}
}

// runTool dispatches one call and prints its result. raw prints a
// successful message as-is, for tools whose message is the payload.
func runTool(cmd *cobra.Command, wf *workspaceFlags, name string, input map[string]any, raw bool) error {
	project, err := wf.projectPath()
	if err != nil {
		return err
	}
	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	ctx := logging.WithCorrelation(cmd.Context(), logging.NewCorrelationID())
	req := &domain.ToolCallRequest{
		ToolCallID: uuid.NewString(),
		Name:       name,
		Input:      input,
	}

	start := time.Now()
	reg := tool.DefaultRegistry(newRevealer(cfg))
	completion := reg.Dispatch(ctx, req, nil, tool.NewEnvironment(project, l))
	defer reg.Forget(req.ToolCallID)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	res, err := completion.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	if raw && res.Status == domain.ToolStatusCompleted {
		printOut(cmd, res.Message)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), render.New(pretty).Result(res, time.Since(start)))
	}
	if res.Status != domain.ToolStatusCompleted {
		return errToolFailed
	}
	return nil
}
