package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/render"
)

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and undo recorded file edits",
	}
	cmd.AddCommand(ledgerListCmd(), ledgerUndoCmd())
	return cmd
}

func ledgerListCmd() *cobra.Command {
	var turn string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recorded edits, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer l.Close()

			var recs []domain.FileEditRecord
			if turn != "" {
				recs, err = l.ForTurn(cmd.Context(), turn)
			} else {
				recs, err = l.Records(cmd.Context())
			}
			if err != nil {
				return err
			}
			printOut(cmd, render.New(pretty).Records(recs))
			return nil
		},
	}
	cmd.Flags().StringVar(&turn, "turn", "", "Only edits made during this turn")
	return cmd
}

func ledgerUndoCmd() *cobra.Command {
	var n int
	var all bool
	cmd := &cobra.Command{
		Use:   "undo",
		Short: "Revert the newest recorded edits",
		Long: `Revert the newest recorded edits, newest first.

Undo stops at the first edit that cannot be reverted; edits reverted before
it are removed from the ledger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && n < 1 {
				return errors.New("-n must be at least 1")
			}
			l, err := openLedger(cfg)
			if err != nil {
				return err
			}
			defer l.Close()

			var undone []domain.FileEditRecord
			if all {
				undone, err = l.UndoAll(cmd.Context())
			} else {
				undone, err = l.Undo(cmd.Context(), n)
			}
			printOut(cmd, render.New(pretty).Undone(undone, err))
			if err != nil {
				return fmt.Errorf("undo: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "Number of edits to undo")
	cmd.Flags().BoolVar(&all, "all", false, "Undo every recorded edit")
	cmd.MarkFlagsMutuallyExclusive("count", "all")
	return cmd
}
