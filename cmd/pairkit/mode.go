package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joss/pairkit/internal/prefs"
	"github.com/joss/pairkit/internal/render"
)

func modeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mode [Ask|Agent]",
		Short: "Show or set the chat mode",
		Long: `Show the chat mode and the model requests will use, or switch mode.

Switching mode keeps the selected model when the new mode offers it and
otherwise falls back to the mode's default model.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{string(prefs.ModeAsk), string(prefs.ModeAgent)},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrefs(cfg)
			if len(args) == 1 {
				mode, err := parseMode(args[0])
				if err != nil {
					return err
				}
				if err := p.SwitchMode(mode); err != nil {
					return fmt.Errorf("save mode: %w", err)
				}
			}
			model, ok := p.EffectiveModel()
			printOut(cmd, render.New(pretty).Status(string(p.ChatMode()), model, ok))
			return nil
		},
	}
}

// parseMode is strict, unlike stored preferences which fall back to Ask
func parseMode(s string) (prefs.ChatMode, error) {
	for _, m := range []prefs.ChatMode{prefs.ModeAsk, prefs.ModeAgent} {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q (want Ask or Agent)", s)
}
