package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sergiogswv/sentinel/internal/ui"
)

func newIgnoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage per-repo rule suppressions",
	}
	cmd.AddCommand(newIgnoreAddCmd(), newIgnoreListCmd(), newIgnoreClearCmd())
	return cmd
}

func newIgnoreAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <RULE> <file> [<symbol>]",
		Short: "Suppress a rule for a file, optionally scoped to one symbol",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			symbol := ""
			if len(args) == 3 {
				symbol = args[2]
			}
			if err := app.Ignore.Add(args[0], args[1], symbol); err != nil {
				return fmt.Errorf("add ignore entry: %w", err)
			}
			ui.Success(fmt.Sprintf("ignoring %s in %s", args[0], args[1]))
			return nil
		},
	}
}

func newIgnoreListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active suppressions",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			entries := app.Ignore.List()
			if len(entries) == 0 {
				ui.Info("no ignore entries")
				return nil
			}
			for _, e := range entries {
				if e.Symbol == "" {
					fmt.Printf("%s  %s  (all symbols)\n", e.Rule, e.File)
					continue
				}
				fmt.Printf("%s  %s  %s\n", e.Rule, e.File, e.Symbol)
			}
			return nil
		},
	}
}

func newIgnoreClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>",
		Short: "Remove every suppression for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Ignore.ClearFile(args[0]); err != nil {
				return fmt.Errorf("clear ignore entries: %w", err)
			}
			ui.Success("cleared ignore entries for " + args[0])
			return nil
		},
	}
}
