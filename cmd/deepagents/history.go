package main

import (
	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/cli"
)

// historyCmd groups the turn-history subcommands.
func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect a thread's recorded turns",
	}

	cmd.AddCommand(historyShowCmd())
	cmd.AddCommand(historyRemoveCmd())

	return cmd
}

func historyShowCmd() *cobra.Command {
	var threadID string
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a thread's turns, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			db, err := app.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			result, err := cli.HistoryShow(app.mgr, db, threadID, limit)
			if err != nil {
				return err
			}
			return printResult(result, cli.FormatHistoryShow(result))
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread to inspect (default: current)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max turns to show (default: all)")
	return cmd
}

func historyRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <thread-id>",
		Short: "Delete a thread's recorded turns (keeps the thread)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			db, err := app.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := db.DeleteThread(args[0]); err != nil {
				return err
			}
			printQuiet("✓ History cleared for %s\n", args[0])
			return nil
		},
	}
}
