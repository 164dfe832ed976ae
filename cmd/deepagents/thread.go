package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/cli"
)

// threadCmd groups the thread management subcommands.
func threadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "thread",
		Short: "Manage conversation threads",
	}

	cmd.AddCommand(threadListCmd())
	cmd.AddCommand(threadNewCmd())
	cmd.AddCommand(threadSwitchCmd())
	cmd.AddCommand(threadRenameCmd())
	cmd.AddCommand(threadForkCmd())
	cmd.AddCommand(threadCurrentCmd())
	cmd.AddCommand(threadRemoveCmd())

	return cmd
}

func threadListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List threads, most recently used first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			var result *cli.ThreadListResult
			archived, err := cli.WithCorruptRecovery(app.mgr.Store(), func() error {
				var opErr error
				result, opErr = cli.ThreadList(app.mgr)
				return opErr
			})
			if err != nil {
				return err
			}
			if archived != "" {
				printQuiet("Recovered from a corrupt thread store; archived to %s\n\n", archived)
			}

			return printResult(result, cli.FormatThreadList(result))
		},
	}
}

func threadNewCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new thread and make it current",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			result, err := cli.ThreadCreate(app.mgr, name)
			if err != nil {
				return err
			}
			return printResult(result, cli.FormatThreadCreate(result))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Human-readable thread label")
	return cmd
}

func threadSwitchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "switch <thread-id>",
		Short: "Make an existing thread current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			if err := cli.ThreadSwitch(app.mgr, args[0]); err != nil {
				return err
			}
			printQuiet("✓ Switched to %s\n", args[0])
			return nil
		},
	}
}

func threadRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <thread-id> <new-name>",
		Short: "Rename a thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			if err := cli.ThreadRename(app.mgr, args[0], args[1]); err != nil {
				return err
			}
			printQuiet("✓ Renamed %s to %q\n", args[0], args[1])
			return nil
		},
	}
}

func threadForkCmd() *cobra.Command {
	var name string
	var source string

	cmd := &cobra.Command{
		Use:   "fork",
		Short: "Fork a thread into a new one recording its parent",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			result, err := cli.ThreadFork(app.mgr, source, name)
			if err != nil {
				return err
			}
			return printResult(result, cli.FormatThreadCreate(result))
		},
	}

	cmd.Flags().StringVar(&source, "from", "", "Source thread (default: current)")
	cmd.Flags().StringVar(&name, "name", "", "Human-readable thread label")
	return cmd
}

func threadCurrentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the current thread",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			result, err := cli.ThreadCurrent(app.mgr)
			if err != nil {
				return err
			}

			human := result.ThreadID + "\n"
			if result.Name != "" {
				human = fmt.Sprintf("%s (%s)\n", result.ThreadID, result.Name)
			}
			return printResult(result, human)
		},
	}
}

func threadRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <thread-id>",
		Short: "Delete a thread and its recorded history",
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

			if err := cli.ThreadRemove(app.mgr, db, args[0]); err != nil {
				return err
			}
			printQuiet("✓ Removed %s\n", args[0])
			return nil
		},
	}
}
