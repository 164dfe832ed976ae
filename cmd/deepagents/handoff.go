package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/cli"
)

// handoffCmd groups the handoff subcommands.
func handoffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Manage thread handoffs and the shared summary block",
	}

	cmd.AddCommand(handoffAcceptCmd())
	cmd.AddCommand(handoffCompleteCmd())
	cmd.AddCommand(handoffShowCmd())

	return cmd
}

func handoffAcceptCmd() *cobra.Command {
	var title, tldr, summary, summaryFile, source string

	cmd := &cobra.Command{
		Use:   "accept",
		Short: "Accept a handoff summary and start a pending child thread",
		Long: `Accept a handoff summary produced by the assistant's summarization step.

The summary body is written into the <current_thread_summary> block of the
shared agent file, and a child thread is created, made current, and marked
pending until its first turn completes. Pass the body with --summary, with
--summary-file, or on stdin ("-").`,
		RunE: func(cmd *cobra.Command, args []string) error {
			markdown, err := resolveSummaryBody(summary, summaryFile)
			if err != nil {
				return err
			}

			app, err := newAppContext()
			if err != nil {
				return err
			}

			db, err := app.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			result, err := cli.HandoffAccept(app.mgr, db, app.agentFile, cli.HandoffAcceptOptions{
				SourceThreadID: source,
				Title:          title,
				TLDR:           tldr,
				Markdown:       markdown,
			})
			if err != nil {
				return err
			}
			return printResult(result, cli.FormatHandoffAccept(result))
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Short summary title")
	cmd.Flags().StringVar(&tldr, "tldr", "", "One-line summary")
	cmd.Flags().StringVar(&summary, "summary", "", "Summary body (markdown)")
	cmd.Flags().StringVar(&summaryFile, "summary-file", "", "Read the summary body from a file ('-' for stdin)")
	cmd.Flags().StringVar(&source, "from", "", "Source thread (default: current)")
	return cmd
}

// resolveSummaryBody picks the summary body from --summary, --summary-file,
// or stdin.
func resolveSummaryBody(summary, summaryFile string) (string, error) {
	if summary != "" && summaryFile != "" {
		return "", fmt.Errorf("--summary and --summary-file are mutually exclusive")
	}
	if summary != "" {
		return summary, nil
	}
	if summaryFile == "" {
		return "", fmt.Errorf("a summary body is required (--summary or --summary-file)")
	}
	if summaryFile == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read summary from stdin: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	data, err := os.ReadFile(summaryFile) //nolint:gosec // G304 - user-provided input path
	if err != nil {
		return "", fmt.Errorf("read summary file: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func handoffCompleteCmd() *cobra.Command {
	var child string

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark the child's first post-handoff turn as done",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			if err := cli.HandoffComplete(app.mgr, app.agentFile, child); err != nil {
				return err
			}
			printQuiet("✓ Handoff completed; summary block cleared\n")
			return nil
		},
	}

	cmd.Flags().StringVar(&child, "thread", "", "Child thread (default: current)")
	return cmd
}

func handoffShowCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a thread's handoff state and the summary block",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext()
			if err != nil {
				return err
			}

			result, err := cli.HandoffShow(app.mgr, app.agentFile, threadID)
			if err != nil {
				return err
			}
			return printResult(result, cli.FormatHandoffShow(result))
		},
	}

	cmd.Flags().StringVar(&threadID, "thread", "", "Thread to inspect (default: current)")
	return cmd
}
