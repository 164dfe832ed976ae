package main

import (
	"encoding/json"
	"fmt"
	"os"
	goruntime "runtime"

	"github.com/spf13/cobra"

	"github.com/deepagents/deepagents/internal/config"
	"github.com/deepagents/deepagents/internal/history"
	"github.com/deepagents/deepagents/internal/paths"
	"github.com/deepagents/deepagents/internal/threads"
)

var (
	// Build info (set via ldflags).
	Version = "dev"
	Build   = "unknown"
)

var (
	// Global flags.
	flagAssistant string
	flagJSON      bool
	flagQuiet     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "deepagents",
		Short: "Conversation thread management for DeepAgents assistants",
		Long: `deepagents manages the conversation state of a DeepAgents assistant:
named threads, the current-thread pointer, handoff summaries in the
shared agent file, and the per-thread turn history.

State lives under ~/.deepagents/{assistant}/ (override with DEEPAGENTS_HOME).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagAssistant, "assistant", "", "Assistant ID (or DEEPAGENTS_ASSISTANT env var)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "JSON output for scripting")
	rootCmd.PersistentFlags().BoolVar(&flagQuiet, "quiet", false, "Suppress non-essential output")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("deepagents v{{.Version}} (build: " + Build + ", " + goruntime.Version() + ")\n")

	rootCmd.AddCommand(threadCmd())
	rootCmd.AddCommand(handoffCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(mcpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// appContext bundles what most commands need.
type appContext struct {
	cfg       *config.Config
	dir       string
	mgr       *threads.Manager
	agentFile string
}

// newAppContext resolves configuration and the assistant state directory.
func newAppContext() (*appContext, error) {
	cfg, err := config.Load(flagAssistant)
	if err != nil {
		return nil, err
	}
	dir, err := paths.EnsureAssistantDir(cfg.AssistantID)
	if err != nil {
		return nil, err
	}
	return &appContext{
		cfg:       cfg,
		dir:       dir,
		mgr:       threads.NewManager(cfg.AssistantID, dir, cfg.LockTimeout),
		agentFile: paths.AgentFilePath(dir),
	}, nil
}

// openHistory opens the assistant's turn-history database.
func (a *appContext) openHistory() (*history.DB, error) {
	return history.Open(paths.HistoryDBPath(a.dir))
}

// printResult writes either JSON or the human rendering of a result.
func printResult(result any, human string) error {
	if flagJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}
	fmt.Print(human)
	return nil
}

// printQuiet prints a confirmation line unless --quiet is set.
func printQuiet(format string, args ...any) {
	if flagQuiet {
		return
	}
	fmt.Printf(format, args...)
}
