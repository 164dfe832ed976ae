package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// StateDirName is the root state directory under $HOME.
	StateDirName = ".deepagents"

	// ThreadsFileName is the thread-metadata store file inside an assistant directory.
	ThreadsFileName = "threads.json"

	// AgentFileName is the shared per-assistant Markdown file that carries the
	// current-thread-summary block.
	AgentFileName = "agent.md"

	// HistoryDBName is the SQLite turn-history database.
	HistoryDBName = "history.db"

	// ConfigFileName is the per-assistant configuration file.
	ConfigFileName = "config.json"
)

// Home returns the DeepAgents state root: $DEEPAGENTS_HOME if set,
// otherwise ~/.deepagents.
func Home() (string, error) {
	if override := os.Getenv("DEEPAGENTS_HOME"); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// AssistantDir returns the state directory for one assistant.
func AssistantDir(assistantID string) (string, error) {
	root, err := Home()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, assistantID), nil
}

// EnsureAssistantDir creates the assistant state directory if it does not exist
// and returns its path.
func EnsureAssistantDir(assistantID string) (string, error) {
	dir, err := AssistantDir(assistantID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("create assistant directory: %w", err)
	}
	return dir, nil
}

// ThreadsPath returns the path of the threads.json store inside dir.
func ThreadsPath(dir string) string {
	return filepath.Join(dir, ThreadsFileName)
}

// LockPath returns the path of the advisory lock file guarding the store.
func LockPath(dir string) string {
	return ThreadsPath(dir) + ".lock"
}

// AgentFilePath returns the path of the shared agent Markdown file.
func AgentFilePath(dir string) string {
	return filepath.Join(dir, AgentFileName)
}

// HistoryDBPath returns the path of the turn-history database.
func HistoryDBPath(dir string) string {
	return filepath.Join(dir, HistoryDBName)
}

// ConfigPath returns the path of the assistant configuration file.
func ConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}
