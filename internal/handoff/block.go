// Package handoff maintains the current-thread-summary block inside the
// shared per-assistant agent.md file and keeps the parent/child handoff
// metadata on thread records consistent with it.
package handoff

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// SummaryStartTag and SummaryEndTag delimit the block this package owns
	// inside agent.md. Everything outside the tags belongs to external
	// collaborators and is preserved byte-for-byte.
	SummaryStartTag = "<current_thread_summary>"
	SummaryEndTag   = "</current_thread_summary>"

	// SummaryPlaceholder is the block content when no handoff is recorded.
	SummaryPlaceholder = "None recorded yet."
)

// EnsureSummarySection appends a placeholder summary block when the tags are
// absent. Idempotent: running twice produces the same result as running once.
func EnsureSummarySection(text string) string {
	if strings.Contains(text, SummaryStartTag) && strings.Contains(text, SummaryEndTag) {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
	if text != "" {
		b.WriteString("\n")
	}
	b.WriteString(SummaryStartTag)
	b.WriteString("\n")
	b.WriteString(SummaryPlaceholder)
	b.WriteString("\n")
	b.WriteString(SummaryEndTag)
	b.WriteString("\n")
	return b.String()
}

// ReplaceSummaryBlock replaces only the content strictly between the tags,
// preserving everything before and after verbatim. The tags are appended
// first when missing.
func ReplaceSummaryBlock(text, newMarkdown string) string {
	text = EnsureSummarySection(text)

	start := strings.Index(text, SummaryStartTag)
	end := strings.Index(text, SummaryEndTag)
	if start < 0 || end < 0 || end < start {
		// EnsureSummarySection guarantees both tags in order.
		return text
	}

	prefix := text[:start+len(SummaryStartTag)]
	suffix := text[end:]

	content := strings.TrimRight(newMarkdown, "\n")
	if content == "" {
		content = SummaryPlaceholder
	}

	return prefix + "\n" + content + "\n" + suffix
}

// ClearSummaryBlock resets the block content to the placeholder.
func ClearSummaryBlock(text string) string {
	return ReplaceSummaryBlock(text, SummaryPlaceholder)
}

// ReadSummaryBlock returns the current block content from the file, or the
// placeholder if the file or the block does not exist.
func ReadSummaryBlock(path string) (string, error) {
	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return SummaryPlaceholder, nil
		}
		return "", fmt.Errorf("read agent file: %w", err)
	}

	text := string(raw)
	start := strings.Index(text, SummaryStartTag)
	end := strings.Index(text, SummaryEndTag)
	if start < 0 || end < 0 || end < start {
		return SummaryPlaceholder, nil
	}
	return strings.Trim(text[start+len(SummaryStartTag):end], "\n"), nil
}

// WriteSummaryBlockFile writes markdown into the file's summary block,
// creating the file with a placeholder block first when absent. The rewrite
// is atomic (temp file + rename).
func WriteSummaryBlockFile(path, markdown string) error {
	return rewriteAgentFile(path, func(text string) string {
		return ReplaceSummaryBlock(text, markdown)
	})
}

// ClearSummaryBlockFile resets the file's summary block to the placeholder,
// creating the file when absent.
func ClearSummaryBlockFile(path string) error {
	return rewriteAgentFile(path, ClearSummaryBlock)
}

// rewriteAgentFile applies transform to the file content and atomically
// replaces the file. The agent file is protected only by the atomic rename,
// not an explicit lock: concurrent writers are last-writer-wins.
func rewriteAgentFile(path string, transform func(string) string) error {
	existing, err := os.ReadFile(filepath.Clean(path))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read agent file: %w", err)
	}

	updated := transform(string(existing))

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create agent file directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(updated); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace agent file: %w", err)
	}
	return nil
}
