package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/deepagents/deepagents/internal/identity"
	"github.com/deepagents/deepagents/internal/paths"
)

// DefaultAssistantID is used when neither the environment nor flags select one.
const DefaultAssistantID = "agent"

// DefaultLockTimeout bounds how long store operations wait for the advisory
// file lock before failing.
const DefaultLockTimeout = 5 * time.Second

// Config represents the resolved configuration for one assistant.
type Config struct {
	AssistantID string        // Assistant identity, doubles as the thread-ID prefix
	Display     string        // Display name for the assistant
	Model       string        // Model label recorded on new threads (informational)
	LockTimeout time.Duration // Store lock-acquisition timeout
}

// File is the on-disk shape of config.json inside the assistant directory.
type File struct {
	Version     int       `json:"version"`
	Display     string    `json:"display,omitempty"`
	Model       string    `json:"model,omitempty"`
	LockTimeout string    `json:"lock_timeout,omitempty"` // Go duration string, e.g. "5s"
	UpdatedAt   time.Time `json:"updated_at"`
}

// Load resolves configuration for an assistant with the following priority:
// 1. flagAssistant (CLI flag, highest)
// 2. DEEPAGENTS_ASSISTANT env var
// 3. DefaultAssistantID
// and for the remaining fields: env vars over config.json over defaults.
func Load(flagAssistant string) (*Config, error) {
	id := flagAssistant
	if id == "" {
		id = os.Getenv("DEEPAGENTS_ASSISTANT")
	}
	if id == "" {
		id = DefaultAssistantID
	}
	if err := identity.ValidateAssistantID(id); err != nil {
		return nil, err
	}

	cfg := &Config{
		AssistantID: id,
		LockTimeout: DefaultLockTimeout,
	}

	// Layer in config.json if present
	dir, err := paths.AssistantDir(id)
	if err != nil {
		return nil, err
	}
	if file, err := readFile(paths.ConfigPath(dir)); err == nil {
		cfg.Display = file.Display
		cfg.Model = file.Model
		if file.LockTimeout != "" {
			d, err := time.ParseDuration(file.LockTimeout)
			if err != nil {
				return nil, fmt.Errorf("invalid lock_timeout in config.json: %w", err)
			}
			cfg.LockTimeout = d
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// Environment variables override the file
	if model := os.Getenv("DEEPAGENTS_MODEL"); model != "" {
		cfg.Model = model
	}
	if display := os.Getenv("DEEPAGENTS_DISPLAY"); display != "" {
		cfg.Display = display
	}
	if raw := os.Getenv("DEEPAGENTS_LOCK_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid DEEPAGENTS_LOCK_TIMEOUT: %w", err)
		}
		cfg.LockTimeout = d
	}

	return cfg, nil
}

// readFile loads and parses a config.json file.
func readFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304 - path from internal state directory
	if err != nil {
		return nil, err
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return &file, nil
}

// Save writes the assistant's config.json inside its state directory.
func Save(assistantID string, file *File) error {
	dir, err := paths.EnsureAssistantDir(assistantID)
	if err != nil {
		return err
	}

	file.UpdatedAt = time.Now().UTC()
	if file.Version == 0 {
		file.Version = 1
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(paths.ConfigPath(dir), data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
