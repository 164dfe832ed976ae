package identity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultThreadSlug is the short-id of the default thread every fresh
// assistant starts with.
const DefaultThreadSlug = "main"

var (
	// assistantIDRegex defines valid assistant IDs: lowercase alphanumeric + underscores.
	assistantIDRegex = regexp.MustCompile(`^[a-z0-9_]+$`)

	// reservedIDs are assistant IDs that cannot be used.
	reservedIDs = map[string]bool{
		"main":       true,
		"system":     true,
		"deepagents": true,
		"all":        true,
	}
)

// ValidateAssistantID validates an assistant ID according to the naming rules.
// IDs must be safe for file paths and for use as the thread-ID prefix.
//
// Rules:
//   - Allowed characters: lowercase letters (a-z), digits (0-9), underscores (_)
//   - Reserved IDs: main, system, deepagents, all
//   - Cannot be empty
func ValidateAssistantID(id string) error {
	if id == "" {
		return fmt.Errorf("assistant ID cannot be empty")
	}
	if reservedIDs[id] {
		return fmt.Errorf("assistant ID '%s' is reserved and cannot be used", id)
	}
	if !assistantIDRegex.MatchString(id) {
		return fmt.Errorf("assistant ID '%s' contains invalid characters; only lowercase letters (a-z), digits (0-9), and underscores (_) are allowed", id)
	}
	return nil
}

// GenerateThreadID generates a thread ID for an assistant.
// Format: "{assistant}:{8 hex chars}" from crypto/rand.
func GenerateThreadID(assistantID string) (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return assistantID + ":" + hex.EncodeToString(buf[:]), nil
}

// DefaultThreadID returns the well-known default thread ID for an assistant.
// Format: "{assistant}:main".
func DefaultThreadID(assistantID string) string {
	return assistantID + ":" + DefaultThreadSlug
}

// SplitThreadID splits a thread ID into its assistant and short-id parts.
// Returns an error if the ID is not in "{assistant}:{slug}" form.
func SplitThreadID(threadID string) (assistantID, slug string, err error) {
	idx := strings.IndexByte(threadID, ':')
	if idx <= 0 || idx == len(threadID)-1 {
		return "", "", fmt.Errorf("invalid thread ID %q: want {assistant}:{id}", threadID)
	}
	return threadID[:idx], threadID[idx+1:], nil
}

// GenerateHandoffID generates a unique handoff ID using ULID.
// Format: "ho_" + ulid().
func GenerateHandoffID() string {
	return "ho_" + generateULID()
}

// GenerateTurnID generates a unique turn ID using ULID.
// Format: "trn_" + ulid().
func GenerateTurnID() string {
	return "trn_" + generateULID()
}

var (
	ulidMu      sync.Mutex
	ulidEntropy = ulid.Monotonic(rand.Reader, 0)
)

// generateULID generates a ULID string.
func generateULID() string {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulidEntropy)
	return id.String()
}

// ULIDTimestamp extracts the timestamp from a prefixed ULID identifier
// such as "ho_01H..." or "trn_01H...".
func ULIDTimestamp(s string) (time.Time, error) {
	if idx := strings.IndexByte(s, '_'); idx >= 0 {
		s = s[idx+1:]
	}
	id, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse ULID: %w", err)
	}
	ms := id.Time()
	return time.Unix(int64(ms/1000), int64(ms%1000)*1e6), nil //nolint:gosec // ULID timestamps fit in int64 until year 10889
}
