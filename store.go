package flowagent

import (
	"context"
	"encoding/json"
	"time"
)

// Role identifies who authored a session entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// SessionEntry is one message in a session's history.
// Workflow holds the n8n response for agent entries that produced one.
type SessionEntry struct {
	ID        string          `json:"id"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Workflow  json.RawMessage `json:"workflow,omitempty"`
}

// Store defines the contract for keeping per-session message history.
type Store interface {
	// Append adds entry to the end of the session, creating the session on first use.
	Append(ctx context.Context, sessionID string, entry SessionEntry) error

	// Get returns the session's entries in append order.
	// Returns ErrSessionNotFound for a session that was never appended to.
	// A cleared session yields an empty, non-nil slice.
	Get(ctx context.Context, sessionID string) ([]SessionEntry, error)

	// Clear empties the session but keeps it known.
	// Returns ErrSessionNotFound for a session that was never appended to.
	Clear(ctx context.Context, sessionID string) error
}
