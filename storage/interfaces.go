package storage

import (
	"context"
	"time"

	"github.com/poiesic/agentdex/core"
)

// Snapshot is one locally cached agent: the public summary plus the
// bookkeeping a refresh run needs to decide whether the agent's
// registration file changed since the last fetch.
type Snapshot struct {
	Summary core.AgentSummary

	// ContentHash is the digest of the raw registration file the summary
	// was built from. Empty when the agent has no registration file.
	ContentHash string

	// FetchedAt is when the snapshot was last written.
	FetchedAt time.Time
}

// AgentStore persists agent snapshots locally so lookups keep working when
// a chain's backend is unreachable and refresh runs can diff content
// hashes. Implementations must be thread-safe and support concurrent
// access.
type AgentStore interface {
	// PutAgents inserts or replaces snapshots, all in one transaction.
	// Every snapshot must carry a chain-qualified agent id.
	PutAgents(ctx context.Context, snapshots ...*Snapshot) error

	// GetAgent retrieves a single snapshot by agent id.
	// Returns ErrNotFound if the snapshot doesn't exist.
	GetAgent(ctx context.Context, id core.AgentID) (*Snapshot, error)

	// GetAgents retrieves multiple snapshots by their ids.
	// Returns only the snapshots that exist (no error for missing ones).
	GetAgents(ctx context.Context, ids ...core.AgentID) ([]*Snapshot, error)

	// DeleteAgents removes snapshots by their ids.
	// Returns ErrNotFound if any snapshot doesn't exist.
	DeleteAgents(ctx context.Context, ids ...core.AgentID) error

	// AgentIDs lists every cached agent id, ordered by key.
	AgentIDs(ctx context.Context) ([]core.AgentID, error)

	// ChainAgentIDs lists the cached agent ids of one chain, ordered by key.
	ChainAgentIDs(ctx context.Context, chain core.ChainID) ([]core.AgentID, error)

	// Close closes the store and releases resources.
	Close() error
}

// Cursor records how far a background job has progressed, so an
// interrupted run resumes instead of restarting.
type Cursor struct {
	// Job names the run the cursor belongs to, such as "refresh".
	Job string

	// Position is the last agent id the job completed.
	Position string

	// UpdatedAt is set by SaveCursor.
	UpdatedAt time.Time
}

// CursorStore persists job cursors.
type CursorStore interface {
	// SaveCursor persists a cursor, stamping UpdatedAt.
	SaveCursor(ctx context.Context, cursor *Cursor) error

	// LoadCursor retrieves the cursor for a job.
	// Returns nil, nil if no cursor exists.
	LoadCursor(ctx context.Context, job string) (*Cursor, error)
}

// TransactionManager executes a function within a storage transaction.
// If fn returns an error, the transaction is rolled back; otherwise it is
// committed.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
