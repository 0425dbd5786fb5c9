package backend

import (
	"context"

	"github.com/poiesic/agentdex/core"
)

// Client reads one chain's structured index of agent registrations and
// feedback. Implementations must be safe for concurrent use; the engine
// queries several chains at once.
type Client interface {
	// Agents returns one page of agent rows matching the query.
	Agents(ctx context.Context, q AgentQuery) ([]Agent, error)

	// AgentByID returns a single agent row, or ErrNotFound.
	AgentByID(ctx context.Context, id core.AgentID) (*Agent, error)

	// MetadataEntries returns one page of on-chain metadata rows.
	MetadataEntries(ctx context.Context, q MetadataQuery) ([]MetadataEntry, error)

	// Feedbacks returns one page of feedback rows matching the query.
	Feedbacks(ctx context.Context, q FeedbackQuery) ([]FeedbackRow, error)

	// FeedbackByID returns a single feedback row, or ErrNotFound.
	FeedbackByID(ctx context.Context, id string) (*FeedbackRow, error)
}

// Registry hands out the backend client for each chain. A false return
// means the chain has no configured backend and must be skipped, never
// treated as an error.
type Registry interface {
	ClientFor(chain core.ChainID) (Client, bool)
}

// StaticRegistry is a fixed chain-to-client mapping. It serves tests and
// deployments with hand-wired clients.
type StaticRegistry map[core.ChainID]Client

var _ Registry = (StaticRegistry)(nil)

// ClientFor returns the mapped client.
func (r StaticRegistry) ClientFor(chain core.ChainID) (Client, bool) {
	client, ok := r[chain]
	return client, ok && client != nil
}
