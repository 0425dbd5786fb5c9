package subgraph

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
)

// Registry builds one subgraph client per configured chain and reuses it
// across searches.
type Registry struct {
	cfg    chains.Config
	opts   []Option
	logger *slog.Logger

	mu      sync.Mutex
	clients map[core.ChainID]backend.Client
}

var _ backend.Registry = (*Registry)(nil)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry) error

// WithClientOptions forwards options to every client the registry builds.
func WithClientOptions(opts ...Option) RegistryOption {
	return func(r *Registry) error {
		r.opts = append(r.opts, opts...)
		return nil
	}
}

// WithRegistryLogger sets the logger for client lifecycle events.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger.With("component", "subgraph")
		return nil
	}
}

// NewRegistry creates a registry over the configured chain endpoints.
func NewRegistry(cfg chains.Config, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		cfg:     cfg.Normalized(),
		logger:  slog.Default().With("component", "subgraph"),
		clients: make(map[core.ChainID]backend.Client),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return r, nil
}

// ClientFor returns the client for the chain, building it on first use.
// Chains without a configured endpoint report false and are remembered so
// repeated lookups stay cheap.
func (r *Registry) ClientFor(chain core.ChainID) (backend.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, seen := r.clients[chain]; seen {
		return client, client != nil
	}

	endpoint, configured := r.cfg.EndpointFor(chain)
	if !configured {
		r.clients[chain] = nil
		return nil, false
	}

	client, err := New(chain, endpoint, r.opts...)
	if err != nil {
		r.logger.Error("failed to create subgraph client",
			"chain", chain, "error", err)
		return nil, false
	}
	r.logger.Debug("created subgraph client", "chain", chain, "endpoint", endpoint)
	r.clients[chain] = client
	return client, true
}
