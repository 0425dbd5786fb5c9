package chains

import (
	"github.com/poiesic/agentdex/core"
)

// Resolver turns a chain selector into the concrete, ordered chain set a
// search runs over. Resolution never fails: malformed entries are dropped
// and an empty selection falls back to the configured implicit chains.
type Resolver struct {
	cfg Config
}

// NewResolver creates a resolver over a normalized configuration.
func NewResolver(cfg Config) *Resolver {
	return &Resolver{cfg: cfg.Normalized()}
}

// Config returns the resolver's normalized configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve maps a selector to chain ids.
//
//   - "all" selects every chain with a known endpoint, ascending.
//   - An explicit list keeps its order; entries that do not parse as chain
//     ids are dropped, duplicates collapse onto their first occurrence. An
//     all-invalid list resolves to no chains at all.
//   - No selection (or an explicitly empty list) selects the implicit set.
func (r *Resolver) Resolve(sel core.ChainSelector) []core.ChainID {
	switch {
	case sel.IsAll():
		return r.cfg.Configured()
	case len(sel.Entries()) > 0:
		seen := make(map[core.ChainID]bool)
		out := make([]core.ChainID, 0, len(sel.Entries()))
		for _, entry := range sel.Entries() {
			chain, err := core.ParseChainID(entry)
			if err != nil {
				continue
			}
			if !seen[chain] {
				seen[chain] = true
				out = append(out, chain)
			}
		}
		return out
	default:
		return dedupe(r.cfg.Implicit)
	}
}
