package semantic

import (
	"context"

	"github.com/poiesic/agentdex/core"
)

// Default thresholds applied when a query leaves them unset. The gateway
// scores matches in [0, 1]; the generous limit keeps relevance ranking
// meaningful even when structured filters later discard most candidates.
const (
	DefaultMinScore = 0.5
	DefaultLimit    = 5000
)

// Query asks the relevance service for agents matching free text.
type Query struct {
	// Text is the natural-language query.
	Text string

	// MinScore drops matches scoring below it. Zero means DefaultMinScore.
	MinScore float64

	// Limit caps the number of matches. Zero means DefaultLimit.
	Limit int

	// Chains restricts matches to these chains. Empty keeps everything
	// the gateway returns.
	Chains []core.ChainID
}

// Result holds semantic matches grouped by chain, each group in descending
// relevance order.
type Result struct {
	// ByChain lists matched agents per chain, best first.
	ByChain map[core.ChainID][]core.AgentID

	// Scores maps each matched agent to its relevance score.
	Scores map[core.AgentID]float64
}

// Empty reports whether no agent matched.
func (r *Result) Empty() bool {
	return r == nil || len(r.Scores) == 0
}

// Searcher finds agents by meaning rather than by structured fields.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Result, error)
}
