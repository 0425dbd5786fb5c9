package search

import (
	"github.com/poiesic/agentdex/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate candidate sets and results.
// Per-chain callbacks may arrive concurrently from chain workers.
type SearchMonitor interface {
	Start(q *core.SearchQuery)
	ChainsResolved(chains []core.ChainID)
	SemanticCandidates(byChain map[core.ChainID][]core.AgentID)
	MetadataCandidates(chain core.ChainID, ids []core.AgentID)
	FeedbackCandidates(chain core.ChainID, ids []core.AgentID)
	ChainSkipped(chain core.ChainID, reason string)
	ChainFetched(chain core.ChainID, count int)
	Finish(results []core.AgentSummary)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ *core.SearchQuery)                            {}
func (n *noopMonitor) ChainsResolved(_ []core.ChainID)                      {}
func (n *noopMonitor) SemanticCandidates(_ map[core.ChainID][]core.AgentID) {}
func (n *noopMonitor) MetadataCandidates(_ core.ChainID, _ []core.AgentID)  {}
func (n *noopMonitor) FeedbackCandidates(_ core.ChainID, _ []core.AgentID)  {}
func (n *noopMonitor) ChainSkipped(_ core.ChainID, _ string)                {}
func (n *noopMonitor) ChainFetched(_ core.ChainID, _ int)                   {}
func (n *noopMonitor) Finish(_ []core.AgentSummary)                         {}
