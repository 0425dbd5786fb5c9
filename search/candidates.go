package search

import (
	"github.com/poiesic/agentdex/core"
)

// candidateSet is one chain's set of agent candidates. The zero value is
// the unbounded set: it matches every agent on the chain and intersection
// with it is a no-op. A bounded set remembers insertion order so that
// earlier, higher-signal stages decide tie order.
type candidateSet struct {
	bounded bool
	order   []core.AgentID
	member  map[core.AgentID]bool
}

// boundTo builds a bounded set from ids, de-duplicating while preserving
// first-occurrence order.
func boundTo(ids []core.AgentID) candidateSet {
	member := make(map[core.AgentID]bool, len(ids))
	order := make([]core.AgentID, 0, len(ids))
	for _, id := range ids {
		if !member[id] {
			member[id] = true
			order = append(order, id)
		}
	}
	return candidateSet{bounded: true, order: order, member: member}
}

// intersect narrows s by other. When both sides are bounded the result
// keeps s's order.
func (s candidateSet) intersect(other candidateSet) candidateSet {
	if !other.bounded {
		return s
	}
	if !s.bounded {
		return other
	}
	kept := make([]core.AgentID, 0, len(s.order))
	for _, id := range s.order {
		if other.member[id] {
			kept = append(kept, id)
		}
	}
	return boundTo(kept)
}

// exhausted reports whether the set is bounded and empty. An exhausted set
// short-circuits all remaining work for its chain.
func (s candidateSet) exhausted() bool {
	return s.bounded && len(s.order) == 0
}

// tokens returns the members as backend id strings.
func (s candidateSet) tokens() []string {
	out := make([]string, len(s.order))
	for i, id := range s.order {
		out[i] = string(id)
	}
	return out
}
