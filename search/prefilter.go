package search

import (
	"context"
	"encoding/hex"
	"slices"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
)

// metadataCandidates pages the chain's on-chain metadata collection and
// returns the agents carrying the key (and, when set, the exact value),
// de-duplicated and ascending.
func (e *Engine) metadataCandidates(ctx context.Context, client backend.Client, f *core.MetadataFilter) ([]core.AgentID, error) {
	q := backend.MetadataQuery{Key: f.Key, First: e.pageSize}
	if f.Value != nil {
		// Metadata values are stored as hex-encoded bytes.
		q.Value = "0x" + hex.EncodeToString([]byte(*f.Value))
	}

	seen := make(map[core.AgentID]bool)
	var ids []core.AgentID
	for skip := 0; ; skip += e.pageSize {
		q.Skip = skip
		entries, err := client.MetadataEntries(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			id := core.AgentID(entry.Agent.ID)
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if len(entries) < e.pageSize {
			break
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// feedbackScan reads the feedback rows matching the filter's row-level
// constraints, aggregates them per agent, and applies the count and value
// thresholds. The returned stats cover every agent with at least one
// matching row, including agents the thresholds reject, so that result
// assembly can attach averages.
func (e *Engine) feedbackScan(ctx context.Context, client backend.Client, f *core.FeedbackQueryFilter, universe candidateSet) ([]core.AgentID, map[core.AgentID]core.FeedbackStats, error) {
	where := feedbackWhere(f, universe)

	sums := make(map[core.AgentID]float64)
	counts := make(map[core.AgentID]int64)
	for skip := 0; ; skip += e.pageSize {
		rows, err := client.Feedbacks(ctx, backend.FeedbackQuery{
			Where:     where,
			First:     e.pageSize,
			Skip:      skip,
			OrderBy:   "createdAt",
			Direction: backend.Desc,
		})
		if err != nil {
			return nil, nil, err
		}
		for _, row := range rows {
			if f.HasResponse && !row.HasResponse() {
				continue
			}
			id := core.AgentID(row.Agent.ID)
			sums[id] += row.Value.Float()
			counts[id]++
		}
		if len(rows) < e.pageSize {
			break
		}
	}

	stats := make(map[core.AgentID]core.FeedbackStats, len(counts))
	for id, n := range counts {
		stats[id] = core.FeedbackStats{Count: n, Average: sums[id] / float64(n)}
	}

	if f.HasNoFeedback {
		// Absence is the candidate universe minus every agent a matching
		// row was found for. The engine guarantees the universe is
		// bounded before scanning.
		var absent []core.AgentID
		for _, id := range universe.order {
			if counts[id] == 0 {
				absent = append(absent, id)
			}
		}
		return absent, stats, nil
	}

	var matched []core.AgentID
	for id, s := range stats {
		if meetsThresholds(f, s) {
			matched = append(matched, id)
		}
	}
	slices.Sort(matched)
	return matched, stats, nil
}

// meetsThresholds applies the closed-interval count and value bounds. With
// no bounds set, one matching row qualifies the agent.
func meetsThresholds(f *core.FeedbackQueryFilter, s core.FeedbackStats) bool {
	if f.MinCount != nil && s.Count < *f.MinCount {
		return false
	}
	if f.MaxCount != nil && s.Count > *f.MaxCount {
		return false
	}
	if f.MinValue != nil && s.Average < *f.MinValue {
		return false
	}
	if f.MaxValue != nil && s.Average > *f.MaxValue {
		return false
	}
	return true
}

// feedbackWhere builds the row-level predicate for a feedback scan.
// Revoked rows are excluded unless asked for; response presence cannot be
// expressed as a filter and is checked row by row during the scan.
func feedbackWhere(f *core.FeedbackQueryFilter, universe candidateSet) backend.And {
	var conds backend.And
	if !f.IncludeRevoked {
		conds = append(conds, backend.Eq("isRevoked", false))
	}
	if len(f.Reviewers) > 0 {
		conds = append(conds, backend.In("clientAddress", lowerAll(f.Reviewers)))
	}
	if f.Endpoint != "" {
		conds = append(conds, backend.ContainsFold("endpoint", f.Endpoint))
	}
	if f.Tag1 != "" {
		conds = append(conds, backend.Eq("tag1", f.Tag1))
	}
	if f.Tag2 != "" {
		conds = append(conds, backend.Eq("tag2", f.Tag2))
	}
	if f.Tag != "" {
		conds = append(conds, backend.Or{backend.Eq("tag1", f.Tag), backend.Eq("tag2", f.Tag)})
	}
	if universe.bounded {
		conds = append(conds, backend.In("agent", universe.tokens()))
	}
	return conds
}
