package search

import (
	"cmp"
	"fmt"
	"sort"
	"strings"

	"github.com/poiesic/agentdex/core"
)

// scoreField sorts by semantic relevance; it is only meaningful for
// keyword searches.
const scoreField = "semanticScore"

var sortFields = map[string]bool{
	"createdAt":     true,
	"updatedAt":     true,
	"name":          true,
	"chainId":       true,
	"lastActivity":  true,
	"totalFeedback": true,
}

var sortAliases = map[string]string{
	"feedbackCount": "totalFeedback",
}

type sortKey struct {
	field string
	desc  bool
}

// parseSortSpecs parses "field" or "field:direction" entries, defaulting
// to descending. An empty list sorts by relevance for keyword searches and
// by update recency otherwise.
func parseSortSpecs(specs []string, keyword bool) ([]sortKey, error) {
	if len(specs) == 0 {
		if keyword {
			return []sortKey{{field: scoreField, desc: true}}, nil
		}
		return []sortKey{{field: "updatedAt", desc: true}}, nil
	}
	keys := make([]sortKey, 0, len(specs))
	for _, spec := range specs {
		key, err := parseSortSpec(spec, keyword)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parseSortSpec(spec string, keyword bool) (sortKey, error) {
	field, dir, hasDir := strings.Cut(strings.TrimSpace(spec), ":")
	field = strings.TrimSpace(field)
	if alias, ok := sortAliases[field]; ok {
		field = alias
	}
	switch {
	case sortFields[field]:
	case field == scoreField && keyword:
	default:
		return sortKey{}, fmt.Errorf("%w: cannot sort by %q", core.ErrInvalidFilter, field)
	}

	key := sortKey{field: field, desc: true}
	if hasDir {
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "asc":
			key.desc = false
		case "desc":
			key.desc = true
		default:
			return sortKey{}, fmt.Errorf("%w: sort direction %q", core.ErrInvalidFilter, dir)
		}
	}
	return key, nil
}

// applySort orders results by the parsed keys, earlier keys first. The
// sort is stable, so equal rows keep their chain-assembly order.
func applySort(results []core.AgentSummary, keys []sortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		for _, k := range keys {
			c := compareBy(&results[i], &results[j], k.field)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareBy(a, b *core.AgentSummary, field string) int {
	switch field {
	case "name":
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case "chainId":
		return cmp.Compare(a.ChainID, b.ChainID)
	case "createdAt":
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	case "updatedAt":
		return cmp.Compare(a.UpdatedAt, b.UpdatedAt)
	case "lastActivity":
		return cmp.Compare(a.LastActivity, b.LastActivity)
	case "totalFeedback":
		return cmp.Compare(a.FeedbackCount, b.FeedbackCount)
	case scoreField:
		return cmp.Compare(a.SemanticScore, b.SemanticScore)
	}
	return 0
}
