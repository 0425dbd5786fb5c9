package subgraph

import (
	"github.com/poiesic/agentdex/backend"
)

var opSuffixes = map[backend.Op]string{
	backend.OpEq:             "",
	backend.OpNot:            "_not",
	backend.OpIn:             "_in",
	backend.OpGt:             "_gt",
	backend.OpGte:            "_gte",
	backend.OpLte:            "_lte",
	backend.OpContains:       "_contains",
	backend.OpContainsNoCase: "_contains_nocase",
}

// whereBuilder serializes a predicate tree into graph-filter JSON. Leaves
// the deployment has no column for are dropped and recorded so the caller
// can surface them.
type whereBuilder struct {
	caps    Capabilities
	dropped []string
}

// build returns the filter object for c, or nil when c constrains nothing.
func (b *whereBuilder) build(c backend.Cond) map[string]any {
	switch cond := c.(type) {
	case nil:
		return nil
	case backend.Field:
		return b.field(cond)
	case backend.Scope:
		return b.scope(cond)
	case backend.And:
		return b.conjoin(cond)
	case backend.Or:
		return b.disjoin(cond)
	default:
		return nil
	}
}

func (b *whereBuilder) field(f backend.Field) map[string]any {
	name := f.Name
	switch name {
	case "agentWallet":
		if !b.caps.AgentWallet {
			b.dropped = append(b.dropped, name)
			return nil
		}
	case "x402Support":
		name = b.caps.X402Field
	case "hasOASF":
		if !b.caps.HasOASF {
			// Older deployments only expose the endpoint; presence of
			// the endpoint stands in for the flag.
			if want, _ := f.Value.(bool); want {
				return map[string]any{"oasfEndpoint_not": nil}
			}
			return map[string]any{"oasfEndpoint": nil}
		}
	}
	return map[string]any{name + opSuffixes[f.Op]: f.Value}
}

func (b *whereBuilder) scope(s backend.Scope) map[string]any {
	inner := make(map[string]any)
	for _, c := range s.Conds {
		mergeFilter(inner, b.build(c))
	}
	if len(inner) == 0 {
		return nil
	}
	return map[string]any{s.Field + "_": inner}
}

// conjoin flattens leaf conditions into one object and keeps groups as
// members of an explicit and-list, matching how graph-node expects mixed
// conjunctions to be written.
func (b *whereBuilder) conjoin(and backend.And) map[string]any {
	base := make(map[string]any)
	var groups []any
	for _, c := range and {
		m := b.build(c)
		if m == nil {
			continue
		}
		switch c.(type) {
		case backend.And, backend.Or:
			groups = append(groups, m)
		default:
			mergeFilter(base, m)
		}
	}
	switch {
	case len(groups) == 0 && len(base) == 0:
		return nil
	case len(groups) == 0:
		return base
	case len(base) == 0 && len(groups) == 1:
		return groups[0].(map[string]any)
	case len(base) == 0:
		return map[string]any{"and": groups}
	default:
		return map[string]any{"and": append([]any{base}, groups...)}
	}
}

func (b *whereBuilder) disjoin(or backend.Or) map[string]any {
	var members []any
	for _, c := range or {
		if m := b.build(c); m != nil {
			members = append(members, m)
		}
	}
	switch len(members) {
	case 0:
		return nil
	case 1:
		return members[0].(map[string]any)
	default:
		return map[string]any{"or": members}
	}
}

// mergeFilter folds src into dst, merging nested objects so that two
// conditions scoped to the same relation share one sub-filter.
func mergeFilter(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if have, ok := dst[k].(map[string]any); ok {
				mergeFilter(have, sub)
				continue
			}
		}
		dst[k] = v
	}
}
