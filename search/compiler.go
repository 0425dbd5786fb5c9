// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"strings"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
)

// plan is a compiled agent search: the predicate tree the structured
// backend evaluates, plus the scans that cannot be pushed down.
type plan struct {
	where    backend.Cond
	metadata *core.MetadataFilter
	feedback *core.FeedbackQueryFilter
}

// pushdownRule contributes the structured conditions for one filter
// dimension. Rules are pure: a dimension the filter leaves unset
// contributes nothing.
type pushdownRule struct {
	name  string
	apply func(f *core.SearchFilters) []backend.Cond
}

// pushdownRules maps every filter dimension the structured backend can
// evaluate. Identifier filters, metadata, semantic candidates and
// row-level feedback constraints are handled by the engine's candidate
// stages instead.
var pushdownRules = []pushdownRule{
	{"registration", func(f *core.SearchFilters) []backend.Cond {
		// Agents without a parsed registration file are invisible to
		// every registration-level filter, so they are excluded unless
		// their absence is what the query asks for.
		if f.HasRegistrationFile != nil && !*f.HasRegistrationFile {
			return []backend.Cond{backend.Null("registrationFile")}
		}
		return []backend.Cond{backend.NotNull("registrationFile")}
	}},
	{"name", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("name", f.Name)
	}},
	{"description", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("description", f.Description)
	}},
	{"ens", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("ens", f.ENS)
	}},
	{"did", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("did", f.DID)
	}},
	{"owners", func(f *core.SearchFilters) []backend.Cond {
		if len(f.Owners) == 0 {
			return nil
		}
		return []backend.Cond{backend.In("owner", lowerAll(f.Owners))}
	}},
	{"wallet", func(f *core.SearchFilters) []backend.Cond {
		if f.AgentWallet == "" {
			return nil
		}
		return []backend.Cond{backend.Eq("agentWallet", strings.ToLower(f.AgentWallet))}
	}},
	{"operators", func(f *core.SearchFilters) []backend.Cond {
		if len(f.Operators) == 0 {
			return nil
		}
		// Operator lists are matched one address at a time: the column
		// contains-filter requires all listed values, while the query
		// means "any of these operators".
		members := make(backend.Or, 0, len(f.Operators))
		for _, op := range f.Operators {
			members = append(members, backend.ContainsAll("operators", []string{strings.ToLower(op)}))
		}
		return []backend.Cond{members}
	}},
	{"active", func(f *core.SearchFilters) []backend.Cond {
		return boolInFile("active", f.Active)
	}},
	{"x402", func(f *core.SearchFilters) []backend.Cond {
		return boolInFile("x402Support", f.X402Support)
	}},
	{"hasOASF", func(f *core.SearchFilters) []backend.Cond {
		return boolInFile("hasOASF", f.HasOASF)
	}},
	{"hasMCP", func(f *core.SearchFilters) []backend.Cond {
		return presenceInFile("mcpEndpoint", f.HasMCP)
	}},
	{"hasA2A", func(f *core.SearchFilters) []backend.Cond {
		return presenceInFile("a2aEndpoint", f.HasA2A)
	}},
	{"hasWeb", func(f *core.SearchFilters) []backend.Cond {
		return presenceInFile("webEndpoint", f.HasWeb)
	}},
	{"mcp", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("mcpEndpoint", f.MCP)
	}},
	{"a2a", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("a2aEndpoint", f.A2A)
	}},
	{"web", func(f *core.SearchFilters) []backend.Cond {
		return foldInFile("webEndpoint", f.Web)
	}},
	{"hasEndpoints", func(f *core.SearchFilters) []backend.Cond {
		if f.HasEndpoints == nil {
			return nil
		}
		if *f.HasEndpoints {
			return []backend.Cond{backend.Or{
				inFile(backend.NotNull("mcpEndpoint")),
				inFile(backend.NotNull("a2aEndpoint")),
				inFile(backend.NotNull("webEndpoint")),
			}}
		}
		return []backend.Cond{backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Null("mcpEndpoint"),
			backend.Null("a2aEndpoint"),
			backend.Null("webEndpoint"),
		}}}
	}},
	{"supportedTrusts", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("supportedTrusts", f.SupportedTrusts)
	}},
	{"a2aSkills", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("a2aSkills", f.A2ASkills)
	}},
	{"mcpTools", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("mcpTools", f.MCPTools)
	}},
	{"mcpPrompts", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("mcpPrompts", f.MCPPrompts)
	}},
	{"mcpResources", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("mcpResources", f.MCPResources)
	}},
	{"oasfSkills", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("oasfSkills", f.OASFSkills)
	}},
	{"oasfDomains", func(f *core.SearchFilters) []backend.Cond {
		return anyInList("oasfDomains", f.OASFDomains)
	}},
	{"registeredAfter", func(f *core.SearchFilters) []backend.Cond {
		return bound("createdAt", backend.OpGte, f.RegisteredAfter)
	}},
	{"registeredBefore", func(f *core.SearchFilters) []backend.Cond {
		return bound("createdAt", backend.OpLte, f.RegisteredBefore)
	}},
	{"updatedAfter", func(f *core.SearchFilters) []backend.Cond {
		return bound("updatedAt", backend.OpGte, f.UpdatedAfter)
	}},
	{"updatedBefore", func(f *core.SearchFilters) []backend.Cond {
		return bound("updatedAt", backend.OpLte, f.UpdatedBefore)
	}},
	{"feedbackExistence", func(f *core.SearchFilters) []backend.Cond {
		// Presence pushes down on the total counter. Absence never does:
		// the counter includes revoked rows, so "no feedback" is decided
		// by the scan stage against the candidate universe.
		if f.Feedback != nil && f.Feedback.HasFeedback {
			return []backend.Cond{backend.Gt("totalFeedback", int64(0))}
		}
		return nil
	}},
}

// compile turns the structured filters into an executable plan.
func compile(f *core.SearchFilters) plan {
	var conds []backend.Cond
	for _, rule := range pushdownRules {
		conds = append(conds, rule.apply(f)...)
	}
	p := plan{where: backend.And(conds), metadata: f.Metadata}
	if f.Feedback.NeedsScan() {
		p.feedback = f.Feedback
	}
	return p
}

func inFile(conds ...backend.Cond) backend.Cond {
	return backend.Scope{Field: "registrationFile", Conds: conds}
}

func foldInFile(field, substring string) []backend.Cond {
	if substring == "" {
		return nil
	}
	return []backend.Cond{inFile(backend.ContainsFold(field, substring))}
}

func boolInFile(field string, value *bool) []backend.Cond {
	if value == nil {
		return nil
	}
	return []backend.Cond{inFile(backend.Eq(field, *value))}
}

func presenceInFile(field string, value *bool) []backend.Cond {
	if value == nil {
		return nil
	}
	if *value {
		return []backend.Cond{inFile(backend.NotNull(field))}
	}
	return []backend.Cond{inFile(backend.Null(field))}
}

// anyInList matches agents whose list column contains at least one of the
// requested values.
func anyInList(field string, values []string) []backend.Cond {
	if len(values) == 0 {
		return nil
	}
	members := make(backend.Or, 0, len(values))
	for _, v := range values {
		members = append(members, inFile(backend.ContainsAll(field, []string{v})))
	}
	return []backend.Cond{members}
}

func bound(field string, op backend.Op, ts *core.Timestamp) []backend.Cond {
	if ts == nil {
		return nil
	}
	return []backend.Cond{backend.Field{Name: field, Op: op, Value: ts.Unix()}}
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
