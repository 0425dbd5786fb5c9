package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
)

func boolPtr(b bool) *bool       { return &b }
func int64Ptr(n int64) *int64    { return &n }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string    { return &s }

func TestCompileDefaults(t *testing.T) {
	p := compile(&core.SearchFilters{})

	require.Equal(t, backend.And{backend.NotNull("registrationFile")}, p.where)
	require.Nil(t, p.metadata)
	require.Nil(t, p.feedback)
}

func TestCompileRegistrationFilePresence(t *testing.T) {
	t.Run("explicit true keeps the default", func(t *testing.T) {
		p := compile(&core.SearchFilters{HasRegistrationFile: boolPtr(true)})
		require.Equal(t, backend.And{backend.NotNull("registrationFile")}, p.where)
	})

	t.Run("false flips to absence", func(t *testing.T) {
		p := compile(&core.SearchFilters{HasRegistrationFile: boolPtr(false)})
		require.Equal(t, backend.And{backend.Null("registrationFile")}, p.where)
	})
}

func TestCompileAddressesLowercased(t *testing.T) {
	p := compile(&core.SearchFilters{
		Owners:      []string{"0xAbCd", "0xEF01"},
		AgentWallet: "0xDEAD",
	})

	require.Contains(t, p.where, backend.In("owner", []string{"0xabcd", "0xef01"}))
	require.Contains(t, p.where, backend.Eq("agentWallet", "0xdead"))
}

func TestCompileOperatorsAnyOf(t *testing.T) {
	p := compile(&core.SearchFilters{Operators: []string{"0xAA", "0xBB"}})

	want := backend.Or{
		backend.ContainsAll("operators", []string{"0xaa"}),
		backend.ContainsAll("operators", []string{"0xbb"}),
	}
	require.Contains(t, p.where, backend.Cond(want))
}

func TestCompileRegistrationScopes(t *testing.T) {
	p := compile(&core.SearchFilters{
		Name:        "helper",
		Active:      boolPtr(true),
		X402Support: boolPtr(true),
		HasMCP:      boolPtr(true),
		HasA2A:      boolPtr(false),
		MCP:         "internal",
	})

	conds := p.where.(backend.And)
	require.Contains(t, conds, backend.Cond(inFile(backend.ContainsFold("name", "helper"))))
	require.Contains(t, conds, backend.Cond(inFile(backend.Eq("active", true))))
	require.Contains(t, conds, backend.Cond(inFile(backend.Eq("x402Support", true))))
	require.Contains(t, conds, backend.Cond(inFile(backend.NotNull("mcpEndpoint"))))
	require.Contains(t, conds, backend.Cond(inFile(backend.Null("a2aEndpoint"))))
	require.Contains(t, conds, backend.Cond(inFile(backend.ContainsFold("mcpEndpoint", "internal"))))
}

func TestCompileHasEndpoints(t *testing.T) {
	t.Run("true means any endpoint", func(t *testing.T) {
		p := compile(&core.SearchFilters{HasEndpoints: boolPtr(true)})
		want := backend.Or{
			inFile(backend.NotNull("mcpEndpoint")),
			inFile(backend.NotNull("a2aEndpoint")),
			inFile(backend.NotNull("webEndpoint")),
		}
		require.Contains(t, p.where.(backend.And), backend.Cond(want))
	})

	t.Run("false means no endpoint at all", func(t *testing.T) {
		p := compile(&core.SearchFilters{HasEndpoints: boolPtr(false)})
		want := backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Null("mcpEndpoint"),
			backend.Null("a2aEndpoint"),
			backend.Null("webEndpoint"),
		}}
		require.Contains(t, p.where.(backend.And), backend.Cond(want))
	})
}

func TestCompileListFilters(t *testing.T) {
	p := compile(&core.SearchFilters{SupportedTrusts: []string{"reputation", "crypto-economic"}})

	want := backend.Or{
		inFile(backend.ContainsAll("supportedTrusts", []string{"reputation"})),
		inFile(backend.ContainsAll("supportedTrusts", []string{"crypto-economic"})),
	}
	require.Contains(t, p.where.(backend.And), backend.Cond(want))
}

func TestCompileDateBounds(t *testing.T) {
	after := core.Timestamp(1700000000)
	before := core.Timestamp(1800000000)
	p := compile(&core.SearchFilters{
		RegisteredAfter: &after,
		UpdatedBefore:   &before,
	})

	conds := p.where.(backend.And)
	require.Contains(t, conds, backend.Gte("createdAt", int64(1700000000)))
	require.Contains(t, conds, backend.Lte("updatedAt", int64(1800000000)))
}

func TestCompileFeedbackRouting(t *testing.T) {
	t.Run("presence pushes down", func(t *testing.T) {
		p := compile(&core.SearchFilters{Feedback: &core.FeedbackQueryFilter{HasFeedback: true}})
		require.Contains(t, p.where.(backend.And), backend.Gt("totalFeedback", int64(0)))
		require.Nil(t, p.feedback, "existence-only needs no scan")
	})

	t.Run("absence never pushes down", func(t *testing.T) {
		p := compile(&core.SearchFilters{Feedback: &core.FeedbackQueryFilter{HasNoFeedback: true}})
		for _, cond := range p.where.(backend.And) {
			if f, ok := cond.(backend.Field); ok {
				require.NotEqual(t, "totalFeedback", f.Name)
			}
		}
		require.NotNil(t, p.feedback)
	})

	t.Run("thresholds require a scan", func(t *testing.T) {
		p := compile(&core.SearchFilters{Feedback: &core.FeedbackQueryFilter{
			HasFeedback: true,
			MinValue:    floatPtr(80),
		}})
		require.NotNil(t, p.feedback)
		// Presence still narrows the structured query while the scan
		// decides the thresholds.
		require.Contains(t, p.where.(backend.And), backend.Gt("totalFeedback", int64(0)))
	})
}

func TestCompileMetadataRouting(t *testing.T) {
	meta := &core.MetadataFilter{Key: "category", Value: strPtr("ai")}
	p := compile(&core.SearchFilters{Metadata: meta})
	require.Same(t, meta, p.metadata)
}

func TestFeedbackWhere(t *testing.T) {
	t.Run("defaults exclude revoked", func(t *testing.T) {
		where := feedbackWhere(&core.FeedbackQueryFilter{}, candidateSet{})
		require.Equal(t, backend.And{backend.Eq("isRevoked", false)}, where)
	})

	t.Run("includeRevoked drops the revocation leaf", func(t *testing.T) {
		where := feedbackWhere(&core.FeedbackQueryFilter{IncludeRevoked: true}, candidateSet{})
		require.Empty(t, where)
	})

	t.Run("tag matches either slot", func(t *testing.T) {
		where := feedbackWhere(&core.FeedbackQueryFilter{Tag: "fast", IncludeRevoked: true}, candidateSet{})
		require.Equal(t, backend.And{
			backend.Or{backend.Eq("tag1", "fast"), backend.Eq("tag2", "fast")},
		}, where)
	})

	t.Run("reviewers lowercased and universe bound", func(t *testing.T) {
		universe := boundTo([]core.AgentID{"1:7", "1:9"})
		where := feedbackWhere(&core.FeedbackQueryFilter{Reviewers: []string{"0xAB"}}, universe)
		require.Equal(t, backend.And{
			backend.Eq("isRevoked", false),
			backend.In("clientAddress", []string{"0xab"}),
			backend.In("agent", []string{"1:7", "1:9"}),
		}, where)
	})
}

func TestRuleTableCoversEveryDimension(t *testing.T) {
	names := make(map[string]bool, len(pushdownRules))
	for _, rule := range pushdownRules {
		require.False(t, names[rule.name], "duplicate rule %q", rule.name)
		names[rule.name] = true
	}
	for _, want := range []string{
		"registration", "name", "description", "ens", "did",
		"owners", "wallet", "operators",
		"active", "x402", "hasOASF",
		"hasMCP", "hasA2A", "hasWeb", "mcp", "a2a", "web", "hasEndpoints",
		"supportedTrusts", "a2aSkills", "mcpTools", "mcpPrompts", "mcpResources",
		"oasfSkills", "oasfDomains",
		"registeredAfter", "registeredBefore", "updatedAfter", "updatedBefore",
		"feedbackExistence",
	} {
		require.True(t, names[want], "missing rule %q", want)
	}
}
