package subgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/backend"
)

func TestWhereSerialization(t *testing.T) {
	caps := DefaultCapabilities()

	tests := []struct {
		name string
		cond backend.Cond
		want map[string]any
	}{
		{
			name: "nil tree matches everything",
			cond: nil,
			want: nil,
		},
		{
			name: "empty conjunction matches everything",
			cond: backend.And{},
			want: nil,
		},
		{
			name: "single leaf",
			cond: backend.Eq("owner", "0xabc"),
			want: map[string]any{"owner": "0xabc"},
		},
		{
			name: "null check uses bare not suffix",
			cond: backend.NotNull("registrationFile"),
			want: map[string]any{"registrationFile_not": nil},
		},
		{
			name: "membership leaf",
			cond: backend.In("id", []string{"1:7", "1:9"}),
			want: map[string]any{"id_in": []any{"1:7", "1:9"}},
		},
		{
			name: "leaves of a conjunction merge into one object",
			cond: backend.And{
				backend.NotNull("registrationFile"),
				backend.Gte("createdAt", int64(1700000000)),
				backend.Lte("createdAt", int64(1800000000)),
			},
			want: map[string]any{
				"registrationFile_not": nil,
				"createdAt_gte":        int64(1700000000),
				"createdAt_lte":        int64(1800000000),
			},
		},
		{
			name: "scoped conditions nest under the relation",
			cond: backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
				backend.Eq("active", true),
				backend.ContainsFold("name", "bot"),
			}},
			want: map[string]any{
				"registrationFile_": map[string]any{
					"active":               true,
					"name_contains_nocase": "bot",
				},
			},
		},
		{
			name: "sibling scopes share one sub-filter",
			cond: backend.And{
				backend.Scope{Field: "registrationFile", Conds: []backend.Cond{backend.Eq("active", true)}},
				backend.Scope{Field: "registrationFile", Conds: []backend.Cond{backend.NotNull("mcpEndpoint")}},
			},
			want: map[string]any{
				"registrationFile_": map[string]any{
					"active":          true,
					"mcpEndpoint_not": nil,
				},
			},
		},
		{
			name: "groups keep an explicit and list",
			cond: backend.And{
				backend.NotNull("registrationFile"),
				backend.Or{
					backend.ContainsAll("operators", []string{"0xaa"}),
					backend.ContainsAll("operators", []string{"0xbb"}),
				},
			},
			want: map[string]any{
				"and": []any{
					map[string]any{"registrationFile_not": nil},
					map[string]any{"or": []any{
						map[string]any{"operators_contains": []any{"0xaa"}},
						map[string]any{"operators_contains": []any{"0xbb"}},
					}},
				},
			},
		},
		{
			name: "single-member disjunction unwraps",
			cond: backend.Or{backend.Eq("tag1", "fast")},
			want: map[string]any{"tag1": "fast"},
		},
		{
			name: "x402 keeps the current spelling",
			cond: backend.Scope{Field: "registrationFile", Conds: []backend.Cond{backend.Eq("x402Support", true)}},
			want: map[string]any{
				"registrationFile_": map[string]any{"x402Support": true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := whereBuilder{caps: caps}
			require.Equal(t, tt.want, b.build(tt.cond))
			require.Empty(t, b.dropped)
		})
	}
}

func TestWhereSerializationLegacyDeployment(t *testing.T) {
	caps := Capabilities{
		X402Field:          "x402support",
		HasOASF:            false,
		AgentWallet:        false,
		ResponseURIField:   "responseUri",
		MetadataCollection: "agentMetadata_collection",
	}

	t.Run("x402 renamed", func(t *testing.T) {
		b := whereBuilder{caps: caps}
		got := b.build(backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Eq("x402Support", true),
		}})
		require.Equal(t, map[string]any{
			"registrationFile_": map[string]any{"x402support": true},
		}, got)
	})

	t.Run("hasOASF true falls back to endpoint presence", func(t *testing.T) {
		b := whereBuilder{caps: caps}
		got := b.build(backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Eq("hasOASF", true),
		}})
		require.Equal(t, map[string]any{
			"registrationFile_": map[string]any{"oasfEndpoint_not": nil},
		}, got)
	})

	t.Run("hasOASF false falls back to endpoint absence", func(t *testing.T) {
		b := whereBuilder{caps: caps}
		got := b.build(backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Eq("hasOASF", false),
		}})
		require.Equal(t, map[string]any{
			"registrationFile_": map[string]any{"oasfEndpoint": nil},
		}, got)
	})

	t.Run("wallet filter dropped and recorded", func(t *testing.T) {
		b := whereBuilder{caps: caps}
		got := b.build(backend.And{
			backend.NotNull("registrationFile"),
			backend.Eq("agentWallet", "0xdead"),
		})
		require.Equal(t, map[string]any{"registrationFile_not": nil}, got)
		require.Equal(t, []string{"agentWallet"}, b.dropped)
	})
}
