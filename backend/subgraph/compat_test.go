package subgraph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/backend"
)

func fieldList(names ...string) map[string]any {
	fields := make([]any, len(names))
	for i, n := range names {
		fields[i] = map[string]any{"name": n}
	}
	return map[string]any{"fields": fields}
}

// A deployment that predates the x402Support, hasOASF, agentWallet and
// responseURI renames. The client must discover its vocabulary, issue
// queries in it, and still return rows in the current shape.
func TestSchemaDriftDiscovery(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		if strings.Contains(call.Query, "__type") {
			return map[string]any{
				"agent":        fieldList("id", "chainId", "agentId", "owner"),
				"registration": fieldList("name", "active", "x402support", "oasfEndpoint"),
				"response":     fieldList("id", "responder", "responseUri"),
				"root":         fieldList("agents", "feedbacks", "agentMetadata_collection"),
			}, nil
		}

		assert.Contains(t, call.Query, "x402support")
		assert.NotContains(t, call.Query, "x402Support")
		assert.NotContains(t, call.Query, "hasOASF")
		assert.NotContains(t, call.Query, "agentWallet")
		where, _ := call.Variables["where"].(map[string]any)
		assert.Equal(t, map[string]any{
			"registrationFile_": map[string]any{"x402support": true},
		}, where)

		return map[string]any{"agents": []any{map[string]any{
			"id":      "1:7",
			"chainId": "1",
			"agentId": "7",
			"registrationFile": map[string]any{
				"name":         "Helper",
				"x402support":  true,
				"oasfEndpoint": "https://oasf.example.com",
			},
		}}}, nil
	})

	client, err := New(1, srv.URL)
	require.NoError(t, err)

	rows, err := client.Agents(context.Background(), backend.AgentQuery{
		Where: backend.Scope{Field: "registrationFile", Conds: []backend.Cond{
			backend.Eq("x402Support", true),
		}},
		First: 10,
	})
	require.NoError(t, err)

	// The old spellings still decode into the current row shape.
	require.Len(t, rows, 1)
	reg := rows[0].RegistrationFile
	require.NotNil(t, reg)
	assert.True(t, reg.X402Support)
	assert.True(t, reg.HasOASF, "oasfEndpoint presence implies hasOASF")
}

func TestSchemaDriftMetadataCollection(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		if strings.Contains(call.Query, "__type") {
			return map[string]any{
				"root": fieldList("agents", "agentMetadata_collection"),
			}, nil
		}
		assert.Contains(t, call.Query, "entries: agentMetadata_collection(")
		return map[string]any{"entries": []any{}}, nil
	})

	client, err := New(1, srv.URL)
	require.NoError(t, err)

	_, err = client.MetadataEntries(context.Background(), backend.MetadataQuery{Key: "k", First: 1000})
	require.NoError(t, err)
}

func TestProbeFailureAssumesCurrentSchema(t *testing.T) {
	var probes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probes.Add(1)
		http.Error(w, "introspection disabled", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, err := New(1, srv.URL)
	require.NoError(t, err)

	caps := client.init(context.Background())
	require.Equal(t, DefaultCapabilities(), caps)
	require.Equal(t, int32(1), probes.Load())

	// The probe runs once; later calls reuse the fallback.
	client.init(context.Background())
	require.Equal(t, int32(1), probes.Load())
}

func TestPinnedCapabilitiesSkipProbe(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		assert.NotContains(t, call.Query, "__type", "pinned capabilities must not probe")
		return map[string]any{"agents": []any{}}, nil
	})

	legacy := Capabilities{
		X402Field:          "x402support",
		ResponseURIField:   "responseUri",
		MetadataCollection: "agentMetadata_collection",
	}
	client, err := New(1, srv.URL, WithCapabilities(legacy))
	require.NoError(t, err)

	_, err = client.Agents(context.Background(), backend.AgentQuery{First: 1})
	require.NoError(t, err)
	require.Equal(t, legacy, client.caps)
}
