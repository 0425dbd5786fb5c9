package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/backend"
)

type graphCall struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// newGraphServer stubs a GraphQL endpoint. The handler receives each
// decoded call and returns the data object to serve plus any error
// messages for the errors array.
func newGraphServer(t *testing.T, handle func(call graphCall) (any, []string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call graphCall
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&call)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		data, messages := handle(call)
		resp := map[string]any{"data": data}
		if len(messages) > 0 {
			var list []map[string]any
			for _, m := range messages {
				list = append(list, map[string]any{"message": m})
			}
			resp["errors"] = list
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pinnedClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := New(1, url, WithCapabilities(DefaultCapabilities()))
	require.NoError(t, err)
	return client
}

func TestClientAgents(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		assert.Contains(t, call.Query, "agents(")
		assert.Equal(t, float64(2), call.Variables["first"])
		assert.Equal(t, float64(0), call.Variables["skip"])
		assert.Equal(t, "createdAt", call.Variables["orderBy"])
		assert.Equal(t, "desc", call.Variables["orderDirection"])
		where, _ := call.Variables["where"].(map[string]any)
		assert.Contains(t, where, "registrationFile_not")

		return map[string]any{"agents": []any{map[string]any{
			"id":            "1:7",
			"chainId":       "1",
			"agentId":       "7",
			"agentURI":      "ipfs://QmAgent",
			"owner":         "0xOwner",
			"operators":     []string{"0xop"},
			"agentWallet":   "0xWallet",
			"totalFeedback": "3",
			"createdAt":     "1700000000",
			"updatedAt":     "1700000100",
			"lastActivity":  "1700000200",
			"registrationFile": map[string]any{
				"name":        "Helper",
				"active":      true,
				"x402Support": true,
				"mcpEndpoint": "https://mcp.example.com",
			},
		}}}, nil
	})

	client := pinnedClient(t, srv.URL)
	rows, err := client.Agents(context.Background(), backend.AgentQuery{
		Where: backend.NotNull("registrationFile"),
		First: 2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	require.Equal(t, "1:7", row.ID)
	require.Equal(t, int64(7), row.TokenID.Int())
	require.Equal(t, int64(3), row.TotalFeedback.Int())
	require.NotNil(t, row.RegistrationFile)
	require.True(t, row.RegistrationFile.X402Support)
	require.Equal(t, "Helper", row.RegistrationFile.Name)
}

func TestClientAgentByIDNotFound(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		return map[string]any{"agent": nil}, nil
	})

	client := pinnedClient(t, srv.URL)
	_, err := client.AgentByID(context.Background(), "1:404")
	require.ErrorIs(t, err, backend.ErrNotFound)
}

func TestClientMetadataEntries(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		assert.Contains(t, call.Query, "entries: agentMetadatas(")
		where, _ := call.Variables["where"].(map[string]any)
		assert.Equal(t, "trustModel", where["key"])
		assert.Equal(t, "0x746565", where["value"])

		return map[string]any{"entries": []any{map[string]any{
			"id":    "1:7:trustModel",
			"key":   "trustModel",
			"value": "0x746565",
			"agent": map[string]any{"id": "1:7"},
		}}}, nil
	})

	client := pinnedClient(t, srv.URL)
	entries, err := client.MetadataEntries(context.Background(), backend.MetadataQuery{
		Key:   "trustModel",
		Value: "0x746565",
		First: 1000,
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "1:7", entries[0].Agent.ID)
}

func TestClientFeedbacks(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		assert.Contains(t, call.Query, "feedbacks(")
		assert.Contains(t, call.Query, "responseURI")

		return map[string]any{"feedbacks": []any{map[string]any{
			"id":            "1:7:0xclient:0",
			"agent":         map[string]any{"id": "1:7"},
			"clientAddress": "0xclient",
			"value":         "95",
			"tag1":          "speed",
			"isRevoked":     false,
			"createdAt":     "1700000000",
			"responses": []any{map[string]any{
				"id":          "resp-1",
				"responder":   "0xagent",
				"responseURI": "ipfs://QmReply",
				"createdAt":   "1700000500",
			}},
		}}}, nil
	})

	client := pinnedClient(t, srv.URL)
	rows, err := client.Feedbacks(context.Background(), backend.FeedbackQuery{
		Where: backend.Eq("isRevoked", false),
		First: 1000,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].HasResponse())
	require.Equal(t, "ipfs://QmReply", rows[0].Responses[0].URI)
}

func TestClientSurfacesQueryErrors(t *testing.T) {
	srv := newGraphServer(t, func(call graphCall) (any, []string) {
		return nil, []string{"Type `Agent` has no field `bogus`"}
	})

	client := pinnedClient(t, srv.URL)
	_, err := client.Agents(context.Background(), backend.AgentQuery{First: 10})
	require.Error(t, err)
	require.Contains(t, err.Error(), "no field")
	require.Contains(t, err.Error(), "chain 1")
}

func TestNewValidation(t *testing.T) {
	_, err := New(1, "")
	require.ErrorIs(t, err, backend.ErrEndpointRequired)

	_, err = New(1, "http://localhost:8000", WithRateLimit(0, 1))
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limit")

	_, err = New(1, "http://localhost:8000", WithRateLimit(5, 0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "burst")
}

func TestClientRateLimitHonorsContext(t *testing.T) {
	client, err := New(1, "http://localhost:8000",
		WithCapabilities(DefaultCapabilities()),
		WithRateLimit(0.001, 1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	// Drain the single burst token, then cancel while the next call waits.
	require.NoError(t, client.limiter.Wait(ctx))
	cancel()

	_, err = client.Agents(ctx, backend.AgentQuery{First: 1})
	require.ErrorIs(t, err, context.Canceled)
}
