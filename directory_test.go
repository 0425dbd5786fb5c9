package agentdex

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/backend/mock"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/storage"
)

func testConfig() chains.Config {
	return chains.Config{Primary: 11155111}
}

func testRow(id, name string) backend.Agent {
	chain, _, _ := core.AgentID(id).Parse()
	return backend.Agent{
		ID:               id,
		ChainID:          backend.Numeric(strconv.FormatUint(uint64(chain), 10)),
		Owner:            "0xowner",
		UpdatedAt:        "1700000000",
		RegistrationFile: &backend.RegistrationFile{Name: name, Active: true},
	}
}

// registryWith maps the test chain to a mock serving the given rows for
// both list and by-id queries.
func registryWith(rows ...backend.Agent) (backend.StaticRegistry, *mock.MockClient) {
	byID := make(map[string]backend.Agent, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	client := mock.NewMockClient().ServePages(rows)
	client.AgentByIDFunc = func(_ context.Context, id core.AgentID) (*backend.Agent, error) {
		if row, ok := byID[string(id)]; ok {
			return &row, nil
		}
		return nil, backend.ErrNotFound
	}
	return backend.StaticRegistry{11155111: client}, client
}

func TestNewDirectory(t *testing.T) {
	t.Run("create with in-memory store", func(t *testing.T) {
		dir, err := NewDirectory(testConfig())
		require.NoError(t, err)
		require.NotNil(t, dir)
		defer dir.Close()

		assert.NotNil(t, dir.Store())
		assert.NotNil(t, dir.engine)
		assert.NotNil(t, dir.refresher)
		assert.NotNil(t, dir.cursors)
		assert.Equal(t, chains.DefaultGateway, dir.Config().Gateway)
	})

	t.Run("create with database path", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "agent_db")
		dir, err := NewDirectory(testConfig(), WithDatabasePath(tmpDir))
		require.NoError(t, err)
		require.NotNil(t, dir)
		defer dir.Close()

		assert.DirExists(t, tmpDir)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Point the database at a file instead of a directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		dir, err := NewDirectory(testConfig(), WithDatabasePath(tmpFile))
		assert.Error(t, err)
		assert.Nil(t, dir)
	})

	t.Run("injected store skips cursors", func(t *testing.T) {
		store := newStubStore()
		dir, err := NewDirectory(testConfig(), WithStore(store))
		require.NoError(t, err)
		defer dir.Close()

		assert.Nil(t, dir.cursors)
		assert.Same(t, store, dir.Store())
	})
}

func TestDirectory_Close(t *testing.T) {
	dir, err := NewDirectory(testConfig())
	require.NoError(t, err)
	require.NotNil(t, dir)

	err = dir.Close()
	assert.NoError(t, err)
}

func TestDirectory_SearchAgents(t *testing.T) {
	registry, _ := registryWith(
		testRow("11155111:1", "translator"),
		testRow("11155111:2", "summarizer"),
	)
	dir, err := NewDirectory(testConfig(), WithRegistry(registry))
	require.NoError(t, err)
	defer dir.Close()

	results, err := dir.SearchAgents(context.Background(), &core.SearchQuery{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, core.AgentID("11155111:1"), results[0].AgentID)
	assert.Equal(t, "translator", results[0].Name)
}

func TestDirectory_GetAgent(t *testing.T) {
	registry, client := registryWith(testRow("11155111:7", "oracle"))
	dir, err := NewDirectory(testConfig(), WithRegistry(registry))
	require.NoError(t, err)
	defer dir.Close()

	t.Run("qualifies bare ids with the primary chain", func(t *testing.T) {
		summary, err := dir.GetAgent(context.Background(), "7")
		require.NoError(t, err)
		assert.Equal(t, core.AgentID("11155111:7"), summary.AgentID)
		assert.Equal(t, "oracle", summary.Name)
	})

	t.Run("accepts qualified ids", func(t *testing.T) {
		summary, err := dir.GetAgent(context.Background(), "11155111:7")
		require.NoError(t, err)
		assert.Equal(t, "oracle", summary.Name)
	})

	t.Run("missing agent", func(t *testing.T) {
		_, err := dir.GetAgent(context.Background(), "11155111:404")
		assert.ErrorIs(t, err, backend.ErrNotFound)
	})

	t.Run("falls back to the local store", func(t *testing.T) {
		snap := &storage.Snapshot{
			Summary: core.AgentSummary{
				ChainID: 11155111,
				AgentID: "11155111:9",
				Name:    "cached oracle",
			},
		}
		require.NoError(t, dir.Store().PutAgents(context.Background(), snap))

		client.AgentByIDFunc = func(context.Context, core.AgentID) (*backend.Agent, error) {
			return nil, errors.New("backend down")
		}

		summary, err := dir.GetAgent(context.Background(), "9")
		require.NoError(t, err)
		assert.Equal(t, "cached oracle", summary.Name)

		// Agents never cached still report the backend error
		_, err = dir.GetAgent(context.Background(), "11155111:404")
		assert.ErrorContains(t, err, "backend down")
	})
}

func TestDirectory_Feedback(t *testing.T) {
	registry, client := registryWith()
	row := backend.FeedbackRow{
		ID:            "11155111:7:0xreviewer:1",
		Agent:         backend.AgentRef{ID: "11155111:7"},
		ClientAddress: "0xreviewer",
		Value:         "88",
		CreatedAt:     "1700000000",
	}
	client.ServeFeedbackPages([]backend.FeedbackRow{row})
	client.FeedbackByIDFunc = func(_ context.Context, id string) (*backend.FeedbackRow, error) {
		if id == row.ID {
			return &row, nil
		}
		return nil, backend.ErrNotFound
	}

	dir, err := NewDirectory(testConfig(), WithRegistry(registry))
	require.NoError(t, err)
	defer dir.Close()

	t.Run("search", func(t *testing.T) {
		results, err := dir.SearchFeedback(context.Background(), &core.FeedbackFilters{
			AgentIDs: []string{"11155111:7"},
		})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, float64(88), results[0].Value)
	})

	t.Run("get", func(t *testing.T) {
		fb, err := dir.GetFeedback(context.Background(), "11155111:7:0xreviewer:1")
		require.NoError(t, err)
		assert.Equal(t, "0xreviewer", fb.Reviewer)
	})
}

func TestDirectory_RefreshAgent(t *testing.T) {
	registry, _ := registryWith(testRow("11155111:7", "oracle"))
	dir, err := NewDirectory(testConfig(), WithRegistry(registry))
	require.NoError(t, err)
	defer dir.Close()

	summary, err := dir.RefreshAgent(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, core.AgentID("11155111:7"), summary.AgentID)

	snap, err := dir.Store().GetAgent(context.Background(), "11155111:7")
	require.NoError(t, err)
	assert.Equal(t, "oracle", snap.Summary.Name)
}

func TestDirectory_RefreshAgents(t *testing.T) {
	registry, _ := registryWith(
		testRow("11155111:1", "translator"),
		testRow("11155111:2", "summarizer"),
	)
	dir, err := NewDirectory(testConfig(), WithRegistry(registry))
	require.NoError(t, err)
	defer dir.Close()

	summaries, err := dir.RefreshAgents(context.Background(), []core.AgentID{"1", "2"})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, core.AgentID("11155111:1"), summaries[0].AgentID)
	assert.Equal(t, core.AgentID("11155111:2"), summaries[1].AgentID)

	ids, err := dir.Store().AgentIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

// stubStore is a minimal injectable store for wiring tests.
type stubStore struct {
	agents map[core.AgentID]*storage.Snapshot
	closed bool
}

func newStubStore() *stubStore {
	return &stubStore{agents: make(map[core.AgentID]*storage.Snapshot)}
}

func (s *stubStore) PutAgents(_ context.Context, snapshots ...*storage.Snapshot) error {
	for _, snap := range snapshots {
		s.agents[snap.Summary.AgentID] = snap
	}
	return nil
}

func (s *stubStore) GetAgent(_ context.Context, id core.AgentID) (*storage.Snapshot, error) {
	snap, ok := s.agents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return snap, nil
}

func (s *stubStore) GetAgents(_ context.Context, ids ...core.AgentID) ([]*storage.Snapshot, error) {
	var out []*storage.Snapshot
	for _, id := range ids {
		if snap, ok := s.agents[id]; ok {
			out = append(out, snap)
		}
	}
	return out, nil
}

func (s *stubStore) DeleteAgents(_ context.Context, ids ...core.AgentID) error {
	for _, id := range ids {
		delete(s.agents, id)
	}
	return nil
}

func (s *stubStore) AgentIDs(_ context.Context) ([]core.AgentID, error) {
	ids := make([]core.AgentID, 0, len(s.agents))
	for id := range s.agents {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *stubStore) ChainAgentIDs(_ context.Context, chain core.ChainID) ([]core.AgentID, error) {
	var ids []core.AgentID
	for id := range s.agents {
		if c, _, ok := id.Parse(); ok && c == chain {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}
