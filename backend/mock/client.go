package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
)

// MockClient is a test double for backend.Client.
// It allows custom behavior injection via function fields.
type MockClient struct {
	// AgentsFunc is called by Agents if set.
	// If nil, returns an empty page.
	AgentsFunc func(ctx context.Context, q backend.AgentQuery) ([]backend.Agent, error)

	// AgentByIDFunc is called by AgentByID if set.
	// If nil, reports backend.ErrNotFound.
	AgentByIDFunc func(ctx context.Context, id core.AgentID) (*backend.Agent, error)

	// MetadataEntriesFunc is called by MetadataEntries if set.
	// If nil, returns an empty page.
	MetadataEntriesFunc func(ctx context.Context, q backend.MetadataQuery) ([]backend.MetadataEntry, error)

	// FeedbacksFunc is called by Feedbacks if set.
	// If nil, returns an empty page.
	FeedbacksFunc func(ctx context.Context, q backend.FeedbackQuery) ([]backend.FeedbackRow, error)

	// FeedbackByIDFunc is called by FeedbackByID if set.
	// If nil, reports backend.ErrNotFound.
	FeedbackByIDFunc func(ctx context.Context, id string) (*backend.FeedbackRow, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ backend.Client = (*MockClient)(nil)

// NewMockClient creates a mock client with default empty behavior.
func NewMockClient() *MockClient {
	return &MockClient{calls: make(map[string]int)}
}

func (m *MockClient) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// CallCount returns how often the named method was called. The engine
// queries chains concurrently, so counts are safe to read after the call
// under test returns.
func (m *MockClient) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// Reset clears call counts and injected behavior.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make(map[string]int)
	m.AgentsFunc = nil
	m.AgentByIDFunc = nil
	m.MetadataEntriesFunc = nil
	m.FeedbacksFunc = nil
	m.FeedbackByIDFunc = nil
}

// Agents returns one page of agent rows.
func (m *MockClient) Agents(ctx context.Context, q backend.AgentQuery) ([]backend.Agent, error) {
	m.record("Agents")
	if m.AgentsFunc != nil {
		return m.AgentsFunc(ctx, q)
	}
	return nil, nil
}

// AgentByID returns a single agent row.
func (m *MockClient) AgentByID(ctx context.Context, id core.AgentID) (*backend.Agent, error) {
	m.record("AgentByID")
	if m.AgentByIDFunc != nil {
		return m.AgentByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("agent %s: %w", id, backend.ErrNotFound)
}

// MetadataEntries returns one page of metadata rows.
func (m *MockClient) MetadataEntries(ctx context.Context, q backend.MetadataQuery) ([]backend.MetadataEntry, error) {
	m.record("MetadataEntries")
	if m.MetadataEntriesFunc != nil {
		return m.MetadataEntriesFunc(ctx, q)
	}
	return nil, nil
}

// Feedbacks returns one page of feedback rows.
func (m *MockClient) Feedbacks(ctx context.Context, q backend.FeedbackQuery) ([]backend.FeedbackRow, error) {
	m.record("Feedbacks")
	if m.FeedbacksFunc != nil {
		return m.FeedbacksFunc(ctx, q)
	}
	return nil, nil
}

// FeedbackByID returns a single feedback row.
func (m *MockClient) FeedbackByID(ctx context.Context, id string) (*backend.FeedbackRow, error) {
	m.record("FeedbackByID")
	if m.FeedbackByIDFunc != nil {
		return m.FeedbackByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("feedback %s: %w", id, backend.ErrNotFound)
}

// ServePages wires AgentsFunc to serve fixed rows in query-sized pages,
// honoring First and Skip the way a real backend does.
func (m *MockClient) ServePages(rows []backend.Agent) *MockClient {
	m.AgentsFunc = func(_ context.Context, q backend.AgentQuery) ([]backend.Agent, error) {
		return pageOf(rows, q.First, q.Skip), nil
	}
	return m
}

// ServeFeedbackPages wires FeedbacksFunc the same way for feedback rows.
func (m *MockClient) ServeFeedbackPages(rows []backend.FeedbackRow) *MockClient {
	m.FeedbacksFunc = func(_ context.Context, q backend.FeedbackQuery) ([]backend.FeedbackRow, error) {
		return pageOf(rows, q.First, q.Skip), nil
	}
	return m
}

// ServeMetadataPages wires MetadataEntriesFunc the same way for metadata
// rows.
func (m *MockClient) ServeMetadataPages(rows []backend.MetadataEntry) *MockClient {
	m.MetadataEntriesFunc = func(_ context.Context, q backend.MetadataQuery) ([]backend.MetadataEntry, error) {
		return pageOf(rows, q.First, q.Skip), nil
	}
	return m
}

func pageOf[T any](rows []T, first, skip int) []T {
	if skip >= len(rows) {
		return nil
	}
	end := skip + first
	if first <= 0 || end > len(rows) {
		end = len(rows)
	}
	return rows[skip:end]
}
