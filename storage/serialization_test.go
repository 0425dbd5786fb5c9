package storage

import (
	"testing"
	"time"

	"github.com/mus-format/mus-go/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/agentdex/core"
)

func TestMarshalUnmarshalSnapshot(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	avg := 4.25

	tests := []struct {
		name     string
		snapshot *Snapshot
	}{
		{
			name: "minimal snapshot",
			snapshot: &Snapshot{
				Summary: core.AgentSummary{
					ChainID: 1,
					AgentID: "1:42",
					Name:    "helper",
					Active:  true,
				},
				FetchedAt: now,
			},
		},
		{
			name: "snapshot with endpoints",
			snapshot: &Snapshot{
				Summary: core.AgentSummary{
					ChainID:       8453,
					AgentID:       "8453:7",
					Name:          "translator",
					Description:   "Translates between natural languages",
					Image:         "https://example.com/translator.png",
					WalletAddress: "0x1111111111111111111111111111111111111111",
					MCPEndpoint:   "https://mcp.example.com",
					MCPVersion:    "2025-03-26",
					A2AEndpoint:   "https://a2a.example.com",
					A2AVersion:    "0.3.0",
					WebEndpoint:   "https://example.com",
					EmailEndpoint: "agent@example.com",
					ENS:           "translator.eth",
					DID:           "did:web:example.com",
					Active:        true,
					X402Support:   true,
					CreatedAt:     1700000000,
					UpdatedAt:     1700001000,
					LastActivity:  1700002000,
				},
				ContentHash: "9f86d081884c7d659a2feaa0c55ad015",
				FetchedAt:   now,
			},
		},
		{
			name: "snapshot with everything",
			snapshot: &Snapshot{
				Summary: core.AgentSummary{
					ChainID:         1,
					AgentID:         "1:9000",
					Name:            "research-agent",
					Description:     "Finds and summarizes papers",
					Owners:          []string{"0xaaa", "0xbbb"},
					Operators:       []string{"0xccc"},
					SupportedTrusts: []string{"reputation", "crypto-economic"},
					A2ASkills:       []string{"search", "summarize"},
					MCPTools:        []string{"fetch", "rank"},
					MCPPrompts:      []string{"digest"},
					MCPResources:    []string{"corpus"},
					OASFSkills:      []string{"nlp"},
					OASFDomains:     []string{"research"},
					Active:          true,
					HasOASF:         true,
					AgentURI:        "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
					AgentURIType:    "ipfs",
					CreatedAt:       1690000000,
					UpdatedAt:       1700000000,
					FeedbackCount:   37,
					AverageValue:    &avg,
				},
				ContentHash: "c775e7b757ede630cd0aa1113bd102661ab38829ca52a6422ab782862f268646",
				FetchedAt:   now,
			},
		},
		{
			name: "unnamed snapshot",
			snapshot: &Snapshot{
				Summary: core.AgentSummary{
					ChainID: 10,
					AgentID: "10:3",
				},
				FetchedAt: now,
			},
		},
		{
			name: "unicode name",
			snapshot: &Snapshot{
				Summary: core.AgentSummary{
					ChainID: 1,
					AgentID: "1:5",
					Name:    "переводчик 翻訳 🤖",
					Active:  true,
				},
				FetchedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Marshal
			data := MarshalSnapshot(tt.snapshot)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			// Unmarshal
			decoded, err := UnmarshalSnapshot(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			// Verify fields
			assert.Equal(t, tt.snapshot.Summary, decoded.Summary)
			assert.Equal(t, tt.snapshot.ContentHash, decoded.ContentHash)
			assert.True(t, tt.snapshot.FetchedAt.Equal(decoded.FetchedAt))
		})
	}
}

func TestMarshalSnapshotDropsSemanticScore(t *testing.T) {
	snapshot := &Snapshot{
		Summary: core.AgentSummary{
			ChainID:       1,
			AgentID:       "1:42",
			Name:          "scored",
			SemanticScore: 0.92,
		},
		FetchedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	decoded, err := UnmarshalSnapshot(MarshalSnapshot(snapshot))
	require.NoError(t, err)
	assert.Zero(t, decoded.Summary.SemanticScore)
}

func TestUnmarshalSnapshot_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
		{"partial data", []byte{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalSnapshot(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestUnmarshalSnapshot_UnsupportedVersion(t *testing.T) {
	data := make([]byte, varint.Int.Size(99))
	varint.Int.Marshal(99, data)

	_, err := UnmarshalSnapshot(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalSnapshot_Truncated(t *testing.T) {
	snapshot := &Snapshot{
		Summary: core.AgentSummary{
			ChainID:     1,
			AgentID:     "1:42",
			Name:        "truncation-target",
			Description: "long enough to survive cutting in half",
			Owners:      []string{"0xaaa", "0xbbb"},
			Active:      true,
		},
		ContentHash: "deadbeef",
		FetchedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	data := MarshalSnapshot(snapshot)

	_, err := UnmarshalSnapshot(data[:len(data)/2])
	assert.Error(t, err)

	_, err = UnmarshalSnapshot(data[:len(data)-1])
	assert.Error(t, err)
}

func TestMarshalUnmarshalCursor(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		cursor *Cursor
	}{
		{
			name: "refresh cursor",
			cursor: &Cursor{
				Job:       "refresh:1",
				Position:  "1:420",
				UpdatedAt: now,
			},
		},
		{
			name: "cursor without position",
			cursor: &Cursor{
				Job:       "refresh:8453",
				UpdatedAt: now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalCursor(tt.cursor)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalCursor(data)
			require.NoError(t, err)
			require.NotNil(t, decoded)

			assert.Equal(t, tt.cursor.Job, decoded.Job)
			assert.Equal(t, tt.cursor.Position, decoded.Position)
			assert.True(t, tt.cursor.UpdatedAt.Equal(decoded.UpdatedAt))
		})
	}
}

func TestUnmarshalCursor_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"invalid data", []byte{0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCursor(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestRoundTripConsistency(t *testing.T) {
	t.Run("multiple marshal-unmarshal cycles", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Microsecond)
		avg := 3.5
		original := &Snapshot{
			Summary: core.AgentSummary{
				ChainID:       1,
				AgentID:       "1:999",
				Name:          "cycling",
				Owners:        []string{"0xaaa"},
				A2ASkills:     []string{"chat", "plan"},
				Active:        true,
				UpdatedAt:     1700000000,
				FeedbackCount: 12,
				AverageValue:  &avg,
			},
			ContentHash: "feedface",
			FetchedAt:   now,
		}

		// Perform 3 marshal-unmarshal cycles
		current := original
		for i := 0; i < 3; i++ {
			data := MarshalSnapshot(current)
			decoded, err := UnmarshalSnapshot(data)
			require.NoError(t, err)
			current = decoded
		}

		// Verify final result matches original
		assert.Equal(t, original.Summary, current.Summary)
		assert.Equal(t, original.ContentHash, current.ContentHash)
		assert.True(t, original.FetchedAt.Equal(current.FetchedAt))
	})
}
