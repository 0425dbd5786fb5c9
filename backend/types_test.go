package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumeric(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFloat float64
		wantInt   int64
	}{
		{name: "big-int string", input: `"12"`, wantFloat: 12, wantInt: 12},
		{name: "big-decimal string", input: `"4.5"`, wantFloat: 4.5, wantInt: 4},
		{name: "plain number", input: `7`, wantFloat: 7, wantInt: 7},
		{name: "null", input: `null`},
		{name: "garbage", input: `"n/a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n Numeric
			require.NoError(t, json.Unmarshal([]byte(tt.input), &n))
			assert.Equal(t, tt.wantFloat, n.Float())
			assert.Equal(t, tt.wantInt, n.Int())
		})
	}
}

func TestRegistrationFile_SchemaVariants(t *testing.T) {
	t.Run("modern schema", func(t *testing.T) {
		var f RegistrationFile
		data := []byte(`{"name":"helper","x402Support":true,"hasOASF":true,"active":true}`)
		require.NoError(t, json.Unmarshal(data, &f))
		assert.True(t, f.X402Support)
		assert.True(t, f.HasOASF)
		assert.True(t, f.Active)
	})

	t.Run("legacy x402 casing", func(t *testing.T) {
		var f RegistrationFile
		data := []byte(`{"name":"helper","x402support":true}`)
		require.NoError(t, json.Unmarshal(data, &f))
		assert.True(t, f.X402Support)
	})

	t.Run("legacy oasf endpoint implies hasOASF", func(t *testing.T) {
		var f RegistrationFile
		data := []byte(`{"oasfEndpoint":"https://oasf.example.test"}`)
		require.NoError(t, json.Unmarshal(data, &f))
		assert.True(t, f.HasOASF)
	})

	t.Run("absent oasf stays false", func(t *testing.T) {
		var f RegistrationFile
		require.NoError(t, json.Unmarshal([]byte(`{"name":"x"}`), &f))
		assert.False(t, f.HasOASF)
	})
}

func TestResponseRow_URISpellings(t *testing.T) {
	var modern ResponseRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r1","responseUri":"ipfs://a"}`), &modern))
	assert.Equal(t, "ipfs://a", modern.URI)

	var legacy ResponseRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"r2","responseURI":"ipfs://b"}`), &legacy))
	assert.Equal(t, "ipfs://b", legacy.URI)
}

func TestFeedbackRow_HasResponse(t *testing.T) {
	var row FeedbackRow
	data := []byte(`{"id":"1:7:0xabc:0","agent":{"id":"1:7"},"value":"4","responses":[{"id":"r"}]}`)
	require.NoError(t, json.Unmarshal(data, &row))
	assert.True(t, row.HasResponse())
	assert.Equal(t, "1:7", row.Agent.ID)
	assert.Equal(t, 4.0, row.Value.Float())

	var bare FeedbackRow
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1:7:0xabc:1"}`), &bare))
	assert.False(t, bare.HasResponse())
}
