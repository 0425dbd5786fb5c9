package core

import (
	"strconv"
	"strings"
)

// ChainID identifies an EVM-compatible network by its numeric chain id.
type ChainID uint64

// String returns the decimal representation of the chain id.
func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// ParseChainID parses a decimal chain id. Negative or non-numeric input
// is rejected.
func ParseChainID(s string) (ChainID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return ChainID(v), nil
}

// AgentID is the canonical cross-chain agent identifier "<chainID>:<tokenID>".
// The chain prefix makes identifiers from different networks collision-free.
type AgentID string

// MakeAgentID builds a canonical agent id from a chain id and token id.
func MakeAgentID(chain ChainID, token string) AgentID {
	return AgentID(chain.String() + ":" + token)
}

// Parse splits the id into its chain and token parts. ok is false when the
// id has no chain prefix or the prefix is not numeric.
func (id AgentID) Parse() (chain ChainID, token string, ok bool) {
	prefix, rest, found := strings.Cut(string(id), ":")
	if !found || rest == "" {
		return 0, "", false
	}
	chain, err := ParseChainID(prefix)
	if err != nil {
		return 0, "", false
	}
	return chain, rest, true
}

// Chain returns the chain prefix, or 0 when the id has none.
func (id AgentID) Chain() ChainID {
	chain, _, _ := id.Parse()
	return chain
}

// Token returns the token part of the id, or the whole id when it has no
// chain prefix.
func (id AgentID) Token() string {
	_, token, ok := id.Parse()
	if !ok {
		return string(id)
	}
	return token
}

// AgentSummary is the denormalized view of a registered agent returned by
// searches and single-agent lookups. Numeric counters sourced from big-int
// backend columns are coerced with a zero fallback rather than failing the
// whole row.
type AgentSummary struct {
	ChainID       ChainID  `json:"chainId"`
	AgentID       AgentID  `json:"agentId"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Image         string   `json:"image,omitempty"`
	Owners        []string `json:"owners,omitempty"`
	Operators     []string `json:"operators,omitempty"`
	WalletAddress string   `json:"walletAddress,omitempty"`

	MCPEndpoint   string `json:"mcpEndpoint,omitempty"`
	MCPVersion    string `json:"mcpVersion,omitempty"`
	A2AEndpoint   string `json:"a2aEndpoint,omitempty"`
	A2AVersion    string `json:"a2aVersion,omitempty"`
	WebEndpoint   string `json:"webEndpoint,omitempty"`
	EmailEndpoint string `json:"emailEndpoint,omitempty"`
	ENS           string `json:"ens,omitempty"`
	DID           string `json:"did,omitempty"`

	SupportedTrusts []string `json:"supportedTrusts,omitempty"`
	A2ASkills       []string `json:"a2aSkills,omitempty"`
	MCPTools        []string `json:"mcpTools,omitempty"`
	MCPPrompts      []string `json:"mcpPrompts,omitempty"`
	MCPResources    []string `json:"mcpResources,omitempty"`
	OASFSkills      []string `json:"oasfSkills,omitempty"`
	OASFDomains     []string `json:"oasfDomains,omitempty"`

	Active       bool   `json:"active"`
	X402Support  bool   `json:"x402support"`
	HasOASF      bool   `json:"hasOASF,omitempty"`
	AgentURI     string `json:"agentURI,omitempty"`
	AgentURIType string `json:"agentURIType,omitempty"`

	CreatedAt    int64 `json:"createdAt"`
	UpdatedAt    int64 `json:"updatedAt"`
	LastActivity int64 `json:"lastActivity,omitempty"`

	FeedbackCount int64    `json:"feedbackCount"`
	AverageValue  *float64 `json:"averageValue,omitempty"`

	// SemanticScore is populated only by keyword searches; agents the
	// relevance service did not score carry 0.
	SemanticScore float64 `json:"semanticScore,omitempty"`
}

// DisplayName returns the registration-file name, falling back to the agent
// id when the agent has no named registration.
func (s *AgentSummary) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return string(s.AgentID)
}

// FeedbackStats aggregates the feedback rows matched for one agent during a
// feedback scan. Average is 0 when Count is 0.
type FeedbackStats struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Feedback is a single feedback entry left for an agent. Its id has the form
// "<chainID>:<tokenID>:<reviewer>:<index>".
type Feedback struct {
	ID        string           `json:"id"`
	AgentID   AgentID          `json:"agentId"`
	Reviewer  string           `json:"reviewer"`
	Value     float64          `json:"value"`
	Tag1      string           `json:"tag1,omitempty"`
	Tag2      string           `json:"tag2,omitempty"`
	Endpoint  string           `json:"endpoint,omitempty"`
	URI       string           `json:"uri,omitempty"`
	IsRevoked bool             `json:"isRevoked"`
	CreatedAt int64            `json:"createdAt"`
	Answers   []FeedbackAnswer `json:"answers,omitempty"`
}

// FeedbackAnswer is a response published by an agent to a feedback entry.
type FeedbackAnswer struct {
	Responder string `json:"responder"`
	URI       string `json:"uri,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// ParseFeedbackID splits a feedback id into its agent id, reviewer address
// and per-reviewer index.
func ParseFeedbackID(id string) (agent AgentID, reviewer string, index uint64, err error) {
	parts := strings.Split(id, ":")
	if len(parts) != 4 {
		return "", "", 0, ErrInvalidFeedbackID
	}
	if _, err := ParseChainID(parts[0]); err != nil {
		return "", "", 0, ErrInvalidFeedbackID
	}
	index, err = strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return "", "", 0, ErrInvalidFeedbackID
	}
	return AgentID(parts[0] + ":" + parts[1]), strings.ToLower(parts[2]), index, nil
}
