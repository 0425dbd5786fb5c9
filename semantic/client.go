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


package semantic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/agentdex/core"
)

const (
	searchPath     = "/api/v1/search"
	defaultTimeout = 30 * time.Second
)

// Client talks to the relevance gateway over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		c.httpClient = httpClient
		return nil
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger.With("component", "semantic")
		return nil
	}
}

// NewClient creates a gateway client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrGatewayRequired
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "semantic"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return c, nil
}

type searchRequest struct {
	Query    string  `json:"query"`
	MinScore float64 `json:"minScore"`
	Limit    int     `json:"limit"`
}

// wireMatch tolerates both camelCase and snake_case spellings, and ids
// sent as numbers.
type wireMatch struct {
	AgentID    flexString `json:"agentId"`
	AgentIDAlt flexString `json:"agent_id"`
	ChainID    flexString `json:"chainId"`
	ChainIDAlt flexString `json:"chain_id"`
	Score      *float64   `json:"score"`
}

func (m wireMatch) token() string {
	if m.AgentID != "" {
		return string(m.AgentID)
	}
	return string(m.AgentIDAlt)
}

func (m wireMatch) chain() string {
	if m.ChainID != "" {
		return string(m.ChainID)
	}
	return string(m.ChainIDAlt)
}

// flexString decodes a JSON string or number into a string.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// Search posts the query and folds the gateway's matches into per-chain
// candidate lists. Matches the gateway malformed are dropped; a gateway
// that cannot be reached fails the whole search.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	minScore := q.MinScore
	if minScore == 0 {
		minScore = DefaultMinScore
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	body, err := json.Marshal(searchRequest{Query: q.Text, MinScore: minScore, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	matches, err := decodeMatches(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return c.fold(matches, q.Chains), nil
}

// decodeMatches accepts both response shapes the gateway has used: an
// object with a results array, and a bare array.
func decodeMatches(payload []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var matches []json.RawMessage
		if err := json.Unmarshal(trimmed, &matches); err != nil {
			return nil, fmt.Errorf("malformed response: %v", err)
		}
		return matches, nil
	}
	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("malformed response: %v", err)
	}
	return envelope.Results, nil
}

func (c *Client) fold(matches []json.RawMessage, restrict []core.ChainID) *Result {
	allowed := make(map[core.ChainID]bool, len(restrict))
	for _, chain := range restrict {
		allowed[chain] = true
	}

	result := &Result{
		ByChain: make(map[core.ChainID][]core.AgentID),
		Scores:  make(map[core.AgentID]float64),
	}
	dropped := 0
	for _, raw := range matches {
		var m wireMatch
		if err := json.Unmarshal(raw, &m); err != nil || m.Score == nil {
			dropped++
			continue
		}

		id, ok := matchID(m)
		if !ok {
			dropped++
			continue
		}
		chain, _, ok := id.Parse()
		if !ok {
			dropped++
			continue
		}
		if len(allowed) > 0 && !allowed[chain] {
			continue
		}
		if _, seen := result.Scores[id]; seen {
			continue
		}
		result.ByChain[chain] = append(result.ByChain[chain], id)
		result.Scores[id] = *m.Score
	}
	if dropped > 0 {
		c.logger.Debug("dropped malformed semantic matches", "count", dropped)
	}
	return result
}

// matchID builds the canonical agent id from a match, accepting tokens the
// gateway already prefixed with their chain.
func matchID(m wireMatch) (core.AgentID, bool) {
	token := m.token()
	if token == "" {
		return "", false
	}
	if strings.Contains(token, ":") {
		id := core.AgentID(token)
		if _, _, ok := id.Parse(); !ok {
			return "", false
		}
		return id, true
	}
	chain, err := core.ParseChainID(m.chain())
	if err != nil {
		return "", false
	}
	return core.MakeAgentID(chain, token), true
}
