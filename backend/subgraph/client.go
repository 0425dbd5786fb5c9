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


package subgraph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/machinebox/graphql"
	"golang.org/x/time/rate"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
)

const defaultTimeout = 30 * time.Second

// Client reads one chain's subgraph deployment. It resolves the
// deployment's schema vocabulary on first use and is safe for concurrent
// use afterwards.
type Client struct {
	chain      core.ChainID
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	pinned     *Capabilities

	gql *graphql.Client

	once sync.Once
	caps Capabilities
	docs documents
}

var _ backend.Client = (*Client)(nil)

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

// WithLogger sets the logger for query diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger.With("component", "subgraph")
		return nil
	}
}

// WithCapabilities pins the schema vocabulary and skips the probe.
func WithCapabilities(caps Capabilities) Option {
	return func(c *Client) error {
		c.pinned = &caps
		return nil
	}
}

// WithRateLimit caps outbound queries at rps requests per second with the
// given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 {
			return fmt.Errorf("rate limit must be positive, got %v", rps)
		}
		if burst < 1 {
			return fmt.Errorf("burst must be at least 1, got %d", burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// New creates a client for the deployment serving the given chain.
func New(chain core.ChainID, endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, backend.ErrEndpointRequired
	}
	c := &Client{
		chain:      chain,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default().With("component", "subgraph"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	c.gql = graphql.NewClient(endpoint, graphql.WithHTTPClient(c.httpClient))
	return c, nil
}

// init resolves the deployment's capabilities exactly once. A failed probe
// falls back to the current schema rather than failing the query; the
// deployment will still reject fields it does not have, which surfaces as
// a normal query error.
func (c *Client) init(ctx context.Context) Capabilities {
	c.once.Do(func() {
		caps := DefaultCapabilities()
		if c.pinned != nil {
			caps = *c.pinned
		} else if probed, err := c.probeCapabilities(ctx); err != nil {
			c.logger.Warn("schema probe failed, assuming current schema",
				"chain", c.chain, "error", err)
		} else {
			caps = probed
		}
		c.caps = caps
		c.docs = buildDocuments(caps)
		c.logger.Debug("resolved deployment vocabulary",
			"chain", c.chain,
			"x402Field", caps.X402Field,
			"metadataCollection", caps.MetadataCollection)
	})
	return c.caps
}

func (c *Client) run(ctx context.Context, doc string, vars map[string]any, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	req := graphql.NewRequest(doc)
	for k, v := range vars {
		req.Var(k, v)
	}
	if err := c.gql.Run(ctx, req, out); err != nil {
		return fmt.Errorf("chain %s: %w", c.chain, err)
	}
	return nil
}

// Agents returns one page of agent rows matching the query.
func (c *Client) Agents(ctx context.Context, q backend.AgentQuery) ([]backend.Agent, error) {
	caps := c.init(ctx)
	b := whereBuilder{caps: caps}
	where := b.build(q.Where)
	if len(b.dropped) > 0 {
		c.logger.Warn("deployment cannot filter on some columns, skipping them",
			"chain", c.chain, "columns", b.dropped)
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "createdAt"
	}
	direction := q.Direction
	if direction == "" {
		direction = backend.Desc
	}

	var resp struct {
		Agents []backend.Agent `json:"agents"`
	}
	vars := map[string]any{
		"where":          where,
		"first":          q.First,
		"skip":           q.Skip,
		"orderBy":        orderBy,
		"orderDirection": string(direction),
	}
	if err := c.run(ctx, c.docs.agents, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// AgentByID returns a single agent row, or backend.ErrNotFound.
func (c *Client) AgentByID(ctx context.Context, id core.AgentID) (*backend.Agent, error) {
	c.init(ctx)
	var resp struct {
		Agent *backend.Agent `json:"agent"`
	}
	if err := c.run(ctx, c.docs.agentByID, map[string]any{"id": string(id)}, &resp); err != nil {
		return nil, err
	}
	if resp.Agent == nil {
		return nil, fmt.Errorf("agent %s: %w", id, backend.ErrNotFound)
	}
	return resp.Agent, nil
}

// MetadataEntries returns one page of on-chain metadata rows.
func (c *Client) MetadataEntries(ctx context.Context, q backend.MetadataQuery) ([]backend.MetadataEntry, error) {
	c.init(ctx)
	where := map[string]any{"key": q.Key}
	if q.Value != "" {
		where["value"] = q.Value
	}
	var resp struct {
		Entries []backend.MetadataEntry `json:"entries"`
	}
	vars := map[string]any{
		"where": where,
		"first": q.First,
		"skip":  q.Skip,
	}
	if err := c.run(ctx, c.docs.metadata, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

// Feedbacks returns one page of feedback rows matching the query.
func (c *Client) Feedbacks(ctx context.Context, q backend.FeedbackQuery) ([]backend.FeedbackRow, error) {
	caps := c.init(ctx)
	b := whereBuilder{caps: caps}
	where := b.build(q.Where)
	if len(b.dropped) > 0 {
		c.logger.Warn("deployment cannot filter on some columns, skipping them",
			"chain", c.chain, "columns", b.dropped)
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = "createdAt"
	}
	direction := q.Direction
	if direction == "" {
		direction = backend.Desc
	}

	var resp struct {
		Feedbacks []backend.FeedbackRow `json:"feedbacks"`
	}
	vars := map[string]any{
		"where":          where,
		"first":          q.First,
		"skip":           q.Skip,
		"orderBy":        orderBy,
		"orderDirection": string(direction),
	}
	if err := c.run(ctx, c.docs.feedbacks, vars, &resp); err != nil {
		return nil, err
	}
	return resp.Feedbacks, nil
}

// FeedbackByID returns a single feedback row, or backend.ErrNotFound.
func (c *Client) FeedbackByID(ctx context.Context, id string) (*backend.FeedbackRow, error) {
	c.init(ctx)
	var resp struct {
		Feedback *backend.FeedbackRow `json:"feedback"`
	}
	if err := c.run(ctx, c.docs.feedbackByID, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	if resp.Feedback == nil {
		return nil, fmt.Errorf("feedback %s: %w", id, backend.ErrNotFound)
	}
	return resp.Feedback, nil
}
