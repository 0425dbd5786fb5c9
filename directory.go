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


package agentdex

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/backend/subgraph"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/refresh"
	"github.com/poiesic/agentdex/regfile"
	"github.com/poiesic/agentdex/search"
	"github.com/poiesic/agentdex/semantic"
	"github.com/poiesic/agentdex/storage"
	"github.com/poiesic/agentdex/storage/badger"
)

// Directory is the top-level entry point: a cross-chain agent index that
// searches structured backends, serves cached snapshots when a chain is
// unreachable, and refreshes the local store on demand.
type Directory struct {
	cfg       chains.Config
	resolver  *chains.Resolver
	registry  backend.Registry
	engine    *search.Engine
	store     storage.AgentStore
	cursors   storage.CursorStore
	refresher *refresh.Refresher
	db        *badger.Backend
	logger    *slog.Logger
}

// Option configures a Directory.
type Option func(*directoryOptions)

type directoryOptions struct {
	logger      *slog.Logger
	httpClient  *http.Client
	dbPath      string
	store       storage.AgentStore
	registry    backend.Registry
	searcher    semantic.Searcher
	reader      refresh.ContractReader
	refreshOpts []refresh.Option
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *directoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client used for backend queries,
// relevance lookups and registration file fetches.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *directoryOptions) {
		o.httpClient = httpClient
	}
}

// WithDatabasePath stores agent snapshots on disk at path instead of in
// memory, so the cache survives restarts.
func WithDatabasePath(path string) Option {
	return func(o *directoryOptions) {
		o.dbPath = path
	}
}

// WithStore injects a snapshot store, replacing the built-in badger one.
// Injected stores run refresh sweeps without resume cursors.
func WithStore(store storage.AgentStore) Option {
	return func(o *directoryOptions) {
		o.store = store
	}
}

// WithRegistry injects a backend registry, replacing the subgraph one
// built from the chain configuration.
func WithRegistry(registry backend.Registry) Option {
	return func(o *directoryOptions) {
		o.registry = registry
	}
}

// WithSearcher injects the relevance searcher used for keyword queries,
// replacing the client built from the configured semantic endpoint.
func WithSearcher(searcher semantic.Searcher) Option {
	return func(o *directoryOptions) {
		o.searcher = searcher
	}
}

// WithContractReader enables contract-read refreshes for chains without
// a configured backend.
func WithContractReader(reader refresh.ContractReader) Option {
	return func(o *directoryOptions) {
		o.reader = reader
	}
}

// WithRefreshOptions forwards options to the refresher, for tuning
// concurrency, batch sizes and retries.
func WithRefreshOptions(opts ...refresh.Option) Option {
	return func(o *directoryOptions) {
		o.refreshOpts = append(o.refreshOpts, opts...)
	}
}

// NewDirectory wires a directory over the configured chains.
func NewDirectory(cfg chains.Config, opts ...Option) (*Directory, error) {
	o := &directoryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	cfg = cfg.Normalized()

	registry := o.registry
	if registry == nil {
		var clientOpts []subgraph.Option
		if o.httpClient != nil {
			clientOpts = append(clientOpts, subgraph.WithHTTPClient(o.httpClient))
		}
		reg, err := subgraph.NewRegistry(cfg,
			subgraph.WithRegistryLogger(o.logger),
			subgraph.WithClientOptions(clientOpts...),
		)
		if err != nil {
			return nil, err
		}
		registry = reg
	}

	d := &Directory{
		cfg:      cfg,
		resolver: chains.NewResolver(cfg),
		registry: registry,
		logger:   o.logger,
	}

	if o.store != nil {
		d.store = o.store
	} else {
		db, err := badger.OpenBackend(o.dbPath, o.dbPath == "")
		if err != nil {
			return nil, err
		}
		d.db = db
		d.store = badger.NewAgentRepository(db)
		d.cursors = badger.NewCursorRepository(db)
	}

	searcher := o.searcher
	if searcher == nil && cfg.Semantic != "" {
		semOpts := []semantic.Option{semantic.WithLogger(o.logger)}
		if o.httpClient != nil {
			semOpts = append(semOpts, semantic.WithHTTPClient(o.httpClient))
		}
		client, err := semantic.NewClient(cfg.Semantic, semOpts...)
		if err != nil {
			d.closeStore()
			return nil, err
		}
		searcher = client
	}

	engineOpts := []search.Option{search.WithLogger(o.logger)}
	if searcher != nil {
		engineOpts = append(engineOpts, search.WithSearcher(searcher))
	}
	engine, err := search.NewEngine(d.resolver, registry, engineOpts...)
	if err != nil {
		d.closeStore()
		return nil, err
	}
	d.engine = engine

	loaderOpts := []regfile.Option{
		regfile.WithGateway(cfg.Gateway),
		regfile.WithLogger(o.logger),
	}
	if o.httpClient != nil {
		loaderOpts = append(loaderOpts, regfile.WithHTTPClient(o.httpClient))
	}
	loader, err := regfile.NewLoader(loaderOpts...)
	if err != nil {
		d.closeStore()
		return nil, err
	}

	refreshOpts := []refresh.Option{
		refresh.WithRegistry(registry),
		refresh.WithLoader(loader),
		refresh.WithLogger(o.logger),
	}
	if d.cursors != nil {
		refreshOpts = append(refreshOpts, refresh.WithCursorStore(d.cursors))
	}
	if o.reader != nil {
		refreshOpts = append(refreshOpts, refresh.WithContractReader(o.reader))
	}
	refreshOpts = append(refreshOpts, o.refreshOpts...)
	refresher, err := refresh.NewRefresher(d.store, refreshOpts...)
	if err != nil {
		d.closeStore()
		return nil, err
	}
	d.refresher = refresher

	return d, nil
}

func (d *Directory) closeStore() {
	if d.store != nil {
		d.store.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// SearchAgents runs a structured or keyword search across the resolved
// chains.
func (d *Directory) SearchAgents(ctx context.Context, q *core.SearchQuery) ([]core.AgentSummary, error) {
	return d.engine.Search(ctx, q)
}

// GetAgent fetches a single agent. Ids without a chain prefix default to
// the primary chain. When the chain's backend cannot serve the agent the
// local snapshot store answers instead.
func (d *Directory) GetAgent(ctx context.Context, id core.AgentID) (*core.AgentSummary, error) {
	id = d.qualify(id)
	summary, err := d.engine.GetAgent(ctx, id)
	if err == nil {
		return summary, nil
	}
	if snap, serr := d.store.GetAgent(ctx, id); serr == nil {
		d.logger.Debug("serving agent from local store", "agent", string(id), "err", err)
		return &snap.Summary, nil
	}
	return nil, err
}

// SearchFeedback lists feedback entries matching the filters across the
// resolved chains, newest first.
func (d *Directory) SearchFeedback(ctx context.Context, f *core.FeedbackFilters) ([]core.Feedback, error) {
	return d.engine.SearchFeedback(ctx, f)
}

// GetFeedback fetches one feedback entry by its composite id.
func (d *Directory) GetFeedback(ctx context.Context, id string) (*core.Feedback, error) {
	return d.engine.GetFeedback(ctx, id)
}

// RefreshAgent re-indexes a single agent into the local store. Ids
// without a chain prefix default to the primary chain.
func (d *Directory) RefreshAgent(ctx context.Context, id core.AgentID) (*core.AgentSummary, error) {
	return d.refresher.RefreshAgent(ctx, d.qualify(id))
}

// RefreshAgents re-indexes the given agents; nil refreshes every agent
// known to the local store.
func (d *Directory) RefreshAgents(ctx context.Context, ids []core.AgentID) ([]core.AgentSummary, error) {
	if ids != nil {
		qualified := make([]core.AgentID, len(ids))
		for i, id := range ids {
			qualified[i] = d.qualify(id)
		}
		ids = qualified
	}
	return d.refresher.RefreshAgents(ctx, ids)
}

func (d *Directory) qualify(id core.AgentID) core.AgentID {
	if _, _, ok := id.Parse(); ok {
		return id
	}
	return core.MakeAgentID(d.cfg.Primary, string(id))
}

// Store exposes the local snapshot store.
func (d *Directory) Store() storage.AgentStore {
	return d.store
}

// Config returns the normalized chain configuration.
func (d *Directory) Config() chains.Config {
	return d.cfg
}

// Close releases the refresh worker pool and closes the local store,
// including one passed via WithStore.
func (d *Directory) Close() error {
	if d.refresher != nil {
		d.refresher.Release()
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			return err
		}
	}
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
