package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/chains"
	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/semantic"
)

const (
	defaultPageSize    = 1000
	defaultChunkSize   = 500
	defaultMaxParallel = 4

	defaultFeedbackLimit = 100
)

// Engine executes agent and feedback searches across every resolved chain,
// narrowing candidates through semantic, metadata and feedback stages
// before fetching full rows from the structured backends.
type Engine struct {
	resolver *chains.Resolver
	registry backend.Registry
	searcher semantic.Searcher
	logger   *slog.Logger

	pageSize    int
	chunkSize   int
	maxParallel int
}

// Option configures an Engine.
type Option func(*Engine) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithSearcher wires the relevance service used for keyword queries.
// Without one, keyword queries fail with ErrSemanticRequired.
func WithSearcher(searcher semantic.Searcher) Option {
	return func(e *Engine) error {
		e.searcher = searcher
		return nil
	}
}

// WithPageSize sets how many rows each backend page request asks for.
func WithPageSize(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("page size must be positive, got %d", n)
		}
		e.pageSize = n
		return nil
	}
}

// WithChunkSize sets how many candidate ids a single fetch query carries.
func WithChunkSize(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", n)
		}
		e.chunkSize = n
		return nil
	}
}

// WithMaxParallel caps how many chains are queried at once.
func WithMaxParallel(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return fmt.Errorf("parallelism must be positive, got %d", n)
		}
		e.maxParallel = n
		return nil
	}
}

// NewEngine creates a search engine over the given chains and backends.
func NewEngine(resolver *chains.Resolver, registry backend.Registry, opts ...Option) (*Engine, error) {
	if resolver == nil {
		return nil, ErrResolverRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	e := &Engine{
		resolver:    resolver,
		registry:    registry,
		logger:      slog.Default(),
		pageSize:    defaultPageSize,
		chunkSize:   defaultChunkSize,
		maxParallel: defaultMaxParallel,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Search finds agents matching the query across every resolved chain.
// Results are sorted by the query's sort keys and truncated to TopK.
func (e *Engine) Search(ctx context.Context, q *core.SearchQuery) ([]core.AgentSummary, error) {
	return e.SearchWithMonitor(ctx, q, nil)
}

// SearchWithMonitor runs Search with stage callbacks.
func (e *Engine) SearchWithMonitor(ctx context.Context, q *core.SearchQuery, monitor SearchMonitor) ([]core.AgentSummary, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateSearchQuery(q); err != nil {
		return nil, err
	}

	keyword := strings.TrimSpace(q.Keyword) != ""
	sortKeys, err := parseSortSpecs(q.Sort, keyword)
	if err != nil {
		return nil, err
	}

	monitor.Start(q)
	filters := q.FilterSet()

	resolved := e.resolver.Resolve(filters.Chains)
	monitor.ChainsResolved(resolved)
	if len(resolved) == 0 {
		e.logger.Debug("search resolved no chains")
		monitor.Finish(nil)
		return []core.AgentSummary{}, nil
	}

	idsByChain, err := core.NormalizeAgentIDs(filters.AgentIDs, resolved)
	if err != nil {
		return nil, err
	}

	// Keyword queries gather semantic candidates first; a query nothing
	// matches is already answered.
	var sem *semantic.Result
	if keyword {
		if e.searcher == nil {
			return nil, ErrSemanticRequired
		}
		sem, err = e.searcher.Search(ctx, semantic.Query{
			Text:     strings.TrimSpace(q.Keyword),
			MinScore: q.MinScore,
			Chains:   resolved,
		})
		if err != nil {
			return nil, err
		}
		monitor.SemanticCandidates(sem.ByChain)
	}

	p := compile(filters)

	// Seed each chain's candidate set from the signals that need no
	// backend round trip.
	sets := make([]candidateSet, len(resolved))
	for i, chain := range resolved {
		var set candidateSet
		if len(filters.AgentIDs) > 0 {
			set = set.intersect(boundTo(idsByChain[chain]))
		}
		if keyword {
			set = set.intersect(boundTo(sem.ByChain[chain]))
		}
		sets[i] = set
	}

	clients := make([]backend.Client, len(resolved))
	for i, chain := range resolved {
		client, ok := e.registry.ClientFor(chain)
		if !ok {
			e.logger.Debug("skipping chain without backend", "chain", chain)
			monitor.ChainSkipped(chain, "no backend configured")
			continue
		}
		clients[i] = client
	}

	if p.metadata != nil {
		err := e.forEachChain(ctx, clients, sets, func(ctx context.Context, i int) error {
			ids, err := e.metadataCandidates(ctx, clients[i], p.metadata)
			if err != nil {
				return err
			}
			monitor.MetadataCandidates(resolved[i], ids)
			sets[i] = sets[i].intersect(boundTo(ids))
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	// Absence filters subtract matched agents from the candidate
	// universe; with an unbounded universe the subtraction has no base.
	if p.feedback != nil && p.feedback.HasNoFeedback {
		for i := range resolved {
			if clients[i] != nil && !sets[i].bounded {
				return nil, ErrUnboundedFeedbackQuery
			}
		}
	}

	statsByChain := make([]map[core.AgentID]core.FeedbackStats, len(resolved))
	if p.feedback != nil {
		err := e.forEachChain(ctx, clients, sets, func(ctx context.Context, i int) error {
			matched, stats, err := e.feedbackScan(ctx, clients[i], p.feedback, sets[i])
			if err != nil {
				return err
			}
			monitor.FeedbackCandidates(resolved[i], matched)
			statsByChain[i] = stats
			if p.feedback.HasNoFeedback {
				// The scan already subtracted from the universe.
				sets[i] = boundTo(matched)
			} else {
				sets[i] = sets[i].intersect(boundTo(matched))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	perChain := make([][]core.AgentSummary, len(resolved))
	err = e.forEachChain(ctx, clients, sets, func(ctx context.Context, i int) error {
		rows, err := e.fetchAgents(ctx, clients[i], p.where, sets[i])
		if err != nil {
			return err
		}
		summaries := make([]core.AgentSummary, 0, len(rows))
		for _, row := range rows {
			s := row.Summary(resolved[i])
			if stats := statsByChain[i]; stats != nil {
				if st, ok := stats[s.AgentID]; ok && st.Count > 0 {
					avg := st.Average
					s.AverageValue = &avg
				}
			}
			if keyword {
				s.SemanticScore = sem.Scores[s.AgentID]
			}
			summaries = append(summaries, s)
		}
		perChain[i] = summaries
		monitor.ChainFetched(resolved[i], len(summaries))
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]core.AgentSummary, 0)
	for _, summaries := range perChain {
		results = append(results, summaries...)
	}
	applySort(results, sortKeys)
	if q.TopK > 0 && len(results) > q.TopK {
		results = results[:q.TopK]
	}
	monitor.Finish(results)
	return results, nil
}

// forEachChain runs fn for every chain that still has a client and live
// candidates, at most maxParallel chains at a time. Slot writes inside fn
// are per-index and need no locking.
func (e *Engine) forEachChain(ctx context.Context, clients []backend.Client, sets []candidateSet, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)
	for i := range clients {
		if clients[i] == nil || sets[i].exhausted() {
			continue
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}

// fetchAgents reads the full rows for one chain. Bounded candidate sets
// are fetched in id chunks, each answered by a single page; unbounded
// searches walk the backend page by page.
func (e *Engine) fetchAgents(ctx context.Context, client backend.Client, where backend.Cond, set candidateSet) ([]backend.Agent, error) {
	if set.bounded {
		tokens := set.tokens()
		rows := make([]backend.Agent, 0, len(tokens))
		for start := 0; start < len(tokens); start += e.chunkSize {
			chunk := tokens[start:min(start+e.chunkSize, len(tokens))]
			page, err := client.Agents(ctx, backend.AgentQuery{
				Where:     backend.And{where, backend.In("id", chunk)},
				First:     len(chunk),
				OrderBy:   "id",
				Direction: backend.Asc,
			})
			if err != nil {
				return nil, err
			}
			rows = append(rows, page...)
		}
		return rows, nil
	}

	var rows []backend.Agent
	for skip := 0; ; skip += e.pageSize {
		page, err := client.Agents(ctx, backend.AgentQuery{
			Where:     where,
			First:     e.pageSize,
			Skip:      skip,
			OrderBy:   "id",
			Direction: backend.Asc,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, page...)
		if len(page) < e.pageSize {
			return rows, nil
		}
	}
}

// GetAgent fetches one agent by its chain-qualified id.
func (e *Engine) GetAgent(ctx context.Context, id core.AgentID) (*core.AgentSummary, error) {
	chain, _, ok := id.Parse()
	if !ok {
		return nil, fmt.Errorf("%w: malformed agent id %q", core.ErrInvalidFilter, id)
	}
	client, ok := e.registry.ClientFor(chain)
	if !ok {
		return nil, fmt.Errorf("chain %s has no backend: %w", chain, backend.ErrNotFound)
	}
	row, err := client.AgentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s := row.Summary(chain)
	return &s, nil
}

// SearchFeedback lists feedback entries matching the filters, newest
// first, across every resolved chain.
func (e *Engine) SearchFeedback(ctx context.Context, f *core.FeedbackFilters) ([]core.Feedback, error) {
	if f == nil {
		f = &core.FeedbackFilters{}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultFeedbackLimit
	}

	resolved := e.resolver.Resolve(f.Chains)
	if len(resolved) == 0 {
		return []core.Feedback{}, nil
	}
	idsByChain, err := core.NormalizeAgentIDs(f.AgentIDs, resolved)
	if err != nil {
		return nil, err
	}

	rowFilter := &core.FeedbackQueryFilter{
		Reviewers:      f.Reviewers,
		Endpoint:       f.Endpoint,
		Tag:            f.Tag,
		Tag1:           f.Tag1,
		Tag2:           f.Tag2,
		IncludeRevoked: f.IncludeRevoked,
	}

	sets := make([]candidateSet, len(resolved))
	clients := make([]backend.Client, len(resolved))
	for i, chain := range resolved {
		if len(f.AgentIDs) > 0 {
			sets[i] = boundTo(idsByChain[chain])
		}
		if client, ok := e.registry.ClientFor(chain); ok {
			clients[i] = client
		} else {
			e.logger.Debug("skipping chain without backend", "chain", chain)
		}
	}

	perChain := make([][]core.Feedback, len(resolved))
	err = e.forEachChain(ctx, clients, sets, func(ctx context.Context, i int) error {
		where := feedbackWhere(rowFilter, sets[i])
		if f.MinValue != nil {
			where = append(where, backend.Gte("value", *f.MinValue))
		}
		if f.MaxValue != nil {
			where = append(where, backend.Lte("value", *f.MaxValue))
		}
		entries, err := e.fetchFeedback(ctx, clients[i], where, f.HasResponse, limit)
		if err != nil {
			return err
		}
		perChain[i] = entries
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]core.Feedback, 0)
	for _, entries := range perChain {
		results = append(results, entries...)
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// fetchFeedback pages one chain's feedback rows, newest first, stopping
// once limit rows survived the row-level checks.
func (e *Engine) fetchFeedback(ctx context.Context, client backend.Client, where backend.Cond, needResponse bool, limit int) ([]core.Feedback, error) {
	var entries []core.Feedback
	for skip := 0; ; skip += e.pageSize {
		rows, err := client.Feedbacks(ctx, backend.FeedbackQuery{
			Where:     where,
			First:     e.pageSize,
			Skip:      skip,
			OrderBy:   "createdAt",
			Direction: backend.Desc,
		})
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if needResponse && !row.HasResponse() {
				continue
			}
			entries = append(entries, row.Feedback())
			if len(entries) >= limit {
				return entries, nil
			}
		}
		if len(rows) < e.pageSize {
			return entries, nil
		}
	}
}

// GetFeedback fetches one feedback entry by its composite id.
func (e *Engine) GetFeedback(ctx context.Context, id string) (*core.Feedback, error) {
	agent, _, _, err := core.ParseFeedbackID(id)
	if err != nil {
		return nil, err
	}
	chain := agent.Chain()
	client, ok := e.registry.ClientFor(chain)
	if !ok {
		return nil, fmt.Errorf("chain %s has no backend: %w", chain, backend.ErrNotFound)
	}
	row, err := client.FeedbackByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entry := row.Feedback()
	return &entry, nil
}
