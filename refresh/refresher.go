package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/agentdex/backend"
	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/regfile"
	"github.com/poiesic/agentdex/storage"
)

const (
	// DefaultConcurrency is the default worker pool size for bulk refreshes.
	DefaultConcurrency = 8

	// DefaultBatchSize is how many agents a full sweep refreshes between
	// cursor checkpoints.
	DefaultBatchSize = 100

	// DefaultReportInterval is how many refreshed agents pass between
	// progress reports.
	DefaultReportInterval = 100

	defaultMaxAttempts = 3
	defaultRetryDelay  = 1 * time.Second

	// refreshJob keys the cursor of the full-sweep refresh.
	refreshJob = "refresh"
)

// ContractReader reads identity registry state straight from a chain.
// Implementations typically wrap a JSON-RPC client bound to the ERC-721
// identity registry contract of each configured network.
type ContractReader interface {
	// TokenURI returns the registration file URI of the given agent token.
	TokenURI(ctx context.Context, chain core.ChainID, tokenID string) (string, error)

	// OwnerOf returns the current owner address of the given agent token.
	OwnerOf(ctx context.Context, chain core.ChainID, tokenID string) (string, error)
}

// Refresher rebuilds locally stored agent snapshots from their
// authoritative sources. Structured backend rows are preferred; agents on
// chains without a configured backend fall back to a direct contract read
// plus the registration file the contract points at.
type Refresher struct {
	store         storage.AgentStore
	cursors       storage.CursorStore
	loader        *regfile.Loader
	registry      backend.Registry
	reader        ContractReader
	pool          *ants.Pool
	batchSize     int
	maxAttempts   int
	retryDelay    time.Duration
	progress      io.Writer
	progressEvery int
	logger        *slog.Logger
}

// Option configures a Refresher.
type Option func(*Refresher) error

// WithConcurrency sets the worker pool size for bulk refreshes.
// Default is DefaultConcurrency, with a minimum of 1.
func WithConcurrency(size int) Option {
	return func(r *Refresher) error {
		if size < 1 {
			size = 1
		}
		if r.pool != nil {
			r.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		r.pool = pool
		return nil
	}
}

// WithBatchSize sets how many agents a full sweep refreshes between
// cursor checkpoints. Default is DefaultBatchSize, with a minimum of 1.
func WithBatchSize(size int) Option {
	return func(r *Refresher) error {
		if size < 1 {
			size = 1
		}
		r.batchSize = size
		return nil
	}
}

// WithProgress writes bulk-refresh progress to w, reporting every
// interval refreshed agents.
func WithProgress(w io.Writer, interval int) Option {
	return func(r *Refresher) error {
		if w == nil {
			return fmt.Errorf("progress writer cannot be nil")
		}
		if interval < 1 {
			interval = 1
		}
		r.progress = w
		r.progressEvery = interval
		return nil
	}
}

// WithRegistry wires the backend registry used for structured rows.
func WithRegistry(registry backend.Registry) Option {
	return func(r *Refresher) error {
		if registry == nil {
			return fmt.Errorf("registry cannot be nil")
		}
		r.registry = registry
		return nil
	}
}

// WithContractReader wires the contract reader used when a chain has no
// configured backend.
func WithContractReader(reader ContractReader) Option {
	return func(r *Refresher) error {
		if reader == nil {
			return fmt.Errorf("contract reader cannot be nil")
		}
		r.reader = reader
		return nil
	}
}

// WithLoader replaces the default registration file loader.
func WithLoader(loader *regfile.Loader) Option {
	return func(r *Refresher) error {
		if loader == nil {
			return fmt.Errorf("loader cannot be nil")
		}
		r.loader = loader
		return nil
	}
}

// WithCursorStore enables checkpointing of full sweeps so an interrupted
// run resumes where it left off.
func WithCursorStore(cursors storage.CursorStore) Option {
	return func(r *Refresher) error {
		if cursors == nil {
			return fmt.Errorf("cursor store cannot be nil")
		}
		r.cursors = cursors
		return nil
	}
}

// WithRetry sets the retry policy for contract reads and registration
// file fetches. Default is 3 attempts with a 1s base delay.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(r *Refresher) error {
		if maxAttempts < 1 {
			return fmt.Errorf("retry attempts must be positive")
		}
		r.maxAttempts = maxAttempts
		r.retryDelay = baseDelay
		return nil
	}
}

// WithLogger sets the logger for refresh diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Refresher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		r.logger = logger.With("component", "refresh")
		return nil
	}
}

// NewRefresher creates a refresher writing snapshots to store. Without a
// WithRegistry or WithContractReader option every refresh fails with
// ErrNoSource; callers wire at least one source.
func NewRefresher(store storage.AgentStore, opts ...Option) (*Refresher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	pool, err := ants.NewPool(DefaultConcurrency)
	if err != nil {
		return nil, err
	}

	r := &Refresher{
		store:         store,
		pool:          pool,
		batchSize:     DefaultBatchSize,
		maxAttempts:   defaultMaxAttempts,
		retryDelay:    defaultRetryDelay,
		progressEvery: DefaultReportInterval,
		logger:        slog.Default().With("component", "refresh"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			r.Release()
			return nil, err
		}
	}

	if r.loader == nil {
		loader, err := regfile.NewLoader()
		if err != nil {
			r.Release()
			return nil, err
		}
		r.loader = loader
	}

	return r, nil
}

// RefreshAgent re-indexes a single agent and stores the resulting
// snapshot. The id must be chain-qualified. When the registration file
// hash matches the stored snapshot the write is skipped and the stored
// summary returned.
func (r *Refresher) RefreshAgent(ctx context.Context, id core.AgentID) (*core.AgentSummary, error) {
	chain, token, ok := id.Parse()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnqualifiedAgentID, id)
	}

	prior, err := r.store.GetAgent(ctx, id)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	snapshot, err := r.refreshFromBackend(ctx, chain, id)
	if err != nil {
		if r.reader == nil {
			return nil, err
		}
		r.logger.Warn("backend lookup failed, falling back to contract read",
			"agent", string(id), "err", err)
		snapshot = nil
	}
	if snapshot == nil {
		if r.reader == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoSource, id)
		}
		snapshot, err = r.refreshFromContract(ctx, chain, token, id, prior)
		if err != nil {
			return nil, err
		}
		if snapshot == nil {
			r.logger.Debug("registration file unchanged", "agent", string(id))
			return &prior.Summary, nil
		}
	}

	if err := r.store.PutAgents(ctx, snapshot); err != nil {
		return nil, err
	}
	r.logger.Debug("agent refreshed", "agent", string(id), "name", snapshot.Summary.Name)
	return &snapshot.Summary, nil
}

// refreshFromBackend builds a snapshot from the chain's structured index.
// Returns nil when the chain has no configured backend.
func (r *Refresher) refreshFromBackend(ctx context.Context, chain core.ChainID, id core.AgentID) (*storage.Snapshot, error) {
	if r.registry == nil {
		return nil, nil
	}
	client, ok := r.registry.ClientFor(chain)
	if !ok {
		return nil, nil
	}
	row, err := client.AgentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &storage.Snapshot{Summary: row.Summary(chain)}, nil
}

// refreshFromContract builds a snapshot from a contract read and the
// registration file it points at. Returns nil when the file's hash
// matches the prior snapshot, meaning there is nothing new to store.
func (r *Refresher) refreshFromContract(ctx context.Context, chain core.ChainID, token string, id core.AgentID, prior *storage.Snapshot) (*storage.Snapshot, error) {
	var uri string
	err := RetryWithBackoff(ctx, func() error {
		var err error
		uri, err = r.reader.TokenURI(ctx, chain, token)
		return err
	}, r.maxAttempts, r.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent uri: %w", err)
	}

	var record *regfile.Record
	err = RetryWithBackoff(ctx, func() error {
		var err error
		record, err = r.loader.Reload(ctx, uri)
		return err
	}, r.maxAttempts, r.retryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to load registration file: %w", err)
	}

	if prior != nil && prior.ContentHash == record.Hash {
		return nil, nil
	}

	summary := core.AgentSummary{
		ChainID:      chain,
		AgentID:      id,
		AgentURI:     uri,
		AgentURIType: regfile.URIType(uri),
	}
	if owner, err := r.reader.OwnerOf(ctx, chain, token); err != nil {
		r.logger.Debug("owner lookup failed", "agent", string(id), "err", err)
	} else if owner != "" {
		summary.Owners = []string{owner}
	}
	record.File.Apply(&summary)
	if prior != nil {
		// Feedback aggregates and chain timestamps only exist in backend
		// rows; carry the last known values forward.
		summary.CreatedAt = prior.Summary.CreatedAt
		summary.UpdatedAt = prior.Summary.UpdatedAt
		summary.LastActivity = prior.Summary.LastActivity
		summary.FeedbackCount = prior.Summary.FeedbackCount
		summary.AverageValue = prior.Summary.AverageValue
	}

	return &storage.Snapshot{Summary: summary, ContentHash: record.Hash}, nil
}

// RefreshAgents re-indexes the given agents through a fixed-size worker
// pool. A nil id list refreshes every agent known to the store; when a
// cursor store is configured such a full sweep checkpoints its progress
// after each batch and resumes where an interrupted run left off.
// Individual failures are logged and skipped; the returned summaries
// cover the agents that refreshed successfully, in input order.
func (r *Refresher) RefreshAgents(ctx context.Context, ids []core.AgentID) ([]core.AgentSummary, error) {
	sweep := ids == nil
	if sweep {
		var err error
		ids, err = r.store.AgentIDs(ctx)
		if err != nil {
			return nil, err
		}
		if r.cursors != nil {
			ids, err = r.skipCompleted(ctx, ids)
			if err != nil {
				return nil, err
			}
		}
	}

	var tracker *ProgressTracker
	if r.progress != nil {
		tracker = NewProgressTracker(r.progress, len(ids), r.progressEvery)
		tracker.Start()
	}

	summaries := make([]core.AgentSummary, 0, len(ids))
	for start := 0; start < len(ids); start += r.batchSize {
		batch := ids[start:min(start+r.batchSize, len(ids))]

		results := make([]*core.AgentSummary, len(batch))
		var wg sync.WaitGroup
		for i, id := range batch {
			wg.Add(1)
			submitErr := r.pool.Submit(func() {
				defer wg.Done()
				summary, err := r.RefreshAgent(ctx, id)
				if err != nil {
					r.logger.Warn("error refreshing agent", "agent", string(id), "err", err)
					return
				}
				results[i] = summary
			})
			if submitErr != nil {
				wg.Done()
				wg.Wait()
				return nil, submitErr
			}
		}
		wg.Wait()
		if tracker != nil {
			tracker.Add(len(batch))
		}

		for _, summary := range results {
			if summary != nil {
				summaries = append(summaries, *summary)
			}
		}
		if sweep && r.cursors != nil {
			r.saveCursor(ctx, string(batch[len(batch)-1]))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if sweep && r.cursors != nil {
		r.saveCursor(ctx, "")
	}
	if tracker != nil {
		tracker.Finish()
	}
	r.logger.Info("refresh complete", "requested", len(ids), "refreshed", len(summaries))
	return summaries, nil
}

// skipCompleted trims ids a prior interrupted sweep already refreshed.
// Store listings are key-ordered, so everything at or before the cursor
// position is done.
func (r *Refresher) skipCompleted(ctx context.Context, ids []core.AgentID) ([]core.AgentID, error) {
	cursor, err := r.cursors.LoadCursor(ctx, refreshJob)
	if err != nil {
		return nil, err
	}
	if cursor == nil || cursor.Position == "" {
		return ids, nil
	}
	for i, id := range ids {
		if string(id) > cursor.Position {
			r.logger.Info("resuming interrupted refresh",
				"after", cursor.Position, "remaining", len(ids)-i)
			return ids[i:], nil
		}
	}
	return nil, nil
}

func (r *Refresher) saveCursor(ctx context.Context, position string) {
	cursor := &storage.Cursor{Job: refreshJob, Position: position}
	if err := r.cursors.SaveCursor(ctx, cursor); err != nil {
		r.logger.Warn("error saving refresh cursor", "err", err)
	}
}

// Release releases the worker pool. The refresher should not be used
// after calling Release.
func (r *Refresher) Release() {
	if r.pool != nil {
		r.pool.Release()
	}
}
