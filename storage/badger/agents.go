package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/agentdex/core"
	"github.com/poiesic/agentdex/storage"
)

// AgentRepository implements storage.AgentStore for BadgerDB.
type AgentRepository struct {
	backend *Backend
}

var _ storage.AgentStore = (*AgentRepository)(nil)

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(backend *Backend) *AgentRepository {
	return &AgentRepository{
		backend: backend,
	}
}

// Close releases repository resources. The shared backend stays open.
func (r *AgentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *AgentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutAgents inserts or replaces agent snapshots, all in one transaction.
func (r *AgentRepository) PutAgents(ctx context.Context, snapshots ...*storage.Snapshot) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, snapshot := range snapshots {
			id := snapshot.Summary.AgentID
			if _, _, ok := id.Parse(); !ok {
				return fmt.Errorf("%w: agent id %q is not chain-qualified",
					storage.ErrInvalidQuery, id)
			}
			if snapshot.FetchedAt.IsZero() {
				snapshot.FetchedAt = time.Now().UTC()
			}

			key := makeAgentKey(id)
			value := storage.MarshalSnapshot(snapshot)
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetAgent retrieves a single agent snapshot by id.
func (r *AgentRepository) GetAgent(ctx context.Context, id core.AgentID) (*storage.Snapshot, error) {
	var result *storage.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeAgentKey(id)
		var err error
		result, err = r.readSnapshot(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetAgents retrieves multiple agent snapshots by their ids.
// Missing snapshots are skipped.
func (r *AgentRepository) GetAgents(ctx context.Context, ids ...core.AgentID) ([]*storage.Snapshot, error) {
	var result []*storage.Snapshot
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeAgentKey(id)
			snapshot, err := r.readSnapshot(tx, key)
			if err != nil {
				return err
			}
			if snapshot != nil {
				result = append(result, snapshot)
			}
		}
		return nil
	}, false)
	return result, err
}

// DeleteAgents removes agent snapshots by their ids.
func (r *AgentRepository) DeleteAgents(ctx context.Context, ids ...core.AgentID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeAgentKey(id)

			snapshot, err := r.readSnapshot(tx, key)
			if err != nil {
				return err
			}
			if snapshot == nil {
				return storage.ErrNotFound
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// AgentIDs lists every cached agent id, ordered by key.
func (r *AgentRepository) AgentIDs(ctx context.Context) ([]core.AgentID, error) {
	return r.listKeys([]byte(agentSnapPrefix + ":"))
}

// ChainAgentIDs lists the cached agent ids of one chain, ordered by key.
func (r *AgentRepository) ChainAgentIDs(ctx context.Context, chain core.ChainID) ([]core.AgentID, error) {
	return r.listKeys(makeChainPrefix(chain))
}

// listKeys collects the agent ids under a key prefix without loading values.
func (r *AgentRepository) listKeys(prefix []byte) ([]core.AgentID, error) {
	var ids []core.AgentID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			ids = append(ids, agentIDFromKey(iter.Item().Key()))
		}
		return nil
	}, false)
	return ids, err
}

// readSnapshot reads an agent snapshot from the transaction.
// Returns nil, nil when the key does not exist.
func (r *AgentRepository) readSnapshot(tx *badger.Txn, key []byte) (*storage.Snapshot, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var snapshot *storage.Snapshot
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		snapshot, unmarshalErr = storage.UnmarshalSnapshot(val)
		return unmarshalErr
	})
	return snapshot, err
}
