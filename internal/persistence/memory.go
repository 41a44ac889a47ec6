package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"TokenVault/internal/vault"
)

// MemoryStore keeps balance snapshots in a mutex-guarded map. It backs
// DB-less dev mode and tests; semantics match PostgresStore exactly,
// including the zero default for never-written assets.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[vault.AssetID]*uint256.Int
	updated   map[vault.AssetID]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[vault.AssetID]*uint256.Int),
		updated:   make(map[vault.AssetID]time.Time),
	}
}

func (s *MemoryStore) GetSnapshot(_ context.Context, asset vault.AssetID) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if balance, ok := s.snapshots[asset]; ok {
		return new(uint256.Int).Set(balance), nil
	}
	return new(uint256.Int), nil
}

func (s *MemoryStore) SetSnapshot(_ context.Context, asset vault.AssetID, balance *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[asset] = new(uint256.Int).Set(balance)
	s.updated[asset] = time.Now()
	return nil
}

func (s *MemoryStore) ListSnapshots(_ context.Context) ([]SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]SnapshotRecord, 0, len(s.snapshots))
	for asset, balance := range s.snapshots {
		records = append(records, SnapshotRecord{
			Asset:     asset,
			Balance:   new(uint256.Int).Set(balance),
			UpdatedAt: s.updated[asset],
		})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Asset < records[j].Asset
	})
	return records, nil
}

// Len returns the number of stored snapshots.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}
