package query

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"TokenVault/internal/math"
	"TokenVault/internal/observability"
	"TokenVault/internal/persistence"
	"TokenVault/internal/vault"
)

// SnapshotSource is the read side of the snapshot store.
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, asset vault.AssetID) (*uint256.Int, error)
	ListSnapshots(ctx context.Context) ([]persistence.SnapshotRecord, error)
}

// Service serves read-only vault state: the pool's live ledger balance
// next to the stored snapshot, and the full snapshot listing. Reads take
// no locks and may race in-flight operations; responses carry AsOf so
// callers can reason about freshness.
type Service struct {
	ledger  vault.Ledger
	store   SnapshotSource
	pool    vault.Address
	metrics *observability.Metrics
	now     func() time.Time
}

func NewService(ledger vault.Ledger, store SnapshotSource, pool vault.Address, metrics *observability.Metrics) *Service {
	return &Service{
		ledger:  ledger,
		store:   store,
		pool:    pool,
		metrics: metrics,
		now:     time.Now,
	}
}

// GetBalance reads the live balance and stored snapshot for one asset and
// derives what a reconcile would see: Pending is |live - snapshot|, and
// WouldUnderflow flags live < snapshot.
func (s *Service) GetBalance(ctx context.Context, asset vault.AssetID) (resp *BalanceResponse, err error) {
	defer s.observe("balance", time.Now(), &err)

	live, err := s.ledger.BalanceOf(ctx, s.pool, asset)
	if err != nil {
		return nil, fmt.Errorf("live balance %s: %w", asset, err)
	}
	stored, err := s.store.GetSnapshot(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", asset, err)
	}

	return &BalanceResponse{
		AssetID:        string(asset),
		LiveBalance:    live.Dec(),
		Snapshot:       stored.Dec(),
		Pending:        math.AbsDiff(live, stored).Dec(),
		WouldUnderflow: live.Lt(stored),
		AsOf:           s.now(),
	}, nil
}

// ListSnapshots returns every stored snapshot ordered by asset id.
func (s *Service) ListSnapshots(ctx context.Context) (entries []SnapshotEntry, err error) {
	defer s.observe("snapshots", time.Now(), &err)

	records, err := s.store.ListSnapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	entries = make([]SnapshotEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, SnapshotEntry{
			AssetID:   string(rec.Asset),
			Balance:   rec.Balance.Dec(),
			UpdatedAt: rec.UpdatedAt,
		})
	}
	return entries, nil
}

func (s *Service) observe(endpoint string, start time.Time, errp *error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if *errp != nil {
		status = "error"
	}
	s.metrics.QueryRequests.WithLabelValues(endpoint, status).Inc()
	s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
