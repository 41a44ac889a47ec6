package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"TokenVault/internal/observability"
	"TokenVault/internal/vault"
)

// SnapshotRecord is one stored balance snapshot.
type SnapshotRecord struct {
	Asset     vault.AssetID
	Balance   *uint256.Int
	UpdatedAt time.Time
}

// PostgresStore persists balance snapshots in vault.balance_snapshots.
// Balances cross the driver as decimal strings: NUMERIC(78,0) covers the
// full 256-bit range and round-trips losslessly as text.
type PostgresStore struct {
	db      *sql.DB
	metrics *observability.Metrics
}

func NewPostgresStore(db *sql.DB, metrics *observability.Metrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: metrics}
}

// GetSnapshot returns the stored snapshot for asset. Assets that were
// never written read as zero.
func (s *PostgresStore) GetSnapshot(ctx context.Context, asset vault.AssetID) (*uint256.Int, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT balance FROM vault.balance_snapshots WHERE asset_id = $1
	`, string(asset)).Scan(&raw)
	if err == sql.ErrNoRows {
		s.observeRead(nil)
		return new(uint256.Int), nil
	}
	if err != nil {
		s.observeRead(err)
		return nil, fmt.Errorf("read snapshot %s: %w", asset, err)
	}

	balance, err := uint256.FromDecimal(raw)
	if err != nil {
		s.observeRead(err)
		return nil, fmt.Errorf("decode snapshot %s: %w", asset, err)
	}
	s.observeRead(nil)
	return balance, nil
}

// SetSnapshot writes the snapshot for asset, inserting or overwriting.
func (s *PostgresStore) SetSnapshot(ctx context.Context, asset vault.AssetID, balance *uint256.Int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vault.balance_snapshots (asset_id, balance, updated_at)
		VALUES ($1, $2::NUMERIC, NOW())
		ON CONFLICT (asset_id) DO UPDATE
		SET balance = EXCLUDED.balance, updated_at = NOW()
	`, string(asset), balance.Dec())
	s.observeWrite(err)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", asset, err)
	}
	return nil
}

// ListSnapshots returns every stored snapshot ordered by asset id.
func (s *PostgresStore) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, balance, updated_at
		FROM vault.balance_snapshots
		ORDER BY asset_id
	`)
	if err != nil {
		s.observeRead(err)
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var records []SnapshotRecord
	for rows.Next() {
		var (
			asset string
			raw   string
			at    time.Time
		)
		if err := rows.Scan(&asset, &raw, &at); err != nil {
			s.observeRead(err)
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		balance, err := uint256.FromDecimal(raw)
		if err != nil {
			s.observeRead(err)
			return nil, fmt.Errorf("decode snapshot %s: %w", asset, err)
		}
		records = append(records, SnapshotRecord{
			Asset:     vault.AssetID(asset),
			Balance:   balance,
			UpdatedAt: at,
		})
	}
	if err := rows.Err(); err != nil {
		s.observeRead(err)
		return nil, err
	}
	s.observeRead(nil)
	return records, nil
}

func (s *PostgresStore) observeRead(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreReads.WithLabelValues(resultLabel(err)).Inc()
}

func (s *PostgresStore) observeWrite(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.StoreWrites.WithLabelValues(resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
