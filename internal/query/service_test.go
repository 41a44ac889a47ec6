package query_test

import (
	"context"
	"testing"

	"github.com/holiman/uint256"

	"TokenVault/internal/ledger"
	"TokenVault/internal/persistence"
	"TokenVault/internal/query"
	"TokenVault/internal/vault"
)

const (
	poolAddr = vault.Address("0xPOOL")
	usdc     = vault.AssetID("USDC")
	wbtc     = vault.AssetID("WBTC")
)

func newTestService(t *testing.T) (*query.Service, *ledger.MemoryLedger, *persistence.MemoryStore) {
	t.Helper()
	lgr := ledger.NewMemoryLedger()
	store := persistence.NewMemoryStore()
	return query.NewService(lgr, store, poolAddr, nil), lgr, store
}

// ============================================================================
// Test: GetBalance
// ============================================================================

func TestGetBalance_ColdState(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.GetBalance(context.Background(), usdc)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if resp.LiveBalance != "0" || resp.Snapshot != "0" || resp.Pending != "0" {
		t.Errorf("cold state: got live=%s snapshot=%s pending=%s, want all 0",
			resp.LiveBalance, resp.Snapshot, resp.Pending)
	}
	if resp.WouldUnderflow {
		t.Error("cold state should not report underflow")
	}
	if resp.AsOf.IsZero() {
		t.Error("AsOf should be populated")
	}
}

func TestGetBalance_SurplusIsPending(t *testing.T) {
	svc, lgr, store := newTestService(t)
	ctx := context.Background()

	lgr.Credit(poolAddr, usdc, uint256.NewInt(1250))
	store.SetSnapshot(ctx, usdc, uint256.NewInt(1000))

	resp, err := svc.GetBalance(ctx, usdc)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if resp.LiveBalance != "1250" {
		t.Errorf("live: got %s, want 1250", resp.LiveBalance)
	}
	if resp.Snapshot != "1000" {
		t.Errorf("snapshot: got %s, want 1000", resp.Snapshot)
	}
	if resp.Pending != "250" {
		t.Errorf("pending: got %s, want 250", resp.Pending)
	}
	if resp.WouldUnderflow {
		t.Error("surplus should not report underflow")
	}
}

func TestGetBalance_DeficitFlagsUnderflow(t *testing.T) {
	svc, lgr, store := newTestService(t)
	ctx := context.Background()

	lgr.Credit(poolAddr, usdc, uint256.NewInt(900))
	store.SetSnapshot(ctx, usdc, uint256.NewInt(1000))

	resp, err := svc.GetBalance(ctx, usdc)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if !resp.WouldUnderflow {
		t.Error("live below snapshot should report underflow")
	}
	if resp.Pending != "100" {
		t.Errorf("pending: got %s, want 100", resp.Pending)
	}
}

func TestGetBalance_FullRange(t *testing.T) {
	svc, lgr, _ := newTestService(t)

	max := new(uint256.Int).Sub(new(uint256.Int), uint256.NewInt(1)) // 2^256 - 1
	lgr.Credit(poolAddr, usdc, max)

	resp, err := svc.GetBalance(context.Background(), usdc)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if resp.LiveBalance != max.Dec() {
		t.Errorf("live: got %s, want %s", resp.LiveBalance, max.Dec())
	}
	if resp.Pending != max.Dec() {
		t.Errorf("pending: got %s, want %s", resp.Pending, max.Dec())
	}
}

func TestGetBalance_IgnoresOtherHolders(t *testing.T) {
	svc, lgr, _ := newTestService(t)

	lgr.Credit(vault.Address("0xSOMEONE"), usdc, uint256.NewInt(5000))
	lgr.Credit(poolAddr, usdc, uint256.NewInt(70))

	resp, err := svc.GetBalance(context.Background(), usdc)
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	if resp.LiveBalance != "70" {
		t.Errorf("live: got %s, want 70 (pool holdings only)", resp.LiveBalance)
	}
}

// ============================================================================
// Test: ListSnapshots
// ============================================================================

func TestListSnapshots_Empty(t *testing.T) {
	svc, _, _ := newTestService(t)

	entries, err := svc.ListSnapshots(context.Background())
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestListSnapshots_SortedDecimalStrings(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	store.SetSnapshot(ctx, wbtc, uint256.NewInt(21_000_000))
	store.SetSnapshot(ctx, usdc, uint256.NewInt(1_000_000))

	entries, err := svc.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].AssetID != "USDC" || entries[1].AssetID != "WBTC" {
		t.Errorf("not sorted by asset: got [%s %s]", entries[0].AssetID, entries[1].AssetID)
	}
	if entries[0].Balance != "1000000" {
		t.Errorf("USDC balance: got %s, want 1000000", entries[0].Balance)
	}
	if entries[1].UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be populated")
	}
}
