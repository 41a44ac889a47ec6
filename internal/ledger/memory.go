// Package ledger provides the in-process asset ledger backing the vault in
// embedded mode and in tests. Production deployments point the vault at an
// external ledger exposing the same interface.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"TokenVault/internal/math"
	"TokenVault/internal/vault"
)

// Holding identifies one holder's balance of one asset.
type Holding struct {
	Holder vault.Address
	Asset  vault.AssetID
}

// MemoryLedger is a mutex-guarded in-process asset ledger. Transfers are
// all-or-nothing: both sides are checked before either balance moves, so a
// failed transfer leaves every account untouched.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[Holding]*uint256.Int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances: make(map[Holding]*uint256.Int),
	}
}

// BalanceOf returns holder's balance of asset. Accounts that were never
// credited hold zero. The returned value is a copy.
func (l *MemoryLedger) BalanceOf(_ context.Context, holder vault.Address, asset vault.AssetID) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.balance(Holding{Holder: holder, Asset: asset})), nil
}

// Transfer moves amount of asset from one holder to another. It fails with
// an ErrUnderflow-wrapping error when from holds less than amount, and
// moves nothing on any failure.
func (l *MemoryLedger) Transfer(_ context.Context, from, to vault.Address, asset vault.AssetID, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromKey := Holding{Holder: from, Asset: asset}
	fromBal := l.balance(fromKey)
	newFrom, err := math.CheckedSub(fromBal, amount)
	if err != nil {
		return fmt.Errorf("transfer %s %s from %s: balance %s: %w", amount, asset, from, fromBal, err)
	}

	if from == to {
		// Same account on both sides nets to zero once sufficiency holds.
		return nil
	}

	toKey := Holding{Holder: to, Asset: asset}
	newTo, carry := new(uint256.Int).AddOverflow(l.balance(toKey), amount)
	if carry {
		return fmt.Errorf("transfer %s %s to %s: %w", amount, asset, to, math.ErrOverflow)
	}

	l.balances[fromKey] = newFrom
	l.balances[toKey] = newTo
	return nil
}

// Credit mints amount into holder's balance of asset. Used to seed genesis
// balances at boot and to model externally-arriving funds in tests.
func (l *MemoryLedger) Credit(holder vault.Address, asset vault.AssetID, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Holding{Holder: holder, Asset: asset}
	sum, carry := new(uint256.Int).AddOverflow(l.balance(key), amount)
	if carry {
		return fmt.Errorf("credit %s %s to %s: %w", amount, asset, holder, math.ErrOverflow)
	}
	l.balances[key] = sum
	return nil
}

// Debit burns amount from holder's balance of asset. It models funds
// leaving an account outside the vault's transfer path, which is exactly
// the condition reconciliation must detect.
func (l *MemoryLedger) Debit(holder vault.Address, asset vault.AssetID, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Holding{Holder: holder, Asset: asset}
	cur := l.balance(key)
	diff, err := math.CheckedSub(cur, amount)
	if err != nil {
		return fmt.Errorf("debit %s %s from %s: balance %s: %w", amount, asset, holder, cur, err)
	}
	l.balances[key] = diff
	return nil
}

// Snapshot returns a copy of every balance for inspection.
func (l *MemoryLedger) Snapshot() map[Holding]*uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snapshot := make(map[Holding]*uint256.Int, len(l.balances))
	for k, v := range l.balances {
		snapshot[k] = new(uint256.Int).Set(v)
	}
	return snapshot
}

// balance returns the stored balance for key, or a shared zero when the
// account was never touched. Callers must not mutate the result.
func (l *MemoryLedger) balance(key Holding) *uint256.Int {
	if b, ok := l.balances[key]; ok {
		return b
	}
	return zeroBalance
}

var zeroBalance = uint256.NewInt(0)
