package vault

import (
	"context"

	"github.com/holiman/uint256"

	"TokenVault/internal/event"
)

// Ledger is the asset ledger the vault's pool account lives on. The ledger
// owns fund-sufficiency rules; Transfer fails when from holds less than
// amount.
type Ledger interface {
	BalanceOf(ctx context.Context, holder Address, asset AssetID) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to Address, asset AssetID, amount *uint256.Int) error
}

// SnapshotStore persists the last observed pool balance per asset.
// GetSnapshot returns zero for assets that were never written.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, asset AssetID) (*uint256.Int, error)
	SetSnapshot(ctx context.Context, asset AssetID, balance *uint256.Int) error
}

// RoleChecker answers capability checks for caller addresses.
type RoleChecker interface {
	HasRole(ctx context.Context, caller Address, role Role) (bool, error)
}

// CallerResolver reports the identity a request executes as.
type CallerResolver interface {
	CurrentCaller(ctx context.Context) (Address, error)
}

// EventSink receives operation events after their state change committed.
// A failed Publish is logged by the engine and never aborts the operation.
type EventSink interface {
	Publish(ctx context.Context, env event.Envelope) error
}
