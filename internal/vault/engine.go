package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"TokenVault/internal/event"
	"TokenVault/internal/math"
	"TokenVault/internal/observability"
)

const (
	opRecordTransferIn = "record_transfer_in"
	opSyncBalance      = "sync_balance"
	opTransferOut      = "transfer_out"
	opAuthorize        = "authorize"
)

// EngineDeps carries everything an Engine needs. Pool, Ledger, Store,
// Roles, and Callers are required; the rest may be left zero.
type EngineDeps struct {
	// Pool is the vault's own account on the asset ledger.
	Pool Address

	Ledger  Ledger
	Store   SnapshotStore
	Roles   RoleChecker
	Callers CallerResolver

	// Events receives operation events after commit. Nil disables publishing.
	Events EventSink

	Metrics *observability.Metrics
	Logger  zerolog.Logger

	// Clock stamps event timestamps. Nil means time.Now.
	Clock func() time.Time
}

// Engine reconciles the pool's stored balance snapshots against the asset
// ledger and moves funds out of the pool.
//
// A single mutex serializes all operations, so each call sees a consistent
// ledger/store pair and writes its snapshot without interleaving. Within a
// call, every read and every piece of checked arithmetic happens before the
// snapshot write. An error at any point leaves the store exactly as it was.
type Engine struct {
	mu      sync.Mutex
	pool    Address
	ledger  Ledger
	store   SnapshotStore
	roles   RoleChecker
	callers CallerResolver
	events  EventSink
	metrics *observability.Metrics
	logger  zerolog.Logger
	clock   func() time.Time
}

func NewEngine(deps EngineDeps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		pool:    deps.Pool,
		ledger:  deps.Ledger,
		store:   deps.Store,
		roles:   deps.Roles,
		callers: deps.Callers,
		events:  deps.Events,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		clock:   clock,
	}
}

// Pool returns the vault's own ledger address.
func (e *Engine) Pool() Address {
	return e.pool
}

// Authorize resolves the caller bound to ctx and verifies it holds the
// controller role, without running an operation. Transports call it before
// serving a recorded outcome so a replayed request passes the same role
// check as a fresh one.
func (e *Engine) Authorize(ctx context.Context) (Address, error) {
	return e.requireController(ctx, opAuthorize)
}

// RecordTransferIn detects funds that arrived on the ledger outside the
// vault's control. It returns the received delta, live minus stored, and
// advances the snapshot to the live balance. A live balance below the
// snapshot means funds left the pool improperly; the call fails with an
// ErrUnderflow-wrapped error and the snapshot keeps its old value.
func (e *Engine) RecordTransferIn(ctx context.Context, asset AssetID) (received *uint256.Int, err error) {
	defer e.observe(opRecordTransferIn, time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()

	caller, err := e.requireController(ctx, opRecordTransferIn)
	if err != nil {
		return nil, err
	}

	live, err := e.ledger.BalanceOf(ctx, e.pool, asset)
	if err != nil {
		return nil, fmt.Errorf("read live balance for %s: %w", asset, err)
	}

	stored, err := e.store.GetSnapshot(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("read snapshot for %s: %w", asset, err)
	}

	received, err = math.CheckedSub(live, stored)
	if err != nil {
		if e.metrics != nil {
			e.metrics.ReconcileUnderflow.Inc()
		}
		return nil, fmt.Errorf("reconcile %s: live balance %s below snapshot %s: %w", asset, live, stored, err)
	}

	// The snapshot write is the only state change and comes last: if it
	// fails, the call reports an error and nothing has moved.
	if err := e.store.SetSnapshot(ctx, asset, live); err != nil {
		return nil, fmt.Errorf("write snapshot for %s: %w", asset, err)
	}

	e.logger.Info().
		Str("asset", string(asset)).
		Str("caller", string(caller)).
		Str("received", received.Dec()).
		Str("snapshot", live.Dec()).
		Msg("transfer in recorded")

	e.publish(ctx, event.NewTransferInRecorded(string(asset), string(caller), received, live, e.clock()))

	return received, nil
}

// SyncBalance overwrites the stored snapshot with the current live balance,
// regardless of which is larger, and returns the new snapshot. It is the
// recovery path after the ledger moved in ways RecordTransferIn rejects.
func (e *Engine) SyncBalance(ctx context.Context, asset AssetID) (snapshot *uint256.Int, err error) {
	defer e.observe(opSyncBalance, time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()

	caller, err := e.requireController(ctx, opSyncBalance)
	if err != nil {
		return nil, err
	}

	live, err := e.ledger.BalanceOf(ctx, e.pool, asset)
	if err != nil {
		return nil, fmt.Errorf("read live balance for %s: %w", asset, err)
	}

	if err := e.store.SetSnapshot(ctx, asset, live); err != nil {
		return nil, fmt.Errorf("write snapshot for %s: %w", asset, err)
	}

	e.logger.Info().
		Str("asset", string(asset)).
		Str("caller", string(caller)).
		Str("snapshot", live.Dec()).
		Msg("balance synced")

	e.publish(ctx, event.NewBalanceSynced(string(asset), string(caller), live, e.clock()))

	return live, nil
}

// TransferOut moves amount from the pool to recipient through the ledger.
// The ledger enforces fund sufficiency. The stored snapshot is deliberately
// not updated: it records the last observed balance, and callers resync
// explicitly when they need it current again.
func (e *Engine) TransferOut(ctx context.Context, asset AssetID, recipient Address, amount *uint256.Int) (err error) {
	defer e.observe(opTransferOut, time.Now(), &err)
	e.mu.Lock()
	defer e.mu.Unlock()

	caller, err := e.requireController(ctx, opTransferOut)
	if err != nil {
		return err
	}

	if recipient == e.pool {
		return fmt.Errorf("transfer out of %s to %s: %w", asset, recipient, ErrSelfTransfer)
	}

	if err := e.ledger.Transfer(ctx, e.pool, recipient, asset, amount); err != nil {
		return fmt.Errorf("transfer %s %s to %s: %w", amount, asset, recipient, err)
	}

	e.logger.Info().
		Str("asset", string(asset)).
		Str("caller", string(caller)).
		Str("recipient", string(recipient)).
		Str("amount", amount.Dec()).
		Msg("transfer out")

	e.publish(ctx, event.NewTransferOut(string(asset), string(caller), string(recipient), amount, e.clock()))

	return nil
}

func (e *Engine) requireController(ctx context.Context, op string) (Address, error) {
	caller, err := e.callers.CurrentCaller(ctx)
	if err != nil {
		return "", err
	}
	ok, err := e.roles.HasRole(ctx, caller, RoleController)
	if err != nil {
		return "", fmt.Errorf("check controller role for %s: %w", caller, err)
	}
	if !ok {
		if e.metrics != nil {
			e.metrics.Unauthorized.WithLabelValues(op).Inc()
		}
		return "", fmt.Errorf("%s by %s: %w", op, caller, ErrUnauthorized)
	}
	return caller, nil
}

func (e *Engine) publish(ctx context.Context, env event.Envelope) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(ctx, env); err != nil {
		e.logger.Warn().
			Err(err).
			Str("kind", env.Kind.String()).
			Str("asset", env.Asset).
			Msg("event publish failed")
	}
}

func (e *Engine) observe(op string, start time.Time, errp *error) {
	if e.metrics == nil {
		return
	}
	result := "ok"
	if *errp != nil {
		result = "error"
	}
	e.metrics.OpsTotal.WithLabelValues(op, result).Inc()
	e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
