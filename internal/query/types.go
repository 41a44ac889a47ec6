package query

import "time"

// BalanceResponse reports the pool's live ledger balance for one asset
// next to the stored snapshot. Balances travel as decimal strings so
// 256-bit values survive JSON intact.
type BalanceResponse struct {
	AssetID     string `json:"asset_id"`
	LiveBalance string `json:"live_balance"`
	Snapshot    string `json:"snapshot"`

	// Pending is |live - snapshot|: the amount a reconcile would credit,
	// or, when WouldUnderflow is set, the size of the deficit.
	Pending        string `json:"pending"`
	WouldUnderflow bool   `json:"would_underflow"`

	AsOf time.Time `json:"as_of"`
}

// SnapshotEntry is one stored snapshot in a listing.
type SnapshotEntry struct {
	AssetID   string    `json:"asset_id"`
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}
