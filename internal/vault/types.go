package vault

// AssetID names a token tracked by the vault. The vault treats it as an
// opaque key; the asset ledger gives it meaning.
type AssetID string

// Address identifies an account on the asset ledger, including the vault's
// own pool account.
type Address string

// Role names a capability granted to an address.
type Role string

const (
	// RoleController authorizes reconciliation, snapshot syncs, and
	// outbound transfers.
	RoleController Role = "controller"
)
