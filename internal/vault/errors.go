package vault

import "errors"

var (
	// ErrUnauthorized rejects operations from callers without the
	// controller role. No state is touched before this check passes.
	ErrUnauthorized = errors.New("caller lacks controller role")

	// ErrSelfTransfer rejects outbound transfers whose recipient is the
	// vault's own pool address.
	ErrSelfTransfer = errors.New("self transfer not supported")

	// ErrMissingCaller means the request context carries no caller
	// identity at all.
	ErrMissingCaller = errors.New("no caller identity in context")
)
