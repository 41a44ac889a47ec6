package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// Kind discriminates vault operation events.
type Kind int32

const (
	KindUnknown Kind = iota
	KindTransferInRecorded
	KindBalanceSynced
	KindTransferOut
)

func (k Kind) String() string {
	switch k {
	case KindTransferInRecorded:
		return "transfer_in_recorded"
	case KindBalanceSynced:
		return "balance_synced"
	case KindTransferOut:
		return "transfer_out"
	default:
		return "unknown"
	}
}

// KindFromString maps a wire name back to its Kind. Unrecognized names
// yield KindUnknown.
func KindFromString(s string) Kind {
	switch s {
	case "transfer_in_recorded":
		return KindTransferInRecorded
	case "balance_synced":
		return KindBalanceSynced
	case "transfer_out":
		return KindTransferOut
	default:
		return KindUnknown
	}
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind := KindFromString(s)
	if kind == KindUnknown {
		return fmt.Errorf("unknown event kind %q", s)
	}
	*k = kind
	return nil
}

// Envelope is the wire record for one committed vault operation. Amounts
// travel as decimal strings so 256-bit values survive JSON intact.
type Envelope struct {
	EventID   uuid.UUID `json:"event_id"`
	Kind      Kind      `json:"kind"`
	Asset     string    `json:"asset_id"`
	Caller    string    `json:"caller"`
	Recipient string    `json:"recipient,omitempty"`
	Received  string    `json:"received,omitempty"`
	Snapshot  string    `json:"snapshot,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransferInRecorded reports newly detected inbound funds: the delta
// credited and the snapshot written alongside it.
func NewTransferInRecorded(asset, caller string, received, snapshot *uint256.Int, at time.Time) Envelope {
	return Envelope{
		EventID:   uuid.New(),
		Kind:      KindTransferInRecorded,
		Asset:     asset,
		Caller:    caller,
		Received:  received.Dec(),
		Snapshot:  snapshot.Dec(),
		Timestamp: at,
	}
}

// NewBalanceSynced reports an unconditional snapshot overwrite.
func NewBalanceSynced(asset, caller string, snapshot *uint256.Int, at time.Time) Envelope {
	return Envelope{
		EventID:   uuid.New(),
		Kind:      KindBalanceSynced,
		Asset:     asset,
		Caller:    caller,
		Snapshot:  snapshot.Dec(),
		Timestamp: at,
	}
}

// NewTransferOut reports funds moved out of the pool. The snapshot is
// deliberately absent: outbound transfers do not touch it.
func NewTransferOut(asset, caller, recipient string, amount *uint256.Int, at time.Time) Envelope {
	return Envelope{
		EventID:   uuid.New(),
		Kind:      KindTransferOut,
		Asset:     asset,
		Caller:    caller,
		Recipient: recipient,
		Amount:    amount.Dec(),
		Timestamp: at,
	}
}
