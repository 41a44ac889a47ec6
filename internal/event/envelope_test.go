package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"TokenVault/internal/event"

	"github.com/holiman/uint256"
)

func TestKind_JSONRoundTrip(t *testing.T) {
	for _, kind := range []event.Kind{
		event.KindTransferInRecorded,
		event.KindBalanceSynced,
		event.KindTransferOut,
	} {
		data, err := json.Marshal(kind)
		if err != nil {
			t.Fatalf("marshal %v: %v", kind, err)
		}
		var back event.Kind
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != kind {
			t.Errorf("round trip: got %v, want %v", back, kind)
		}
	}
}

func TestKind_UnknownRejected(t *testing.T) {
	var k event.Kind
	if err := json.Unmarshal([]byte(`"position_opened"`), &k); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestNewTransferInRecorded_Fields(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := event.NewTransferInRecorded("usdc", "ctrl-1", uint256.NewInt(250), uint256.NewInt(1250), at)

	if env.Kind != event.KindTransferInRecorded {
		t.Errorf("kind: got %v", env.Kind)
	}
	if env.Received != "250" || env.Snapshot != "1250" {
		t.Errorf("amounts: got received=%q snapshot=%q", env.Received, env.Snapshot)
	}
	if env.EventID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("event ID should be assigned")
	}
}

func TestNewTransferOut_NoSnapshot(t *testing.T) {
	env := event.NewTransferOut("usdc", "ctrl-1", "bob", uint256.NewInt(40), time.Now())
	if env.Snapshot != "" {
		t.Errorf("transfer_out must not carry a snapshot, got %q", env.Snapshot)
	}
	if env.Recipient != "bob" || env.Amount != "40" {
		t.Errorf("got recipient=%q amount=%q", env.Recipient, env.Amount)
	}
}

func TestDigest_Deterministic(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	env := event.NewBalanceSynced("usdc", "ctrl-1", uint256.NewInt(1000), at)

	d1 := env.Digest()
	d2 := env.Digest()
	if d1 != d2 {
		t.Error("digest of the same envelope should be stable")
	}

	other := env
	other.Snapshot = "1001"
	if other.Digest() == d1 {
		t.Error("digest should change when a field changes")
	}
}
