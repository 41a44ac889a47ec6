package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"TokenVault/internal/vault"
)

// Operation names carried by OpRequest. They mirror the subject suffix.
const (
	OpReconcile = "reconcile"
	OpSync      = "sync"
)

// OpRequest is a validated keeper request, ready for the subscriber to
// hand to the engine.
type OpRequest struct {
	Op    string
	Asset vault.AssetID
}

// opRequestJSON is the wire payload on the ops subjects. Field names use
// snake_case to match upstream producers.
type opRequestJSON struct {
	AssetID string `json:"asset_id"`
}

// ParseOpRequest converts an ops message (subject + JSON bytes) into an
// OpRequest. The subject selects the operation; the payload names the
// asset.
func ParseOpRequest(subject string, data []byte) (OpRequest, error) {
	var op string
	switch subject {
	case "vault.ops.reconcile":
		op = OpReconcile
	case "vault.ops.sync":
		op = OpSync
	default:
		return OpRequest{}, fmt.Errorf("unknown ops subject: %s", subject)
	}

	var j opRequestJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return OpRequest{}, fmt.Errorf("parse %s request: %w", op, err)
	}

	asset := strings.TrimSpace(j.AssetID)
	if asset == "" {
		return OpRequest{}, fmt.Errorf("parse %s request: asset_id is required", op)
	}

	return OpRequest{Op: op, Asset: vault.AssetID(asset)}, nil
}
