package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/holiman/uint256"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"TokenVault/internal/math"
	"TokenVault/internal/observability"
	"TokenVault/internal/query"
	"TokenVault/internal/vault"
)

// Operation names used as replay-cache namespaces.
const (
	opReconcile = "reconcile"
	opSync      = "sync"
	opWithdraw  = "withdraw"
)

// Gateway is the vault's HTTP/JSON surface. Routes are registered on a
// grpc-gateway runtime.ServeMux; handler errors are status.Error values,
// so the gateway's error handler renders gRPC codes as HTTP statuses.
type Gateway struct {
	httpAddr   string
	mux        *runtime.ServeMux
	handler    http.Handler
	httpServer *http.Server

	engine  *vault.Engine
	queries *query.Service
	replays *vault.ReplayCache
	health  *observability.HealthChecker
}

// GatewayDeps holds everything the HTTP surface needs. Replays and Health
// may be nil; the corresponding features are simply off.
type GatewayDeps struct {
	Engine  *vault.Engine
	Queries *query.Service
	Replays *vault.ReplayCache
	Health  *observability.HealthChecker
}

// NewGateway builds the routed HTTP surface.
func NewGateway(httpAddr string, deps *GatewayDeps) (*Gateway, error) {
	g := &Gateway{
		httpAddr: httpAddr,
		mux:      runtime.NewServeMux(),
		engine:   deps.Engine,
		queries:  deps.Queries,
		replays:  deps.Replays,
		health:   deps.Health,
	}

	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/vault/{asset}/reconcile", g.handleReconcile},
		{http.MethodPost, "/v1/vault/{asset}/sync", g.handleSync},
		{http.MethodPost, "/v1/vault/{asset}/withdrawals", g.handleWithdraw},
		{http.MethodGet, "/v1/vault/{asset}/balance", g.handleBalance},
		{http.MethodGet, "/v1/vault/snapshots", g.handleSnapshots},
	}
	for _, route := range routes {
		if err := g.mux.HandlePath(route.method, route.pattern, route.handler); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", route.method, route.pattern, err)
		}
	}

	httpMux := http.NewServeMux()
	if g.health != nil {
		httpMux.HandleFunc("/healthz", g.health.LivenessHandler)
		httpMux.HandleFunc("/readyz", g.health.ReadinessHandler)
	}
	httpMux.Handle("/", g.mux)
	g.handler = httpMux

	return g, nil
}

// Handler exposes the routed surface for tests and embedding.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Start serves HTTP (blocking).
func (g *Gateway) Start(ctx context.Context) error {
	g.httpServer = &http.Server{
		Addr:    g.httpAddr,
		Handler: g.handler,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP gateway shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		g.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP gateway listening on %s", g.httpAddr)
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Vault operation handlers
// ============================================================================

type reconcileResponse struct {
	AssetID     string `json:"asset_id"`
	Received    string `json:"received"`
	OperationID string `json:"operation_id"`
}

func (g *Gateway) handleReconcile(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset, err := assetParam(pathParams)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	ctx := callerContext(r)
	caller, err := g.engine.Authorize(ctx)
	if err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	digest := requestDigest(string(asset))
	out, replayed, err := g.replay(opReconcile, caller, digest, r)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if replayed {
		g.writeJSON(w, reconcileOutcome(out))
		return
	}

	received, err := g.engine.RecordTransferIn(ctx, asset)
	if err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	out = vault.OpOutcome{
		OperationID:   uuid.New(),
		Asset:         asset,
		Received:      received.Dec(),
		RequestDigest: digest,
	}
	g.record(opReconcile, caller, r, out)
	g.writeJSON(w, reconcileOutcome(out))
}

func reconcileOutcome(out vault.OpOutcome) reconcileResponse {
	return reconcileResponse{
		AssetID:     string(out.Asset),
		Received:    out.Received,
		OperationID: out.OperationID.String(),
	}
}

type syncResponse struct {
	AssetID     string `json:"asset_id"`
	Snapshot    string `json:"snapshot"`
	OperationID string `json:"operation_id"`
}

func (g *Gateway) handleSync(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset, err := assetParam(pathParams)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	ctx := callerContext(r)
	caller, err := g.engine.Authorize(ctx)
	if err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	digest := requestDigest(string(asset))
	out, replayed, err := g.replay(opSync, caller, digest, r)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if replayed {
		g.writeJSON(w, syncOutcome(out))
		return
	}

	snapshot, err := g.engine.SyncBalance(ctx, asset)
	if err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	out = vault.OpOutcome{
		OperationID:   uuid.New(),
		Asset:         asset,
		Snapshot:      snapshot.Dec(),
		RequestDigest: digest,
	}
	g.record(opSync, caller, r, out)
	g.writeJSON(w, syncOutcome(out))
}

func syncOutcome(out vault.OpOutcome) syncResponse {
	return syncResponse{
		AssetID:     string(out.Asset),
		Snapshot:    out.Snapshot,
		OperationID: out.OperationID.String(),
	}
}

type withdrawalRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type withdrawalResponse struct {
	AssetID     string `json:"asset_id"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	OperationID string `json:"operation_id"`
}

func (g *Gateway) handleWithdraw(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset, err := assetParam(pathParams)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	ctx := callerContext(r)
	caller, err := g.engine.Authorize(ctx)
	if err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, r, status.Errorf(codes.InvalidArgument, "parse request body: %v", err))
		return
	}
	recipient := strings.TrimSpace(req.Recipient)
	if recipient == "" {
		g.writeError(w, r, status.Error(codes.InvalidArgument, "recipient is required"))
		return
	}
	amount, err := uint256.FromDecimal(req.Amount)
	if err != nil {
		g.writeError(w, r, status.Errorf(codes.InvalidArgument, "invalid amount %q: %v", req.Amount, err))
		return
	}

	digest := requestDigest(string(asset), recipient, amount.Dec())
	out, replayed, err := g.replay(opWithdraw, caller, digest, r)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	if replayed {
		g.writeJSON(w, withdrawalOutcome(out))
		return
	}

	if err := g.engine.TransferOut(ctx, asset, vault.Address(recipient), amount); err != nil {
		g.writeError(w, r, asStatus(err))
		return
	}

	out = vault.OpOutcome{
		OperationID:   uuid.New(),
		Asset:         asset,
		Recipient:     vault.Address(recipient),
		Amount:        amount.Dec(),
		RequestDigest: digest,
	}
	g.record(opWithdraw, caller, r, out)
	g.writeJSON(w, withdrawalOutcome(out))
}

func withdrawalOutcome(out vault.OpOutcome) withdrawalResponse {
	return withdrawalResponse{
		AssetID:     string(out.Asset),
		Recipient:   string(out.Recipient),
		Amount:      out.Amount,
		OperationID: out.OperationID.String(),
	}
}

// ============================================================================
// Query handlers
// ============================================================================

func (g *Gateway) handleBalance(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	asset, err := assetParam(pathParams)
	if err != nil {
		g.writeError(w, r, err)
		return
	}

	resp, err := g.queries.GetBalance(r.Context(), asset)
	if err != nil {
		g.writeError(w, r, status.Errorf(codes.Internal, "get balance: %v", err))
		return
	}
	g.writeJSON(w, resp)
}

func (g *Gateway) handleSnapshots(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	entries, err := g.queries.ListSnapshots(r.Context())
	if err != nil {
		g.writeError(w, r, status.Errorf(codes.Internal, "list snapshots: %v", err))
		return
	}
	g.writeJSON(w, map[string]interface{}{"snapshots": entries})
}

// ============================================================================
// Helpers
// ============================================================================

// callerContext injects the X-Vault-Caller header, when present, as the
// request's caller identity. Authorization verdicts stay with the engine:
// mutating handlers pass the context to Engine.Authorize before touching
// the replay cache, so a recorded outcome is never served to a caller the
// engine would reject.
func callerContext(r *http.Request) context.Context {
	ctx := r.Context()
	if caller := r.Header.Get("X-Vault-Caller"); caller != "" {
		ctx = vault.WithCaller(ctx, vault.Address(caller))
	}
	return ctx
}

func assetParam(pathParams map[string]string) (vault.AssetID, error) {
	asset := strings.TrimSpace(pathParams["asset"])
	if asset == "" {
		return "", status.Error(codes.InvalidArgument, "asset is required")
	}
	return vault.AssetID(asset), nil
}

// replay answers a request from the cache when this caller already used
// the idempotency key for this operation. A hit whose recorded digest
// differs from the incoming request is a key reuse and comes back as an
// InvalidArgument error instead of an outcome.
func (g *Gateway) replay(op string, caller vault.Address, digest string, r *http.Request) (vault.OpOutcome, bool, error) {
	if g.replays == nil {
		return vault.OpOutcome{}, false, nil
	}
	key := r.Header.Get("X-Idempotency-Key")
	if key == "" {
		return vault.OpOutcome{}, false, nil
	}
	out, ok := g.replays.Get(op, scopedKey(caller, key))
	if !ok {
		return vault.OpOutcome{}, false, nil
	}
	if out.RequestDigest != digest {
		return vault.OpOutcome{}, false, status.Error(codes.InvalidArgument, "idempotency key reused for a different request")
	}
	return out, true, nil
}

func (g *Gateway) record(op string, caller vault.Address, r *http.Request, out vault.OpOutcome) {
	if g.replays == nil {
		return
	}
	key := r.Header.Get("X-Idempotency-Key")
	if key == "" {
		return
	}
	g.replays.Put(op, scopedKey(caller, key), out)
}

// scopedKey qualifies the client's idempotency key by caller identity, so
// entries recorded for one caller never answer another's requests.
func scopedKey(caller vault.Address, key string) string {
	return fmt.Sprintf("%s/%s", caller, key)
}

// requestDigest fingerprints the request parameters bound to an
// idempotency key. Fields are length-prefixed before hashing so distinct
// requests never share an encoding.
func requestDigest(fields ...string) string {
	var buf bytes.Buffer
	for _, f := range fields {
		var size [8]byte
		binary.LittleEndian.PutUint64(size[:], uint64(len(f)))
		buf.Write(size[:])
		buf.WriteString(f)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// asStatus maps engine errors onto gRPC status codes.
func asStatus(err error) error {
	switch {
	case errors.Is(err, vault.ErrMissingCaller):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, vault.ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, vault.ErrSelfTransfer):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, math.ErrUnderflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, math.ErrOverflow):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func (g *Gateway) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN: write response: %v", err)
	}
}

func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	_, outbound := runtime.MarshalerForRequest(g.mux, r)
	runtime.DefaultHTTPErrorHandler(r.Context(), g.mux, outbound, w, r, err)
}
