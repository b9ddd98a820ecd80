package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"orbitalvault/core"
	"orbitalvault/core/events"
	"orbitalvault/core/types"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Server exposes a vault over a single-endpoint JSON-RPC surface, with the
// Prometheus scrape handler and the websocket event stream as side channels.
type Server struct {
	vault *core.Vault
	log   *slog.Logger
	hub   *eventHub

	authToken string
	limit     rate.Limit
	burst     int

	mu         sync.Mutex
	visitors   map[string]*rate.Limiter
	httpServer *http.Server
}

// Options configures the RPC surface.
type Options struct {
	// AuthToken guards mutating methods. Mutations are rejected until a
	// token is configured.
	AuthToken string
	// RateLimitPerSec and RateBurst throttle requests per client source.
	// A zero rate disables throttling.
	RateLimitPerSec float64
	RateBurst       int
	Logger          *slog.Logger
}

func NewServer(vault *core.Vault, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	burst := opts.RateBurst
	if opts.RateLimitPerSec > 0 && burst <= 0 {
		burst = 1
	}
	return &Server{
		vault:     vault,
		log:       logger,
		hub:       newEventHub(),
		authToken: strings.TrimSpace(opts.AuthToken),
		limit:     rate.Limit(opts.RateLimitPerSec),
		burst:     burst,
		visitors:  make(map[string]*rate.Limiter),
	}
}

// Events returns the emitter feeding the websocket stream. Wire it into the
// vault's emitter fanout so engine events reach subscribers.
func (s *Server) Events() events.Emitter { return s.hub }

// Handler assembles the HTTP surface: JSON-RPC at the root, metrics, the
// event stream and a liveness probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handle)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleEventsWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until Shutdown is called.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	s.log.Info("starting JSON-RPC server", "addr", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains the listener and closes every event subscriber.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.close()
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeVaultError reports a failed vault call. The message carries the
// sentinel text clients match on.
func writeVaultError(w http.ResponseWriter, id interface{}, err error) {
	writeError(w, http.StatusInternalServerError, id, codeServerError, err.Error(), nil)
}

// handle is the main request handler that routes to specific handlers.
func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}
	if !s.allowSource(clientSource(r)) {
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	switch req.Method {
	case "vault_initialize":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleInitialize(w, r, req)
	case "vault_stake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleStake(w, r, req)
	case "vault_unstake":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleUnstake(w, r, req)
	case "vault_unstakeReceipt":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleUnstakeReceipt(w, r, req)
	case "vault_claimRewards":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleClaimRewards(w, r, req)
	case "vault_depositAssets":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleDepositAssets(w, r, req)
	case "vault_swapFungibleForAssets":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSwapFungibleForAssets(w, r, req)
	case "vault_swapAssetsForFungible":
		if authErr := s.requireAuth(r); authErr != nil {
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return
		}
		s.handleSwapAssetsForFungible(w, r, req)
	case "vault_initialized":
		s.handleInitialized(w, r, req)
	case "vault_supply":
		s.handleSupply(w, r, req)
	case "vault_eligibility":
		s.handleEligibility(w, r, req)
	case "vault_stakedHeight":
		s.handleStakedHeight(w, r, req)
	case "vault_unstakeHeight":
		s.handleUnstakeHeight(w, r, req)
	case "vault_totalStakedBlocks":
		s.handleTotalStakedBlocks(w, r, req)
	case "vault_stakedIds":
		s.handleStakedIDs(w, r, req)
	case "vault_lockScript":
		s.handleLockScript(w, r, req)
	case "vault_originalByReceipt":
		s.handleOriginalByReceipt(w, r, req)
	case "vault_totals":
		s.handleTotals(w, r, req)
	case "vault_claimedAmount":
		s.handleClaimedAmount(w, r, req)
	case "vault_availableToClaim":
		s.handleAvailableToClaim(w, r, req)
	case "vault_claimTotals":
		s.handleClaimTotals(w, r, req)
	case "vault_poolState":
		s.handlePoolState(w, r, req)
	case "vault_poolSlot":
		s.handlePoolSlot(w, r, req)
	case "vault_query":
		s.handleQuery(w, r, req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method '%s' not found", req.Method), nil)
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.authToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

func (s *Server) allowSource(source string) bool {
	if s.limit <= 0 {
		return true
	}
	if source == "" {
		source = "unknown"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	limiter, ok := s.visitors[source]
	if !ok {
		limiter = rate.NewLimiter(s.limit, s.burst)
		s.visitors[source] = limiter
	}
	return limiter.Allow()
}

func clientSource(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			candidate := strings.TrimSpace(parts[0])
			if candidate != "" {
				return candidate
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) == 0 {
		return fmt.Errorf("params required")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}

// --- Mutating handlers ---

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if err := s.vault.Initialize(); err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, true)
}

func (s *Server) handleStake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params stakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	proof, err := params.lockProof()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	results, err := s.vault.Stake(ctx, proof)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	out := make([]StakeResult, len(results))
	for i, res := range results {
		out[i] = formatStakeResult(res)
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params unstakeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callParams.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.Unstake(ctx, id)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatUnstakeResult(result))
}

func (s *Server) handleUnstakeReceipt(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.UnstakeReceipt(ctx)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, formatUnstakeResult(result))
}

func (s *Server) handleClaimRewards(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callParams.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := parseAssets(params.Assets)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.ClaimRewards(ctx, ids)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	out := ClaimResult{Claims: make([]ClaimEntry, len(result.Claims)), Minted: decimalString(result.Minted)}
	for i, claim := range result.Claims {
		out.Claims[i] = ClaimEntry{Asset: claim.Asset.String(), Amount: decimalString(claim.Amount)}
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleDepositAssets(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.DepositAssets(ctx)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, DepositResult{
		FirstSlot: decimalString(result.FirstSlot),
		Count:     result.Count,
		Balance:   decimalString(result.Balance),
	})
}

func (s *Server) handleSwapFungibleForAssets(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.SwapFungibleForAssets(ctx)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	out := DispenseResult{
		Dispensed: make([]TransferResult, len(result.Dispensed)),
		Burned:    decimalString(result.Burned),
		Balance:   decimalString(result.Balance),
	}
	for i, transfer := range result.Dispensed {
		out.Dispensed[i] = formatTransfer(transfer)
	}
	if result.Change != nil {
		change := formatTransfer(*result.Change)
		out.Change = &change
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleSwapAssetsForFungible(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params callParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ctx, err := params.callContext()
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	result, err := s.vault.SwapAssetsForFungible(ctx)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AbsorbResult{
		Minted:    formatTransfer(result.Minted),
		FirstSlot: decimalString(result.FirstSlot),
		Count:     result.Count,
		Balance:   decimalString(result.Balance),
	})
}

// --- Read handlers ---

func (s *Server) handleInitialized(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	initialized, err := s.vault.Initialized()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, initialized)
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	name, err := s.vault.Name()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	symbol, err := s.vault.Symbol()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	issued, err := s.vault.IssuedSupply()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, SupplyResult{
		Name:         name,
		Symbol:       symbol,
		Issued:       decimalString(issued),
		MaxSupply:    decimalString(s.vault.MaxSupply()),
		ClaimCap:     decimalString(s.vault.ClaimCap()),
		ExchangeRate: decimalString(s.vault.ExchangeRate()),
	})
}

func (s *Server) handleEligibility(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params assetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	eligible, err := s.vault.Eligibility(id)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, EligibilityResult{Asset: id.String(), Eligible: eligible})
}

// assetValue serves the read methods that map one asset id to one numeric
// ledger fact.
func (s *Server) assetValue(w http.ResponseWriter, req *RPCRequest, read func(types.AssetID) (*big.Int, error)) {
	var params assetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := read(id)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AssetValueResult{Asset: id.String(), Value: decimalString(value)})
}

func (s *Server) handleStakedHeight(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetValue(w, req, s.vault.StakedHeight)
}

func (s *Server) handleUnstakeHeight(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetValue(w, req, s.vault.UnstakeHeight)
}

func (s *Server) handleTotalStakedBlocks(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetValue(w, req, s.vault.TotalStakedBlocks)
}

func (s *Server) handleClaimedAmount(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	s.assetValue(w, req, s.vault.ClaimedAmount)
}

func (s *Server) handleAvailableToClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params availableParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.vault.AvailableToClaim(id, params.Height)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, AssetValueResult{Asset: id.String(), Value: decimalString(amount)})
}

func (s *Server) handleStakedIDs(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params ownerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseWitness(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	ids, err := s.vault.StakedIDs(owner)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, StakedIDsResult{Owner: owner.String(), Assets: formatAssets(ids)})
}

func (s *Server) handleLockScript(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params lockScriptParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseWitness(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	id, err := parseAsset(params.Asset)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	script, err := s.vault.LockScript(owner, id)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, LockScriptResult{Asset: id.String(), Script: "0x" + hex.EncodeToString(script)})
}

func (s *Server) handleOriginalByReceipt(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params receiptParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	receipt, err := parseAsset(params.Receipt)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	original, err := s.vault.OriginalByReceipt(receipt)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ReceiptLookupResult{Receipt: receipt.String(), Original: original.String()})
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	staked, err := s.vault.TotalStaked()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	unstaked, err := s.vault.TotalUnstaked()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	rewardTotal, err := s.vault.TotalRewards()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	instances, err := s.vault.ReceiptInstances()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, TotalsResult{
		Staked:           decimalString(staked),
		Unstaked:         decimalString(unstaked),
		Rewards:          decimalString(rewardTotal),
		ReceiptInstances: decimalString(instances),
	})
}

func (s *Server) handleClaimTotals(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	claimed, err := s.vault.TotalClaimed()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	available, err := s.vault.TotalAvailable()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ClaimTotalsResult{Claimed: decimalString(claimed), Available: decimalString(available)})
}

func (s *Server) handlePoolState(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	balance, err := s.vault.PoolBalance()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	depositIndex, err := s.vault.PoolDepositIndex()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	retrieveIndex, err := s.vault.PoolRetrieveIndex()
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, PoolStateResult{
		Balance:       decimalString(balance),
		DepositIndex:  decimalString(depositIndex),
		RetrieveIndex: decimalString(retrieveIndex),
	})
}

func (s *Server) handlePoolSlot(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params slotParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	index, err := parseAmount(params.Index)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, fmt.Sprintf("invalid slot index: %v", err), nil)
		return
	}
	id, err := s.vault.PoolSlotAt(index)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, PoolSlotResult{Index: index.String(), Asset: id.String()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params queryParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	inputs, err := parseInputs(params.Inputs)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	reply, err := s.vault.Query(params.Opcode, inputs)
	if err != nil {
		writeVaultError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, QueryResult{Reply: "0x" + hex.EncodeToString(reply)})
}
