// Package rpc exposes the reward engine over JSON-RPC 2.0.
package rpc

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pokeengine/native/rewards"
	"pokeengine/observability/metrics"
	"pokeengine/solana"
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
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
)

// Server routes JSON-RPC requests to the reward engine. When a bearer token
// is present in POKE_RPC_TOKEN every request must carry it.
type Server struct {
	engine    *rewards.Engine
	log       *slog.Logger
	authToken string
	disburser solana.Disburser
	metrics   *metrics.RewardMetrics
}

// ServerOption customises the server.
type ServerOption func(*Server)

// WithDisburser wires the disbursement collaborator. Disbursement runs
// after the reward record is committed and never affects the response.
func WithDisburser(d solana.Disburser) ServerOption {
	return func(s *Server) { s.disburser = d }
}

// WithAuthToken overrides the token read from the environment.
func WithAuthToken(token string) ServerOption {
	return func(s *Server) { s.authToken = token }
}

// NewServer builds an RPC server over the engine.
func NewServer(engine *rewards.Engine, log *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		engine:    engine,
		log:       log,
		authToken: strings.TrimSpace(os.Getenv("POKE_RPC_TOKEN")),
		metrics:   metrics.Rewards(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Router returns the HTTP handler: JSON-RPC on POST /, health and
// Prometheus metrics alongside.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return r
}

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(rpcResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &rpcError{Code: code, Message: message},
	})
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	_ = json.NewEncoder(w).Encode(rpcResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(s.authToken)) == 1
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, nil, codeUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "failed to read request body")
		return
	}
	if len(body) > maxRequestBytes {
		writeError(w, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large")
		return
	}

	var req rpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON")
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version")
		return
	}

	switch req.Method {
	case "rewards_processEvent":
		s.handleProcessEvent(r.Context(), w, &req)
	case "rewards_list":
		s.handleList(r.Context(), w, &req, false)
	case "rewards_listPending":
		s.handleList(r.Context(), w, &req, true)
	case "rewards_dailyStats":
		s.handleDailyStats(r.Context(), w, &req)
	case "rewards_claim":
		s.handleClaim(r.Context(), w, &req)
	case "rewards_claimAll":
		s.handleClaimAll(r.Context(), w, &req)
	default:
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

func decodeParams[T any](req *rpcRequest) (*T, error) {
	if len(req.Params) != 1 {
		return nil, fmt.Errorf("expected exactly one params object")
	}
	var params T
	if err := json.Unmarshal(req.Params[0], &params); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return &params, nil
}

type processEventParams struct {
	PlayerID  string          `json:"player_id"`
	Game      string          `json:"game"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	Wallet    string          `json:"wallet,omitempty"`
}

func (s *Server) handleProcessEvent(ctx context.Context, w http.ResponseWriter, req *rpcRequest) {
	params, err := decodeParams[processEventParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	game, err := rewards.ParseGameKind(params.Game)
	if err != nil {
		s.metrics.ObserveFault("unknown_game")
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}

	resp, err := s.engine.ProcessGameEvent(ctx, &rewards.GameEvent{
		PlayerID:  params.PlayerID,
		Game:      game,
		EventData: params.EventData,
	})
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}

	if resp.Success {
		s.metrics.ObserveProcessed(string(game), resp.Reward.Amount)
		s.log.Info("reward accrued",
			slog.String("player", params.PlayerID),
			slog.String("game", string(game)),
			slog.Uint64("amount", resp.Reward.Amount),
		)
		s.maybeDisburse(resp.Reward, params.Wallet)
	} else {
		reason := "rejected"
		if resp.DailyLimitReached {
			reason = "daily_limit_reached"
		}
		s.metrics.ObserveRejected(string(game), reason)
		s.log.Info("reward rejected",
			slog.String("player", params.PlayerID),
			slog.String("game", string(game)),
			slog.String("message", resp.Message),
		)
	}
	writeResult(w, req.ID, resp)
}

// maybeDisburse fires the on-chain transfer without blocking the response.
// The reward record is already durable; a failed transfer is logged only.
func (s *Server) maybeDisburse(reward *rewards.Reward, wallet string) {
	if s.disburser == nil || strings.TrimSpace(wallet) == "" {
		return
	}
	go func(reward rewards.Reward) {
		signature, err := s.disburser.Disburse(context.Background(), &reward, wallet)
		if err != nil {
			s.log.Warn("disbursement failed",
				slog.String("reward", reward.ID.String()),
				slog.String("error", err.Error()),
			)
			return
		}
		s.log.Info("disbursement submitted",
			slog.String("reward", reward.ID.String()),
			slog.String("signature", signature),
		)
	}(*reward)
}

type playerParams struct {
	PlayerID string `json:"player_id"`
}

func (s *Server) handleList(ctx context.Context, w http.ResponseWriter, req *rpcRequest, pendingOnly bool) {
	params, err := decodeParams[playerParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	var list []rewards.Reward
	if pendingOnly {
		list, err = s.engine.PendingRewards(ctx, params.PlayerID)
	} else {
		list, err = s.engine.Rewards(ctx, params.PlayerID)
	}
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, list)
}

type dailyStatsParams struct {
	PlayerID string `json:"player_id"`
	Day      string `json:"day"`
}

func (s *Server) handleDailyStats(ctx context.Context, w http.ResponseWriter, req *rpcRequest) {
	params, err := decodeParams[dailyStatsParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	stats, err := s.engine.DailyStats(ctx, params.PlayerID, params.Day)
	if err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stats)
}

type claimParams struct {
	RewardID string `json:"reward_id"`
}

func (s *Server) handleClaim(ctx context.Context, w http.ResponseWriter, req *rpcRequest) {
	params, err := decodeParams[claimParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	id, err := uuid.Parse(strings.TrimSpace(params.RewardID))
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid reward id")
		return
	}
	if err := s.engine.ClaimReward(ctx, id); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveClaim()
	writeResult(w, req.ID, map[string]bool{"claimed": true})
}

func (s *Server) handleClaimAll(ctx context.Context, w http.ResponseWriter, req *rpcRequest) {
	params, err := decodeParams[playerParams](req)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error())
		return
	}
	if err := s.engine.ClaimRewards(ctx, params.PlayerID); err != nil {
		s.writeEngineError(w, req.ID, err)
		return
	}
	s.metrics.ObserveClaim()
	writeResult(w, req.ID, map[string]bool{"claimed": true})
}

// writeEngineError maps engine faults onto JSON-RPC error codes. Validation
// and unknown-kind faults are caller bugs; storage faults may be retried.
func (s *Server) writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	switch {
	case errors.Is(err, rewards.ErrUnknownGame):
		s.metrics.ObserveFault("unknown_game")
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error())
	case errors.Is(err, rewards.ErrInvalidPayload), errors.Is(err, rewards.ErrInvalidPlayer):
		s.metrics.ObserveFault("validation")
		writeError(w, http.StatusBadRequest, id, codeInvalidParams, err.Error())
	case errors.Is(err, rewards.ErrNotFound):
		s.metrics.ObserveFault("not_found")
		writeError(w, http.StatusNotFound, id, codeNotFound, err.Error())
	default:
		s.metrics.ObserveFault("storage")
		s.log.Error("storage failure", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, id, codeServerError, "internal error")
	}
}
