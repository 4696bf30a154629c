package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"washika-dao/chain"
	"washika-dao/governance"
	"washika-dao/logger"
	"washika-dao/models"
	"washika-dao/token"
)

// PrincipalHeader carries the authenticated caller of write requests
const PrincipalHeader = "X-Principal"

// Handler contains the HTTP handlers for the dashboard API
type Handler struct {
	Tokens     *token.Service
	Governance *governance.Engine
	Clock      *chain.Clock
}

// NewHandler creates and returns a new Handler instance
func NewHandler(tokens *token.Service, gov *governance.Engine, clock *chain.Clock) *Handler {
	return &Handler{Tokens: tokens, Governance: gov, Clock: clock}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusOf maps ledger error codes onto HTTP statuses
func statusOf(code int) int {
	switch code {
	case models.ErrUnauthorized.Code:
		return http.StatusForbidden
	case models.ErrUnknownProposal.Code:
		return http.StatusNotFound
	case models.ErrInvalidAmount.Code,
		models.ErrInvalidVoteType.Code,
		models.ErrArityMismatch.Code,
		models.ErrInvalidActions.Code,
		models.ErrInvalidPrincipal.Code,
		models.ErrUnknownParameter.Code:
		return http.StatusBadRequest
	default:
		return http.StatusConflict
	}
}

func writeError(w http.ResponseWriter, op string, err error) {
	var lerr *models.Error
	if errors.As(err, &lerr) {
		logger.Logger.Warn("Request rejected", zap.String("operation", op), zap.Error(err))
		writeJSON(w, statusOf(lerr.Code), map[string]interface{}{
			"error": err.Error(),
			"code":  lerr.Code,
		})
		return
	}
	logger.Logger.Error("Request failed", zap.String("operation", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.Logger.Error("Failed to decode request", zap.String("path", r.URL.Path), zap.Error(err))
		badRequest(w, "Invalid request payload")
		return false
	}
	return true
}

// caller returns the principal from the request header. It writes the error
// response itself when the header is missing or malformed.
func caller(w http.ResponseWriter, r *http.Request) (models.Principal, bool) {
	p := models.Principal(r.Header.Get(PrincipalHeader))
	if p == models.NoDelegate {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + PrincipalHeader + " header"})
		return p, false
	}
	if !p.Valid() {
		writeError(w, "caller", models.ErrInvalidPrincipal)
		return p, false
	}
	return p, true
}

// pathPrincipal reads a principal path variable, rejecting malformed ones
func pathPrincipal(w http.ResponseWriter, r *http.Request, name string) (models.Principal, bool) {
	p := models.Principal(mux.Vars(r)[name])
	if !p.Valid() {
		writeError(w, name, models.ErrInvalidPrincipal)
		return p, false
	}
	return p, true
}

func uintVar(w http.ResponseWriter, r *http.Request, name string) (uint64, bool) {
	v, err := strconv.ParseUint(mux.Vars(r)[name], 10, 64)
	if err != nil {
		badRequest(w, "invalid "+name)
		return 0, false
	}
	return v, true
}

// GetHeight handles GET requests for the current block height
func (h *Handler) GetHeight(w http.ResponseWriter, r *http.Request) {
	height, err := h.Clock.Height()
	if err != nil {
		writeError(w, "height", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"height": height})
}

// Mine advances the chain clock. It is a development endpoint.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Blocks uint64 `json:"blocks"`
	}
	if !decode(w, r, &req) {
		return
	}
	height, err := h.Clock.Mine(r.Context(), req.Blocks)
	if err != nil {
		writeError(w, "mine", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"height": height})
}

// GetSupply handles GET requests for the token total supply
func (h *Handler) GetSupply(w http.ResponseWriter, r *http.Request) {
	supply, err := h.Tokens.TotalSupply()
	if err != nil {
		writeError(w, "total-supply", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total_supply": supply,
		"decimals":     models.TokenDecimals,
	})
}

// ValidateLedger recomputes the token's conservation invariants. A violated
// invariant is reported with status 500.
func (h *Handler) ValidateLedger(w http.ResponseWriter, r *http.Request) {
	report, err := h.Tokens.Validate()
	if err != nil {
		writeError(w, "validate", err)
		return
	}
	status := http.StatusOK
	if !report.Consistent {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

// GetAccount returns the balance, delegate and current votes of a principal
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := pathPrincipal(w, r, "principal")
	if !ok {
		return
	}
	acct, err := h.Tokens.Account(p)
	if err != nil {
		writeError(w, "account", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

// GetPriorVotes returns a principal's voting power at ?height=, or its
// current power when no height is given
func (h *Handler) GetPriorVotes(w http.ResponseWriter, r *http.Request) {
	p, ok := pathPrincipal(w, r, "principal")
	if !ok {
		return
	}
	raw := r.URL.Query().Get("height")
	if raw == "" {
		votes, err := h.Tokens.CurrentVotes(p)
		if err != nil {
			writeError(w, "current-votes", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"principal": p, "votes": votes})
		return
	}
	height, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(w, "invalid height")
		return
	}
	votes, err := h.Tokens.PriorVotes(p, height)
	if err != nil {
		writeError(w, "prior-votes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"principal": p, "height": height, "votes": votes})
}

// Mint handles POST requests minting tokens; only the authority may call it
func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		To     models.Principal `json:"to"`
		Amount uint64           `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Tokens.Mint(r.Context(), from, req.To, req.Amount); err != nil {
		writeError(w, "mint", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tokens minted"})
}

func (h *Handler) Burn(w http.ResponseWriter, r *http.Request) {
	from, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount uint64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Tokens.Burn(r.Context(), from, req.Amount); err != nil {
		writeError(w, "burn", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tokens burned"})
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount uint64           `json:"amount"`
		From   models.Principal `json:"from"`
		To     models.Principal `json:"to"`
		Memo   string           `json:"memo"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.From == models.NoDelegate {
		req.From = who
	}
	if err := h.Tokens.Transfer(r.Context(), who, req.Amount, req.From, req.To, req.Memo); err != nil {
		writeError(w, "transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Tokens transferred"})
}

// Delegate points the caller's voting power at another principal
func (h *Handler) Delegate(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		To models.Principal `json:"to"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Tokens.Delegate(r.Context(), who, req.To); err != nil {
		writeError(w, "delegate", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Voting power delegated"})
}
