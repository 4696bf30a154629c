package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"washika-dao/governance"
	"washika-dao/logger"
	"washika-dao/models"
)

// GetParams returns the governance parameters, authority and timelock windows
func (h *Handler) GetParams(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Governance.Settings()
	if err != nil {
		writeError(w, "settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SetParam handles PUT /governance/params/{name}
func (h *Handler) SetParam(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Value uint64 `json:"value"`
	}
	if !decode(w, r, &req) {
		return
	}
	name := mux.Vars(r)["name"]
	if err := h.Governance.SetParam(r.Context(), who, name, req.Value); err != nil {
		writeError(w, "set-param", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "value": req.Value})
}

func (h *Handler) SetAuthority(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Principal models.Principal `json:"principal"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.Governance.SetAuthority(r.Context(), who, req.Principal); err != nil {
		writeError(w, "set-authority", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authority": req.Principal})
}

// ListProposals returns the proposal count and every proposal with its state
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	views, err := h.Governance.Proposals()
	if err != nil {
		writeError(w, "proposals", err)
		return
	}
	if views == nil {
		views = []models.ProposalView{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(views),
		"proposals": views,
	})
}

// Propose handles POST requests creating a proposal
func (h *Handler) Propose(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	var req governance.ProposalRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.Governance.Propose(r.Context(), who, req)
	if err != nil {
		writeError(w, "propose", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Proposal created",
		"id":      id,
	})
}

func (h *Handler) GetProposal(w http.ResponseWriter, r *http.Request) {
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	view, err := h.Governance.Proposal(id)
	if err != nil {
		writeError(w, "proposal", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	voter, ok := pathPrincipal(w, r, "voter")
	if !ok {
		return
	}
	receipt, err := h.Governance.Receipt(id, voter)
	if err != nil {
		writeError(w, "receipt", err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// CastVote handles POST /proposals/{id}/votes with {"support": 0|1|2}
func (h *Handler) CastVote(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		Support int64 `json:"support"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Support < 0 {
		writeError(w, "cast-vote", models.ErrInvalidVoteType)
		return
	}
	support := models.Support(req.Support)
	if err := h.Governance.CastVote(r.Context(), who, id, support); err != nil {
		writeError(w, "cast-vote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Vote cast",
		"support": support.String(),
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	if err := h.Governance.Cancel(r.Context(), who, id); err != nil {
		writeError(w, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Proposal canceled"})
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	eta, err := h.Governance.Queue(r.Context(), who, id)
	if err != nil {
		writeError(w, "queue", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Proposal queued",
		"eta":     eta,
	})
}

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	who, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := uintVar(w, r, "id")
	if !ok {
		return
	}
	if err := h.Governance.Execute(r.Context(), who, id); err != nil {
		writeError(w, "execute", err)
		return
	}
	logger.Logger.Info("Executed proposal via API", zap.Uint64("id", id))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Proposal executed"})
}
