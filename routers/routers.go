package routers

import (
	"washika-dao/handlers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up all the HTTP routes for the dashboard API.
// /metrics is only served when gatherer is non-nil.
func RegisterRoutes(r *mux.Router, h *handlers.Handler, gatherer prometheus.Gatherer) {

	// Chain clock; mine is a development hook
	r.HandleFunc("/chain/height", h.GetHeight).Methods("GET")
	r.HandleFunc("/chain/mine", h.Mine).Methods("POST")

	// Governance token
	r.HandleFunc("/token/supply", h.GetSupply).Methods("GET")
	r.HandleFunc("/token/accounts/{principal}", h.GetAccount).Methods("GET")
	r.HandleFunc("/token/accounts/{principal}/votes", h.GetPriorVotes).Methods("GET")
	r.HandleFunc("/token/mint", h.Mint).Methods("POST")
	r.HandleFunc("/token/burn", h.Burn).Methods("POST")
	r.HandleFunc("/token/transfer", h.Transfer).Methods("POST")
	r.HandleFunc("/token/delegate", h.Delegate).Methods("POST")

	// Used for checking supply and delegation conservation of stored state
	r.HandleFunc("/token/validate", h.ValidateLedger).Methods("GET")

	// Governance settings
	r.HandleFunc("/governance/params", h.GetParams).Methods("GET")
	r.HandleFunc("/governance/params/{name}", h.SetParam).Methods("PUT")
	r.HandleFunc("/governance/authority", h.SetAuthority).Methods("PUT")

	// Proposal lifecycle
	r.HandleFunc("/proposals", h.ListProposals).Methods("GET")
	r.HandleFunc("/proposals", h.Propose).Methods("POST")
	r.HandleFunc("/proposals/{id:[0-9]+}", h.GetProposal).Methods("GET")
	r.HandleFunc("/proposals/{id:[0-9]+}/receipts/{voter}", h.GetReceipt).Methods("GET")
	r.HandleFunc("/proposals/{id:[0-9]+}/votes", h.CastVote).Methods("POST")
	r.HandleFunc("/proposals/{id:[0-9]+}/cancel", h.Cancel).Methods("POST")
	r.HandleFunc("/proposals/{id:[0-9]+}/queue", h.Queue).Methods("POST")
	r.HandleFunc("/proposals/{id:[0-9]+}/execute", h.Execute).Methods("POST")

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}
