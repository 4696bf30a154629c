package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"washika-dao/models"
)

// Metrics holds the prometheus collectors for ledger and governance operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operations       *prometheus.CounterVec
	proposalsCreated prometheus.Counter
	votesCast        *prometheus.CounterVec
	totalSupply      prometheus.Gauge
	blockHeight      prometheus.Gauge
}

func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "washika_operations_total",
			Help: "Ledger and governance operations by result",
		}, []string{"operation", "result"}),
		proposalsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "washika_proposals_created_total",
			Help: "Total number of proposals created",
		}),
		votesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "washika_votes_cast_total",
			Help: "Total number of votes cast by support",
		}, []string{"support"}),
		totalSupply: factory.NewGauge(prometheus.GaugeOpts{
			Name: "washika_total_supply",
			Help: "Governance token total supply in base units",
		}),
		blockHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "washika_block_height",
			Help: "Current ledger block height",
		}),
	}
}

// ObserveOperation counts one operation. Typed ledger errors are labelled by
// name, anything else as "error".
func (m *Metrics) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		var lerr *models.Error
		if errors.As(err, &lerr) {
			result = lerr.Name
		}
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *Metrics) ProposalCreated() {
	if m == nil {
		return
	}
	m.proposalsCreated.Inc()
}

func (m *Metrics) VoteCast(support models.Support) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(support.String()).Inc()
}

func (m *Metrics) SetTotalSupply(supply uint64) {
	if m == nil {
		return
	}
	m.totalSupply.Set(float64(supply))
}

func (m *Metrics) SetBlockHeight(height uint64) {
	if m == nil {
		return
	}
	m.blockHeight.Set(float64(height))
}
