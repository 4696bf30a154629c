package metrics_test

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"washika-dao/metrics"
	"washika-dao/models"
)

func TestObserveOperationLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ObserveOperation("mint", nil)
	m.ObserveOperation("mint", fmt.Errorf("mint: %w", models.ErrUnauthorized))
	m.ObserveOperation("mint", fmt.Errorf("disk on fire"))

	assert.Equal(t, 3, testutil.CollectAndCount(reg, "washika_operations_total"))
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.SetTotalSupply(700)
	m.SetBlockHeight(12)
	m.VoteCast(models.SupportFor)
	m.ProposalCreated()

	assert.Equal(t, 4, testutil.CollectAndCount(reg,
		"washika_total_supply",
		"washika_block_height",
		"washika_votes_cast_total",
		"washika_proposals_created_total",
	))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("burn", nil)
		m.ProposalCreated()
		m.VoteCast(models.SupportAgainst)
		m.SetTotalSupply(1)
		m.SetBlockHeight(1)
	})
}
