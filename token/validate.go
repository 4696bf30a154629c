package token

import (
	"github.com/samber/lo"
	"go.uber.org/zap"

	"washika-dao/logger"
	"washika-dao/models"
)

// Validate recomputes supply and delegation conservation from stored
// balances and checkpoints. Balances of holders without a delegate carry no
// votes and are excluded from the vote check.
func (l *Ledger) Validate() (models.LedgerReport, error) {
	var report models.LedgerReport
	var err error
	if report.Height, err = l.store.Height(); err != nil {
		return report, err
	}
	if report.TotalSupply, err = l.store.TotalSupply(); err != nil {
		return report, err
	}

	holders, err := l.store.Holders()
	if err != nil {
		return report, err
	}
	var undelegated uint64
	for _, p := range holders {
		balance, err := l.store.Balance(p)
		if err != nil {
			return report, err
		}
		report.SumBalances += balance
		delegatee, err := l.store.Delegate(p)
		if err != nil {
			return report, err
		}
		if delegatee == models.NoDelegate {
			undelegated += balance
		}
	}

	delegatees, err := l.store.Delegatees()
	if err != nil {
		return report, err
	}
	votes := make([]uint64, 0, len(delegatees))
	for _, p := range delegatees {
		v, err := l.CurrentVotes(p)
		if err != nil {
			return report, err
		}
		votes = append(votes, v)
	}
	report.SumVotes = lo.Sum(votes)
	report.Holders = len(holders)
	report.Delegatees = len(lo.Filter(votes, func(v uint64, _ int) bool { return v > 0 }))

	report.Consistent = report.SumBalances == report.TotalSupply &&
		report.SumVotes+undelegated == report.TotalSupply
	if !report.Consistent {
		logger.Logger.Error("Ledger invariants violated", zap.Any("report", report))
	}
	return report, nil
}
