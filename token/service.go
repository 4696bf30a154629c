package token

import (
	"context"

	"go.uber.org/zap"

	"washika-dao/db"
	"washika-dao/logger"
	"washika-dao/metrics"
	"washika-dao/models"
	"washika-dao/repository"
)

// Service exposes the ledger as atomic operations. Each call runs in its own
// transaction: it either commits in full or leaves state untouched.
type Service struct {
	db      *db.LevelDB
	metrics *metrics.Metrics
}

func NewService(database *db.LevelDB, m *metrics.Metrics) *Service {
	return &Service{db: database, metrics: m}
}

func (s *Service) update(ctx context.Context, op string, fn func(*Ledger) error) error {
	var supply uint64
	err := repository.Update(ctx, s.db, func(_ context.Context, r repository.Repository) error {
		l := NewLedger(r)
		if err := fn(l); err != nil {
			return err
		}
		var err error
		supply, err = l.TotalSupply()
		return err
	})
	s.metrics.ObserveOperation(op, err)
	if err != nil {
		logger.Logger.Debug("Token operation rejected", zap.String("operation", op), zap.Error(err))
		return err
	}
	s.metrics.SetTotalSupply(supply)
	return nil
}

func (s *Service) view(fn func(*Ledger) error) error {
	return repository.View(s.db, func(r repository.Repository) error {
		return fn(NewLedger(r))
	})
}

func (s *Service) Mint(ctx context.Context, caller, to models.Principal, amount uint64) error {
	return s.update(ctx, "mint", func(l *Ledger) error {
		return l.Mint(caller, to, amount)
	})
}

func (s *Service) Burn(ctx context.Context, caller models.Principal, amount uint64) error {
	return s.update(ctx, "burn", func(l *Ledger) error {
		return l.Burn(caller, amount)
	})
}

func (s *Service) Transfer(ctx context.Context, caller models.Principal, amount uint64, from, to models.Principal, memo string) error {
	return s.update(ctx, "transfer", func(l *Ledger) error {
		return l.Transfer(caller, amount, from, to, memo)
	})
}

func (s *Service) Delegate(ctx context.Context, caller, to models.Principal) error {
	return s.update(ctx, "delegate", func(l *Ledger) error {
		return l.Delegate(caller, to)
	})
}

func (s *Service) Balance(p models.Principal) (bal uint64, err error) {
	err = s.view(func(l *Ledger) error {
		bal, err = l.Balance(p)
		return err
	})
	return bal, err
}

func (s *Service) TotalSupply() (supply uint64, err error) {
	err = s.view(func(l *Ledger) error {
		supply, err = l.TotalSupply()
		return err
	})
	return supply, err
}

func (s *Service) CurrentVotes(p models.Principal) (votes uint64, err error) {
	err = s.view(func(l *Ledger) error {
		votes, err = l.CurrentVotes(p)
		return err
	})
	return votes, err
}

func (s *Service) PriorVotes(p models.Principal, height uint64) (votes uint64, err error) {
	err = s.view(func(l *Ledger) error {
		votes, err = l.PriorVotes(p, height)
		return err
	})
	return votes, err
}

func (s *Service) Account(p models.Principal) (acct models.Account, err error) {
	err = s.view(func(l *Ledger) error {
		acct, err = l.Account(p)
		return err
	})
	return acct, err
}

func (s *Service) Checkpoints(p models.Principal) (cps []models.Checkpoint, err error) {
	err = s.view(func(l *Ledger) error {
		cps, err = l.Checkpoints(p)
		return err
	})
	return cps, err
}

// Validate checks the conservation invariants against committed state
func (s *Service) Validate() (report models.LedgerReport, err error) {
	err = s.view(func(l *Ledger) error {
		report, err = l.Validate()
		return err
	})
	return report, err
}
