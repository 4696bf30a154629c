// Package governance implements the proposal lifecycle: creation gated by
// delegated voting power, snapshot voting, state derivation from tallies and
// block height, and hand-off of successful proposals to the timelock.
package governance

import (
	"context"

	"go.uber.org/zap"

	"washika-dao/db"
	"washika-dao/logger"
	"washika-dao/metrics"
	"washika-dao/models"
	"washika-dao/repository"
	"washika-dao/timelock"
	"washika-dao/token"
)

// Engine runs every governance operation in its own ledger transaction
type Engine struct {
	db       *db.LevelDB
	timelock timelock.Timelock
	metrics  *metrics.Metrics
}

func NewEngine(database *db.LevelDB, tl timelock.Timelock, m *metrics.Metrics) *Engine {
	return &Engine{db: database, timelock: tl, metrics: m}
}

// Genesis is the configuration written into an empty store
type Genesis struct {
	Authority models.Principal
	Params    models.Params
}

// session binds the engine to one transaction
type session struct {
	ctx    context.Context
	repo   repository.Repository
	ledger *token.Ledger
	tl     timelock.Timelock
}

func (e *Engine) session(ctx context.Context, r repository.Repository) *session {
	return &session{ctx: ctx, repo: r, ledger: token.NewLedger(r), tl: e.timelock}
}

func (e *Engine) update(ctx context.Context, op string, fn func(*session) error) error {
	err := repository.Update(ctx, e.db, func(ctx context.Context, r repository.Repository) error {
		return fn(e.session(ctx, r))
	})
	e.metrics.ObserveOperation(op, err)
	if err != nil {
		logger.Logger.Debug("Governance operation rejected", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (e *Engine) view(fn func(*session) error) error {
	return repository.View(e.db, func(r repository.Repository) error {
		return fn(e.session(context.Background(), r))
	})
}

// Initialized reports whether genesis settings have been written
func (e *Engine) Initialized() (ok bool, err error) {
	err = e.view(func(s *session) error {
		ok, err = s.repo.Initialized()
		return err
	})
	return ok, err
}

// Bootstrap writes genesis settings when the store has never been initialized.
// It reports whether anything was written.
func (e *Engine) Bootstrap(ctx context.Context, genesis Genesis) (bool, error) {
	var created bool
	err := repository.Update(ctx, e.db, func(_ context.Context, r repository.Repository) error {
		ok, err := r.Initialized()
		if err != nil || ok {
			return err
		}
		if genesis.Authority != models.NoDelegate {
			if !genesis.Authority.Valid() {
				return models.ErrInvalidPrincipal
			}
			if err := r.SetAuthority(genesis.Authority); err != nil {
				return err
			}
		}
		created = true
		return r.SetParams(genesis.Params)
	})
	if err != nil {
		return false, err
	}
	if created {
		logger.Logger.Info("Wrote genesis settings",
			zap.String("authority", string(genesis.Authority)),
			zap.Any("params", genesis.Params))
	}
	return created, nil
}

// Settings returns the governance parameters together with the authority and
// the timelock windows
func (e *Engine) Settings() (settings models.Settings, err error) {
	err = e.view(func(s *session) error {
		if settings.Params, err = s.repo.Params(); err != nil {
			return err
		}
		settings.Authority, err = s.repo.Authority()
		return err
	})
	settings.TimelockDelay = e.timelock.Delay()
	settings.GracePeriod = e.timelock.GracePeriod()
	return settings, err
}

func (e *Engine) Params() (params models.Params, err error) {
	err = e.view(func(s *session) error {
		params, err = s.repo.Params()
		return err
	})
	return params, err
}

func (e *Engine) Authority() (authority models.Principal, err error) {
	err = e.view(func(s *session) error {
		authority, err = s.repo.Authority()
		return err
	})
	return authority, err
}
