package governance

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"washika-dao/access"
	"washika-dao/logger"
	"washika-dao/models"
)

func batchOf(p *models.Proposal) models.TimelockBatch {
	return models.TimelockBatch{ProposalID: p.ID, ETA: p.ETA, Actions: p.Actions()}
}

// Cancel marks a proposal canceled. The proposer may cancel its own proposal
// and the authority may cancel any. A queued batch is withdrawn from the timelock.
func (e *Engine) Cancel(ctx context.Context, caller models.Principal, id uint64) error {
	return e.update(ctx, "cancel", func(s *session) error {
		return s.cancel(caller, id)
	})
}

func (s *session) cancel(caller models.Principal, id uint64) error {
	p, err := s.repo.Proposal(id)
	if err != nil {
		return err
	}
	if p.Executed {
		return models.ErrAlreadyExecuted
	}
	if p.Canceled {
		return models.ErrAlreadyCanceled
	}
	authority, err := s.repo.Authority()
	if err != nil {
		return err
	}
	if err := access.Check(access.OpCancel, caller, authority, p.Proposer); err != nil {
		return err
	}

	if p.ETA != 0 {
		if err := s.tl.Cancel(s.ctx, batchOf(p)); err != nil {
			return fmt.Errorf("timelock cancel: %w", err)
		}
	}
	p.Canceled = true
	if err := s.repo.PutProposal(p); err != nil {
		return err
	}

	logger.Logger.Info("Proposal canceled",
		zap.Uint64("id", id), zap.String("by", string(caller)))
	return nil
}

// Queue hands a succeeded proposal to the timelock and records its eta
func (e *Engine) Queue(ctx context.Context, caller models.Principal, id uint64) (uint64, error) {
	var eta uint64
	err := e.update(ctx, "queue", func(s *session) error {
		var err error
		eta, err = s.queue(caller, id)
		return err
	})
	return eta, err
}

func (s *session) queue(caller models.Principal, id uint64) (uint64, error) {
	p, err := s.repo.Proposal(id)
	if err != nil {
		return 0, err
	}
	now, err := s.repo.Height()
	if err != nil {
		return 0, err
	}
	if s.stateOf(p, now) != models.ProposalSucceeded {
		return 0, models.ErrProposalNotSucceeded
	}
	delay := s.tl.Delay()
	if now > math.MaxUint64-delay {
		return 0, fmt.Errorf("%w: eta overflow", models.ErrInvalidAmount)
	}

	p.ETA = now + delay
	eta, err := s.tl.Queue(s.ctx, batchOf(p))
	if err != nil {
		return 0, fmt.Errorf("timelock queue: %w", err)
	}
	p.ETA = eta
	if err := s.repo.PutProposal(p); err != nil {
		return 0, err
	}

	logger.Logger.Info("Proposal queued",
		zap.Uint64("id", id), zap.String("by", string(caller)), zap.Uint64("eta", eta))
	return eta, nil
}

// Execute asks the timelock to perform a queued proposal's actions. Any
// failing action aborts the whole call and the proposal stays queued.
func (e *Engine) Execute(ctx context.Context, caller models.Principal, id uint64) error {
	return e.update(ctx, "execute", func(s *session) error {
		return s.execute(caller, id)
	})
}

func (s *session) execute(caller models.Principal, id uint64) error {
	p, err := s.repo.Proposal(id)
	if err != nil {
		return err
	}
	now, err := s.repo.Height()
	if err != nil {
		return err
	}
	if s.stateOf(p, now) != models.ProposalQueued {
		return models.ErrProposalNotQueued
	}

	p.Executed = true
	if err := s.repo.PutProposal(p); err != nil {
		return err
	}
	if err := s.tl.Execute(s.ctx, batchOf(p)); err != nil {
		return fmt.Errorf("timelock execute: %w", err)
	}

	logger.Logger.Info("Proposal executed", zap.Uint64("id", id), zap.String("by", string(caller)))
	return nil
}
