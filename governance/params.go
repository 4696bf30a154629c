package governance

import (
	"context"

	"go.uber.org/zap"

	"washika-dao/access"
	"washika-dao/logger"
	"washika-dao/models"
)

// Governance parameter names, as used by the dashboard and by timelock actions
const (
	ParamVotingDelay       = "voting-delay"
	ParamVotingPeriod      = "voting-period"
	ParamProposalThreshold = "proposal-threshold"
	ParamQuorumVotes       = "quorum-votes"
)

// SetParam changes one governance parameter. Only the authority may call it.
// Proposals already created keep their windows and quorum.
func (e *Engine) SetParam(ctx context.Context, caller models.Principal, name string, value uint64) error {
	return e.update(ctx, "set-param", func(s *session) error {
		return s.setParam(caller, name, value)
	})
}

func (e *Engine) SetVotingDelay(ctx context.Context, caller models.Principal, blocks uint64) error {
	return e.SetParam(ctx, caller, ParamVotingDelay, blocks)
}

func (e *Engine) SetVotingPeriod(ctx context.Context, caller models.Principal, blocks uint64) error {
	return e.SetParam(ctx, caller, ParamVotingPeriod, blocks)
}

func (e *Engine) SetProposalThreshold(ctx context.Context, caller models.Principal, amount uint64) error {
	return e.SetParam(ctx, caller, ParamProposalThreshold, amount)
}

func (e *Engine) SetQuorumVotes(ctx context.Context, caller models.Principal, amount uint64) error {
	return e.SetParam(ctx, caller, ParamQuorumVotes, amount)
}

// SetAuthority hands the governance authority to p
func (e *Engine) SetAuthority(ctx context.Context, caller, p models.Principal) error {
	return e.update(ctx, "set-authority", func(s *session) error {
		return s.setAuthority(caller, p)
	})
}

func (s *session) checkAuthority(op access.Operation, caller models.Principal) error {
	authority, err := s.repo.Authority()
	if err != nil {
		return err
	}
	return access.Check(op, caller, authority, "")
}

func (s *session) setParam(caller models.Principal, name string, value uint64) error {
	if err := s.checkAuthority(access.OpSetParam, caller); err != nil {
		return err
	}
	params, err := s.repo.Params()
	if err != nil {
		return err
	}
	switch name {
	case ParamVotingDelay:
		params.VotingDelay = value
	case ParamVotingPeriod:
		params.VotingPeriod = value
	case ParamProposalThreshold:
		params.ProposalThreshold = value
	case ParamQuorumVotes:
		params.QuorumVotes = value
	default:
		return models.ErrUnknownParameter
	}
	if err := s.repo.SetParams(params); err != nil {
		return err
	}
	logger.Logger.Info("Governance parameter changed",
		zap.String("name", name), zap.Uint64("value", value), zap.String("by", string(caller)))
	return nil
}

func (s *session) setAuthority(caller, p models.Principal) error {
	if err := s.checkAuthority(access.OpSetAuthority, caller); err != nil {
		return err
	}
	if !p.Valid() {
		return models.ErrInvalidPrincipal
	}
	if err := s.repo.SetAuthority(p); err != nil {
		return err
	}
	logger.Logger.Info("Governance authority changed",
		zap.String("from", string(caller)), zap.String("to", string(p)))
	return nil
}
