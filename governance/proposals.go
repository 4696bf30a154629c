package governance

import (
	"context"
	"fmt"
	"math"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"washika-dao/logger"
	"washika-dao/models"
)

// ProposalRequest carries the parallel action lists of a new proposal
type ProposalRequest struct {
	Targets     []string `json:"targets"`
	Values      []uint64 `json:"values"`
	Signatures  []string `json:"signatures"`
	Calldatas   [][]byte `json:"calldatas"`
	Description string   `json:"description"`
}

// Propose creates a proposal and returns its id
func (e *Engine) Propose(ctx context.Context, caller models.Principal, req ProposalRequest) (uint64, error) {
	var id uint64
	err := e.update(ctx, "propose", func(s *session) error {
		var err error
		id, err = s.propose(caller, req)
		return err
	})
	if err != nil {
		return 0, err
	}
	e.metrics.ProposalCreated()
	return id, nil
}

func (s *session) propose(caller models.Principal, req ProposalRequest) (uint64, error) {
	lengths := []int{len(req.Targets), len(req.Values), len(req.Signatures), len(req.Calldatas)}
	if len(lo.Uniq(lengths)) != 1 {
		return 0, models.ErrArityMismatch
	}
	if len(req.Targets) == 0 || len(req.Targets) > models.MaxProposalActions {
		return 0, models.ErrInvalidActions
	}

	now, err := s.repo.Height()
	if err != nil {
		return 0, err
	}
	params, err := s.repo.Params()
	if err != nil {
		return 0, err
	}
	// the proposer's power at the end of the previous block
	var votes uint64
	if now > 0 {
		if votes, err = s.ledger.PriorVotes(caller, now-1); err != nil {
			return 0, err
		}
	}
	if votes < params.ProposalThreshold {
		return 0, models.ErrBelowThreshold
	}

	latest, err := s.repo.LatestProposal(caller)
	if err != nil {
		return 0, err
	}
	if latest != 0 {
		prev, err := s.repo.Proposal(latest)
		if err != nil {
			return 0, err
		}
		if s.stateOf(prev, now).Live() {
			return 0, models.ErrTooManyProposals
		}
	}

	if now > math.MaxUint64-params.VotingDelay ||
		now+params.VotingDelay > math.MaxUint64-params.VotingPeriod {
		return 0, fmt.Errorf("%w: voting window overflow", models.ErrInvalidAmount)
	}
	count, err := s.repo.ProposalCount()
	if err != nil {
		return 0, err
	}

	start := now + params.VotingDelay
	p := &models.Proposal{
		ID:          count + 1,
		Proposer:    caller,
		Targets:     req.Targets,
		Values:      req.Values,
		Signatures:  req.Signatures,
		Calldatas:   req.Calldatas,
		Description: req.Description,
		CreatedAt:   now,
		StartBlock:  start,
		EndBlock:    start + params.VotingPeriod,
		QuorumVotes: params.QuorumVotes,
	}
	if err := s.repo.PutProposal(p); err != nil {
		return 0, err
	}
	if err := s.repo.SetProposalCount(p.ID); err != nil {
		return 0, err
	}
	if err := s.repo.SetLatestProposal(caller, p.ID); err != nil {
		return 0, err
	}

	logger.Logger.Info("Proposal created",
		zap.Uint64("id", p.ID),
		zap.String("proposer", string(caller)),
		zap.Uint64("start_block", p.StartBlock),
		zap.Uint64("end_block", p.EndBlock),
		zap.Int("actions", len(p.Targets)))
	return p.ID, nil
}

// CastVote records the caller's vote, weighted by its voting power at the end
// of the block before voting opened
func (e *Engine) CastVote(ctx context.Context, caller models.Principal, id uint64, support models.Support) error {
	err := e.update(ctx, "cast-vote", func(s *session) error {
		return s.castVote(caller, id, support)
	})
	if err != nil {
		return err
	}
	e.metrics.VoteCast(support)
	return nil
}

func (s *session) castVote(caller models.Principal, id uint64, support models.Support) error {
	if !support.Valid() {
		return models.ErrInvalidVoteType
	}
	p, err := s.repo.Proposal(id)
	if err != nil {
		return err
	}
	now, err := s.repo.Height()
	if err != nil {
		return err
	}
	if s.stateOf(p, now) != models.ProposalActive {
		return models.ErrProposalNotActive
	}
	receipt, err := s.repo.Receipt(id, caller)
	if err != nil {
		return err
	}
	if receipt.HasVoted {
		return models.ErrAlreadyVoted
	}

	// the start block is still open while votes are cast in it, so weight
	// comes from the last closed block before it
	var votes uint64
	if p.StartBlock > 0 {
		if votes, err = s.ledger.PriorVotes(caller, p.StartBlock-1); err != nil {
			return err
		}
	}
	var tally *uint64
	switch support {
	case models.SupportAgainst:
		tally = &p.AgainstVotes
	case models.SupportFor:
		tally = &p.ForVotes
	default:
		tally = &p.AbstainVotes
	}
	if *tally > math.MaxUint64-votes {
		return fmt.Errorf("%w: tally overflow", models.ErrInvalidAmount)
	}
	*tally += votes

	if err := s.repo.PutReceipt(id, caller, models.Receipt{HasVoted: true, Support: support, Votes: votes}); err != nil {
		return err
	}
	if err := s.repo.PutProposal(p); err != nil {
		return err
	}

	logger.Logger.Info("Vote cast",
		zap.Uint64("proposal_id", id),
		zap.String("voter", string(caller)),
		zap.Stringer("support", support),
		zap.Uint64("votes", votes))
	return nil
}

// stateOf derives the lifecycle state of p at height now
func (s *session) stateOf(p *models.Proposal, now uint64) models.ProposalState {
	switch {
	case p.Canceled:
		return models.ProposalCanceled
	case now < p.StartBlock:
		return models.ProposalPending
	case now <= p.EndBlock:
		return models.ProposalActive
	case p.ForVotes <= p.AgainstVotes || p.Turnout() < p.QuorumVotes:
		return models.ProposalDefeated
	case p.ETA == 0:
		return models.ProposalSucceeded
	case p.Executed:
		return models.ProposalExecuted
	case now > p.ETA && now-p.ETA > s.tl.GracePeriod():
		return models.ProposalExpired
	default:
		return models.ProposalQueued
	}
}

func (s *session) proposalView(id uint64) (models.ProposalView, error) {
	p, err := s.repo.Proposal(id)
	if err != nil {
		return models.ProposalView{}, err
	}
	now, err := s.repo.Height()
	if err != nil {
		return models.ProposalView{}, err
	}
	return models.NewProposalView(p, s.stateOf(p, now)), nil
}

// State returns the current state of proposal id
func (e *Engine) State(id uint64) (state models.ProposalState, err error) {
	err = e.view(func(s *session) error {
		view, err := s.proposalView(id)
		state = view.State
		return err
	})
	return state, err
}

func (e *Engine) Proposal(id uint64) (view models.ProposalView, err error) {
	err = e.view(func(s *session) error {
		view, err = s.proposalView(id)
		return err
	})
	return view, err
}

// Proposals returns every proposal with its state, in id order
func (e *Engine) Proposals() (views []models.ProposalView, err error) {
	err = e.view(func(s *session) error {
		proposals, err := s.repo.Proposals()
		if err != nil {
			return err
		}
		now, err := s.repo.Height()
		if err != nil {
			return err
		}
		views = lo.Map(proposals, func(p *models.Proposal, _ int) models.ProposalView {
			return models.NewProposalView(p, s.stateOf(p, now))
		})
		return nil
	})
	return views, err
}

func (e *Engine) ProposalCount() (count uint64, err error) {
	err = e.view(func(s *session) error {
		count, err = s.repo.ProposalCount()
		return err
	})
	return count, err
}

// Receipt returns voter's receipt on proposal id. A voter that has not voted
// gets a zero receipt.
func (e *Engine) Receipt(id uint64, voter models.Principal) (receipt models.Receipt, err error) {
	err = e.view(func(s *session) error {
		if _, err := s.repo.Proposal(id); err != nil {
			return err
		}
		receipt, err = s.repo.Receipt(id, voter)
		return err
	})
	return receipt, err
}
