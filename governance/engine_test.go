package governance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washika-dao/chain"
	"washika-dao/db"
	"washika-dao/governance"
	"washika-dao/models"
	"washika-dao/timelock"
	"washika-dao/token"
)

const (
	deployer models.Principal = "ST1DEPLOYER"
	alice    models.Principal = "ST1WALLET1"
	bob      models.Principal = "ST1WALLET2"
	carol    models.Principal = "ST1WALLET3"
)

const washa = models.TokenUnit

const (
	timelockDelay uint64 = 2
	timelockGrace uint64 = 5
)

type env struct {
	engine *governance.Engine
	tokens *token.Service
	clock  *chain.Clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ldb, err := db.NewMemLevelDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ldb.Close() })

	tl := timelock.NewLocal(timelock.DefaultPrincipal, timelockDelay, timelockGrace)
	engine := governance.NewEngine(ldb, tl, nil)
	engine.RegisterActions(tl)

	created, err := engine.Bootstrap(context.Background(), governance.Genesis{
		Authority: deployer,
		Params:    models.DefaultParams(),
	})
	require.NoError(t, err)
	require.True(t, created)

	return &env{engine: engine, tokens: token.NewService(ldb, nil), clock: chain.NewClock(ldb, nil)}
}

func (e *env) mine(t *testing.T, n uint64) {
	t.Helper()
	_, err := e.clock.Mine(context.Background(), n)
	require.NoError(t, err)
}

// fund mints amount to p and self-delegates it
func (e *env) fund(t *testing.T, p models.Principal, amount uint64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.tokens.Mint(ctx, deployer, p, amount))
	require.NoError(t, e.tokens.Delegate(ctx, p, p))
}

func (e *env) height(t *testing.T) uint64 {
	t.Helper()
	h, err := e.clock.Height()
	require.NoError(t, err)
	return h
}

func (e *env) state(t *testing.T, id uint64) models.ProposalState {
	t.Helper()
	s, err := e.engine.State(id)
	require.NoError(t, err)
	return s
}

func (e *env) proposal(t *testing.T, id uint64) models.ProposalView {
	t.Helper()
	v, err := e.engine.Proposal(id)
	require.NoError(t, err)
	return v
}

func noopRequest(description string) governance.ProposalRequest {
	return governance.ProposalRequest{
		Targets:     []string{"washika-vault"},
		Values:      []uint64{0},
		Signatures:  []string{"harvest"},
		Calldatas:   [][]byte{nil},
		Description: description,
	}
}

// setup funds alice with 200 and bob with 600 and has alice propose at height 1
func setup(t *testing.T) (*env, uint64) {
	t.Helper()
	e := newEnv(t)
	e.fund(t, alice, 200*washa)
	e.fund(t, bob, 600*washa)
	e.mine(t, 1)

	id, err := e.engine.Propose(context.Background(), alice, noopRequest("fund the savings vault"))
	require.NoError(t, err)
	return e, id
}

// pass votes the proposal through and leaves the clock just after its end block
func pass(t *testing.T, e *env, id uint64) {
	t.Helper()
	ctx := context.Background()
	e.mine(t, 1)
	require.NoError(t, e.engine.CastVote(ctx, alice, id, models.SupportFor))
	require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportFor))
	e.mine(t, models.DefaultParams().VotingPeriod+1)
	require.Equal(t, models.ProposalSucceeded, e.state(t, id))
}

func TestProposalSucceeds(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()
	assert.Equal(t, uint64(1), id)

	p := e.proposal(t, id)
	assert.Equal(t, alice, p.Proposer)
	assert.Equal(t, uint64(2), p.StartBlock)
	assert.Equal(t, uint64(146), p.EndBlock)
	assert.Equal(t, models.ProposalPending, p.State)
	assert.Equal(t, "pending", p.StateName)

	e.mine(t, 1)
	assert.Equal(t, models.ProposalActive, e.state(t, id))

	require.NoError(t, e.engine.CastVote(ctx, alice, id, models.SupportFor))
	require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportFor))
	assert.Equal(t, 800*washa, e.proposal(t, id).ForVotes)

	receipt, err := e.engine.Receipt(id, bob)
	require.NoError(t, err)
	assert.Equal(t, models.Receipt{HasVoted: true, Support: models.SupportFor, Votes: 600 * washa}, receipt)

	// still active on the end block itself
	e.mine(t, 144)
	assert.Equal(t, models.ProposalActive, e.state(t, id))
	e.mine(t, 1)
	assert.Equal(t, models.ProposalSucceeded, e.state(t, id))
}

func TestProposeBelowThreshold(t *testing.T) {
	e := newEnv(t)
	e.fund(t, alice, 50*washa)
	e.mine(t, 1)

	_, err := e.engine.Propose(context.Background(), alice, noopRequest("too small"))
	require.ErrorIs(t, err, models.ErrBelowThreshold)

	count, err := e.engine.ProposalCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestProposeUsesPreviousBlockPower(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// power delegated in the current block does not count yet
	e.fund(t, alice, 200*washa)
	_, err := e.engine.Propose(ctx, alice, noopRequest("same block"))
	require.ErrorIs(t, err, models.ErrBelowThreshold)

	e.mine(t, 1)
	_, err = e.engine.Propose(ctx, alice, noopRequest("next block"))
	require.NoError(t, err)
}

func TestProposeValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fund(t, alice, 200*washa)
	e.mine(t, 1)

	req := noopRequest("mismatch")
	req.Values = []uint64{0, 1}
	_, err := e.engine.Propose(ctx, alice, req)
	assert.ErrorIs(t, err, models.ErrArityMismatch)

	_, err = e.engine.Propose(ctx, alice, governance.ProposalRequest{Description: "empty"})
	assert.ErrorIs(t, err, models.ErrInvalidActions)

	big := governance.ProposalRequest{Description: "too many"}
	for i := 0; i <= models.MaxProposalActions; i++ {
		big.Targets = append(big.Targets, "washika-vault")
		big.Values = append(big.Values, 0)
		big.Signatures = append(big.Signatures, "harvest")
		big.Calldatas = append(big.Calldatas, nil)
	}
	_, err = e.engine.Propose(ctx, alice, big)
	assert.ErrorIs(t, err, models.ErrInvalidActions)
}

func TestOneLiveProposalPerProposer(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()

	_, err := e.engine.Propose(ctx, alice, noopRequest("second"))
	require.ErrorIs(t, err, models.ErrTooManyProposals)

	// bob is unaffected
	bobID, err := e.engine.Propose(ctx, bob, noopRequest("bob's"))
	require.NoError(t, err)
	assert.Equal(t, id+1, bobID)

	// once voting ends without quorum alice may propose again
	e.mine(t, 150)
	require.Equal(t, models.ProposalDefeated, e.state(t, id))
	next, err := e.engine.Propose(ctx, alice, noopRequest("retry"))
	require.NoError(t, err)
	assert.Equal(t, uint64(3), next)

	views, err := e.engine.Proposals()
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{views[0].ID, views[1].ID, views[2].ID})
	assert.Equal(t, models.ProposalPending, views[2].State)
}

func TestVoteSnapshotIgnoresLaterDelegation(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()
	e.mine(t, 2)

	// bob delegates to carol after the start block
	require.NoError(t, e.tokens.Delegate(ctx, bob, carol))

	require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportFor))
	require.NoError(t, e.engine.CastVote(ctx, carol, id, models.SupportFor))

	p := e.proposal(t, id)
	assert.Equal(t, 600*washa, p.ForVotes)

	// carol's vote carried no weight but is recorded
	receipt, err := e.engine.Receipt(id, carol)
	require.NoError(t, err)
	assert.True(t, receipt.HasVoted)
	assert.Zero(t, receipt.Votes)
}

func TestVoteInStartBlockIgnoresSameBlockDelegation(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()
	e.mine(t, 1)
	require.Equal(t, e.proposal(t, id).StartBlock, e.height(t))

	require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportFor))
	require.NoError(t, e.tokens.Delegate(ctx, bob, carol))
	require.NoError(t, e.engine.CastVote(ctx, carol, id, models.SupportFor))

	p := e.proposal(t, id)
	assert.Equal(t, 600*washa, p.ForVotes)

	supply, err := e.tokens.TotalSupply()
	require.NoError(t, err)
	assert.LessOrEqual(t, p.ForVotes+p.AgainstVotes+p.AbstainVotes, supply)

	receipt, err := e.engine.Receipt(id, carol)
	require.NoError(t, err)
	assert.Zero(t, receipt.Votes)
}

func TestVoteRules(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()

	err := e.engine.CastVote(ctx, alice, id, models.SupportFor)
	assert.ErrorIs(t, err, models.ErrProposalNotActive)

	e.mine(t, 1)
	err = e.engine.CastVote(ctx, alice, id, models.Support(3))
	assert.ErrorIs(t, err, models.ErrInvalidVoteType)

	err = e.engine.CastVote(ctx, alice, 99, models.SupportFor)
	assert.ErrorIs(t, err, models.ErrUnknownProposal)

	require.NoError(t, e.engine.CastVote(ctx, alice, id, models.SupportAgainst))
	err = e.engine.CastVote(ctx, alice, id, models.SupportFor)
	assert.ErrorIs(t, err, models.ErrAlreadyVoted)

	p := e.proposal(t, id)
	assert.Equal(t, 200*washa, p.AgainstVotes)
	assert.Zero(t, p.ForVotes)

	require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportAbstain))
	assert.Equal(t, 600*washa, e.proposal(t, id).AbstainVotes)

	e.mine(t, 145)
	err = e.engine.CastVote(ctx, carol, id, models.SupportFor)
	assert.ErrorIs(t, err, models.ErrProposalNotActive)
}

func TestDefeatedProposals(t *testing.T) {
	t.Run("against wins", func(t *testing.T) {
		e, id := setup(t)
		ctx := context.Background()
		e.mine(t, 1)
		require.NoError(t, e.engine.CastVote(ctx, alice, id, models.SupportFor))
		require.NoError(t, e.engine.CastVote(ctx, bob, id, models.SupportAgainst))
		e.mine(t, 145)
		assert.Equal(t, models.ProposalDefeated, e.state(t, id))
	})

	t.Run("below quorum", func(t *testing.T) {
		e, id := setup(t)
		e.mine(t, 1)
		require.NoError(t, e.engine.CastVote(context.Background(), alice, id, models.SupportFor))
		e.mine(t, 145)
		assert.Equal(t, models.ProposalDefeated, e.state(t, id))
	})
}

func TestStateUnknownProposal(t *testing.T) {
	e := newEnv(t)
	_, err := e.engine.State(1)
	assert.ErrorIs(t, err, models.ErrUnknownProposal)
	_, err = e.engine.Receipt(1, alice)
	assert.ErrorIs(t, err, models.ErrUnknownProposal)
}

func TestCancel(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()

	err := e.engine.Cancel(ctx, bob, id)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, e.engine.Cancel(ctx, alice, id))
	assert.Equal(t, models.ProposalCanceled, e.state(t, id))

	err = e.engine.Cancel(ctx, alice, id)
	assert.ErrorIs(t, err, models.ErrAlreadyCanceled)

	e.mine(t, 1)
	err = e.engine.CastVote(ctx, bob, id, models.SupportFor)
	assert.ErrorIs(t, err, models.ErrProposalNotActive)

	err = e.engine.Cancel(ctx, alice, 42)
	assert.ErrorIs(t, err, models.ErrUnknownProposal)

	// the authority may cancel anyone's proposal
	bobID, err := e.engine.Propose(ctx, bob, noopRequest("bob's"))
	require.NoError(t, err)
	require.NoError(t, e.engine.Cancel(ctx, deployer, bobID))
	assert.Equal(t, models.ProposalCanceled, e.state(t, bobID))
}

func TestQueueAndExecute(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()

	_, err := e.engine.Queue(ctx, carol, id)
	require.ErrorIs(t, err, models.ErrProposalNotSucceeded)

	pass(t, e, id)

	err = e.engine.Execute(ctx, carol, id)
	require.ErrorIs(t, err, models.ErrProposalNotQueued)

	// anyone may queue
	eta, err := e.engine.Queue(ctx, carol, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(147)+timelockDelay, eta)
	assert.Equal(t, models.ProposalQueued, e.state(t, id))

	err = e.engine.Execute(ctx, carol, id)
	require.ErrorIs(t, err, models.ErrTimelockNotReady)
	assert.Equal(t, models.ProposalQueued, e.state(t, id))

	e.mine(t, timelockDelay)
	require.NoError(t, e.engine.Execute(ctx, carol, id))
	assert.Equal(t, models.ProposalExecuted, e.state(t, id))

	err = e.engine.Cancel(ctx, alice, id)
	assert.ErrorIs(t, err, models.ErrAlreadyExecuted)
	err = e.engine.Execute(ctx, carol, id)
	assert.ErrorIs(t, err, models.ErrProposalNotQueued)
}

func TestQueuedProposalExpires(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()
	pass(t, e, id)

	_, err := e.engine.Queue(ctx, alice, id)
	require.NoError(t, err)

	e.mine(t, timelockDelay+timelockGrace)
	assert.Equal(t, models.ProposalQueued, e.state(t, id))
	e.mine(t, 1)
	assert.Equal(t, models.ProposalExpired, e.state(t, id))

	err = e.engine.Execute(ctx, alice, id)
	assert.ErrorIs(t, err, models.ErrProposalNotQueued)
}

func TestCancelQueuedProposal(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()
	pass(t, e, id)

	_, err := e.engine.Queue(ctx, alice, id)
	require.NoError(t, err)
	require.NoError(t, e.engine.Cancel(ctx, alice, id))
	assert.Equal(t, models.ProposalCanceled, e.state(t, id))

	e.mine(t, timelockDelay)
	err = e.engine.Execute(ctx, alice, id)
	assert.ErrorIs(t, err, models.ErrProposalNotQueued)
}

func TestParameterSetters(t *testing.T) {
	e, id := setup(t)
	ctx := context.Background()

	err := e.engine.SetVotingPeriod(ctx, alice, 10)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	require.NoError(t, e.engine.SetVotingDelay(ctx, deployer, 3))
	require.NoError(t, e.engine.SetVotingPeriod(ctx, deployer, 10))
	require.NoError(t, e.engine.SetProposalThreshold(ctx, deployer, 500*washa))
	require.NoError(t, e.engine.SetQuorumVotes(ctx, deployer, 1000*washa))

	err = e.engine.SetParam(ctx, deployer, "voting-speed", 1)
	assert.ErrorIs(t, err, models.ErrUnknownParameter)

	settings, err := e.engine.Settings()
	require.NoError(t, err)
	assert.Equal(t, models.Params{
		VotingDelay:       3,
		VotingPeriod:      10,
		ProposalThreshold: 500 * washa,
		QuorumVotes:       1000 * washa,
	}, settings.Params)
	assert.Equal(t, deployer, settings.Authority)
	assert.Equal(t, timelockDelay, settings.TimelockDelay)
	assert.Equal(t, timelockGrace, settings.GracePeriod)

	// the open proposal keeps its window and quorum
	p := e.proposal(t, id)
	assert.Equal(t, uint64(146), p.EndBlock)
	assert.Equal(t, 400*washa, p.QuorumVotes)

	// alice's 200 no longer meets the raised threshold
	e.mine(t, 150)
	_, err = e.engine.Propose(ctx, alice, noopRequest("again"))
	assert.ErrorIs(t, err, models.ErrBelowThreshold)
}

func TestBootstrapRunsOnce(t *testing.T) {
	e := newEnv(t)
	ok, err := e.engine.Initialized()
	require.NoError(t, err)
	assert.True(t, ok)

	created, err := e.engine.Bootstrap(context.Background(), governance.Genesis{
		Authority: alice,
		Params:    models.Params{VotingPeriod: 1},
	})
	require.NoError(t, err)
	assert.False(t, created)

	authority, err := e.engine.Authority()
	require.NoError(t, err)
	assert.Equal(t, deployer, authority)

	params, err := e.engine.Params()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultParams(), params)
}

func TestExecutedProposalChangesGovernance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fund(t, alice, 200*washa)
	e.fund(t, bob, 600*washa)
	require.NoError(t, e.engine.SetAuthority(ctx, deployer, timelock.DefaultPrincipal))

	// the deployer has handed over control
	err := e.engine.SetVotingDelay(ctx, deployer, 5)
	require.ErrorIs(t, err, models.ErrUnauthorized)

	e.mine(t, 1)
	id, err := e.engine.Propose(ctx, alice, governance.ProposalRequest{
		Targets:     []string{governance.TargetDAO, governance.TargetToken, "washika-vault"},
		Values:      []uint64{0, 0, 0},
		Signatures:  []string{"set-voting-delay", "mint", "harvest"},
		Calldatas:   [][]byte{[]byte(`{"value":5}`), []byte(`{"to":"ST1WALLET3","amount":7}`), nil},
		Description: "slow down voting and reward carol",
	})
	require.NoError(t, err)
	pass(t, e, id)

	_, err = e.engine.Queue(ctx, bob, id)
	require.NoError(t, err)
	e.mine(t, timelockDelay)
	require.NoError(t, e.engine.Execute(ctx, bob, id))

	params, err := e.engine.Params()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), params.VotingDelay)

	bal, err := e.tokens.Balance(carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), bal)
}

func TestFailedExecuteLeavesProposalQueued(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.fund(t, alice, 200*washa)
	e.fund(t, bob, 600*washa)
	require.NoError(t, e.engine.SetAuthority(ctx, deployer, timelock.DefaultPrincipal))
	e.mine(t, 1)

	id, err := e.engine.Propose(ctx, alice, governance.ProposalRequest{
		Targets:     []string{governance.TargetDAO, governance.TargetDAO},
		Values:      []uint64{0, 0},
		Signatures:  []string{"set-voting-period", "set-voting-speed"},
		Calldatas:   [][]byte{[]byte(`{"value":10}`), []byte(`{"value":1}`)},
		Description: "second action is bogus",
	})
	require.NoError(t, err)
	pass(t, e, id)

	_, err = e.engine.Queue(ctx, bob, id)
	require.NoError(t, err)
	e.mine(t, timelockDelay)

	err = e.engine.Execute(ctx, bob, id)
	require.ErrorIs(t, err, models.ErrUnknownParameter)

	assert.Equal(t, models.ProposalQueued, e.state(t, id))
	params, err := e.engine.Params()
	require.NoError(t, err)
	assert.Equal(t, models.DefaultParams().VotingPeriod, params.VotingPeriod)
}
