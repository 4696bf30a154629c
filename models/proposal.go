package models

// ProposalState is the numerically encoded lifecycle state of a proposal
type ProposalState uint8

const (
	ProposalPending ProposalState = iota
	ProposalActive
	ProposalCanceled
	ProposalDefeated
	ProposalSucceeded
	ProposalQueued
	ProposalExpired
	ProposalExecuted
)

var proposalStateNames = [...]string{
	"pending",
	"active",
	"canceled",
	"defeated",
	"succeeded",
	"queued",
	"expired",
	"executed",
}

func (s ProposalState) String() string {
	if int(s) < len(proposalStateNames) {
		return proposalStateNames[s]
	}
	return "unknown"
}

// Live reports whether the proposal is still collecting votes or waiting to
// start. A proposer may hold only one live proposal at a time.
func (s ProposalState) Live() bool {
	return s == ProposalPending || s == ProposalActive
}

// Support is the vote direction: 0 against, 1 for, 2 abstain
type Support uint

const (
	SupportAgainst Support = iota
	SupportFor
	SupportAbstain
)

func (s Support) Valid() bool {
	return s <= SupportAbstain
}

func (s Support) String() string {
	switch s {
	case SupportAgainst:
		return "against"
	case SupportFor:
		return "for"
	case SupportAbstain:
		return "abstain"
	default:
		return "invalid"
	}
}

// MaxProposalActions bounds the action list of a single proposal
const MaxProposalActions = 10

// Action is one call the timelock performs when a proposal executes.
// Governance treats it as opaque.
type Action struct {
	Target    string `json:"target"`
	Value     uint64 `json:"value"`
	Signature string `json:"signature"`
	Calldata  []byte `json:"calldata"`
}

// Proposal is a governance proposal. Everything but the tallies, Canceled,
// Executed and ETA is fixed at creation.
type Proposal struct {
	ID          uint64    `json:"id"`
	Proposer    Principal `json:"proposer"`
	Targets     []string  `json:"targets"`
	Values      []uint64  `json:"values"`
	Signatures  []string  `json:"signatures"`
	Calldatas   [][]byte  `json:"calldatas"`
	Description string    `json:"description"`

	CreatedAt   uint64 `json:"created_at"`
	StartBlock  uint64 `json:"start_block"`
	EndBlock    uint64 `json:"end_block"`
	QuorumVotes uint64 `json:"quorum_votes"`

	ForVotes     uint64 `json:"for_votes"`
	AgainstVotes uint64 `json:"against_votes"`
	AbstainVotes uint64 `json:"abstain_votes"`

	Canceled bool   `json:"canceled"`
	Executed bool   `json:"executed"`
	ETA      uint64 `json:"eta"`
}

// Actions zips the parallel action slices
func (p *Proposal) Actions() []Action {
	actions := make([]Action, len(p.Targets))
	for i := range p.Targets {
		actions[i] = Action{
			Target:    p.Targets[i],
			Value:     p.Values[i],
			Signature: p.Signatures[i],
			Calldata:  p.Calldatas[i],
		}
	}
	return actions
}

// Turnout is the sum of all three tallies
func (p *Proposal) Turnout() uint64 {
	return p.ForVotes + p.AgainstVotes + p.AbstainVotes
}

// ProposalView pairs a proposal with its derived state
type ProposalView struct {
	*Proposal
	State     ProposalState `json:"state"`
	StateName string        `json:"state_name"`
}

func NewProposalView(p *Proposal, state ProposalState) ProposalView {
	return ProposalView{Proposal: p, State: state, StateName: state.String()}
}

// Receipt records a principal's vote on a proposal. Written at most once.
type Receipt struct {
	HasVoted bool    `json:"has_voted"`
	Support  Support `json:"support"`
	Votes    uint64  `json:"votes"`
}

// TimelockBatch is the payload handed to the timelock when a proposal is
// queued, executed or canceled
type TimelockBatch struct {
	ProposalID uint64   `json:"proposal_id"`
	ETA        uint64   `json:"eta"`
	Actions    []Action `json:"actions"`
}
