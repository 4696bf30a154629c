package models

// Params are the tunable governance parameters. Heights are in blocks,
// thresholds in token base units.
type Params struct {
	VotingDelay       uint64 `json:"voting_delay"`
	VotingPeriod      uint64 `json:"voting_period"`
	ProposalThreshold uint64 `json:"proposal_threshold"`
	QuorumVotes       uint64 `json:"quorum_votes"`
}

func DefaultParams() Params {
	return Params{
		VotingDelay:       1,
		VotingPeriod:      144,
		ProposalThreshold: 100 * TokenUnit,
		QuorumVotes:       400 * TokenUnit,
	}
}

// Settings is the read-only governance configuration shown on the dashboard
type Settings struct {
	Params
	Authority     Principal `json:"authority"`
	TimelockDelay uint64    `json:"timelock_delay"`
	GracePeriod   uint64    `json:"grace_period"`
}
