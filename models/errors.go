package models

// Error is a caller-visible failure with a stable numeric code
type Error struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code int, name, message string) *Error {
	return &Error{Code: code, Name: name, Message: message}
}

var (
	ErrUnauthorized         = newError(401, "Unauthorized", "caller is not authorized")
	ErrInsufficientBalance  = newError(402, "InsufficientBalance", "insufficient balance")
	ErrInvalidAmount        = newError(403, "InvalidAmount", "invalid amount")
	ErrUnknownProposal      = newError(404, "UnknownProposal", "unknown proposal")
	ErrSelfRedelegation     = newError(405, "SelfRedelegation", "already delegated to this principal")
	ErrProposalNotActive    = newError(406, "ProposalNotActive", "proposal is not active")
	ErrAlreadyVoted         = newError(407, "AlreadyVoted", "already voted on this proposal")
	ErrInvalidVoteType      = newError(408, "InvalidVoteType", "support must be 0, 1 or 2")
	ErrAlreadyCanceled      = newError(409, "AlreadyCanceled", "proposal already canceled")
	ErrAlreadyExecuted      = newError(410, "AlreadyExecuted", "proposal already executed")
	ErrArityMismatch        = newError(411, "ArityMismatch", "proposal action lists differ in length")
	ErrTooManyProposals     = newError(412, "TooManyProposals", "proposer already has a live proposal")
	ErrBelowThreshold       = newError(413, "BelowThreshold", "voting power below proposal threshold")
	ErrProposalNotSucceeded = newError(414, "ProposalNotSucceeded", "proposal has not succeeded")
	ErrProposalNotQueued    = newError(415, "ProposalNotQueued", "proposal is not queued")
	ErrInvalidActions       = newError(416, "InvalidActions", "proposal must have between 1 and 10 actions")
	ErrTimelockNotReady     = newError(417, "TimelockNotReady", "timelock eta not reached")
	ErrTimelockExpired      = newError(418, "TimelockExpired", "timelock grace period elapsed")
	ErrTimelockDuplicate    = newError(419, "TimelockDuplicate", "proposal already queued in timelock")
	ErrTimelockETA          = newError(420, "TimelockETA", "eta does not satisfy timelock delay")
	ErrInvalidPrincipal     = newError(421, "InvalidPrincipal", "invalid principal")
	ErrUnknownParameter     = newError(422, "UnknownParameter", "unknown governance parameter")
)
