package models

import "strings"

// TokenDecimals is the number of decimal places of the WASHA governance token
const TokenDecimals = 6

// TokenUnit is one whole WASHA expressed in base units
const TokenUnit uint64 = 1_000_000

const maxPrincipalLength = 150

// Principal identifies an account, a contract or the timelock on the ledger
type Principal string

// NoDelegate is the unset delegate pointer: no delegatee, no voting power
const NoDelegate Principal = ""

// Valid reports whether p can be used as a storage key component
func (p Principal) Valid() bool {
	if p == "" || len(p) > maxPrincipalLength {
		return false
	}
	return !strings.ContainsAny(string(p), ": \t\r\n")
}

// Checkpoint is the voting power held by a delegatee from a block onwards
type Checkpoint struct {
	FromBlock uint64 `json:"from_block"`
	Votes     uint64 `json:"votes"`
}

// Account is the dashboard view of a principal's token position
type Account struct {
	Principal    Principal `json:"principal"`
	Balance      uint64    `json:"balance"`
	Delegate     Principal `json:"delegate"`
	CurrentVotes uint64    `json:"current_votes"`
}

// LedgerReport is the result of checking the token's conservation invariants
// against stored state
type LedgerReport struct {
	Height      uint64 `json:"height"`
	TotalSupply uint64 `json:"total_supply"`
	SumBalances uint64 `json:"sum_balances"`
	SumVotes    uint64 `json:"sum_votes"`
	Holders     int    `json:"holders"`
	Delegatees  int    `json:"delegatees"`
	Consistent  bool   `json:"consistent"`
}
