// Package access is the single authorization policy consulted by every
// privileged ledger and governance operation.
package access

import "washika-dao/models"

type Operation string

const (
	OpMint         Operation = "mint"
	OpSetParam     Operation = "set-param"
	OpSetAuthority Operation = "set-authority"
	OpCancel       Operation = "cancel"
	OpTransfer     Operation = "transfer"
)

// Check returns models.ErrUnauthorized unless caller may perform op. owner is
// the principal the operation acts on behalf of (the proposer for cancel, the
// sender for transfer) and is ignored by authority-only operations.
func Check(op Operation, caller, authority, owner models.Principal) error {
	switch op {
	case OpMint, OpSetParam, OpSetAuthority:
		if authority != models.NoDelegate && caller == authority {
			return nil
		}
	case OpCancel:
		// the authority may cancel any proposal as an emergency override
		if caller == owner || (authority != models.NoDelegate && caller == authority) {
			return nil
		}
	case OpTransfer:
		if caller == owner {
			return nil
		}
	}
	return models.ErrUnauthorized
}
